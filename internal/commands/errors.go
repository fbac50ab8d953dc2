package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"dialdesk/internal/actions"
	"dialdesk/internal/auth"
	"dialdesk/internal/exitcode"
	"dialdesk/internal/lifecycle"
	"dialdesk/internal/poller"
	"dialdesk/internal/service"
)

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	var apiErr *service.APIError
	var timeout *poller.TimeoutError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, auth.ErrNotLoggedIn),
		errors.Is(err, auth.ErrExpired):
		return exitcode.AuthError
	case errors.As(err, &timeout):
		return exitcode.Timeout
	case errors.Is(err, service.ErrTaskRequired),
		errors.Is(err, service.ErrIDRequired),
		errors.Is(err, lifecycle.ErrConfirmInFlight),
		errors.Is(err, lifecycle.ErrNotAwaiting),
		errors.Is(err, actions.ErrInFlight),
		errors.Is(err, context.Canceled):
		return exitcode.UserError
	case errors.As(err, &apiErr):
		if apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			return exitcode.UserError
		}
		return exitcode.BackendError
	}
	return exitcode.BackendError
}

// report prints err as an "error: ..." line and returns its exit code.
func report(errOut io.Writer, err error) int {
	code := exitCodeFor(err)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: cancelled")
	case errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: %v\n", service.ErrUnauthorized)
	case code == exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
