// Package chat resolves the chat session that new tasks are threaded into.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dialdesk/internal/config"
	"dialdesk/internal/localstate"
	"dialdesk/internal/logger"
	"dialdesk/internal/service"
)

// Bootstrapper finds or creates the persistent chat session.
type Bootstrapper struct {
	svc   service.ChatService
	store localstate.Store
	limit int
	log   *slog.Logger
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithHistoryLimit sets how many messages to hydrate.
func WithHistoryLimit(n int) Option {
	return func(b *Bootstrapper) { b.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bootstrapper) { b.log = l }
}

// NewBootstrapper creates a Bootstrapper.
func NewBootstrapper(svc service.ChatService, store localstate.Store, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{svc: svc, store: store, limit: config.DefaultHistoryLimit}
	for _, opt := range opts {
		opt(b)
	}
	if b.limit <= 0 {
		b.limit = config.DefaultHistoryLimit
	}
	b.log = logger.OrDiscard(b.log)
	return b
}

// Session returns the current chat session with its recent history.
//
// A value under the legacy key is moved to the current key first. Without a
// stored id a new session is created and persisted. A stored id the backend
// no longer knows is replaced the same way.
func (b *Bootstrapper) Session(ctx context.Context) (service.ChatSession, error) {
	id, ok, err := b.store.Migrate(ctx, localstate.KeyLegacyChatSession, localstate.KeyChatSession)
	if err != nil {
		return service.ChatSession{}, fmt.Errorf("load chat session id: %w", err)
	}
	if !ok || id == "" {
		return b.create(ctx)
	}

	sess, err := b.svc.GetChatSession(ctx, id, b.limit)
	if errors.Is(err, service.ErrNotFound) {
		b.log.Info("stored chat session is gone, starting a new one", "session_id", id)
		return b.create(ctx)
	}
	if err != nil {
		return service.ChatSession{}, fmt.Errorf("load chat session %s: %w", id, err)
	}
	return sess, nil
}

// SessionID is Session without the history.
func (b *Bootstrapper) SessionID(ctx context.Context) (string, error) {
	sess, err := b.Session(ctx)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Reset supersedes the stored session with a fresh one.
func (b *Bootstrapper) Reset(ctx context.Context) (service.ChatSession, error) {
	if err := b.store.Delete(ctx, localstate.KeyLegacyChatSession); err != nil {
		return service.ChatSession{}, fmt.Errorf("clear chat session id: %w", err)
	}
	return b.create(ctx)
}

func (b *Bootstrapper) create(ctx context.Context) (service.ChatSession, error) {
	sess, err := b.svc.CreateChatSession(ctx)
	if err != nil {
		return service.ChatSession{}, fmt.Errorf("create chat session: %w", err)
	}
	if sess.ID == "" {
		return service.ChatSession{}, errors.New("create chat session: backend returned no id")
	}
	if err := b.store.Set(ctx, localstate.KeyChatSession, sess.ID); err != nil {
		return service.ChatSession{}, fmt.Errorf("save chat session id: %w", err)
	}
	b.log.Debug("created chat session", "session_id", sess.ID)
	return sess, nil
}
