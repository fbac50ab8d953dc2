package cache

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"dialdesk/internal/service"
)

const countsKey = "tasks"

// Counts maps a status to the number of tasks in it.
type Counts map[service.TaskStatus]int

// TaskCounts is the aggregate view of tasks by status.
type TaskCounts struct {
	svc     service.TaskService
	mu      sync.Mutex
	entries *Cache[string, Counts]
}

// NewTaskCounts creates a TaskCounts backed by svc.ListTasks.
func NewTaskCounts(svc service.TaskService, ttl time.Duration) *TaskCounts {
	return &TaskCounts{svc: svc, entries: New[string, Counts](1, ttl)}
}

// Get returns the cached counts, fetching when absent or expired.
func (c *TaskCounts) Get(ctx context.Context) (Counts, error) {
	c.mu.Lock()
	cached, ok := c.entries.Get(countsKey)
	c.mu.Unlock()
	if ok {
		return maps.Clone(cached), nil
	}
	return c.Fetch(ctx)
}

// Fetch recounts from the backend and overwrites whatever is cached.
func (c *TaskCounts) Fetch(ctx context.Context) (Counts, error) {
	tasks, err := c.svc.ListTasks(ctx, service.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	counts := make(Counts, len(service.AllStatuses))
	for _, t := range tasks {
		counts[t.Status]++
	}

	c.mu.Lock()
	c.entries.Put(countsKey, counts)
	c.mu.Unlock()
	return maps.Clone(counts), nil
}

// Adjust optimistically moves one task between statuses. An empty from
// records a newly created task. It is a no-op when nothing is cached.
func (c *TaskCounts) Adjust(from, to service.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries.Get(countsKey)
	if !ok {
		return
	}
	next := maps.Clone(cached)
	if from != "" && next[from] > 0 {
		next[from]--
	}
	if to != "" {
		next[to]++
	}
	c.entries.Put(countsKey, next)
}

// Invalidate forces the next Get to fetch.
func (c *TaskCounts) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
