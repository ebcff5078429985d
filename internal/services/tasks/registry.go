// Package tasks provides the task handler registry and the built-in
// handlers the scheduler dispatches to when a job fires.
package tasks

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/interfaces"
)

// ErrHandlerNotFound is returned when no handler is registered for a tag.
// The scheduler loop logs it and marks the job failed for that tick.
var ErrHandlerNotFound = errors.New("no handler registered for task type")

// Registry maps task type tags to their handlers. It is populated at
// process startup before the engine runs and treated as immutable
// afterwards.
type Registry struct {
	handlers map[string]interfaces.TaskHandler
	logger   arbor.ILogger
	mu       sync.RWMutex
}

// NewRegistry creates an empty task handler registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		handlers: make(map[string]interfaces.TaskHandler),
		logger:   logger,
	}
}

// Register adds a handler under the tag it reports. Duplicate tags are
// rejected so a misconfigured boot fails loudly instead of silently
// replacing a handler.
func (r *Registry) Register(handler interfaces.TaskHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	taskType := handler.TaskType()
	if taskType == "" {
		return fmt.Errorf("handler task type cannot be empty")
	}

	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("handler already registered for task type %s", taskType)
	}

	r.handlers[taskType] = handler
	r.logger.Info().Str("task_type", taskType).Msg("Task handler registered")
	return nil
}

// Get returns the handler for a tag, or ErrHandlerNotFound
func (r *Registry) Get(taskType string) (interfaces.TaskHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, taskType)
	}
	return handler, nil
}

// TaskTypes returns the registered tags in sorted order
func (r *Registry) TaskTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for taskType := range r.handlers {
		types = append(types, taskType)
	}
	sort.Strings(types)
	return types
}
