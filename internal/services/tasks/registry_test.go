package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/models"
)

// stubHandler is a no-op handler with a configurable tag
type stubHandler struct {
	tag string
}

func (h *stubHandler) TaskType() string { return h.tag }

func (h *stubHandler) Handle(ctx context.Context, payload models.TaskPayload) error {
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	handler := &stubHandler{tag: "print"}
	require.NoError(t, registry.Register(handler))

	got, err := registry.Get("print")
	require.NoError(t, err)
	assert.Same(t, handler, got.(*stubHandler))
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	require.NoError(t, registry.Register(&stubHandler{tag: "print"}))

	err := registry.Register(&stubHandler{tag: "print"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_RejectsInvalidHandlers(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubHandler{tag: ""}))
}

func TestRegistry_UnknownTag(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	_, err := registry.Get("teleport")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHandlerNotFound))
}

func TestRegistry_TaskTypes(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	require.NoError(t, registry.Register(&stubHandler{tag: "shell_command"}))
	require.NoError(t, registry.Register(&stubHandler{tag: "print"}))
	require.NoError(t, registry.Register(&stubHandler{tag: "adf_pipeline"}))

	assert.Equal(t, []string{"adf_pipeline", "print", "shell_command"}, registry.TaskTypes())
}
