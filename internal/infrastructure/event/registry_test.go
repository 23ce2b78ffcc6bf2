package event

import (
	"context"
	"testing"

	"github.com/postrack/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("TerminalIssued", "TerminalReturned")

	registry.Register(handler, "TerminalIssued", "TerminalReturned")

	handlers := registry.GetHandlers("TerminalIssued")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("TerminalReturned")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("TerminalScrapped")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler() // No event types = wildcard

	registry.Register(handler)

	handlers := registry.GetHandlers("TerminalIssued")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("AnyEventType")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("TerminalIssued")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "TerminalIssued")
	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("TerminalIssued")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("OtherEvent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcardHandler, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("TerminalIssued")
	handler2 := newMockHandler("TerminalIssued")

	registry.Register(handler1, "TerminalIssued")
	registry.Register(handler2, "TerminalIssued")

	handlers := registry.GetHandlers("TerminalIssued")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("TerminalIssued")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler)
	assert.Len(t, registry.GetHandlers("AnyEvent"), 1)

	registry.Unregister(handler)
	assert.Len(t, registry.GetHandlers("AnyEvent"), 0)
}

func TestHandlerRegistry_Unregister_RemovesEmptyTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("TerminalIssued")

	registry.Register(handler, "TerminalIssued")
	registry.Unregister(handler)

	assert.Len(t, registry.GetHandlers("TerminalIssued"), 0)
	assert.Len(t, registry.GetAllHandlers(), 0)
}

func TestHandlerRegistry_GetAllHandlers_Deduplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("TerminalIssued", "TerminalReturned")

	// Registered under two event types, must appear once
	registry.Register(handler, "TerminalIssued", "TerminalReturned")

	all := registry.GetAllHandlers()
	assert.Len(t, all, 1)
	assert.Equal(t, handler, all[0])
}

func TestHandlerRegistry_GetAllHandlers_IncludesWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("TerminalIssued")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "TerminalIssued")
	registry.Register(wildcardHandler)

	all := registry.GetAllHandlers()
	assert.Len(t, all, 2)
}
