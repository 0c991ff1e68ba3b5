package engine

import (
	"context"
	"log/slog"

	"github.com/tartampluch/go-contact-events/internal/config"
	"golang.org/x/sync/singleflight"
)

const promptKey = "contacts-access"

// Gate tracks whether the contact store may be read and asks for access.
// It never caches the status: every read goes to the store, so a change
// made outside the application is seen on the next call.
type Gate struct {
	store  ContactStore
	prompt singleflight.Group
}

// NewGate creates a gate over store.
func NewGate(store ContactStore) *Gate {
	return &Gate{store: store}
}

// Status returns the live authorization status.
func (g *Gate) Status(ctx context.Context) AccessStatus {
	return g.store.AuthorizationStatus(ctx)
}

// Granted reports whether the store may be read right now.
func (g *Gate) Granted(ctx context.Context) bool {
	return g.Status(ctx) == AccessGranted
}

// RequestAccess reports through completion whether access is granted.
//
// When the status is already determined, completion runs immediately on the
// calling goroutine and no prompt is shown. Otherwise the prompt runs on a
// new goroutine; concurrent callers join the prompt already in flight and
// each completion is invoked exactly once with the shared outcome.
//
// The shared prompt outlives the caller that started it: cancelling one
// caller's ctx does not answer the prompt for the others.
func (g *Gate) RequestAccess(ctx context.Context, completion func(granted bool)) {
	if status := g.Status(ctx); status != AccessNotDetermined {
		slog.Debug(config.MsgAccessKnown,
			config.LogKeyComponent, config.CompGate,
			config.LogKeyAccess, status.String())
		completion(status == AccessGranted)
		return
	}

	go func() {
		v, _, _ := g.prompt.Do(promptKey, func() (any, error) {
			return g.ask(context.WithoutCancel(ctx)), nil
		})
		completion(v.(bool))
	}()
}

// Request is the blocking form of RequestAccess.
func (g *Gate) Request(ctx context.Context) bool {
	done := make(chan bool, config.ChannelBufferSize)
	g.RequestAccess(ctx, func(granted bool) { done <- granted })
	return <-done
}

// ask prompts unless another prompt settled the status in the meantime.
func (g *Gate) ask(ctx context.Context) bool {
	if status := g.Status(ctx); status != AccessNotDetermined {
		return status == AccessGranted
	}

	slog.Info(config.MsgAccessPrompt, config.LogKeyComponent, config.CompGate)
	granted, err := g.store.RequestAuthorization(ctx)
	if err != nil {
		slog.Warn(config.ErrPrompt,
			config.LogKeyComponent, config.CompGate,
			config.LogKeyError, err)
		return false
	}

	slog.Info(config.MsgAccessResult,
		config.LogKeyComponent, config.CompGate,
		config.LogKeyGranted, granted)
	return granted
}
