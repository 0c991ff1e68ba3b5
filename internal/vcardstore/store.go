package vcardstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/zalando/go-keyring"
)

// ErrAccessDenied is returned when contacts are read without a grant.
var ErrAccessDenied = errors.New(config.ErrAccessDenied)

// Store is an engine.ContactStore over a vCard source.
//
// The access decision is kept in the OS keyring, one entry per source, so it
// survives restarts and can be revoked from outside the application. When the
// keyring is unavailable the decision only lasts for the process.
type Store struct {
	source   Source
	prompter Prompter

	// session holds an engine.AccessStatus used when the keyring cannot.
	session atomic.Int32
}

// New creates a store reading from source and asking prompter for access.
func New(source Source, prompter Prompter) *Store {
	return &Store{source: source, prompter: prompter}
}

// Source returns the underlying vCard source.
func (s *Store) Source() Source {
	return s.source
}

func (s *Store) accessKey() string {
	return config.AccessKeyPrefix + s.source.Name()
}

// AuthorizationStatus reads the persisted decision.
func (s *Store) AuthorizationStatus(context.Context) engine.AccessStatus {
	v, err := keyring.Get(config.KeyringService, s.accessKey())
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug(config.ErrAccessPersist,
				config.LogKeyComponent, config.CompStore,
				config.LogKeyError, err)
		}
		return engine.AccessStatus(s.session.Load())
	}

	switch v {
	case config.AccessValueGranted:
		return engine.AccessGranted
	case config.AccessValueDenied:
		return engine.AccessDenied
	default:
		return engine.AccessNotDetermined
	}
}

// RequestAuthorization asks the prompter and records the answer.
func (s *Store) RequestAuthorization(ctx context.Context) (bool, error) {
	if s.prompter == nil {
		return false, errors.New(config.ErrPrompt)
	}
	granted, err := s.prompter.Prompt(ctx, s.source.Name())
	if err != nil {
		return false, fmt.Errorf("%s: %w", config.ErrPrompt, err)
	}

	status, value := engine.AccessDenied, config.AccessValueDenied
	if granted {
		status, value = engine.AccessGranted, config.AccessValueGranted
	}
	s.session.Store(int32(status))

	if err := keyring.Set(config.KeyringService, s.accessKey(), value); err != nil {
		slog.Warn(config.ErrAccessPersist,
			config.LogKeyComponent, config.CompStore,
			config.LogKeySource, s.source.Name(),
			config.LogKeyError, err)
	}
	return granted, nil
}

// Revoke forgets the decision, so the next request prompts again.
func (s *Store) Revoke() error {
	s.session.Store(int32(engine.AccessNotDetermined))
	err := keyring.Delete(config.KeyringService, s.accessKey())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", config.ErrAccessPersist, err)
	}
	return nil
}

// ContactDates reads the whole source once. It fails with ErrAccessDenied
// unless access is granted.
func (s *Store) ContactDates(ctx context.Context) ([]engine.ContactDate, error) {
	if s.AuthorizationStatus(ctx) != engine.AccessGranted {
		return nil, ErrAccessDenied
	}

	rc, err := s.source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", config.ErrVCardSource, err)
	}
	// Read-only stream, nothing useful to do with a Close error.
	defer func() { _ = rc.Close() }()

	return Decode(ctx, rc)
}
