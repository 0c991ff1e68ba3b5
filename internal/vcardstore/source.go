package vcardstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/zalando/go-keyring"
)

// Source opens a stream of vCards.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in prompts and in the keyring.
	Name() string
}

// FileSource reads a local .vcf export.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Path == "" {
		return nil, errors.New(config.ErrLocalPathEmpty)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(s.Path)
}

func (s FileSource) Name() string { return s.Path }

// WebSource downloads a CardDAV/WebDAV export. When Password is empty it is
// looked up in the OS keyring under User.
type WebSource struct {
	URL      string
	User     string
	Password string
	Fetcher  Fetcher
}

func (s WebSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.URL == "" {
		return nil, errors.New(config.ErrWebURLEmpty)
	}
	if s.Fetcher == nil {
		return nil, errors.New(config.ErrFetcherMissing)
	}
	pass := s.Password
	if pass == "" && s.User != "" {
		p, err := keyring.Get(config.KeyringService, s.User)
		if err != nil {
			slog.Debug(config.MsgPassFail,
				config.LogKeyComponent, config.CompStore,
				config.LogKeyUser, s.User,
				config.LogKeyError, err)
		}
		pass = p
	}
	return s.Fetcher.Fetch(ctx, s.URL, s.User, pass)
}

// Name omits credentials and the query string.
func (s WebSource) Name() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.URL
	}
	return redact(u)
}

// NewSource builds the source selected by cfg.
func NewSource(cfg config.SourceConfig, fetcher Fetcher) (Source, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.Path == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return FileSource{Path: cfg.Path}, nil
	case config.SourceModeWeb:
		if cfg.URL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		return WebSource{URL: cfg.URL, User: cfg.User, Fetcher: fetcher}, nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}
