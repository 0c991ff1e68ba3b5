// Package server exposes contact events over HTTP, as an iCalendar feed
// for calendar clients and as JSON for scripts.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/tartampluch/go-contact-events/internal/ics"
)

// EventSource is the part of engine.ContactEvents the server needs.
type EventSource interface {
	Granted(ctx context.Context) bool
	Events(ctx context.Context, start, end engine.CalendarDate) engine.EventsByDate
}

// rendered is the last body served, reused while the events are unchanged.
type rendered struct {
	route string
	etag  string
	data  []byte
}

// FeedServer answers range queries against an EventSource.
type FeedServer struct {
	Addr   string
	source EventSource
	clock  engine.Clock

	// last uses atomic.Pointer for lock-free reads on the hot path.
	last atomic.Pointer[rendered]
}

// New creates a server for source. A nil clock means the real clock.
func New(addr string, source EventSource, clock engine.Clock) *FeedServer {
	if clock == nil {
		clock = engine.RealClock{}
	}
	return &FeedServer{Addr: addr, source: source, clock: clock}
}

// Handler returns the routes served by Start.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteICS, s.handle)
	mux.HandleFunc(config.RouteJSON, s.handle)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Addr == "" {
		return fmt.Errorf(config.ErrListenRequired)
	}

	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyAddr, s.Addr,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// parseRange reads start and end from the query. A missing bound falls back
// to the default window around today.
func (s *FeedServer) parseRange(r *http.Request) (engine.CalendarDate, engine.CalendarDate, error) {
	start, end := engine.DefaultRange(s.clock)
	q := r.URL.Query()

	var err error
	if v := q.Get(config.QueryStart); v != "" {
		if start, err = engine.ParseDate(engine.Gregorian{}, v); err != nil {
			return start, end, err
		}
	}
	if v := q.Get(config.QueryEnd); v != "" {
		if end, err = engine.ParseDate(engine.Gregorian{}, v); err != nil {
			return start, end, err
		}
	}
	if start.After(end) {
		return start, end, fmt.Errorf("%s: %s > %s", config.ErrDateRange, start, end)
	}
	return start, end, nil
}

func (s *FeedServer) handle(w http.ResponseWriter, r *http.Request) {
	began := time.Now()

	// 1. Method Validation
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// 2. Access and range
	if !s.source.Granted(r.Context()) {
		http.Error(w, config.HTTPMsgNoAccess, http.StatusForbidden)
		return
	}
	start, end, err := s.parseRange(r)
	if err != nil {
		http.Error(w, config.HTTPMsgBadRange, http.StatusBadRequest)
		return
	}

	// 3. Query and fingerprint. The ETag hashes the events rather than the
	// body because DTSTAMP changes on every render.
	events := s.source.Events(r.Context(), start, end)
	canonical, err := json.Marshal(events)
	if err != nil {
		s.fail(w, err)
		return
	}
	hash := sha256.Sum256(append([]byte(r.URL.Path), canonical...))
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	// 4. Set Response Headers
	contentType := config.MimeTextCalendar
	if r.URL.Path == config.RouteJSON {
		contentType = config.MimeJSON
	}
	w.Header().Set(config.HeaderContentType, contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, etag)

	// 5. Check Conditional Headers (Browser Caching)
	if match := r.Header.Get(config.HeaderIfNoneMatch); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// 6. Render, reusing the previous body when nothing changed
	data, err := s.render(r.URL.Path, etag, canonical, events)
	if err != nil {
		s.fail(w, err)
		return
	}

	slog.Debug(config.MsgFeedServed,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyStart, start.String(),
		config.LogKeyEnd, end.String(),
		config.LogKeyEvents, events.Count(),
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
		config.LogKeyDuration, time.Since(began).Milliseconds(),
	)

	// 7. Serve Content
	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

func (s *FeedServer) render(route, etag string, canonical []byte, events engine.EventsByDate) ([]byte, error) {
	if last := s.last.Load(); last != nil && last.route == route && last.etag == etag {
		return last.data, nil
	}

	data := canonical
	if route == config.RouteICS {
		var err error
		if data, err = ics.Encode(events, s.clock.Now()); err != nil {
			return nil, err
		}
	}
	s.last.Store(&rendered{route: route, etag: etag, data: data})
	return data, nil
}

func (s *FeedServer) fail(w http.ResponseWriter, err error) {
	slog.Error(config.HTTPMsgInternalErr,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyError, err,
	)
	http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
}
