package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var today = fixedClock(time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC))

// fakeSource expands a fixed set of dates, like engine.ContactEvents does.
type fakeSource struct {
	granted atomic.Bool
	mu      sync.Mutex
	dates   []engine.ContactDate
	queries atomic.Int32
}

func newFakeSource() *fakeSource {
	s := &fakeSource{dates: []engine.ContactDate{
		{Contact: engine.ContactRef{ID: "1", DisplayName: "Leap Baby"}, Label: config.LabelBirthday, Date: engine.RecurringDate{Month: time.February, Day: 29}},
		{Contact: engine.ContactRef{ID: "2", DisplayName: "Jane Doe"}, Label: config.LabelBirthday, Date: engine.AnchoredDate{Year: 1990, Month: time.June, Day: 20}},
	}}
	s.granted.Store(true)
	return s
}

func (s *fakeSource) Granted(context.Context) bool { return s.granted.Load() }

func (s *fakeSource) Events(_ context.Context, start, end engine.CalendarDate) engine.EventsByDate {
	s.queries.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.Expand(start, end, s.dates, engine.ExpandConfig{})
}

func (s *fakeSource) add(cd engine.ContactDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, cd)
}

func get(t *testing.T, srv *FeedServer, target string, header ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w.Result()
}

// -----------------------------------------------------------------------------
// Handler
// -----------------------------------------------------------------------------

func TestHandler_ServingICS(t *testing.T) {
	srv := New("", newFakeSource(), today)

	resp := get(t, srv, config.RouteICS+"?start=2024-01-01&end=2024-12-31")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 2, strings.Count(string(body), "BEGIN:VEVENT"))
	assert.Contains(t, string(body), "DTSTART;VALUE=DATE:20240229")
}

func TestHandler_ServingJSON(t *testing.T) {
	srv := New("", newFakeSource(), today)

	resp := get(t, srv, config.RouteJSON+"?start=2024-06-01&end=2024-06-30")
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))

	var got map[string][]struct {
		Date    string `json:"date"`
		Title   string `json:"title"`
		Label   string `json:"label"`
		Source  string `json:"source"`
		Contact struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"contact"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	require.Len(t, got["2024-06-20"], 1)
	ev := got["2024-06-20"][0]
	assert.Equal(t, "2024-06-20", ev.Date)
	assert.Equal(t, "Jane Doe", ev.Contact.Name)
	assert.Equal(t, config.LabelBirthday, ev.Label)
	assert.Equal(t, "1990-06-20", ev.Source, "The stored year is kept for age displays")
}

func TestHandler_DefaultRange(t *testing.T) {
	srv := New("", newFakeSource(), today)

	resp := get(t, srv, config.RouteJSON)
	defer func() { _ = resp.Body.Close() }()

	var got map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got, "2023-06-20", "Default window starts last year")
	assert.Contains(t, got, "2025-06-20", "Default window ends next year")
	assert.Contains(t, got, "2024-02-29")
	assert.NotContains(t, got, "2022-06-20")
}

// TestHandler_Caching verifies that the server respects ETag headers (If-None-Match)
// and returns 304 Not Modified to save bandwidth.
func TestHandler_Caching(t *testing.T) {
	source := newFakeSource()
	srv := New("", source, today)
	const target = config.RouteICS + "?start=2024-01-01&end=2024-12-31"

	first := get(t, srv, target)
	_ = first.Body.Close()
	etag := first.Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	resp := get(t, srv, target, config.HeaderIfNoneMatch, etag)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")

	// New contact data changes the fingerprint.
	source.add(engine.ContactDate{Contact: engine.ContactRef{ID: "3", DisplayName: "Newcomer"}, Label: config.LabelOther, Date: engine.RecurringDate{Month: time.May, Day: 5}})
	resp = get(t, srv, target, config.HeaderIfNoneMatch, etag)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, etag, resp.Header.Get(config.HeaderETag))

	// Same events on another route get another tag.
	other := get(t, srv, config.RouteJSON+"?start=2024-01-01&end=2024-12-31")
	_ = other.Body.Close()
	assert.NotEqual(t, resp.Header.Get(config.HeaderETag), other.Header.Get(config.HeaderETag))
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := New("", newFakeSource(), today)

	req := httptest.NewRequest(http.MethodPost, config.RouteICS, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
}

func TestHandler_Head(t *testing.T) {
	srv := New("", newFakeSource(), today)

	req := httptest.NewRequest(http.MethodHead, config.RouteICS, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(config.HeaderETag))
	assert.Zero(t, w.Body.Len())
}

func TestHandler_BadRange(t *testing.T) {
	source := newFakeSource()
	srv := New("", source, today)

	for _, q := range []string{"?start=yesterday", "?end=2024-02-30", "?start=2024-05-01&end=2024-04-01", "?end=2022-01-01"} {
		t.Run(q, func(t *testing.T) {
			resp := get(t, srv, config.RouteICS+q)
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Zero(t, source.queries.Load(), "Invalid ranges never reach the source")
}

func TestHandler_NoAccess(t *testing.T) {
	source := newFakeSource()
	source.granted.Store(false)
	srv := New("", source, today)

	resp := get(t, srv, config.RouteICS)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, source.queries.Load())
}

func TestHandler_EmptyFeed(t *testing.T) {
	source := newFakeSource()
	srv := New("", source, today)

	resp := get(t, srv, config.RouteICS+"?start=2024-01-01&end=2024-01-31")
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.StubVCalendar, string(body))
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition runs writers and readers concurrently against the
// render cache. Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	source := newFakeSource()
	srv := New("", source, today)
	var wg sync.WaitGroup
	end := time.Now().Add(300 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; time.Now().Before(end); i++ {
			source.add(engine.ContactDate{
				Contact: engine.ContactRef{ID: string(rune('a' + i%26)), DisplayName: "Writer"},
				Label:   config.LabelOther,
				Date:    engine.RecurringDate{Month: time.Month(1 + i%12), Day: 1 + i%28},
			})
			time.Sleep(time.Millisecond)
		}
	}()

	for r := 0; r < 10; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			route := config.RouteICS
			if r%2 == 0 {
				route = config.RouteJSON
			}
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, route, nil)
				w := httptest.NewRecorder()
				srv.Handler().ServeHTTP(w, req)
				if w.Code != http.StatusOK {
					t.Errorf("Unexpected status code during race test: %d", w.Code)
				}
			}
		}(r)
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const addr = "127.0.0.1:18099"

	srv := New(addr, newFakeSource(), today)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://" + addr + config.RouteICS

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_AddrRequired(t *testing.T) {
	err := New("", newFakeSource(), nil).Start(context.Background())
	assert.EqualError(t, err, config.ErrListenRequired)
}
