package transcription

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"thoughtbox/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 10 * time.Second

// fakeAPI completes the job after doneAfter polls; a negative value never
// completes and zero fails the job on the first poll.
func fakeAPI(t *testing.T, doneAfter int32, polls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		var body submitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://files.example/memo.m4a", body.AudioURL)
		_ = json.NewEncoder(w).Encode(job{ID: "job1", Status: statusQueued})
	})
	mux.HandleFunc("GET /v2/transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		j := job{ID: r.PathValue("id"), Status: statusProcessing}
		switch {
		case doneAfter == 0:
			j.Status, j.Error = statusError, "audio is unreadable"
		case doneAfter > 0 && n >= doneAfter:
			j.Status, j.Text = statusCompleted, "buy milk"
		}
		_ = json.NewEncoder(w).Encode(j)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, clock clockwork.Clock, key string) *Client {
	return NewClient(srv.URL, key, clock, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithHTTPClient(srv.Client()),
		WithPolling(testInterval, 15),
	)
}

type result struct {
	text string
	err  error
}

func start(c *Client) <-chan result {
	out := make(chan result, 1)
	go func() {
		text, err := c.Transcribe(context.Background(), "https://files.example/memo.m4a")
		out <- result{text, err}
	}()
	return out
}

// tick waits for the poller to sleep, then wakes it n times.
func tick(clock clockwork.FakeClock, n int) {
	for i := 0; i < n; i++ {
		clock.BlockUntil(1)
		clock.Advance(testInterval)
	}
}

func TestTranscribe_PollsUntilComplete(t *testing.T) {
	var polls atomic.Int32
	srv := fakeAPI(t, 3, &polls)
	clock := clockwork.NewFakeClock()

	done := start(newTestClient(srv, clock, "secret"))
	tick(clock, 3)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "buy milk", res.text)
	assert.Equal(t, int32(3), polls.Load())
}

func TestTranscribe_TimesOutAfterBudget(t *testing.T) {
	var polls atomic.Int32
	srv := fakeAPI(t, -1, &polls)
	clock := clockwork.NewFakeClock()

	done := start(newTestClient(srv, clock, "secret"))
	tick(clock, 15)

	res := <-done
	assert.ErrorIs(t, res.err, ErrTranscriptionTimeout)
	var upstream *domain.UpstreamError
	assert.ErrorAs(t, res.err, &upstream)
	assert.Equal(t, int32(15), polls.Load())
}

func TestTranscribe_JobError(t *testing.T) {
	var polls atomic.Int32
	srv := fakeAPI(t, 0, &polls)
	clock := clockwork.NewFakeClock()

	done := start(newTestClient(srv, clock, "secret"))
	tick(clock, 1)

	res := <-done
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "audio is unreadable")
	assert.NotErrorIs(t, res.err, ErrTranscriptionTimeout)
}

func TestTranscribe_SubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv, clockwork.NewFakeClock(), "wrong")
	_, err := c.Transcribe(context.Background(), "https://files.example/memo.m4a")
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestTranscribe_Validation(t *testing.T) {
	var polls atomic.Int32
	srv := fakeAPI(t, 1, &polls)

	_, err := newTestClient(srv, clockwork.NewFakeClock(), "secret").Transcribe(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = newTestClient(srv, clockwork.NewFakeClock(), "").Transcribe(context.Background(), "https://files.example/memo.m4a")
	assert.Error(t, err)
	assert.Zero(t, polls.Load())
}

func TestTranscribe_ContextCancelled(t *testing.T) {
	var polls atomic.Int32
	srv := fakeAPI(t, -1, &polls)
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := newTestClient(srv, clock, "secret").Transcribe(ctx, "https://files.example/memo.m4a")
		done <- err
	}()
	clock.BlockUntil(1)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Zero(t, polls.Load())
}
