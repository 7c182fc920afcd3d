package sse

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec, "s1")
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent("status", []byte(`{"status":"idle"}`)))
	require.NoError(t, w.WriteKeepAlive())
	assert.Error(t, w.WriteEvent("status", []byte("a\nb")))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: status\ndata: {\"status\":\"idle\"}\n\n: keepalive\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

type countingWriter struct {
	n    atomic.Int32
	fail bool
}

func (c *countingWriter) WriteKeepAlive() error {
	c.n.Add(1)
	if c.fail {
		return errors.New("broken pipe")
	}
	return nil
}

func TestTickerKeepAlive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	k := NewTickerKeepAlive(clock, 10*time.Second)
	cw := &countingWriter{}
	stopped := k.Start(cw, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)
	assert.Eventually(t, func() bool { return cw.n.Load() == 1 }, time.Second, time.Millisecond)

	k.Stop()
	k.Stop()
	<-stopped
}

func TestTickerKeepAlive_StopsOnWriteError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	k := NewTickerKeepAlive(clock, time.Second)
	stopped := k.Start(&countingWriter{fail: true}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop after a failed write")
	}
}
