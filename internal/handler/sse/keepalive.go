package sse

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// KeepAliveWriter is the part of Writer the keep-alive loop needs.
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// TickerKeepAlive sends keep-alive pings at a fixed interval until stopped
// or until a write fails.
type TickerKeepAlive struct {
	clock    clockwork.Clock
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewTickerKeepAlive creates a keep-alive that pings every interval.
func NewTickerKeepAlive(clock clockwork.Clock, interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		clock:    clock,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the ping loop. The returned channel closes when the loop ends,
// which after a failed write means the client is gone.
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	ticker := k.clock.NewTicker(k.interval)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Debug("keep-alive write failed, stopping", "error", err)
					return
				}
			case <-k.done:
				return
			}
		}
	}()

	return stopped
}

// Stop ends the loop. Safe to call more than once.
func (k *TickerKeepAlive) Stop() {
	k.once.Do(func() { close(k.done) })
}
