package probe

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// DefaultReadyMarker is printed by an EPICS IOC once iocInit has finished
// ("iocRun: All initialization complete" on current releases).
const DefaultReadyMarker = "All initialization complete"

// OutputWatcher is an io.Writer that notes when a marker appears in a
// target's output. Writes never fail, so it can sit in an io.MultiWriter
// next to the capture file.
type OutputWatcher struct {
	marker []byte

	mu   sync.Mutex
	tail []byte
	seen chan struct{}
	once sync.Once
}

// NewOutputWatcher watches for marker.
func NewOutputWatcher(marker string) *OutputWatcher {
	return &OutputWatcher{
		marker: []byte(marker),
		seen:   make(chan struct{}),
	}
}

func (w *OutputWatcher) Write(p []byte) (int, error) {
	if w.Seen() {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Keep enough of the previous write to match a marker split across writes.
	buf := append(append([]byte(nil), w.tail...), p...)
	if bytes.Contains(buf, w.marker) {
		w.once.Do(func() { close(w.seen) })
		w.tail = nil
		return len(p), nil
	}
	if keep := len(w.marker) - 1; len(buf) > keep {
		buf = buf[len(buf)-keep:]
	}
	w.tail = buf
	return len(p), nil
}

// Seen reports whether the marker has been written.
func (w *OutputWatcher) Seen() bool {
	select {
	case <-w.seen:
		return true
	default:
		return false
	}
}

// Done is closed when the marker is first written.
func (w *OutputWatcher) Done() <-chan struct{} {
	return w.seen
}

// MarkerProbe is ready once Watcher has seen its marker and Next answers.
// A published port can accept connections before the server behind it is
// listening, so the connection alone does not prove readiness.
type MarkerProbe struct {
	Watcher *OutputWatcher
	Next    Probe
}

func (p MarkerProbe) IsReady(ctx context.Context, id string, timeout time.Duration) bool {
	if !p.Watcher.Seen() {
		return false
	}
	return p.Next.IsReady(ctx, id, timeout)
}
