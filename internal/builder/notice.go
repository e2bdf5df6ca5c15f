package builder

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// NoticeDuration is how long a success notice stays visible.
const NoticeDuration = 3500 * time.Millisecond

// Notice is a transient success message. Showing a new message replaces the
// current one and restarts the expiry timer.
type Notice struct {
	clock clock.Clock
	ttl   time.Duration

	mu    sync.Mutex
	text  string
	gen   uint64
	timer clock.Timer
}

// NewNotice returns a notice that expires after ttl on clk.
func NewNotice(clk clock.Clock, ttl time.Duration) *Notice {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Notice{clock: clk, ttl: ttl}
}

// Show displays text until it expires or is superseded.
func (n *Notice) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.text = text
	n.timer = n.clock.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		// A superseded timer that fired before Stop must not clear the newer text.
		if n.gen == gen {
			n.text = ""
			n.timer = nil
		}
	})
}

// Text returns the visible message, or "" when none is shown.
func (n *Notice) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Close clears the message and stops any pending timer.
func (n *Notice) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.text = ""
}
