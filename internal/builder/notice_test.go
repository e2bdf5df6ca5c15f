package builder

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

// waitText polls until the notice shows want; expiry callbacks run on their own goroutine.
func waitText(t *testing.T, n *Notice, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for n.Text() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected notice %q, got %q", want, n.Text())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNoticeExpires(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	n := NewNotice(clk, NoticeDuration)

	n.Show("saved")
	if n.Text() != "saved" {
		t.Fatalf("expected notice to be visible, got %q", n.Text())
	}

	clk.Advance(NoticeDuration - time.Millisecond)
	if n.Text() != "saved" {
		t.Errorf("notice expired early")
	}
	clk.Advance(time.Millisecond)
	waitText(t, n, "")
}

func TestNoticeSupersededRestartsTimer(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	n := NewNotice(clk, NoticeDuration)

	n.Show("first")
	clk.Advance(3 * time.Second)
	n.Show("second")

	// The first timer would have fired here.
	clk.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	if n.Text() != "second" {
		t.Fatalf("expected second notice to survive, got %q", n.Text())
	}

	clk.Advance(NoticeDuration)
	waitText(t, n, "")
}

func TestNoticeClose(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	n := NewNotice(clk, NoticeDuration)

	n.Show("bye")
	n.Close()
	if n.Text() != "" {
		t.Errorf("expected close to clear the notice, got %q", n.Text())
	}
	clk.Advance(NoticeDuration)
	time.Sleep(10 * time.Millisecond)
	if n.Text() != "" {
		t.Errorf("expected notice to stay cleared, got %q", n.Text())
	}
}
