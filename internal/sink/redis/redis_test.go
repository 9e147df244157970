package redis

import (
	"testing"

	"github.com/mjolnir42/udplogd/internal/event"
)

// TestPickRoundRobinsAcrossEndpoints covers testable property 5: pushes
// cycle evenly across every configured endpoint in order.
func TestPickRoundRobinsAcrossEndpoints(t *testing.T) {
	p := &Pool{eps: []*endpoint{
		{addr: `a`},
		{addr: `b`},
		{addr: `c`},
	}}

	var seen []string
	for i := 0; i < 6; i++ {
		seen = append(seen, p.pick().addr)
	}

	want := []string{`a`, `b`, `c`, `a`, `b`, `c`}
	for i, addr := range want {
		if seen[i] != addr {
			t.Fatalf(`pick sequence = %v, want %v`, seen, want)
		}
	}
}

// TestSendSkipsDeadEndpoints covers the no-push-to-disconnected-endpoint
// half of property 5: an endpoint never dialed is never live, so send
// must fail over rather than silently succeed against it.
func TestSendSkipsDeadEndpoints(t *testing.T) {
	p := &Pool{key: `logs`, eps: []*endpoint{
		{addr: `dead-a`},
		{addr: `dead-b`},
	}}

	err := p.send(event.New(`test`))
	if err != ErrNoClient {
		t.Fatalf(`send() over all-dead pool = %v, want ErrNoClient`, err)
	}
}

func TestPushAgainstDeadEndpointReturnsNoClient(t *testing.T) {
	e := &endpoint{addr: `dead`}
	if err := e.push(`logs`, []byte(`{}`)); err != ErrNoClient {
		t.Fatalf(`push on dead endpoint = %v, want ErrNoClient`, err)
	}
}
