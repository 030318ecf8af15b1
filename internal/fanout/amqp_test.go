package fanout

import (
	"context"
	"sync"
	"testing"

	"fieldtrack/internal/logging"
)

func TestAMQPPublishWithoutConnection(t *testing.T) {
	// No broker behind it; reconnecting is pre-set so Publish does not
	// spawn dial loops during the test.
	p := &AMQPPublisher{log: logging.Nop(), reconnecting: true}

	if err := p.Publish(context.Background(), Update{UserID: "u1"}); err == nil {
		t.Fatal("Publish without a connection did not error")
	}

	// Concurrent publishers observe the connection state through the
	// same lock that reconnect writes under.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Publish(context.Background(), Update{UserID: "u1"}); err == nil {
				t.Error("Publish without a connection did not error")
			}
		}()
	}
	wg.Wait()
}

func TestAMQPCloseWithoutConnection(t *testing.T) {
	p := &AMQPPublisher{log: logging.Nop()}
	if err := p.Close(); err != nil {
		t.Errorf("Close() on an unconnected publisher = %v, want nil", err)
	}
}
