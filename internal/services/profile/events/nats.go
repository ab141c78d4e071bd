package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSPublisher broadcasts events over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS opens a NATS connection for event publishing.
func ConnectNATS(url string, clientName string) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	conn, err := nats.Connect(url, nats.Name(clientName))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish broadcasts one payload on a subject without waiting for
// subscriber receipt.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.conn == nil {
		return ErrPublisherNotConfigured
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
