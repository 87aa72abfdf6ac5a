package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/masapledge/pledge"
)

const deliverySubject = "pledge.contact.send"

// DeliveryRequest is the message handed to the external sender workers. The
// engine never talks to an SMS/email provider directly.
type DeliveryRequest struct {
	Channel     string    `json:"channel"` // email or sms
	Contact     string    `json:"contact"`
	Message     string    `json:"message"`
	RequestedAt time.Time `json:"requestedAt"`
}

// NatsContactChannel dispatches delivery requests over NATS.
type NatsContactChannel struct {
	conn *nats.Conn
}

func NewNatsContactChannel(url string) (*NatsContactChannel, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsContactChannel{conn: conn}, nil
}

func (g *NatsContactChannel) Send(ctx context.Context, contact string, message string) error {
	channel := "sms"
	if pledge.IsEmail(contact) {
		channel = "email"
	}

	req := DeliveryRequest{
		Channel:     channel,
		Contact:     contact,
		Message:     message,
		RequestedAt: time.Now(),
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery request: %w", err)
	}

	if err := g.conn.Publish(deliverySubject, data); err != nil {
		return fmt.Errorf("failed to publish delivery request: %w", err)
	}

	return nil
}

func (g *NatsContactChannel) Close() {
	if g.conn != nil {
		g.conn.Close()
	}
}

// LogContactChannel writes the message to the application log instead of
// delivering it. Development and test-mode use only.
type LogContactChannel struct{}

func NewLogContactChannel() *LogContactChannel {
	return &LogContactChannel{}
}

func (g *LogContactChannel) Send(ctx context.Context, contact string, message string) error {
	slog.Info("contact message (log channel)", "contact", contact, "message", message)
	return nil
}
