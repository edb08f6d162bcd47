// Package bus wraps the NATS connection shared by the screening core and its
// external collaborators (telephony, contacts directory, speech engines,
// notification delivery).
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used across the service.
const (
	SubjectScreenRequest  = "centralino.call.screen"
	SubjectContactsLookup = "centralino.contacts.lookup"
	SubjectSpeechSay      = "centralino.speech.say"
	SubjectSpeechListen   = "centralino.speech.listen"
	SubjectAudioFocus     = "centralino.audio.focus"
	SubjectNotifyScreen   = "centralino.notify.screening"
	SubjectEventAppended  = "centralino.events.appended"
)

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Respond registers a request/reply handler. The handler's response is sent
// back on the request's reply subject; handler errors are logged and the
// requester times out rather than receiving a malformed reply.
func (c *Client) Respond(subject string, handler func(data []byte) (any, error)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		resp, err := handler(msg.Data)
		if err != nil {
			c.logger.Error("request handler failed", "subject", subject, "error", err)
			return
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			c.logger.Error("marshal reply failed", "subject", subject, "error", err)
			return
		}
		if err := msg.Respond(payload); err != nil {
			c.logger.Error("reply failed", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("responder registered", "subject", subject)
	return nil
}

// Request sends a request and unmarshals the reply into out.
func (c *Client) Request(ctx context.Context, subject string, req any, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("unmarshal reply from %s: %w", subject, err)
	}
	return nil
}

// SubscribeChan delivers raw messages from subject on the returned channel
// until the returned cancel func is called. Used for streaming collaborator
// output (speech hypotheses).
func (c *Client) SubscribeChan(subject string) (<-chan []byte, func(), error) {
	out := make(chan []byte, 16)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case out <- msg.Data:
		default:
			// Slow consumer: drop rather than block the NATS callback.
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	cancel := func() {
		_ = sub.Unsubscribe()
	}
	return out, cancel, nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
