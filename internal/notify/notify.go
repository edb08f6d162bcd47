// Package notify publishes screening notifications for the delivery
// collaborator (system notifications, push, etc.).
package notify

import (
	"log/slog"

	"github.com/centralino/centralino/internal/bus"
)

// Publisher is the bus-backed notification publisher.
type Publisher struct {
	bus    publisher
	logger *slog.Logger
}

type publisher interface {
	Publish(subject string, data any) error
}

type screeningNotice struct {
	Number  string `json:"number"`
	Preview string `json:"preview"`
}

func NewPublisher(b publisher, logger *slog.Logger) *Publisher {
	return &Publisher{bus: b, logger: logger}
}

// ShowIncomingScreening hands a transcript preview for number to the
// notification collaborator.
func (p *Publisher) ShowIncomingScreening(number, preview string) error {
	err := p.bus.Publish(bus.SubjectNotifyScreen, screeningNotice{Number: number, Preview: preview})
	if err == nil {
		p.logger.Info("screening notification published", "number", number)
	}
	return err
}
