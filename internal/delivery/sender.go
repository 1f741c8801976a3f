package delivery

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/csg33k/alta-clientes/internal/domain"
	"github.com/csg33k/alta-clientes/internal/ports"
)

// Sender pushes messages through a Mailer and records each outcome.
type Sender struct {
	mailer ports.Mailer
	ledger ports.DeliveryLog // may be nil
}

func NewSender(m ports.Mailer, ledger ports.DeliveryLog) *Sender {
	return &Sender{mailer: m, ledger: ledger}
}

// Send delivers a single message. Errors are wrapped in domain.ErrTransport.
func (s *Sender) Send(ctx context.Context, m domain.Message, clientName string) error {
	start := time.Now()
	err := s.mailer.Send(ctx, m)
	if err != nil && !errors.Is(err, domain.ErrTransport) {
		err = errors.Join(domain.ErrTransport, err)
	}

	res := &domain.DeliveryResult{
		MessageID:  m.ID,
		Part:       m.Label(),
		ClientName: clientName,
		Subject:    m.Subject,
		Recipients: strings.Join(m.To, ","),
		Status:     domain.StatusSent,
	}
	if err != nil {
		res.Status = domain.StatusFailed
		res.Detail = err.Error()
		slog.Error("delivery failed", "client", clientName, "part", m.Label(), "message_id", m.ID, "err", err)
	} else {
		slog.Info("delivery sent", "client", clientName, "part", m.Label(), "message_id", m.ID,
			"attachments", len(m.Attachments), "took", time.Since(start).Round(time.Millisecond))
	}
	if s.ledger != nil {
		if lerr := s.ledger.RecordDelivery(context.WithoutCancel(ctx), res); lerr != nil {
			slog.Warn("could not record delivery", "message_id", m.ID, "err", lerr)
		}
	}
	return err
}

// Deliver sends every message independently; one failing does not stop the
// others. When any fails the result is a *domain.PartialDeliveryError that
// names the failed parts.
func (s *Sender) Deliver(ctx context.Context, msgs []domain.Message, clientName string) error {
	var pe domain.PartialDeliveryError
	for _, m := range msgs {
		if err := s.Send(ctx, m, clientName); err != nil {
			pe.Failed = append(pe.Failed, domain.PartFailure{Part: m.Label(), Err: err})
			continue
		}
		pe.Sent = append(pe.Sent, m.Label())
	}
	if len(pe.Failed) > 0 {
		return &pe
	}
	return nil
}
