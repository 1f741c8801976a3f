// Package intake runs the final step of a client registration: it turns the
// merged form record into the two spreadsheets and hands them to delivery.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/csg33k/alta-clientes/internal/adapters/xlsx"
	"github.com/csg33k/alta-clientes/internal/delivery"
	"github.com/csg33k/alta-clientes/internal/domain"
	"github.com/csg33k/alta-clientes/internal/ports"
)

// Form fields read by the service besides the cell layout.
const (
	SignatureField  = "firma_cliente"
	CommercialField = "correo_comercial"
)

// Deps wires a Service.
type Deps struct {
	Filler   ports.SpreadsheetFiller
	Composer *delivery.Composer
	// Sender is nil when no mail transport is configured; MailErr then says
	// why and every Finalize fails with domain.ErrConfig.
	Sender  *delivery.Sender
	MailErr error
	// Dispatcher runs deliveries in the background. Nil, or ForceSync,
	// means Finalize waits for the send.
	Dispatcher ports.Dispatcher
	ForceSync  bool
}

type Service struct {
	d Deps
}

func New(d Deps) *Service {
	if d.Sender == nil && d.MailErr == nil {
		d.MailErr = errors.New("no mail transport")
	}
	return &Service{d: d}
}

// Outcome describes a finalized submission.
type Outcome struct {
	ClientName string
	Plants     []domain.PlantEntry
	Recipients []string
	Messages   []domain.Message
	// Queued is true when delivery was handed to the dispatcher and may
	// still be in flight.
	Queued bool
}

// Finalize validates the record, fills both templates, composes the messages
// and delivers or queues them. The checks run in order: no plants is
// domain.ErrValidation and no mail transport is domain.ErrConfig, both before
// any document is generated. A synchronous delivery failure returns the
// Outcome together with a *domain.PartialDeliveryError.
func (s *Service) Finalize(ctx context.Context, rec domain.Record) (*Outcome, error) {
	plants := domain.ExtractPlants(rec, domain.MaxPlantSlots)
	if len(plants) == 0 {
		return nil, fmt.Errorf("%w: no plant has a name", domain.ErrValidation)
	}
	if s.d.Sender == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, s.d.MailErr)
	}

	name := rec.ClientName()
	client, plantsDoc, err := s.fill(ctx, rec, name, plants)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		ClientName: name,
		Plants:     plants,
		Recipients: s.d.Composer.Recipients(rec.Get(CommercialField)),
	}
	out.Messages, err = s.d.Composer.Compose(client, plantsDoc, out.Recipients, name)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	slog.Info("submission ready", "client", name, "plants", len(plants),
		"messages", len(out.Messages), "recipients", len(out.Recipients))

	// Sends are detached from the request; each transport bounds a send with
	// its own timeout.
	sendCtx := context.WithoutCancel(ctx)
	if s.d.ForceSync || s.d.Dispatcher == nil {
		return out, s.d.Sender.Deliver(sendCtx, out.Messages, name)
	}
	out.Queued = true
	return out, s.dispatch(sendCtx, out.Messages, name)
}

// fill generates both documents concurrently; either failure cancels both.
func (s *Service) fill(ctx context.Context, rec domain.Record, name string, plants []domain.PlantEntry) (client, plantsDoc domain.Document, err error) {
	signature := xlsx.DecodeSignature(rec.Get(SignatureField))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		client, err = s.d.Filler.FillClient(gctx, rec, signature)
		return err
	})
	g.Go(func() error {
		var err error
		plantsDoc, err = s.d.Filler.FillPlants(gctx, name, plants)
		return err
	})
	if err = g.Wait(); err != nil {
		return domain.Document{}, domain.Document{}, err
	}
	return client, plantsDoc, nil
}

// dispatch queues every message. A message the dispatcher refuses is sent
// inline so it is not lost. ctx is already detached from the request.
func (s *Service) dispatch(ctx context.Context, msgs []domain.Message, name string) error {
	var pe domain.PartialDeliveryError
	for _, m := range msgs {
		err := s.d.Dispatcher.Dispatch(ctx, m, name)
		if err != nil {
			slog.Warn("dispatch failed, sending inline", "client", name, "part", m.Label(), "err", err)
			err = s.d.Sender.Send(ctx, m, name)
		}
		if err != nil {
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
