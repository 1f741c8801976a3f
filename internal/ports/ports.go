package ports

import (
	"context"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// SessionStore keeps page-one form values between the two form steps.
type SessionStore interface {
	// Save stores r under sessionID, replacing anything saved before.
	Save(ctx context.Context, sessionID string, r domain.Record) error
	// Load returns the saved record, or an empty record when there is none
	// or it has expired.
	Load(ctx context.Context, sessionID string) (domain.Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// SpreadsheetFiller produces the two documents of a submission.
type SpreadsheetFiller interface {
	// FillClient writes the client record into the client template and, when
	// signature is non-nil, embeds it as an image.
	FillClient(ctx context.Context, r domain.Record, signature []byte) (domain.Document, error)
	// FillPlants writes one row per entry into the plants template.
	FillPlants(ctx context.Context, clientName string, entries []domain.PlantEntry) (domain.Document, error)
}

// Mailer sends one composed message through an external channel.
type Mailer interface {
	Send(ctx context.Context, m domain.Message) error
}

// Dispatcher runs deliveries in the background. Dispatch returns once the
// message has been handed off, not when it has been sent.
type Dispatcher interface {
	Dispatch(ctx context.Context, m domain.Message, clientName string) error
}

// DeliveryLog records the outcome of every message sent.
type DeliveryLog interface {
	RecordDelivery(ctx context.Context, d *domain.DeliveryResult) error
	RecentDeliveries(ctx context.Context, limit int) ([]domain.DeliveryResult, error)
}
