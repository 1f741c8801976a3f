package domain

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks a submission rejected before document generation.
	ErrValidation = errors.New("validation failed")
	// ErrTemplate marks a missing or unreadable spreadsheet template or sheet.
	ErrTemplate = errors.New("template error")
	// ErrTransport marks a failed delivery: network, status or credentials.
	ErrTransport = errors.New("transport error")
	// ErrConfig marks a server-side configuration problem.
	ErrConfig = errors.New("configuration error")
)

// PartFailure is the outcome of one message that could not be delivered.
type PartFailure struct {
	Part string
	Err  error
}

// PartialDeliveryError reports which messages of a delivery failed. Sent
// holds the labels of the ones that went out.
type PartialDeliveryError struct {
	Sent   []string
	Failed []PartFailure
}

func (e *PartialDeliveryError) Error() string {
	var b strings.Builder
	for i, f := range e.Failed {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString("envío ")
		b.WriteString(f.Part)
		b.WriteString(" fallido: ")
		b.WriteString(f.Err.Error())
	}
	if len(e.Sent) > 0 {
		b.WriteString(" (enviados: ")
		b.WriteString(strings.Join(e.Sent, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *PartialDeliveryError) Unwrap() error { return ErrTransport }
