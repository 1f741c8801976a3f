package domain

import (
	"strconv"
	"strings"
	"time"
)

// XLSXMIMEType is the content type of every generated document.
const XLSXMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultClientName is used in subjects and filenames when the form left
// "nombre" empty.
const DefaultClientName = "cliente"

// Record is a flat submission: form field name to value.
type Record map[string]string

// Merge returns a new record holding base overlaid with over. Values in over
// win on key collision; neither input is modified.
func Merge(base, over Record) Record {
	out := make(Record, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string { return r[key] }

// ClientName returns the trimmed "nombre" field or DefaultClientName.
func (r Record) ClientName() string {
	if n := strings.TrimSpace(r["nombre"]); n != "" {
		return n
	}
	return DefaultClientName
}

// DocumentKind identifies which template a document was generated from.
type DocumentKind string

const (
	ClientDocument DocumentKind = "client"
	PlantsDocument DocumentKind = "plants"
)

// Document is a generated spreadsheet held in memory.
type Document struct {
	Kind     DocumentKind
	Filename string
	MIMEType string
	Content  []byte
}

// Size returns the raw byte length of the document.
func (d Document) Size() int { return len(d.Content) }

// Message is one outgoing email. Part and Parts number the message within a
// split delivery ("1/2"); an unsplit delivery is 1/1.
type Message struct {
	ID          string     `json:"id"`
	Part        int        `json:"part"`
	Parts       int        `json:"parts"`
	To          []string   `json:"to"`
	Subject     string     `json:"subject"`
	Text        string     `json:"text"`
	HTML        string     `json:"html"`
	Attachments []Document `json:"attachments"`
}

// Label returns the "part/parts" label used in logs and error messages.
func (m Message) Label() string {
	return strconv.Itoa(m.Part) + "/" + strconv.Itoa(m.Parts)
}

type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// DeliveryResult is one row of the delivery ledger.
type DeliveryResult struct {
	ID         int64
	MessageID  string
	Part       string // e.g. "1/2"
	ClientName string
	Subject    string
	Recipients string
	Status     DeliveryStatus
	Detail     string
	CreatedAt  time.Time
}
