package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csg33k/alta-clientes/internal/domain"
)

//go:embed schema.sql
var schema string

// DefaultSessionTTL is how long page-one values survive without a finalize.
const DefaultSessionTTL = 2 * time.Hour

type Repository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New opens the SQLite database at dsn and applies the schema.
func New(dsn string, sessionTTL time.Duration) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; background deliveries and requests share the file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Repository{db: db, ttl: sessionTTL, now: time.Now}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// ── Form sessions ─────────────────────────────────────────────────────────────

// Save satisfies ports.SessionStore. Expired rows are purged on the way.
func (r *Repository) Save(ctx context.Context, sessionID string, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	now := r.now()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM form_sessions WHERE expires_at <= ?`, now.Unix()); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO form_sessions (id, data, expires_at) VALUES (?,?,?)
		ON CONFLICT(id) DO UPDATE SET data=excluded.data, expires_at=excluded.expires_at`,
		sessionID, string(data), now.Add(r.ttl).Unix(),
	)
	return err
}

// Load satisfies ports.SessionStore.
func (r *Repository) Load(ctx context.Context, sessionID string) (domain.Record, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM form_sessions WHERE id=? AND expires_at > ?`,
		sessionID, r.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	rec := domain.Record{}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return rec, nil
}

// Delete satisfies ports.SessionStore.
func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM form_sessions WHERE id=?`, sessionID)
	return err
}

// ── Delivery ledger ───────────────────────────────────────────────────────────

// RecordDelivery satisfies ports.DeliveryLog.
func (r *Repository) RecordDelivery(ctx context.Context, d *domain.DeliveryResult) error {
	d.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			message_id, part, client_name, subject, recipients, status, detail, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		d.MessageID, d.Part, d.ClientName, d.Subject, d.Recipients,
		string(d.Status), d.Detail, d.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	d.ID = id
	return nil
}

// RecentDeliveries satisfies ports.DeliveryLog, newest first.
func (r *Repository) RecentDeliveries(ctx context.Context, limit int) ([]domain.DeliveryResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, part, client_name, subject, recipients, status, detail, created_at
		FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.DeliveryResult
	for rows.Next() {
		var d domain.DeliveryResult
		var status string
		if err := rows.Scan(
			&d.ID, &d.MessageID, &d.Part, &d.ClientName, &d.Subject,
			&d.Recipients, &status, &d.Detail, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.Status = domain.DeliveryStatus(status)
		list = append(list, d)
	}
	return list, rows.Err()
}
