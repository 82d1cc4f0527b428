// Package sqlite provides a SQLite-backed implementation of
// shipping.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jcmexdev/eshop/internal/shipping"
)

// One row per shipment. order_id is UNIQUE so an order can never get a
// second shipment, even across processes sharing the file.
const schema = `
CREATE TABLE IF NOT EXISTS shipments (
    shipping_id     TEXT    PRIMARY KEY,
    order_id        TEXT    NOT NULL UNIQUE,
    -- JSON array of product identifiers in cart order.
    product_ids     TEXT    NOT NULL DEFAULT '[]',
    shipping_type   TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    due_date        TEXT    NOT NULL,
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status);
`

const timeLayout = "2006-01-02T15:04:05.999999999Z"

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/eshop.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer; the read-then-update in UpdateStatus relies on it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Create(ctx context.Context, s *shipping.Shipment) error {
	const q = `
		INSERT INTO shipments
			(shipping_id, order_id, product_ids, shipping_type, status, due_date, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	products := s.ProductIDs
	if products == nil {
		products = []string{}
	}
	productJSON, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("sqlite: encode product ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, q,
		s.ShippingID,
		s.OrderID,
		string(productJSON),
		s.ShippingType,
		string(s.Status),
		formatTime(s.DueDate),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if isConstraint(err) {
		return fmt.Errorf("%w: %s", shipping.ErrShipmentExists, s.OrderID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert shipment %q: %w", s.ShippingID, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, shippingID string) (*shipping.Shipment, error) {
	const q = `
		SELECT shipping_id, order_id, product_ids, shipping_type, status,
		       due_date, created_at, updated_at
		FROM   shipments
		WHERE  shipping_id = ?`

	var (
		s                             shipping.Shipment
		productJSON, status           string
		dueDate, createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, q, shippingID).Scan(
		&s.ShippingID,
		&s.OrderID,
		&productJSON,
		&s.ShippingType,
		&status,
		&dueDate,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shipping.ErrShipmentNotFound, shippingID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get shipment %q: %w", shippingID, err)
	}

	if err := json.Unmarshal([]byte(productJSON), &s.ProductIDs); err != nil {
		return nil, fmt.Errorf("sqlite: decode product ids of %q: %w", shippingID, err)
	}
	if s.Status, err = shipping.ParseStatus(status); err != nil {
		return nil, err
	}
	if s.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatus moves the shipment to status only if that is a forward move
// from what is stored. The UPDATE is conditioned on the status that was read,
// so a concurrent writer makes it affect zero rows instead of going backwards.
func (r *Repository) UpdateStatus(ctx context.Context, shippingID string, status shipping.Status) error {
	current, err := r.Get(ctx, shippingID)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", shipping.ErrInvalidTransition, current.Status, status)
	}

	const q = `
		UPDATE shipments
		SET    status = ?, updated_at = ?
		WHERE  shipping_id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, q,
		string(status), formatTime(r.now()), shippingID, string(current.Status))
	if err != nil {
		return fmt.Errorf("sqlite: update shipment %q: %w", shippingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update shipment %q: %w", shippingID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s changed concurrently", shipping.ErrInvalidTransition, shippingID)
	}
	return nil
}

// Delete removes a shipment that has not started processing.
func (r *Repository) Delete(ctx context.Context, shippingID string) error {
	const q = `DELETE FROM shipments WHERE shipping_id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, q, shippingID, string(shipping.StatusCreated))
	if err != nil {
		return fmt.Errorf("sqlite: delete shipment %q: %w", shippingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete shipment %q: %w", shippingID, err)
	}
	if n > 0 {
		return nil
	}
	current, err := r.Get(ctx, shippingID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot delete %s shipment %s", shipping.ErrInvalidTransition, current.Status, shippingID)
}

func isConstraint(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	// Primary result code; the low byte of an extended code.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
