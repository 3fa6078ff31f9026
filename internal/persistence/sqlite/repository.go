// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/ordwiz/internal/domain/wizard/model"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/ports"
)

const repositorySchemaVersion = 1

const repositorySchema = `
CREATE TABLE IF NOT EXISTS clients (
	client_id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	phone TEXT NOT NULL UNIQUE,
	email TEXT,
	created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	client_id TEXT NOT NULL,
	branch_id TEXT NOT NULL,
	receipt_number TEXT NOT NULL,
	total_amount INTEGER NOT NULL,
	prepayment INTEGER NOT NULL,
	expected_completion TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id);

CREATE TABLE IF NOT EXISTS order_items (
	order_id TEXT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	line_id TEXT NOT NULL,
	catalog_item_id TEXT NOT NULL,
	name TEXT NOT NULL,
	quantity TEXT NOT NULL,
	final_total INTEGER NOT NULL,
	PRIMARY KEY (order_id, position)
);
`

// ErrDuplicateClient is returned when a client with the same phone already exists.
var ErrDuplicateClient = errors.New("client with this phone already exists")

// Repository persists clients and completed orders.
// It implements ports.OrderPersistence and ports.ClientDirectory.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository migrates the schema and returns a repository over db.
func NewRepository(ctx context.Context, db *sql.DB) (*Repository, error) {
	if err := Migrate(ctx, db, repositorySchemaVersion, repositorySchema); err != nil {
		return nil, fmt.Errorf("order repository: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

// SaveOrder stores the draft and returns its order id.
// Saving a second draft for the same session returns the first order's id.
func (r *Repository) SaveOrder(ctx context.Context, draft ports.DraftOrder) (string, error) {
	if draft.SessionID == "" {
		return "", errors.New("save order: session id is required")
	}
	if len(draft.Items) == 0 {
		return "", errors.New("save order: draft has no items")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT order_id FROM orders WHERE session_id = ?", draft.SessionID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("save order: lookup session: %w", err)
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("save order: encode: %w", err)
	}

	orderID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, session_id, client_id, branch_id, receipt_number,
			total_amount, prepayment, expected_completion, payload_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderID, draft.SessionID, draft.Client.ID, draft.BranchID, draft.ReceiptNumber,
		int64(draft.Totals.TotalAmount), int64(draft.Payment.Prepayment),
		draft.ExpectedCompletion.UTC().Format(time.DateOnly), string(payload), r.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("save order: insert order: %w", err)
	}

	for i, item := range draft.Items {
		bi := item.Record.BasicInfo
		if bi == nil {
			return "", fmt.Errorf("save order: item[%d] has no basic info", i)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, line_id, catalog_item_id, name, quantity, final_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, i, item.ID, bi.ItemID, bi.ItemName, bi.Quantity.String(), int64(item.Breakdown.FinalTotalPrice),
		)
		if err != nil {
			return "", fmt.Errorf("save order: insert item[%d]: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return orderID, nil
}

// GetOrder loads a persisted order.
func (r *Repository) GetOrder(ctx context.Context, orderID string) (ports.Order, error) {
	var (
		payload   string
		createdMs int64
	)
	err := r.db.QueryRowContext(ctx, "SELECT payload_json, created_at_ms FROM orders WHERE order_id = ?", orderID).
		Scan(&payload, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Order{}, fmt.Errorf("order %s: %w", orderID, ports.ErrNotFound)
	}
	if err != nil {
		return ports.Order{}, err
	}

	var draft ports.DraftOrder
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return ports.Order{}, fmt.Errorf("order %s: decode: %w", orderID, err)
	}
	return ports.Order{ID: orderID, CreatedAt: time.UnixMilli(createdMs).UTC(), DraftOrder: draft}, nil
}

// CountOrderItems returns the number of item rows stored for an order.
func (r *Repository) CountOrderItems(ctx context.Context, orderID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM order_items WHERE order_id = ?", orderID).Scan(&n)
	return n, err
}

// GetClient returns the client with id.
func (r *Repository) GetClient(ctx context.Context, id string) (model.Client, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT client_id, first_name, last_name, phone, COALESCE(email, '') FROM clients WHERE client_id = ?", id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	return c, err
}

// CreateClient registers a new client and assigns its id.
func (r *Repository) CreateClient(ctx context.Context, c model.Client) (model.Client, error) {
	c.ID = uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (client_id, first_name, last_name, phone, email, created_at_ms)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(phone) DO NOTHING`,
		c.ID, c.FirstName, c.LastName, c.Phone, c.Email, r.now().UnixMilli(),
	)
	if err != nil {
		return model.Client{}, fmt.Errorf("create client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Client{}, ErrDuplicateClient
	}
	return c, nil
}

// SearchClients matches query against names and phone numbers.
func (r *Repository) SearchClients(ctx context.Context, query string, limit int) ([]model.Client, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT client_id, first_name, last_name, phone, COALESCE(email, '')
		FROM clients
		WHERE lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR phone LIKE ?
		ORDER BY last_name, first_name
		LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Phone, &c.Email)
	return c, err
}
