// internal/audit/store.go

// Package audit keeps a durable log of permit submissions for support and
// reconciliation. Rows are append-only.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"permit-portal/internal/common/logger"
	"permit-portal/internal/models"
)

// Entry is one recorded submission.
type Entry struct {
	ID            string
	ApplicationID string
	PaymentMethod models.PaymentMethod
	Amount        float64
	SessionID     string
	CreatedAt     time.Time
}

// Store writes and reads submission audit rows.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

const insertQuery = `
	INSERT INTO submission_audit (id, application_id, payment_method, amount, session_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Record appends a submission row.
func (s *Store) Record(ctx context.Context, applicationID string, method models.PaymentMethod, amount float64, sessionID string) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, insertQuery, id, applicationID, string(method), amount, sessionID, now)
	if err != nil {
		return fmt.Errorf("insert submission audit row: %w", err)
	}

	s.logger.Debug("submission audit row recorded", map[string]interface{}{
		"auditId":       id,
		"applicationId": applicationID,
	})
	return nil
}

const recentQuery = `
	SELECT id, application_id, payment_method, amount, session_id, created_at
	FROM submission_audit
	ORDER BY created_at DESC
	LIMIT $1`

// Recent returns the newest submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, recentQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query submission audit rows: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var method string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &method, &e.Amount, &e.SessionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission audit row: %w", err)
		}
		e.PaymentMethod = models.PaymentMethod(method)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
