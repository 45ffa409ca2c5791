// README: Request repository backed by SQLite for single-site deployments.
package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medride/internal/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// stampColumns maps a target status to the timestamp column it sets.
var stampColumns = map[Status]string{
	StatusAccepted:   "accepted_at",
	StatusInProgress: "started_at",
	StatusCompleted:  "completed_at",
	StatusRejected:   "rejected_at",
	StatusCancelled:  "cancelled_at",
}

func (s *SQLiteStore) Put(ctx context.Context, r *Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transport_requests (
			id, created_at, requester_id, requester_role, patient_name, contact_phone,
			pickup, destination, distance_km, urgency, payment_method,
			estimated_cost, currency, status, status_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), r.CreatedAt.UTC(), nullableID(r.RequesterID), string(r.RequesterRole),
		r.PatientName, r.ContactPhone, r.Pickup, r.Destination, r.DistanceKm,
		string(r.Urgency), string(r.PaymentMethod), r.EstimatedCost.Amount, r.EstimatedCost.Currency,
		string(r.Status), r.StatusVersion,
	)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id types.ID) (*Request, error) {
	r, err := scanSQLiteRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Request, error) {
	return s.query(ctx, selectRequest+` ORDER BY created_at DESC, rowid DESC`)
}

func (s *SQLiteStore) ListStale(ctx context.Context, cutoff time.Time) ([]*Request, error) {
	return s.query(ctx, selectRequest+` WHERE status = 'pending' AND created_at < ? ORDER BY created_at ASC`, cutoff.UTC())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*Request, 0)
	for rows.Next() {
		r, err := scanSQLiteRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, t Transition) (bool, error) {
	col, ok := stampColumns[t.To]
	if !ok {
		return false, fmt.Errorf("no timestamp column for status %q", t.To)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE transport_requests
		SET status = ?,
		    status_version = status_version + 1,
		    rider_id = COALESCE(?, rider_id),
		    cancel_reason = COALESCE(?, cancel_reason),
		    `+col+` = ?
		WHERE id = ? AND status = ? AND status_version = ?`,
		string(t.To), toStringPtr(riderForUpdate(t)), t.Reason, t.At.UTC(),
		string(t.ID), string(t.From), t.Version,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}

	if h := t.History; h != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO request_history (
				id, request_id, rider_id, requester_id, requester_role, patient_name,
				pickup, destination, distance_km, urgency, payment_method,
				cost, currency, created_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(h.ID), string(h.RequestID), string(h.RiderID), nullableID(h.RequesterID),
			string(h.RequesterRole), h.PatientName, h.Pickup, h.Destination, h.DistanceKm,
			string(h.Urgency), string(h.PaymentMethod), h.Cost.Amount, h.Cost.Currency,
			h.CreatedAt.UTC(), h.CompletedAt.UTC(),
		); err != nil {
			return false, fmt.Errorf("insert history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context) ([]HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, rider_id, COALESCE(requester_id, ''), requester_role, patient_name,
		       pickup, destination, distance_km, urgency, payment_method,
		       cost, currency, created_at, completed_at
		FROM request_history
		ORDER BY completed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]HistoryItem, 0)
	for rows.Next() {
		var h HistoryItem
		if err := rows.Scan(
			&h.ID, &h.RequestID, &h.RiderID, &h.RequesterID, &h.RequesterRole, &h.PatientName,
			&h.Pickup, &h.Destination, &h.DistanceKm, &h.Urgency, &h.PaymentMethod,
			&h.Cost.Amount, &h.Cost.Currency, &h.CreatedAt, &h.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanSQLiteRequest(row rowScanner) (*Request, error) {
	var r Request
	var requesterID, riderID, cancelReason sql.NullString
	var accepted, started, completed, rejected, cancelled sql.NullTime
	err := row.Scan(
		&r.ID, &r.CreatedAt, &requesterID, &r.RequesterRole, &r.PatientName, &r.ContactPhone,
		&r.Pickup, &r.Destination, &r.DistanceKm, &r.Urgency, &r.PaymentMethod,
		&r.EstimatedCost.Amount, &r.EstimatedCost.Currency, &r.Status, &r.StatusVersion, &riderID,
		&accepted, &started, &completed, &rejected, &cancelled, &cancelReason,
	)
	if err != nil {
		return nil, err
	}
	r.RequesterID = types.ID(requesterID.String)
	if riderID.Valid {
		d := types.ID(riderID.String)
		r.RiderID = &d
	}
	if cancelReason.Valid {
		r.CancelReason = &cancelReason.String
	}
	r.AcceptedAt = nullTime(accepted)
	r.StartedAt = nullTime(started)
	r.CompletedAt = nullTime(completed)
	r.RejectedAt = nullTime(rejected)
	r.CancelledAt = nullTime(cancelled)
	return &r, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
