package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (r *Repository) CreateTopup(ctx context.Context, req domain.TopupRequest) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO topup_requests (id, user_id, amount, note, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.UserID, req.Amount, req.Note, req.Status, req.CreatedAt)
	return err
}

func (r *Repository) GetTopup(ctx context.Context, id uuid.UUID) (domain.TopupRequest, error) {
	var req domain.TopupRequest
	var reason *string
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, user_id, amount, note, status, resolved_by, resolved_at, reject_reason, created_at
		FROM topup_requests WHERE id = $1
	`, id).Scan(&req.ID, &req.UserID, &req.Amount, &req.Note, &req.Status, &req.ResolvedBy, &req.ResolvedAt, &reason, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TopupRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TopupRequest{}, err
	}
	if reason != nil {
		req.RejectReason = *reason
	}
	return req, nil
}

// ResolveTopup claims the pending -> approved/rejected transition.
// False means the request was already resolved.
func (r *Repository) ResolveTopup(ctx context.Context, id uuid.UUID, to domain.TopupStatus, adminID uuid.UUID, reason string, at time.Time) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE topup_requests
		SET status = $2, resolved_by = $3, resolved_at = $4, reject_reason = NULLIF($5, '')
		WHERE id = $1 AND status = 'pending'
	`, id, to, adminID, at, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ListTopups(ctx context.Context, status domain.TopupStatus, limit int) ([]domain.TopupRequest, error) {
	query := `
		SELECT id, user_id, amount, note, status, resolved_by, resolved_at, reject_reason, created_at
		FROM topup_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.q(ctx).Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TopupRequest
	for rows.Next() {
		var req domain.TopupRequest
		var reason *string
		if err := rows.Scan(&req.ID, &req.UserID, &req.Amount, &req.Note, &req.Status, &req.ResolvedBy, &req.ResolvedAt, &reason, &req.CreatedAt); err != nil {
			return nil, err
		}
		if reason != nil {
			req.RejectReason = *reason
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
