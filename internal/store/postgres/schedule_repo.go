package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// lockListing takes the per-listing advisory lock for the current
// transaction. Rule replacement and booking mutation both go through it, so
// schedule writes and accepts are serialized per listing.
func lockListing(ctx context.Context, tx bun.Tx, listingID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", listingID.String()).Exec(ctx)
	return err
}

func (r *ScheduleRepo) GetListing(ctx context.Context, listingID uuid.UUID) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.NewSelect().
		Model(&l).
		Where("id = ?", listingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, store.ErrNotFound
		}
		return domain.Listing{}, err
	}
	return l, nil
}

func (r *ScheduleRepo) GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *ScheduleRepo) ReplaceRules(ctx context.Context, listingID uuid.UUID, rules []domain.AvailabilityRule) ([]domain.AvailabilityRule, error) {
	out := make([]domain.AvailabilityRule, len(rules))
	copy(out, rules)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockListing(ctx, tx, listingID); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*domain.AvailabilityRule)(nil)).
			Where("listing_id = ?", listingID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&out).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ScheduleRepo) ListRules(ctx context.Context, listingID uuid.UUID) ([]domain.AvailabilityRule, error) {
	var rows []domain.AvailabilityRule
	err := r.db.NewSelect().
		Model(&rows).
		Where("listing_id = ?", listingID).
		OrderExpr("start_minute ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) AddException(ctx context.Context, ex domain.AvailabilityException) (domain.AvailabilityException, error) {
	m := ex
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.AvailabilityException{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) RemoveException(ctx context.Context, listingID, exceptionID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.AvailabilityException)(nil)).
		Where("listing_id = ?", listingID).
		Where("id = ?", exceptionID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) ListExceptions(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityException, error) {
	var rows []domain.AvailabilityException
	err := r.db.NewSelect().
		Model(&rows).
		Where("listing_id = ?", listingID).
		Where("start_at < ?", windowEnd).
		Where("end_at > ?", windowStart).
		OrderExpr("start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
