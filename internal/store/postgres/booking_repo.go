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

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) CreateRequest(ctx context.Context, req domain.Request, windows []domain.RequestWindow) (domain.Request, []domain.RequestWindow, error) {
	m := req
	out := make([]domain.RequestWindow, len(windows))
	copy(out, windows)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockListing(ctx, tx, req.ListingID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return err
		}
		for i := range out {
			out[i].RequestID = m.ID
		}
		if len(out) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&out).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Request{}, nil, err
	}
	return m, out, nil
}

func (r *BookingRepo) GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	return getRequest(ctx, r.db, requestID)
}

func (r *BookingRepo) ListRequests(ctx context.Context, listingID uuid.UUID) ([]domain.Request, error) {
	var rows []domain.Request
	err := r.db.NewSelect().
		Model(&rows).
		Where("listing_id = ?", listingID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListRequestWindows(ctx context.Context, requestID uuid.UUID) ([]domain.RequestWindow, error) {
	var rows []domain.RequestWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("request_id = ?", requestID).
		OrderExpr("start_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	return listReservations(ctx, r.db, listingID, windowStart, windowEnd)
}

func (r *BookingRepo) InListingTransaction(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockListing(ctx, tx, listingID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func (t bookingTx) GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	return getRequest(ctx, t.tx, requestID)
}

func (t bookingTx) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, from, to domain.RequestStatus) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Request)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", requestID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t bookingTx) ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	return listReservations(ctx, t.tx, listingID, windowStart, windowEnd)
}

func (t bookingTx) CreateReservation(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	m := res
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Reservation{}, err
	}
	return m, nil
}

func (t bookingTx) DeleteReservationByRequest(ctx context.Context, requestID uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.Reservation)(nil)).
		Where("request_id = ?", requestID).
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

func getRequest(ctx context.Context, db bun.IDB, requestID uuid.UUID) (domain.Request, error) {
	var req domain.Request
	err := db.NewSelect().
		Model(&req).
		Where("id = ?", requestID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Request{}, store.ErrNotFound
		}
		return domain.Request{}, err
	}
	return req, nil
}

func listReservations(ctx context.Context, db bun.IDB, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := db.NewSelect().
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
