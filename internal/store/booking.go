package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookable/backend/internal/domain"
)

// BookingTx is the view of booking state available inside a per-listing
// transaction. The listing's bookings are serialized for the duration, so a
// capacity re-check followed by a status flip and reservation insert is
// atomic against competing accepts.
type BookingTx interface {
	GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error)
	// UpdateRequestStatus flips a request from one status to another. Returns
	// ErrConflict when the request is no longer in the expected status.
	UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, from, to domain.RequestStatus) error
	ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) (domain.Reservation, error)
	// DeleteReservationByRequest releases a request's ledger row, restoring
	// its capacity. Returns ErrNotFound when the request holds no reservation.
	DeleteReservationByRequest(ctx context.Context, requestID uuid.UUID) error
}

// BookingRepository persists booking requests and the reservation ledger.
type BookingRepository interface {
	CreateRequest(ctx context.Context, req domain.Request, windows []domain.RequestWindow) (domain.Request, []domain.RequestWindow, error)
	GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error)
	ListRequests(ctx context.Context, listingID uuid.UUID) ([]domain.Request, error)
	ListRequestWindows(ctx context.Context, requestID uuid.UUID) ([]domain.RequestWindow, error)
	// ListReservations returns reservations intersecting [windowStart, windowEnd).
	ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error)

	// InListingTransaction runs fn inside a transaction holding the listing's
	// advisory lock, serializing all booking mutation per listing.
	InListingTransaction(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error
}
