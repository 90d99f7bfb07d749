package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookable/backend/internal/domain"
)

// ScheduleRepository persists the raw schedule inputs for a listing: weekly
// rules and dated exceptions. It performs no resolution.
type ScheduleRepository interface {
	GetListing(ctx context.Context, listingID uuid.UUID) (domain.Listing, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error)

	// ReplaceRules swaps the full rule set for a listing in one transaction.
	// A concurrent reader sees either the old set or the new set, never a mix.
	ReplaceRules(ctx context.Context, listingID uuid.UUID, rules []domain.AvailabilityRule) ([]domain.AvailabilityRule, error)
	ListRules(ctx context.Context, listingID uuid.UUID) ([]domain.AvailabilityRule, error)

	AddException(ctx context.Context, ex domain.AvailabilityException) (domain.AvailabilityException, error)
	RemoveException(ctx context.Context, listingID, exceptionID uuid.UUID) error
	// ListExceptions returns exceptions intersecting [windowStart, windowEnd).
	ListExceptions(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityException, error)
}
