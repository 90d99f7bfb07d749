package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Listing is a provider's published profile. Availability rules, exceptions,
// services and booking requests all hang off a listing.
type Listing struct {
	bun.BaseModel `bun:"table:listings"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID string    `bun:"provider_id,notnull"`
	Title      string    `bun:"title,notnull"`
	Timezone   string    `bun:"timezone,notnull"`
	Capacity   int       `bun:"capacity,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func (l *Listing) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if l.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			l.ID = id
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if l.UpdatedAt.IsZero() {
			l.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		l.UpdatedAt = now
	}
	return nil
}

// Service is a bookable offering on a listing. Buffers widen the reserved
// interval around a booking; notice bounds gate how soon and how far out a
// booking may start.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	ListingID       uuid.UUID `bun:"listing_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DurationMin     int       `bun:"duration_min,notnull"`
	BufferBeforeMin int       `bun:"buffer_before_min,notnull"`
	BufferAfterMin  int       `bun:"buffer_after_min,notnull"`
	MinNoticeMin    int       `bun:"min_notice_min,notnull"`
	MaxNoticeDays   int       `bun:"max_notice_days,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// DefaultMaxNoticeDays applies when a request carries no service.
const DefaultMaxNoticeDays = 365

// EffectiveInterval returns the interval a booking actually reserves: the
// requested window widened by the service buffers. A nil service means no
// buffers.
func EffectiveInterval(start, end time.Time, svc *Service) Interval {
	before, after := 0, 0
	if svc != nil {
		before = svc.BufferBeforeMin
		after = svc.BufferAfterMin
	}
	return Interval{
		Start: start.UTC().Add(-time.Duration(before) * time.Minute),
		End:   end.UTC().Add(time.Duration(after) * time.Minute),
	}
}
