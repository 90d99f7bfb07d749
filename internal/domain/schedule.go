package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AvailabilityRule is a recurring weekly open pattern on a listing: a set of
// weekdays (1=Monday .. 7=Sunday) and a local wall-clock range expressed in
// minutes from midnight. The timezone is snapshotted from the listing when the
// rule set is saved so resolution never depends on a later timezone edit.
type AvailabilityRule struct {
	bun.BaseModel `bun:"table:availability_rules"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	ListingID   uuid.UUID `bun:"listing_id,notnull,type:uuid"`
	Weekdays    []int16   `bun:"weekdays,array,notnull"`
	StartMinute int       `bun:"start_minute,notnull"`
	EndMinute   int       `bun:"end_minute,notnull"`
	Timezone    string    `bun:"timezone,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (r *AvailabilityRule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

type ExceptionKind string

const (
	// ExceptionKindBlock removes time from the open set. Blocks always win
	// over opens on overlap.
	ExceptionKindBlock ExceptionKind = "block"
	// ExceptionKindOpen adds a one-off concrete open interval.
	ExceptionKindOpen ExceptionKind = "open"
)

// AvailabilityException is a dated override on a listing: a concrete UTC
// interval that either blocks or opens time.
type AvailabilityException struct {
	bun.BaseModel `bun:"table:availability_exceptions"`

	ID        uuid.UUID     `bun:"id,pk,type:uuid"`
	ListingID uuid.UUID     `bun:"listing_id,notnull,type:uuid"`
	StartAt   time.Time     `bun:"start_at,notnull"`
	EndAt     time.Time     `bun:"end_at,notnull"`
	Kind      ExceptionKind `bun:"kind,notnull"`
	Reason    string        `bun:"reason"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
	UpdatedAt time.Time     `bun:"updated_at,notnull"`
}

func (e *AvailabilityException) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}
