package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

// Request is a customer's booking ask against a listing, carrying up to three
// candidate windows. Status moves pending -> accepted or pending -> declined,
// exactly once; both are terminal.
type Request struct {
	bun.BaseModel `bun:"table:requests"`

	ID         uuid.UUID     `bun:"id,pk,type:uuid"`
	ListingID  uuid.UUID     `bun:"listing_id,notnull,type:uuid"`
	CustomerID string        `bun:"customer_id,notnull"`
	ServiceID  *uuid.UUID    `bun:"service_id,type:uuid"`
	Status     RequestStatus `bun:"status,notnull"`
	Note       string        `bun:"note"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
	UpdatedAt  time.Time     `bun:"updated_at,notnull"`
}

func (r *Request) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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
		if r.Status == "" {
			r.Status = RequestStatusPending
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

// RequestWindow is one candidate [start, end) window on a request.
type RequestWindow struct {
	bun.BaseModel `bun:"table:request_windows"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	RequestID uuid.UUID `bun:"request_id,notnull,type:uuid"`
	StartAt   time.Time `bun:"start_at,notnull"`
	EndAt     time.Time `bun:"end_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (w *RequestWindow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if w.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			w.ID = id
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if w.UpdatedAt.IsZero() {
			w.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		w.UpdatedAt = now
	}
	return nil
}

// Reservation is the capacity ledger row written when a request is accepted.
// It holds the effective interval (window widened by service buffers) so
// overlap queries never need to re-derive buffers.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	ListingID uuid.UUID `bun:"listing_id,notnull,type:uuid"`
	RequestID uuid.UUID `bun:"request_id,notnull,type:uuid"`
	StartAt   time.Time `bun:"start_at,notnull"`
	EndAt     time.Time `bun:"end_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r *Reservation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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
