package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ErrSlotConflict is returned when a competing accept consumed the remaining
// capacity between evaluation and the accept transaction. The request stays
// pending so the provider can offer an alternative window.
var ErrSlotConflict = errors.New("slot conflict")

type ReasonCode string

const (
	ReasonNotInOpenWindow   ReasonCode = "NOT_IN_OPEN_WINDOW"
	ReasonTooSoon           ReasonCode = "TOO_SOON"
	ReasonTooFar            ReasonCode = "TOO_FAR"
	ReasonCapacityExhausted ReasonCode = "CAPACITY_EXHAUSTED"
)

// Evaluation is the evaluator's verdict on a candidate window. Reason is set
// only when Admit is false.
type Evaluation struct {
	Admit  bool
	Reason ReasonCode
}

// AvailabilityResolver yields the open intervals for a listing over a bounded
// horizon. Satisfied by the schedule service.
type AvailabilityResolver interface {
	ResolveAvailability(ctx context.Context, listingID uuid.UUID, from, to time.Time) ([]domain.Interval, error)
}

// Service is the single decision point for whether a candidate window is
// bookable and the sole writer of the pending->accepted transition.
type Service struct {
	repo     store.BookingRepository
	schedule store.ScheduleRepository
	resolver AvailabilityResolver
	now      func() time.Time
}

func NewService(repo store.BookingRepository, schedule store.ScheduleRepository, resolver AvailabilityResolver) *Service {
	return &Service{
		repo:     repo,
		schedule: schedule,
		resolver: resolver,
		now:      time.Now,
	}
}

type WindowInput struct {
	StartAt time.Time
	EndAt   time.Time
}

type CreateRequestInput struct {
	CustomerID string
	ListingID  uuid.UUID
	ServiceID  *uuid.UUID
	Note       string
	Windows    []WindowInput
}

const maxWindowsPerRequest = 3

func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (domain.Request, []domain.RequestWindow, error) {
	if in.CustomerID == "" {
		return domain.Request{}, nil, validationError("customer_id is required")
	}
	if in.ListingID == uuid.Nil {
		return domain.Request{}, nil, validationError("listing_id is required")
	}
	if len(in.Windows) == 0 {
		return domain.Request{}, nil, validationError("at least one window is required")
	}
	if len(in.Windows) > maxWindowsPerRequest {
		return domain.Request{}, nil, validationError("at most 3 windows are allowed")
	}

	if _, err := s.schedule.GetListing(ctx, in.ListingID); err != nil {
		return domain.Request{}, nil, err
	}
	if _, err := s.serviceFor(ctx, in.ListingID, in.ServiceID); err != nil {
		return domain.Request{}, nil, err
	}

	windows := make([]domain.RequestWindow, 0, len(in.Windows))
	for _, w := range in.Windows {
		start := w.StartAt.UTC()
		end := w.EndAt.UTC()
		if end.Equal(start) || end.Before(start) {
			return domain.Request{}, nil, validationError("window end_at must be after start_at")
		}
		windows = append(windows, domain.RequestWindow{StartAt: start, EndAt: end})
	}

	req := domain.Request{
		ListingID:  in.ListingID,
		CustomerID: in.CustomerID,
		ServiceID:  in.ServiceID,
		Status:     domain.RequestStatusPending,
		Note:       in.Note,
	}
	return s.repo.CreateRequest(ctx, req, windows)
}

// EvaluateCandidate decides whether [start, end) is currently bookable on the
// listing. The candidate must sit fully inside the resolved open set, respect
// the service notice gates, and leave the capacity bound intact.
func (s *Service) EvaluateCandidate(ctx context.Context, listingID uuid.UUID, serviceID *uuid.UUID, start, end time.Time) (Evaluation, error) {
	start = start.UTC()
	end = end.UTC()
	if end.Equal(start) || end.Before(start) {
		return Evaluation{}, validationError("end must be after start")
	}

	listing, err := s.schedule.GetListing(ctx, listingID)
	if err != nil {
		return Evaluation{}, err
	}
	svc, err := s.serviceFor(ctx, listingID, serviceID)
	if err != nil {
		return Evaluation{}, err
	}

	open, err := s.resolver.ResolveAvailability(ctx, listingID, start, end)
	if err != nil {
		return Evaluation{}, err
	}
	if !domain.ContainedInUnion(open, domain.Interval{Start: start, End: end}) {
		return Evaluation{Reason: ReasonNotInOpenWindow}, nil
	}

	now := s.now().UTC()
	minNotice := 0
	maxNoticeDays := domain.DefaultMaxNoticeDays
	if svc != nil {
		minNotice = svc.MinNoticeMin
		if svc.MaxNoticeDays > 0 {
			maxNoticeDays = svc.MaxNoticeDays
		}
	}
	if start.Before(now.Add(time.Duration(minNotice) * time.Minute)) {
		return Evaluation{Reason: ReasonTooSoon}, nil
	}
	if start.After(now.Add(time.Duration(maxNoticeDays) * 24 * time.Hour)) {
		return Evaluation{Reason: ReasonTooFar}, nil
	}

	effective := domain.EffectiveInterval(start, end, svc)
	reservations, err := s.repo.ListReservations(ctx, listingID, effective.Start, effective.End)
	if err != nil {
		return Evaluation{}, err
	}
	if domain.MaxOverlap(reservationIntervals(reservations), effective)+1 > listing.Capacity {
		return Evaluation{Reason: ReasonCapacityExhausted}, nil
	}

	return Evaluation{Admit: true}, nil
}

// AcceptRequest books one of the request's candidate windows. The capacity
// re-check, the pending->accepted flip and the reservation insert run in a
// single per-listing transaction; when a competing accept already consumed
// the capacity the transaction aborts with ErrSlotConflict and the request
// stays pending. A nil windowID books the request's first window.
func (s *Service) AcceptRequest(ctx context.Context, providerID string, requestID uuid.UUID, windowID *uuid.UUID) error {
	req, listing, err := s.ownedRequest(ctx, providerID, requestID)
	if err != nil {
		return err
	}

	windows, err := s.repo.ListRequestWindows(ctx, requestID)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return validationError("request has no windows")
	}
	window := windows[0]
	if windowID != nil {
		found := false
		for _, w := range windows {
			if w.ID == *windowID {
				window = w
				found = true
				break
			}
		}
		if !found {
			return store.ErrNotFound
		}
	}

	svc, err := s.serviceFor(ctx, req.ListingID, req.ServiceID)
	if err != nil {
		return err
	}
	effective := domain.EffectiveInterval(window.StartAt, window.EndAt, svc)

	return s.repo.InListingTransaction(ctx, req.ListingID, func(ctx context.Context, tx store.BookingTx) error {
		current, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status != domain.RequestStatusPending {
			return store.ErrConflict
		}

		reservations, err := tx.ListReservations(ctx, listing.ID, effective.Start, effective.End)
		if err != nil {
			return err
		}
		if domain.MaxOverlap(reservationIntervals(reservations), effective)+1 > listing.Capacity {
			return ErrSlotConflict
		}

		if err := tx.UpdateRequestStatus(ctx, requestID, domain.RequestStatusPending, domain.RequestStatusAccepted); err != nil {
			return err
		}
		_, err = tx.CreateReservation(ctx, domain.Reservation{
			ListingID: listing.ID,
			RequestID: requestID,
			StartAt:   effective.Start,
			EndAt:     effective.End,
		})
		return err
	})
}

// DeclineRequest flips a pending request to declined. Nothing was reserved,
// so the ledger is untouched.
func (s *Service) DeclineRequest(ctx context.Context, providerID string, requestID uuid.UUID) error {
	req, _, err := s.ownedRequest(ctx, providerID, requestID)
	if err != nil {
		return err
	}
	return s.repo.InListingTransaction(ctx, req.ListingID, func(ctx context.Context, tx store.BookingTx) error {
		return tx.UpdateRequestStatus(ctx, requestID, domain.RequestStatusPending, domain.RequestStatusDeclined)
	})
}

// RequestWithWindows pairs a request with its candidate windows for provider
// inbox listings.
type RequestWithWindows struct {
	Request domain.Request
	Windows []domain.RequestWindow
}

func (s *Service) ListRequests(ctx context.Context, providerID string, listingID uuid.UUID) ([]RequestWithWindows, error) {
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}
	listing, err := s.schedule.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != providerID {
		return nil, store.ErrOwnership
	}

	reqs, err := s.repo.ListRequests(ctx, listingID)
	if err != nil {
		return nil, err
	}
	out := make([]RequestWithWindows, 0, len(reqs))
	for _, req := range reqs {
		windows, err := s.repo.ListRequestWindows(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RequestWithWindows{Request: req, Windows: windows})
	}
	return out, nil
}

func (s *Service) ownedRequest(ctx context.Context, providerID string, requestID uuid.UUID) (domain.Request, domain.Listing, error) {
	if providerID == "" {
		return domain.Request{}, domain.Listing{}, validationError("provider_id is required")
	}
	if requestID == uuid.Nil {
		return domain.Request{}, domain.Listing{}, validationError("request_id is required")
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return domain.Request{}, domain.Listing{}, err
	}
	listing, err := s.schedule.GetListing(ctx, req.ListingID)
	if err != nil {
		return domain.Request{}, domain.Listing{}, err
	}
	if listing.ProviderID != providerID {
		return domain.Request{}, domain.Listing{}, store.ErrOwnership
	}
	return req, listing, nil
}

func (s *Service) serviceFor(ctx context.Context, listingID uuid.UUID, serviceID *uuid.UUID) (*domain.Service, error) {
	if serviceID == nil {
		return nil, nil
	}
	if *serviceID == uuid.Nil {
		return nil, validationError("service_id must not be empty when set")
	}
	svc, err := s.schedule.GetService(ctx, *serviceID)
	if err != nil {
		return nil, err
	}
	if svc.ListingID != listingID {
		return nil, validationError("service does not belong to listing")
	}
	return &svc, nil
}

func reservationIntervals(rows []domain.Reservation) []domain.Interval {
	out := make([]domain.Interval, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Interval{Start: r.StartAt, End: r.EndAt})
	}
	return out
}
