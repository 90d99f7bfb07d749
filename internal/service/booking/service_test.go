package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookable/backend/internal/domain"
	"bookable/backend/internal/store"
)

type fakeScheduleRepo struct {
	listings map[uuid.UUID]domain.Listing
	services map[uuid.UUID]domain.Service
}

func (f *fakeScheduleRepo) GetListing(ctx context.Context, listingID uuid.UUID) (domain.Listing, error) {
	l, ok := f.listings[listingID]
	if !ok {
		return domain.Listing{}, store.ErrNotFound
	}
	return l, nil
}

func (f *fakeScheduleRepo) GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	s, ok := f.services[serviceID]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeScheduleRepo) ReplaceRules(ctx context.Context, listingID uuid.UUID, rules []domain.AvailabilityRule) ([]domain.AvailabilityRule, error) {
	panic("not used")
}

func (f *fakeScheduleRepo) ListRules(ctx context.Context, listingID uuid.UUID) ([]domain.AvailabilityRule, error) {
	panic("not used")
}

func (f *fakeScheduleRepo) AddException(ctx context.Context, ex domain.AvailabilityException) (domain.AvailabilityException, error) {
	panic("not used")
}

func (f *fakeScheduleRepo) RemoveException(ctx context.Context, listingID, exceptionID uuid.UUID) error {
	panic("not used")
}

func (f *fakeScheduleRepo) ListExceptions(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityException, error) {
	panic("not used")
}

// memBookingRepo keeps booking state in memory. Its transaction view operates
// on the same state; accept aborts before mutating, so conflict tests need no
// rollback support.
type memBookingRepo struct {
	requests     map[uuid.UUID]domain.Request
	windows      map[uuid.UUID][]domain.RequestWindow
	reservations []domain.Reservation
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		requests: make(map[uuid.UUID]domain.Request),
		windows:  make(map[uuid.UUID][]domain.RequestWindow),
	}
}

func (m *memBookingRepo) newID() uuid.UUID {
	id, _ := uuid.NewV7()
	return id
}

func (m *memBookingRepo) CreateRequest(ctx context.Context, req domain.Request, windows []domain.RequestWindow) (domain.Request, []domain.RequestWindow, error) {
	req.ID = m.newID()
	out := make([]domain.RequestWindow, len(windows))
	copy(out, windows)
	for i := range out {
		out[i].ID = m.newID()
		out[i].RequestID = req.ID
	}
	m.requests[req.ID] = req
	m.windows[req.ID] = out
	return req, out, nil
}

func (m *memBookingRepo) GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return domain.Request{}, store.ErrNotFound
	}
	return req, nil
}

func (m *memBookingRepo) ListRequests(ctx context.Context, listingID uuid.UUID) ([]domain.Request, error) {
	var out []domain.Request
	for _, req := range m.requests {
		if req.ListingID == listingID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memBookingRepo) ListRequestWindows(ctx context.Context, requestID uuid.UUID) ([]domain.RequestWindow, error) {
	return m.windows[requestID], nil
}

func (m *memBookingRepo) ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.ListingID == listingID && r.StartAt.Before(windowEnd) && r.EndAt.After(windowStart) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memBookingRepo) InListingTransaction(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return fn(ctx, (*memBookingTx)(m))
}

type memBookingTx memBookingRepo

func (t *memBookingTx) GetRequest(ctx context.Context, requestID uuid.UUID) (domain.Request, error) {
	return (*memBookingRepo)(t).GetRequest(ctx, requestID)
}

func (t *memBookingTx) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, from, to domain.RequestStatus) error {
	req, ok := t.requests[requestID]
	if !ok || req.Status != from {
		return store.ErrConflict
	}
	req.Status = to
	t.requests[requestID] = req
	return nil
}

func (t *memBookingTx) ListReservations(ctx context.Context, listingID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Reservation, error) {
	return (*memBookingRepo)(t).ListReservations(ctx, listingID, windowStart, windowEnd)
}

func (t *memBookingTx) CreateReservation(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	res.ID = (*memBookingRepo)(t).newID()
	t.reservations = append(t.reservations, res)
	return res, nil
}

func (t *memBookingTx) DeleteReservationByRequest(ctx context.Context, requestID uuid.UUID) error {
	for i, r := range t.reservations {
		if r.RequestID == requestID {
			t.reservations = append(t.reservations[:i], t.reservations[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeResolver struct {
	open []domain.Interval
	err  error
}

func (f *fakeResolver) ResolveAvailability(ctx context.Context, listingID uuid.UUID, from, to time.Time) ([]domain.Interval, error) {
	return f.open, f.err
}

var (
	listingID = uuid.MustParse("00000000-0000-0000-0000-000000000201")
	provider  = "provider-1"
	customer  = "customer-1"
)

func fixture(capacity int) (*Service, *memBookingRepo, *fakeScheduleRepo, *fakeResolver) {
	scheduleRepo := &fakeScheduleRepo{
		listings: map[uuid.UUID]domain.Listing{
			listingID: {ID: listingID, ProviderID: provider, Timezone: "Europe/Dublin", Capacity: capacity},
		},
		services: map[uuid.UUID]domain.Service{},
	}
	repo := newMemBookingRepo()
	resolver := &fakeResolver{}
	svc := NewService(repo, scheduleRepo, resolver)
	return svc, repo, scheduleRepo, resolver
}

func mondaySlot() (time.Time, time.Time) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func pendingRequest(t *testing.T, svc *Service, start, end time.Time) domain.Request {
	t.Helper()
	req, _, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID: customer,
		ListingID:  listingID,
		Windows:    []WindowInput{{StartAt: start, EndAt: end}},
	})
	if err != nil {
		t.Fatalf("CreateRequest error: %v", err)
	}
	return req
}

func TestAcceptRequest_SecondAcceptOnSameSlotConflicts(t *testing.T) {
	svc, repo, _, _ := fixture(1)
	start, end := mondaySlot()

	first := pendingRequest(t, svc, start, end)
	second := pendingRequest(t, svc, start, end)

	if err := svc.AcceptRequest(context.Background(), provider, first.ID, nil); err != nil {
		t.Fatalf("first accept error: %v", err)
	}
	got, _ := repo.GetRequest(context.Background(), first.ID)
	if got.Status != domain.RequestStatusAccepted {
		t.Fatalf("first status = %s, want accepted", got.Status)
	}
	if len(repo.reservations) != 1 {
		t.Fatalf("reservations = %d, want 1", len(repo.reservations))
	}

	err := svc.AcceptRequest(context.Background(), provider, second.ID, nil)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second accept error = %v, want ErrSlotConflict", err)
	}
	got, _ = repo.GetRequest(context.Background(), second.ID)
	if got.Status != domain.RequestStatusPending {
		t.Fatalf("second status = %s, want still pending", got.Status)
	}
	if len(repo.reservations) != 1 {
		t.Fatalf("reservations = %d after conflict, want 1", len(repo.reservations))
	}
}

func TestAcceptRequest_CapacityTwoAdmitsBoth(t *testing.T) {
	svc, repo, _, _ := fixture(2)
	start, end := mondaySlot()

	first := pendingRequest(t, svc, start, end)
	second := pendingRequest(t, svc, start, end)

	if err := svc.AcceptRequest(context.Background(), provider, first.ID, nil); err != nil {
		t.Fatalf("first accept error: %v", err)
	}
	if err := svc.AcceptRequest(context.Background(), provider, second.ID, nil); err != nil {
		t.Fatalf("second accept error: %v", err)
	}
	if len(repo.reservations) != 2 {
		t.Fatalf("reservations = %d, want 2", len(repo.reservations))
	}
}

func TestAcceptRequest_AppliesServiceBuffers(t *testing.T) {
	svc, repo, scheduleRepo, _ := fixture(1)
	serviceID := uuid.MustParse("00000000-0000-0000-0000-000000000301")
	scheduleRepo.services[serviceID] = domain.Service{
		ID:              serviceID,
		ListingID:       listingID,
		Name:            "deep clean",
		DurationMin:     60,
		BufferBeforeMin: 15,
		BufferAfterMin:  30,
	}

	start, end := mondaySlot()
	req, _, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID: customer,
		ListingID:  listingID,
		ServiceID:  &serviceID,
		Windows:    []WindowInput{{StartAt: start, EndAt: end}},
	})
	if err != nil {
		t.Fatalf("CreateRequest error: %v", err)
	}

	if err := svc.AcceptRequest(context.Background(), provider, req.ID, nil); err != nil {
		t.Fatalf("AcceptRequest error: %v", err)
	}

	res := repo.reservations[0]
	if !res.StartAt.Equal(start.Add(-15 * time.Minute)) {
		t.Fatalf("reservation start = %v, want buffered %v", res.StartAt, start.Add(-15*time.Minute))
	}
	if !res.EndAt.Equal(end.Add(30 * time.Minute)) {
		t.Fatalf("reservation end = %v, want buffered %v", res.EndAt, end.Add(30*time.Minute))
	}

	// A back-to-back request overlaps only through the buffer and must still
	// conflict.
	next := pendingRequest(t, svc, end, end.Add(time.Hour))
	err = svc.AcceptRequest(context.Background(), provider, next.ID, nil)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("buffered overlap accept error = %v, want ErrSlotConflict", err)
	}
}

func TestAcceptRequest_OwnershipAndStatusGuards(t *testing.T) {
	svc, _, _, _ := fixture(1)
	start, end := mondaySlot()
	req := pendingRequest(t, svc, start, end)

	if err := svc.AcceptRequest(context.Background(), "intruder", req.ID, nil); !errors.Is(err, store.ErrOwnership) {
		t.Fatalf("error = %v, want store.ErrOwnership", err)
	}

	if err := svc.AcceptRequest(context.Background(), provider, req.ID, nil); err != nil {
		t.Fatalf("accept error: %v", err)
	}
	if err := svc.AcceptRequest(context.Background(), provider, req.ID, nil); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("re-accept error = %v, want store.ErrConflict", err)
	}
}

func TestAcceptRequest_UnknownWindowID(t *testing.T) {
	svc, _, _, _ := fixture(1)
	start, end := mondaySlot()
	req := pendingRequest(t, svc, start, end)

	bogus := uuid.MustParse("00000000-0000-0000-0000-000000000888")
	if err := svc.AcceptRequest(context.Background(), provider, req.ID, &bogus); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want store.ErrNotFound", err)
	}
}

func TestAcceptRequest_PicksRequestedWindow(t *testing.T) {
	svc, repo, _, _ := fixture(1)
	start, end := mondaySlot()
	altStart := start.Add(24 * time.Hour)

	req, windows, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		CustomerID: customer,
		ListingID:  listingID,
		Windows: []WindowInput{
			{StartAt: start, EndAt: end},
			{StartAt: altStart, EndAt: altStart.Add(time.Hour)},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest error: %v", err)
	}

	if err := svc.AcceptRequest(context.Background(), provider, req.ID, &windows[1].ID); err != nil {
		t.Fatalf("AcceptRequest error: %v", err)
	}
	if !repo.reservations[0].StartAt.Equal(altStart) {
		t.Fatalf("reserved start = %v, want second window %v", repo.reservations[0].StartAt, altStart)
	}
}

func TestDeclineRequest_TerminalTransition(t *testing.T) {
	svc, repo, _, _ := fixture(1)
	start, end := mondaySlot()
	req := pendingRequest(t, svc, start, end)

	if err := svc.DeclineRequest(context.Background(), provider, req.ID); err != nil {
		t.Fatalf("DeclineRequest error: %v", err)
	}
	got, _ := repo.GetRequest(context.Background(), req.ID)
	if got.Status != domain.RequestStatusDeclined {
		t.Fatalf("status = %s, want declined", got.Status)
	}
	if len(repo.reservations) != 0 {
		t.Fatalf("reservations = %d, want 0 after decline", len(repo.reservations))
	}

	if err := svc.DeclineRequest(context.Background(), provider, req.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("re-decline error = %v, want store.ErrConflict", err)
	}
}

func TestEvaluateCandidate_NotInOpenWindow(t *testing.T) {
	svc, _, _, resolver := fixture(1)
	start, _ := mondaySlot()

	// Open until 10:30 only; candidate runs to 11:00.
	resolver.open = []domain.Interval{{Start: start, End: start.Add(90 * time.Minute)}}
	svc.now = func() time.Time { return start.Add(-48 * time.Hour) }

	eval, err := svc.EvaluateCandidate(context.Background(), listingID, nil, start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("EvaluateCandidate error: %v", err)
	}
	if eval.Admit || eval.Reason != ReasonNotInOpenWindow {
		t.Fatalf("eval = %+v, want reject NOT_IN_OPEN_WINDOW", eval)
	}
}

func TestEvaluateCandidate_TooSoon(t *testing.T) {
	svc, _, scheduleRepo, resolver := fixture(1)
	start, end := mondaySlot()
	resolver.open = []domain.Interval{{Start: start.Add(-time.Hour), End: end.Add(time.Hour)}}

	serviceID := uuid.MustParse("00000000-0000-0000-0000-000000000302")
	scheduleRepo.services[serviceID] = domain.Service{
		ID:           serviceID,
		ListingID:    listingID,
		Name:         "standard",
		DurationMin:  60,
		MinNoticeMin: 1440,
	}

	// Candidate starts two hours from "now"; a full day of notice is required.
	svc.now = func() time.Time { return start.Add(-2 * time.Hour) }

	eval, err := svc.EvaluateCandidate(context.Background(), listingID, &serviceID, start, end)
	if err != nil {
		t.Fatalf("EvaluateCandidate error: %v", err)
	}
	if eval.Admit || eval.Reason != ReasonTooSoon {
		t.Fatalf("eval = %+v, want reject TOO_SOON", eval)
	}
}

func TestEvaluateCandidate_TooFar(t *testing.T) {
	svc, _, scheduleRepo, resolver := fixture(1)
	start, end := mondaySlot()
	resolver.open = []domain.Interval{{Start: start.Add(-time.Hour), End: end.Add(time.Hour)}}

	serviceID := uuid.MustParse("00000000-0000-0000-0000-000000000303")
	scheduleRepo.services[serviceID] = domain.Service{
		ID:            serviceID,
		ListingID:     listingID,
		Name:          "standard",
		DurationMin:   60,
		MaxNoticeDays: 14,
	}

	svc.now = func() time.Time { return start.AddDate(0, 0, -30) }

	eval, err := svc.EvaluateCandidate(context.Background(), listingID, &serviceID, start, end)
	if err != nil {
		t.Fatalf("EvaluateCandidate error: %v", err)
	}
	if eval.Admit || eval.Reason != ReasonTooFar {
		t.Fatalf("eval = %+v, want reject TOO_FAR", eval)
	}
}

func TestEvaluateCandidate_CapacityExhausted(t *testing.T) {
	svc, _, _, resolver := fixture(1)
	start, end := mondaySlot()
	resolver.open = []domain.Interval{{Start: start.Add(-time.Hour), End: end.Add(time.Hour)}}
	svc.now = func() time.Time { return start.Add(-48 * time.Hour) }

	req := pendingRequest(t, svc, start, end)
	if err := svc.AcceptRequest(context.Background(), provider, req.ID, nil); err != nil {
		t.Fatalf("accept error: %v", err)
	}

	eval, err := svc.EvaluateCandidate(context.Background(), listingID, nil, start.Add(30*time.Minute), end.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("EvaluateCandidate error: %v", err)
	}
	if eval.Admit || eval.Reason != ReasonCapacityExhausted {
		t.Fatalf("eval = %+v, want reject CAPACITY_EXHAUSTED", eval)
	}
}

func TestEvaluateCandidate_Admits(t *testing.T) {
	svc, _, _, resolver := fixture(1)
	start, end := mondaySlot()
	resolver.open = []domain.Interval{{Start: start, End: end}}
	svc.now = func() time.Time { return start.Add(-48 * time.Hour) }

	eval, err := svc.EvaluateCandidate(context.Background(), listingID, nil, start, end)
	if err != nil {
		t.Fatalf("EvaluateCandidate error: %v", err)
	}
	if !eval.Admit {
		t.Fatalf("eval = %+v, want admit", eval)
	}
	if eval.Reason != "" {
		t.Fatalf("reason = %q, want empty on admit", eval.Reason)
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	svc, _, scheduleRepo, _ := fixture(1)
	start, end := mondaySlot()

	otherListing := uuid.MustParse("00000000-0000-0000-0000-000000000209")
	foreignService := uuid.MustParse("00000000-0000-0000-0000-000000000304")
	scheduleRepo.services[foreignService] = domain.Service{ID: foreignService, ListingID: otherListing, Name: "other", DurationMin: 60}

	cases := []struct {
		name string
		in   CreateRequestInput
	}{
		{"no windows", CreateRequestInput{CustomerID: customer, ListingID: listingID}},
		{"too many windows", CreateRequestInput{CustomerID: customer, ListingID: listingID, Windows: []WindowInput{
			{StartAt: start, EndAt: end},
			{StartAt: start.AddDate(0, 0, 1), EndAt: end.AddDate(0, 0, 1)},
			{StartAt: start.AddDate(0, 0, 2), EndAt: end.AddDate(0, 0, 2)},
			{StartAt: start.AddDate(0, 0, 3), EndAt: end.AddDate(0, 0, 3)},
		}}},
		{"inverted window", CreateRequestInput{CustomerID: customer, ListingID: listingID, Windows: []WindowInput{{StartAt: end, EndAt: start}}}},
		{"missing customer", CreateRequestInput{ListingID: listingID, Windows: []WindowInput{{StartAt: start, EndAt: end}}}},
		{"foreign service", CreateRequestInput{CustomerID: customer, ListingID: listingID, ServiceID: &foreignService, Windows: []WindowInput{{StartAt: start, EndAt: end}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.CreateRequest(context.Background(), tc.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v (%T), want *ValidationError", err, err)
			}
		})
	}
}

func TestListRequests_RequiresOwnership(t *testing.T) {
	svc, _, _, _ := fixture(1)
	start, end := mondaySlot()
	pendingRequest(t, svc, start, end)

	if _, err := svc.ListRequests(context.Background(), "intruder", listingID); !errors.Is(err, store.ErrOwnership) {
		t.Fatalf("error = %v, want store.ErrOwnership", err)
	}

	rows, err := svc.ListRequests(context.Background(), provider, listingID)
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(rows) != 1 || len(rows[0].Windows) != 1 {
		t.Fatalf("rows = %+v, want 1 request with 1 window", rows)
	}
}
