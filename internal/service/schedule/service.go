package schedule

import (
	"context"
	"fmt"
	"strings"
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

// Service validates and persists weekly rules and dated exceptions, and
// resolves them into concrete open intervals.
type Service struct {
	repo store.ScheduleRepository
}

func NewService(repo store.ScheduleRepository) *Service {
	return &Service{repo: repo}
}

type RuleInput struct {
	Weekdays  []int16
	StartTime string // "HH:MM" local wall clock
	EndTime   string
}

type ExceptionInput struct {
	StartAt time.Time
	EndAt   time.Time
	Kind    domain.ExceptionKind
	Reason  string
}

// ReplaceRules swaps a listing's entire weekly rule set. Malformed rules and
// an unloadable listing timezone fail here, at save time, so the resolver
// never meets a rule it cannot interpret.
func (s *Service) ReplaceRules(ctx context.Context, providerID string, listingID uuid.UUID, rules []RuleInput) ([]domain.AvailabilityRule, error) {
	listing, err := s.ownedListing(ctx, providerID, listingID)
	if err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(listing.Timezone); err != nil {
		return nil, validationError("listing timezone is invalid")
	}

	rows := make([]domain.AvailabilityRule, 0, len(rules))
	for i, in := range rules {
		startMin, err := parseMinuteOfDay(in.StartTime)
		if err != nil {
			return nil, validationError(fmt.Sprintf("rule %d: %v", i, err))
		}
		endMin, err := parseMinuteOfDay(in.EndTime)
		if err != nil {
			return nil, validationError(fmt.Sprintf("rule %d: %v", i, err))
		}
		if startMin >= endMin {
			return nil, validationError(fmt.Sprintf("rule %d: start_time must be before end_time", i))
		}

		weekdays, err := normalizeWeekdays(in.Weekdays)
		if err != nil {
			return nil, validationError(fmt.Sprintf("rule %d: %v", i, err))
		}

		rows = append(rows, domain.AvailabilityRule{
			ListingID:   listingID,
			Weekdays:    weekdays,
			StartMinute: startMin,
			EndMinute:   endMin,
			Timezone:    listing.Timezone,
		})
	}

	return s.repo.ReplaceRules(ctx, listingID, rows)
}

func (s *Service) ListRules(ctx context.Context, providerID string, listingID uuid.UUID) ([]domain.AvailabilityRule, error) {
	if _, err := s.ownedListing(ctx, providerID, listingID); err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, listingID)
}

func (s *Service) AddException(ctx context.Context, providerID string, listingID uuid.UUID, in ExceptionInput) (domain.AvailabilityException, error) {
	if _, err := s.ownedListing(ctx, providerID, listingID); err != nil {
		return domain.AvailabilityException{}, err
	}

	start := in.StartAt.UTC()
	end := in.EndAt.UTC()
	if end.Equal(start) || end.Before(start) {
		return domain.AvailabilityException{}, validationError("end_at must be after start_at")
	}
	if in.Kind != domain.ExceptionKindBlock && in.Kind != domain.ExceptionKindOpen {
		return domain.AvailabilityException{}, validationError("kind must be block or open")
	}

	return s.repo.AddException(ctx, domain.AvailabilityException{
		ListingID: listingID,
		StartAt:   start,
		EndAt:     end,
		Kind:      in.Kind,
		Reason:    strings.TrimSpace(in.Reason),
	})
}

func (s *Service) RemoveException(ctx context.Context, providerID string, listingID, exceptionID uuid.UUID) error {
	if _, err := s.ownedListing(ctx, providerID, listingID); err != nil {
		return err
	}
	if exceptionID == uuid.Nil {
		return validationError("exception_id is required")
	}
	return s.repo.RemoveException(ctx, listingID, exceptionID)
}

// ResolveAvailability expands the listing's schedule over [from, to) into a
// sorted disjoint set of open UTC intervals. Readable by anyone; the horizon
// is clamped to domain.MaxResolveHorizon.
func (s *Service) ResolveAvailability(ctx context.Context, listingID uuid.UUID, from, to time.Time) ([]domain.Interval, error) {
	from = from.UTC()
	to = to.UTC()
	if to.Equal(from) || to.Before(from) {
		return nil, validationError("to must be after from")
	}
	if to.Sub(from) > domain.MaxResolveHorizon {
		to = from.Add(domain.MaxResolveHorizon)
	}

	if _, err := s.repo.GetListing(ctx, listingID); err != nil {
		return nil, err
	}

	rules, err := s.repo.ListRules(ctx, listingID)
	if err != nil {
		return nil, err
	}
	exceptions, err := s.repo.ListExceptions(ctx, listingID, from, to)
	if err != nil {
		return nil, err
	}

	return domain.ResolveOpenIntervals(rules, exceptions, from, to)
}

func (s *Service) ownedListing(ctx context.Context, providerID string, listingID uuid.UUID) (domain.Listing, error) {
	if providerID == "" {
		return domain.Listing{}, validationError("provider_id is required")
	}
	if listingID == uuid.Nil {
		return domain.Listing{}, validationError("listing_id is required")
	}
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	if listing.ProviderID != providerID {
		return domain.Listing{}, store.ErrOwnership
	}
	return listing, nil
}

func parseMinuteOfDay(v string) (int, error) {
	v = strings.TrimSpace(v)
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func normalizeWeekdays(weekdays []int16) ([]int16, error) {
	dedup := make(map[int16]struct{}, len(weekdays))
	out := make([]int16, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < 1 || wd > 7 {
			return nil, fmt.Errorf("invalid weekday %d", wd)
		}
		if _, ok := dedup[wd]; ok {
			continue
		}
		dedup[wd] = struct{}{}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one weekday is required")
	}

	for i := 1; i < len(out); i++ {
		key := out[i]
		j := i - 1
		for j >= 0 && out[j] > key {
			out[j+1] = out[j]
			j--
		}
		out[j+1] = key
	}
	return out, nil
}
