package domain

import (
	"errors"
	"time"
)

// MaxResolveHorizon caps how far ahead availability is ever expanded. Callers
// asking beyond the cap get a clamped horizon, not an error.
const MaxResolveHorizon = 366 * 24 * time.Hour

// ResolveOpenIntervals expands a listing's weekly rules over [from, to) and
// applies its dated exceptions, producing the maximal sorted disjoint set of
// concrete open UTC intervals.
//
// Rule expansion constructs local wall-clock times in the rule's zone, so the
// open hours stay fixed in local time across DST transitions even though the
// UTC duration of a transition day differs. Open exceptions are unioned with
// the expanded base; block exceptions are subtracted last, so a block is never
// reopened by an overlapping open exception.
//
// The output depends only on the rule/exception state, never on input order.
func ResolveOpenIntervals(rules []AvailabilityRule, exceptions []AvailabilityException, from, to time.Time) ([]Interval, error) {
	from = from.UTC()
	to = to.UTC()
	if !to.After(from) {
		return nil, errors.New("horizon end must be after start")
	}
	if to.Sub(from) > MaxResolveHorizon {
		to = from.Add(MaxResolveHorizon)
	}
	horizon := Interval{Start: from, End: to}

	locs := make(map[string]*time.Location)
	base := make([]Interval, 0, 32)

	for _, rule := range rules {
		loc, ok := locs[rule.Timezone]
		if !ok {
			var err error
			loc, err = time.LoadLocation(rule.Timezone)
			if err != nil {
				return nil, errors.New("invalid timezone")
			}
			locs[rule.Timezone] = loc
		}
		if rule.StartMinute < 0 || rule.EndMinute > 24*60 || rule.StartMinute >= rule.EndMinute {
			return nil, errors.New("invalid rule time range")
		}

		match := make(map[int16]struct{}, len(rule.Weekdays))
		for _, wd := range rule.Weekdays {
			if wd < 1 || wd > 7 {
				return nil, errors.New("invalid weekday")
			}
			match[wd] = struct{}{}
		}
		if len(match) == 0 {
			return nil, errors.New("rule has no weekdays")
		}

		// Walk local calendar dates. Start one day early: the horizon start
		// can fall inside an interval that began on the previous local date.
		fromLocal := from.In(loc)
		toLocal := to.In(loc)
		day := time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
		last := time.Date(toLocal.Year(), toLocal.Month(), toLocal.Day(), 0, 0, 0, 0, loc)

		for !day.After(last) {
			if _, ok := match[isoWeekday(day.Weekday())]; ok {
				start := time.Date(day.Year(), day.Month(), day.Day(), rule.StartMinute/60, rule.StartMinute%60, 0, 0, loc)
				end := time.Date(day.Year(), day.Month(), day.Day(), rule.EndMinute/60, rule.EndMinute%60, 0, 0, loc)
				if iv, ok := (Interval{Start: start.UTC(), End: end.UTC()}).Clamp(horizon); ok {
					base = append(base, iv)
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	}

	var blocks []Interval
	for _, ex := range exceptions {
		iv, ok := (Interval{Start: ex.StartAt.UTC(), End: ex.EndAt.UTC()}).Clamp(horizon)
		if !ok {
			continue
		}
		switch ex.Kind {
		case ExceptionKindOpen:
			base = append(base, iv)
		case ExceptionKindBlock:
			blocks = append(blocks, iv)
		default:
			return nil, errors.New("unknown exception kind")
		}
	}

	return SubtractIntervals(CoalesceIntervals(base), blocks), nil
}

// isoWeekday maps time.Weekday to the 1=Monday .. 7=Sunday encoding used by
// availability rules.
func isoWeekday(d time.Weekday) int16 {
	if d == time.Sunday {
		return 7
	}
	return int16(d)
}
