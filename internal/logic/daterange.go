package logic

import (
	"net/url"
	"strconv"
	"time"

	"github.com/streamingshack/race-api/internal/models"
)

// RangeConfig carries the environment-level window overrides and the
// fixed-duration rule used when only a start bound is known.
type RangeConfig struct {
	From int64 // Unix seconds, 0 = unset
	To   int64 // Unix seconds, 0 = unset
	Days int   // window length for a missing end bound
}

const dateLayout = "2006-01-02"

// ResolveRange determines the aggregation window. Priority order:
// explicit query parameters, environment overrides, then the rolling
// 12th-of-month rule. All arithmetic is UTC.
func ResolveRange(query url.Values, cfg RangeConfig, now time.Time) models.DateRange {
	if rng, ok := rangeFromQuery(query, cfg.Days); ok {
		return rng
	}
	if cfg.From > 0 {
		if cfg.To > 0 {
			return models.DateRange{From: cfg.From, To: cfg.To}
		}
		return models.DateRange{From: cfg.From, To: fixedWindowEnd(cfg.From, cfg.Days)}
	}
	return Rolling12thRange(now)
}

// rangeFromQuery reads window bounds from the request. An unparseable
// start bound rejects the whole query; an unparseable end bound is
// dropped and the fixed-duration end is derived from the start instead.
func rangeFromQuery(query url.Values, days int) (models.DateRange, bool) {
	if raw := query.Get("from"); raw != "" {
		from, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.DateRange{}, false
		}
		if rawTo := query.Get("to"); rawTo != "" {
			if to, err := strconv.ParseInt(rawTo, 10, 64); err == nil {
				return models.DateRange{From: from, To: to}, true
			}
		}
		return models.DateRange{From: from, To: fixedWindowEnd(from, days)}, true
	}

	// Legacy calendar-date parameters
	if raw := query.Get("start_at"); raw != "" {
		start, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return models.DateRange{}, false
		}
		from := start.Unix()
		if rawEnd := query.Get("end_at"); rawEnd != "" {
			if end, err := time.ParseInLocation(dateLayout, rawEnd, time.UTC); err == nil {
				return models.DateRange{From: from, To: endOfDay(end).Unix()}, true
			}
		}
		return models.DateRange{From: from, To: fixedWindowEnd(from, days)}, true
	}

	return models.DateRange{}, false
}

// fixedWindowEnd derives the end bound from a start: the start's UTC
// calendar day plus the window length, minus one millisecond. Unix-second
// truncation lands the bound on 23:59:59 of the closing day.
func fixedWindowEnd(from int64, days int) int64 {
	if days <= 0 {
		days = 28
	}
	start := time.Unix(from, 0).UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end := day.Add(time.Duration(days)*24*time.Hour - time.Millisecond)
	return end.Unix()
}

// Rolling12thRange computes the recurring monthly window anchored to the
// 12th. If now is on or past this month's 12th at 00:00 UTC the window
// runs to the 12th of next month; otherwise it started on the 12th of the
// previous month. The end bound is end-of-day UTC on the closing 12th,
// so consecutive windows share that calendar day: one ends at its
// 23:59:59 while the next already started at its midnight.
func Rolling12thRange(now time.Time) models.DateRange {
	now = now.UTC()
	anchor := time.Date(now.Year(), now.Month(), 12, 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	if !now.Before(anchor) {
		start = anchor
		end = anchor.AddDate(0, 1, 0)
	} else {
		start = anchor.AddDate(0, -1, 0)
		end = anchor
	}
	return models.DateRange{From: start.Unix(), To: endOfDay(end).Unix()}
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}
