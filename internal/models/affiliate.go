package models

import (
	"encoding/json"
	"strconv"
)

// The upstream affiliate API has no fixed contract: different provider
// integrations rename fields and nest the array under different top-level
// keys. Candidate keys are probed in order, first present wins.
var (
	affiliateIDKeys       = []string{"id", "user_id", "uid"}
	affiliateUsernameKeys = []string{"user_name", "username", "name"}
	affiliateWageredKeys  = []string{"total_wager_usd", "wagered_amount", "wagered", "totalWagered", "wager"}

	// Known wrapper keys for the entry array, probed in order when the
	// payload is not a bare array.
	affiliatePayloadKeys = []string{"affiliates", "leaderboard", "data"}
)

// ParseAffiliatePayload extracts the raw entry array from an upstream
// response body. It accepts a bare JSON array or an object wrapping the
// array under one of the known keys, and returns nil on total mismatch.
// It never returns an error; a malformed body is an empty leaderboard.
func ParseAffiliatePayload(body []byte) []json.RawMessage {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err == nil {
		return records
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil
	}
	for _, key := range affiliatePayloadKeys {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &records); err == nil {
			return records
		}
	}
	return nil
}

// NormalizeAffiliates maps raw upstream records into canonical leaderboard
// entries. Missing identifiers fall back to the 1-based position, missing
// usernames to a synthesized Player<N>, and unparseable amounts to zero.
func NormalizeAffiliates(records []json.RawMessage) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(records))
	for i, raw := range records {
		entries = append(entries, normalizeAffiliate(raw, i))
	}
	return entries
}

func normalizeAffiliate(raw json.RawMessage, index int) LeaderboardEntry {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	entry := LeaderboardEntry{
		ID:       strconv.Itoa(index + 1),
		Username: "Player" + strconv.Itoa(index+1),
	}

	for _, key := range affiliateIDKeys {
		if s, ok := stringValue(fields[key]); ok && s != "" {
			entry.ID = s
			break
		}
	}
	for _, key := range affiliateUsernameKeys {
		if s, ok := stringValue(fields[key]); ok && s != "" {
			entry.Username = s
			break
		}
	}
	for _, key := range affiliateWageredKeys {
		if n, ok := numberValue(fields[key]); ok {
			if n > 0 {
				entry.Wagered = n
			}
			break
		}
	}

	return entry
}

// stringValue coerces a raw JSON value to a string. Numeric identifiers
// are common upstream and are rendered in their decimal form.
func stringValue(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// numberValue coerces a raw JSON value to a float64, accepting both native
// numbers and string-encoded numerics ("100", "28.5").
func numberValue(raw json.RawMessage) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
