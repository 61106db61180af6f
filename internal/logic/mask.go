package logic

import (
	"strings"

	"github.com/streamingshack/race-api/internal/models"
)

// MaskFunc obscures a username for external sharing.
type MaskFunc func(string) string

// Mask policies. A deployment picks exactly one; mixing them would make
// shared output inconsistent between pushes.
const (
	MaskPolicyLength = "length"
	MaskPolicyFixed  = "fixed"
)

// MaskByPolicy returns the masking strategy for a configured policy name.
// Unknown values fall back to the length-preserving policy.
func MaskByPolicy(policy string) MaskFunc {
	if policy == MaskPolicyFixed {
		return MaskFixed
	}
	return MaskPreserveLength
}

// MaskPreserveLength keeps the first two characters (uppercased) and the
// last two, replacing the middle with asterisks so the output length equals
// the input length. Names of four characters or fewer and the placeholder
// sentinel pass through unchanged.
func MaskPreserveLength(username string) string {
	if username == models.PlaceholderUsername {
		return username
	}
	runes := []rune(username)
	if len(runes) <= 4 {
		return username
	}
	first := strings.ToUpper(string(runes[:2]))
	last := string(runes[len(runes)-2:])
	return first + strings.Repeat("*", len(runes)-4) + last
}

// MaskFixed keeps the first three and last three characters joined by a
// literal three-asterisk infix, regardless of original length. Names of
// three characters or fewer and the placeholder sentinel pass through.
func MaskFixed(username string) string {
	if username == models.PlaceholderUsername {
		return username
	}
	runes := []rune(username)
	if len(runes) <= 3 {
		return username
	}
	return string(runes[:3]) + "***" + string(runes[len(runes)-3:])
}
