// Package classify maps raw provider failures into typed outcomes.
//
// Upstream error wording is the only signal available, so classification
// is a pure function over the message text: identical input always
// yields an identical outcome.
package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gemchat/gemchat/pkg/types"
)

// RateLimitMessage is the friendly text surfaced for quota failures in
// place of the provider's raw wording.
const RateLimitMessage = "You've hit the free tier rate limit."

// retryHintPattern matches the "retry in <float>s" hint some quota
// errors embed in their message text.
var retryHintPattern = regexp.MustCompile(`retry in ([0-9.]+)s`)

// Classify turns a raw provider failure message into a typed outcome.
// A 429 indicator or a case-insensitive "quota"/"limit" substring marks
// a rate limit; everything else is a general failure carrying the
// original message verbatim.
func Classify(msg string) *types.ErrorOutcome {
	lower := strings.ToLower(msg)
	if strings.Contains(msg, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "limit") {
		out := &types.ErrorOutcome{
			Kind:    types.OutcomeRateLimit,
			Message: RateLimitMessage,
		}
		if m := retryHintPattern.FindStringSubmatch(msg); m != nil {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
				wait := int(math.Ceil(secs))
				out.WaitSeconds = &wait
			}
		}
		return out
	}

	return &types.ErrorOutcome{
		Kind:    types.OutcomeGeneral,
		Message: msg,
	}
}

// Error is a convenience wrapper for classifying Go errors. A nil error
// yields a nil outcome.
func Error(err error) *types.ErrorOutcome {
	if err == nil {
		return nil
	}
	return Classify(err.Error())
}
