// spam.go -- Heuristic spam scoring for form submissions.
//
// The scorer is a flat list of independent weight-and-predicate entries
// evaluated in declaration order. Adding or retuning a heuristic means
// editing the table, not the control flow. CheckForSpam is pure: same input,
// same result, no side effects.
package abuse

import (
	"regexp"
	"strings"
	"time"
)

// SpamThreshold is the score at or above which a submission is spam.
// Weights are calibrated so one strong signal (honeypot) crosses it alone
// while weak signals have to accumulate.
const SpamThreshold = 50

const (
	// minFillTime is the shortest load-to-submit interval a human filling a
	// form plausibly achieves. Below it, the submission is near-certain
	// automation. Large intervals are only mildly suspicious -- an idle
	// human is unremarkable.
	minFillTime = time.Second
	maxFillTime = 30 * time.Minute

	minUserAgentLen = 10
	maxAnswerLen    = 1000
	maxURLMarkers   = 3
	repeatRunLen    = 11
)

// botSignatures are substrings of user agents presented by non-browser
// automation. Matched case-insensitively.
var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"automated",
	"headless",
	"phantom",
	"selenium",
}

// blockedReferrerTerms flag submissions arriving from known junk referrers.
var blockedReferrerTerms = []string{"spam", "casino", "viagra", "porn"}

// spamKeywords matches whole words that essentially never appear in genuine
// feedback but dominate comment spam.
var spamKeywords = regexp.MustCompile(`(?i)\b(casino|viagra|cialis|porn|xxx|gambling|bitcoin|crypto)\b`)

// SpamCheckInput is the ephemeral submission context fed to the scorer.
// LoadedAt is the authenticated load-token timestamp; leave it zero when the
// token was absent or unreadable and the timing heuristics stay silent.
type SpamCheckInput struct {
	HoneypotValue string
	UserAgent     string
	Referrer      string
	LoadedAt      time.Time
	SubmittedAt   time.Time
	Answers       []string
}

// SpamCheckResult is the scorer's verdict. Score is the sum of triggered
// weights; Reasons lists one entry per triggered heuristic in evaluation
// order. Score is zero exactly when Reasons is empty.
type SpamCheckResult struct {
	IsSpam  bool
	Score   int
	Reasons []string
}

// heuristic is one independent signal: a positive weight and a predicate
// returning whether it fires and the human-readable reason.
type heuristic struct {
	weight int
	check  func(in SpamCheckInput) (bool, string)
}

// heuristics is the scorer, as data. Order is fixed so Reasons is
// reproducible; the score itself is a commutative sum.
var heuristics = []heuristic{
	{50, func(in SpamCheckInput) (bool, string) {
		return strings.TrimSpace(in.HoneypotValue) != "", "Honeypot field filled"
	}},
	{30, func(in SpamCheckInput) (bool, string) {
		return timingKnown(in) && in.SubmittedAt.Sub(in.LoadedAt) < minFillTime,
			"Form submitted too quickly"
	}},
	{10, func(in SpamCheckInput) (bool, string) {
		return timingKnown(in) && in.SubmittedAt.Sub(in.LoadedAt) > maxFillTime,
			"Form left open too long"
	}},
	{25, func(in SpamCheckInput) (bool, string) {
		return len(strings.TrimSpace(in.UserAgent)) < minUserAgentLen,
			"User agent missing or too short"
	}},
	{25, func(in SpamCheckInput) (bool, string) {
		ua := strings.ToLower(in.UserAgent)
		for _, sig := range botSignatures {
			if strings.Contains(ua, sig) {
				return true, "Suspicious user agent: " + sig
			}
		}
		return false, ""
	}},
	{40, func(in SpamCheckInput) (bool, string) {
		ref := strings.ToLower(in.Referrer)
		for _, term := range blockedReferrerTerms {
			if ref != "" && strings.Contains(ref, term) {
				return true, "Blocked referrer: " + term
			}
		}
		return false, ""
	}},
	{15, func(in SpamCheckInput) (bool, string) {
		if len(in.Answers) == 0 {
			return false, ""
		}
		for _, a := range in.Answers {
			if strings.TrimSpace(a) != "" {
				return false, ""
			}
		}
		return true, "All answers empty"
	}},
	{20, func(in SpamCheckInput) (bool, string) {
		for _, a := range in.Answers {
			if spamKeywords.MatchString(a) {
				return true, "Spam content detected"
			}
		}
		return false, ""
	}},
	{15, func(in SpamCheckInput) (bool, string) {
		for _, a := range in.Answers {
			if hasRepeatedRun(a, repeatRunLen) {
				return true, "Repeated character sequence"
			}
		}
		return false, ""
	}},
	{15, func(in SpamCheckInput) (bool, string) {
		return countURLMarkers(in.Answers) > maxURLMarkers, "Excessive links in answers"
	}},
	{15, func(in SpamCheckInput) (bool, string) {
		for _, a := range in.Answers {
			if len([]rune(a)) > maxAnswerLen {
				return true, "Excessive response length"
			}
		}
		return false, ""
	}},
}

// CheckForSpam scores one submission against every heuristic.
func CheckForSpam(in SpamCheckInput) SpamCheckResult {
	var res SpamCheckResult
	for _, h := range heuristics {
		if fired, reason := h.check(in); fired {
			res.Score += h.weight
			res.Reasons = append(res.Reasons, reason)
		}
	}
	res.IsSpam = res.Score >= SpamThreshold
	return res
}

func timingKnown(in SpamCheckInput) bool {
	return !in.LoadedAt.IsZero() && !in.SubmittedAt.IsZero()
}

// hasRepeatedRun reports whether s contains n or more identical consecutive
// runes. RE2 has no backreferences, so a manual scan it is.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// countURLMarkers counts link-looking fragments across all answers.
func countURLMarkers(answers []string) int {
	total := 0
	for _, a := range answers {
		lower := strings.ToLower(a)
		total += strings.Count(lower, "http://")
		total += strings.Count(lower, "https://")
		total += strings.Count(lower, "www.")
	}
	return total
}
