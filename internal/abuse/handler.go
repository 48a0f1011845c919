// handler.go -- HTTP handlers for the public anti-abuse surface.
package abuse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MGallo-Code/formgate/internal/limit"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

// AcceptedSubmission is what the handler forwards once every check passes.
// It carries only the salted identity hash, never the raw address.
type AcceptedSubmission struct {
	ResponseID    uuid.UUID
	FormID        string
	QRCodeID      string
	LocationName  string
	IPHash        string
	UserAgentHash string
	SpamScore     int
	Answers       map[string]string // question ID -> value; multi-selects JSON-encoded
}

// Sink receives accepted submissions. Satisfied by whatever the deployment
// persists or forwards with -- defined here (at consumer) per Go convention.
type Sink interface {
	Record(ctx context.Context, sub AcceptedSubmission) error
}

// NopSink accepts and drops submissions. Used until a real sink is wired,
// and in deployments where formgate runs purely as a verdict service.
type NopSink struct{}

func (NopSink) Record(context.Context, AcceptedSubmission) error { return nil }

// CaptchaVerifier checks a captcha response token out-of-band.
// Satisfied by *captcha.TurnstileVerifier.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Handler holds dependencies for the public form endpoints.
// Blocklist, Replay, and Captcha are optional; nil disables the check.
type Handler struct {
	Limiter      limit.Limiter
	SubmitPolicy limit.Policy
	InfoPolicy   limit.Policy

	Hasher      Hasher
	Tokens      *TokenIssuer
	TokenMaxAge time.Duration

	Blocklist *Blocklist
	Replay    *ReplayGuard
	Captcha   CaptchaVerifier
	Sink      Sink
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClientInfo handles GET /client-info -- a diagnostic endpoint reporting the
// caller's salted identity hash. The raw address never appears in the
// response or the logs.
func (h *Handler) ClientInfo(w http.ResponseWriter, r *http.Request) {
	ipHash := h.Hasher.HashIP(ClientIP(r))

	if !h.allow(w, r, ipHash, h.InfoPolicy) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"ipHash": ipHash})
}

// FormToken handles GET /forms/{formID}/token. Called when a public form is
// rendered; the client embeds the token and the honeypot field in the page
// and echoes the token back on submission.
func (h *Handler) FormToken(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	if formID == "" {
		Reject(w, http.StatusBadRequest, "form id is required", TypeMissingFormID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":         h.Tokens.Create(),
		"honeypotField": HoneypotField(formID),
	})
}

// submissionRequest is the POST /submit body. Responses values are either a
// string or an array of strings (multi-select questions).
type submissionRequest struct {
	FormID        string                     `json:"formId"`
	QRCodeID      string                     `json:"qrCodeId"`
	LocationName  string                     `json:"locationName"`
	Responses     map[string]json.RawMessage `json:"responses"`
	HoneypotValue string                     `json:"honeypotValue"`
	FormLoadToken string                     `json:"formLoadToken"`
	CaptchaToken  string                     `json:"captchaToken"`
	UserAgent     string                     `json:"userAgent"`
	Referrer      string                     `json:"referrer"`
}

// Submit handles POST /submit -- the public, unauthenticated submission path.
// Check order is cheapest-first: blocklist, rate limit, token, replay, spam,
// captcha. Anything expensive a collaborator does (persistence, plan limits)
// happens only after every verdict here is "accept".
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logWarn(r, "failed to decode submission body", "error", err)
		Reject(w, http.StatusBadRequest, "error decoding request body", TypeInvalidBody)
		return
	}
	if in.FormID == "" {
		Reject(w, http.StatusBadRequest, "form id is required", TypeMissingFormID)
		return
	}

	ip := ClientIP(r)
	ipHash := h.Hasher.HashIP(ip)

	if h.Blocklist != nil && h.Blocklist.Contains(ip) {
		logWarn(r, "submission from blocklisted address", "ip_hash", ipHash)
		Reject(w, http.StatusForbidden,
			"submissions are not accepted from this address", TypeIPBlocked)
		return
	}

	if !h.allow(w, r, ipHash, h.SubmitPolicy) {
		return
	}

	// The token must authenticate before its timestamp is trusted for
	// anything, including the dwell-time heuristic.
	loadedAt, ok := h.Tokens.Decode(in.FormLoadToken)
	if !ok || !h.Tokens.Validate(in.FormLoadToken, h.TokenMaxAge) {
		logWarn(r, "submission with invalid or expired load token", "ip_hash", ipHash)
		Reject(w, http.StatusBadRequest,
			"Submission failed validation. Please try again.", TypeTokenInvalid)
		return
	}

	if h.Replay != nil && h.Replay.SeenBefore(in.FormLoadToken) {
		logWarn(r, "load token replayed", "ip_hash", ipHash)
		Reject(w, http.StatusConflict,
			"This form was already submitted. Please reload it.", TypeTokenReplayed)
		return
	}

	answers, items, err := normalizeResponses(in.Responses)
	if err != nil {
		Reject(w, http.StatusBadRequest, "error decoding request body", TypeInvalidBody)
		return
	}

	userAgent := in.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	referrer := in.Referrer
	if referrer == "" {
		referrer = r.Referer()
	}

	spam := CheckForSpam(SpamCheckInput{
		HoneypotValue: in.HoneypotValue,
		UserAgent:     userAgent,
		Referrer:      referrer,
		LoadedAt:      loadedAt,
		SubmittedAt:   time.Now(),
		Answers:       answers,
	})
	if spam.IsSpam {
		logWarn(r, "spam submission rejected",
			"ip_hash", ipHash, "score", spam.Score, "reasons", spam.Reasons)
		Reject(w, http.StatusBadRequest,
			"Submission failed validation. Please try again.", TypeSpamDetected)
		return
	}

	if h.Captcha != nil && in.CaptchaToken != "" {
		if err := h.Captcha.Verify(r.Context(), in.CaptchaToken, ip); err != nil {
			logWarn(r, "captcha verification failed", "ip_hash", ipHash, "error", err)
			Reject(w, http.StatusBadRequest,
				"CAPTCHA verification failed. Please try again.", TypeCaptchaFailed)
			return
		}
	}

	responseID, err := uuid.NewV7()
	if err != nil {
		InternalServerError(w, r, fmt.Errorf("generating response id: %w", err))
		return
	}

	sub := AcceptedSubmission{
		ResponseID:    responseID,
		FormID:        in.FormID,
		QRCodeID:      in.QRCodeID,
		LocationName:  in.LocationName,
		IPHash:        ipHash,
		UserAgentHash: hashUserAgent(userAgent),
		SpamScore:     spam.Score,
		Answers:       items,
	}
	if err := h.Sink.Record(r.Context(), sub); err != nil {
		InternalServerError(w, r, fmt.Errorf("recording submission: %w", err))
		return
	}

	logInfo(r, "submission accepted",
		"form_id", in.FormID, "response_id", responseID, "ip_hash", ipHash,
		"spam_score", spam.Score)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"responseId": responseID,
	})
}

// allow runs the rate limiter for ipHash under the given policy, attaches the
// rate-limit headers, and writes the 429 itself when the budget is spent.
// Returns true when the request may proceed. A limiter infrastructure failure
// fails open: availability beats strictness for a public form, and the
// remaining checks still stand.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, ipHash string, p limit.Policy) bool {
	res, err := h.Limiter.Check(r.Context(), ipHash, p)
	if err != nil {
		logError(r, "rate limit check failed, failing open", "error", err)
		return true
	}

	for k, v := range limit.ResponseHeaders(res, time.Now()) {
		w.Header().Set(k, v)
	}

	if !res.Allowed {
		logWarn(r, "rate limit exceeded", "ip_hash", ipHash)
		Reject(w, http.StatusTooManyRequests,
			"Too many submissions. Please try again later.", TypeRateLimitExceeded)
		return false
	}
	return true
}

// normalizeResponses flattens the responses map into answer values for the
// spam scorer and per-question items for the sink. Multi-select arrays are
// joined with spaces for scoring and stored JSON-encoded, scalars as-is.
func normalizeResponses(raw map[string]json.RawMessage) (answers []string, items map[string]string, err error) {
	items = make(map[string]string, len(raw))
	for questionID, value := range raw {
		var s string
		if json.Unmarshal(value, &s) == nil {
			answers = append(answers, s)
			items[questionID] = s
			continue
		}
		var list []string
		if json.Unmarshal(value, &list) == nil {
			answers = append(answers, strings.Join(list, " "))
			encoded, _ := json.Marshal(list)
			items[questionID] = string(encoded)
			continue
		}
		return nil, nil, fmt.Errorf("response %q is neither string nor string array", questionID)
	}
	return answers, items, nil
}

// hashUserAgent stores a truncated opaque form of the user agent, enough to
// correlate abuse without keeping the full fingerprint.
func hashUserAgent(ua string) string {
	if ua == "" {
		return ""
	}
	enc := base64.StdEncoding.EncodeToString([]byte(ua))
	if len(enc) > 64 {
		enc = enc[:64]
	}
	return enc
}
