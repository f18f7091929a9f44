package notify

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"notifygate/internal/authprobe"
	"notifygate/internal/notify/mailer"
	"notifygate/internal/platform/httputil"
	"notifygate/internal/platform/metrics"
	"notifygate/internal/platform/middleware"
)

// Prober classifies a request's bearer credential. Satisfied by authprobe.Probe.
type Prober interface {
	Probe(ctx context.Context, r *http.Request) authprobe.Result
}

// Gate is the rate-limit decision. Satisfied by ratelimit.Limiter.
type Gate interface {
	Allow(ctx context.Context, clientKey, form string, limit int) bool
}

// Tiers holds the per-minute request ceilings by authentication state.
type Tiers struct {
	Anonymous     int
	Authenticated int
}

// Handler relays validated form submissions to the staff mailbox. One handler
// serves every configured form.
type Handler struct {
	logger     *slog.Logger
	probe      Prober
	gate       Gate
	mailer     mailer.Mailer
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	tiers      Tiers
	from       string
	staff      string
	forms      []FormSpec
}

// New creates a Handler for the given forms.
func New(
	probe Prober,
	gate Gate,
	m mailer.Mailer,
	dispatcher *Dispatcher,
	logger *slog.Logger,
	mx *metrics.Metrics,
	tiers Tiers,
	from, staff string,
	forms ...FormSpec,
) *Handler {
	return &Handler{
		logger:     logger,
		probe:      probe,
		gate:       gate,
		mailer:     m,
		dispatcher: dispatcher,
		metrics:    mx,
		tiers:      tiers,
		from:       from,
		staff:      staff,
		forms:      forms,
	}
}

// Register registers one POST route per form. OPTIONS preflight is handled by
// the CORS middleware before routing.
func (h *Handler) Register(r chi.Router) {
	for _, spec := range h.forms {
		r.Post(spec.Route, h.handleForm(spec))
	}
}

func (h *Handler) handleForm(spec FormSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestID(ctx)

		auth := h.probe.Probe(ctx, r)
		limit := h.tiers.Anonymous
		if auth.Authenticated {
			limit = h.tiers.Authenticated
			h.metrics.RecordAuthProbe("authenticated")
		} else {
			h.metrics.RecordAuthProbe("anonymous")
		}

		clientKey := middleware.GetClientIP(ctx)
		if !h.gate.Allow(ctx, clientKey, spec.Name, limit) {
			h.metrics.RecordThrottled(spec.Name)
			h.logger.InfoContext(ctx, "request throttled",
				"form", spec.Name,
				"request_id", requestID,
			)
			httputil.WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		payload, err := DecodePayload(r.Body)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// Bots get the same success body as humans so they can't tell
		// they were detected.
		if spec.BotTripped(payload) {
			h.metrics.RecordHoneypotTrip(spec.Name)
			h.logger.InfoContext(ctx, "honeypot tripped, dropping submission",
				"form", spec.Name,
				"request_id", requestID,
			)
			httputil.WriteSuccess(w)
			return
		}

		values, verr := spec.Validate(payload)
		if verr != nil {
			h.metrics.RecordValidationError(spec.Name)
			httputil.WriteError(w, http.StatusBadRequest, verr.Message)
			return
		}

		msg := mailer.Message{
			From:    h.from,
			To:      h.staff,
			ReplyTo: values["email"],
			Subject: spec.Subject(values),
			HTML:    spec.ComposeHTML(values),
		}
		if err := h.mailer.Send(ctx, msg); err != nil {
			h.metrics.RecordRelayFailure(spec.Name)
			// Provider detail stays in the log; the caller gets a
			// generic failure.
			h.logger.ErrorContext(ctx, "failed to send notification",
				"form", spec.Name,
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to send notification")
			return
		}
		h.metrics.RecordRelaySent(spec.Name)

		if spec.AckSubject != "" {
			h.dispatcher.SendAsync(mailer.Message{
				From:    h.from,
				To:      values["email"],
				Subject: spec.AckSubject,
				HTML:    spec.ComposeAckHTML(values),
			})
		}

		httputil.WriteSuccess(w)
	}
}
