package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-bridge/internal/common"
	"github.com/noah-isme/checkout-bridge/internal/obs"
)

type replayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Webhook handles the provider's inbound notification endpoint. Each request
// is a single synchronous unit of work: authenticate, parse, dispatch,
// acknowledge. Any non-200 response leaves the notification unacknowledged
// and the provider's own retry schedule is the recovery mechanism.
type Webhook struct {
	Credentials CredentialFunc
	Handlers    *Handlers
	Replay      replayStore
	ReplayTTL   time.Duration
	Logger      zerolog.Logger
}

// Handle processes one notification POST.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Credentials == nil {
		common.JSONError(w, http.StatusInternalServerError, "CHECKOUT_NOT_CONFIGURED", "notification handler unavailable", nil)
		return
	}
	ctx, span := otel.Tracer("checkout.Webhook").Start(r.Context(), "CheckoutWebhook.Handle")
	defer span.End()
	r = r.WithContext(ctx)

	kindLabel := "unknown"
	resultLabel := "error"
	defer func() {
		if obs.NotificationTotal != nil {
			obs.NotificationTotal.WithLabelValues(kindLabel, resultLabel).Inc()
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		span.RecordError(err)
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	cred, err := h.Credentials(ctx)
	if err != nil {
		span.RecordError(err)
		h.Logger.Error().Err(err).Msg("resolve merchant credential")
		common.JSONError(w, http.StatusInternalServerError, "CREDENTIAL_ERROR", "merchant credential unavailable", nil)
		return
	}
	if err := cred.Authenticate(r, body); err != nil {
		resultLabel = "rejected"
		h.Logger.Error().Err(err).Str("remote_ip", common.ClientIP(r)).Msg("notification rejected")
		rejection := rejectionError(err)
		common.JSONError(w, rejection.HTTPStatus, rejection.Code, rejection.Message, nil)
		return
	}

	n, err := ParseNotification(body)
	if err != nil {
		resultLabel = "parse_error"
		span.RecordError(err)
		h.Logger.Error().Err(err).Msg("notification parse failed")
		code := "PARSE_ERROR"
		if errors.Is(err, ErrMissingSerial) {
			code = "MISSING_SERIAL"
		}
		common.JSONError(w, http.StatusBadRequest, code, err.Error(), nil)
		return
	}
	kindLabel = string(n.Kind)
	span.SetAttributes(
		attribute.String("checkout.notification.kind", string(n.Kind)),
		attribute.String("checkout.notification.serial", n.Serial),
	)

	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("gcwh:%s", common.Sha256Hex(n.Serial))
		fresh, err := h.Replay.SetNX(ctx, key, "1", h.ReplayTTL).Result()
		if err != nil {
			// The guard is advisory; hooks stay idempotent by contract.
			span.RecordError(err)
			h.Logger.Warn().Err(err).Msg("replay guard unavailable")
		} else if !fresh {
			resultLabel = "duplicate"
			span.AddEvent("duplicate notification re-acknowledged")
			h.Logger.Info().Str("serial", n.Serial).Str("kind", string(n.Kind)).Msg("duplicate notification suppressed")
			if obs.ReplaySuppressedTotal != nil {
				obs.ReplaySuppressedTotal.Inc()
			}
			WriteAck(w, n.Serial)
			return
		}
	}

	switch err := h.Handlers.hook(n.Kind)(ctx, n); classify(err) {
	case outcomeIgnored:
		resultLabel = "ignored"
		h.Logger.Info().Str("serial", n.Serial).Str("kind", string(n.Kind)).Msg(err.Error())
		WriteAck(w, n.Serial)
	case outcomeFailed:
		resultLabel = "failed"
		span.RecordError(err)
		h.Logger.Error().Err(err).Str("serial", n.Serial).Str("kind", string(n.Kind)).Msg("notification handler failed")
		common.JSONError(w, http.StatusInternalServerError, "HANDLER_ERROR", "notification not acknowledged", nil)
	default:
		resultLabel = "handled"
		WriteAck(w, n.Serial)
	}
}

// rejectionError maps an authentication failure onto the HTTP rejection the
// provider receives: 401 for credential problems, 400 for an empty body.
func rejectionError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrMissingAuthorization):
		return common.NewAppError("MISSING_AUTH", "missing Authorization header", http.StatusUnauthorized, err)
	case errors.Is(err, ErrBadCredential):
		return common.NewAppError("BAD_CREDENTIAL", "merchant credential mismatch", http.StatusUnauthorized, err)
	case errors.Is(err, ErrEmptyBody):
		return common.NewAppError("EMPTY_BODY", "notification body is empty", http.StatusBadRequest, err)
	default:
		return common.NewAppError("MALFORMED_AUTH", "malformed Authorization header", http.StatusUnauthorized, err)
	}
}
