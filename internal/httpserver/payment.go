package httpserver

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// Redirect error codes understood by the checkout page.
const (
	CodeNoReference   = "no_reference"
	CodePaymentFailed = "payment_failed"
	CodeInternalError = "internal_error"
)

const maxWebhookBody = 1 << 20

type PaymentHTTP struct {
	Svc           *service.IngestService
	Store         config.StoreConfig
	WebhookSecret string
}

// Callback is where the provider sends the buyer's browser after payment.
// Every outcome is a redirect back to the storefront.
func (h *PaymentHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.callback")

	ref := c.QueryParam("reference")
	if ref == "" {
		ref = c.QueryParam("trxref")
	}

	order, _, err := h.Svc.Ingest(ctx, service.Attempt{Reference: ref, Source: service.SourceCallback, Event: "callback"})
	if err != nil {
		code := callbackCode(err)
		l.Warn("callback_error", "reference", ref, "code", code, "error", err)
		return c.Redirect(http.StatusFound, h.redirect(h.Store.CheckoutPath, url.Values{"error": {code}}, ref))
	}

	l.Info("callback_success", "reference", ref, "order_number", order.OrderNumber)
	return c.Redirect(http.StatusFound, h.redirect(h.Store.OrderConfirmationPath, url.Values{}, ref))
}

func callbackCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNoReference):
		return CodeNoReference
	case errors.Is(err, service.ErrPaymentFailed):
		return CodePaymentFailed
	default:
		return CodeInternalError
	}
}

func (h *PaymentHTTP) redirect(path string, q url.Values, ref string) string {
	if ref != "" {
		q.Set("reference", ref)
	}
	u := h.Store.RedirectURL(path)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// Webhook accepts signed provider events. A 5xx makes the provider redeliver,
// so only failures worth retrying return one.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	if !paystack.ValidSignature(h.WebhookSecret, body, c.Request().Header.Get(paystack.SignatureHeader)) {
		l.Warn("webhook_error", "status", 401, "reason", "bad signature")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	ev, err := paystack.ParseWebhook(body)
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if ev.Event != paystack.EventChargeSuccess {
		l.Info("webhook_ignored", "event", ev.Event)
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	ref := ev.Reference()
	_, created, err := h.Svc.Ingest(ctx, service.Attempt{Reference: ref, Source: service.SourceWebhook, Event: ev.Event, Payload: body})
	switch {
	case err == nil:
		l.Info("webhook_success", "reference", ref, "created", created)
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "created": created})
	case errors.Is(err, service.ErrNoReference),
		errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrInvalidMetadata):
		l.Warn("webhook_rejected", "reference", ref, "error", err)
		return c.JSON(http.StatusOK, echo.Map{"status": "rejected"})
	default:
		l.Error("webhook_error", "status", 500, "reference", ref, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot process event")
	}
}
