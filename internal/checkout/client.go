package checkout

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-bridge/internal/obs"
)

const (
	productionHost = "https://checkout.google.com"
	sandboxHost    = "https://sandbox.google.com/checkout"
)

// Doer executes a single outbound HTTP exchange. The resilience package's
// HTTPClient satisfies it for callers that want retries, timeouts or a
// circuit breaker; the default is a plain otelhttp-instrumented client with
// no policy of its own.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type plainDoer struct {
	client *http.Client
}

func (p plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return p.client.Do(req.WithContext(ctx))
}

var defaultDoer Doer = plainDoer{client: &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
}}

var validate = validator.New()

// Order is a stateless handle on a remote order. Every command is an
// independent request/response exchange keyed by the provider's order
// number; no order state is tracked locally.
type Order struct {
	MerchantID  string `validate:"required"`
	MerchantKey string `validate:"required"`
	Number      string `validate:"required"`
	Currency    string
	Sandbox     bool

	// BaseURL overrides host selection, primarily for tests.
	BaseURL string
	HTTP    Doer
}

// CommandError carries a non-200 command response with the provider's
// error-message texts.
type CommandError struct {
	Status   int
	Messages []string
}

func (e *CommandError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("checkout: command rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("checkout: command rejected (status %d): %s", e.Status, strings.Join(e.Messages, "; "))
}

type money struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type trackingData struct {
	Carrier        string `xml:"carrier"`
	TrackingNumber string `xml:"tracking-number"`
}

type authorizeOrder struct {
	XMLName     xml.Name `xml:"authorize-order"`
	Xmlns       string   `xml:"xmlns,attr"`
	OrderNumber string   `xml:"google-order-number,attr"`
}

type cancelOrder struct {
	XMLName     xml.Name `xml:"cancel-order"`
	Xmlns       string   `xml:"xmlns,attr"`
	OrderNumber string   `xml:"google-order-number,attr"`
	Reason      string   `xml:"reason"`
	Comment     string   `xml:"comment,omitempty"`
}

type refundOrder struct {
	XMLName     xml.Name `xml:"refund-order"`
	Xmlns       string   `xml:"xmlns,attr"`
	OrderNumber string   `xml:"google-order-number,attr"`
	Reason      string   `xml:"reason"`
	Amount      *money   `xml:"amount,omitempty"`
	Comment     string   `xml:"comment,omitempty"`
}

type chargeAndShipOrder struct {
	XMLName     xml.Name      `xml:"charge-and-ship-order"`
	Xmlns       string        `xml:"xmlns,attr"`
	OrderNumber string        `xml:"google-order-number,attr"`
	Amount      *money        `xml:"amount,omitempty"`
	Tracking    *trackingData `xml:"tracking-data,omitempty"`
}

// Authorize asks the provider to (re)authorize the order amount.
func (o Order) Authorize(ctx context.Context) (*Doc, error) {
	return o.send(ctx, "authorize-order", authorizeOrder{
		Xmlns:       Namespace,
		OrderNumber: o.Number,
	})
}

// Cancel cancels the order with a reason and optional comment.
func (o Order) Cancel(ctx context.Context, reason, comment string) (*Doc, error) {
	return o.send(ctx, "cancel-order", cancelOrder{
		Xmlns:       Namespace,
		OrderNumber: o.Number,
		Reason:      reason,
		Comment:     comment,
	})
}

// Refund returns funds to the buyer. An empty amount refunds the full
// charged total.
func (o Order) Refund(ctx context.Context, amount, reason, comment string) (*Doc, error) {
	return o.send(ctx, "refund-order", refundOrder{
		Xmlns:       Namespace,
		OrderNumber: o.Number,
		Reason:      reason,
		Amount:      o.amount(amount),
		Comment:     comment,
	})
}

// ChargeAndShip charges the order and optionally attaches tracking data.
// An empty amount charges the full order total.
func (o Order) ChargeAndShip(ctx context.Context, amount, carrier, trackingNumber string) (*Doc, error) {
	cmd := chargeAndShipOrder{
		Xmlns:       Namespace,
		OrderNumber: o.Number,
		Amount:      o.amount(amount),
	}
	if carrier != "" || trackingNumber != "" {
		cmd.Tracking = &trackingData{Carrier: carrier, TrackingNumber: trackingNumber}
	}
	return o.send(ctx, "charge-and-ship-order", cmd)
}

func (o Order) amount(value string) *money {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &money{Currency: o.currency(), Value: value}
}

func (o Order) currency() string {
	if strings.TrimSpace(o.Currency) == "" {
		return "USD"
	}
	return o.Currency
}

func (o Order) endpoint() string {
	host := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if host == "" {
		host = productionHost
		if o.Sandbox {
			host = sandboxHost
		}
	}
	return host + "/api/checkout/v2/request/Merchant/" + o.MerchantID
}

func (o Order) send(ctx context.Context, command string, payload any) (*Doc, error) {
	result := "error"
	defer func() {
		if obs.CommandTotal != nil {
			obs.CommandTotal.WithLabelValues(command, result).Inc()
		}
	}()
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("checkout: invalid order handle: %w", err)
	}
	encoded, err := xml.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("checkout: encode %s: %w", command, err)
	}
	body := append([]byte(xml.Header), encoded...)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("checkout: build %s request: %w", command, err)
	}
	req.SetBasicAuth(o.MerchantID, o.MerchantKey)
	req.Header.Set("Content-Type", "application/xml; charset=UTF-8")
	req.Header.Set("Accept", "application/xml")

	doer := o.HTTP
	if doer == nil {
		doer = defaultDoer
	}
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("checkout: send %s: %w", command, err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("checkout: read %s response: %w", command, err)
	}
	if resp.StatusCode != http.StatusOK {
		result = "rejected"
		return nil, &CommandError{Status: resp.StatusCode, Messages: errorMessages(respBody)}
	}
	doc, err := ParseDoc(respBody)
	if err != nil {
		return nil, fmt.Errorf("checkout: parse %s response: %w", command, err)
	}
	result = "ok"
	return doc, nil
}

// errorMessages collects every error-message element text from a failure
// response, in document order.
func errorMessages(body []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var messages []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return messages
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "error-message" {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return messages
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			messages = append(messages, trimmed)
		}
	}
}
