package checkout

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Kind identifies an order lifecycle notification sent by the provider.
type Kind string

const (
	KindNewOrder            Kind = "new-order-notification"
	KindRiskInformation     Kind = "risk-information-notification"
	KindOrderStateChange    Kind = "order-state-change-notification"
	KindChargeAmount        Kind = "charge-amount-notification"
	KindAuthorizationAmount Kind = "authorization-amount-notification"
	KindRefundAmount        Kind = "refund-amount-notification"
	KindChargebackAmount    Kind = "chargeback-amount-notification"
)

// Known reports whether the kind belongs to the provider's fixed
// enumeration. Unknown kinds route to the unhandled hook.
func (k Kind) Known() bool {
	switch k {
	case KindNewOrder, KindRiskInformation, KindOrderStateChange,
		KindChargeAmount, KindAuthorizationAmount, KindRefundAmount,
		KindChargebackAmount:
		return true
	}
	return false
}

// Notification is one inbound provider message: its kind, the serial number
// used solely for acknowledgment correlation, and the structured payload.
type Notification struct {
	Kind   Kind
	Serial string
	Doc    *Doc
}

// ErrMissingSerial marks a notification whose root element carries no
// serial-number attribute. Without it the acknowledgment cannot be
// correlated, so parsing fails.
var ErrMissingSerial = errors.New("checkout: notification has no serial-number attribute")

// ParseNotification reads the notification kind from the root element's
// local name, the serial-number root attribute, and the structured payload.
func ParseNotification(data []byte) (*Notification, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("checkout: notification has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("checkout: parse notification: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		serial := ""
		for _, attr := range start.Attr {
			if attr.Name.Local == "serial-number" {
				serial = attr.Value
				break
			}
		}
		if serial == "" {
			return nil, ErrMissingSerial
		}
		value, err := parseElement(dec, start)
		if err != nil {
			return nil, fmt.Errorf("checkout: parse notification: %w", err)
		}
		doc, ok := value.(*Doc)
		if !ok {
			doc = newDoc()
		}
		return &Notification{Kind: Kind(start.Name.Local), Serial: serial, Doc: doc}, nil
	}
}

// ErrIgnore is the distinguished signal a hook returns to say "valid
// notification, nothing to do": the dispatcher logs it and still
// acknowledges, which stops the provider's retries. Any other error leaves
// the notification unacknowledged so the provider resends it later.
var ErrIgnore = errors.New("checkout: notification ignored")

// HandlerFunc processes one notification. Returning nil acknowledges;
// wrapping ErrIgnore acknowledges after an informational log; anything else
// suppresses the acknowledgment.
type HandlerFunc func(ctx context.Context, n *Notification) error

// Handlers carries one callback slot per notification kind plus a fallback
// for unrecognised kinds. Unset slots default to the ignore outcome so
// uninteresting notifications are acknowledged and dropped rather than
// retried forever.
type Handlers struct {
	NewOrder            HandlerFunc
	RiskInformation     HandlerFunc
	OrderStateChange    HandlerFunc
	ChargeAmount        HandlerFunc
	AuthorizationAmount HandlerFunc
	RefundAmount        HandlerFunc
	ChargebackAmount    HandlerFunc
	Unhandled           HandlerFunc
}

func (h *Handlers) hook(kind Kind) HandlerFunc {
	if h == nil {
		return unhandledNotification
	}
	var fn HandlerFunc
	switch kind {
	case KindNewOrder:
		fn = h.NewOrder
	case KindRiskInformation:
		fn = h.RiskInformation
	case KindOrderStateChange:
		fn = h.OrderStateChange
	case KindChargeAmount:
		fn = h.ChargeAmount
	case KindAuthorizationAmount:
		fn = h.AuthorizationAmount
	case KindRefundAmount:
		fn = h.RefundAmount
	case KindChargebackAmount:
		fn = h.ChargebackAmount
	}
	if fn != nil {
		return fn
	}
	if h.Unhandled != nil {
		return h.Unhandled
	}
	return unhandledNotification
}

func unhandledNotification(_ context.Context, n *Notification) error {
	return fmt.Errorf("%s received but unhandled: %w", n.Kind, ErrIgnore)
}

type outcome int

const (
	outcomeHandled outcome = iota
	outcomeIgnored
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeHandled:
		return "handled"
	case outcomeIgnored:
		return "ignored"
	default:
		return "failed"
	}
}

// classify maps a hook result onto the three-way ack decision.
func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeHandled
	case errors.Is(err, ErrIgnore):
		return outcomeIgnored
	default:
		return outcomeFailed
	}
}
