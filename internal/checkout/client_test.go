package checkout_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-bridge/internal/checkout"
)

type recordedRequest struct {
	path   string
	auth   string
	ctype  string
	body   string
	method string
}

func commandServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.ctype = r.Header.Get("Content-Type")
		rec.body = string(body)
		rec.method = r.Method
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func testOrder(baseURL string) checkout.Order {
	return checkout.Order{
		MerchantID:  "m-1",
		MerchantKey: "secret",
		Number:      "841171949013218",
		Currency:    "USD",
		BaseURL:     baseURL,
	}
}

func TestChargeAndShipSuccess(t *testing.T) {
	srv, rec := commandServer(t, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?>
<request-received xmlns="http://checkout.google.com/schema/2" serial-number="rr-1"/>`)

	doc, err := testOrder(srv.URL).ChargeAndShip(context.Background(), "10.50", "UPS", "Z9999")
	require.NoError(t, err)
	require.NotNil(t, doc)

	require.Equal(t, http.MethodPost, rec.method)
	require.Equal(t, "/api/checkout/v2/request/Merchant/m-1", rec.path)
	require.Equal(t, "application/xml; charset=UTF-8", rec.ctype)
	require.Equal(t, basicHeader("m-1", "secret"), rec.auth)
	require.Contains(t, rec.body, `<charge-and-ship-order`)
	require.Contains(t, rec.body, `google-order-number="841171949013218"`)
	require.Contains(t, rec.body, `<amount currency="USD">10.50</amount>`)
	require.Contains(t, rec.body, `<carrier>UPS</carrier>`)
	require.Contains(t, rec.body, `<tracking-number>Z9999</tracking-number>`)
}

func TestCancelCarriesReasonAndComment(t *testing.T) {
	srv, rec := commandServer(t, http.StatusOK, `<request-received serial-number="rr-2"/>`)

	_, err := testOrder(srv.URL).Cancel(context.Background(), "buyer request", "refunded separately")
	require.NoError(t, err)

	require.Contains(t, rec.body, `<cancel-order`)
	require.Contains(t, rec.body, `<reason>buyer request</reason>`)
	require.Contains(t, rec.body, `<comment>refunded separately</comment>`)
}

func TestRefundFullAmountOmitsMoney(t *testing.T) {
	srv, rec := commandServer(t, http.StatusOK, `<request-received serial-number="rr-3"/>`)

	_, err := testOrder(srv.URL).Refund(context.Background(), "", "damaged goods", "")
	require.NoError(t, err)

	require.Contains(t, rec.body, `<refund-order`)
	require.Contains(t, rec.body, `<reason>damaged goods</reason>`)
	require.NotContains(t, rec.body, `<amount`)
}

func TestAuthorizeMinimalDocument(t *testing.T) {
	srv, rec := commandServer(t, http.StatusOK, `<request-received serial-number="rr-4"/>`)

	_, err := testOrder(srv.URL).Authorize(context.Background())
	require.NoError(t, err)

	require.Contains(t, rec.body, `<authorize-order`)
	require.Contains(t, rec.body, `xmlns="http://checkout.google.com/schema/2"`)
}

func TestCommandErrorConcatenatesMessages(t *testing.T) {
	srv, _ := commandServer(t, http.StatusBadRequest, `<?xml version="1.0" encoding="UTF-8"?>
<error xmlns="http://checkout.google.com/schema/2" serial-number="e-1">
  <error-message>invalid order state</error-message>
  <error-message>order already charged</error-message>
</error>`)

	_, err := testOrder(srv.URL).Authorize(context.Background())
	var cmdErr *checkout.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, http.StatusBadRequest, cmdErr.Status)
	require.Equal(t, []string{"invalid order state", "order already charged"}, cmdErr.Messages)
	require.Contains(t, cmdErr.Error(), "invalid order state; order already charged")
}

func TestOrderHandleValidation(t *testing.T) {
	order := checkout.Order{MerchantKey: "secret", Number: "1"}
	_, err := order.Authorize(context.Background())
	require.Error(t, err, "missing merchant id fails before any network call")

	order = checkout.Order{MerchantID: "m-1", MerchantKey: "secret"}
	_, err = order.Cancel(context.Background(), "r", "")
	require.Error(t, err, "missing order number fails before any network call")
}
