package webhook

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tollgate/internal/config"
	"tollgate/internal/payment"
	"tollgate/internal/razorpay"
	"tollgate/internal/state"
)

const testSecret = "whsec_test"

type fakeGranter struct {
	calls []grantCall
	err   error
}

type grantCall struct {
	userID int64
	plan   payment.Plan
}

func (g *fakeGranter) Grant(userID int64, plan payment.Plan) error {
	g.calls = append(g.calls, grantCall{userID, plan})
	return g.err
}

func newTestServer(t *testing.T) (*Server, *fakeGranter, *state.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.HTTP.WebhookSecret = testSecret
	store := state.New(filepath.Join(t.TempDir(), "paymentbot.json"), zap.NewNop())
	granter := &fakeGranter{}
	return New(cfg, store, granter, zap.NewNop()), granter, store
}

func post(t *testing.T, h http.Handler, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/razorpay_webhook", bytes.NewReader([]byte(body)))
	if sign {
		req.Header.Set(razorpay.SignatureHeader, razorpay.Sign([]byte(body), testSecret))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const capturedEvent = `{
	"event": "payment.captured",
	"payload": {
		"payment": {
			"entity": {
				"notes": {"telegram_user_id": "42", "plan": "vip"}
			}
		}
	}
}`

func TestWebhookMissingSignature(t *testing.T) {
	srv, granter, store := newTestServer(t)

	rec := post(t, srv.Handler(), capturedEvent, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, granter.calls)
	assert.Empty(t, store.Purchases())
}

func TestWebhookBadSignature(t *testing.T) {
	srv, granter, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/razorpay_webhook", bytes.NewReader([]byte(capturedEvent)))
	req.Header.Set(razorpay.SignatureHeader, "not-a-signature")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, granter.calls)
}

func TestWebhookPaidEventGrantsAccess(t *testing.T) {
	srv, granter, store := newTestServer(t)

	rec := post(t, srv.Handler(), capturedEvent, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Result().Body)
	assert.Equal(t, "ok", string(body))

	require.Len(t, granter.calls, 1)
	assert.Equal(t, int64(42), granter.calls[0].userID)
	assert.Equal(t, payment.PlanVIP, granter.calls[0].plan)

	purchases := store.Purchases()
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(42), purchases[0].UserID)
	assert.Equal(t, payment.PlanVIP, purchases[0].Plan)
	assert.Equal(t, "payment.captured", purchases[0].Event)
	assert.Equal(t, "vip", purchases[0].Notes["plan"])
}

func TestWebhookNonPaidEventIgnored(t *testing.T) {
	srv, granter, store := newTestServer(t)

	body := `{"event": "payment.failed", "payload": {}}`
	rec := post(t, srv.Handler(), body, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	respBody, _ := io.ReadAll(rec.Result().Body)
	assert.Equal(t, "ignored", string(respBody))
	assert.Empty(t, granter.calls)
	assert.Empty(t, store.Purchases())
}

func TestWebhookPaidEventWithoutNotesRecordedOnly(t *testing.T) {
	srv, granter, store := newTestServer(t)

	body := `{"event": "payment_link.paid", "payload": {"payment_link": {"entity": {"notes": []}}}}`
	rec := post(t, srv.Handler(), body, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, granter.calls, "no user to grant")

	purchases := store.Purchases()
	require.Len(t, purchases, 1)
	assert.Zero(t, purchases[0].UserID)
	assert.Equal(t, "payment_link.paid", purchases[0].Event)
}

func TestWebhookGrantFailureStillAccepted(t *testing.T) {
	srv, granter, store := newTestServer(t)
	granter.err = errors.New("telegram down")

	rec := post(t, srv.Handler(), capturedEvent, true)

	// Razorpay must not retry: the purchase is logged and the user
	// can recover through the join-request flow.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.Purchases(), 1)
}

func TestWebhookMalformedPayload(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := post(t, srv.Handler(), "{not json", true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
