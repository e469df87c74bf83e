package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tollgate/internal/payment"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "paymentbot.json"), zap.NewNop())
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())
	assert.Empty(t, s.KnownUsers())
	assert.Zero(t, s.PendingCount())
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)

	s.AddKnownUser(1001)
	s.AddKnownUser(1002)
	s.PutPending("pay-1", PendingPayment{
		UserID:   1001,
		Username: "alice",
		Plan:     payment.PlanVIP,
		Method:   payment.MethodUPI,
		Amount:   499,
		Currency: "INR",
	})
	s.RecordPurchase(Purchase{
		Time:     Timestamp{time.Date(2026, 8, 30, 12, 0, 0, 0, IST)},
		UserID:   1001,
		Username: "alice",
		Plan:     payment.PlanVIP,
		Method:   payment.MethodUPI,
		Amount:   499,
		Currency: "INR",
	})
	s.SetInvite(1001, payment.PlanVIP, "https://t.me/+abc")
	s.SetVIPChannel(-1001234567890)
	s.SetPrice(payment.PlanDark, payment.MethodCrypto, 20)

	loaded := New(s.path, zap.NewNop())
	require.NoError(t, loaded.Load())

	assert.Equal(t, []int64{1001, 1002}, loaded.KnownUsers())

	pp, ok := loaded.Pending("pay-1")
	require.True(t, ok)
	assert.Equal(t, payment.PlanVIP, pp.Plan)
	assert.Equal(t, 499.0, pp.Amount)

	purchases := loaded.Purchases()
	require.Len(t, purchases, 1)
	assert.Equal(t, int64(1001), purchases[0].UserID)
	assert.True(t, purchases[0].Time.Equal(time.Date(2026, 8, 30, 12, 0, 0, 0, IST)))

	link, ok := loaded.Invite(1001, payment.PlanVIP)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/+abc", link)

	ov := loaded.Overrides()
	assert.Equal(t, int64(-1001234567890), ov.Channels.VIP)

	amount, currency := payment.Quote(loaded.Prices(), payment.PlanDark, payment.MethodCrypto)
	assert.Equal(t, 20.0, amount)
	assert.Equal(t, "USD", currency)
}

// The snapshot must stay readable by and from the original deployment:
// string user-ID keys under sent_invites, ISO timestamps, and the
// pending_payments / purchase_log / known_users / config envelope.
func TestLegacySnapshotCompat(t *testing.T) {
	legacy := `{
	  "pending_payments": {
	    "42_1718000000": {
	      "user_id": 7,
	      "username": "bob",
	      "plan": "dark",
	      "method": "crypto",
	      "amount": 24,
	      "currency": "USD"
	    }
	  },
	  "purchase_log": [
	    {
	      "time": "2024-06-10T14:03:22.123456+05:30",
	      "user_id": 7,
	      "plan": "dark",
	      "method": "crypto",
	      "amount": 24,
	      "currency": "USD"
	    },
	    {"time": "not-a-time", "user_id": 8, "plan": "vip"}
	  ],
	  "known_users": [7, 8],
	  "sent_invites": {"7": {"dark": "https://t.me/+xyz"}},
	  "config": {
	    "channels": {"vip": -100111, "dark": -100222},
	    "payment": {"upi_id": "shop@upi"},
	    "price_config": {"vip": {"upi_inr": 599, "crypto_usd": 7, "remit_inr": 599}}
	  }
	}`

	path := filepath.Join(t.TempDir(), "paymentbot.json")
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := New(path, zap.NewNop())
	require.NoError(t, s.Load())

	pp, ok := s.Pending("42_1718000000")
	require.True(t, ok)
	assert.Equal(t, payment.PlanDark, pp.Plan)

	purchases := s.Purchases()
	require.Len(t, purchases, 2)
	want := time.Date(2024, 6, 10, 14, 3, 22, 123456000, IST)
	assert.True(t, purchases[0].Time.Equal(want))
	// Bad timestamps decode to zero time instead of failing the load.
	assert.True(t, purchases[1].Time.IsZero())

	link, ok := s.Invite(7, payment.PlanDark)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/+xyz", link)

	ov := s.Overrides()
	assert.Equal(t, int64(-100111), ov.Channels.VIP)
	assert.Equal(t, "shop@upi", ov.Payment.UPIID)

	amount, _ := payment.Quote(s.Prices(), payment.PlanVIP, payment.MethodUPI)
	assert.Equal(t, 599.0, amount)

	// Round-trip: written snapshot keeps string keys for sent_invites.
	require.NoError(t, s.Save())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, string(generic["sent_invites"]), `"7"`)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	s.AddKnownUser(1)
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(filepath.Dir(s.path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestHasPurchase(t *testing.T) {
	s := newTestStore(t)
	s.RecordPurchase(Purchase{
		Time:   Timestamp{time.Now().In(IST)},
		UserID: 7,
		Plan:   payment.PlanBoth,
	})

	assert.True(t, s.HasPurchase(7, payment.Plan.CoversVIP))
	assert.True(t, s.HasPurchase(7, payment.Plan.CoversDark))
	assert.False(t, s.HasPurchase(8, payment.Plan.CoversVIP))
}

func TestDeletePending(t *testing.T) {
	s := newTestStore(t)
	s.PutPending("p1", PendingPayment{UserID: 1})
	s.DeletePending("p1")
	_, ok := s.Pending("p1")
	assert.False(t, ok)

	// Deleting an unknown ID is a no-op.
	s.DeletePending("p2")
}

func TestOverridesDiff(t *testing.T) {
	s := newTestStore(t)
	s.SetUPIID("new@upi")
	s.SetCryptoAddress("0xabc")
	s.SetRemitlyInfo("send to X")
	s.SetDarkChannel(-42)

	got := s.Overrides()
	want := Overrides{
		Channels: ChannelOverrides{Dark: -42},
		Payment: PaymentOverrides{
			UPIID:         "new@upi",
			CryptoAddress: "0xabc",
			RemitlyInfo:   "send to X",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}
}
