// Package state persists the bot's runtime state: pending payments,
// the purchase log, the known-user set, issued invite links, and
// admin-set overrides. Everything lives in a single JSON snapshot at
// <data dir>/paymentbot.json, in the same shape the original
// deployment used, so an existing data volume carries over unchanged.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"tollgate/internal/payment"
)

// IST is the timezone purchases are recorded and reported in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Timestamp wraps time.Time with ISO-8601 JSON encoding. Unparseable
// stored values decode to the zero time instead of failing the whole
// snapshot load.
type Timestamp struct {
	time.Time
}

// MarshalJSON encodes the time as RFC 3339 with sub-second precision.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes an ISO-8601 string, tolerating bad values.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t.Time = parsed
	return nil
}

// PendingPayment is a proof-of-payment awaiting admin review.
type PendingPayment struct {
	UserID        int64                   `json:"user_id"`
	Username      string                  `json:"username"`
	Plan          payment.Plan            `json:"plan"`
	Method        payment.Method          `json:"method"`
	Amount        float64                 `json:"amount"`
	Currency      string                  `json:"currency"`
	InviteCreated bool                    `json:"invite_created,omitempty"`
	InviteLinks   map[payment.Plan]string `json:"invite_links,omitempty"`
}

// Purchase is one confirmed sale. Webhook-sourced entries may lack a
// user ID when the payment notes didn't carry one.
type Purchase struct {
	Time     Timestamp         `json:"time"`
	UserID   int64             `json:"user_id,omitempty"`
	Username string            `json:"username,omitempty"`
	Plan     payment.Plan      `json:"plan,omitempty"`
	Method   payment.Method    `json:"method,omitempty"`
	Amount   float64           `json:"amount,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Event    string            `json:"razorpay_event,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ChannelOverrides are admin-set channel IDs (/set_vip, /set_dark).
type ChannelOverrides struct {
	VIP  int64 `json:"vip,omitempty"`
	Dark int64 `json:"dark,omitempty"`
}

// PaymentOverrides are admin-set payment display details.
type PaymentOverrides struct {
	UPIID         string `json:"upi_id,omitempty"`
	CryptoAddress string `json:"crypto_address,omitempty"`
	RemitlyInfo   string `json:"remitly_info,omitempty"`
}

// Overrides is runtime configuration set through admin commands. It
// survives restarts and wins over the static config.
type Overrides struct {
	Channels ChannelOverrides   `json:"channels,omitempty"`
	Payment  PaymentOverrides   `json:"payment,omitempty"`
	Prices   payment.PriceTable `json:"price_config,omitempty"`
}

// snapshot is the on-disk shape. Go serializes int64 map keys as
// decimal strings, which matches how the original stored sent_invites.
type snapshot struct {
	PendingPayments map[string]PendingPayment         `json:"pending_payments"`
	PurchaseLog     []Purchase                        `json:"purchase_log"`
	KnownUsers      []int64                           `json:"known_users"`
	SentInvites     map[int64]map[payment.Plan]string `json:"sent_invites"`
	Config          Overrides                         `json:"config"`
}

// Store owns the runtime state and its snapshot file. All methods are
// safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	log  *zap.Logger
	path string

	pending   map[string]PendingPayment
	purchases []Purchase
	known     map[int64]struct{}
	invites   map[int64]map[payment.Plan]string
	overrides Overrides
}

// New creates a Store backed by the snapshot file at path.
func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:     log,
		path:    path,
		pending: make(map[string]PendingPayment),
		known:   make(map[int64]struct{}),
		invites: make(map[int64]map[payment.Plan]string),
	}
}

// Load reads the snapshot from disk. A missing file is a fresh start,
// not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("no state file found, starting fresh", zap.String("path", s.path))
			return nil
		}
		return fmt.Errorf("failed to read state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse state: %w", err)
	}

	s.pending = snap.PendingPayments
	if s.pending == nil {
		s.pending = make(map[string]PendingPayment)
	}
	s.purchases = snap.PurchaseLog
	s.known = make(map[int64]struct{}, len(snap.KnownUsers))
	for _, id := range snap.KnownUsers {
		s.known[id] = struct{}{}
	}
	s.invites = snap.SentInvites
	if s.invites == nil {
		s.invites = make(map[int64]map[payment.Plan]string)
	}
	s.overrides = snap.Config

	s.log.Info("loaded state",
		zap.String("path", s.path),
		zap.Int("purchases", len(s.purchases)),
		zap.Int("pending", len(s.pending)),
		zap.Int("known_users", len(s.known)))
	return nil
}

// Save writes the snapshot atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	snap := snapshot{
		PendingPayments: s.pending,
		PurchaseLog:     s.purchases,
		KnownUsers:      s.knownSlice(),
		SentInvites:     s.invites,
		Config:          s.overrides,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "paymentbot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.log.Debug("state saved", zap.String("path", s.path))
	return nil
}

// persistLocked saves and logs instead of propagating, mirroring the
// original's behavior where a failed save never broke a chat flow.
func (s *Store) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.log.Error("failed to save state", zap.Error(err))
	}
}

func (s *Store) knownSlice() []int64 {
	ids := make([]int64, 0, len(s.known))
	for id := range s.known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AddKnownUser records a user the bot has talked to and persists.
func (s *Store) AddKnownUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[id]; ok {
		return
	}
	s.known[id] = struct{}{}
	s.persistLocked()
}

// KnownUsers returns every user the bot has seen, sorted.
func (s *Store) KnownUsers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.knownSlice()
}

// RecordPurchase appends a confirmed sale and persists.
func (s *Store) RecordPurchase(p Purchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, p)
	s.persistLocked()
}

// Purchases returns a copy of the purchase log.
func (s *Store) Purchases() []Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Purchase, len(s.purchases))
	copy(out, s.purchases)
	return out
}

// HasPurchase reports whether the user has any purchase satisfying
// the predicate.
func (s *Store) HasPurchase(userID int64, covers func(payment.Plan) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.UserID == userID && covers(p.Plan) {
			return true
		}
	}
	return false
}

// PutPending stores a proof-of-payment awaiting review and persists.
func (s *Store) PutPending(id string, pp PendingPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = pp
	s.persistLocked()
}

// Pending fetches a pending payment by ID.
func (s *Store) Pending(id string) (PendingPayment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pp, ok := s.pending[id]
	return pp, ok
}

// PendingCount returns the number of payments awaiting review.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DeletePending removes a processed payment and persists.
func (s *Store) DeletePending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return
	}
	delete(s.pending, id)
	s.persistLocked()
}

// Invite returns the cached invite link for a user and plan.
func (s *Store) Invite(userID int64, plan payment.Plan) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.invites[userID][plan]
	return link, ok
}

// SetInvite caches an issued invite link and persists.
func (s *Store) SetInvite(userID int64, plan payment.Plan, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invites[userID] == nil {
		s.invites[userID] = make(map[payment.Plan]string)
	}
	s.invites[userID][plan] = link
	s.persistLocked()
}

// Overrides returns the admin-set runtime configuration.
func (s *Store) Overrides() Overrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides
}

// SetVIPChannel persists an admin override of the VIP channel ID.
func (s *Store) SetVIPChannel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Channels.VIP = id
	s.persistLocked()
}

// SetDarkChannel persists an admin override of the Dark channel ID.
func (s *Store) SetDarkChannel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Channels.Dark = id
	s.persistLocked()
}

// SetUPIID persists an admin override of the UPI ID.
func (s *Store) SetUPIID(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Payment.UPIID = v
	s.persistLocked()
}

// SetCryptoAddress persists an admin override of the crypto address.
func (s *Store) SetCryptoAddress(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Payment.CryptoAddress = v
	s.persistLocked()
}

// SetRemitlyInfo persists an admin override of the Remitly details.
func (s *Store) SetRemitlyInfo(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.Payment.RemitlyInfo = v
	s.persistLocked()
}

// SetPrice persists an admin price override for one plan and method.
func (s *Store) SetPrice(plan payment.Plan, method payment.Method, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides.Prices == nil {
		s.overrides.Prices = make(payment.PriceTable)
	}
	s.overrides.Prices[plan] = payment.SetAmount(s.overrides.Prices, plan, method, amount)
	s.persistLocked()
}

// Prices returns the admin price overrides (may be nil).
func (s *Store) Prices() payment.PriceTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Prices
}
