package telegram

import (
	"sync"
	"time"

	"tollgate/internal/payment"
)

// session is the per-chat conversational state: which plan the user
// picked and which payment method we're awaiting proof for. The
// deadline is shown to the buyer but not enforced, as in the original
// flow.
type session struct {
	plan     payment.Plan
	awaiting payment.Method
	deadline time.Time
}

type sessionTable struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[int64]*session)}
}

// get returns the user's session, creating one if needed.
func (t *sessionTable) get(userID int64) *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if !ok {
		s = &session{}
		t.sessions[userID] = s
	}
	return s
}

// selectPlan records a plan choice and clears any proof wait.
func (t *sessionTable) selectPlan(userID int64, plan payment.Plan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[userID] = &session{plan: plan}
}

// awaitProof marks the user as owing proof for the given method.
func (t *sessionTable) awaitProof(userID int64, method payment.Method, deadline time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if !ok {
		s = &session{}
		t.sessions[userID] = s
	}
	s.awaiting = method
	s.deadline = deadline
}

// pending returns the plan/method pair when the user owes proof.
func (t *sessionTable) pending(userID int64) (payment.Plan, payment.Method, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if !ok || s.plan == "" || s.awaiting == "" {
		return "", "", false
	}
	return s.plan, s.awaiting, true
}

// plan returns the user's selected plan, if any.
func (t *sessionTable) selectedPlan(userID int64) (payment.Plan, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[userID]
	if !ok || s.plan == "" {
		return "", false
	}
	return s.plan, true
}
