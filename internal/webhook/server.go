// Package webhook exposes the Razorpay payment-link confirmation
// endpoint. Verified paid events are written to the purchase log and,
// when the payment notes identify a Telegram user and plan, access is
// granted immediately without admin review.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tollgate/internal/config"
	"tollgate/internal/payment"
	"tollgate/internal/razorpay"
	"tollgate/internal/state"
)

// maxBodySize bounds webhook payloads. Razorpay events are a few KB.
const maxBodySize = 1 << 20

// AccessGranter delivers channel access to a paid user. Implemented by
// the Telegram bot; tests substitute a recorder.
type AccessGranter interface {
	Grant(userID int64, plan payment.Plan) error
}

// Server answers Razorpay webhook callbacks and a health probe.
type Server struct {
	cfg     *config.Config
	store   *state.Store
	granter AccessGranter
	log     *zap.Logger
	srv     *http.Server
}

func New(cfg *config.Config, store *state.Store, granter AccessGranter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, store: store, granter: granter, log: log}
	s.srv = &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can use
// httptest against it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /razorpay_webhook", s.handleRazorpay)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webhook server listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *Server) handleRazorpay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get(razorpay.SignatureHeader)
	if sig == "" {
		http.Error(w, "missing signature", http.StatusBadRequest)
		return
	}
	if !razorpay.VerifySignature(body, sig, s.cfg.HTTP.WebhookSecret) {
		s.log.Warn("webhook signature rejected", zap.String("remote", r.RemoteAddr))
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	ev, err := razorpay.ParseEvent(body)
	if err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if !razorpay.IsPaidEvent(ev.Name) {
		s.log.Debug("webhook event ignored", zap.String("event", ev.Name))
		io.WriteString(w, "ignored")
		return
	}

	userID := ev.TelegramUserID()
	plan := payment.Plan(ev.Plan())

	s.store.RecordPurchase(state.Purchase{
		Time:   state.Timestamp{Time: time.Now().In(state.IST)},
		UserID: userID,
		Plan:   plan,
		Event:  ev.Name,
		Notes:  ev.Notes,
	})
	s.log.Info("webhook payment recorded",
		zap.String("event", ev.Name),
		zap.Int64("user_id", userID),
		zap.String("plan", string(plan)))

	if userID != 0 && plan.Valid() {
		if err := s.granter.Grant(userID, plan); err != nil {
			// The purchase is already logged; the join-request
			// flow will still admit the user later.
			s.log.Error("webhook grant failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	} else {
		s.log.Warn("webhook notes missing user or plan; recorded only",
			zap.Any("notes", ev.Notes))
	}

	io.WriteString(w, "ok")
}
