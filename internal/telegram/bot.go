// Package telegram implements the chat side of tollgate: the buyer
// flow (plan selection, payment instructions, proof submission), the
// admin review flow, runtime reconfiguration commands, and invite
// issuance for the gated channels.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tollgate/internal/config"
	"tollgate/internal/state"
)

// API is the slice of the Telegram client the bot needs. Tests
// substitute a recorder; production passes *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wires updates from Telegram to the payment flow.
type Bot struct {
	api      API
	cfg      *config.Config
	store    *state.Store
	log      *zap.Logger
	sessions *sessionTable
}

// New creates a Bot. The store should already be loaded.
func New(api API, cfg *config.Config, store *state.Store, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		store:    store,
		log:      log,
		sessions: newSessionTable(),
	}
}

// Run consumes updates until the context is cancelled. Handler
// failures are logged and never stop the loop; a single broken update
// must not take the bot down.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.log.Info("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot update loop stopping")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.log.Info("update channel closed")
				return nil
			}
			b.HandleUpdate(update)
		}
	}
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.ChatJoinRequest != nil:
		b.handleJoinRequest(update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 || msg.Document != nil {
		b.handleProof(msg)
		return
	}
	if msg.Text != "" {
		b.handleText(msg)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "broadcast":
		b.adminOnly(msg, b.handleBroadcast)
	case "income":
		b.adminOnly(msg, b.handleIncome)
	case "set_price":
		b.adminOnly(msg, b.handleSetPrice)
	case "set_upi":
		b.adminOnly(msg, b.handleSetUPI)
	case "set_crypto":
		b.adminOnly(msg, b.handleSetCrypto)
	case "set_remitly":
		b.adminOnly(msg, b.handleSetRemitly)
	case "set_vip":
		b.adminOnly(msg, b.handleSetVIP)
	case "set_dark":
		b.adminOnly(msg, b.handleSetDark)
	}
}

// adminOnly silently drops admin commands from anyone else, matching
// the original's behavior of not advertising their existence.
func (b *Bot) adminOnly(msg *tgbotapi.Message, h func(*tgbotapi.Message)) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	h(msg)
}

func (b *Bot) isAdmin(userID int64) bool {
	return userID == b.cfg.Telegram.AdminChatID
}

// Effective settings: the admin overrides persisted in state win over
// the static configuration.

func (b *Bot) vipChannel() int64 {
	if v := b.store.Overrides().Channels.VIP; v != 0 {
		return v
	}
	return b.cfg.Channels.VIP
}

func (b *Bot) darkChannel() int64 {
	if v := b.store.Overrides().Channels.Dark; v != 0 {
		return v
	}
	return b.cfg.Channels.Dark
}

func (b *Bot) upiID() string {
	if v := b.store.Overrides().Payment.UPIID; v != "" {
		return v
	}
	return b.cfg.Payment.UPIID
}

func (b *Bot) cryptoAddress() string {
	if v := b.store.Overrides().Payment.CryptoAddress; v != "" {
		return v
	}
	return b.cfg.Payment.CryptoAddress
}

func (b *Bot) remitlyInfo() string {
	if v := b.store.Overrides().Payment.RemitlyInfo; v != "" {
		return v
	}
	return b.cfg.Payment.RemitlyInfo
}

// send pushes a message and logs delivery failures.
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("send failed", zap.Error(err))
	}
}

// reply sends plain text to a chat.
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// replyMarkdown sends Markdown-formatted text to a chat.
func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

// fmtAmount renders prices the way the original did: whole numbers
// without a decimal point, fractions as set.
func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
