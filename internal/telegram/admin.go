package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tollgate/internal/payment"
	"tollgate/internal/state"
)

// handleBroadcast pushes the admin's message to every known user.
func (b *Bot) handleBroadcast(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /broadcast your message text")
		return
	}

	sent, failed := 0, 0
	for _, uid := range b.store.KnownUsers() {
		if _, err := b.api.Send(tgbotapi.NewMessage(uid, text)); err != nil {
			failed++
			continue
		}
		sent++
	}

	b.log.Info("broadcast done", zap.Int("sent", sent), zap.Int("failed", failed))
	b.reply(msg.Chat.ID, fmt.Sprintf("Broadcast done.\n✅ Sent: %d\n❌ Failed: %d", sent, failed))
}

// handleIncome reports revenue for today, yesterday, or the last week.
func (b *Bot) handleIncome(msg *tgbotapi.Message) {
	window := state.ParseIncomeWindow(strings.ToLower(strings.TrimSpace(msg.CommandArguments())))
	sum := b.store.Income(window, time.Now())

	text := fmt.Sprintf("📊 *Income Insights – %s*\n\n", window.Label()) +
		fmt.Sprintf("Total orders: *%d*\n", sum.Orders) +
		fmt.Sprintf("INR collected: *₹%s*\n", humanize.CommafWithDigits(sum.TotalINR, 2)) +
		fmt.Sprintf("USD collected (crypto): *$%s*\n\n", humanize.CommafWithDigits(sum.TotalUSD, 2)) +
		"_Note: stats persist between restarts._"
	b.replyMarkdown(msg.Chat.ID, text)
}

// handleSetPrice overrides one plan/method amount.
func (b *Bot) handleSetPrice(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		b.reply(msg.Chat.ID, "Usage: /set_price <vip|dark|both> <upi|crypto|remitly> <amount>")
		return
	}

	plan, err := payment.ParsePlan(args[0])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid plan or method.")
		return
	}
	method, err := payment.ParseMethod(args[1])
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid plan or method.")
		return
	}
	amount, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Amount must be a number.")
		return
	}

	b.store.SetPrice(plan, method, amount)
	b.reply(msg.Chat.ID, fmt.Sprintf("Updated price for %s [%s] to %s.", plan.Label(), method, fmtAmount(amount)))
}

func (b *Bot) handleSetUPI(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /set_upi <upi_id>")
		return
	}
	b.store.SetUPIID(args[0])
	b.reply(msg.Chat.ID, fmt.Sprintf("UPI ID updated to: %s", args[0]))
}

func (b *Bot) handleSetCrypto(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /set_crypto <address>")
		return
	}
	b.store.SetCryptoAddress(args[0])
	b.reply(msg.Chat.ID, fmt.Sprintf("Crypto address updated to: %s", args[0]))
}

func (b *Bot) handleSetRemitly(msg *tgbotapi.Message) {
	info := strings.TrimSpace(msg.CommandArguments())
	if info == "" {
		b.reply(msg.Chat.ID, "Usage: /set_remitly <text>")
		return
	}
	b.store.SetRemitlyInfo(info)
	b.reply(msg.Chat.ID, "Remitly info updated.")
}

func (b *Bot) handleSetVIP(msg *tgbotapi.Message) {
	b.setChannel(msg, "/set_vip", func(id int64) {
		b.store.SetVIPChannel(id)
		b.reply(msg.Chat.ID, fmt.Sprintf("VIP channel updated to %d", id))
	})
}

func (b *Bot) handleSetDark(msg *tgbotapi.Message) {
	b.setChannel(msg, "/set_dark", func(id int64) {
		b.store.SetDarkChannel(id)
		b.reply(msg.Chat.ID, fmt.Sprintf("Dark channel updated to %d", id))
	})
}

func (b *Bot) setChannel(msg *tgbotapi.Message, usage string, apply func(int64)) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf("Usage: %s <channel_id>", usage))
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "channel_id must be an integer (e.g. -1001234567890)")
		return
	}
	apply(id)
}

// handleReviewAction processes the admin's approve / decline /
// send-link buttons on a pending payment.
func (b *Bot) handleReviewAction(query *tgbotapi.CallbackQuery) {
	action, paymentID, ok := strings.Cut(query.Data, ":")
	if !ok {
		return
	}

	if !b.isAdmin(query.From.ID) {
		if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(query.ID, "Only admin can use this.")); err != nil {
			b.log.Debug("callback alert failed", zap.Error(err))
		}
		return
	}

	chatID := query.Message.Chat.ID
	pending, found := b.store.Pending(paymentID)
	if !found {
		b.reply(chatID, "⚠️ This payment request was not found or already processed.")
		return
	}

	switch action {
	case cbApprove:
		b.approvePayment(chatID, paymentID, pending)
	case cbSendLink:
		b.deliverInvites(chatID, paymentID, pending)
	case cbDecline:
		b.declinePayment(chatID, paymentID, pending)
	}
}

func (b *Bot) approvePayment(chatID int64, paymentID string, pending state.PendingPayment) {
	b.store.RecordPurchase(state.Purchase{
		Time:     state.Timestamp{Time: time.Now().In(state.IST)},
		UserID:   pending.UserID,
		Username: pending.Username,
		Plan:     pending.Plan,
		Method:   pending.Method,
		Amount:   pending.Amount,
		Currency: pending.Currency,
	})

	// Join-request links: the buyer clicks through and the bot
	// approves against the purchase log.
	links, err := b.createInvites(pending.UserID, pending.Plan, true)
	if err != nil {
		b.log.Error("invite creation failed", zap.Error(err), zap.Int64("user_id", pending.UserID))
	}

	adminMsg := tgbotapi.NewMessage(b.cfg.Telegram.AdminChatID, fmt.Sprintf(
		"✅ Payment approved for user %d.\n\nClick to send single-use access link to the user (one-time).",
		pending.UserID))
	adminMsg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📤 Send access link to user", cbSendLink+":"+paymentID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", cbDecline+":"+paymentID),
		),
	)
	b.send(adminMsg)
	b.reply(chatID, fmt.Sprintf("✅ Approved payment (ID: %s). Admin must click send to deliver link.", paymentID))

	pending.InviteCreated = true
	pending.InviteLinks = links
	b.store.PutPending(paymentID, pending)

	b.log.Info("payment approved",
		zap.String("payment_id", paymentID),
		zap.Int64("user_id", pending.UserID),
		zap.String("plan", string(pending.Plan)))
}

func (b *Bot) deliverInvites(chatID int64, paymentID string, pending state.PendingPayment) {
	sent := b.sendInvites(pending.UserID, pending.Plan, "✅ Access granted!")
	if !sent {
		b.reply(chatID, "⚠️ No invite links available for this user; try re-creating them.")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Invite sent to user %d.", pending.UserID))
	b.store.DeletePending(paymentID)
}

func (b *Bot) declinePayment(chatID int64, paymentID string, pending state.PendingPayment) {
	b.reply(pending.UserID,
		"❌ Your payment could not be verified.\nIf this is a mistake, please send a clearer screenshot or contact support: "+
			b.cfg.Telegram.HelpContact)
	b.reply(chatID, fmt.Sprintf("❌ Declined payment (ID: %s)", paymentID))
	b.store.DeletePending(paymentID)

	b.log.Info("payment declined",
		zap.String("payment_id", paymentID),
		zap.Int64("user_id", pending.UserID))
}
