package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tollgate/internal/payment"
	"tollgate/internal/state"
)

// paymentWindow is how long the buyer gets before the shown deadline.
const paymentWindow = 30 * time.Minute

const deadlineLayout = "02 Jan 2006, 03:04 PM"

// Callback data values. Admin review actions carry the pending
// payment ID after the colon.
const (
	cbPlanPrefix   = "plan_"
	cbPayPrefix    = "pay_"
	cbHelp         = "plan_help"
	cbBackToStart  = "back_start"
	cbApprove      = "approve"
	cbDecline      = "decline"
	cbSendLink     = "sendlink"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.store.AddKnownUser(msg.From.ID)
	b.sendStartMenu(msg.Chat.ID)
}

func (b *Bot) sendStartMenu(chatID int64) {
	prices := b.store.Prices()
	vipAmount, _ := payment.Quote(prices, payment.PlanVIP, payment.MethodUPI)
	darkAmount, _ := payment.Quote(prices, payment.PlanDark, payment.MethodUPI)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💎 VIP Channel (₹%s)", fmtAmount(vipAmount)), "plan_vip"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🕶 Dark Channel (₹%s)", fmtAmount(darkAmount)), "plan_dark"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔥 Both (30% OFF)", "plan_both"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆘 Help", cbHelp),
		),
	)

	text := "Welcome to Payment Bot 👋\n\n" +
		"Choose what you want to unlock:\n" +
		"• 💎 VIP Channel – premium content\n" +
		"• 🕶 Dark Channel – ultra premium\n" +
		"• 🔥 Both – combo offer with 30% OFF\n\n" +
		"After you choose a plan, I'll show payment options."

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = keyboard
	b.send(reply)
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Debug("callback ack failed", zap.Error(err))
	}

	data := query.Data
	switch {
	case data == cbHelp:
		b.handleHelp(query)
	case data == cbBackToStart:
		b.sendStartMenu(query.Message.Chat.ID)
	case strings.HasPrefix(data, cbPlanPrefix):
		b.handlePlanChoice(query, payment.Plan(strings.TrimPrefix(data, cbPlanPrefix)))
	case strings.HasPrefix(data, cbPayPrefix):
		b.handleMethodChoice(query, payment.Method(strings.TrimPrefix(data, cbPayPrefix)))
	case strings.HasPrefix(data, cbApprove+":"),
		strings.HasPrefix(data, cbDecline+":"),
		strings.HasPrefix(data, cbSendLink+":"):
		b.handleReviewAction(query)
	}
}

func (b *Bot) handleHelp(query *tgbotapi.CallbackQuery) {
	contact := strings.ReplaceAll(b.cfg.Telegram.HelpContact, "_", "\\_")
	text := "🆘 *Help & Support*\n\n" +
		fmt.Sprintf("For assistance, contact: %s\n\nType /start anytime to restart.", contact)
	b.editOrReply(query, text, nil)
}

func (b *Bot) handlePlanChoice(query *tgbotapi.CallbackQuery, plan payment.Plan) {
	if !plan.Valid() {
		return
	}
	userID := query.From.ID
	b.sessions.selectPlan(userID, plan)

	prices := b.store.Prices()
	upiAmount, _ := payment.Quote(prices, plan, payment.MethodUPI)
	cryptoAmount, _ := payment.Quote(prices, plan, payment.MethodCrypto)
	remitAmount, _ := payment.Quote(prices, plan, payment.MethodRemitly)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💳 UPI (₹%s)", fmtAmount(upiAmount)), "pay_upi"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🪙 Crypto ($%s)", fmtAmount(cryptoAmount)), "pay_crypto"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🌍 Remitly (₹%s)", fmtAmount(remitAmount)), "pay_remitly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cbBackToStart),
		),
	)

	text := fmt.Sprintf("You selected: *%s*\n\nChoose your payment method below:", plan.Label())
	b.editOrReply(query, text, &keyboard)
}

func (b *Bot) handleMethodChoice(query *tgbotapi.CallbackQuery, method payment.Method) {
	if !method.Valid() {
		return
	}
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	plan, ok := b.sessions.selectedPlan(userID)
	if !ok {
		b.reply(chatID, "First choose a plan with /start before selecting payment method.")
		return
	}

	deadline := time.Now().In(state.IST).Add(paymentWindow)
	b.sessions.awaitProof(userID, method, deadline)

	amount, _ := payment.Quote(b.store.Prices(), plan, method)
	deadlineStr := deadline.Format(deadlineLayout) + " IST"

	switch method {
	case payment.MethodUPI:
		b.replyMarkdown(chatID, b.upiInstructions(plan, amount, deadlineStr))
		if qr := b.cfg.Payment.UPIQRURL; qr != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(qr))
			photo.Caption = fmt.Sprintf("📷 Scan this QR to pay.\nUPI ID: `%s`", b.upiID())
			photo.ParseMode = tgbotapi.ModeMarkdown
			b.send(photo)
		}
	case payment.MethodCrypto:
		b.replyMarkdown(chatID, b.cryptoInstructions(plan, amount, deadlineStr))
	case payment.MethodRemitly:
		b.replyMarkdown(chatID, b.remitlyInstructions(plan, amount, deadlineStr))
	}
}

func (b *Bot) upiInstructions(plan payment.Plan, amount float64, deadline string) string {
	return "🧾 *UPI Payment Instructions*\n\n" +
		fmt.Sprintf("Plan: *%s*\n", plan.Label()) +
		fmt.Sprintf("Amount: *₹%s*\n\n", fmtAmount(amount)) +
		fmt.Sprintf("UPI ID: `%s`\n\n", b.upiID()) +
		"1️⃣ Open any UPI app (GPay, PhonePe, Paytm, etc.)\n" +
		"2️⃣ Choose *Scan & Pay* or *Pay UPI ID*\n" +
		"3️⃣ Either scan the QR image below or pay directly to the UPI ID above.\n" +
		"4️⃣ Enter the amount shown above and confirm.\n\n" +
		fmt.Sprintf("If you're confused, see this guide: %s\n\n", b.cfg.Payment.UPIGuideLink) +
		fmt.Sprintf("⏳ Time limit: until *%s*\n\n", deadline) +
		"After payment send screenshot/photo here plus optional UTR."
}

func (b *Bot) cryptoInstructions(plan payment.Plan, amount float64, deadline string) string {
	return "🪙 *Crypto Payment Instructions*\n\n" +
		fmt.Sprintf("Plan: *%s*\n", plan.Label()) +
		fmt.Sprintf("Amount: *$%s*\n\n", fmtAmount(amount)) +
		fmt.Sprintf("Network: `%s`\n", b.cfg.Payment.CryptoNetwork) +
		fmt.Sprintf("Address: `%s`\n\n", b.cryptoAddress()) +
		fmt.Sprintf("⏳ Time limit: until *%s*\n\n", deadline) +
		"After payment send screenshot/photo + TXID here."
}

func (b *Bot) remitlyInstructions(plan payment.Plan, amount float64, deadline string) string {
	return "🌍 *Remitly Payment Instructions*\n\n" +
		fmt.Sprintf("Plan: *%s*\n", plan.Label()) +
		fmt.Sprintf("Amount: *₹%s*\n\n", fmtAmount(amount)) +
		fmt.Sprintf("Extra info: %s\n\n", b.remitlyInfo()) +
		fmt.Sprintf("⏳ Time limit: until *%s*\n\n", deadline) +
		"After payment send screenshot/photo here."
}

// handleProof records a submitted screenshot/document as a pending
// payment and hands it to the admin for review.
func (b *Bot) handleProof(msg *tgbotapi.Message) {
	userID := msg.From.ID
	plan, method, ok := b.sessions.pending(userID)
	if !ok {
		return
	}

	amount, currency := payment.Quote(b.store.Prices(), plan, method)
	paymentID := uuid.NewString()
	b.store.PutPending(paymentID, state.PendingPayment{
		UserID:   userID,
		Username: msg.From.UserName,
		Plan:     plan,
		Method:   method,
		Amount:   amount,
		Currency: currency,
	})

	b.log.Info("payment proof received",
		zap.String("payment_id", paymentID),
		zap.Int64("user_id", userID),
		zap.String("plan", string(plan)),
		zap.String("method", string(method)))

	adminID := b.cfg.Telegram.AdminChatID
	if _, err := b.api.Send(tgbotapi.NewForward(adminID, msg.Chat.ID, msg.MessageID)); err != nil {
		b.log.Warn("proof forward failed", zap.Error(err))
	}

	username := msg.From.UserName
	if username == "" {
		username = "NoUsername"
	}
	review := tgbotapi.NewMessage(adminID, fmt.Sprintf(
		"💰 New payment request\nFrom: @%s (ID: %d)\nPlan: %s\nMethod: %s\nAmount: %s %s\nPayment ID: %s\n\nCheck forwarded message and choose:",
		username, userID, plan.Label(), strings.ToUpper(string(method)),
		fmtAmount(amount), currency, paymentID))
	review.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", cbApprove+":"+paymentID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline", cbDecline+":"+paymentID),
		),
	)
	b.send(review)

	b.reply(msg.Chat.ID, "✅ Payment proof received. We'll verify and send access after approval.")
}

// handleText nags users who type instead of sending a screenshot, but
// only while proof is actually awaited.
func (b *Bot) handleText(msg *tgbotapi.Message) {
	if _, _, ok := b.sessions.pending(msg.From.ID); !ok {
		return
	}
	b.replyMarkdown(msg.Chat.ID,
		"⚠️ Please send a screenshot/photo or document of your payment only. Plain text messages cannot be verified.")
}

// handleJoinRequest approves a channel join request only when the
// purchase log shows a plan covering that channel.
func (b *Bot) handleJoinRequest(req *tgbotapi.ChatJoinRequest) {
	userID := req.From.ID
	chatID := req.Chat.ID
	b.log.Info("join request",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
		zap.String("username", req.From.UserName))

	allowed := false
	switch chatID {
	case b.vipChannel():
		allowed = b.store.HasPurchase(userID, payment.Plan.CoversVIP)
	case b.darkChannel():
		allowed = b.store.HasPurchase(userID, payment.Plan.CoversDark)
	}

	if allowed {
		if _, err := b.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
			UserID:     userID,
		}); err != nil {
			b.log.Warn("join approve failed", zap.Error(err), zap.Int64("user_id", userID))
			return
		}
		b.reply(userID, "✅ Your join request has been approved — welcome!")
		return
	}

	if _, err := b.api.Request(tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}); err != nil {
		b.log.Warn("join decline failed", zap.Error(err), zap.Int64("user_id", userID))
		return
	}
	b.reply(userID, "❌ We couldn't verify a purchase for this channel. Contact support.")
}

// editOrReply edits the callback's message in place, falling back to
// a fresh message when the edit is rejected (e.g. message too old).
func (b *Bot) editOrReply(query *tgbotapi.CallbackQuery, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	chatID := query.Message.Chat.ID
	var edit tgbotapi.EditMessageTextConfig
	if keyboard != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, query.Message.MessageID, text, *keyboard)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, text)
	}
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		b.send(msg)
	}
}
