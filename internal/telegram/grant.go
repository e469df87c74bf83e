package telegram

import (
	"encoding/json"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tollgate/internal/payment"
)

// createInvites issues single-use invite links for every channel the
// plan covers, reusing links already sent to the user. joinRequest
// selects whether the link funnels through a join request (admin
// approval flow) or admits directly (webhook flow).
func (b *Bot) createInvites(userID int64, plan payment.Plan, joinRequest bool) (map[payment.Plan]string, error) {
	links := make(map[payment.Plan]string)
	var errs []error

	issue := func(key payment.Plan, channelID int64) {
		if channelID == 0 {
			return
		}
		if link, ok := b.store.Invite(userID, key); ok {
			links[key] = link
			return
		}
		resp, err := b.api.Request(tgbotapi.CreateChatInviteLinkConfig{
			ChatConfig:         tgbotapi.ChatConfig{ChatID: channelID},
			Name:               fmt.Sprintf("user_%d_%s", userID, key),
			MemberLimit:        1,
			CreatesJoinRequest: joinRequest,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("invite for %s: %w", key, err))
			return
		}
		var invite tgbotapi.ChatInviteLink
		if err := json.Unmarshal(resp.Result, &invite); err != nil {
			errs = append(errs, fmt.Errorf("invite for %s: %w", key, err))
			return
		}
		b.store.SetInvite(userID, key, invite.InviteLink)
		links[key] = invite.InviteLink
	}

	if plan.CoversVIP() {
		issue(payment.PlanVIP, b.vipChannel())
	}
	if plan.CoversDark() {
		issue(payment.PlanDark, b.darkChannel())
	}

	return links, errors.Join(errs...)
}

// sendInvites delivers the user's cached invite links for the plan.
// Returns false when there is nothing to send.
func (b *Bot) sendInvites(userID int64, plan payment.Plan, header string) bool {
	var lines []string
	if plan.CoversVIP() {
		if link, ok := b.store.Invite(userID, payment.PlanVIP); ok {
			lines = append(lines, "🔑 VIP Channel:\n"+link)
		}
	}
	if plan.CoversDark() {
		if link, ok := b.store.Invite(userID, payment.PlanDark); ok {
			lines = append(lines, "🕶 Dark Channel:\n"+link)
		}
	}
	if len(lines) == 0 {
		return false
	}

	text := header + "\n\n" + lines[0]
	for _, line := range lines[1:] {
		text += "\n\n" + line
	}
	b.reply(userID, text)
	return true
}

// Grant is the webhook path: a verified payment immediately issues
// direct (non-join-request) invite links and messages them to the
// buyer.
func (b *Bot) Grant(userID int64, plan payment.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("cannot grant access for plan %q", plan)
	}

	_, err := b.createInvites(userID, plan, false)
	if err != nil {
		b.log.Error("webhook invite creation failed", zap.Error(err), zap.Int64("user_id", userID))
	}

	if !b.sendInvites(userID, plan, "✅ Payment confirmed — here are your access links:") {
		if err != nil {
			return err
		}
		return fmt.Errorf("no invite links available for user %d", userID)
	}
	return err
}
