package razorpay

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// paidEvents are the event names that mean money actually arrived.
// Everything else is acknowledged but ignored.
var paidEvents = map[string]struct{}{
	"payment.captured":   {},
	"payment.authorized": {},
	"payment.link.paid":  {},
	"payment.captured.*": {},
	"payment.paid":       {},
}

// IsPaidEvent reports whether the event name confirms a payment.
func IsPaidEvent(event string) bool {
	_, ok := paidEvents[event]
	return ok
}

// Event is the decoded webhook payload reduced to what tollgate needs.
type Event struct {
	Name  string
	Notes map[string]string
}

// noteMap tolerates Razorpay's habit of serializing empty notes as []
// instead of {}.
type noteMap map[string]json.RawMessage

func (n *noteMap) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		*n = nil
		return nil
	}
	*n = m
	return nil
}

// entity is the payment (or payment link) object inside the payload.
type entity struct {
	Entity struct {
		Notes noteMap `json:"notes"`
	} `json:"entity"`
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment     *entity `json:"payment"`
		PaymentLink *entity `json:"payment_link"`
	} `json:"payload"`
}

// ParseEvent decodes a webhook body. Notes are looked up on the
// payment entity first, then on the payment-link entity; Razorpay
// serializes an empty notes object as an array, and note values may
// be strings or numbers, so decoding is deliberately loose.
func ParseEvent(body []byte) (Event, error) {
	var wp webhookPayload
	if err := json.Unmarshal(body, &wp); err != nil {
		return Event{}, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	ev := Event{Name: wp.Event, Notes: map[string]string{}}

	var raw noteMap
	if wp.Payload.Payment != nil && len(wp.Payload.Payment.Entity.Notes) > 0 {
		raw = wp.Payload.Payment.Entity.Notes
	} else if wp.Payload.PaymentLink != nil && len(wp.Payload.PaymentLink.Entity.Notes) > 0 {
		raw = wp.Payload.PaymentLink.Entity.Notes
	}

	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			ev.Notes[k] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			ev.Notes[k] = n.String()
		}
	}

	return ev, nil
}

// TelegramUserID extracts the buyer's Telegram ID from the notes,
// checking telegram_user_id then telegram_id. Returns 0 when absent
// or unparseable.
func (e Event) TelegramUserID() int64 {
	for _, key := range []string{"telegram_user_id", "telegram_id"} {
		if v, ok := e.Notes[key]; ok {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}

// Plan returns the plan note, empty when absent.
func (e Event) Plan() string {
	return e.Notes["plan"]
}
