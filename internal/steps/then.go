package steps

import (
	"encoding/json"
)

func (w *World) assert(step string) error {
	if err := w.enter(step, PhaseAsserted, PhaseInvoked, PhaseAsserted); err != nil {
		return err
	}
	if w.Response == nil {
		return &AssertionError{Step: step, Expected: "a response", Actual: "none"}
	}
	return nil
}

func (w *World) bodyField(step, field, want string) error {
	if err := w.assert(step); err != nil {
		return err
	}
	got, ok := w.Body[field]
	if !ok {
		return &AssertionError{Step: step, Expected: want, Actual: "no " + field + " in body"}
	}
	if got != want {
		return &AssertionError{Step: step, Expected: want, Actual: got}
	}
	return nil
}

// payloadID decodes the messagePayload string of the body and compares the
// id of the biz event inside it.
func (w *World) payloadID(step, want string) error {
	if err := w.assert(step); err != nil {
		return err
	}
	raw, ok := w.Body["messagePayload"].(string)
	if !ok {
		return &AssertionError{Step: step, Expected: "a messagePayload string", Actual: w.Body["messagePayload"]}
	}
	var event struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return &AssertionError{Step: step, Expected: "a JSON messagePayload", Actual: err.Error()}
	}
	if event.ID != want {
		return &AssertionError{Step: step, Expected: want, Actual: event.ID}
	}
	return nil
}

// ThenStatusIs checks the HTTP status of the last response.
func (w *World) ThenStatusIs(want int) error {
	const step = "http status"
	if err := w.assert(step); err != nil {
		return err
	}
	if w.Response.Status != want {
		return &AssertionError{Step: step, Expected: want, Actual: w.Response.Status}
	}
	return nil
}

func (w *World) ThenReceiptHasEventID(id string) error {
	return w.bodyField("receipt eventId", "eventId", id)
}

func (w *World) ThenReceiptErrorHasBizEventID(id string) error {
	return w.bodyField("receipt-error bizEventId", "bizEventId", id)
}

func (w *World) ThenReceiptErrorPayloadHasEventID(id string) error {
	return w.payloadID("receipt-error payload", id)
}

func (w *World) ThenMessageHasEventID(id string) error {
	return w.bodyField("receipt-message eventId", "eventId", id)
}

func (w *World) ThenMessageHasMessageID(id string) error {
	return w.bodyField("receipt-message messageId", "messageId", id)
}

// ThenReceiptHasCartID checks the id of a cart receipt, which is its cart id.
func (w *World) ThenReceiptHasCartID(id string) error {
	return w.bodyField("receipt cartId", "id", id)
}

func (w *World) ThenCartErrorHasCartID(id string) error {
	return w.bodyField("cart-receipt-error cartId", "id", id)
}

func (w *World) ThenCartErrorPayloadHasEventID(id string) error {
	return w.payloadID("cart-receipt-error payload", id)
}
