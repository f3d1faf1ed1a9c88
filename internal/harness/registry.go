package harness

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/receiptcheck/internal/steps"
)

// Scenario sections.
const (
	SectionGiven = "given"
	SectionWhen  = "when"
	SectionThen  = "then"
)

type args map[string]any

func (a args) str(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (a args) integer(key string) (int, error) {
	switch v := a[key].(type) {
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("argument %s: %q is not an integer", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %s: %v is not an integer", key, v)
	}
}

type stepDef struct {
	section string
	args    []string
	run     func(ctx context.Context, w *steps.World, a args) error
}

var registry = map[string]stepDef{
	"biz_event": {SectionGiven, []string{"id", "status"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenBizEvent(ctx, a.str("id"), a.str("status"))
	}},
	"biz_event_with_iuv": {SectionGiven, []string{"id", "status", "org_code", "iuv"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenBizEventWithIUV(ctx, a.str("id"), a.str("status"), a.str("org_code"), a.str("iuv"))
	}},
	"receipt": {SectionGiven, []string{"event_id", "status"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenReceipt(ctx, a.str("event_id"), a.str("status"))
	}},
	"receipt_error": {SectionGiven, []string{"biz_event_id", "status"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenReceiptError(ctx, a.str("biz_event_id"), a.str("status"))
	}},
	"receipt_pdf": {SectionGiven, []string{"file_name"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenReceiptPdf(ctx, a.str("file_name"))
	}},
	"receipt_message": {SectionGiven, []string{"event_id", "message_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenReceiptMessage(ctx, a.str("event_id"), a.str("message_id"))
	}},
	"cart": {SectionGiven, []string{"cart_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenCart(ctx, a.str("cart_id"))
	}},
	"cart_receipt_error": {SectionGiven, []string{"cart_id", "status"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenCartReceiptError(ctx, a.str("cart_id"), a.str("status"))
	}},
	"cart_receipt_message": {SectionGiven, []string{"event_id", "message_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.GivenCartReceiptMessage(ctx, a.str("event_id"), a.str("message_id"))
	}},

	"get_receipt": {SectionWhen, []string{"event_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetReceipt(ctx, a.str("event_id"))
	}},
	"get_receipt_by_iuv": {SectionWhen, []string{"org_code", "iuv"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetReceiptByOrganizationFiscalCodeAndIUV(ctx, a.str("org_code"), a.str("iuv"))
	}},
	"get_receipt_error": {SectionWhen, []string{"biz_event_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetReceiptError(ctx, a.str("biz_event_id"))
	}},
	"get_receipt_pdf": {SectionWhen, []string{"file_name"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetReceiptPdf(ctx, a.str("file_name"))
	}},
	"get_receipt_message": {SectionWhen, []string{"message_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetReceiptMessage(ctx, a.str("message_id"))
	}},
	"get_cart_receipt": {SectionWhen, []string{"cart_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetCartReceipt(ctx, a.str("cart_id"))
	}},
	"get_cart_receipt_by_iuv": {SectionWhen, []string{"org_code", "iuv"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetCartReceiptByOrganizationFiscalCodeAndIUV(ctx, a.str("org_code"), a.str("iuv"))
	}},
	"get_cart_receipt_error": {SectionWhen, []string{"cart_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetCartReceiptError(ctx, a.str("cart_id"))
	}},
	"get_cart_receipt_message": {SectionWhen, []string{"message_id"}, func(ctx context.Context, w *steps.World, a args) error {
		return w.WhenGetCartReceiptMessage(ctx, a.str("message_id"))
	}},

	"status": {SectionThen, []string{"code"}, func(_ context.Context, w *steps.World, a args) error {
		code, err := a.integer("code")
		if err != nil {
			return err
		}
		return w.ThenStatusIs(code)
	}},
	"receipt_event_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenReceiptHasEventID(a.str("id"))
	}},
	"receipt_error_biz_event_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenReceiptErrorHasBizEventID(a.str("id"))
	}},
	"receipt_error_payload_event_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenReceiptErrorPayloadHasEventID(a.str("id"))
	}},
	"message_event_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenMessageHasEventID(a.str("id"))
	}},
	"message_message_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenMessageHasMessageID(a.str("id"))
	}},
	"receipt_cart_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenReceiptHasCartID(a.str("id"))
	}},
	"cart_error_cart_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenCartErrorHasCartID(a.str("id"))
	}},
	"cart_error_payload_event_id": {SectionThen, []string{"id"}, func(_ context.Context, w *steps.World, a args) error {
		return w.ThenCartErrorPayloadHasEventID(a.str("id"))
	}},
}

// StepNames lists the registered steps of a section, sorted.
func StepNames(section string) []string {
	var names []string
	for name, def := range registry {
		if def.section == section {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
