package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// What a response body identifies, for cleanup tracking.
type subject int

const (
	subjectNone subject = iota
	subjectReceipt
	subjectReceiptError
)

func (w *World) invoke(step string, what subject, call func() (*helpdesk.Response, error)) error {
	if err := w.enter(step, PhaseInvoked, PhaseIdle, PhaseSeeded, PhaseInvoked, PhaseAsserted); err != nil {
		return err
	}
	resp, err := call()
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}

	w.Response = resp
	w.Body = nil
	// Any body that parses as a JSON object is kept, whatever its declared
	// media type: charset parameters, problem+json and mislabelled text all
	// occur in practice.
	var body map[string]any
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
		w.Body = body
	}

	// Documents produced by the services under test are cleaned up too.
	if resp.IsSuccess() {
		if id, ok := w.Body["id"].(string); ok && id != "" {
			switch what {
			case subjectReceipt:
				w.ReceiptID = id
			case subjectReceiptError:
				w.ReceiptErrorID = id
			}
		}
	}
	return nil
}

func (w *World) WhenGetReceipt(ctx context.Context, eventID string) error {
	return w.invoke("getReceipt", subjectReceipt, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetReceipt(ctx, eventID)
	})
}

func (w *World) WhenGetReceiptByOrganizationFiscalCodeAndIUV(ctx context.Context, orgCode, iuv string) error {
	return w.invoke("getReceiptByOrganizationFiscalCodeAndIUV", subjectReceipt, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetReceiptByOrganizationFiscalCodeAndIUV(ctx, orgCode, iuv)
	})
}

func (w *World) WhenGetReceiptError(ctx context.Context, bizEventID string) error {
	return w.invoke("getReceiptError", subjectReceiptError, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetReceiptError(ctx, bizEventID)
	})
}

func (w *World) WhenGetReceiptPdf(ctx context.Context, fileName string) error {
	return w.invoke("getReceiptPdf", subjectNone, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetReceiptPdf(ctx, fileName)
	})
}

func (w *World) WhenGetReceiptMessage(ctx context.Context, messageID string) error {
	return w.invoke("getReceiptMessage", subjectNone, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetReceiptMessage(ctx, messageID)
	})
}

func (w *World) WhenGetCartReceipt(ctx context.Context, cartID string) error {
	return w.invoke("getCartReceipt", subjectReceipt, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetCartReceipt(ctx, cartID)
	})
}

func (w *World) WhenGetCartReceiptByOrganizationFiscalCodeAndIUV(ctx context.Context, orgCode, iuv string) error {
	return w.invoke("getCartReceiptByOrganizationFiscalCodeAndIUV", subjectReceipt, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetCartReceiptByOrganizationFiscalCodeAndIUV(ctx, orgCode, iuv)
	})
}

func (w *World) WhenGetCartReceiptError(ctx context.Context, cartID string) error {
	return w.invoke("getCartReceiptError", subjectReceiptError, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetCartReceiptError(ctx, cartID)
	})
}

func (w *World) WhenGetCartReceiptMessage(ctx context.Context, messageID string) error {
	return w.invoke("getCartReceiptMessage", subjectNone, func() (*helpdesk.Response, error) {
		return w.deps.Helpdesk.GetCartReceiptMessage(ctx, messageID)
	})
}
