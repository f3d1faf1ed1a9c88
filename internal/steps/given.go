package steps

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/roach88/receiptcheck/internal/store"
)

// AssertionError is a failed expectation. The scenario stops at the first one.
type AssertionError struct {
	Step     string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %v, got %v", e.Step, e.Expected, e.Actual)
}

func (w *World) seed(step string) error {
	return w.enter(step, PhaseSeeded, PhaseIdle, PhaseSeeded)
}

// created checks a datastore write: the error first, then the status.
func created(step string, res store.WriteResult, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if res.StatusCode != http.StatusCreated {
		return &AssertionError{Step: step, Expected: http.StatusCreated, Actual: res.StatusCode}
	}
	return nil
}

// GivenBizEvent stores biz event id with status.
func (w *World) GivenBizEvent(ctx context.Context, id, status string) error {
	const step = "biz event stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.EventID = id
	if err := w.deps.Datastore.DeleteBizEvent(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateBizEvent(ctx, id, status)
	return created(step, res.WriteResult, err)
}

// GivenBizEventWithIUV stores biz event id for the notice (orgCode, iuv).
func (w *World) GivenBizEventWithIUV(ctx context.Context, id, status, orgCode, iuv string) error {
	const step = "biz event with IUV stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.EventID = id
	if err := w.deps.Datastore.DeleteBizEvent(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateBizEventWithIUV(ctx, id, status, orgCode, iuv)
	return created(step, res.WriteResult, err)
}

// GivenReceipt stores a receipt for eventID with status.
func (w *World) GivenReceipt(ctx context.Context, eventID, status string) error {
	const step = "receipt stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.EventID = eventID
	w.ReceiptID = eventID
	if err := w.deps.Datastore.DeleteReceipt(ctx, eventID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateReceiptWithStatus(ctx, eventID, status)
	return created(step, res.WriteResult, err)
}

// GivenReceiptError stores a parked receipt error for bizEventID.
func (w *World) GivenReceiptError(ctx context.Context, bizEventID, status string) error {
	const step = "receipt-error stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.EventID = bizEventID
	w.ReceiptErrorID = bizEventID
	if err := w.deps.Datastore.DeleteReceiptError(ctx, bizEventID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateReceiptError(ctx, bizEventID, status)
	return created(step, res.WriteResult, err)
}

// GivenReceiptPdf writes an empty local file called fileName and uploads it
// under the same name. Only a 500 upload status fails the step.
func (w *World) GivenReceiptPdf(ctx context.Context, fileName string) error {
	const step = "receipt pdf stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.ReceiptPdfFileName = fileName
	if err := w.deps.Blobs.DeletePDF(ctx, fileName); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}

	local := filepath.Join(w.deps.WorkDir, fileName)
	if err := os.WriteFile(local, nil, 0o644); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", step, local, err)
	}
	w.localFiles = append(w.localFiles, local)

	res, err := w.deps.Blobs.UploadPDF(ctx, fileName, local)
	if res.StatusCode == http.StatusInternalServerError {
		return &AssertionError{Step: step, Expected: "status != 500", Actual: res.StatusCode}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// GivenReceiptMessage stores the IO message messageID sent for eventID.
func (w *World) GivenReceiptMessage(ctx context.Context, eventID, messageID string) error {
	const step = "receipt-io-message stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.MessageID = messageID
	if err := w.deps.Datastore.DeleteReceiptMessage(ctx, messageID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateReceiptMessage(ctx, eventID, messageID)
	return created(step, res.WriteResult, err)
}

// GivenCart stores the cart cartID.
func (w *World) GivenCart(ctx context.Context, cartID string) error {
	const step = "cart stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.CartID = cartID
	if err := w.deps.Datastore.DeleteCartReceipt(ctx, cartID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateCart(ctx, cartID)
	return created(step, res.WriteResult, err)
}

// GivenCartReceiptError stores a parked cart error for cartID.
func (w *World) GivenCartReceiptError(ctx context.Context, cartID, status string) error {
	const step = "cart-receipt-error stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.CartErrorID = cartID
	if err := w.deps.Datastore.DeleteCartReceiptError(ctx, cartID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateCartReceiptError(ctx, cartID, status)
	return created(step, res.WriteResult, err)
}

// GivenCartReceiptMessage stores the cart IO message messageID for eventID.
func (w *World) GivenCartReceiptMessage(ctx context.Context, eventID, messageID string) error {
	const step = "cart-receipt-io-message stored"
	if err := w.seed(step); err != nil {
		return err
	}
	w.MessageID = messageID
	if err := w.deps.Datastore.DeleteCartReceiptMessage(ctx, messageID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	res, err := w.deps.Datastore.CreateCartReceiptMessage(ctx, eventID, messageID)
	return created(step, res.WriteResult, err)
}
