package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
)

type cleanupTask struct {
	entity string
	id     string
	run    func(ctx context.Context, id string) error
}

// Cleanup deletes every tracked document, blob and local file, then resets
// the World. Every task runs even after a failure; failures are logged at
// warn level and returned joined. Running it twice is harmless.
func (w *World) Cleanup(ctx context.Context) error {
	ds, blobs := w.deps.Datastore, w.deps.Blobs

	byEventID := func(remove func(context.Context, string) (int, error)) func(context.Context, string) error {
		return func(ctx context.Context, id string) error {
			_, err := remove(ctx, id)
			return err
		}
	}

	var tasks []cleanupTask
	add := func(id, entity string, run func(context.Context, string) error) {
		if id != "" {
			tasks = append(tasks, cleanupTask{entity: entity, id: id, run: run})
		}
	}

	if ds != nil {
		add(w.EventID, "biz-event", ds.DeleteBizEvent)
		add(w.EventID, "receipts-by-event", byEventID(ds.DeleteReceiptsByEventID))
		add(w.EventID, "receipt-errors-by-event", byEventID(ds.DeleteReceiptErrorsByEventID))
		add(w.ReceiptID, "receipt", ds.DeleteReceipt)
		add(w.ReceiptID, "cart-receipt", ds.DeleteCartReceipt)
		add(w.ReceiptErrorID, "receipt-error", ds.DeleteReceiptError)
		add(w.ReceiptErrorID, "cart-receipt-error", ds.DeleteCartReceiptError)
	}
	if blobs != nil {
		add(w.ReceiptPdfFileName, "receipt-pdf", blobs.DeletePDF)
	}
	for _, f := range w.localFiles {
		add(f, "local-file", removeLocal)
	}
	if ds != nil {
		add(w.MessageID, "receipt-io-message", ds.DeleteReceiptMessage)
		add(w.MessageID, "cart-receipt-io-message", ds.DeleteCartReceiptMessage)
		add(w.CartID, "cart-receipt", ds.DeleteCartReceipt)
		add(w.CartErrorID, "cart-receipt-error", ds.DeleteCartReceiptError)
	}

	var errs []error
	for _, task := range tasks {
		if err := task.run(ctx, task.id); err != nil {
			w.deps.Logger.Warn("cleanup failed",
				"entity", task.entity,
				"id", task.id,
				"error", err)
			errs = append(errs, fmt.Errorf("cleanup %s %s: %w", task.entity, task.id, err))
		}
	}

	w.reset()
	return errors.Join(errs...)
}

func removeLocal(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
