package datastore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/blob"
	"github.com/roach88/receiptcheck/internal/fixture"
	"github.com/roach88/receiptcheck/internal/payload"
	"github.com/roach88/receiptcheck/internal/store"
)

type env struct {
	gw       *Gateway
	receipts store.Database
	cipher   *payload.Cipher
}

func newEnv(t *testing.T) env {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cipher, err := payload.New("secret", "salt")
	require.NoError(t, err)

	receipts := s.Database("receipts")
	return env{
		gw:       New(s.Database("biz"), receipts, DefaultContainers(), cipher),
		receipts: receipts,
		cipher:   cipher,
	}
}

func TestGateway_ReceiptRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.gw.CreateReceipt(ctx, "evt-1", "FC", "evt-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, 201, created.StatusCode)
	assert.Equal(t, "evt-1", created.Doc.EventID)

	got, err := e.gw.GetReceipt(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, created.Doc, got)

	require.NoError(t, e.gw.DeleteReceipt(ctx, "evt-1"))
	_, err = e.gw.GetReceipt(ctx, "evt-1")
	assert.True(t, store.IsNotFound(err))
}

func TestGateway_DeletesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := newEnv(t).gw

	deletes := map[string]func() error{
		"biz event":            func() error { return gw.DeleteBizEvent(ctx, "none") },
		"receipt":              func() error { return gw.DeleteReceipt(ctx, "none") },
		"receipt error":        func() error { return gw.DeleteReceiptError(ctx, "none") },
		"receipt message":      func() error { return gw.DeleteReceiptMessage(ctx, "none") },
		"cart":                 func() error { return gw.DeleteCartReceipt(ctx, "none") },
		"cart receipt error":   func() error { return gw.DeleteCartReceiptError(ctx, "none") },
		"cart receipt message": func() error { return gw.DeleteCartReceiptMessage(ctx, "none") },
	}
	for name, del := range deletes {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, del())
			assert.NoError(t, del())
		})
	}

	n, err := gw.DeleteReceiptsByEventID(ctx, "none")
	assert.NoError(t, err)
	assert.Zero(t, n)
	n, err = gw.DeleteReceiptErrorsByEventID(ctx, "none")
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestGateway_CreateTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	gw := newEnv(t).gw

	_, err := gw.CreateBizEvent(ctx, "evt-1", "DONE")
	require.NoError(t, err)

	_, err = gw.CreateBizEvent(ctx, "evt-1", "DONE")
	assert.True(t, store.IsConflict(err))

	require.NoError(t, gw.DeleteBizEvent(ctx, "evt-1"))
	_, err = gw.CreateBizEvent(ctx, "evt-1", "DONE")
	assert.NoError(t, err)
}

func TestGateway_CreateRejectsInvalidFixture(t *testing.T) {
	_, err := newEnv(t).gw.CreateReceiptWithStatus(context.Background(), "evt-1", "NOT_A_STATUS")

	var verr *fixture.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGateway_ReceiptErrorPayloadDecrypts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	created, err := e.gw.CreateReceiptError(ctx, "evt-err", "")
	require.NoError(t, err)
	assert.Equal(t, fixture.ReceiptErrorStatusToReview, created.Doc.Status)

	plain, err := e.cipher.Decrypt(created.Doc.MessagePayload)
	require.NoError(t, err)

	var ev fixture.BizEvent
	require.NoError(t, json.Unmarshal([]byte(plain), &ev))
	assert.Equal(t, "evt-err", ev.ID)
}

func TestGateway_DeleteByEventID(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	receipts := e.receipts.Container(DefaultContainers().Receipts)

	// Two receipts for the same event (debtor and payer) plus an unrelated one.
	for _, r := range []fixture.Receipt{
		fixture.NewReceipt("evt-1", "FC", "a.pdf"),
		{EventID: "evt-1", ID: "evt-1-payer", Status: "IO_NOTIFIED"},
		fixture.NewReceipt("evt-2", "FC", "b.pdf"),
	} {
		_, err := receipts.Create(ctx, r.ID, r.ID, r)
		require.NoError(t, err)
	}

	n, err := e.gw.DeleteReceiptsByEventID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = e.gw.GetReceipt(ctx, "evt-2")
	assert.NoError(t, err)
}

func TestGateway_CartAndMessages(t *testing.T) {
	ctx := context.Background()
	gw := newEnv(t).gw

	cart, err := gw.CreateCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cart.Doc.ID)

	cerr, err := gw.CreateCartReceiptError(ctx, "cart-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, cerr.Doc.MessagePayload)

	msg, err := gw.CreateReceiptMessage(ctx, "evt-1", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)

	cmsg, err := gw.CreateCartReceiptMessage(ctx, "cart-1", "msg-2")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cmsg.Doc.CartID)

	assert.NoError(t, gw.DeleteCartReceipt(ctx, "cart-1"))
	assert.NoError(t, gw.DeleteCartReceiptError(ctx, "cart-1"))
	assert.NoError(t, gw.DeleteReceiptMessage(ctx, "msg-1"))
	assert.NoError(t, gw.DeleteCartReceiptMessage(ctx, "msg-2"))
}

func TestGateway_NoCipher(t *testing.T) {
	s, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	gw := New(s.Database("biz"), s.Database("receipts"), DefaultContainers(), nil)
	_, err = gw.CreateReceiptError(context.Background(), "evt-1", "")
	assert.ErrorContains(t, err, "no payload cipher")
}

func TestBlobs_UploadAndDelete(t *testing.T) {
	ctx := context.Background()
	bs, err := blob.OpenSQLite(":memory:", "pdf")
	require.NoError(t, err)
	defer bs.Close()
	b := NewBlobs(bs)

	path := filepath.Join(t.TempDir(), "r.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	res, err := b.UploadPDF(ctx, "r.pdf", path)
	require.NoError(t, err)
	assert.Equal(t, 201, res.StatusCode)

	ok, err := b.PDFExists(ctx, "r.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.DeletePDF(ctx, "r.pdf"))
	require.NoError(t, b.DeletePDF(ctx, "r.pdf"))

	res, err = b.UploadPDF(ctx, "x.pdf", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Equal(t, 500, res.StatusCode)
}
