package steps

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/helpdesk"
	"github.com/roach88/receiptcheck/internal/store"
	"github.com/roach88/receiptcheck/internal/testutil"
)

type env struct {
	backends *testutil.Backends
	world    *World
	workDir  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b := testutil.NewBackends(t)
	fake := testutil.NewFakeServices(t, b)
	hd, err := helpdesk.New(fake.HelpdeskURL(), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	w := NewWorld(Deps{
		Datastore: b.Datastore,
		Blobs:     b.Blobs,
		Helpdesk:  hd,
		WorkDir:   dir,
	})
	return &env{backends: b, world: w, workDir: dir}
}

func TestReceiptScenario(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenReceipt(ctx, "evt-1", "IO_NOTIFIED"))
	assert.Equal(t, PhaseSeeded, w.Phase())

	require.NoError(t, w.WhenGetReceipt(ctx, "evt-1"))
	assert.Equal(t, PhaseInvoked, w.Phase())

	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenReceiptHasEventID("evt-1"))
	assert.Equal(t, PhaseAsserted, w.Phase())

	require.NoError(t, w.Cleanup(ctx))
	assert.Equal(t, PhaseCleanedUp, w.Phase())
	assert.Empty(t, w.EventID)
	assert.Nil(t, w.Response)

	_, err := e.backends.Datastore.GetReceipt(ctx, "evt-1")
	assert.True(t, store.IsNotFound(err))
}

func TestReceiptAssertionFailure(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenReceipt(ctx, "evt-1", ""))
	require.NoError(t, w.WhenGetReceipt(ctx, "evt-1"))

	err := w.ThenReceiptHasEventID("evt-2")
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "evt-2", aerr.Expected)
	assert.Equal(t, "evt-1", aerr.Actual)
}

func TestReceiptErrorNotFound(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.WhenGetReceiptError(ctx, "no-such-event"))
	require.NoError(t, w.ThenStatusIs(404))

	var aerr *AssertionError
	assert.ErrorAs(t, w.ThenStatusIs(200), &aerr)
}

func TestReceiptErrorPayload(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenReceiptError(ctx, "evt-err", "TO_REVIEW"))
	require.NoError(t, w.WhenGetReceiptError(ctx, "evt-err"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenReceiptErrorHasBizEventID("evt-err"))
	require.NoError(t, w.ThenReceiptErrorPayloadHasEventID("evt-err"))

	require.NoError(t, w.Cleanup(ctx))
	var doc map[string]any
	err := e.backends.Receipts(e.backends.Containers.ReceiptErrors).Read(ctx, "evt-err", "evt-err", &doc)
	assert.True(t, store.IsNotFound(err))
}

func TestReceiptByOrganizationFiscalCodeAndIUV(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenBizEventWithIUV(ctx, "evt-iuv", "DONE", "80012345678", "iuv-7"))
	require.NoError(t, w.GivenReceipt(ctx, "evt-iuv", "IO_NOTIFIED"))
	require.NoError(t, w.WhenGetReceiptByOrganizationFiscalCodeAndIUV(ctx, "80012345678", "iuv-7"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenReceiptHasEventID("evt-iuv"))

	require.NoError(t, w.Cleanup(ctx))
	var doc map[string]any
	err := e.backends.BizEvents().Read(ctx, "evt-iuv", "evt-iuv", &doc)
	assert.True(t, store.IsNotFound(err))
}

func TestReceiptPdf(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenReceiptPdf(ctx, "receipt.pdf"))
	local := filepath.Join(e.workDir, "receipt.pdf")
	assert.FileExists(t, local)

	require.NoError(t, w.WhenGetReceiptPdf(ctx, "receipt.pdf"))
	require.NoError(t, w.ThenStatusIs(200))
	assert.Equal(t, "application/pdf", w.Response.ContentType())

	require.NoError(t, w.Cleanup(ctx))
	exists, err := e.backends.Blobs.PDFExists(ctx, "receipt.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))
}

func TestReceiptMessages(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenReceiptMessage(ctx, "evt-msg", "msg-1"))
	require.NoError(t, w.GivenCartReceiptMessage(ctx, "cart-msg", "msg-1"))

	require.NoError(t, w.WhenGetReceiptMessage(ctx, "msg-1"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenMessageHasEventID("evt-msg"))
	require.NoError(t, w.ThenMessageHasMessageID("msg-1"))

	require.NoError(t, w.WhenGetCartReceiptMessage(ctx, "msg-1"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenMessageHasEventID("cart-msg"))

	assert.Equal(t, "msg-1", w.MessageID)
	require.NoError(t, w.Cleanup(ctx))

	var doc map[string]any
	err := e.backends.Receipts(e.backends.Containers.ReceiptMessages).Read(ctx, "msg-1", "msg-1", &doc)
	assert.True(t, store.IsNotFound(err))
	err = e.backends.Receipts(e.backends.Containers.CartReceiptMessages).Read(ctx, "msg-1", "msg-1", &doc)
	assert.True(t, store.IsNotFound(err))
}

func TestCartScenarios(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	require.NoError(t, w.GivenCart(ctx, "cart-1"))
	require.NoError(t, w.GivenCartReceiptError(ctx, "cart-1", "TO_REVIEW"))

	require.NoError(t, w.WhenGetCartReceipt(ctx, "cart-1"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenReceiptHasCartID("cart-1"))

	require.NoError(t, w.WhenGetCartReceiptError(ctx, "cart-1"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenCartErrorHasCartID("cart-1"))
	require.NoError(t, w.ThenCartErrorPayloadHasEventID("cart-1"))

	require.NoError(t, w.Cleanup(ctx))
	var doc map[string]any
	err := e.backends.Receipts(e.backends.Containers.CartReceipts).Read(ctx, "cart-1", "cart-1", &doc)
	assert.True(t, store.IsNotFound(err))
}

func TestCartByOrganizationFiscalCodeAndIUV(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	// Seeded biz events belong to transaction 123456, which is the cart id.
	require.NoError(t, w.GivenBizEventWithIUV(ctx, "evt-cart", "DONE", "80012345678", "iuv-c"))
	require.NoError(t, w.GivenCart(ctx, "123456"))
	require.NoError(t, w.WhenGetCartReceiptByOrganizationFiscalCodeAndIUV(ctx, "80012345678", "iuv-c"))
	require.NoError(t, w.ThenStatusIs(200))
	require.NoError(t, w.ThenReceiptHasCartID("123456"))
	require.NoError(t, w.Cleanup(ctx))
}

func TestPhaseOrdering(t *testing.T) {
	e := newEnv(t)
	w := e.world
	ctx := context.Background()

	var perr *PhaseError
	require.ErrorAs(t, w.ThenStatusIs(200), &perr)
	assert.Equal(t, PhaseIdle, perr.Phase)

	require.NoError(t, w.WhenGetReceipt(ctx, "evt-x"))
	require.ErrorAs(t, w.GivenBizEvent(ctx, "evt-x", "DONE"), &perr)
	assert.Equal(t, PhaseInvoked, perr.Phase)

	require.NoError(t, w.Cleanup(ctx))
	require.ErrorAs(t, w.WhenGetReceipt(ctx, "evt-x"), &perr)
	assert.Equal(t, PhaseCleanedUp, perr.Phase)
}

func TestGivenIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.world.GivenBizEvent(ctx, "evt-dup", "DONE"))
	require.NoError(t, e.world.GivenBizEvent(ctx, "evt-dup", "DONE"))
	require.NoError(t, e.world.Cleanup(ctx))
}

func TestCleanupIsRepeatable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.world.GivenReceipt(ctx, "evt-1", ""))
	require.NoError(t, e.world.Cleanup(ctx))
	require.NoError(t, e.world.Cleanup(ctx))
}

func TestCleanupLogsAndContinues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var logs bytes.Buffer
	e.world.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	require.NoError(t, e.world.GivenBizEvent(ctx, "evt-1", "DONE"))
	require.NoError(t, e.world.GivenCart(ctx, "cart-1"))
	require.NoError(t, e.backends.Store.Close())

	err := e.world.Cleanup(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "biz-event evt-1")
	assert.Contains(t, err.Error(), "cart-receipt cart-1")
	assert.Contains(t, logs.String(), "cleanup failed")
	assert.Contains(t, logs.String(), "entity=biz-event")
	assert.Contains(t, logs.String(), "id=cart-1")
	assert.Equal(t, PhaseCleanedUp, e.world.Phase())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "seeded", PhaseSeeded.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}

func TestResponseBodyDecodedForJSONVariants(t *testing.T) {
	tests := map[string]string{
		"charset":     "application/json; charset=utf-8",
		"problem":     "application/problem+json",
		"mislabelled": "text/plain",
		"no header":   "",
	}
	for name, contentType := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if contentType != "" {
					w.Header().Set("Content-Type", contentType)
				}
				w.Write([]byte(`{"id":"evt-json","eventId":"evt-json"}`))
			}))
			t.Cleanup(srv.Close)

			hd, err := helpdesk.New(srv.URL, nil)
			require.NoError(t, err)
			w := NewWorld(Deps{Helpdesk: hd, WorkDir: t.TempDir()})

			require.NoError(t, w.WhenGetReceipt(context.Background(), "evt-json"))
			require.NoError(t, w.ThenReceiptHasEventID("evt-json"))
			assert.Equal(t, "evt-json", w.ReceiptID, "the returned receipt is tracked for cleanup")
		})
	}
}

func TestResponseBodyNotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	t.Cleanup(srv.Close)

	hd, err := helpdesk.New(srv.URL, nil)
	require.NoError(t, err)
	w := NewWorld(Deps{Helpdesk: hd, WorkDir: t.TempDir()})

	require.NoError(t, w.WhenGetReceiptPdf(context.Background(), "receipt.pdf"))
	assert.Nil(t, w.Body)
	require.NoError(t, w.ThenStatusIs(200))
}
