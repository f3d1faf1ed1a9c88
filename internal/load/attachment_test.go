package load

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/attachments"
	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/store"
	"github.com/roach88/receiptcheck/internal/testutil"
)

func newAttachmentScenario(t *testing.T) (*AttachmentScenario, *testutil.Backends) {
	t.Helper()
	b := testutil.NewBackends(t)
	fake := testutil.NewFakeServices(t, b)
	client, err := attachments.New(fake.AttachmentsURL(), attachments.DefaultPaths())
	require.NoError(t, err)

	return &AttachmentScenario{
		Datastore:   b.Datastore,
		Blobs:       b.Blobs,
		Attachments: client,
	}, b
}

func TestAttachmentScenario(t *testing.T) {
	s, b := newAttachmentScenario(t)
	ctx := context.Background()

	r := NewRunner(Plan{VUs: 3, Iterations: 9}, nil)
	summary, err := Run(ctx, r, Scenario[AttachmentData](s))
	require.NoError(t, err)

	assert.Equal(t, 9, summary.Iterations)
	assert.Equal(t, 18, summary.Requests)
	assert.Zero(t, summary.Failed)
	assert.True(t, summary.ChecksPassed(), "checks: %+v", summary.Checks)
	require.Len(t, summary.Checks, 5)
	for _, c := range summary.Checks {
		assert.Equal(t, 9, c.Passes, c.Name)
	}

	// Teardown removed the fixtures.
	var doc map[string]any
	err = b.Receipts(b.Containers.Receipts).Read(ctx, DefaultReceiptID, DefaultReceiptID, &doc)
	assert.True(t, store.IsNotFound(err))
	exists, err := b.Blobs.PDFExists(ctx, DefaultReceiptID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAttachmentScenario_WrongFiscalCodeFailsChecks(t *testing.T) {
	s, _ := newAttachmentScenario(t)
	ctx := context.Background()

	data, err := s.Setup(ctx)
	require.NoError(t, err)
	defer s.Teardown(ctx, data)

	data.FiscalCode = "AAAAAA00A00A000A"
	r := NewRunner(Plan{VUs: 1, Iterations: 1}, nil)
	vu := &VU{ID: 1, metrics: r.Metrics, logger: r.Logger}
	s.Iteration(ctx, vu, data)

	summary, err := r.Metrics.Summarize(s.Name(), 0)
	require.NoError(t, err)
	assert.False(t, summary.ChecksPassed())
	// The attachment is never requested without a url.
	assert.Equal(t, 1, summary.Requests)
	assert.Equal(t, 1, summary.Failed)
}

func TestAttachmentScenario_PDFPath(t *testing.T) {
	s, b := newAttachmentScenario(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "receipt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 test"), 0o644))
	s.PDFPath = path
	s.ReceiptID = "perf-custom"

	data, err := s.Setup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "perf-custom", data.ReceiptID)

	exists, err := b.Blobs.PDFExists(ctx, "perf-custom")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Teardown(ctx, data))
	assert.FileExists(t, path)
}

func TestAttachmentScenario_ReplacesLeftoverFixtures(t *testing.T) {
	s, b := newAttachmentScenario(t)
	ctx := context.Background()

	// A run that crashed before teardown.
	_, err := b.Datastore.CreateLoadReceipt(ctx, DefaultReceiptID, "OLDOWN00A01F205N", DefaultReceiptID, DefaultReceiptID)
	require.NoError(t, err)
	stale := filepath.Join(t.TempDir(), "stale.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("%PDF-1.4 stale"), 0o644))
	_, err = b.Blobs.UploadPDF(ctx, DefaultReceiptID, stale)
	require.NoError(t, err)

	r := NewRunner(Plan{VUs: 1, Iterations: 2}, nil)
	summary, err := Run(ctx, r, Scenario[AttachmentData](s))
	require.NoError(t, err)
	assert.True(t, summary.ChecksPassed(), "checks: %+v", summary.Checks)

	_, err = b.Datastore.GetReceipt(ctx, DefaultReceiptID)
	assert.True(t, store.IsNotFound(err))
	n, err := b.Blob.Snapshots(ctx, DefaultReceiptID)
	require.NoError(t, err)
	assert.Zero(t, n, "every snapshot of the pdf must be removed")
}

// rejectingDB fails every document create.
type rejectingDB struct{ store.Database }

func (d rejectingDB) Container(name string) store.Container {
	return rejectingContainer{d.Database.Container(name)}
}

type rejectingContainer struct{ store.Container }

func (c rejectingContainer) Create(context.Context, string, string, any) (store.WriteResult, error) {
	return store.WriteResult{}, &store.Error{Kind: store.KindBackend, Op: "create", Container: c.Name(), Err: errors.New("request rate too large")}
}

func TestAttachmentScenario_FailedReceiptRemovesPDF(t *testing.T) {
	s, b := newAttachmentScenario(t)
	ctx := context.Background()
	s.Datastore = datastore.New(b.Store.Database(testutil.BizEventDB),
		rejectingDB{b.Store.Database(testutil.ReceiptDB)}, b.Containers, b.Cipher)

	r := NewRunner(Plan{VUs: 1, Iterations: 1}, nil)
	summary, err := Run(ctx, r, Scenario[AttachmentData](s))
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "failed to create receipt")
	assert.Contains(t, err.Error(), "request rate too large")

	exists, err := b.Blobs.PDFExists(ctx, DefaultReceiptID)
	require.NoError(t, err)
	assert.False(t, exists, "the uploaded pdf must not outlive a failed setup")
}
