package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/blob"
	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/payload"
	"github.com/roach88/receiptcheck/internal/store"
)

// Database and container names used by the test backends.
const (
	BizEventDB    = "db"
	ReceiptDB     = "db"
	PDFContainer  = "pagopa-d-weu-receipts-azure-blob-receipt-st-attach"
	PayloadSecret = "test-secret"
	PayloadSalt   = "test-salt"
)

// Backends is a datastore and a blob store in one SQLite file under the
// test's temp dir, with the gateways built on top of them.
type Backends struct {
	Path       string
	Store      *store.SQLite
	Blob       *blob.SQLite
	Cipher     *payload.Cipher
	Containers datastore.Containers
	Datastore  *datastore.Gateway
	Blobs      *datastore.Blobs
}

// NewBackends opens fresh backends that are closed when the test ends.
func NewBackends(t testing.TB) *Backends {
	t.Helper()

	path := filepath.Join(t.TempDir(), "receiptcheck.db")
	st, err := store.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blobs, err := blob.NewSQLite(st.DB(), PDFContainer)
	require.NoError(t, err)

	cipher, err := payload.New(PayloadSecret, PayloadSalt)
	require.NoError(t, err)

	names := datastore.DefaultContainers()
	return &Backends{
		Path:       path,
		Store:      st,
		Blob:       blobs,
		Cipher:     cipher,
		Containers: names,
		Datastore:  datastore.New(st.Database(BizEventDB), st.Database(ReceiptDB), names, cipher),
		Blobs:      datastore.NewBlobs(blobs),
	}
}

// BizEvents returns the biz-events container, for direct reads in tests.
func (b *Backends) BizEvents() store.Container {
	return b.Store.Database(BizEventDB).Container(b.Containers.BizEvents)
}

// Receipts returns the named container of the receipts database.
func (b *Backends) Receipts(name string) store.Container {
	return b.Store.Database(ReceiptDB).Container(name)
}
