package attachments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/helpdesk"
)

type lastRequest struct {
	mu  sync.Mutex
	uri string
	key string
}

func (l *lastRequest) get() (string, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.uri, l.key
}

func newServer(t *testing.T) (*httptest.Server, *lastRequest) {
	t.Helper()
	last := &lastRequest{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /receipts/{tp}", func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.uri, last.key = r.URL.RequestURI(), r.Header.Get(helpdesk.SubscriptionKeyHeader)
		last.mu.Unlock()
		if len(r.URL.Query().Get(FiscalCodeQuery)) != 16 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"attachments":[{"id":"a1","content_type":"application/pdf","url":"r-1.pdf","name":"r-1.pdf"}],"details":{"subject":"Receipt","markdown":"**paid**"}}`))
	})
	mux.HandleFunc("GET /receipts/{tp}/{blob}", func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.uri, last.key = r.URL.RequestURI(), r.Header.Get(helpdesk.SubscriptionKeyHeader)
		last.mu.Unlock()
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("GET /receipts/pdf/{tp}", func(w http.ResponseWriter, r *http.Request) {
		last.mu.Lock()
		last.uri, last.key = r.URL.RequestURI(), r.Header.Get(helpdesk.SubscriptionKeyHeader)
		last.mu.Unlock()
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, last
}

func TestClient_GetAttachmentDetails(t *testing.T) {
	srv, last := newServer(t)
	c, err := New(srv.URL+"/receipts", Paths{}, helpdesk.WithSubscriptionKey("k"))
	require.NoError(t, err)

	resp, err := c.GetAttachmentDetails(context.Background(), "r-1", "JHNDOE00A01F205N")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	uri, key := last.get()
	assert.Equal(t, "/receipts/r-1?fiscal_code=JHNDOE00A01F205N", uri)
	assert.Equal(t, "k", key)

	d, err := DecodeDetails(resp)
	require.NoError(t, err)
	require.Len(t, d.Attachments, 1)
	assert.Equal(t, "r-1.pdf", d.Attachments[0].URL)
	assert.Equal(t, "application/pdf", d.Attachments[0].ContentType)
	assert.Equal(t, "Receipt", d.Details.Subject)
}

func TestClient_BadFiscalCodeIsForwarded(t *testing.T) {
	srv, last := newServer(t)
	c, err := New(srv.URL+"/receipts", Paths{})
	require.NoError(t, err)

	resp, err := c.GetAttachmentDetails(context.Background(), "r-1", "SHORT")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	uri, _ := last.get()
	assert.Equal(t, "/receipts/r-1?fiscal_code=SHORT", uri)
}

func TestClient_GetAttachment(t *testing.T) {
	srv, last := newServer(t)
	c, err := New(srv.URL+"/receipts", Paths{})
	require.NoError(t, err)

	resp, err := c.GetAttachment(context.Background(), "r-1", "r-1.pdf", "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/pdf", resp.ContentType())
	assert.NotEmpty(t, resp.Body)

	uri, _ := last.get()
	assert.Equal(t, "/receipts/r-1/r-1.pdf?fiscal_code=JHNDOE00A01F205N", uri)
}

func TestClient_GetReceiptPdf(t *testing.T) {
	srv, last := newServer(t)
	c, err := New(srv.URL+"/receipts", Paths{})
	require.NoError(t, err)

	resp, err := c.GetReceiptPdf(context.Background(), "r-1", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	uri, _ := last.get()
	assert.Equal(t, "/receipts/pdf/r-1", uri)
}

func TestNew_RejectsMismatchedPaths(t *testing.T) {
	_, err := New("http://localhost", Paths{Attachment: "{tp-id}/files"})
	var terr *helpdesk.TemplateError
	assert.ErrorAs(t, err, &terr)
}

func TestNew_CustomPaths(t *testing.T) {
	srv, last := newServer(t)
	c, err := New(srv.URL, Paths{Details: "receipts/{tp-id}"})
	require.NoError(t, err)

	_, err = c.GetAttachmentDetails(context.Background(), "r-9", "JHNDOE00A01F205N")
	require.NoError(t, err)
	uri, _ := last.get()
	assert.Equal(t, "/receipts/r-9?fiscal_code=JHNDOE00A01F205N", uri)
}
