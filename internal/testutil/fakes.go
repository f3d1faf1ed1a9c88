package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roach88/receiptcheck/internal/blob"
	"github.com/roach88/receiptcheck/internal/fixture"
	"github.com/roach88/receiptcheck/internal/store"
)

// Path prefixes of the emulated services on the fake server.
const (
	HelpdeskPrefix    = "/helpdesk"
	AttachmentsPrefix = "/messages"
	TokenizerPrefix   = "/tokenizer"
)

// FakeAPIKey is the tokenizer key the fake accepts.
const FakeAPIKey = "fake-tokenizer-key"

// FakeToken is the token the fake tokenizer issues for fiscalCode.
func FakeToken(fiscalCode string) string {
	return "tok-" + fiscalCode
}

// FakeServices serves the helpdesk, attachment and tokenizer APIs from the
// documents and blobs in Backends, so round trips can be tested without the
// real services.
type FakeServices struct {
	Server *httptest.Server
	b      *Backends
}

// NewFakeServices starts the fake server. It is closed when the test ends.
func NewFakeServices(t testing.TB, b *Backends) *FakeServices {
	t.Helper()
	f := &FakeServices{b: b}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HelpdeskPrefix+"/receipts/{eventID}", f.getReceipt)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/receipts/io-message/{messageID}", f.getReceiptMessage)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/receipts/organizations/{org}/iuvs/{iuv}", f.getReceiptByIUV)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/errors-toreview/{bizEventID}", f.getReceiptError)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/pdf-receipts/{fileName}", f.getPdf)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/cart-receipts/{cartID}", f.getCart)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/cart-receipts/organizations/{org}/iuvs/{iuv}", f.getCartByIUV)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/cart-receipts/io-message/{messageID}", f.getCartMessage)
	mux.HandleFunc("GET "+HelpdeskPrefix+"/cart-errors-toreview/{cartID}", f.getCartError)

	mux.HandleFunc("GET "+AttachmentsPrefix+"/{tpID}", f.getAttachmentDetails)
	mux.HandleFunc("GET "+AttachmentsPrefix+"/{tpID}/{attachment}", f.getAttachment)
	mux.HandleFunc("GET "+AttachmentsPrefix+"/pdf/{tpID}", f.getReceiptPdf)

	mux.HandleFunc("PUT "+TokenizerPrefix, f.tokenize)
	mux.HandleFunc("POST "+TokenizerPrefix+"/search", f.tokenize)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeServices) HelpdeskURL() string    { return f.Server.URL + HelpdeskPrefix }
func (f *FakeServices) AttachmentsURL() string { return f.Server.URL + AttachmentsPrefix }
func (f *FakeServices) TokenizerURL() string   { return f.Server.URL + TokenizerPrefix }

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (f *FakeServices) receipts(name string) store.Container {
	return f.b.Receipts(name)
}

// findFirst reads the first document of c whose field equals value.
func findFirst(r *http.Request, c store.Container, field, value string, out any) error {
	keys, err := c.QueryIDs(r.Context(), field, value)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return &store.Error{Kind: store.KindNotFound, Op: "query", Container: c.Name(), ID: value}
	}
	return c.Read(r.Context(), keys[0].ID, keys[0].PartitionKey, out)
}

func (f *FakeServices) respond(w http.ResponseWriter, what, id string, err error, v any) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case store.IsNotFound(err):
		writeProblem(w, http.StatusNotFound, "Unable to retrieve the %s with id %s", what, id)
	default:
		writeProblem(w, http.StatusInternalServerError, "%v", err)
	}
}

func (f *FakeServices) getReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("eventID")
	var doc map[string]any
	err := findFirst(r, f.receipts(f.b.Containers.Receipts), "eventId", id, &doc)
	f.respond(w, "receipt", id, err, doc)
}

func (f *FakeServices) getReceiptMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("messageID")
	var doc map[string]any
	err := findFirst(r, f.receipts(f.b.Containers.ReceiptMessages), "messageId", id, &doc)
	f.respond(w, "receipt message", id, err, doc)
}

func (f *FakeServices) bizEventByIUV(r *http.Request) (fixture.BizEvent, error) {
	org, iuv := r.PathValue("org"), r.PathValue("iuv")
	c := f.b.BizEvents()
	keys, err := c.QueryIDs(r.Context(), "debtorPosition.iuv", iuv)
	if err != nil {
		return fixture.BizEvent{}, err
	}
	for _, k := range keys {
		var ev fixture.BizEvent
		if err := c.Read(r.Context(), k.ID, k.PartitionKey, &ev); err != nil {
			return fixture.BizEvent{}, err
		}
		if ev.Creditor != nil && ev.Creditor.IDPA == org {
			return ev, nil
		}
	}
	return fixture.BizEvent{}, &store.Error{Kind: store.KindNotFound, Op: "query", Container: c.Name(), ID: org + "/" + iuv}
}

func (f *FakeServices) getReceiptByIUV(w http.ResponseWriter, r *http.Request) {
	ev, err := f.bizEventByIUV(r)
	if err != nil {
		f.respond(w, "biz event", r.PathValue("iuv"), err, nil)
		return
	}
	var doc map[string]any
	err = findFirst(r, f.receipts(f.b.Containers.Receipts), "eventId", ev.ID, &doc)
	f.respond(w, "receipt", ev.ID, err, doc)
}

// decrypted reads a parked error and replaces its payload with the plain
// text, the way the helpdesk presents it to operators.
func (f *FakeServices) decrypted(r *http.Request, container, id string) (map[string]any, error) {
	var doc map[string]any
	if err := f.receipts(container).Read(r.Context(), id, id, &doc); err != nil {
		return nil, err
	}
	if enc, ok := doc["messagePayload"].(string); ok && enc != "" {
		plain, err := f.b.Cipher.Decrypt(enc)
		if err != nil {
			return nil, err
		}
		doc["messagePayload"] = plain
	}
	return doc, nil
}

func (f *FakeServices) getReceiptError(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("bizEventID")
	doc, err := f.decrypted(r, f.b.Containers.ReceiptErrors, id)
	f.respond(w, "receipt error", id, err, doc)
}

func (f *FakeServices) getPdf(w http.ResponseWriter, r *http.Request) {
	f.servePdf(w, r, r.PathValue("fileName"))
}

func (f *FakeServices) servePdf(w http.ResponseWriter, r *http.Request, name string) {
	data, err := f.b.Blob.Download(r.Context(), name)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Unable to retrieve the pdf %s", name)
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "%v", err)
	default:
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func (f *FakeServices) getCart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("cartID")
	var doc map[string]any
	err := f.receipts(f.b.Containers.CartReceipts).Read(r.Context(), id, id, &doc)
	f.respond(w, "cart", id, err, doc)
}

func (f *FakeServices) getCartByIUV(w http.ResponseWriter, r *http.Request) {
	ev, err := f.bizEventByIUV(r)
	if err != nil {
		f.respond(w, "biz event", r.PathValue("iuv"), err, nil)
		return
	}
	cartID := ""
	if ev.TransactionDetails != nil && ev.TransactionDetails.Transaction != nil {
		cartID = ev.TransactionDetails.Transaction.TransactionID
	}
	var doc map[string]any
	err = f.receipts(f.b.Containers.CartReceipts).Read(r.Context(), cartID, cartID, &doc)
	f.respond(w, "cart", cartID, err, doc)
}

func (f *FakeServices) getCartMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("messageID")
	var doc map[string]any
	err := findFirst(r, f.receipts(f.b.Containers.CartReceiptMessages), "messageId", id, &doc)
	f.respond(w, "cart message", id, err, doc)
}

func (f *FakeServices) getCartError(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("cartID")
	doc, err := f.decrypted(r, f.b.Containers.CartReceiptErrors, id)
	f.respond(w, "cart error", id, err, doc)
}

// ownedReceipt returns the receipt tpID when fiscal_code, or its token, is
// one of the receipt's fiscal codes. It writes the error response itself.
func (f *FakeServices) ownedReceipt(w http.ResponseWriter, r *http.Request) (fixture.Receipt, bool) {
	tpID := r.PathValue("tpID")
	fc := r.URL.Query().Get("fiscal_code")
	if len(fc) != 16 {
		writeProblem(w, http.StatusBadRequest, "Please pass a valid fiscal code")
		return fixture.Receipt{}, false
	}

	var rec fixture.Receipt
	err := findFirst(r, f.receipts(f.b.Containers.Receipts), "eventId", tpID, &rec)
	if err != nil {
		f.respond(w, "receipt", tpID, err, nil)
		return fixture.Receipt{}, false
	}
	if rec.EventData == nil || !ownedBy(rec.EventData, fc) {
		writeProblem(w, http.StatusNotFound, "Unable to retrieve the receipt with id %s", tpID)
		return fixture.Receipt{}, false
	}
	return rec, true
}

func ownedBy(d *fixture.EventData, fc string) bool {
	for _, code := range []string{d.DebtorFiscalCode, d.PayerFiscalCode} {
		if code == fc || code == FakeToken(fc) {
			return true
		}
	}
	return false
}

func (f *FakeServices) getAttachmentDetails(w http.ResponseWriter, r *http.Request) {
	rec, ok := f.ownedReceipt(w, r)
	if !ok {
		return
	}
	type attachment struct {
		ID          string `json:"id"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
		Name        string `json:"name"`
	}
	body := map[string]any{
		"attachments": []attachment{},
		"details": map[string]string{
			"subject":  "Ricevuta del pagamento",
			"markdown": "Ecco la ricevuta del pagamento.",
		},
	}
	if rec.MdAttach != nil {
		body["attachments"] = []attachment{{
			ID:          rec.ID,
			ContentType: "application/pdf",
			URL:         rec.MdAttach.URL,
			Name:        rec.MdAttach.Name,
		}}
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeServices) getAttachment(w http.ResponseWriter, r *http.Request) {
	rec, ok := f.ownedReceipt(w, r)
	if !ok {
		return
	}
	name := r.PathValue("attachment")
	if rec.MdAttach == nil || rec.MdAttach.URL != name {
		writeProblem(w, http.StatusNotFound, "Unable to retrieve the attachment %s", name)
		return
	}
	f.servePdf(w, r, name)
}

func (f *FakeServices) getReceiptPdf(w http.ResponseWriter, r *http.Request) {
	rec, ok := f.ownedReceipt(w, r)
	if !ok {
		return
	}
	if rec.MdAttach == nil {
		writeProblem(w, http.StatusNotFound, "Receipt %s has no attachment", rec.ID)
		return
	}
	f.servePdf(w, r, rec.MdAttach.URL)
}

func (f *FakeServices) tokenize(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != FakeAPIKey {
		writeProblem(w, http.StatusForbidden, "invalid api key")
		return
	}
	var req struct {
		PII string `json:"pii"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PII == "" {
		writeProblem(w, http.StatusBadRequest, "pii is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": FakeToken(req.PII)})
}
