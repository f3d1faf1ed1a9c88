package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/receiptcheck/internal/attachments"
	"github.com/roach88/receiptcheck/internal/helpdesk"
	"github.com/roach88/receiptcheck/internal/tokenizer"
)

func TestFakeServices_HelpdeskRoundTrip(t *testing.T) {
	b := NewBackends(t)
	fake := NewFakeServices(t, b)
	ctx := context.Background()

	_, err := b.Datastore.CreateReceiptWithStatus(ctx, "evt-1", "")
	require.NoError(t, err)
	_, err = b.Datastore.CreateReceiptError(ctx, "evt-2", "")
	require.NoError(t, err)

	hd, err := helpdesk.New(fake.HelpdeskURL(), nil)
	require.NoError(t, err)

	resp, err := hd.GetReceipt(ctx, "evt-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	var receipt map[string]any
	require.NoError(t, resp.JSON(&receipt))
	assert.Equal(t, "evt-1", receipt["eventId"])

	resp, err = hd.GetReceiptError(ctx, "evt-2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	var parked struct {
		BizEventID     string `json:"bizEventId"`
		MessagePayload string `json:"messagePayload"`
	}
	require.NoError(t, resp.JSON(&parked))
	assert.Equal(t, "evt-2", parked.BizEventID)
	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(parked.MessagePayload), &event))
	assert.Equal(t, "evt-2", event["id"])

	resp, err = hd.GetReceiptError(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFakeServices_ReceiptByIUV(t *testing.T) {
	b := NewBackends(t)
	fake := NewFakeServices(t, b)
	ctx := context.Background()

	_, err := b.Datastore.CreateBizEventWithIUV(ctx, "evt-iuv", "", "80012345678", "iuv-1")
	require.NoError(t, err)
	_, err = b.Datastore.CreateReceiptWithStatus(ctx, "evt-iuv", "")
	require.NoError(t, err)

	hd, err := helpdesk.New(fake.HelpdeskURL(), nil)
	require.NoError(t, err)

	resp, err := hd.GetReceiptByOrganizationFiscalCodeAndIUV(ctx, "80012345678", "iuv-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp, err = hd.GetReceiptByOrganizationFiscalCodeAndIUV(ctx, "99999999999", "iuv-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFakeServices_Attachments(t *testing.T) {
	b := NewBackends(t)
	fake := NewFakeServices(t, b)
	ctx := context.Background()

	pdf := filepath.Join(t.TempDir(), "r.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	_, err := b.Blobs.UploadPDF(ctx, "r-1.pdf", pdf)
	require.NoError(t, err)
	_, err = b.Datastore.CreateLoadReceipt(ctx, "r-1", FakeToken("JHNDOE00A01F205N"), "r-1.pdf", "r-1.pdf")
	require.NoError(t, err)

	c, err := attachments.New(fake.AttachmentsURL(), attachments.Paths{})
	require.NoError(t, err)

	resp, err := c.GetAttachmentDetails(ctx, "r-1", "JHNDOE00A01F205N")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	details, err := attachments.DecodeDetails(resp)
	require.NoError(t, err)
	require.Len(t, details.Attachments, 1)

	resp, err = c.GetAttachment(ctx, "r-1", details.Attachments[0].URL, "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/pdf", resp.ContentType())
	assert.Equal(t, "%PDF-1.4", string(resp.Body))

	resp, err = c.GetReceiptPdf(ctx, "r-1", "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp, err = c.GetAttachmentDetails(ctx, "r-1", "SHORT")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp, err = c.GetAttachmentDetails(ctx, "r-1", "XXXXXX00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFakeServices_Tokenizer(t *testing.T) {
	fake := NewFakeServices(t, NewBackends(t))

	c, err := tokenizer.New(fake.TokenizerURL(), FakeAPIKey)
	require.NoError(t, err)

	token, _, err := c.CreateToken(context.Background(), "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, FakeToken("JHNDOE00A01F205N"), token)
}
