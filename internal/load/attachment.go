package load

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/roach88/receiptcheck/internal/attachments"
	"github.com/roach88/receiptcheck/internal/datastore"
	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// Defaults of the attachment scenario.
const (
	DefaultReceiptID  = "receipt-service-perf-test-id-1"
	DefaultFiscalCode = "JHNDOE00A01F205N"
)

// Check names reported by AttachmentScenario.
const (
	CheckDetailsStatus     = "getAttachmentDetails status is 200"
	CheckDetailsURL        = "getAttachmentDetails body has attachment url"
	CheckAttachmentStatus  = "getAttachment status is 200"
	CheckAttachmentType    = "getAttachment content_type is the expected application/pdf"
	CheckAttachmentNotNull = "getAttachment body not null"
)

// minimalPDF is uploaded when no PDF file is configured.
var minimalPDF = []byte("%PDF-1.4\n1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
	"2 0 obj<</Type/Pages/Kids[]/Count 0>>endobj\ntrailer<</Root 1 0 R>>\n%%EOF\n")

// AttachmentScenario seeds one receipt with a PDF attachment and has every VU
// fetch its attachment details and then the attachment itself.
type AttachmentScenario struct {
	Datastore   *datastore.Gateway
	Blobs       *datastore.Blobs
	Attachments *attachments.Client

	// ReceiptID names both the receipt and its PDF blob.
	ReceiptID  string
	FiscalCode string

	// PDFPath is the file uploaded as the attachment. Empty uploads a
	// minimal generated PDF.
	PDFPath string
}

// AttachmentData is what Setup hands to the iterations.
type AttachmentData struct {
	ReceiptID  string
	FiscalCode string
}

func (s *AttachmentScenario) Name() string {
	return "attachment"
}

func (s *AttachmentScenario) Setup(ctx context.Context) (AttachmentData, error) {
	data := AttachmentData{ReceiptID: s.ReceiptID, FiscalCode: s.FiscalCode}
	if data.ReceiptID == "" {
		data.ReceiptID = DefaultReceiptID
	}
	if data.FiscalCode == "" {
		data.FiscalCode = DefaultFiscalCode
	}

	path := s.PDFPath
	if path == "" {
		f, err := os.CreateTemp("", "receiptcheck-*.pdf")
		if err != nil {
			return data, fmt.Errorf("failed to create pdf: %w", err)
		}
		_, err = f.Write(minimalPDF)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
			return data, fmt.Errorf("failed to write pdf: %w", err)
		}
		path = f.Name()
		defer os.Remove(path)
	}

	// A crashed earlier run may have left either fixture behind.
	if err := s.Teardown(ctx, data); err != nil {
		return data, fmt.Errorf("failed to remove previous fixtures: %w", err)
	}

	up, err := s.Blobs.UploadPDF(ctx, data.ReceiptID, path)
	if err != nil {
		return data, fmt.Errorf("failed to upload pdf: %w", err)
	}
	if up.StatusCode != http.StatusCreated {
		return data, fmt.Errorf("failed to upload pdf: status %d", up.StatusCode)
	}

	// The blob name doubles as the attachment url.
	if _, err := s.Datastore.CreateLoadReceipt(ctx, data.ReceiptID, data.FiscalCode, data.ReceiptID, data.ReceiptID); err != nil {
		err = fmt.Errorf("failed to create receipt: %w", err)
		if derr := s.Blobs.DeletePDF(ctx, data.ReceiptID); derr != nil {
			err = errors.Join(err, fmt.Errorf("delete pdf %s: %w", data.ReceiptID, derr))
		}
		return data, err
	}
	return data, nil
}

func (s *AttachmentScenario) Iteration(ctx context.Context, vu *VU, data AttachmentData) {
	resp, err := vu.Do("get_attachment_details", func() (*helpdesk.Response, error) {
		return s.Attachments.GetAttachmentDetails(ctx, data.ReceiptID, data.FiscalCode)
	})
	vu.Check(CheckDetailsStatus, err == nil && resp.Status == http.StatusOK)

	var url string
	if err == nil && resp.IsSuccess() {
		if details, derr := attachments.DecodeDetails(resp); derr == nil && len(details.Attachments) > 0 {
			url = details.Attachments[0].URL
		}
	}
	if !vu.Check(CheckDetailsURL, url != "") {
		return
	}

	resp, err = vu.Do("get_attachment", func() (*helpdesk.Response, error) {
		return s.Attachments.GetAttachment(ctx, data.ReceiptID, url, data.FiscalCode)
	})
	vu.Check(CheckAttachmentStatus, err == nil && resp.Status == http.StatusOK)
	vu.Check(CheckAttachmentType, err == nil && resp.ContentType() == "application/pdf")
	vu.Check(CheckAttachmentNotNull, err == nil && len(resp.Body) > 0)
}

func (s *AttachmentScenario) Teardown(ctx context.Context, data AttachmentData) error {
	var errs []error
	if err := s.Datastore.DeleteReceipt(ctx, data.ReceiptID); err != nil {
		errs = append(errs, fmt.Errorf("delete receipt %s: %w", data.ReceiptID, err))
	}
	if err := s.Blobs.DeletePDF(ctx, data.ReceiptID); err != nil {
		errs = append(errs, fmt.Errorf("delete pdf %s: %w", data.ReceiptID, err))
	}
	return errors.Join(errs...)
}
