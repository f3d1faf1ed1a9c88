// Package attachments calls the receipt attachment service, which serves the
// details of a receipt's attachments and the PDF documents themselves to the
// citizen owning the fiscal code.
package attachments

import (
	"context"
	"fmt"
	"net/url"

	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// Placeholder names.
const (
	ParamThirdPartyID  = "tp-id"
	ParamAttachmentURL = "attachment-url"
)

// FiscalCodeQuery is the query parameter carrying the requesting fiscal code.
const FiscalCodeQuery = "fiscal_code"

// Paths holds the path templates of the three service operations.
type Paths struct {
	Details    string
	Attachment string
	Pdf        string
}

// DefaultPaths returns the templates of the deployed service.
func DefaultPaths() Paths {
	return Paths{
		Details:    "{tp-id}",
		Attachment: "{tp-id}/{attachment-url}",
		Pdf:        "pdf/{tp-id}",
	}
}

// Attachment is one entry of an attachment details response.
type Attachment struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Name        string `json:"name"`
}

// Details is the message shown next to the attachments.
type Details struct {
	Subject  string `json:"subject"`
	Markdown string `json:"markdown"`
}

// AttachmentsDetails is the body of a successful details call.
type AttachmentsDetails struct {
	Attachments []Attachment `json:"attachments"`
	Details     Details      `json:"details"`
}

// Client calls the attachment service. Like helpdesk.Client it returns error
// statuses as responses.
type Client struct {
	caller     *helpdesk.Caller
	details    helpdesk.Template
	attachment helpdesk.Template
	pdf        helpdesk.Template
}

// New returns a client for the service at baseURL. Empty entries in paths
// fall back to DefaultPaths.
func New(baseURL string, paths Paths, opts ...helpdesk.CallerOption) (*Client, error) {
	caller, err := helpdesk.NewCaller(baseURL, opts...)
	if err != nil {
		return nil, err
	}

	defaults := DefaultPaths()
	c := &Client{caller: caller}
	for _, p := range []struct {
		dst      *helpdesk.Template
		raw      string
		fallback string
		params   []string
	}{
		{&c.details, paths.Details, defaults.Details, []string{ParamThirdPartyID}},
		{&c.attachment, paths.Attachment, defaults.Attachment, []string{ParamThirdPartyID, ParamAttachmentURL}},
		{&c.pdf, paths.Pdf, defaults.Pdf, []string{ParamThirdPartyID}},
	} {
		raw := p.raw
		if raw == "" {
			raw = p.fallback
		}
		t, err := helpdesk.ParseTemplate(raw)
		if err != nil {
			return nil, err
		}
		if !sameParams(t.Params(), p.params) {
			return nil, &helpdesk.TemplateError{
				Template: raw,
				Message:  fmt.Sprintf("expected placeholders %v, found %v", p.params, t.Params()),
			}
		}
		*p.dst = t
	}
	return c, nil
}

// GetAttachmentDetails lists the attachments of the receipt identified by
// thirdPartyID.
func (c *Client) GetAttachmentDetails(ctx context.Context, thirdPartyID, fiscalCode string) (*helpdesk.Response, error) {
	return c.get(ctx, c.details, map[string]string{ParamThirdPartyID: thirdPartyID}, fiscalCode)
}

// GetAttachment downloads one attachment. attachmentURL is the url field of
// an Attachment, which is the blob name.
func (c *Client) GetAttachment(ctx context.Context, thirdPartyID, attachmentURL, fiscalCode string) (*helpdesk.Response, error) {
	return c.get(ctx, c.attachment, map[string]string{
		ParamThirdPartyID:  thirdPartyID,
		ParamAttachmentURL: attachmentURL,
	}, fiscalCode)
}

// GetReceiptPdf downloads the receipt PDF addressed to fiscalCode.
func (c *Client) GetReceiptPdf(ctx context.Context, thirdPartyID, fiscalCode string) (*helpdesk.Response, error) {
	return c.get(ctx, c.pdf, map[string]string{ParamThirdPartyID: thirdPartyID}, fiscalCode)
}

// The fiscal code is forwarded as given; the service rejects malformed ones.
func (c *Client) get(ctx context.Context, t helpdesk.Template, params map[string]string, fiscalCode string) (*helpdesk.Response, error) {
	path, err := t.Expand(params)
	if err != nil {
		return nil, err
	}
	var query url.Values
	if fiscalCode != "" {
		query = url.Values{FiscalCodeQuery: {fiscalCode}}
	}
	return c.caller.Get(ctx, path, query)
}

// DecodeDetails decodes a details response body.
func DecodeDetails(resp *helpdesk.Response) (AttachmentsDetails, error) {
	var d AttachmentsDetails
	if err := resp.JSON(&d); err != nil {
		return AttachmentsDetails{}, err
	}
	return d, nil
}

func sameParams(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[string]bool, len(want))
	for _, w := range want {
		set[w] = true
	}
	for _, g := range got {
		if !set[g] {
			return false
		}
	}
	return true
}
