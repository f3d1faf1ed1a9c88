// Package tokenizer exchanges fiscal codes for the opaque tokens the receipt
// datastore stores in place of personal data.
package tokenizer

import (
	"context"
	"fmt"

	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// APIKeyHeader authenticates tokenizer calls.
const APIKeyHeader = "x-api-key"

type piiRequest struct {
	PII string `json:"pii"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Client calls the tokenizer at TOKENIZER_URL.
type Client struct {
	caller *helpdesk.Caller
}

// New returns a client for the tokenizer at baseURL. An empty apiKey sends
// no key header.
func New(baseURL, apiKey string, opts ...helpdesk.CallerOption) (*Client, error) {
	opts = append([]helpdesk.CallerOption{helpdesk.WithHeader(APIKeyHeader, apiKey)}, opts...)
	caller, err := helpdesk.NewCaller(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{caller: caller}, nil
}

// CreateToken upserts the token for fiscalCode. The token is empty unless
// the response is a 2xx carrying one; the response is returned either way.
func (c *Client) CreateToken(ctx context.Context, fiscalCode string) (string, *helpdesk.Response, error) {
	resp, err := c.caller.Put(ctx, "", piiRequest{PII: fiscalCode})
	if err != nil {
		return "", nil, err
	}
	return decodeToken(resp)
}

// SearchToken looks up the token of an already tokenized fiscal code.
func (c *Client) SearchToken(ctx context.Context, fiscalCode string) (string, *helpdesk.Response, error) {
	resp, err := c.caller.Post(ctx, "search", piiRequest{PII: fiscalCode})
	if err != nil {
		return "", nil, err
	}
	return decodeToken(resp)
}

func decodeToken(resp *helpdesk.Response) (string, *helpdesk.Response, error) {
	if !resp.IsSuccess() {
		return "", resp, nil
	}
	var body tokenResponse
	if err := resp.JSON(&body); err != nil {
		return "", resp, err
	}
	if body.Token == "" {
		return "", resp, fmt.Errorf("tokenizer answered %d without a token", resp.Status)
	}
	return body.Token, resp, nil
}
