// Package helpdesk calls the receipt helpdesk API and hosts the HTTP
// plumbing shared with the other service gateways.
//
// Every Get method returns the raw *Response for any HTTP status, 4xx and
// 5xx included. An error means no response exists: the path template could
// not be expanded or the transport failed.
package helpdesk

import (
	"context"
)

// Client calls the helpdesk API.
type Client struct {
	caller    *Caller
	endpoints Endpoints
}

// New returns a client for the helpdesk at baseURL.
func New(baseURL string, endpoints Endpoints, opts ...CallerOption) (*Client, error) {
	caller, err := NewCaller(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	if endpoints == nil {
		endpoints = DefaultEndpoints()
	}
	return &Client{caller: caller, endpoints: endpoints}, nil
}

func (c *Client) get(ctx context.Context, name Endpoint, params map[string]string) (*Response, error) {
	path, err := c.endpoints.path(name, params)
	if err != nil {
		return nil, err
	}
	return c.caller.Get(ctx, path, nil)
}

func (c *Client) GetReceipt(ctx context.Context, eventID string) (*Response, error) {
	return c.get(ctx, ReceiptEndpoint, map[string]string{ParamEventID: eventID})
}

func (c *Client) GetReceiptMessage(ctx context.Context, messageID string) (*Response, error) {
	return c.get(ctx, ReceiptMessageEndpoint, map[string]string{ParamMessageID: messageID})
}

func (c *Client) GetReceiptByOrganizationFiscalCodeAndIUV(ctx context.Context, orgCode, iuv string) (*Response, error) {
	return c.get(ctx, ReceiptByOrgAndIUVEndpoint, map[string]string{ParamOrgCode: orgCode, ParamIUV: iuv})
}

func (c *Client) GetReceiptError(ctx context.Context, bizEventID string) (*Response, error) {
	return c.get(ctx, ReceiptErrorEndpoint, map[string]string{ParamBizEventID: bizEventID})
}

func (c *Client) GetReceiptPdf(ctx context.Context, fileName string) (*Response, error) {
	return c.get(ctx, ReceiptPdfEndpoint, map[string]string{ParamFileName: fileName})
}

func (c *Client) GetCartReceipt(ctx context.Context, cartID string) (*Response, error) {
	return c.get(ctx, CartReceiptEndpoint, map[string]string{ParamCartID: cartID})
}

func (c *Client) GetCartReceiptByOrganizationFiscalCodeAndIUV(ctx context.Context, orgCode, iuv string) (*Response, error) {
	return c.get(ctx, CartReceiptByOrgAndIUVEndpoint, map[string]string{ParamOrgCode: orgCode, ParamIUV: iuv})
}

func (c *Client) GetCartReceiptMessage(ctx context.Context, messageID string) (*Response, error) {
	return c.get(ctx, CartReceiptMessageEndpoint, map[string]string{ParamMessageID: messageID})
}

func (c *Client) GetCartReceiptError(ctx context.Context, cartID string) (*Response, error) {
	return c.get(ctx, CartReceiptErrorEndpoint, map[string]string{ParamCartID: cartID})
}
