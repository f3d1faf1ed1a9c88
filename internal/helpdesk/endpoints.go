package helpdesk

import "fmt"

// Endpoint identifies one helpdesk operation.
type Endpoint string

const (
	ReceiptEndpoint                Endpoint = "GET_RECEIPT_ENDPOINT"
	ReceiptMessageEndpoint         Endpoint = "GET_RECEIPT_MESSAGE_ENDPOINT"
	ReceiptByOrgAndIUVEndpoint     Endpoint = "GET_RECEIPT_BY_ORGCODE_AND_IUV_ENDPOINT"
	ReceiptErrorEndpoint           Endpoint = "GET_RECEIPT_ERROR_ENDPOINT"
	ReceiptPdfEndpoint             Endpoint = "GET_RECEIPT_PDF_ENDPOINT"
	CartReceiptEndpoint            Endpoint = "GET_CART_RECEIPT_ENDPOINT"
	CartReceiptByOrgAndIUVEndpoint Endpoint = "GET_CART_RECEIPT_BY_ORGCODE_AND_IUV_ENDPOINT"
	CartReceiptMessageEndpoint     Endpoint = "GET_CART_RECEIPT_MESSAGE_ENDPOINT"
	CartReceiptErrorEndpoint       Endpoint = "GET_CART_RECEIPT_ERROR_ENDPOINT"
)

// Placeholder names.
const (
	ParamEventID    = "event-id"
	ParamMessageID  = "message-id"
	ParamOrgCode    = "organization-fiscal-code"
	ParamIUV        = "iuv"
	ParamBizEventID = "bizevent-id"
	ParamFileName   = "file-name"
	ParamCartID     = "cart-id"
)

type endpointSpec struct {
	name     Endpoint
	fallback string
	params   []string
}

// Endpoint names double as the environment variables that override them.
var endpointSpecs = []endpointSpec{
	{ReceiptEndpoint, "receipts/{event-id}", []string{ParamEventID}},
	{ReceiptMessageEndpoint, "receipts/io-message/{message-id}", []string{ParamMessageID}},
	{ReceiptByOrgAndIUVEndpoint, "receipts/organizations/{organization-fiscal-code}/iuvs/{iuv}", []string{ParamOrgCode, ParamIUV}},
	{ReceiptErrorEndpoint, "errors-toreview/{bizevent-id}", []string{ParamBizEventID}},
	{ReceiptPdfEndpoint, "pdf-receipts/{file-name}", []string{ParamFileName}},
	{CartReceiptEndpoint, "cart-receipts/{cart-id}", []string{ParamCartID}},
	{CartReceiptByOrgAndIUVEndpoint, "cart-receipts/organizations/{organization-fiscal-code}/iuvs/{iuv}", []string{ParamOrgCode, ParamIUV}},
	{CartReceiptMessageEndpoint, "cart-receipts/io-message/{message-id}", []string{ParamMessageID}},
	{CartReceiptErrorEndpoint, "cart-errors-toreview/{cart-id}", []string{ParamCartID}},
}

// Endpoints maps every operation to its path template.
type Endpoints map[Endpoint]Template

// DefaultEndpoints returns the templates of the deployed helpdesk API.
func DefaultEndpoints() Endpoints {
	eps := make(Endpoints, len(endpointSpecs))
	for _, s := range endpointSpecs {
		eps[s.name] = MustParseTemplate(s.fallback)
	}
	return eps
}

// LoadEndpoints builds the endpoint set from overrides, keyed by endpoint
// name, falling back to the defaults for absent or empty entries. Each
// override must declare the same placeholders as the default it replaces.
func LoadEndpoints(overrides map[Endpoint]string) (Endpoints, error) {
	eps := make(Endpoints, len(endpointSpecs))
	for _, s := range endpointSpecs {
		raw := overrides[s.name]
		if raw == "" {
			raw = s.fallback
		}
		t, err := ParseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if err := t.requireParams(s.params...); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		eps[s.name] = t
	}
	return eps, nil
}

// EndpointNames lists every endpoint in declaration order.
func EndpointNames() []Endpoint {
	names := make([]Endpoint, len(endpointSpecs))
	for i, s := range endpointSpecs {
		names[i] = s.name
	}
	return names
}

func (e Endpoints) path(name Endpoint, params map[string]string) (string, error) {
	t, ok := e[name]
	if !ok {
		return "", &TemplateError{Template: string(name), Message: "endpoint not configured"}
	}
	return t.Expand(params)
}
