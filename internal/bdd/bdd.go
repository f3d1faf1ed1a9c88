// Package bdd binds the receipt helpdesk Gherkin vocabulary to steps.World
// for cucumber/godog.
//
// Every scenario gets a fresh World in the Before hook. The After hook runs
// Cleanup whatever the scenario outcome, on a context detached from the
// scenario deadline.
package bdd

import (
	"context"
	"time"

	"github.com/cucumber/godog"

	"github.com/roach88/receiptcheck/internal/steps"
)

const (
	str = `"([^"]*)"`
	num = `(\d+)`
)

// sentences maps each step expression to the World method it drives.
func sentences(w func() *steps.World) []struct {
	expr string
	fn   any
} {
	return []struct {
		expr string
		fn   any
	}{
		{`^a biz event with id ` + str + ` and status ` + str + ` stored on biz-events datastore$`,
			func(ctx context.Context, id, status string) error {
				return w().GivenBizEvent(ctx, id, status)
			}},
		{`^a biz event with id ` + str + ` and status ` + str + ` and organizationFiscalCode ` + str + ` and IUV ` + str + ` stored on biz-events datastore$`,
			func(ctx context.Context, id, status, orgCode, iuv string) error {
				return w().GivenBizEventWithIUV(ctx, id, status, orgCode, iuv)
			}},
		{`^a receipt with eventId ` + str + ` and status ` + str + ` stored into receipt datastore$`,
			func(ctx context.Context, id, status string) error {
				return w().GivenReceipt(ctx, id, status)
			}},
		{`^a receipt-error with bizEventId ` + str + ` and status ` + str + ` stored into receipt-error datastore$`,
			func(ctx context.Context, id, status string) error {
				return w().GivenReceiptError(ctx, id, status)
			}},
		{`^a receipt pdf with filename ` + str + ` stored into blob storage$`,
			func(ctx context.Context, name string) error {
				return w().GivenReceiptPdf(ctx, name)
			}},
		{`^a receipt-io-message with bizEventId ` + str + ` and messageId ` + str + ` stored into receipt-io-message datastore$`,
			func(ctx context.Context, eventID, messageID string) error {
				return w().GivenReceiptMessage(ctx, eventID, messageID)
			}},
		{`^a cart with id ` + str + ` stored into cart datastore$`,
			func(ctx context.Context, id string) error {
				return w().GivenCart(ctx, id)
			}},
		{`^a cart-receipt-error with cartId ` + str + ` and status ` + str + ` stored into cart-receipt-error datastore$`,
			func(ctx context.Context, id, status string) error {
				return w().GivenCartReceiptError(ctx, id, status)
			}},
		{`^a cart-receipt-io-message with bizEventId ` + str + ` and messageId ` + str + ` stored into cart-receipt-io-message datastore$`,
			func(ctx context.Context, eventID, messageID string) error {
				return w().GivenCartReceiptMessage(ctx, eventID, messageID)
			}},

		{`^getReceipt API is called with eventId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetReceipt(ctx, id)
			}},
		{`^getReceiptByOrganizationFiscalCodeAndIUV API is called with organizationFiscalCode ` + str + ` and IUV ` + str + `$`,
			func(ctx context.Context, orgCode, iuv string) error {
				return w().WhenGetReceiptByOrganizationFiscalCodeAndIUV(ctx, orgCode, iuv)
			}},
		{`^getReceiptError API is called with bizEventId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetReceiptError(ctx, id)
			}},
		{`^getReceiptPdf API is called with filename ` + str + `$`,
			func(ctx context.Context, name string) error {
				return w().WhenGetReceiptPdf(ctx, name)
			}},
		{`^getReceiptMessage API is called with messageId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetReceiptMessage(ctx, id)
			}},
		{`^getCartReceipt API is called with cartId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetCartReceipt(ctx, id)
			}},
		{`^getCartReceiptByOrganizationFiscalCodeAndIUV API is called with organizationFiscalCode ` + str + ` and IUV ` + str + `$`,
			func(ctx context.Context, orgCode, iuv string) error {
				return w().WhenGetCartReceiptByOrganizationFiscalCodeAndIUV(ctx, orgCode, iuv)
			}},
		{`^getCartReceiptError API is called with cartId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetCartReceiptError(ctx, id)
			}},
		{`^getCartReceiptMessage API is called with messageId ` + str + `$`,
			func(ctx context.Context, id string) error {
				return w().WhenGetCartReceiptMessage(ctx, id)
			}},

		{`^the api response has a ` + num + ` Http status$`,
			func(status int) error {
				return w().ThenStatusIs(status)
			}},
		{`^the receipt has eventId ` + str + `$`,
			func(id string) error {
				return w().ThenReceiptHasEventID(id)
			}},
		{`^the receipt-error has bizEventId ` + str + `$`,
			func(id string) error {
				return w().ThenReceiptErrorHasBizEventID(id)
			}},
		{`^the receipt-error payload has bizEvent decrypted with eventId ` + str + `$`,
			func(id string) error {
				return w().ThenReceiptErrorPayloadHasEventID(id)
			}},
		{`^the receipt-message has eventId ` + str + `$`,
			func(id string) error {
				return w().ThenMessageHasEventID(id)
			}},
		{`^the receipt-message has messageId ` + str + `$`,
			func(id string) error {
				return w().ThenMessageHasMessageID(id)
			}},
		{`^the receipt has cartId ` + str + `$`,
			func(id string) error {
				return w().ThenReceiptHasCartID(id)
			}},
		{`^the cart-receipt-error has cartId ` + str + `$`,
			func(id string) error {
				return w().ThenCartErrorHasCartID(id)
			}},
		{`^the cart-receipt-error payload has bizEvent decrypted with eventId ` + str + `$`,
			func(id string) error {
				return w().ThenCartErrorPayloadHasEventID(id)
			}},
	}
}

// InitializeScenario returns a godog scenario initializer. timeout bounds
// each scenario; zero means steps.DefaultTimeout.
func InitializeScenario(deps steps.Deps, timeout time.Duration) func(*godog.ScenarioContext) {
	if timeout <= 0 {
		timeout = steps.DefaultTimeout
	}

	return func(sc *godog.ScenarioContext) {
		var (
			world  *steps.World
			cancel context.CancelFunc = func() {}
		)

		sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
			world = steps.NewWorld(deps)
			ctx, cancel = context.WithTimeout(ctx, timeout)
			return ctx, nil
		})

		for _, s := range sentences(func() *steps.World { return world }) {
			sc.Step(s.expr, s.fn)
		}

		sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
			defer cancel()
			if world == nil {
				return ctx, nil
			}
			cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			defer cleanupCancel()
			// Failures are logged by Cleanup and do not change the
			// scenario outcome.
			_ = world.Cleanup(cleanupCtx)
			return ctx, nil
		})
	}
}
