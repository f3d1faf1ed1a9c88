// Package datastore creates and deletes test fixtures in the receipt
// datastores.
//
// Every Create builds its document with package fixture, validates it and
// writes it; every Delete treats a missing document as success so cleanup can
// run any number of times. Other failures come back as *store.Error values for
// the caller to log or propagate.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/receiptcheck/internal/fixture"
	"github.com/roach88/receiptcheck/internal/payload"
	"github.com/roach88/receiptcheck/internal/store"
)

// Containers names the collections the gateway writes to.
type Containers struct {
	BizEvents           string
	Receipts            string
	CartReceipts        string
	ReceiptErrors       string
	ReceiptMessages     string
	CartReceiptErrors   string
	CartReceiptMessages string
}

// DefaultContainers returns the container names used by the deployed
// services.
func DefaultContainers() Containers {
	return Containers{
		BizEvents:           "biz-events",
		Receipts:            "receipts",
		CartReceipts:        "cart-for-receipts",
		ReceiptErrors:       "receipts-message-errors",
		ReceiptMessages:     "receipts-io-messages",
		CartReceiptErrors:   "cart-receipts-message-errors",
		CartReceiptMessages: "cart-receipts-io-messages",
	}
}

// Created pairs a persisted document with the write outcome.
type Created[T any] struct {
	Doc T
	store.WriteResult
}

// Gateway owns the fixture lifecycle for every entity kind. Biz events live in
// their own database; everything else lives in the receipts database.
type Gateway struct {
	bizEvents           store.Container
	receipts            store.Container
	cartReceipts        store.Container
	receiptErrors       store.Container
	receiptMessages     store.Container
	cartReceiptErrors   store.Container
	cartReceiptMessages store.Container
	cipher              *payload.Cipher
}

// New returns a gateway over bizDB and receiptDB. cipher encrypts the biz
// event embedded in receipt-error fixtures.
func New(bizDB, receiptDB store.Database, names Containers, cipher *payload.Cipher) *Gateway {
	return &Gateway{
		bizEvents:           bizDB.Container(names.BizEvents),
		receipts:            receiptDB.Container(names.Receipts),
		cartReceipts:        receiptDB.Container(names.CartReceipts),
		receiptErrors:       receiptDB.Container(names.ReceiptErrors),
		receiptMessages:     receiptDB.Container(names.ReceiptMessages),
		cartReceiptErrors:   receiptDB.Container(names.CartReceiptErrors),
		cartReceiptMessages: receiptDB.Container(names.CartReceiptMessages),
		cipher:              cipher,
	}
}

func create[T any](ctx context.Context, c store.Container, id string, doc T) (Created[T], error) {
	if err := fixture.Validate(doc); err != nil {
		return Created[T]{}, fmt.Errorf("invalid %s fixture %s: %w", c.Name(), id, err)
	}
	res, err := c.Create(ctx, id, id, doc)
	if err != nil {
		return Created[T]{Doc: doc}, err
	}
	return Created[T]{Doc: doc, WriteResult: res}, nil
}

func remove(ctx context.Context, c store.Container, id string) error {
	if err := c.Delete(ctx, id, id); err != nil && !store.IsNotFound(err) {
		return err
	}
	return nil
}

// removeWhere deletes every document whose field equals value. Each delete is
// attempted even after a failure; the failures are joined. It reports how
// many documents were removed.
func removeWhere(ctx context.Context, c store.Container, field, value string) (int, error) {
	keys, err := c.QueryIDs(ctx, field, value)
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, k := range keys {
		err := c.Delete(ctx, k.ID, k.PartitionKey)
		switch {
		case err == nil:
			removed++
		case store.IsNotFound(err):
		default:
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// CreateBizEvent stores a biz event for the default organization and IUV.
func (g *Gateway) CreateBizEvent(ctx context.Context, id, status string) (Created[fixture.BizEvent], error) {
	return create(ctx, g.bizEvents, id, fixture.NewBizEvent(id, status))
}

// CreateBizEventWithIUV stores a biz event for the notice (orgCode, iuv).
func (g *Gateway) CreateBizEventWithIUV(ctx context.Context, id, status, orgCode, iuv string) (Created[fixture.BizEvent], error) {
	return create(ctx, g.bizEvents, id, fixture.NewBizEventWithIUV(id, status, orgCode, iuv))
}

func (g *Gateway) DeleteBizEvent(ctx context.Context, id string) error {
	return remove(ctx, g.bizEvents, id)
}

// CreateReceipt stores a receipt whose id is eventID.
func (g *Gateway) CreateReceipt(ctx context.Context, eventID, fiscalCode, pdfName string) (Created[fixture.Receipt], error) {
	return create(ctx, g.receipts, eventID, fixture.NewReceipt(eventID, fiscalCode, pdfName))
}

// CreateReceiptWithStatus stores a receipt for the tokenized fiscal code.
func (g *Gateway) CreateReceiptWithStatus(ctx context.Context, eventID, status string) (Created[fixture.Receipt], error) {
	return create(ctx, g.receipts, eventID, fixture.NewReceiptWithStatus(eventID, status))
}

// CreateLoadReceipt stores the receipt read by the attachment load scenario.
func (g *Gateway) CreateLoadReceipt(ctx context.Context, id, fiscalCode, pdfName, pdfURL string) (Created[fixture.Receipt], error) {
	return create(ctx, g.receipts, id, fixture.NewLoadReceipt(id, fiscalCode, pdfName, pdfURL))
}

// GetReceipt reads the receipt stored under id.
func (g *Gateway) GetReceipt(ctx context.Context, id string) (fixture.Receipt, error) {
	var r fixture.Receipt
	err := g.receipts.Read(ctx, id, id, &r)
	return r, err
}

func (g *Gateway) DeleteReceipt(ctx context.Context, id string) error {
	return remove(ctx, g.receipts, id)
}

// DeleteReceiptsByEventID removes every receipt generated for eventID.
func (g *Gateway) DeleteReceiptsByEventID(ctx context.Context, eventID string) (int, error) {
	return removeWhere(ctx, g.receipts, "eventId", eventID)
}

// CreateReceiptError stores a parked error for bizEventID. The payload is the
// biz event itself, encrypted the way the receipt service expects.
func (g *Gateway) CreateReceiptError(ctx context.Context, bizEventID, status string) (Created[fixture.ReceiptError], error) {
	encrypted, err := g.encryptBizEvent(bizEventID)
	if err != nil {
		return Created[fixture.ReceiptError]{}, err
	}
	return create(ctx, g.receiptErrors, bizEventID, fixture.NewReceiptError(bizEventID, status, encrypted))
}

func (g *Gateway) DeleteReceiptError(ctx context.Context, id string) error {
	return remove(ctx, g.receiptErrors, id)
}

// DeleteReceiptErrorsByEventID removes every parked error for bizEventID.
func (g *Gateway) DeleteReceiptErrorsByEventID(ctx context.Context, bizEventID string) (int, error) {
	return removeWhere(ctx, g.receiptErrors, "bizEventId", bizEventID)
}

func (g *Gateway) CreateReceiptMessage(ctx context.Context, eventID, messageID string) (Created[fixture.IOMessage], error) {
	return create(ctx, g.receiptMessages, messageID, fixture.NewIOMessage(eventID, messageID))
}

func (g *Gateway) DeleteReceiptMessage(ctx context.Context, messageID string) error {
	return remove(ctx, g.receiptMessages, messageID)
}

// CreateCart stores the two-notice cart seeded by scenario steps.
func (g *Gateway) CreateCart(ctx context.Context, cartID string) (Created[fixture.CartReceipt], error) {
	return create(ctx, g.cartReceipts, cartID, fixture.NewCart(cartID))
}

// CreateCartReceipt stores a cart with explicit payer and debtor.
func (g *Gateway) CreateCartReceipt(ctx context.Context, cartID, payerFiscalCode, payerBizEventID, debtorFiscalCode, debtorBizEventID, pdfName string) (Created[fixture.CartReceipt], error) {
	doc := fixture.NewCartReceipt(cartID, payerFiscalCode, payerBizEventID, debtorFiscalCode, debtorBizEventID, pdfName)
	return create(ctx, g.cartReceipts, cartID, doc)
}

func (g *Gateway) DeleteCartReceipt(ctx context.Context, cartID string) error {
	return remove(ctx, g.cartReceipts, cartID)
}

// CreateCartReceiptError stores a parked cart error whose payload is the
// encrypted biz event cartID.
func (g *Gateway) CreateCartReceiptError(ctx context.Context, cartID, status string) (Created[fixture.CartReceiptError], error) {
	encrypted, err := g.encryptBizEvent(cartID)
	if err != nil {
		return Created[fixture.CartReceiptError]{}, err
	}
	return create(ctx, g.cartReceiptErrors, cartID, fixture.NewCartReceiptError(cartID, status, encrypted))
}

func (g *Gateway) DeleteCartReceiptError(ctx context.Context, cartID string) error {
	return remove(ctx, g.cartReceiptErrors, cartID)
}

func (g *Gateway) CreateCartReceiptMessage(ctx context.Context, eventID, messageID string) (Created[fixture.CartIOMessage], error) {
	return create(ctx, g.cartReceiptMessages, messageID, fixture.NewCartIOMessage(eventID, messageID))
}

func (g *Gateway) DeleteCartReceiptMessage(ctx context.Context, messageID string) error {
	return remove(ctx, g.cartReceiptMessages, messageID)
}

func (g *Gateway) encryptBizEvent(id string) (string, error) {
	raw, err := json.Marshal(fixture.NewBizEvent(id, fixture.BizEventStatusDone))
	if err != nil {
		return "", fmt.Errorf("failed to encode biz event %s: %w", id, err)
	}
	if g.cipher == nil {
		return "", fmt.Errorf("no payload cipher configured for biz event %s", id)
	}
	encrypted, err := g.cipher.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt biz event %s: %w", id, err)
	}
	return encrypted, nil
}
