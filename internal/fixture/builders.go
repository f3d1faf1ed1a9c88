package fixture

// Statuses stored on biz events.
const (
	BizEventStatusDone     = "DONE"
	BizEventStatusNA       = "NA"
	BizEventStatusRetry    = "RETRY"
	BizEventStatusFailed   = "FAILED"
	BizEventStatusIngested = "INGESTED"
)

// Receipt statuses.
const (
	ReceiptStatusNotQueueSent    = "NOT_QUEUE_SENT"
	ReceiptStatusInserted        = "INSERTED"
	ReceiptStatusRetry           = "RETRY"
	ReceiptStatusGenerated       = "GENERATED"
	ReceiptStatusSigned          = "SIGNED"
	ReceiptStatusFailed          = "FAILED"
	ReceiptStatusIONotified      = "IO_NOTIFIED"
	ReceiptStatusIOErrorToNotify = "IO_ERROR_TO_NOTIFY"
	ReceiptStatusIONotifierRetry = "IO_NOTIFIER_RETRY"
	ReceiptStatusUnableToSend    = "UNABLE_TO_SEND"
	ReceiptStatusNotToNotify     = "NOT_TO_NOTIFY"
	CartStatusWaitingForBizEvent = "WAITING_FOR_BIZ_EVENT"
	CartStatusToReview           = "TO_REVIEW"
)

// Statuses of receipt errors awaiting review.
const (
	ReceiptErrorStatusToReview = "TO_REVIEW"
	ReceiptErrorStatusReviewed = "REVIEWED"
	ReceiptErrorStatusRequeued = "REQUEUED"
)

// User types of IO messages.
const (
	UserTypeDebtor = "DEBTOR"
	UserTypePayer  = "PAYER"
)

const (
	// TokenizedFiscalCode stands in for the tokenizer's output in seeded
	// receipts. It never changes between runs.
	TokenizedFiscalCode = "cd07268c-73e8-4df4-8305-a35085e32eff"

	// DefaultFiscalCode is the plain fiscal code of the seeded debtor and payer.
	DefaultFiscalCode = "JHNDOE00A01F205N"

	// DefaultOrganizationFiscalCode and DefaultIUV identify the notice of a
	// biz event built without explicit creditor data.
	DefaultOrganizationFiscalCode = "66666666666"
	DefaultIUV                    = "02119891614290410"

	// DefaultPDFName is the attachment name of receipts built without one.
	DefaultPDFName = "pdfName"

	// CartMarker separates the transaction id from the cart index in cart ids.
	CartMarker = "_CART_"

	// Suffixes appended to a cart id to name its payer and debtor biz events.
	PayerSuffix  = "_PAYER"
	DebtorSuffix = "_DEBTOR"

	seedDateTime = "2023-04-12T16:21:39.022486"
)

// NewBizEvent builds a biz event for the default organization and IUV.
// An empty status defaults to DONE.
func NewBizEvent(id, status string) BizEvent {
	return NewBizEventWithIUV(id, status, DefaultOrganizationFiscalCode, DefaultIUV)
}

// NewBizEventWithIUV builds a biz event whose notice is identified by orgCode
// and iuv.
func NewBizEventWithIUV(id, status, orgCode, iuv string) BizEvent {
	if status == "" {
		status = BizEventStatusDone
	}
	return BizEvent{
		ID:               id,
		Version:          "2",
		IDPaymentManager: "54927408",
		Complete:         "false",
		ReceiptID:        "9851395f09544a04b288202299193ca6",
		MissingInfo:      []string{"psp.pspPartitaIVA", "paymentInfo.primaryCiIncurredFee", "paymentInfo.idBundle", "paymentInfo.idCiBundle"},
		DebtorPosition: &DebtorPosition{
			ModelType:    "2",
			NoticeNumber: "302119891614290410",
			IUV:          iuv,
		},
		Creditor: &Creditor{
			IDPA:        orgCode,
			IDBrokerPA:  orgCode,
			IDStation:   orgCode + "_08",
			CompanyName: "PA paolo",
			OfficeName:  "office PA",
		},
		Psp: &Psp{
			IDPsp:              "60000000001",
			IDBrokerPsp:        "60000000001",
			IDChannel:          "60000000001_08",
			Psp:                "PSP Paolo",
			PspFiscalCode:      "CF60000000006",
			ChannelDescription: "app",
		},
		Debtor: &Party{
			FullName:                    "John Doe",
			EntityUniqueIdentifierType:  "F",
			EntityUniqueIdentifierValue: DefaultFiscalCode,
		},
		Payer: &Party{
			FullName:                    "John Doe",
			EntityUniqueIdentifierType:  "F",
			EntityUniqueIdentifierValue: DefaultFiscalCode,
		},
		PaymentInfo: &PaymentInfo{
			PaymentDateTime:       seedDateTime,
			ApplicationDate:       "2021-10-01",
			TransferDate:          "2021-10-02",
			DueDate:               "2021-07-31",
			PaymentToken:          "9851395f09544a04b288202299193ca6",
			Amount:                "10.0",
			Fee:                   "2.0",
			TotalNotice:           "1",
			PaymentMethod:         "creditCard",
			Touchpoint:            "app",
			RemittanceInformation: "TARI 2021",
			Description:           "TARI 2021",
			IUR:                   "iur",
		},
		TransferList: []Transfer{{
			IDTransfer:            "1",
			FiscalCodePA:          orgCode,
			CompanyName:           "PA paolo",
			Amount:                "10.00",
			TransferCategory:      "paTest",
			RemittanceInformation: "/RFB/00202200000217527/5.00/TXT/",
		}},
		TransactionDetails: &TransactionDetails{
			User: &User{
				FullName:          "John Doe",
				Type:              "F",
				FiscalCode:        DefaultFiscalCode,
				NotificationEmail: "john.doe@mail.it",
				UserID:            "1234",
				UserStatus:        "11",
			},
			Transaction: &Transaction{
				IDTransaction:     "123456",
				TransactionID:     "123456",
				GrandTotal:        1200,
				Amount:            1000,
				Fee:               200,
				TransactionStatus: "Confermato",
				AccountingStatus:  "Contabilizzato",
				RRN:               "223560110624",
				AuthorizationCode: "00",
				CreationDate:      seedDateTime,
				NumAut:            "00",
				Origin:            "IO",
			},
		},
		EventStatus: status,
	}
}

// NewReceipt builds a notified receipt whose id equals its event id. Both
// fiscal codes are set to fiscalCode and the PDF is referenced by pdfName.
func NewReceipt(eventID, fiscalCode, pdfName string) Receipt {
	return Receipt{
		EventID: eventID,
		ID:      eventID,
		EventData: &EventData{
			PayerFiscalCode:  fiscalCode,
			DebtorFiscalCode: fiscalCode,
		},
		Status:   ReceiptStatusIONotified,
		MdAttach: &ReceiptMetadata{Name: pdfName, URL: pdfName},
	}
}

// NewReceiptWithStatus builds a receipt for the tokenized fiscal code with the
// given status. An empty status defaults to IO_NOTIFIED.
func NewReceiptWithStatus(eventID, status string) Receipt {
	r := NewReceipt(eventID, TokenizedFiscalCode, DefaultPDFName)
	if status != "" {
		r.Status = status
	}
	return r
}

// NewLoadReceipt builds the receipt the attachment load scenario reads. The
// attachment is stored under pdfName and served from pdfURL.
func NewLoadReceipt(id, fiscalCode, pdfName, pdfURL string) Receipt {
	return Receipt{
		EventID: id,
		ID:      id,
		EventData: &EventData{
			PayerFiscalCode:  fiscalCode,
			DebtorFiscalCode: fiscalCode,
		},
		Status:   ReceiptStatusIONotified,
		MdAttach: &ReceiptMetadata{Name: pdfName, URL: pdfURL},
		NumRetry: 0,
	}
}

// NewCartReceipt builds a two-notice cart: the first notice belongs to the
// payer, the second to a different debtor.
func NewCartReceipt(cartID, payerFiscalCode, payerBizEventID, debtorFiscalCode, debtorBizEventID, pdfName string) CartReceipt {
	return CartReceipt{
		EventID: cartID,
		ID:      cartID,
		Status:  ReceiptStatusIONotified,
		Payload: &CartPayload{
			PayerFiscalCode:         payerFiscalCode,
			TransactionCreationDate: seedDateTime,
			TotalNotice:             2,
			TotalAmount:             "20.00",
			MdAttachPayer:           &ReceiptMetadata{Name: pdfName, URL: pdfName},
			MessagePayer: &MessageData{
				ID:       cartID + PayerSuffix,
				Subject:  "Ricevuta del pagamento",
				Markdown: "Ecco la ricevuta del pagamento.",
			},
			Cart: []CartPayment{
				{
					BizEventID:       payerBizEventID,
					Subject:          "TARI 2021",
					PayeeName:        "PA paolo",
					DebtorFiscalCode: payerFiscalCode,
					Amount:           "10.00",
				},
				{
					BizEventID:       debtorBizEventID,
					Subject:          "TARI 2021",
					PayeeName:        "PA paolo",
					DebtorFiscalCode: debtorFiscalCode,
					Amount:           "10.00",
					MdAttach:         &ReceiptMetadata{Name: pdfName, URL: pdfName},
					MessageDebtor: &MessageData{
						ID:       cartID + DebtorSuffix,
						Subject:  "Ricevuta del pagamento",
						Markdown: "Ecco la ricevuta del pagamento.",
					},
				},
			},
		},
	}
}

// NewCart builds the cart seeded by scenario steps, with synthetic fiscal
// codes and biz event ids derived from cartID.
func NewCart(cartID string) CartReceipt {
	return NewCartReceipt(cartID, "PAYER_FISCAL_CODE", cartID+PayerSuffix, "DEBTOR_FISCAL_CODE", cartID+DebtorSuffix, DefaultPDFName)
}

// NewReceiptError builds a parked error for bizEventID. messagePayload is
// stored as given. An empty status defaults to TO_REVIEW.
func NewReceiptError(bizEventID, status, messagePayload string) ReceiptError {
	if status == "" {
		status = ReceiptErrorStatusToReview
	}
	return ReceiptError{
		ID:             bizEventID,
		BizEventID:     bizEventID,
		MessagePayload: messagePayload,
		MessageError:   "test error message",
		Status:         status,
	}
}

// NewCartReceiptError builds a parked cart error. An empty status defaults
// to TO_REVIEW.
func NewCartReceiptError(cartID, status, messagePayload string) CartReceiptError {
	if status == "" {
		status = ReceiptErrorStatusToReview
	}
	return CartReceiptError{
		ID:             cartID,
		MessagePayload: messagePayload,
		MessageError:   "test error message",
		Status:         status,
	}
}

// NewIOMessage builds the debtor message record for a receipt. The record id
// is the message id.
func NewIOMessage(eventID, messageID string) IOMessage {
	return IOMessage{
		ID:        messageID,
		MessageID: messageID,
		EventID:   eventID,
		UserType:  UserTypeDebtor,
	}
}

// NewCartIOMessage builds the debtor message record for a cart whose id is
// eventID.
func NewCartIOMessage(eventID, messageID string) CartIOMessage {
	return CartIOMessage{
		ID:        messageID,
		MessageID: messageID,
		CartID:    eventID,
		EventID:   eventID,
		UserType:  UserTypeDebtor,
		Subject:   "Ricevuta del pagamento",
		Markdown:  "Ecco la ricevuta del pagamento.",
	}
}
