package fixture

// BizEvent is a payment event as stored in the biz-events datastore.
type BizEvent struct {
	ID                        string              `json:"id"`
	Version                   string              `json:"version,omitempty"`
	IDPaymentManager          string              `json:"idPaymentManager,omitempty"`
	Complete                  string              `json:"complete,omitempty"`
	ReceiptID                 string              `json:"receiptId,omitempty"`
	MissingInfo               []string            `json:"missingInfo,omitempty"`
	DebtorPosition            *DebtorPosition     `json:"debtorPosition,omitempty"`
	Creditor                  *Creditor           `json:"creditor,omitempty"`
	Psp                       *Psp                `json:"psp,omitempty"`
	Debtor                    *Party              `json:"debtor,omitempty"`
	Payer                     *Party              `json:"payer,omitempty"`
	PaymentInfo               *PaymentInfo        `json:"paymentInfo,omitempty"`
	TransferList              []Transfer          `json:"transferList,omitempty"`
	TransactionDetails        *TransactionDetails `json:"transactionDetails,omitempty"`
	EventStatus               string              `json:"eventStatus"`
	EventRetryEnrichmentCount int                 `json:"eventRetryEnrichmentCount"`
}

type DebtorPosition struct {
	ModelType    string `json:"modelType"`
	NoticeNumber string `json:"noticeNumber"`
	IUV          string `json:"iuv"`
	IUR          string `json:"iur,omitempty"`
}

type Creditor struct {
	IDPA        string `json:"idPA"`
	IDBrokerPA  string `json:"idBrokerPA"`
	IDStation   string `json:"idStation"`
	CompanyName string `json:"companyName"`
	OfficeName  string `json:"officeName,omitempty"`
}

type Psp struct {
	IDPsp              string `json:"idPsp"`
	IDBrokerPsp        string `json:"idBrokerPsp"`
	IDChannel          string `json:"idChannel"`
	Psp                string `json:"psp"`
	PspFiscalCode      string `json:"pspFiscalCode,omitempty"`
	ChannelDescription string `json:"channelDescription,omitempty"`
}

// Party is the debtor or payer of a biz event.
type Party struct {
	FullName                    string `json:"fullName"`
	EntityUniqueIdentifierType  string `json:"entityUniqueIdentifierType"`
	EntityUniqueIdentifierValue string `json:"entityUniqueIdentifierValue"`
}

// PaymentInfo keeps amounts as decimal strings, the way the payment node
// reports them.
type PaymentInfo struct {
	PaymentDateTime       string `json:"paymentDateTime"`
	ApplicationDate       string `json:"applicationDate,omitempty"`
	TransferDate          string `json:"transferDate,omitempty"`
	DueDate               string `json:"dueDate,omitempty"`
	PaymentToken          string `json:"paymentToken"`
	Amount                string `json:"amount"`
	Fee                   string `json:"fee,omitempty"`
	TotalNotice           string `json:"totalNotice"`
	PaymentMethod         string `json:"paymentMethod"`
	Touchpoint            string `json:"touchpoint"`
	RemittanceInformation string `json:"remittanceInformation"`
	Description           string `json:"description,omitempty"`
	IUR                   string `json:"IUR,omitempty"`
}

type Transfer struct {
	IDTransfer            string `json:"idTransfer"`
	FiscalCodePA          string `json:"fiscalCodePA"`
	CompanyName           string `json:"companyName"`
	Amount                string `json:"amount"`
	TransferCategory      string `json:"transferCategory"`
	RemittanceInformation string `json:"remittanceInformation"`
}

type TransactionDetails struct {
	User        *User        `json:"user,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type User struct {
	FullName          string `json:"fullName"`
	Type              string `json:"type"`
	FiscalCode        string `json:"fiscalCode"`
	NotificationEmail string `json:"notificationEmail,omitempty"`
	UserID            string `json:"userId,omitempty"`
	UserStatus        string `json:"userStatus,omitempty"`
}

// Transaction amounts are in euro cents.
type Transaction struct {
	IDTransaction     string `json:"idTransaction"`
	TransactionID     string `json:"transactionId"`
	GrandTotal        int64  `json:"grandTotal"`
	Amount            int64  `json:"amount"`
	Fee               int64  `json:"fee"`
	TransactionStatus string `json:"transactionStatus"`
	AccountingStatus  string `json:"accountingStatus"`
	RRN               string `json:"rrn"`
	AuthorizationCode string `json:"authorizationCode"`
	CreationDate      string `json:"creationDate"`
	NumAut            string `json:"numAut,omitempty"`
	Origin            string `json:"origin,omitempty"`
}

// Receipt is the document the receipt generator derives from a biz event.
type Receipt struct {
	EventID              string           `json:"eventId"`
	ID                   string           `json:"id"`
	Version              string           `json:"version,omitempty"`
	EventData            *EventData       `json:"eventData,omitempty"`
	IOMessageData        *IOMessageData   `json:"ioMessageData,omitempty"`
	Status               string           `json:"status"`
	MdAttach             *ReceiptMetadata `json:"mdAttach,omitempty"`
	MdAttachPayer        *ReceiptMetadata `json:"mdAttachPayer,omitempty"`
	NumRetry             int              `json:"numRetry"`
	NotificationNumRetry int              `json:"notificationNumRetry"`
	ReasonErr            *ReasonError     `json:"reasonErr,omitempty"`
	ReasonErrPayer       *ReasonError     `json:"reasonErrPayer,omitempty"`
	InsertedAt           int64            `json:"inserted_at,omitempty"`
	GeneratedAt          int64            `json:"generated_at,omitempty"`
	NotifiedAt           int64            `json:"notified_at,omitempty"`
}

type EventData struct {
	PayerFiscalCode         string     `json:"payerFiscalCode,omitempty"`
	DebtorFiscalCode        string     `json:"debtorFiscalCode,omitempty"`
	TransactionCreationDate string     `json:"transactionCreationDate,omitempty"`
	Amount                  string     `json:"amount,omitempty"`
	Cart                    []CartItem `json:"cart,omitempty"`
}

type CartItem struct {
	Subject   string `json:"subject"`
	PayeeName string `json:"payeeName"`
}

// ReceiptMetadata points at a generated PDF in blob storage.
type ReceiptMetadata struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type IOMessageData struct {
	IDMessageDebtor string `json:"idMessageDebtor,omitempty"`
	IDMessagePayer  string `json:"idMessagePayer,omitempty"`
}

type ReasonError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CartReceipt groups the receipts of a multi-notice payment.
type CartReceipt struct {
	EventID              string       `json:"eventId,omitempty"`
	ID                   string       `json:"id"`
	Version              string       `json:"version,omitempty"`
	Payload              *CartPayload `json:"payload,omitempty"`
	Status               string       `json:"status"`
	NumRetry             int          `json:"numRetry"`
	NotificationNumRetry int          `json:"notificationNumRetry"`
	ReasonErr            *ReasonError `json:"reasonErr,omitempty"`
	InsertedAt           int64        `json:"inserted_at,omitempty"`
}

type CartPayload struct {
	PayerFiscalCode         string           `json:"payerFiscalCode,omitempty"`
	TransactionCreationDate string           `json:"transactionCreationDate,omitempty"`
	TotalNotice             int              `json:"totalNotice"`
	TotalAmount             string           `json:"totalAmount,omitempty"`
	MdAttachPayer           *ReceiptMetadata `json:"mdAttachPayer,omitempty"`
	MessagePayer            *MessageData     `json:"messagePayer,omitempty"`
	Cart                    []CartPayment    `json:"cart"`
	ReasonErrPayer          *ReasonError     `json:"reasonErrPayer,omitempty"`
}

// CartPayment is one notice inside a cart.
type CartPayment struct {
	BizEventID       string           `json:"bizEventId"`
	Subject          string           `json:"subject,omitempty"`
	PayeeName        string           `json:"payeeName,omitempty"`
	DebtorFiscalCode string           `json:"debtorFiscalCode,omitempty"`
	Amount           string           `json:"amount,omitempty"`
	MdAttach         *ReceiptMetadata `json:"mdAttach,omitempty"`
	MessageDebtor    *MessageData     `json:"messageDebtor,omitempty"`
	ReasonErrDebtor  *ReasonError     `json:"reasonErrDebtor,omitempty"`
}

type MessageData struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Markdown string `json:"markdown"`
}

// ReceiptError is a biz event the pipeline parked for manual review.
// MessagePayload holds the encrypted biz event.
type ReceiptError struct {
	ID             string `json:"id"`
	BizEventID     string `json:"bizEventId"`
	MessagePayload string `json:"messagePayload"`
	MessageError   string `json:"messageError"`
	Status         string `json:"status"`
}

type CartReceiptError struct {
	ID             string `json:"id"`
	MessagePayload string `json:"messagePayload"`
	MessageError   string `json:"messageError"`
	Status         string `json:"status"`
}

// IOMessage links a receipt to the App IO message sent for it.
type IOMessage struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	EventID   string `json:"eventId"`
	UserType  string `json:"userType"`
}

type CartIOMessage struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	CartID    string `json:"cartId"`
	EventID   string `json:"eventId"`
	UserType  string `json:"userType"`
	Subject   string `json:"subject,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
}
