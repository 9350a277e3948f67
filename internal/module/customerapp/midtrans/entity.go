package midtrans

// Transaction statuses the gateway reports.
const (
	TransactionStatusPending    = "pending"
	TransactionStatusCapture    = "capture"
	TransactionStatusSettlement = "settlement"
	TransactionStatusDeny       = "deny"
	TransactionStatusCancel     = "cancel"
	TransactionStatusExpire     = "expire"
)

// Fraud verdicts attached to a transaction status.
const (
	FraudStatusAccept    = "accept"
	FraudStatusChallenge = "challenge"
	FraudStatusDeny      = "deny"
)

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type Expiry struct {
	Unit     string `json:"unit"`
	Duration int64  `json:"duration"`
}

type CreateTransactionRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	Expiry             *Expiry            `json:"expiry,omitempty"`
}

type CreateTransactionResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type TransactionStatus struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	TransactionID     string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	SignatureKey      string `json:"signature_key"`
}

// Settled reports whether the gateway considers the payment collected, with
// an accepted fraud verdict when one is present.
func (s TransactionStatus) Settled() bool {
	switch s.TransactionStatus {
	case TransactionStatusSettlement:
		return s.FraudStatus == "" || s.FraudStatus == FraudStatusAccept
	case TransactionStatusCapture:
		return s.FraudStatus == FraudStatusAccept
	}

	return false
}

// Failed reports whether the gateway terminally rejected or abandoned the
// payment.
func (s TransactionStatus) Failed() bool {
	switch s.TransactionStatus {
	case TransactionStatusDeny, TransactionStatusCancel, TransactionStatusExpire:
		return true
	}

	return s.FraudStatus == FraudStatusDeny
}
