package domain

// PaymentReconciled is queued through the outbox exactly once per order,
// when the stock-update guard is claimed for a paid outcome.
type PaymentReconciled struct {
	OrderID          string `json:"order_id"`
	Reference        string `json:"reference"`
	UserID           string `json:"user_id"`
	TransactionID    string `json:"transaction_id"`
	ConfirmationCode string `json:"confirmation_code"`
	TotalCents       int64  `json:"total_cents"`
}
