package gocardless

// Resource type identifiers as they appear in paths, linked maps, and event
// queries.
const (
	TypeCreditors            = "creditors"
	TypeCreditorBankAccounts = "creditor_bank_accounts"
	TypeCustomerBankAccounts = "customer_bank_accounts"
	TypeMandates             = "mandates"
	TypePayments             = "payments"
	TypeRefunds              = "refunds"
	TypePayouts              = "payouts"
	TypeEvents               = "events"
	TypeBalances             = "balances"
)

// Payment statuses.
const (
	PaymentPendingSubmission      = "pending_submission"
	PaymentSubmitted              = "submitted"
	PaymentConfirmed              = "confirmed"
	PaymentPaidOut                = "paid_out"
	PaymentFailed                 = "failed"
	PaymentChargedBack            = "charged_back"
	PaymentCancelled              = "cancelled"
	PaymentCustomerApprovalDenied = "customer_approval_denied"
)

// Payout statuses.
const (
	PayoutPending = "pending"
	PayoutPaid    = "paid"
)

// Refund statuses.
const (
	RefundCreated           = "created"
	RefundPendingSubmission = "pending_submission"
	RefundSubmitted         = "submitted"
	RefundPaid              = "paid"
	RefundBounced           = "bounced"
	RefundFundsReturned     = "funds_returned"
)

// Event actions the reconciliation passes query for.
const (
	ActionFailed            = "failed"
	ActionChargedBack       = "charged_back"
	ActionChargebackSettled = "chargeback_settled"
	ActionFundsReturned     = "funds_returned"
)

// Balance types.
const (
	BalanceConfirmedFunds           = "confirmed_funds"
	BalancePendingPaymentsSubmitted = "pending_payments_submitted"
	BalancePendingPayout            = "pending_payout"
)

// Creditor is the merchant account whose ledger is synthesized.
type Creditor struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	FallbackCurrency string `json:"fallback_currency,omitempty"`
}

// Mandate authorizes a creditor to collect from a payer's bank account.
type Mandate struct {
	ID        string       `json:"id"`
	Scheme    string       `json:"scheme"`
	Reference string       `json:"reference,omitempty"`
	Links     MandateLinks `json:"links"`
}

// MandateLinks are the mandate's related resource ids.
type MandateLinks struct {
	Creditor            string `json:"creditor"`
	CustomerBankAccount string `json:"customer_bank_account"`
}

// BankAccount is a customer- or creditor-side bank account. All fields are
// optional: the remote party may have purged personal data.
type BankAccount struct {
	ID                  string `json:"id"`
	AccountNumberEnding string `json:"account_number_ending,omitempty"`
	AccountHolderName   string `json:"account_holder_name,omitempty"`
	BankName            string `json:"bank_name,omitempty"`
}

// Payment is a single direct debit collection. Amount is in minor units.
type Payment struct {
	ID          string       `json:"id"`
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Status      string       `json:"status"`
	CreatedAt   string       `json:"created_at"`
	ChargeDate  string       `json:"charge_date,omitempty"`
	Description string       `json:"description,omitempty"`
	Links       PaymentLinks `json:"links"`
}

// PaymentLinks are the payment's related resource ids.
type PaymentLinks struct {
	Mandate string `json:"mandate,omitempty"`
	Payout  string `json:"payout,omitempty"`
}

// Refund is money returned to a customer. Amount is in minor units.
type Refund struct {
	ID        string      `json:"id"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	Status    string      `json:"status"`
	CreatedAt string      `json:"created_at"`
	Reference string      `json:"reference,omitempty"`
	Links     RefundLinks `json:"links"`
}

// RefundLinks are the refund's related resource ids. Mandate may be absent;
// refunds created against a payment only carry the payment link.
type RefundLinks struct {
	Payment string `json:"payment,omitempty"`
	Mandate string `json:"mandate,omitempty"`
}

// Payout is a transfer of collected funds to the creditor's bank account.
// DeductedFees is reported only here, never as its own resource.
type Payout struct {
	ID           string      `json:"id"`
	Amount       int64       `json:"amount"`
	DeductedFees int64       `json:"deducted_fees"`
	Currency     string      `json:"currency"`
	Status       string      `json:"status"`
	CreatedAt    string      `json:"created_at"`
	ArrivalDate  string      `json:"arrival_date,omitempty"`
	Reference    string      `json:"reference,omitempty"`
	Links        PayoutLinks `json:"links"`
}

// PayoutLinks are the payout's related resource ids.
type PayoutLinks struct {
	Creditor            string `json:"creditor,omitempty"`
	CreditorBankAccount string `json:"creditor_bank_account,omitempty"`
}

// Event is an immutable record of a state transition on a payment or refund.
type Event struct {
	ID        string       `json:"id"`
	Action    string       `json:"action"`
	CreatedAt string       `json:"created_at"`
	Details   EventDetails `json:"details"`
	Links     EventLinks   `json:"links"`
}

// EventDetails carries the reason/description metadata of an event.
// Settlement events carry no reason code; the original charged-back event
// must be consulted instead.
type EventDetails struct {
	Cause       string `json:"cause,omitempty"`
	ReasonCode  string `json:"reason_code,omitempty"`
	Description string `json:"description,omitempty"`
	Origin      string `json:"origin,omitempty"`
}

// EventLinks point at the affected resource.
type EventLinks struct {
	Payment     string `json:"payment,omitempty"`
	Refund      string `json:"refund,omitempty"`
	ParentEvent string `json:"parent_event,omitempty"`
}

// Balance is a per-currency snapshot of one balance type. Amount is in minor
// units.
type Balance struct {
	BalanceType string `json:"balance_type"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}
