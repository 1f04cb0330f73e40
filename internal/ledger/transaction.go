// Package ledger synthesizes a GoCardless creditor's event streams into a
// stable list of signed, booked-vs-pending transactions and per-currency
// balances for import into the host accounting application.
package ledger

import (
	"time"

	"github.com/lukasbestle/moneymoney-gocardless/internal/common/money"
)

// Transaction is the synthesized output record. Amounts are signed major
// units: collections positive, refunds and payouts negative, reversal
// adjustments negating the record they correct.
type Transaction struct {
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Booked        bool       `json:"booked"`
	BookingDate   time.Time  `json:"booking_date"`
	ValueDate     *time.Time `json:"value_date,omitempty"`
	Name          string     `json:"name,omitempty"`
	AccountNumber string     `json:"account_number,omitempty"`
	Reference     string     `json:"reference"`
	BookingText   string     `json:"booking_text"`
	Purpose       string     `json:"purpose,omitempty"`
}

// AccountBalance is a per-currency balance snapshot: confirmed funds plus a
// single net pending figure (payments submitted minus payouts in flight).
type AccountBalance struct {
	Currency  string  `json:"currency"`
	Confirmed float64 `json:"confirmed"`
	Pending   float64 `json:"pending"`
}

// major converts an API minor-unit amount to signed major units.
func major(amountMinor int64, currency string) float64 {
	return money.New(amountMinor, money.Currency(currency)).ToMajor()
}
