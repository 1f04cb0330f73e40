package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

// schemeLabels maps GoCardless payment schemes to display labels. Unknown
// schemes fall back to the raw code.
var schemeLabels = map[string]string{
	"ach":              "ACH Debit",
	"autogiro":         "Autogiro",
	"bacs":             "Bacs Direct Debit",
	"becs":             "BECS Direct Debit",
	"becs_nz":          "BECS NZ Direct Debit",
	"betalingsservice": "Betalingsservice",
	"faster_payments":  "Faster Payments",
	"pad":              "Pre-Authorized Debit",
	"pay_to":           "PayTo",
	"sepa_core":        "SEPA Core Direct Debit",
	"sepa_cor1":        "SEPA COR1 Direct Debit",
}

func schemeLabel(scheme string) string {
	if label, ok := schemeLabels[scheme]; ok {
		return label
	}
	return scheme
}

// Booking-state rule: statuses under which a record is final from the
// ledger's perspective. Failed and charged-back payments (and bounced or
// returned refunds) are booked; their amount is corrected by a paired
// negative adjustment from the reversal reconciler instead of staying
// pending indefinitely.
var (
	bookedPaymentStatuses = map[string]bool{
		gocardless.PaymentConfirmed:   true,
		gocardless.PaymentPaidOut:     true,
		gocardless.PaymentFailed:      true,
		gocardless.PaymentChargedBack: true,
	}
	bookedRefundStatuses = map[string]bool{
		gocardless.RefundSubmitted:     true,
		gocardless.RefundPaid:          true,
		gocardless.RefundBounced:       true,
		gocardless.RefundFundsReturned: true,
	}
)

// Synthesizer maps payments, refunds, and payouts onto ledger transactions,
// applying class-specific sign, status, and label rules.
type Synthesizer struct {
	resolver *gocardless.Resolver
	locale   string
	logger   *slog.Logger
}

// NewSynthesizer creates a synthesizer over the refresh's resolver.
func NewSynthesizer(resolver *gocardless.Resolver, locale string, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{resolver: resolver, locale: locale, logger: logger}
}

// Payment synthesizes one ledger transaction for a payment. The booking date
// is the charge date, not the creation date.
func (s *Synthesizer) Payment(ctx context.Context, p *gocardless.Payment) (*Transaction, error) {
	mandate, err := s.paymentMandate(ctx, p.Links)
	if err != nil {
		return nil, err
	}

	name, account, err := s.customerCounterparty(ctx, mandate)
	if err != nil {
		return nil, err
	}

	bookingDate, err := gocardless.ParseDate(p.ChargeDate)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", p.ID, err)
	}

	label := "Direct Debit"
	if mandate != nil {
		label = schemeLabel(mandate.Scheme)
	}

	return &Transaction{
		Amount:        major(p.Amount, p.Currency),
		Currency:      p.Currency,
		Booked:        bookedPaymentStatuses[p.Status],
		BookingDate:   bookingDate,
		Name:          name,
		AccountNumber: account,
		Reference:     p.ID,
		BookingText:   label,
		Purpose:       p.Description,
	}, nil
}

// Refund synthesizes one ledger transaction for a refund: a debit whose
// reference and purpose carry the originating payment when resolvable.
func (s *Synthesizer) Refund(ctx context.Context, r *gocardless.Refund) (*Transaction, error) {
	mandate, payment, err := s.refundRelations(ctx, r)
	if err != nil {
		return nil, err
	}

	name, account, err := s.customerCounterparty(ctx, mandate)
	if err != nil {
		return nil, err
	}

	bookingDate, err := gocardless.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", r.ID, err)
	}

	reference := r.ID
	purpose := "Refund"
	if payment != nil {
		reference = fmt.Sprintf("%s (%s)", r.ID, payment.ID)
		if payment.Description != "" {
			purpose = "Refund: " + payment.Description
		}
	}

	return &Transaction{
		Amount:        -major(r.Amount, r.Currency),
		Currency:      r.Currency,
		Booked:        bookedRefundStatuses[r.Status],
		BookingDate:   bookingDate,
		Name:          name,
		AccountNumber: account,
		Reference:     reference,
		BookingText:   "Refund",
		Purpose:       purpose,
	}, nil
}

// Payout synthesizes two ledger transactions for a payout: the transfer
// itself and a synthetic fee line. The remote ledger reports deducted fees
// only as a payout sub-field, never as its own resource, so the fee line is
// fabricated here with the payout's booking date.
func (s *Synthesizer) Payout(ctx context.Context, p *gocardless.Payout) ([]Transaction, error) {
	bookingDate, err := gocardless.ParseTimestamp(p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("payout %s: %w", p.ID, err)
	}

	tx := Transaction{
		Amount:      -major(p.Amount, p.Currency),
		Currency:    p.Currency,
		Booked:      p.Status == gocardless.PayoutPaid,
		BookingDate: bookingDate,
		Reference:   p.ID,
		BookingText: "Payout",
		Purpose:     p.Reference,
	}

	if p.ArrivalDate != "" {
		valueDate, err := gocardless.ParseDate(p.ArrivalDate)
		if err != nil {
			return nil, fmt.Errorf("payout %s: %w", p.ID, err)
		}
		tx.ValueDate = &valueDate
	}

	if p.Links.CreditorBankAccount != "" {
		account, err := s.resolver.CreditorBankAccount(ctx, p.Links.CreditorBankAccount)
		if err != nil {
			return nil, err
		}
		tx.Name = account.AccountHolderName
		tx.AccountNumber = maskedAccount(account)
	}

	txs := []Transaction{tx}
	if p.DeductedFees != 0 {
		txs = append(txs, Transaction{
			Amount:      -major(p.DeductedFees, p.Currency),
			Currency:    p.Currency,
			Booked:      tx.Booked,
			BookingDate: bookingDate,
			Reference:   p.ID + ".fees",
			BookingText: "GoCardless fees",
			Purpose:     "Fees deducted from payout " + p.ID,
		})
	}
	return txs, nil
}

// paymentMandate follows a payment's mandate link. A payment without a
// mandate link yields no mandate, not an error.
func (s *Synthesizer) paymentMandate(ctx context.Context, links gocardless.PaymentLinks) (*gocardless.Mandate, error) {
	if links.Mandate == "" {
		return nil, nil
	}
	return s.resolver.Mandate(ctx, links.Mandate)
}

// refundRelations resolves a refund's mandate, following the direct mandate
// link if present and otherwise the owning payment's. Refunds may be created
// without a visible payment link.
func (s *Synthesizer) refundRelations(ctx context.Context, r *gocardless.Refund) (*gocardless.Mandate, *gocardless.Payment, error) {
	var payment *gocardless.Payment
	if r.Links.Payment != "" {
		var err error
		payment, err = s.resolver.Payment(ctx, r.Links.Payment)
		if err != nil {
			return nil, nil, err
		}
	}

	if r.Links.Mandate != "" {
		mandate, err := s.resolver.Mandate(ctx, r.Links.Mandate)
		return mandate, payment, err
	}
	if payment != nil && payment.Links.Mandate != "" {
		mandate, err := s.resolver.Mandate(ctx, payment.Links.Mandate)
		return mandate, payment, err
	}
	return nil, payment, nil
}

// customerCounterparty resolves the mandate's customer bank account. If the
// account is unresolvable because the customer's personal data was erased,
// the name degrades to a localized placeholder instead of failing the
// refresh.
func (s *Synthesizer) customerCounterparty(ctx context.Context, mandate *gocardless.Mandate) (name, account string, err error) {
	if mandate == nil || mandate.Links.CustomerBankAccount == "" {
		return "", "", nil
	}

	bankAccount, err := s.resolver.CustomerBankAccount(ctx, mandate.Links.CustomerBankAccount)
	if err != nil {
		if errors.Is(err, gocardless.ErrCustomerDataRemoved) {
			s.logger.Debug("customer data removed, using placeholder",
				"mandate_id", mandate.ID,
				"bank_account_id", mandate.Links.CustomerBankAccount,
			)
			return removedCustomerName(s.locale), "", nil
		}
		return "", "", err
	}
	return bankAccount.AccountHolderName, maskedAccount(bankAccount), nil
}

// maskedAccount renders the masked account string the host displays.
func maskedAccount(account *gocardless.BankAccount) string {
	if account.AccountNumberEnding == "" {
		return ""
	}
	return "****" + account.AccountNumberEnding
}
