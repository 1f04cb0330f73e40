package ledger

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

func newSynthesizer(t *testing.T, handler http.Handler, locale string) *Synthesizer {
	t.Helper()
	client := newFakeClient(t, handler)
	resolver := gocardless.NewResolver(client, gocardless.NewCache())
	return NewSynthesizer(resolver, locale, discardLogger())
}

func TestSynthesizePayment(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{
		"/mandates/MD001":               envelope("mandates", mandateMD001),
		"/customer_bank_accounts/BA001": envelope("customer_bank_accounts", accountBA001),
	}}
	synth := newSynthesizer(t, api, "en")

	payment := &gocardless.Payment{
		ID:          "PM001",
		Amount:      2345,
		Currency:    "EUR",
		Status:      gocardless.PaymentConfirmed,
		CreatedAt:   "2024-04-28T09:00:00.000Z",
		ChargeDate:  "2024-05-01",
		Description: "Invoice 42",
		Links:       gocardless.PaymentLinks{Mandate: "MD001"},
	}

	tx, err := synth.Payment(context.Background(), payment)
	require.NoError(t, err)

	assert.InDelta(t, 23.45, tx.Amount, 0.0001)
	assert.Equal(t, "EUR", tx.Currency)
	assert.True(t, tx.Booked)
	// Booking date follows the charge date, not the creation date.
	assert.Equal(t, 2024, tx.BookingDate.Year())
	assert.Equal(t, 1, tx.BookingDate.Day())
	assert.Equal(t, "JANE DOE", tx.Name)
	assert.Equal(t, "****2846", tx.AccountNumber)
	assert.Equal(t, "PM001", tx.Reference)
	assert.Equal(t, "SEPA Core Direct Debit", tx.BookingText)
	assert.Equal(t, "Invoice 42", tx.Purpose)
}

func TestSynthesizePaymentBookedStates(t *testing.T) {
	tests := []struct {
		status string
		booked bool
	}{
		{gocardless.PaymentPendingSubmission, false},
		{gocardless.PaymentSubmitted, false},
		{gocardless.PaymentConfirmed, true},
		{gocardless.PaymentPaidOut, true},
		// Failed and charged-back payments stay booked; the reconciler
		// emits the correcting record.
		{gocardless.PaymentFailed, true},
		{gocardless.PaymentChargedBack, true},
	}

	api := &fakeAPI{t: t, objects: map[string]string{}}
	synth := newSynthesizer(t, api, "en")

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			tx, err := synth.Payment(context.Background(), &gocardless.Payment{
				ID:         "PM-" + tt.status,
				Amount:     1000,
				Currency:   "GBP",
				Status:     tt.status,
				ChargeDate: "2024-05-01",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.booked, tx.Booked)
		})
	}
}

func TestSynthesizePaymentWithoutMandate(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{}}
	synth := newSynthesizer(t, api, "en")

	tx, err := synth.Payment(context.Background(), &gocardless.Payment{
		ID:         "PM002",
		Amount:     500,
		Currency:   "GBP",
		Status:     gocardless.PaymentSubmitted,
		ChargeDate: "2024-05-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "Direct Debit", tx.BookingText)
	assert.Empty(t, tx.Name)
	assert.Empty(t, tx.AccountNumber)
}

func TestSynthesizePaymentCustomerDataRemoved(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{
		"/mandates/MD001": envelope("mandates", mandateMD001),
	}}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/customer_bank_accounts/BA001" {
			customerRemovedError(w)
			return
		}
		api.ServeHTTP(w, r)
	})

	tests := []struct {
		locale string
		want   string
	}{
		{"en", "Removed customer"},
		{"de", "Entfernter Kunde"},
		{"nl", "Removed customer"}, // unsupported locale falls back to English
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			synth := newSynthesizer(t, handler, tt.locale)
			tx, err := synth.Payment(context.Background(), &gocardless.Payment{
				ID:         "PM003",
				Amount:     1000,
				Currency:   "EUR",
				Status:     gocardless.PaymentConfirmed,
				ChargeDate: "2024-05-01",
				Links:      gocardless.PaymentLinks{Mandate: "MD001"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tx.Name)
			assert.Empty(t, tx.AccountNumber)
		})
	}
}

func TestSynthesizePaymentMalformedChargeDate(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{}}
	synth := newSynthesizer(t, api, "en")

	_, err := synth.Payment(context.Background(), &gocardless.Payment{
		ID:         "PM004",
		Amount:     1000,
		Currency:   "EUR",
		Status:     gocardless.PaymentConfirmed,
		ChargeDate: "05/01/2024",
	})
	assert.Error(t, err)
}

func TestSynthesizeRefund(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{
		"/payments/PM001": envelope("payments",
			`{"id": "PM001", "amount": 2345, "currency": "EUR", "status": "paid_out", "description": "Invoice 42", "links": {"mandate": "MD001"}}`),
		"/mandates/MD001":               envelope("mandates", mandateMD001),
		"/customer_bank_accounts/BA001": envelope("customer_bank_accounts", accountBA001),
	}}
	synth := newSynthesizer(t, api, "en")

	refund := &gocardless.Refund{
		ID:        "RF001",
		Amount:    2345,
		Currency:  "EUR",
		Status:    gocardless.RefundPaid,
		CreatedAt: "2024-05-03T10:15:00.000Z",
		Links:     gocardless.RefundLinks{Payment: "PM001"},
	}

	tx, err := synth.Refund(context.Background(), refund)
	require.NoError(t, err)

	assert.InDelta(t, -23.45, tx.Amount, 0.0001)
	assert.True(t, tx.Booked)
	assert.Equal(t, "RF001 (PM001)", tx.Reference)
	assert.Equal(t, "Refund", tx.BookingText)
	assert.Equal(t, "Refund: Invoice 42", tx.Purpose)
	assert.Equal(t, "JANE DOE", tx.Name)
}

func TestSynthesizeRefundWithoutPaymentLink(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{
		"/mandates/MD001":               envelope("mandates", mandateMD001),
		"/customer_bank_accounts/BA001": envelope("customer_bank_accounts", accountBA001),
	}}
	synth := newSynthesizer(t, api, "en")

	tx, err := synth.Refund(context.Background(), &gocardless.Refund{
		ID:        "RF002",
		Amount:    500,
		Currency:  "EUR",
		Status:    gocardless.RefundCreated,
		CreatedAt: "2024-05-03T10:15:00.000Z",
		Links:     gocardless.RefundLinks{Mandate: "MD001"},
	})
	require.NoError(t, err)

	assert.Equal(t, "RF002", tx.Reference)
	assert.Equal(t, "Refund", tx.Purpose)
	assert.False(t, tx.Booked)
}

func TestSynthesizePayoutWithFees(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{
		"/creditor_bank_accounts/CBA001": envelope("creditor_bank_accounts",
			`{"id": "CBA001", "account_number_ending": "1234", "account_holder_name": "ACME LTD"}`),
	}}
	synth := newSynthesizer(t, api, "en")

	payout := &gocardless.Payout{
		ID:           "PO001",
		Amount:       10000,
		DeductedFees: 150,
		Currency:     "GBP",
		Status:       gocardless.PayoutPaid,
		CreatedAt:    "2024-05-04T06:00:00.000Z",
		ArrivalDate:  "2024-05-06",
		Reference:    "ACME-MAY",
		Links:        gocardless.PayoutLinks{CreditorBankAccount: "CBA001"},
	}

	txs, err := synth.Payout(context.Background(), payout)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.InDelta(t, -100.00, txs[0].Amount, 0.0001)
	assert.True(t, txs[0].Booked)
	assert.Equal(t, "PO001", txs[0].Reference)
	assert.Equal(t, "Payout", txs[0].BookingText)
	assert.Equal(t, "ACME-MAY", txs[0].Purpose)
	assert.Equal(t, "ACME LTD", txs[0].Name)
	assert.Equal(t, "****1234", txs[0].AccountNumber)
	require.NotNil(t, txs[0].ValueDate)
	assert.Equal(t, 6, txs[0].ValueDate.Day())

	assert.InDelta(t, -1.50, txs[1].Amount, 0.0001)
	assert.True(t, txs[1].Booked)
	assert.Equal(t, "PO001.fees", txs[1].Reference)
	assert.Equal(t, "GoCardless fees", txs[1].BookingText)
	assert.Equal(t, txs[0].BookingDate, txs[1].BookingDate)
}

func TestSynthesizePayoutWithoutFees(t *testing.T) {
	api := &fakeAPI{t: t, objects: map[string]string{}}
	synth := newSynthesizer(t, api, "en")

	txs, err := synth.Payout(context.Background(), &gocardless.Payout{
		ID:        "PO002",
		Amount:    5000,
		Currency:  "GBP",
		Status:    gocardless.PayoutPending,
		CreatedAt: "2024-05-04T06:00:00.000Z",
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.False(t, txs[0].Booked)
	assert.Nil(t, txs[0].ValueDate)
}

func TestSchemeLabels(t *testing.T) {
	assert.Equal(t, "Bacs Direct Debit", schemeLabel("bacs"))
	assert.Equal(t, "ACH Debit", schemeLabel("ach"))
	// Unknown schemes pass through.
	assert.Equal(t, "some_future_scheme", schemeLabel("some_future_scheme"))
}
