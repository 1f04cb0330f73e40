package ledger

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasbestle/moneymoney-gocardless/internal/events"
)

type capturePublisher struct {
	subject string
	env     *events.Envelope
}

func (p *capturePublisher) Publish(ctx context.Context, subject string, env *events.Envelope) error {
	p.subject = subject
	p.env = env
	return nil
}

func TestServiceRefresh(t *testing.T) {
	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	paymentsPage := `{
		"payments": [
			{"id": "PM001", "amount": 2345, "currency": "EUR", "status": "confirmed",
			 "charge_date": "2024-05-01", "description": "Invoice 42", "links": {"mandate": "MD001"}},
			{"id": "PM002", "amount": 900, "currency": "EUR", "status": "cancelled",
			 "charge_date": "2024-05-02", "links": {"mandate": "MD001"}},
			{"id": "PM003", "amount": 100, "currency": "EUR", "status": "customer_approval_denied",
			 "charge_date": "2024-05-02", "links": {"mandate": "MD001"}}
		],
		"linked": {
			"mandates": [` + mandateMD001 + `],
			"customer_bank_accounts": [` + accountBA001 + `]
		},
		"meta": {"cursors": {"after": null}}
	}`

	api := &fakeAPI{
		t: t,
		objects: map[string]string{
			"/creditor_bank_accounts/CBA001": envelope("creditor_bank_accounts",
				`{"id": "CBA001", "account_number_ending": "1234", "account_holder_name": "ACME LTD"}`),
		},
		lists: func(r *http.Request) (string, bool) {
			q := r.URL.Query()
			switch r.URL.Path {
			case "/balances":
				return singlePage("balances",
					`{"balance_type": "confirmed_funds", "amount": 10000, "currency": "EUR"}`,
					`{"balance_type": "pending_payments_submitted", "amount": 5000, "currency": "EUR"}`,
				), true
			case "/payments":
				assert.Equal(t, "CR001", q.Get("creditor"))
				assert.Equal(t, "2024-04-01", q.Get("charge_date[gte]"))
				return paymentsPage, true
			case "/refunds":
				assert.Equal(t, "2024-04-01T00:00:00.000Z", q.Get("created_at[gte]"))
				return singlePage("refunds",
					`{"id": "RF001", "amount": 500, "currency": "EUR", "status": "paid",
					  "created_at": "2024-05-03T10:00:00.000Z", "links": {"mandate": "MD001"}}`,
				), true
			case "/payouts":
				assert.Equal(t, "CR001", q.Get("creditor"))
				return singlePage("payouts",
					`{"id": "PO001", "amount": 10000, "deducted_fees": 150, "currency": "EUR",
					  "status": "paid", "created_at": "2024-05-04T06:00:00.000Z", "arrival_date": "2024-05-06",
					  "links": {"creditor_bank_account": "CBA001"}}`,
				), true
			case "/events":
				return singlePage("events"), true
			}
			return "", false
		},
	}

	publisher := &capturePublisher{}
	service := NewService(newFakeClient(t, api), "CR001", "en", publisher, discardLogger())

	result, err := service.Refresh(context.Background(), since)
	require.NoError(t, err)

	require.Len(t, result.Balances, 1)
	assert.InDelta(t, 100.00, result.Balances[0].Confirmed, 0.0001)
	assert.InDelta(t, 50.00, result.Balances[0].Pending, 0.0001)

	// One payment (the cancelled and denied ones are skipped), one refund,
	// one payout plus its fee line.
	require.Len(t, result.Transactions, 4)

	var refs []string
	for _, tx := range result.Transactions {
		refs = append(refs, tx.Reference)
	}
	assert.Equal(t, []string{"PM001", "RF001", "PO001", "PO001.fees"}, refs)

	// The payment's relations came from the page's side-loads.
	assert.Equal(t, "JANE DOE", result.Transactions[0].Name)
	assert.InDelta(t, 23.45, result.Transactions[0].Amount, 0.0001)
	assert.InDelta(t, -5.00, result.Transactions[1].Amount, 0.0001)
	assert.InDelta(t, -100.00, result.Transactions[2].Amount, 0.0001)
	assert.InDelta(t, -1.50, result.Transactions[3].Amount, 0.0001)

	// Completion event published.
	require.NotNil(t, publisher.env)
	assert.Equal(t, events.SubjectSyncCompleted, publisher.subject)
	assert.Equal(t, events.TypeSyncCompleted, publisher.env.Type)
	assert.Equal(t, "CR001", publisher.env.AggregateID)

	var payload events.SyncCompleted
	require.NoError(t, publisher.env.DecodeData(&payload))
	assert.Equal(t, "CR001", payload.CreditorID)
	assert.Equal(t, 4, payload.TransactionCount)
	assert.Equal(t, []string{"EUR"}, payload.Currencies)
}

func TestServiceRefreshWithoutPublisher(t *testing.T) {
	api := &fakeAPI{
		t: t,
		lists: func(r *http.Request) (string, bool) {
			switch r.URL.Path {
			case "/balances":
				return singlePage("balances"), true
			case "/payments":
				return singlePage("payments"), true
			case "/refunds":
				return singlePage("refunds"), true
			case "/payouts":
				return singlePage("payouts"), true
			case "/events":
				return singlePage("events"), true
			}
			return "", false
		},
	}

	service := NewService(newFakeClient(t, api), "CR001", "en", nil, discardLogger())

	result, err := service.Refresh(context.Background(), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, result.Balances)
	assert.Empty(t, result.Transactions)
}
