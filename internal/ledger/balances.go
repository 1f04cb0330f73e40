package ledger

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

// AggregateBalances folds the creditor's balance collection into per-currency
// confirmed and pending figures. Pending is reported as exactly one figure
// per currency: payments submitted minus payouts in flight, even when the
// API returns both contributing balance types separately. Unknown balance
// types are logged and skipped.
func AggregateBalances(ctx context.Context, client *gocardless.Client, creditorID string, logger *slog.Logger) ([]AccountBalance, error) {
	params := url.Values{}
	params.Set("creditor", creditorID)

	stream := gocardless.List[gocardless.Balance](client, nil, gocardless.TypeBalances, params)

	byCurrency := make(map[string]*AccountBalance)
	var order []string

	entry := func(currency string) *AccountBalance {
		if b, ok := byCurrency[currency]; ok {
			return b
		}
		b := &AccountBalance{Currency: currency}
		byCurrency[currency] = b
		order = append(order, currency)
		return b
	}

	for {
		balance, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		amount := major(balance.Amount, balance.Currency)
		switch balance.BalanceType {
		case gocardless.BalanceConfirmedFunds:
			entry(balance.Currency).Confirmed += amount
		case gocardless.BalancePendingPaymentsSubmitted:
			entry(balance.Currency).Pending += amount
		case gocardless.BalancePendingPayout:
			entry(balance.Currency).Pending -= amount
		default:
			logger.Warn("ignoring unknown balance type",
				"balance_type", balance.BalanceType,
				"currency", balance.Currency,
			)
		}
	}

	balances := make([]AccountBalance, 0, len(order))
	for _, currency := range order {
		balances = append(balances, *byCurrency[currency])
	}
	return balances, nil
}
