package ledger

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/lukasbestle/moneymoney-gocardless/internal/events"
	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

// EventPublisher publishes sync lifecycle events to downstream integrations.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, env *events.Envelope) error
}

// Service runs refresh cycles for one creditor.
type Service struct {
	client     *gocardless.Client
	creditorID string
	locale     string
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewService creates a refresh service. publisher may be nil; refreshes then
// run without event notifications.
func NewService(client *gocardless.Client, creditorID, locale string, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		client:     client,
		creditorID: creditorID,
		locale:     locale,
		publisher:  publisher,
		logger:     logger,
	}
}

// RefreshResult is the product of one refresh cycle.
type RefreshResult struct {
	Balances     []AccountBalance `json:"balances"`
	Transactions []Transaction    `json:"transactions"`
}

// Refresh synthesizes the creditor's ledger from the given lower-bound
// timestamp: balances first, then the three primary collections, then the
// five reversal passes, merged into one output list. All intermediate state
// (object cache, merge maps) is scoped to this call and discarded at the
// end; concurrent refreshes never share it.
func (s *Service) Refresh(ctx context.Context, since time.Time) (*RefreshResult, error) {
	started := time.Now()
	cache := gocardless.NewCache()
	resolver := gocardless.NewResolver(s.client, cache)
	synth := NewSynthesizer(resolver, s.locale, s.logger)

	balances, err := AggregateBalances(ctx, s.client, s.creditorID, s.logger)
	if err != nil {
		return nil, err
	}

	var transactions []Transaction

	payments := gocardless.List[gocardless.Payment](s.client, cache, gocardless.TypePayments, url.Values{
		"creditor":         {s.creditorID},
		"charge_date[gte]": {gocardless.FormatDate(since)},
	})
	for {
		payment, ok, err := payments.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		// Cancelled and denied payments never reached the ledger.
		if payment.Status == gocardless.PaymentCancelled || payment.Status == gocardless.PaymentCustomerApprovalDenied {
			continue
		}
		tx, err := synth.Payment(ctx, &payment)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}

	refunds := gocardless.List[gocardless.Refund](s.client, cache, gocardless.TypeRefunds, url.Values{
		"created_at[gte]": {gocardless.FormatTimestamp(since)},
	})
	for {
		refund, ok, err := refunds.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		tx, err := synth.Refund(ctx, &refund)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}

	payouts := gocardless.List[gocardless.Payout](s.client, cache, gocardless.TypePayouts, url.Values{
		"creditor":        {s.creditorID},
		"created_at[gte]": {gocardless.FormatTimestamp(since)},
	})
	for {
		payout, ok, err := payouts.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		txs, err := synth.Payout(ctx, &payout)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txs...)
	}

	reconciler := NewReconciler(s.client, cache, resolver, synth, s.creditorID, s.logger)
	adjustments, err := reconciler.Run(ctx, since)
	if err != nil {
		return nil, err
	}
	transactions = append(transactions, adjustments...)

	s.logger.Info("refresh completed",
		"creditor_id", s.creditorID,
		"balances", len(balances),
		"transactions", len(transactions),
		"adjustments", len(adjustments),
		"cached_objects", cache.Len(),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	s.publishSyncCompleted(ctx, since, balances, transactions)

	return &RefreshResult{
		Balances:     balances,
		Transactions: transactions,
	}, nil
}

func (s *Service) publishSyncCompleted(ctx context.Context, since time.Time, balances []AccountBalance, transactions []Transaction) {
	if s.publisher == nil {
		return
	}

	currencies := make([]string, 0, len(balances))
	for _, b := range balances {
		currencies = append(currencies, b.Currency)
	}

	payload := events.SyncCompleted{
		CreditorID:       s.creditorID,
		TransactionCount: len(transactions),
		Currencies:       currencies,
		Since:            since,
		CompletedAt:      time.Now().UTC(),
	}

	env, err := events.NewEnvelope(events.TypeSyncCompleted, gocardless.TypeCreditors, s.creditorID, payload)
	if err != nil {
		s.logger.Error("encode sync event", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, events.SubjectSyncCompleted, env); err != nil {
		s.logger.Error("publish sync event", "error", err)
	}
}
