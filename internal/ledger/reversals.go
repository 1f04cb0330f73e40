package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
)

// eventPass scopes one reconciliation query to a (resource type, action)
// pair.
type eventPass struct {
	resourceType string
	action       string
}

// reversalPasses is the fixed reconciliation order. Later passes overwrite
// earlier merge-map entries for the same resource id, so a settled
// chargeback replaces its pending predecessor within one refresh.
var reversalPasses = []eventPass{
	{gocardless.TypePayments, gocardless.ActionFailed},
	{gocardless.TypePayments, gocardless.ActionChargedBack},
	{gocardless.TypePayments, gocardless.ActionChargebackSettled},
	{gocardless.TypeRefunds, gocardless.ActionFailed},
	{gocardless.TypeRefunds, gocardless.ActionFundsReturned},
}

// Reconciler turns reversal events (failures, chargebacks, bounced refunds)
// into negative-adjustment transactions. The remote API cannot filter events
// by creditor, so events whose mandate belongs to another creditor are
// discarded here.
type Reconciler struct {
	client     *gocardless.Client
	cache      *gocardless.Cache
	resolver   *gocardless.Resolver
	synth      *Synthesizer
	creditorID string
	logger     *slog.Logger
}

// NewReconciler creates a reconciler sharing the refresh's cache and
// resolver.
func NewReconciler(client *gocardless.Client, cache *gocardless.Cache, resolver *gocardless.Resolver, synth *Synthesizer, creditorID string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		client:     client,
		cache:      cache,
		resolver:   resolver,
		synth:      synth,
		creditorID: creditorID,
		logger:     logger,
	}
}

// Run executes the five reconciliation passes in order and returns the
// resulting adjustment transactions. Payment-failed events are cumulative
// (one transaction per failure, retries included); all other passes produce
// at most one transaction per affected resource id, with later passes
// replacing earlier entries.
func (r *Reconciler) Run(ctx context.Context, since time.Time) ([]Transaction, error) {
	var cumulative []Transaction
	merged := make(map[string]Transaction)
	var mergedOrder []string

	for _, pass := range reversalPasses {
		params := url.Values{}
		params.Set("resource_type", pass.resourceType)
		params.Set("action", pass.action)
		params.Set("created_at[gte]", gocardless.FormatTimestamp(since))

		stream := gocardless.List[gocardless.Event](r.client, r.cache, gocardless.TypeEvents, params)
		for {
			event, ok, err := stream.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}

			switch {
			case pass.resourceType == gocardless.TypePayments && pass.action == gocardless.ActionFailed:
				tx, err := r.paymentFailed(ctx, &event)
				if err != nil {
					return nil, err
				}
				if tx != nil {
					cumulative = append(cumulative, *tx)
				}

			case pass.resourceType == gocardless.TypePayments:
				settled := pass.action == gocardless.ActionChargebackSettled
				id, tx, err := r.chargeback(ctx, &event, settled)
				if err != nil {
					return nil, err
				}
				if tx != nil {
					if _, seen := merged[id]; !seen {
						mergedOrder = append(mergedOrder, id)
					}
					merged[id] = *tx
				}

			default:
				returned := pass.action == gocardless.ActionFundsReturned
				id, tx, err := r.refundReversal(ctx, &event, returned)
				if err != nil {
					return nil, err
				}
				if tx != nil {
					if _, seen := merged[id]; !seen {
						mergedOrder = append(mergedOrder, id)
					}
					merged[id] = *tx
				}
			}
		}
	}

	for _, id := range mergedOrder {
		cumulative = append(cumulative, merged[id])
	}
	return cumulative, nil
}

// paymentFailed emits one standalone booked adjustment per failure event.
// Retried failures are intentionally not deduplicated: each retry produced
// its own event, and each gets its own record.
func (r *Reconciler) paymentFailed(ctx context.Context, event *gocardless.Event) (*Transaction, error) {
	payment, err := r.resolver.Payment(ctx, event.Links.Payment)
	if err != nil {
		return nil, err
	}

	mandate, err := r.synth.paymentMandate(ctx, payment.Links)
	if err != nil {
		return nil, err
	}
	if !r.ownedByCreditor(mandate, event.ID) {
		return nil, nil
	}

	name, account, err := r.synth.customerCounterparty(ctx, mandate)
	if err != nil {
		return nil, err
	}

	bookingDate, err := gocardless.ParseTimestamp(event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", event.ID, err)
	}

	label := "Direct Debit"
	if mandate != nil {
		label = schemeLabel(mandate.Scheme)
	}

	return &Transaction{
		Amount:        -major(payment.Amount, payment.Currency),
		Currency:      payment.Currency,
		Booked:        true,
		BookingDate:   bookingDate,
		Name:          name,
		AccountNumber: account,
		Reference:     payment.ID,
		BookingText:   failedLabel(label, event.Details),
		Purpose:       joinPurpose(event.Details.Description, payment.Description),
	}, nil
}

// chargeback emits (or replaces) the adjustment for a charged-back payment.
// Payments whose current status is confirmed or paid out are skipped: the
// chargeback was itself reversed. When the chargeback has settled, the
// reason metadata must come from the original charged-back event, because
// settlement events carry no reason code.
func (r *Reconciler) chargeback(ctx context.Context, event *gocardless.Event, settled bool) (string, *Transaction, error) {
	payment, err := r.resolver.Payment(ctx, event.Links.Payment)
	if err != nil {
		return "", nil, err
	}
	if payment.Status == gocardless.PaymentConfirmed || payment.Status == gocardless.PaymentPaidOut {
		return "", nil, nil
	}

	mandate, err := r.synth.paymentMandate(ctx, payment.Links)
	if err != nil {
		return "", nil, err
	}
	if !r.ownedByCreditor(mandate, event.ID) {
		return "", nil, nil
	}

	details := event.Details
	if settled {
		original, err := r.originalChargeback(ctx, payment.ID)
		if err != nil {
			return "", nil, err
		}
		details = original.Details
	}

	name, account, err := r.synth.customerCounterparty(ctx, mandate)
	if err != nil {
		return "", nil, err
	}

	bookingDate, err := gocardless.ParseTimestamp(event.CreatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("event %s: %w", event.ID, err)
	}

	return payment.ID, &Transaction{
		Amount:        -major(payment.Amount, payment.Currency),
		Currency:      payment.Currency,
		Booked:        settled,
		BookingDate:   bookingDate,
		Name:          name,
		AccountNumber: account,
		Reference:     payment.ID,
		BookingText:   chargebackLabel(details),
		Purpose:       joinPurpose(details.Description, payment.Description),
	}, nil
}

// refundReversal emits (or replaces) the adjustment for a failed or returned
// refund. Booked only once the funds are confirmed returned.
func (r *Reconciler) refundReversal(ctx context.Context, event *gocardless.Event, returned bool) (string, *Transaction, error) {
	refund, err := r.resolver.Refund(ctx, event.Links.Refund)
	if err != nil {
		return "", nil, err
	}

	mandate, _, err := r.synth.refundRelations(ctx, refund)
	if err != nil {
		return "", nil, err
	}
	if !r.ownedByCreditor(mandate, event.ID) {
		return "", nil, nil
	}

	name, account, err := r.synth.customerCounterparty(ctx, mandate)
	if err != nil {
		return "", nil, err
	}

	bookingDate, err := gocardless.ParseTimestamp(event.CreatedAt)
	if err != nil {
		return "", nil, fmt.Errorf("event %s: %w", event.ID, err)
	}

	label := "Refund failed"
	if returned {
		label = "Refund returned"
	}
	if reason := reasonCode(event.Details); reason != "" {
		label = fmt.Sprintf("%s (%s)", label, reason)
	}

	return refund.ID, &Transaction{
		Amount:        -major(refund.Amount, refund.Currency),
		Currency:      refund.Currency,
		Booked:        returned,
		BookingDate:   bookingDate,
		Name:          name,
		AccountNumber: account,
		Reference:     refund.ID,
		BookingText:   label,
		Purpose:       event.Details.Description,
	}, nil
}

// originalChargeback fetches the charged-back event that a settlement event
// refers to. Finding none is fatal for the refresh: dropping the settlement
// silently would misstate the ledger.
func (r *Reconciler) originalChargeback(ctx context.Context, paymentID string) (*gocardless.Event, error) {
	params := url.Values{}
	params.Set("resource_type", gocardless.TypePayments)
	params.Set("action", gocardless.ActionChargedBack)
	params.Set("payment", paymentID)

	stream := gocardless.List[gocardless.Event](r.client, r.cache, gocardless.TypeEvents, params)
	event, ok, err := stream.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no charged_back event found for settled chargeback on payment %s", paymentID)
	}
	return &event, nil
}

// ownedByCreditor reports whether the event's mandate belongs to the account
// being refreshed. Events that cannot be attributed are discarded with a
// warning.
func (r *Reconciler) ownedByCreditor(mandate *gocardless.Mandate, eventID string) bool {
	if mandate == nil {
		r.logger.Warn("discarding event without resolvable mandate", "event_id", eventID)
		return false
	}
	if mandate.Links.Creditor != r.creditorID {
		return false
	}
	return true
}

func reasonCode(details gocardless.EventDetails) string {
	if details.ReasonCode != "" {
		return details.ReasonCode
	}
	return details.Cause
}

func failedLabel(label string, details gocardless.EventDetails) string {
	if reason := reasonCode(details); reason != "" {
		return fmt.Sprintf("Failed: %s (%s)", label, reason)
	}
	return "Failed: " + label
}

func chargebackLabel(details gocardless.EventDetails) string {
	if reason := reasonCode(details); reason != "" {
		return fmt.Sprintf("Chargeback (%s)", reason)
	}
	return "Chargeback"
}

// joinPurpose combines the event's failure description with the underlying
// object's description, failure first.
func joinPurpose(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " - ")
}
