package gocardless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Resolver fetches single resources by type and id, cache-first. Cached
// entries are never re-validated within a run.
type Resolver struct {
	client *Client
	cache  *Cache
}

// NewResolver creates a resolver over the given refresh-scoped cache.
func NewResolver(client *Client, cache *Cache) *Resolver {
	return &Resolver{client: client, cache: cache}
}

// Resolve returns the object of the given type and id. On a cache miss it
// fetches the singular resource path and caches the result. A fetch that
// fails because the remote party purged personal data is returned as an
// error matching ErrCustomerDataRemoved so callers can degrade gracefully.
func Resolve[T any](ctx context.Context, r *Resolver, resourceType, id string) (*T, error) {
	raw, ok := r.cache.Get(resourceType, id)
	if !ok {
		body, err := r.client.get(ctx, "/"+resourceType+"/"+id, nil)
		if err != nil {
			if errors.Is(err, ErrCustomerDataRemoved) {
				return nil, fmt.Errorf("resolve %s %s: %w", resourceType, id, ErrCustomerDataRemoved)
			}
			return nil, err
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", resourceType, id, err)
		}
		raw, ok = envelope[resourceType]
		if !ok {
			return nil, fmt.Errorf("decode %s %s: missing %q key", resourceType, id, resourceType)
		}
		r.cache.Put(resourceType, id, raw)
	}

	var obj T
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", resourceType, id, err)
	}
	return &obj, nil
}

// Creditor resolves the creditor by id.
func (r *Resolver) Creditor(ctx context.Context, id string) (*Creditor, error) {
	return Resolve[Creditor](ctx, r, TypeCreditors, id)
}

// Mandate resolves a mandate by id.
func (r *Resolver) Mandate(ctx context.Context, id string) (*Mandate, error) {
	return Resolve[Mandate](ctx, r, TypeMandates, id)
}

// Payment resolves a payment by id.
func (r *Resolver) Payment(ctx context.Context, id string) (*Payment, error) {
	return Resolve[Payment](ctx, r, TypePayments, id)
}

// Refund resolves a refund by id.
func (r *Resolver) Refund(ctx context.Context, id string) (*Refund, error) {
	return Resolve[Refund](ctx, r, TypeRefunds, id)
}

// CustomerBankAccount resolves a customer-side bank account by id. The
// returned error matches ErrCustomerDataRemoved when the account's personal
// data was erased.
func (r *Resolver) CustomerBankAccount(ctx context.Context, id string) (*BankAccount, error) {
	return Resolve[BankAccount](ctx, r, TypeCustomerBankAccounts, id)
}

// CreditorBankAccount resolves a creditor-side bank account by id.
func (r *Resolver) CreditorBankAccount(ctx context.Context, id string) (*BankAccount, error) {
	return Resolve[BankAccount](ctx, r, TypeCreditorBankAccounts, id)
}
