package gocardless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// listMeta is the pagination trailer of a list response.
type listMeta struct {
	Cursors struct {
		After string `json:"after"`
	} `json:"cursors"`
}

// Stream is a lazy, finite, non-restartable sequence over a cursor-paginated
// collection. Each page's side-loaded related objects are inserted into the
// cache before the page's primary objects are yielded, so consumers can
// resolve relations without extra round trips. A new Stream must be
// constructed to iterate again.
type Stream[T any] struct {
	client       *Client
	cache        *Cache
	resourceType string
	params       url.Values

	buf    []T
	cursor string
	done   bool
}

// List constructs a stream over the named collection. Nothing is fetched
// until the first Next call.
func List[T any](client *Client, cache *Cache, resourceType string, params url.Values) *Stream[T] {
	if params == nil {
		params = url.Values{}
	}
	return &Stream[T]{
		client:       client,
		cache:        cache,
		resourceType: resourceType,
		params:       params,
	}
}

// Next yields the next object. The second result is false once the sequence
// is exhausted. Any API error not absorbed by the retry policy is returned.
func (s *Stream[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for len(s.buf) == 0 {
		if s.done {
			return zero, false, nil
		}
		if err := s.fetchPage(ctx); err != nil {
			return zero, false, err
		}
	}
	item := s.buf[0]
	s.buf = s.buf[1:]
	return item, true, nil
}

// Collect drains the stream into a slice.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}

// fetchPage issues one request, caches the page's side-loads, decodes the
// primary objects into the buffer, and threads the trailing cursor into the
// next request. A page without a cursor terminates the sequence.
func (s *Stream[T]) fetchPage(ctx context.Context) error {
	params := url.Values{}
	for k, v := range s.params {
		params[k] = v
	}
	if s.cursor != "" {
		params.Set("after", s.cursor)
	}

	body, err := s.client.get(ctx, "/"+s.resourceType, params)
	if err != nil {
		return err
	}

	var page map[string]json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		return fmt.Errorf("decode %s page: %w", s.resourceType, err)
	}

	if linked, ok := page["linked"]; ok && s.cache != nil {
		if err := s.cacheLinked(linked); err != nil {
			return err
		}
	}

	var items []json.RawMessage
	if raw, ok := page[s.resourceType]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("decode %s items: %w", s.resourceType, err)
		}
	}
	for _, raw := range items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("decode %s item: %w", s.resourceType, err)
		}
		s.buf = append(s.buf, item)
	}

	var meta listMeta
	if raw, ok := page["meta"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("decode %s meta: %w", s.resourceType, err)
		}
	}
	s.cursor = meta.Cursors.After
	if s.cursor == "" {
		s.done = true
	}
	return nil
}

// cacheLinked inserts the side-loaded related objects into the cache, keyed
// by their resource type and id.
func (s *Stream[T]) cacheLinked(raw json.RawMessage) error {
	var linked map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &linked); err != nil {
		return fmt.Errorf("decode linked objects: %w", err)
	}
	for resourceType, objects := range linked {
		for _, obj := range objects {
			var ident struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(obj, &ident); err != nil || ident.ID == "" {
				continue
			}
			s.cache.Put(resourceType, ident.ID, obj)
		}
	}
	return nil
}
