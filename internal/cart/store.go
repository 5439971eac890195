package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/forneria-pos/internal/obs"
	"github.com/noah-isme/forneria-pos/internal/storage"
)

// DefaultKey is the storage key the cart lives under.
const DefaultKey = "forneria_cart_v1"

// ErrInvalidInput is returned when an item cannot be added.
var ErrInvalidInput = errors.New("invalid input")

// Locker serialises cart mutations across processes sharing one storage.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Store is the cart store. Every mutation is a read-modify-write of the whole
// persisted array, serialised within the process and, when a Locker is set,
// across processes.
type Store struct {
	mu     sync.Mutex
	kv     storage.Storage
	key    string
	locker Locker
	logger zerolog.Logger
}

// NewStore builds a store over kv. An empty key selects DefaultKey.
func NewStore(kv storage.Storage, key string, logger zerolog.Logger) *Store {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key, logger: logger.With().Str("component", "cart").Logger()}
}

// WithLocker installs a cross-process lock around mutations.
func (s *Store) WithLocker(l Locker) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locker = l
	return s
}

// Load returns the persisted cart. Missing, unreadable or malformed data
// yields an empty cart.
func (s *Store) Load(ctx context.Context) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save overwrites the persisted cart with items, normalised the same way Load
// normalises foreign data.
func (s *Store) Save(ctx context.Context, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.locked(ctx, func(ctx context.Context) error {
		return s.save(ctx, normalise(items))
	})
	obs.IncCartMutation("save", err)
	return err
}

// Add increments the quantity of id when present, otherwise appends a new
// line with qty 1. Name and price of an existing line are never updated.
func (s *Store) Add(ctx context.Context, id, nombre string, precio float64) ([]Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		obs.IncCartMutation("add", ErrInvalidInput)
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []Item
	err := s.locked(ctx, func(ctx context.Context) error {
		items = s.load(ctx)
		found := false
		for i := range items {
			if string(items[i].ID) == id {
				items[i].Qty++
				found = true
				break
			}
		}
		if !found {
			items = append(items, Item{
				ID:     ProductID(id),
				Nombre: nombre,
				Precio: sanitizePrice(precio),
				Qty:    1,
			})
		}
		return s.save(ctx, items)
	})
	obs.IncCartMutation("add", err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Remove drops the line for id. Unknown ids leave the cart as it was.
func (s *Store) Remove(ctx context.Context, id string) ([]Item, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Item
	err := s.locked(ctx, func(ctx context.Context) error {
		items := s.load(ctx)
		kept = items[:0]
		for _, it := range items {
			if string(it.ID) != id {
				kept = append(kept, it)
			}
		}
		return s.save(ctx, kept)
	})
	obs.IncCartMutation("remove", err)
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// Settle takes sold out of the cart: each sold line lowers the quantity of the
// matching line and drops it once nothing is left. Lines added after the sale
// was built survive.
func (s *Store) Settle(ctx context.Context, sold []Item) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	soldQty := make(map[ProductID]int, len(sold))
	for _, it := range sold {
		soldQty[it.ID] += it.Qty
	}
	var kept []Item
	err := s.locked(ctx, func(ctx context.Context) error {
		items := s.load(ctx)
		kept = items[:0]
		for _, it := range items {
			it.Qty -= soldQty[it.ID]
			if it.Qty > 0 {
				kept = append(kept, it)
			}
		}
		if len(kept) == 0 {
			if err := s.kv.RemoveItem(ctx, s.key); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			return nil
		}
		return s.save(ctx, kept)
	})
	obs.IncCartMutation("settle", err)
	if err != nil {
		return nil, err
	}
	return kept, nil
}

// Clear deletes the persisted cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.locked(ctx, func(ctx context.Context) error {
		if err := s.kv.RemoveItem(ctx, s.key); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	obs.IncCartMutation("clear", err)
	return err
}

func (s *Store) locked(ctx context.Context, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, s.key, fn)
}

func (s *Store) load(ctx context.Context) []Item {
	raw, ok, err := s.kv.GetItem(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("cart read failed, using empty cart")
		obs.IncCartLoadFallback()
		return []Item{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Item{}
	}
	var decoded []Item
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("cart data malformed, using empty cart")
		obs.IncCartLoadFallback()
		return []Item{}
	}
	return normalise(decoded)
}

func (s *Store) save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.SetItem(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// normalise restores the cart invariants on data written by someone else:
// unique non-empty ids, qty >= 1 and non-negative prices.
func normalise(in []Item) []Item {
	out := make([]Item, 0, len(in))
	index := make(map[ProductID]int, len(in))
	for _, it := range in {
		if it.ID == "" {
			continue
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		it.Precio = sanitizePrice(it.Precio)
		if pos, dup := index[it.ID]; dup {
			out[pos].Qty += it.Qty
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
