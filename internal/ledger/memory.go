package ledger

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
)

// MemoryStore keeps the same Put/Get semantics as PostgresStore over plain
// maps. Used by tests and local runs without a database.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]market.Product
	orders   map[string]market.Order
	users    map[string]market.User
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]market.Product),
		orders:   make(map[string]market.Order),
		users:    make(map[string]market.User),
	}
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (market.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return market.Product{}, ErrNotFound
	}
	p.Features = slices.Clone(p.Features)
	return p, nil
}

func (s *MemoryStore) PutProduct(_ context.Context, p market.Product, expectedVersion int64) (market.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := s.products[p.ID]
	if expectedVersion == 0 {
		if ok {
			return market.Product{}, ErrVersionConflict
		}
		p.Version = 1
		p.CreatedAt = now
	} else {
		if !ok {
			return market.Product{}, ErrNotFound
		}
		if cur.Version != expectedVersion {
			return market.Product{}, ErrVersionConflict
		}
		p.Version = expectedVersion + 1
		p.CreatedAt = cur.CreatedAt
	}
	p.UpdatedAt = now
	p.Features = slices.Clone(p.Features)
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]market.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.Product
	for _, p := range s.products {
		if f.SellerID != "" && p.SellerID != f.SellerID {
			continue
		}
		if f.Material != "" && p.Material != f.Material {
			continue
		}
		p.Features = slices.Clone(p.Features)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (market.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return market.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) PutOrder(_ context.Context, o market.Order, expectedVersion int64) (market.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := s.orders[o.ID]
	if expectedVersion == 0 {
		if ok {
			return market.Order{}, ErrVersionConflict
		}
		o.Version = 1
		o.CreatedAt = now
	} else {
		if !ok {
			return market.Order{}, ErrNotFound
		}
		if cur.Version != expectedVersion {
			return market.Order{}, ErrVersionConflict
		}
		o.Version = expectedVersion + 1
		o.CreatedAt = cur.CreatedAt
	}
	o.UpdatedAt = now
	s.orders[o.ID] = o
	return o, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]market.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.Order
	for _, o := range s.orders {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.ProductID != "" && o.ProductID != f.ProductID {
			continue
		}
		if f.SellerID != "" {
			p, ok := s.products[o.ProductID]
			if !ok || p.SellerID != f.SellerID {
				continue
			}
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (market.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return market.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) PutUser(_ context.Context, u market.User, expectedVersion int64) (market.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if expectedVersion == 0 {
		if ok {
			return market.User{}, ErrVersionConflict
		}
		u.Version = 1
		u.CreatedAt = time.Now().UTC()
	} else {
		if !ok {
			return market.User{}, ErrNotFound
		}
		if cur.Version != expectedVersion {
			return market.User{}, ErrVersionConflict
		}
		u.Version = expectedVersion + 1
		u.CreatedAt = cur.CreatedAt
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context, f UserFilter) ([]market.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []market.User
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
