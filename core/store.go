// Package core implements the DCX substrate: a content-addressed store, the
// pulse registry and schema, the bounded execution engine, and the
// verifier/proof generator.
package core

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// BackingStore is the interface an optional durable or remote layer behind
// the memory store must satisfy. Implementations never return an error for
// a missing key; absence is reported through the bool.
type BackingStore interface {
	Get(cid CID) ([]byte, bool, error)
	Put(cid CID, data []byte) error
	Keys() ([]CID, error)
}

// Store is the content-addressed store (C1). The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu      sync.RWMutex
	mem     map[CID][]byte
	backing BackingStore
	promote *lru.Cache[CID, []byte]
	algo    Algo
	log     *zap.Logger
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithBackingStore attaches a durable or remote layer behind the memory
// layer; fetch reads memory first, then backing, promoting on hit.
func WithBackingStore(b BackingStore) StoreOption {
	return func(s *Store) { s.backing = b }
}

// WithPromotionCacheSize bounds the LRU promotion cache fronting the
// backing store. Zero disables promotion caching (every backing fetch
// still populates the memory layer directly).
func WithPromotionCacheSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			c, err := lru.New[CID, []byte](n)
			if err == nil {
				s.promote = c
			}
		}
	}
}

// WithAlgo sets the digest algorithm new values are stored under. Defaults
// to AlgoSHA256.
func WithAlgo(a Algo) StoreOption {
	return func(s *Store) { s.algo = a }
}

// WithLogger attaches the zap logger used for backing-store warnings.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore constructs a memory-only store by default; apply options to
// attach a backing store, promotion cache, or logger.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		mem:  make(map[CID][]byte),
		algo: AlgoSHA256,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store canonicalizes value, computes its CID, and persists it if not
// already present. Idempotent: storing the same value twice changes
// neither size nor mapping.
func (s *Store) Store(value any) (CID, error) {
	b, err := Canonicalize(value)
	if err != nil {
		return "", err
	}
	c, err := newCID(s.algo, b)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mem[c]; exists {
		return c, nil
	}
	s.mem[c] = b
	if s.backing != nil {
		if err := s.backing.Put(c, b); err != nil {
			s.log.Warn("backing store write failed", zap.String("cid", string(c)), zap.Error(err))
		}
	}
	return c, nil
}

// Fetch returns the canonical bytes stored under cid, or ok=false if cid is
// unknown to both the memory layer and any backing store. Never errors.
func (s *Store) Fetch(c CID) (b []byte, ok bool) {
	s.mu.RLock()
	b, ok = s.mem[c]
	s.mu.RUnlock()
	if ok {
		return b, true
	}
	if s.promote != nil {
		if cached, found := s.promote.Get(c); found {
			s.promoteToMemory(c, cached)
			return cached, true
		}
	}
	if s.backing == nil {
		return nil, false
	}
	fetched, found, err := s.backing.Get(c)
	if err != nil {
		s.log.Warn("backing store read failed", zap.String("cid", string(c)), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	s.promoteToMemory(c, fetched)
	return fetched, true
}

func (s *Store) promoteToMemory(c CID, b []byte) {
	s.mu.Lock()
	s.mem[c] = b
	s.mu.Unlock()
	if s.promote != nil {
		s.promote.Add(c, b)
	}
}

// Has reports whether cid is known to the store (memory or backing).
func (s *Store) Has(c CID) bool {
	_, ok := s.Fetch(c)
	return ok
}

// Keys returns every CID currently resident in the memory layer, merged
// with the backing store's key set when one is attached.
func (s *Store) Keys() []CID {
	s.mu.RLock()
	keys := make([]CID, 0, len(s.mem))
	seen := make(map[CID]struct{}, len(s.mem))
	for k := range s.mem {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	s.mu.RUnlock()

	if s.backing != nil {
		backingKeys, err := s.backing.Keys()
		if err != nil {
			s.log.Warn("backing store keys failed", zap.Error(err))
		} else {
			for _, k := range backingKeys {
				if _, ok := seen[k]; !ok {
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

// Size returns the count of distinct CIDs resident in the memory layer.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mem)
}

// Clear empties the memory layer. The backing store, if any, is untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem = make(map[CID][]byte)
}

// Export returns a snapshot mapping every resident CID to its canonical
// bytes.
func (s *Store) Export() map[CID][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[CID][]byte, len(s.mem))
	for k, v := range s.mem {
		out[k] = v
	}
	return out
}

// Import merges the given mapping into the memory layer. Existing entries
// are never overwritten.
func (s *Store) Import(values map[CID][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		if _, exists := s.mem[k]; !exists {
			s.mem[k] = v
		}
	}
}
