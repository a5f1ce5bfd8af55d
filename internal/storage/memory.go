package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fxledger/internal/core"
)

type budgetKey struct {
	owner    string
	category string
	period   core.BudgetPeriod
}

type snapshot struct {
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
}

// MemoryStore keeps everything in process. With a path it rewrites a JSON
// snapshot after every mutation, replacing the file atomically. Each append
// rewrites the whole file under the write lock, so importing n rows costs
// O(n^2) bytes written; use the sqlite or postgres backend for large ledgers.
type MemoryStore struct {
	mu      sync.RWMutex
	path    string
	rows    []core.Transaction
	byOwner map[string][]int
	ids     map[string]struct{}
	budgets map[budgetKey]int
	blist   []core.Budget
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byOwner: make(map[string][]int),
		ids:     make(map[string]struct{}),
		budgets: make(map[budgetKey]int),
	}
}

// OpenMemoryStore loads path if it exists and snapshots to it afterwards.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode ledger file %s: %w", path, err)
	}
	for _, tx := range snap.Transactions {
		if _, dup := s.ids[tx.ID]; dup {
			return nil, fmt.Errorf("decode ledger file %s: %w: %s", path, ErrDuplicateID, tx.ID)
		}
		s.appendLocked(tx)
	}
	for _, b := range snap.Budgets {
		s.upsertLocked(b)
	}
	return s, nil
}

func (s *MemoryStore) appendLocked(tx core.Transaction) {
	s.ids[tx.ID] = struct{}{}
	s.byOwner[tx.OwnerKey] = append(s.byOwner[tx.OwnerKey], len(s.rows))
	s.rows = append(s.rows, tx)
}

func (s *MemoryStore) upsertLocked(b core.Budget) (prev *core.Budget) {
	key := budgetKey{b.OwnerKey, b.Category, b.Period}
	if i, ok := s.budgets[key]; ok {
		old := s.blist[i]
		s.blist[i] = b
		return &old
	}
	s.budgets[key] = len(s.blist)
	s.blist = append(s.blist, b)
	return nil
}

func (s *MemoryStore) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[tx.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, tx.ID)
	}
	s.appendLocked(tx)

	if err := s.persistLocked(); err != nil {
		// Roll back so memory never holds a row the file lost.
		delete(s.ids, tx.ID)
		idx := s.byOwner[tx.OwnerKey]
		s.byOwner[tx.OwnerKey] = idx[:len(idx)-1]
		if len(s.byOwner[tx.OwnerKey]) == 0 {
			delete(s.byOwner, tx.OwnerKey)
		}
		s.rows = s.rows[:len(s.rows)-1]
		return err
	}
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byOwner[owner]
	out := make([]core.Transaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.rows[i])
	}
	return out, nil
}

func (s *MemoryStore) CountTransactions(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byOwner[owner]), nil
}

func (s *MemoryStore) UpsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.upsertLocked(b)
	if err := s.persistLocked(); err != nil {
		key := budgetKey{b.OwnerKey, b.Category, b.Period}
		if prev != nil {
			s.blist[s.budgets[key]] = *prev
		} else {
			delete(s.budgets, key)
			s.blist = s.blist[:len(s.blist)-1]
		}
		return err
	}
	return nil
}

func (s *MemoryStore) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Budget, 0)
	for _, b := range s.blist {
		if b.OwnerKey == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(snapshot{Transactions: s.rows, Budgets: s.blist}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
