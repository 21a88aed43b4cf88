package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.TransactionRepository = (*TransactionStore)(nil)

// TransactionStore is an in-memory implementation of store.TransactionRepository.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[chainKey]map[string]*model.Transaction // keyed by tx hash
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{data: make(map[chainKey]map[string]*model.Transaction)}
}

// Insert stores a copy of tx, replacing any transaction with the same hash.
func (s *TransactionStore) Insert(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chainKey{tx.Chain, tx.Network}
	txs, ok := s.data[key]
	if !ok {
		txs = make(map[string]*model.Transaction)
		s.data[key] = txs
	}
	txs[tx.Hash] = copyTransaction(tx)
	return nil
}

func (s *TransactionStore) ListByBlock(_ context.Context, chain model.Chain, network model.Network, height int64) ([]model.Transaction, error) {
	return s.list(chain, network, func(tx *model.Transaction) bool { return tx.BlockHeight == height }), nil
}

func (s *TransactionStore) ListByProtocol(_ context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Transaction, error) {
	return s.list(chain, network, func(tx *model.Transaction) bool { return tx.Protocol == protocol }), nil
}

func (s *TransactionStore) UpdatePriorityFee(_ context.Context, chain model.Chain, network model.Network, txHash string, priorityFee int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx, ok := s.data[chainKey{chain, network}][txHash]; ok {
		fee := priorityFee
		tx.PriorityFee = &fee
	}
	return nil
}

func (s *TransactionStore) DeleteFrom(_ context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error) {
	return s.deleteWhere(chain, network, func(tx *model.Transaction) bool { return tx.BlockHeight >= fromHeight }), nil
}

func (s *TransactionStore) DeleteOlderThan(_ context.Context, chain model.Chain, network model.Network, height int64) (int64, error) {
	return s.deleteWhere(chain, network, func(tx *model.Transaction) bool { return tx.BlockHeight < height }), nil
}

func (s *TransactionStore) Count(_ context.Context, chain model.Chain, network model.Network) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data[chainKey{chain, network}])), nil
}

func (s *TransactionStore) list(chain model.Chain, network model.Network, match func(*model.Transaction) bool) []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, tx := range s.data[chainKey{chain, network}] {
		if match(tx) {
			result = append(result, *copyTransaction(tx))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].BlockHeight != result[j].BlockHeight {
			return result[i].BlockHeight < result[j].BlockHeight
		}
		return result[i].Hash < result[j].Hash
	})
	return result
}

func (s *TransactionStore) deleteWhere(chain model.Chain, network model.Network, match func(*model.Transaction) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	txs := s.data[chainKey{chain, network}]
	for hash, tx := range txs {
		if match(tx) {
			delete(txs, hash)
			deleted++
		}
	}
	return deleted
}

func copyTransaction(tx *model.Transaction) *model.Transaction {
	c := *tx
	if tx.PriorityFee != nil {
		fee := *tx.PriorityFee
		c.PriorityFee = &fee
	}
	return &c
}
