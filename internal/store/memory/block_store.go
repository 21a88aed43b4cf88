package memory

import (
	"context"
	"sync"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.BlockRepository = (*BlockStore)(nil)

// BlockStore is an in-memory implementation of store.BlockRepository.
type BlockStore struct {
	mu   sync.RWMutex
	data map[chainKey]map[int64]*model.Block
}

func NewBlockStore() *BlockStore {
	return &BlockStore{data: make(map[chainKey]map[int64]*model.Block)}
}

// Insert stores a copy of block, replacing any block at the same height.
func (s *BlockStore) Insert(_ context.Context, block *model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chainKey{block.Chain, block.Network}
	blocks, ok := s.data[key]
	if !ok {
		blocks = make(map[int64]*model.Block)
		s.data[key] = blocks
	}
	blocks[block.Height] = copyBlock(block)
	return nil
}

func (s *BlockStore) GetByHeight(_ context.Context, chain model.Chain, network model.Network, height int64) (*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data[chainKey{chain, network}][height]
	if !ok {
		return nil, nil
	}
	return copyBlock(b), nil
}

// UpdateBaseFee is a no-op for unknown heights.
func (s *BlockStore) UpdateBaseFee(_ context.Context, chain model.Chain, network model.Network, height int64, baseFee int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.data[chainKey{chain, network}][height]; ok {
		fee := baseFee
		b.BaseFee = &fee
	}
	return nil
}

func (s *BlockStore) DeleteFrom(_ context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error) {
	return s.deleteWhere(chain, network, func(h int64) bool { return h >= fromHeight }), nil
}

func (s *BlockStore) DeleteOlderThan(_ context.Context, chain model.Chain, network model.Network, height int64) (int64, error) {
	return s.deleteWhere(chain, network, func(h int64) bool { return h < height }), nil
}

func (s *BlockStore) Count(_ context.Context, chain model.Chain, network model.Network) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data[chainKey{chain, network}])), nil
}

func (s *BlockStore) deleteWhere(chain model.Chain, network model.Network, match func(int64) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	blocks := s.data[chainKey{chain, network}]
	for h := range blocks {
		if match(h) {
			delete(blocks, h)
			deleted++
		}
	}
	return deleted
}

func copyBlock(b *model.Block) *model.Block {
	c := *b
	if b.BaseFee != nil {
		fee := *b.BaseFee
		c.BaseFee = &fee
	}
	if b.BlockTime != nil {
		ts := *b.BlockTime
		c.BlockTime = &ts
	}
	return &c
}
