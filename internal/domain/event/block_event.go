package event

import "github.com/emperorhan/priority-fee-monitor/internal/domain/model"

// BlockEvent is one newly observed block as delivered by the feed.
type BlockEvent struct {
	Chain      model.Chain
	Network    model.Network
	Height     int64
	Hash       string
	ParentHash string
	GasUsed    int64
	GasLimit   int64
	Timestamp  int64 // unix seconds
	// Transactions lists the block's transactions in block order. The feed
	// delivers them after the block itself.
	Transactions []TransactionEvent
}

// TransactionEvent is one observed transaction.
type TransactionEvent struct {
	Hash        string
	BlockHeight int64
	Timestamp   int64 // unix seconds
	To          string
	Gas         int64
	GasPrice    int64
}
