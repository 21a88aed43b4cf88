package model

import "time"

// Block is the stored view of a chain block. BaseFee stays nil until the
// convergence state machine resolves it, either on insertion (confident mode)
// or when the next block finalises this one (uncertain mode).
type Block struct {
	Chain      Chain      `db:"chain"`
	Network    Network    `db:"network"`
	Height     int64      `db:"height"`
	Hash       string     `db:"block_hash"`
	ParentHash string     `db:"parent_hash"`
	GasUsed    int64      `db:"gas_used"`
	GasLimit   int64      `db:"gas_limit"`
	BaseFee    *int64     `db:"base_fee"`
	BlockTime  *time.Time `db:"block_time"`
}

// HasBaseFee reports whether the block's base fee has been resolved.
func (b *Block) HasBaseFee() bool {
	return b != nil && b.BaseFee != nil
}
