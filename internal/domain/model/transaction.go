package model

// Transaction is a stored transaction addressed to a watched protocol.
// PriorityFee is filled exactly once, when the owning block's base fee is known.
type Transaction struct {
	Chain       Chain   `db:"chain"`
	Network     Network `db:"network"`
	Hash        string  `db:"tx_hash"`
	BlockHeight int64   `db:"block_height"`
	Protocol    string  `db:"protocol"`
	Gas         int64   `db:"gas"`
	GasPrice    int64   `db:"gas_price"`
	PriorityFee *int64  `db:"priority_fee"`
	Timestamp   int64   `db:"block_timestamp"` // unix seconds
}
