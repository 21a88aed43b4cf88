package model

type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainPolygon   Chain = "polygon"
	ChainAvalanche Chain = "avalanche"
	ChainFantom    Chain = "fantom"
	ChainBSC       Chain = "bsc"
	ChainOptimism  Chain = "optimism"
	ChainArbitrum  Chain = "arbitrum"
)

func (c Chain) String() string {
	return string(c)
}

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkSepolia Network = "sepolia"
	NetworkAmoy    Network = "amoy"
)

func (n Network) String() string {
	return string(n)
}

// chainsByID maps EIP-155 chain ids to the chains the monitor knows about.
var chainsByID = map[int64]struct {
	chain   Chain
	network Network
}{
	1:        {ChainEthereum, NetworkMainnet},
	11155111: {ChainEthereum, NetworkSepolia},
	137:      {ChainPolygon, NetworkMainnet},
	80002:    {ChainPolygon, NetworkAmoy},
	43114:    {ChainAvalanche, NetworkMainnet},
	250:      {ChainFantom, NetworkMainnet},
	56:       {ChainBSC, NetworkMainnet},
	10:       {ChainOptimism, NetworkMainnet},
	42161:    {ChainArbitrum, NetworkMainnet},
}

// ChainFromID resolves an EIP-155 chain id. ok is false for unknown ids.
func ChainFromID(id int64) (chain Chain, network Network, ok bool) {
	entry, ok := chainsByID[id]
	if !ok {
		return "", "", false
	}
	return entry.chain, entry.network, true
}
