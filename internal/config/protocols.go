package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

// Protocols maps lower-case contract addresses to display names.
type Protocols map[string]string

// ProtocolTable holds the watched protocols of every chain the monitor may
// run on. Chains missing from the table are not monitored.
type ProtocolTable map[model.Chain]Protocols

// For returns the chain's protocols. ok is false when the chain is disabled.
func (t ProtocolTable) For(chain model.Chain) (Protocols, bool) {
	p, ok := t[chain]
	return p, ok
}

// Names lists the display names in sorted order.
func (p Protocols) Names() []string {
	names := make([]string, 0, len(p))
	for _, name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builtinProtocols is keyed by display name like the protocols file.
var builtinProtocols = map[model.Chain]map[string]string{
	model.ChainEthereum: {
		"OpenSea":       "0x7f268357A8c2552623316e2562D90e642bB538E5",
		"RoninBridge":   "0x1a2a1c938ce3ec39b6d47113c7955baa9dd454f2",
		"Uniswap":       "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
		"1Inch":         "0x1111111254fb6c44bAC0beD2854e76F90643097d",
		"FTX_EX":        "0xC098B2a3Aa256D2140208C3de6543aAEf5cd3A94",
		"Metamask_DEX":  "0x881D40237659C251811CEC9c364ef91dC08D300C",
		"GravityBridge": "0xa4108aA1Ec4967F8b52220a4f7e94A8201F2D906",
	},
	model.ChainPolygon: {
		"Uniswap": "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
	},
	model.ChainAvalanche: {
		"JoeRouter": "0x60aE616a2155Ee3d9A68541Ba4544862310933d4",
	},
	model.ChainOptimism: {},
	model.ChainArbitrum: {},
}

// disabledProtocols are known but only monitored when a protocols file
// enables the chain or lists it.
var disabledProtocols = map[model.Chain]map[string]string{
	model.ChainFantom: {
		"SpookySwap": "0xF491e7B69E4244ad4002BC14e878a34207E38c29",
	},
	model.ChainBSC: {
		"PancakeSwap": "0x10ED43C718714eb63d5aA57B78B54704E256024E",
	},
}

// DefaultProtocols returns the built-in table.
func DefaultProtocols() ProtocolTable {
	table, err := buildTable(builtinProtocols)
	if err != nil {
		panic(fmt.Sprintf("builtin protocol table: %v", err))
	}
	return table
}

type protocolsFile struct {
	// Enable turns on built-in chains that are disabled by default.
	Enable []int64                     `yaml:"enable"`
	Chains map[int64]map[string]string `yaml:"chains"`
}

// LoadProtocols reads a protocols file on top of the built-in table. Every
// chain listed under chains replaces the built-in entry for that chain and is
// enabled. An empty path returns the built-in table.
func LoadProtocols(path string) (ProtocolTable, error) {
	table := DefaultProtocols()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocols file: %w", err)
	}
	var file protocolsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse protocols file %s: %w", path, err)
	}

	byChain := make(map[model.Chain]map[string]string, len(file.Chains)+len(file.Enable))
	for _, id := range file.Enable {
		chain, err := mainnetChain(id)
		if err != nil {
			return nil, fmt.Errorf("protocols file %s: %w", path, err)
		}
		builtin, ok := disabledProtocols[chain]
		if !ok {
			builtin = builtinProtocols[chain]
		}
		byChain[chain] = builtin
	}
	for id, protocols := range file.Chains {
		chain, err := mainnetChain(id)
		if err != nil {
			return nil, fmt.Errorf("protocols file %s: %w", path, err)
		}
		byChain[chain] = protocols
	}
	overrides, err := buildTable(byChain)
	if err != nil {
		return nil, fmt.Errorf("protocols file %s: %w", path, err)
	}
	for chain, protocols := range overrides {
		table[chain] = protocols
	}
	return table, nil
}

func mainnetChain(id int64) (model.Chain, error) {
	chain, network, ok := model.ChainFromID(id)
	if !ok {
		return "", fmt.Errorf("unknown chain id %d", id)
	}
	if network != model.NetworkMainnet {
		return "", fmt.Errorf("chain id %d is not a mainnet", id)
	}
	return chain, nil
}

func buildTable(byChain map[model.Chain]map[string]string) (ProtocolTable, error) {
	table := make(ProtocolTable, len(byChain))
	for chain, byName := range byChain {
		protocols := make(Protocols, len(byName))
		for name, addr := range byName {
			normalized, err := NormalizeAddress(addr)
			if err != nil {
				return nil, fmt.Errorf("%s protocol %s: %w", chain, name, err)
			}
			if prev, dup := protocols[normalized]; dup {
				return nil, fmt.Errorf("%s: address %s listed as both %s and %s", chain, normalized, prev, name)
			}
			protocols[normalized] = name
		}
		table[chain] = protocols
	}
	return table, nil
}

// NormalizeAddress validates a hex address and returns it lower-cased.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}
