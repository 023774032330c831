package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Network: числовой идентификатор сети (чейн или площадка).
type Network int64

const (
	Ethereum  Network = 1
	Optimism  Network = 10
	BSC       Network = 56
	Polygon   Network = 137
	Fantom    Network = 250
	ZkSync    Network = 324
	Base      Network = 8453
	Arbitrum  Network = 42161
	Avalanche Network = 43114
	Linea     Network = 59144
	Blast     Network = 81457
	Solana    Network = 1399811149
)

// DefaultNetworks is the fan-out set used when a caller does not pick networks.
var DefaultNetworks = []Network{
	Ethereum, Solana, BSC, Base, Arbitrum, Polygon,
	Optimism, Avalanche, Blast, Linea, ZkSync, Fantom,
}

func (n Network) String() string { return strconv.FormatInt(int64(n), 10) }

// ParseNetwork parses a decimal network id.
func ParseNetwork(s string) (Network, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Network(v), nil
}

// ParseNetworks reads a comma-separated id list such as "1, 56,8453".
// Blank entries are skipped; an empty string gives nil.
func ParseNetworks(s string) ([]Network, error) {
	var out []Network
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := ParseNetwork(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad network %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceTertiary  Source = "tertiary"
	SourceNone      Source = "none"
)

// TokenCandidate is one provider's view of one asset on one network.
// Numeric fields are zero when the provider omitted them.
type TokenCandidate struct {
	Network      Network `json:"network"`
	Address      string  `json:"address"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"priceUsd"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	Volume24hUSD float64 `json:"volume24hUsd"`
	MarketCapUSD float64 `json:"marketCapUsd"`
	Holders      int64   `json:"holders"`
	Change1h     float64 `json:"change1h"`
	Change4h     float64 `json:"change4h"`
	Change12h    float64 `json:"change12h"`
	Change24h    float64 `json:"change24h"`
	Provider     string  `json:"provider,omitempty"` // кто вернул; в идентичность не входит
}

// ScoredCandidate wraps a candidate with its quality score and match tier.
type ScoredCandidate struct {
	TokenCandidate
	Quality int `json:"quality"`
	Tier    int `json:"tier"`
}

// PriceRecord is never absent: total failure is PriceUSD == 0 with SourceNone.
type PriceRecord struct {
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"priceUsd"`
	Change24h float64   `json:"change24h"`
	Network   Network   `json:"network,omitempty"`
	Address   string    `json:"address,omitempty"`
	Source    Source    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Found reports whether the record carries a usable price.
func (p PriceRecord) Found() bool { return p.PriceUSD > 0 }
