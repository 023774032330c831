package codex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/you/tokenscope/internal/connectors/httpx"
	"github.com/you/tokenscope/internal/types"
)

// Shape is which of the known layouts a results payload arrived in.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeObjectArray
	ShapeParallelArrays
)

func (s Shape) String() string {
	switch s {
	case ShapeObjectArray:
		return "object_array"
	case ShapeParallelArrays:
		return "parallel_arrays"
	default:
		return "empty"
	}
}

type tokenRef struct {
	Address   string      `json:"address"`
	Name      string      `json:"name"`
	Symbol    string      `json:"symbol"`
	NetworkID httpx.Float `json:"networkId"`
}

// row is one result object.
type row struct {
	Token     tokenRef    `json:"token"`
	PriceUSD  httpx.Float `json:"priceUSD"`
	Liquidity httpx.Float `json:"liquidity"`
	Volume24  httpx.Float `json:"volume24"`
	MarketCap httpx.Float `json:"marketCap"`
	Holders   httpx.Float `json:"holders"`
	Change1   httpx.Float `json:"change1"`
	Change4   httpx.Float `json:"change4"`
	Change12  httpx.Float `json:"change12"`
	Change24  httpx.Float `json:"change24"`
}

// columns: тот же набор полей, но «по столбцам»: i-й элемент каждого
// массива относится к i-му токену. Длину задаёт address.
type columns struct {
	Address   []string      `json:"address"`
	Name      []string      `json:"name"`
	Symbol    []string      `json:"symbol"`
	NetworkID []httpx.Float `json:"networkId"`
	PriceUSD  []httpx.Float `json:"priceUSD"`
	Liquidity []httpx.Float `json:"liquidity"`
	Volume24  []httpx.Float `json:"volume24"`
	MarketCap []httpx.Float `json:"marketCap"`
	Holders   []httpx.Float `json:"holders"`
	Change1   []httpx.Float `json:"change1"`
	Change4   []httpx.Float `json:"change4"`
	Change12  []httpx.Float `json:"change12"`
	Change24  []httpx.Float `json:"change24"`
}

// Results is a filterTokens payload. The layout is decided once while
// decoding; downstream code only calls Candidates.
type Results struct {
	Kind Shape
	rows []row
	cols columns
}

func (r *Results) UnmarshalJSON(b []byte) error {
	*r = Results{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '[':
		if err := json.Unmarshal(b, &r.rows); err != nil {
			return fmt.Errorf("results rows: %w", err)
		}
		if len(r.rows) > 0 {
			r.Kind = ShapeObjectArray
		}
	case '{':
		if err := json.Unmarshal(b, &r.cols); err != nil {
			return fmt.Errorf("results columns: %w", err)
		}
		if len(r.cols.Address) > 0 {
			r.Kind = ShapeParallelArrays
		}
	default:
		return fmt.Errorf("results: unexpected %q", b[:1])
	}
	return nil
}

// Candidates converts the payload; fallback is used when a row has no network id.
func (r Results) Candidates(fallback types.Network) []types.TokenCandidate {
	switch r.Kind {
	case ShapeObjectArray:
		out := make([]types.TokenCandidate, 0, len(r.rows))
		for _, x := range r.rows {
			out = append(out, candidate(fallback, x.Token, x.PriceUSD, x.Liquidity, x.Volume24, x.MarketCap,
				x.Holders, x.Change1, x.Change4, x.Change12, x.Change24))
		}
		return out
	case ShapeParallelArrays:
		c := r.cols
		out := make([]types.TokenCandidate, 0, len(c.Address))
		for i := range c.Address {
			ref := tokenRef{
				Address:   c.Address[i],
				Name:      at(c.Name, i),
				Symbol:    at(c.Symbol, i),
				NetworkID: at(c.NetworkID, i),
			}
			out = append(out, candidate(fallback, ref, at(c.PriceUSD, i), at(c.Liquidity, i), at(c.Volume24, i),
				at(c.MarketCap, i), at(c.Holders, i), at(c.Change1, i), at(c.Change4, i), at(c.Change12, i), at(c.Change24, i)))
		}
		return out
	default:
		return nil
	}
}

// at returns the zero value past the end of a short column.
func at[T any](xs []T, i int) T {
	var zero T
	if i < len(xs) {
		return xs[i]
	}
	return zero
}

func candidate(fallback types.Network, t tokenRef, price, liq, vol, mcap, holders, ch1, ch4, ch12, ch24 httpx.Float) types.TokenCandidate {
	n := types.Network(t.NetworkID.Int64())
	if n == 0 {
		n = fallback
	}
	return types.TokenCandidate{
		Network:      n,
		Address:      strings.TrimSpace(t.Address),
		Symbol:       strings.TrimSpace(t.Symbol),
		Name:         strings.TrimSpace(t.Name),
		PriceUSD:     price.F(),
		LiquidityUSD: liq.F(),
		Volume24hUSD: vol.F(),
		MarketCapUSD: mcap.F(),
		Holders:      holders.Int64(),
		Change1h:     ch1.F(),
		Change4h:     ch4.F(),
		Change12h:    ch12.F(),
		Change24h:    ch24.F(),
		Provider:     provider,
	}
}
