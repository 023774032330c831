package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/tokenscope/internal/identity"
	"github.com/you/tokenscope/internal/types"
)

const maxSymbols = 50

type searchQuery struct {
	Q        string `form:"q" binding:"required"`
	Networks string `form:"networks"`
}

type trendingQuery struct {
	Networks string `form:"networks"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type pricesQuery struct {
	Symbols string `form:"symbols" binding:"required"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// display swaps EVM addresses to their checksummed form for output only.
func display(c types.TokenCandidate) types.TokenCandidate {
	c.Address = identity.DisplayAddress(c.Address, identity.CaseSensitive(c.Network))
	return c
}

func displayPrice(p types.PriceRecord) types.PriceRecord {
	if p.Address != "" {
		p.Address = identity.DisplayAddress(p.Address, identity.CaseSensitive(p.Network))
	}
	return p
}

func (h *Handlers) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	nets, err := types.ParseNetworks(q.Networks)
	if err != nil {
		badRequest(c, err)
		return
	}
	res := h.f.SearchTokens(c.Request.Context(), q.Q, nets)
	out := make([]types.ScoredCandidate, len(res))
	for i, r := range res {
		r.TokenCandidate = display(r.TokenCandidate)
		out[i] = r
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *Handlers) price(c *gin.Context) {
	rec := h.f.ResolvePrice(c.Request.Context(), c.Param("symbol"))
	c.JSON(http.StatusOK, displayPrice(rec))
}

func (h *Handlers) prices(c *gin.Context) {
	var q pricesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	syms := strings.Split(q.Symbols, ",")
	if len(syms) > maxSymbols {
		badRequest(c, fmt.Errorf("at most %d symbols", maxSymbols))
		return
	}
	res := h.f.ResolvePrices(c.Request.Context(), syms)
	out := make(map[string]types.PriceRecord, len(res))
	for k, v := range res {
		out[k] = displayPrice(v)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) trending(c *gin.Context) {
	var q trendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	nets, err := types.ParseNetworks(q.Networks)
	if err != nil {
		badRequest(c, err)
		return
	}
	res := h.f.ListTrending(c.Request.Context(), nets, q.Limit)
	out := make([]types.TokenCandidate, len(res))
	for i, r := range res {
		out[i] = display(r)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *Handlers) token(c *gin.Context) {
	n, err := types.ParseNetwork(c.Param("network"))
	if err != nil || n <= 0 {
		badRequest(c, fmt.Errorf("bad network %q", c.Param("network")))
		return
	}
	addr := strings.TrimSpace(c.Param("address"))
	if !identity.Valid(addr, n) {
		badRequest(c, fmt.Errorf("invalid address for network %s", n))
		return
	}
	tok, src := h.f.LookupToken(c.Request.Context(), addr, []types.Network{n})
	if src == types.SourceNone {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": display(tok), "source": src})
}
