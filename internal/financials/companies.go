package financials

import "fmt"

// Companies is the bidirectional mapping between ticker symbols and the dense
// ids in [0, N) that index the company axis of every table.
type Companies struct {
	ids     map[string]int
	symbols []string
}

// NewCompanies builds a company index from a symbol -> id mapping. The ids
// must be exactly 0..len(m)-1.
func NewCompanies(m map[string]int) (*Companies, error) {
	symbols := make([]string, len(m))
	taken := make([]bool, len(m))
	ids := make(map[string]int, len(m))
	for sym, id := range m {
		if id < 0 || id >= len(m) {
			return nil, fmt.Errorf("%w: %s has id %d outside [0, %d)", ErrInvalidCompanies, sym, id, len(m))
		}
		if taken[id] {
			return nil, fmt.Errorf("%w: id %d used by %s and %s", ErrInvalidCompanies, id, symbols[id], sym)
		}
		taken[id] = true
		symbols[id] = sym
		ids[sym] = id
	}
	return &Companies{ids: ids, symbols: symbols}, nil
}

// CompaniesFromSymbols assigns ids in the order the symbols are given.
// Duplicates keep their first id.
func CompaniesFromSymbols(symbols []string) *Companies {
	c := &Companies{ids: make(map[string]int, len(symbols))}
	for _, sym := range symbols {
		if _, ok := c.ids[sym]; ok {
			continue
		}
		c.ids[sym] = len(c.symbols)
		c.symbols = append(c.symbols, sym)
	}
	return c
}

// ID returns the company id for symbol.
func (c *Companies) ID(symbol string) (int, error) {
	id, ok := c.ids[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCompany, symbol)
	}
	return id, nil
}

// Symbol returns the ticker for id, or "" when id is out of range.
func (c *Companies) Symbol(id int) string {
	if id < 0 || id >= len(c.symbols) {
		return ""
	}
	return c.symbols[id]
}

// Len returns the number of companies.
func (c *Companies) Len() int { return len(c.symbols) }

// Symbols returns all tickers ordered by id.
func (c *Companies) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Map returns a copy of the symbol -> id mapping.
func (c *Companies) Map() map[string]int {
	out := make(map[string]int, len(c.ids))
	for k, v := range c.ids {
		out[k] = v
	}
	return out
}
