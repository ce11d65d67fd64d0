package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Weights maps constituent symbols to index weights. Articles about a symbol
// missing from the table use the Market bucket weight.
type Weights struct {
	Market       float64            `yaml:"market"`
	Constituents map[string]float64 `yaml:"constituents"`
}

// defaultConstituents is the NASDAQ-100 top-capitalisation table. The long
// tail of smaller constituents shares the remainder so the table plus the
// market bucket sums to ~1.0.
var defaultConstituents = map[string]float64{
	"AAPL": 0.14, "MSFT": 0.13, "GOOGL": 0.08, "AMZN": 0.07,
	"NVDA": 0.06, "META": 0.04, "TSLA": 0.03, "AVGO": 0.03,

	"COST": 0.00375, "NFLX": 0.00375, "AMD": 0.00375, "PEP": 0.00375,
	"ADBE": 0.00375, "CSCO": 0.00375, "TMUS": 0.00375, "INTC": 0.00375,
	"QCOM": 0.00375, "INTU": 0.00375, "TXN": 0.00375, "CMCSA": 0.00375,
	"AMGN": 0.00375, "HON": 0.00375, "AMAT": 0.00375, "ISRG": 0.00375,
	"BKNG": 0.00375, "SBUX": 0.00375, "VRTX": 0.00375, "GILD": 0.00375,
	"ADI": 0.00375, "MU": 0.00375, "LRCX": 0.00375, "PANW": 0.00375,
	"MDLZ": 0.00375, "REGN": 0.00375, "SNPS": 0.00375, "KLAC": 0.00375,
	"CDNS": 0.00375, "PYPL": 0.00375, "MAR": 0.00375, "CRWD": 0.00375,
}

const defaultMarketWeight = 0.30

// DefaultWeights returns the built-in weight table.
func DefaultWeights() *Weights {
	cons := make(map[string]float64, len(defaultConstituents))
	for sym, w := range defaultConstituents {
		cons[sym] = w
	}
	return &Weights{Market: defaultMarketWeight, Constituents: cons}
}

// LoadWeights reads a YAML weight table from path, or returns the built-in
// table when path is empty.
func LoadWeights(path string) (*Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}

	w := &Weights{}
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("parse weights file: %w", err)
	}
	if w.Market <= 0 {
		w.Market = defaultMarketWeight
	}
	if len(w.Constituents) == 0 {
		w.Constituents = DefaultWeights().Constituents
	}
	return w, nil
}

// WeightFor returns the weight for a symbol. Unrecognised symbols, including
// general market headlines with no symbol, get the market bucket weight.
func (w *Weights) WeightFor(symbol string) float64 {
	if v, ok := w.Constituents[symbol]; ok {
		return v
	}
	return w.Market
}

// Watchlist returns the constituent symbols ordered by weight, heaviest
// first, for collectors that rotate through per-symbol queries.
func (w *Weights) Watchlist() []string {
	symbols := make([]string, 0, len(w.Constituents))
	for sym := range w.Constituents {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		wi, wj := w.Constituents[symbols[i]], w.Constituents[symbols[j]]
		if wi != wj {
			return wi > wj
		}
		return symbols[i] < symbols[j]
	})
	return symbols
}

// Total returns the sum of all constituent weights plus the market bucket.
func (w *Weights) Total() float64 {
	total := w.Market
	for _, v := range w.Constituents {
		total += v
	}
	return total
}
