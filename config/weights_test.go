package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightForFallsBackToMarket(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.14, w.WeightFor("AAPL"))
	assert.Equal(t, w.Market, w.WeightFor("UNKNOWN"))
	assert.Equal(t, w.Market, w.WeightFor(""), "general market news uses the market bucket")
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Total(), 0.01)
}

func TestWatchlistOrderedByWeight(t *testing.T) {
	w := DefaultWeights()
	list := w.Watchlist()
	require.NotEmpty(t, list)
	assert.Equal(t, "AAPL", list[0], "heaviest constituent first")
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, w.Constituents[list[i-1]], w.Constituents[list[i]])
	}
}

func TestLoadWeightsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	content := []byte("market: 0.40\nconstituents:\n  AAPL: 0.35\n  MSFT: 0.25\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 0.40, w.Market)
	assert.Equal(t, 0.35, w.WeightFor("AAPL"))
	assert.Equal(t, 0.40, w.WeightFor("NVDA"), "symbols outside the file use the market bucket")
}

func TestLoadWeightsEmptyPathUsesDefaults(t *testing.T) {
	w, err := LoadWeights("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights().Market, w.Market)
}
