package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExplicitWinsRegardlessOfCache(t *testing.T) {
	cache := Cache{"TRIP1": "CACHED"}

	res := Resolve("TRIP1", "EXPLICIT", cache)

	assert.Equal(t, "EXPLICIT", res.RouteID)
	assert.Equal(t, TierExplicit, res.Tier)
	assert.True(t, res.Resolved())
}

func TestResolveStaticCache(t *testing.T) {
	cache := Cache{"1557727": "ROUTE 5"}

	res := Resolve("1557727", "", cache)

	assert.Equal(t, "ROUTE 5", res.RouteID)
	assert.Equal(t, TierStatic, res.Tier)
}

func TestResolveTripIDHeuristics(t *testing.T) {
	tests := []struct {
		name    string
		tripID  string
		want    string
		wantHit bool
	}{
		{"two leading digits", "01_1234", "01", true},
		{"two leading digits no separator", "07xyz", "07", true},
		{"digit head before underscore", "5_outbound", "5", true},
		{"digit head before hyphen", "45-A", "45", true},
		{"non-digit leading chars", "ZZ99", "", false},
		{"non-digit head before underscore", "ab_12", "", false},
		{"empty head", "_12", "", false},
		{"single digit no separator", "5", "", false},
		{"empty trip id", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.tripID, "", Cache{})

			if tt.wantHit {
				assert.Equal(t, tt.want, res.RouteID)
				assert.Equal(t, TierPrefix, res.Tier)
			} else {
				assert.False(t, res.Resolved())
				assert.Empty(t, res.RouteID)
				assert.Equal(t, TierNone, res.Tier)
			}
		})
	}
}

func TestResolveCacheBeatsHeuristic(t *testing.T) {
	// "01_1234" would parse to "01", but the static mapping is more
	// reliable than the textual convention.
	cache := Cache{"01_1234": "YELLOW"}

	res := Resolve("01_1234", "", cache)

	assert.Equal(t, "YELLOW", res.RouteID)
	assert.Equal(t, TierStatic, res.Tier)
}

func TestResolveMissIsNotAnError(t *testing.T) {
	res := Resolve("NIGHT-OWL", "", nil)

	assert.False(t, res.Resolved())
	assert.Equal(t, Resolution{}, res)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "explicit", TierExplicit.String())
	assert.Equal(t, "static", TierStatic.String())
	assert.Equal(t, "prefix", TierPrefix.String())
	assert.Equal(t, "none", TierNone.String())
}
