// Package routes recovers a route identifier for a trip when the realtime
// feed omits it, which the BART feed does frequently. Resolution cascades
// from the authoritative explicit tag, through the static schedule mapping,
// down to a textual convention in the trip identifier itself.
package routes

// Cache maps trip_id to route_id, built once per ingestion run from the
// static schedule. It is a plain value owned by that run: built before
// resolution starts and never mutated afterwards.
type Cache map[string]string

// Tier records which cascade step produced a route id, so downstream
// consumers can filter by confidence.
type Tier int

const (
	// TierNone means every tier failed; an expected outcome, not an error.
	TierNone Tier = iota
	// TierExplicit means the feed carried the route id itself.
	TierExplicit
	// TierStatic means the static schedule mapping had the trip.
	TierStatic
	// TierPrefix means the route was parsed out of the trip id text.
	TierPrefix
)

func (t Tier) String() string {
	switch t {
	case TierExplicit:
		return "explicit"
	case TierStatic:
		return "static"
	case TierPrefix:
		return "prefix"
	default:
		return "none"
	}
}

// Resolution is the outcome of one cascade run. A zero Resolution is a miss.
type Resolution struct {
	RouteID string
	Tier    Tier
}

// Resolved reports whether any tier produced a route id.
func (r Resolution) Resolved() bool {
	return r.Tier != TierNone
}

// Resolve runs the cascade in strict order, first success wins:
//
//  1. the explicit route id from the trip descriptor
//  2. the static schedule cache
//  3. a numeric prefix parsed from the trip id
//
// All tiers failing yields a zero Resolution, never an error.
func Resolve(tripID, explicitRouteID string, cache Cache) Resolution {
	if explicitRouteID != "" {
		return Resolution{RouteID: explicitRouteID, Tier: TierExplicit}
	}

	if tripID == "" {
		return Resolution{}
	}

	if routeID, ok := cache[tripID]; ok && routeID != "" {
		return Resolution{RouteID: routeID, Tier: TierStatic}
	}

	if routeID := routeFromTripID(tripID); routeID != "" {
		return Resolution{RouteID: routeID, Tier: TierPrefix}
	}

	return Resolution{}
}

// routeFromTripID applies the naming conventions seen in BART trip ids.
// Only clearly numeric segments are trusted.
func routeFromTripID(tripID string) string {
	if len(tripID) >= 2 && allDigits(tripID[:2]) {
		return tripID[:2]
	}
	if head, ok := digitHead(tripID, '_'); ok {
		return head
	}
	if head, ok := digitHead(tripID, '-'); ok {
		return head
	}
	return ""
}

// digitHead returns the segment before the first sep if it is entirely
// digits.
func digitHead(s string, sep byte) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > 0 && allDigits(s[:i]) {
				return s[:i], true
			}
			return "", false
		}
	}
	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
