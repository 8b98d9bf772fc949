package types

// Venue identifies which exchange a market trades on.
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// RiskCategory classifies a Polymarket instrument. It determines both
// the verifying contract used for order signing and the allowance
// target that must be approved. The two must never be mixed: a
// standard-category order signed against the negative-risk domain is
// well-formed but will be rejected by the exchange.
type RiskCategory string

const (
	RiskStandard     RiskCategory = "standard"
	RiskNegativeRisk RiskCategory = "neg_risk"
)

// Market describes a tradeable instrument on one venue. Only the
// fields relevant to order construction are carried here; listing and
// display metadata live elsewhere.
type Market struct {
	Venue    Venue
	Question string

	// Kalshi
	Ticker string // market ticker, e.g. "PRES-2028-DEM"

	// Polymarket
	YesTokenID string // CLOB token id for the YES outcome
	NoTokenID  string // CLOB token id for the NO outcome
	NegRisk    bool   // negative-risk instrument variant
}

// RiskCategory returns the instrument's risk classification.
func (m *Market) RiskCategory() RiskCategory {
	if m.NegRisk {
		return RiskNegativeRisk
	}

	return RiskStandard
}

// TokenIDForOutcome resolves the CLOB token id for an outcome name.
// Any outcome other than "YES" maps to the NO leg.
func (m *Market) TokenIDForOutcome(outcome string) string {
	if outcome == "YES" || outcome == "Yes" || outcome == "yes" {
		return m.YesTokenID
	}

	return m.NoTokenID
}
