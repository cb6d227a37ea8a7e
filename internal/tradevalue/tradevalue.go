// Package tradevalue implements the Trade Value Model (§4.9): a player
// value curve, a draft-pick value chart, and the fairness classification
// used to accept or flag a TradeProposal before it ever reaches the
// Transaction Validator.
package tradevalue

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nfl-analytics/backend/internal/models"
)

// positionMultiplier weights a player's raw overall value by positional
// scarcity; unlisted positions default to 1.0.
var positionMultiplier = map[string]float64{
	"QB": 1.6,
	"WR": 1.2,
	"CB": 1.15,
	"EDGE": 1.15,
	"OT":  1.1,
	"RB":  0.85,
	"TE":  0.95,
	"S":   0.95,
	"LB":  1.0,
	"DT":  1.0,
	"IOL": 0.9,
	"K":   0.4,
	"P":   0.35,
}

// peakAge is the position's age at which its value curve is at its
// maximum; value falls off on either side.
var peakAge = map[string]int{
	"QB": 29,
	"RB": 25,
	"WR": 27,
	"TE": 27,
	"OT": 28,
	"IOL": 28,
	"EDGE": 27,
	"DT":  28,
	"LB":  27,
	"CB":  26,
	"S":   27,
	"K":   30,
	"P":   30,
}

const defaultPeakAge = 27

// ageCurveFalloff is the fractional value lost per year of distance from
// peak age; running backs and corners decline faster than linemen.
var ageCurveFalloff = map[string]float64{
	"RB": 0.06,
	"WR": 0.04,
	"CB": 0.045,
	"QB": 0.02,
	"OT": 0.025,
	"IOL": 0.025,
	"DT":  0.025,
}

const defaultAgeFalloff = 0.035

// BaseValue is the overall-driven core of §4.9's player value curve:
// max(0, overall-50)^1.8 / 3.0, zero for replacement-level (overall <= 50)
// players.
func BaseValue(overall int) float64 {
	diff := float64(overall - 50)
	if diff <= 0 {
		return 0
	}
	return math.Pow(diff, 1.8) / 3.0
}

// AgeMultiplier applies the position's age curve: 1.0 at peak age, falling
// off by the position's falloff rate per year of distance from peak in
// either direction, floored at 0.1 so an aged player retains nominal
// value rather than going to zero.
func AgeMultiplier(position string, age int) float64 {
	peak, ok := peakAge[position]
	if !ok {
		peak = defaultPeakAge
	}
	falloff, ok := ageCurveFalloff[position]
	if !ok {
		falloff = defaultAgeFalloff
	}
	distance := math.Abs(float64(age - peak))
	mult := 1.0 - falloff*distance
	if mult < 0.1 {
		return 0.1
	}
	return mult
}

// ContractAdjustment applies §4.9's contract-efficiency swing: a bargain
// contract (current-year cap hit well below the player's market estimate)
// adds up to +20% value; an albatross contract subtracts up to -30%.
// marketAPY is the estimated going rate for a player of this caliber;
// capHit is the player's actual current-year cap number.
func ContractAdjustment(capHit, marketAPY int) float64 {
	if marketAPY <= 0 {
		return 1.0
	}
	ratio := float64(capHit) / float64(marketAPY)
	switch {
	case ratio <= 0.7:
		return 1.2
	case ratio >= 1.5:
		return 0.7
	case ratio < 1.0:
		// Linear interpolation between +20% at ratio 0.7 and 0% at ratio 1.0.
		return 1.0 + 0.2*(1.0-ratio)/0.3
	default:
		// Linear interpolation between 0% at ratio 1.0 and -30% at ratio 1.5.
		return 1.0 - 0.3*(ratio-1.0)/0.5
	}
}

// PlayerValue combines base value, position multiplier, age curve, and
// contract adjustment into a single trade-value figure. marketAPY and
// capHit are both zero when the player is unsigned (rookie-scale or
// free-agent evaluation), which ContractAdjustment treats as neutral.
func PlayerValue(p models.Player, capHit, marketAPY int) float64 {
	mult, ok := positionMultiplier[p.Position]
	if !ok {
		mult = 1.0
	}
	return BaseValue(p.Overall) * mult * AgeMultiplier(p.Position, p.Age) * ContractAdjustment(capHit, marketAPY)
}

// pickChartPeak and pickChartFloorRatio anchor §4.9's draft-pick value
// chart: pick 1 is worth pickChartPeak, pick 32 is worth
// pickChartPeak*pickChartFloorRatio, decaying exponentially in between.
const (
	pickChartPeak      = 3000.0
	pickChartFloorRatio = 590.0 / 3000.0
	picksPerRound      = 32
)

var pickDecayRate = -math.Log(pickChartFloorRatio) / float64(picksPerRound-1)

// PickChartValue returns the trade value of the nth overall pick (1-based)
// in the current draft, continuing the round-1 exponential decay curve
// into later rounds rather than resetting it each round.
func PickChartValue(overallPick int) float64 {
	if overallPick < 1 {
		return 0
	}
	return pickChartPeak * math.Exp(-pickDecayRate*float64(overallPick-1))
}

// futurePickDiscount is the per-year-out multiplier applied to a pick
// that belongs to a season after the current one (§4.9: "future picks
// trade at a discount").
const futurePickDiscount = 0.95

// DraftPickValue resolves a DraftPickAsset's overall pick number from its
// round and pick-in-round, discounts it if it belongs to a future season,
// and returns its trade value.
func DraftPickValue(pick models.DraftPickAsset, currentSeason int) float64 {
	overall := (pick.Round-1)*picksPerRound + pick.PickInRound
	value := PickChartValue(overall)
	if yearsOut := pick.Season - currentSeason; yearsOut > 0 {
		value *= math.Pow(futurePickDiscount, float64(yearsOut))
	}
	return value
}

// SideValue sums every asset value on one side of a trade using
// gonum/floats, matching the package's use elsewhere in the engine for
// numeric roster aggregation.
func SideValue(playerValues, pickValues []float64) float64 {
	total := floats.Sum(playerValues)
	total += floats.Sum(pickValues)
	return total
}

// Fairness is min(valueA, valueB) / max(valueA, valueB), 1.0 for a
// perfectly even trade and 0 when one side contributes nothing.
func Fairness(valueA, valueB float64) float64 {
	if valueA == 0 && valueB == 0 {
		return 1.0
	}
	hi := math.Max(valueA, valueB)
	lo := math.Min(valueA, valueB)
	if hi == 0 {
		return 0
	}
	return lo / hi
}

// Tier is the fairness classification bucket a proposal falls into.
type Tier string

const (
	TierVeryFair  Tier = "VERY_FAIR"
	TierFair      Tier = "FAIR"
	TierBorderline Tier = "BORDERLINE"
	TierReject    Tier = "REJECT"
)

// Classify buckets a fairness ratio into the tiers named in §4.9.
func Classify(fairness float64) Tier {
	switch {
	case fairness >= 0.95:
		return TierVeryFair
	case fairness >= 0.80:
		return TierFair
	case fairness >= 0.70:
		return TierBorderline
	default:
		return TierReject
	}
}

// Evaluate fills in a TradeProposal's ValueA/ValueB/Fairness fields from
// precomputed per-asset values and returns the fairness tier.
func Evaluate(proposal *models.TradeProposal, playerValuesA, pickValuesA, playerValuesB, pickValuesB []float64) Tier {
	proposal.ValueA = SideValue(playerValuesA, pickValuesA)
	proposal.ValueB = SideValue(playerValuesB, pickValuesB)
	proposal.Fairness = Fairness(proposal.ValueA, proposal.ValueB)
	return Classify(proposal.Fairness)
}
