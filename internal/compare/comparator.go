// Package compare scores a clause candidate against retrieved playbook
// guidance. Scoring is table-driven per clause type; a parse failure never
// propagates past this boundary, it falls back to the defaults.
package compare

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"clausecheck/internal/types"
)

// Comparison is the comparator verdict for one clause candidate.
type Comparison struct {
	Standard  string
	Deviation string
	Risk      types.RiskLevel
}

// Defaults returned when no retrieved text matches a sub-pattern or when
// parsing fails.
const (
	defaultStandard  = "See playbook reference"
	defaultDeviation = "No deviation detected"
)

var (
	leadingInt    = regexp.MustCompile(`(\d+)`)
	dayRange      = regexp.MustCompile(`(\d+)[-–](\d+)\s*days`)
	percentFigure = regexp.MustCompile(`(\d+)%`)
	broadForm     = regexp.MustCompile(`(?i)regardless of fault|any and all`)
	ownerVenue    = regexp.MustCompile(`(?i)owner`)
	highDailyLD   = regexp.MustCompile(`€?75,?000`)
)

// Comparator scores candidates. The zero value is usable; a logger can be
// attached for parse-failure diagnostics.
type Comparator struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{logger: logger}
}

// Compare computes the playbook standard, deviation description, and risk
// level for a candidate given its retrieved reference chunks.
func (c *Comparator) Compare(candidate types.ClauseCandidate, retrieved []types.ReferenceChunk) Comparison {
	result := Comparison{
		Standard:  defaultStandard,
		Deviation: defaultDeviation,
		Risk:      types.RiskMedium,
	}

	var parts []string
	for _, chunk := range retrieved {
		parts = append(parts, chunk.Content)
	}
	text := strings.Join(parts, " ")

	value, hasValue := parseLeadingInt(candidate.ExtractedValue)

	switch candidate.ClauseType {
	case types.ClausePaymentTerms:
		if !hasValue {
			return result
		}
		m := dayRange.FindStringSubmatch(text)
		if m == nil {
			return result
		}
		low, errLow := strconv.Atoi(m[1])
		high, errHigh := strconv.Atoi(m[2])
		if errLow != nil || errHigh != nil {
			c.logger.Warn("comparison error", zap.String("clause_type", string(candidate.ClauseType)), zap.String("range", m[0]))
			return result
		}
		result.Standard = fmt.Sprintf("%d-%d days", low, high)
		switch {
		case value > 90:
			result.Deviation, result.Risk = ">90 days vs standard", types.RiskCritical
		case value > 60:
			result.Deviation, result.Risk = fmt.Sprintf("%d days (above 60)", value), types.RiskHigh
		case value > high:
			result.Deviation, result.Risk = fmt.Sprintf("%d vs %s", value, result.Standard), types.RiskMedium
		default:
			result.Deviation, result.Risk = "Within standard", types.RiskLow
		}

	case types.ClauseRetainage:
		if !hasValue {
			return result
		}
		if m := percentFigure.FindStringSubmatch(text); m != nil {
			result.Standard = m[1] + "%"
		}
		switch {
		case value > 15:
			result.Deviation, result.Risk = "Retainage above 15%", types.RiskCritical
		case value > 10:
			result.Deviation, result.Risk = "Retainage above 10%", types.RiskHigh
		case value > 5:
			result.Deviation, result.Risk = "Retainage above 5%", types.RiskMedium
		default:
			result.Deviation, result.Risk = "Within standard", types.RiskLow
		}

	case types.ClauseNoticePeriod:
		if !hasValue {
			return result
		}
		if strings.Contains(text, "14-21 days") {
			result.Standard = "14-21 days"
		} else {
			result.Standard = "See playbook"
		}
		switch {
		case value <= 3:
			result.Deviation, result.Risk = "≤3 days with waiver risk", types.RiskCritical
		case value <= 6:
			result.Deviation, result.Risk = "Short notice window", types.RiskHigh
		case value < 14:
			result.Deviation, result.Risk = "Below preferred 14 days", types.RiskMedium
		default:
			result.Deviation, result.Risk = "Within preferred range", types.RiskLow
		}

	case types.ClauseIndemnification:
		result.Standard = "Limit to proportionate fault"
		if broadForm.MatchString(candidate.SourceText) {
			result.Deviation, result.Risk = "Broad form indemnity", types.RiskCritical
		} else {
			result.Deviation, result.Risk = "Broad language detected", types.RiskHigh
		}

	case types.ClauseTerminationNotice:
		if !hasValue {
			return result
		}
		if strings.Contains(text, "30+") || strings.Contains(text, "30 days") {
			result.Standard = "30+ days"
		} else {
			result.Standard = "See playbook"
		}
		switch {
		case value < 7:
			result.Deviation, result.Risk = "<7 days", types.RiskCritical
		case value < 14:
			result.Deviation, result.Risk = "7-13 days", types.RiskHigh
		case value < 30:
			result.Deviation, result.Risk = "14-29 days", types.RiskMedium
		default:
			result.Deviation, result.Risk = "Within acceptable range", types.RiskLow
		}

	case types.ClauseDisputeResolution:
		result.Standard = "Neutral venue"
		if ownerVenue.MatchString(candidate.SourceText) {
			result.Deviation, result.Risk = "Owner's venue", types.RiskHigh
		} else {
			result.Deviation, result.Risk = "Check neutrality", types.RiskMedium
		}

	case types.ClauseLiquidatedDamages:
		result.Standard = "0.1-0.2%/day with cap"
		if highDailyLD.MatchString(candidate.ExtractedValue) {
			result.Deviation, result.Risk = "High daily LD", types.RiskHigh
		} else {
			result.Deviation, result.Risk = "Within playbook range", types.RiskLow
		}

	default:
		result.Deviation, result.Risk = "Needs review", types.RiskMedium
	}

	return result
}

// parseLeadingInt extracts the first integer in the extracted value.
func parseLeadingInt(value string) (int, bool) {
	m := leadingInt.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
