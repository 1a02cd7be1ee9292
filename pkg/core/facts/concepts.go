package facts

import (
	"strings"
	"unicode"

	"holdings_extract/pkg/core/fields"
)

// conceptRule maps concept-name fragments to a field. Rules are checked in
// order, so narrower fragments ("paidinkind") precede broader ones ("interestrate").
type conceptRule struct {
	fragments []string
	field     fields.Field
}

var conceptRules = []conceptRule{
	{[]string{"percentofnetassets", "netassetspercent", "percentagenetassets"}, fields.PercentNetAssets},
	{[]string{"paidinkind", "pikrate", "pikinterest"}, fields.PIKRate},
	{[]string{"ratefloor", "floorrate", "interestratefloor", "floor"}, fields.FloorRate},
	{[]string{"basisspread", "spreadvariablerate", "spread"}, fields.Spread},
	{[]string{"unfundedcommitment", "undrawncommitment", "unfunded", "undrawn"}, fields.UndrawnCommitment},
	{[]string{"commitment"}, fields.CommitmentLimit},
	{[]string{"balanceshares", "ownedshares", "sharesowned", "units", "shares"}, fields.SharesUnits},
	{[]string{"maturitydate", "maturity"}, fields.MaturityDate},
	{[]string{"acquisitiondate", "dateofacquisition", "acquisition"}, fields.AcquisitionDate},
	{[]string{"fairvalue"}, fields.FairValue},
	{[]string{"amortizedcost", "costbasis", "atcost", "cost"}, fields.Cost},
	{[]string{"principal", "balance", "paramount", "faceamount"}, fields.PrincipalAmount},
	{[]string{"interestratetype", "ratetype", "variableratebasis", "referencerate", "benchmark", "indexrate"}, fields.ReferenceRate},
	{[]string{"interestrate", "couponrate"}, fields.InterestRate},
	{[]string{"industrysector", "industry"}, fields.Industry},
}

// ConceptField classifies a concept name by case-insensitive fragment match
// against the fixed financial vocabulary. The namespace prefix is ignored.
//
//	"us-gaap:InvestmentOwnedAtFairValue"           → fair_value
//	"us-gaap:InvestmentInterestRatePaidInKind"     → pik_rate
//	"us-gaap:InvestmentOwnedBalancePrincipalAmount" → principal_amount
func ConceptField(concept string) (fields.Field, bool) {
	local := concept
	if i := strings.LastIndexByte(local, ':'); i >= 0 {
		local = local[i+1:]
	}
	key := squash(local)
	for _, rule := range conceptRules {
		for _, frag := range rule.fragments {
			if strings.Contains(key, frag) {
				return rule.field, true
			}
		}
	}
	return "", false
}

// squash lowercases and drops everything but letters and digits.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unitCurrency returns the ISO currency of a unit tag ("iso4217:USD", "usd"), or "".
func unitCurrency(unit string) string {
	u := strings.ToUpper(strings.TrimSpace(unit))
	if i := strings.LastIndexByte(u, ':'); i >= 0 {
		u = u[i+1:]
	}
	if len(u) == 3 && u != "PCT" && isAlpha(u) {
		return u
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
