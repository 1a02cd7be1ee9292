package facts

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"holdings_extract/pkg/core/fields"
)

// =============================================================================
// IDENTIFIER SPLITTING
// =============================================================================

func TestIdentifierSplit(t *testing.T) {
	p := NewIdentifierParser(nil)
	tests := []struct {
		name       string
		identifier string
		entity     string
		fragment   string
		recognized bool
	}{
		{"Comma first lien", "Acme, First Lien Senior Secured Loan", "Acme", "First Lien Senior Secured Loan", true},
		{"Comma with legal suffix", "Acme Corp, First Lien Senior Secured Loan", "Acme Corp", "First Lien Senior Secured Loan", true},
		{"No comma second lien", "Beta Holdings LLC Second Lien Term Loan", "Beta Holdings LLC", "Second Lien Term Loan", true},
		{"Unsecured facility", "Gamma Inc Unsecured facility", "Gamma Inc", "Unsecured facility", true},
		{"Subordinated notes", "Delta Co. Subordinated Notes", "Delta Co.", "Subordinated Notes", true},
		{"Member suffix", "Acme Corp, Common Stock [Member]", "Acme Corp", "Common Stock", true},
		{"Unknown", "Mystery Ventures", "Mystery Ventures", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Split(tt.identifier)
			if got.EntityName != tt.entity {
				t.Errorf("Split(%q).EntityName = %q, want %q", tt.identifier, got.EntityName, tt.entity)
			}
			if got.Fragment != tt.fragment {
				t.Errorf("Split(%q).Fragment = %q, want %q", tt.identifier, got.Fragment, tt.fragment)
			}
			if got.Recognized != tt.recognized {
				t.Errorf("Split(%q).Recognized = %v, want %v", tt.identifier, got.Recognized, tt.recognized)
			}
		})
	}
}

func TestIdentifierSplitTerms(t *testing.T) {
	p := NewIdentifierParser(nil)
	got := p.Split("Acme Corp, First Lien Term Loan, SOFR + 5.75%, 1.00% Floor, Due 11/14/2027")

	if got.EntityName != "Acme Corp" {
		t.Errorf("EntityName = %q, want %q", got.EntityName, "Acme Corp")
	}
	if got.Fragment != "First Lien Term Loan" {
		t.Errorf("Fragment = %q, want %q", got.Fragment, "First Lien Term Loan")
	}
	if v, ok := got.Terms[fields.MaturityDate]; !ok || v.Date.String() != "2027-11-14" {
		t.Errorf("maturity = %+v, want 2027-11-14", v)
	}
	if v := got.Terms[fields.ReferenceRate]; v.Text != fields.RefSOFR {
		t.Errorf("reference_rate = %q, want %q", v.Text, fields.RefSOFR)
	}
	if v, ok := got.Terms[fields.Spread]; !ok || !v.Number.Equal(decimal.RequireFromString("5.75")) {
		t.Errorf("spread = %v, want 5.75", v.Number)
	}
	if v, ok := got.Terms[fields.FloorRate]; !ok || !v.Number.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("floor = %v, want 1.00", v.Number)
	}
}

func TestSplitAtComma(t *testing.T) {
	p := NewIdentifierParser(nil)

	if _, ok := p.SplitAtComma("Senior Secured Holdings LLC"); ok {
		t.Error("SplitAtComma should not split a comma-free company name")
	}
	got, ok := p.SplitAtComma("Acme LLC, Revolver")
	if !ok || got.EntityName != "Acme LLC" || got.Fragment != "Revolver" {
		t.Errorf("SplitAtComma = %+v, %v", got, ok)
	}
}

func TestOverrideFragmentsTakePrecedence(t *testing.T) {
	extra, err := CompileFragmentRules([]string{`tranche\s+[a-z]\b`})
	if err != nil {
		t.Fatalf("CompileFragmentRules: %v", err)
	}
	p := NewIdentifierParser(extra)
	got := p.Split("Omega Partners Tranche B Term Loan")
	if got.EntityName != "Omega Partners" || got.Rule != "override" {
		t.Errorf("Split = %+v, want entity %q via override rule", got, "Omega Partners")
	}

	if _, err := CompileFragmentRules([]string{`(unclosed`}); err == nil {
		t.Error("CompileFragmentRules should reject an invalid expression")
	}
}

// =============================================================================
// RAW FACT DECODING
// =============================================================================

func TestRawFactValueShapes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"String", `{"concept": "c", "value": "3,250,000"}`, "3,250,000", false},
		{"Integer", `{"concept": "c", "value": 3250000}`, "3250000", false},
		{"Decimal keeps text", `{"concept": "c", "value": 1.50}`, "1.50", false},
		{"Exponent", `{"concept": "c", "value": 3.25e6}`, "3.25e6", false},
		{"Boolean", `{"concept": "c", "value": true}`, "true", false},
		{"Null", `{"concept": "c", "value": null}`, "", false},
		{"Missing", `{"concept": "c"}`, "", false},
		{"Object", `{"concept": "c", "value": {"a": 1}}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f RawFact
			err := json.Unmarshal([]byte(tt.input), &f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (f.Value != tt.want || f.Concept != "c") {
				t.Errorf("got %+v, want value %q", f, tt.want)
			}
		})
	}
}

// =============================================================================
// CONCEPT VOCABULARY
// =============================================================================

func TestConceptField(t *testing.T) {
	tests := []struct {
		concept string
		want    fields.Field
		ok      bool
	}{
		{"us-gaap:InvestmentOwnedAtFairValue", fields.FairValue, true},
		{"us-gaap:InvestmentOwnedAtCost", fields.Cost, true},
		{"us-gaap:InvestmentOwnedBalancePrincipalAmount", fields.PrincipalAmount, true},
		{"us-gaap:InvestmentInterestRate", fields.InterestRate, true},
		{"us-gaap:InvestmentInterestRatePaidInKind", fields.PIKRate, true},
		{"us-gaap:InvestmentBasisSpreadVariableRate", fields.Spread, true},
		{"us-gaap:InvestmentInterestRateFloor", fields.FloorRate, true},
		{"us-gaap:InvestmentVariableInterestRateTypeExtensibleEnumeration", fields.ReferenceRate, true},
		{"us-gaap:InvestmentMaturityDate", fields.MaturityDate, true},
		{"us-gaap:InvestmentAcquisitionDate", fields.AcquisitionDate, true},
		{"us-gaap:InvestmentOwnedPercentOfNetAssets", fields.PercentNetAssets, true},
		{"us-gaap:InvestmentOwnedBalanceShares", fields.SharesUnits, true},
		{"acme:UnfundedCommitment", fields.UndrawnCommitment, true},
		{"dei:EntityRegistrantName", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.concept, func(t *testing.T) {
			got, ok := ConceptField(tt.concept)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ConceptField(%q) = %q, %v; want %q, %v", tt.concept, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestUnitCurrency(t *testing.T) {
	tests := map[string]string{
		"iso4217:USD": "USD",
		"usd":         "USD",
		"pure":        "",
		"shares":      "",
		"":            "",
	}
	for unit, want := range tests {
		if got := unitCurrency(unit); got != want {
			t.Errorf("unitCurrency(%q) = %q, want %q", unit, got, want)
		}
	}
}

// =============================================================================
// EXTRACTION
// =============================================================================

func TestExtractGroupsByContext(t *testing.T) {
	raw := []RawFact{
		{ContextID: "c1", Identifier: "Acme, First Lien Senior Secured Loan", Concept: "us-gaap:InvestmentOwnedBalancePrincipalAmount", Value: "3,250,000", Unit: "iso4217:USD", EndDate: "2023-12-31"},
		{ContextID: "c1", Identifier: "Acme, First Lien Senior Secured Loan", Concept: "us-gaap:InvestmentOwnedAtFairValue", Value: "3200000", Unit: "iso4217:USD", EndDate: "2023-12-31"},
		{ContextID: "c1", Identifier: "Acme, First Lien Senior Secured Loan", Concept: "us-gaap:InvestmentInterestRate", Value: "0.1025", Unit: "pure", EndDate: "2023-12-31"},
		{ContextID: "c2", Identifier: "Beta LLC, Common Stock", Concept: "us-gaap:InvestmentOwnedAtCost", Value: "500", Unit: "iso4217:USD", EndDate: "2023-12-31"},
		{ContextID: "c0", Concept: "us-gaap:NetAssets", Value: "1000000"},
	}

	res := NewExtractor(Options{}).Extract(raw)

	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if res.Ignored != 1 {
		t.Errorf("ignored = %d, want 1", res.Ignored)
	}

	acme := res.Records[0]
	if acme.EntityNameRaw != "Acme" {
		t.Errorf("entity = %q, want %q", acme.EntityNameRaw, "Acme")
	}
	if !acme.Recognized {
		t.Error("Acme identifier should be recognized")
	}
	if v := acme.Values[fields.PrincipalAmount]; !v.Number.Equal(decimal.NewFromInt(3250000)) {
		t.Errorf("principal = %v, want 3250000", v.Number)
	}
	if v := acme.Values[fields.InterestRate]; !v.Number.Equal(decimal.RequireFromString("10.25")) {
		t.Errorf("interest_rate = %v, want 10.25 (pure ratio scaled)", v.Number)
	}
	if got := acme.Values.Text(fields.Currency); got != "USD" {
		t.Errorf("currency = %q, want USD", got)
	}
	if got := acme.Values.Text(fields.ItemType); got != "First Lien Senior Secured Loan" {
		t.Errorf("item_type = %q", got)
	}
	if res.Records[1].Order != 1 {
		t.Errorf("second record order = %d, want 1", res.Records[1].Order)
	}
}

func TestExtractRateUnits(t *testing.T) {
	tests := []struct {
		name  string
		value string
		unit  string
		want  string
	}{
		{"Pure ratio", "0.0575", "pure", "5.75"},
		{"Namespaced pure", "0.01", "xbrli:pure", "1"},
		{"Unitless points", "0.75", "", "0.75"},
		{"Unitless above one", "5.75", "", "5.75"},
		{"Percent sign", "0.75%", "pure", "0.75"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []RawFact{{ContextID: "c1", Identifier: "Acme, First Lien Term Loan", Concept: "us-gaap:InvestmentBasisSpreadVariableRate", Value: tt.value, Unit: tt.unit}}
			res := NewExtractor(Options{}).Extract(raw)
			if len(res.Records) != 1 {
				t.Fatalf("records = %+v", res.Records)
			}
			if v := res.Records[0].Values[fields.Spread]; !v.Number.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("spread = %s, want %s", v.Number, tt.want)
			}
		})
	}
}

func TestExtractPeriodFilter(t *testing.T) {
	raw := []RawFact{
		{ContextID: "cur", Identifier: "Acme, Senior Secured Loan", Concept: "InvestmentOwnedAtFairValue", Value: "10", EndDate: "2023-12-31"},
		{ContextID: "prior", Identifier: "Acme, Senior Secured Loan", Concept: "InvestmentOwnedAtFairValue", Value: "9", EndDate: "2022-12-31"},
	}
	res := NewExtractor(Options{PeriodEnd: "2023-12-31"}).Extract(raw)
	if len(res.Records) != 1 || res.Records[0].ContextKey != "cur" {
		t.Fatalf("records = %+v, want only the current-period context", res.Records)
	}
}

func TestExtractReportsMisses(t *testing.T) {
	raw := []RawFact{
		{ContextID: "c1", Identifier: "Mystery Ventures", Concept: "InvestmentOwnedAtFairValue", Value: "10"},
		{ContextID: "c2", Identifier: "Acme, Term Loan", Concept: "InvestmentMaturityDate", Value: "sometime"},
	}
	res := NewExtractor(Options{}).Extract(raw)

	if len(res.Misses) != 2 {
		t.Fatalf("misses = %+v, want 2", res.Misses)
	}
	if res.Records[0].EntityNameRaw != "Mystery Ventures" || res.Records[0].Recognized {
		t.Errorf("unrecognized identifier should become the entity: %+v", res.Records[0])
	}
	if res.Records[1].Values.Has(fields.MaturityDate) {
		t.Error("unparsable maturity should stay null")
	}
}

func TestCanonicalReference(t *testing.T) {
	tests := map[string]string{
		"SOFR": fields.RefSOFR,
		"us-gaap:SecuredOvernightFinancingRateSofrMember": fields.RefSOFR,
		"us-gaap:LondonInterbankOfferedRateLIBORMember":   fields.RefLIBOR,
		"us-gaap:PrimeRateMember":                         fields.RefPrime,
		"something else":                                  "",
	}
	for raw, want := range tests {
		if got := canonicalReference(raw); got != want {
			t.Errorf("canonicalReference(%q) = %q, want %q", raw, got, want)
		}
	}
}

// =============================================================================
// INLINE XBRL
// =============================================================================

const inlineSample = `<html><body>
<div style="display:none"><ix:header><ix:resources>
<xbrli:context id="c-1">
  <xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0001234567</xbrli:identifier>
    <xbrli:segment>
      <xbrldi:typedMember dimension="us-gaap:InvestmentIdentifierAxis"><us-gaap:InvestmentIdentifierAxis.domain>Acme, First Lien Senior Secured Loan</us-gaap:InvestmentIdentifierAxis.domain></xbrldi:typedMember>
    </xbrli:segment>
  </xbrli:entity>
  <xbrli:period><xbrli:instant>2023-12-31</xbrli:instant></xbrli:period>
</xbrli:context>
<xbrli:context id="c-2">
  <xbrli:entity><xbrli:identifier scheme="http://www.sec.gov/CIK">0001234567</xbrli:identifier>
    <xbrli:segment>
      <xbrldi:explicitMember dimension="us-gaap:InvestmentTypeAxis">acme:BetaHoldingsSecondLienTermLoanMember</xbrldi:explicitMember>
    </xbrli:segment>
  </xbrli:entity>
  <xbrli:period><xbrli:instant>2023-12-31</xbrli:instant></xbrli:period>
</xbrli:context>
<xbrli:unit id="USD"><xbrli:measure>iso4217:USD</xbrli:measure></xbrli:unit>
</ix:resources></ix:header></div>
<table><tr>
<td><ix:nonFraction name="us-gaap:InvestmentOwnedBalancePrincipalAmount" contextRef="c-1" unitRef="USD" decimals="-3" scale="3">3,250</ix:nonFraction></td>
<td><ix:nonNumeric name="us-gaap:InvestmentMaturityDate" contextRef="c-1">November 14, 2023</ix:nonNumeric></td>
<td><ix:nonFraction name="us-gaap:InvestmentOwnedAtFairValue" contextRef="c-2" unitRef="USD" sign="-">12</ix:nonFraction></td>
</tr></table>
</body></html>`

func TestReadInlineXBRL(t *testing.T) {
	got, err := ReadInlineXBRL(inlineSample)
	if err != nil {
		t.Fatalf("ReadInlineXBRL: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("facts = %d, want 3: %+v", len(got), got)
	}

	principal := got[0]
	if principal.Identifier != "Acme, First Lien Senior Secured Loan" {
		t.Errorf("identifier = %q", principal.Identifier)
	}
	if principal.Value != "3250000" {
		t.Errorf("scaled value = %q, want 3250000", principal.Value)
	}
	if principal.Unit != "iso4217:USD" || principal.EndDate != "2023-12-31" {
		t.Errorf("unit/period = %q/%q", principal.Unit, principal.EndDate)
	}
	if got[1].Value != "November 14, 2023" {
		t.Errorf("nonNumeric value = %q", got[1].Value)
	}
	if got[2].Identifier != "Beta Holdings Second Lien Term Loan" {
		t.Errorf("explicit member identifier = %q", got[2].Identifier)
	}
	if got[2].Value != "-12" {
		t.Errorf("signed value = %q, want -12", got[2].Value)
	}

	res := NewExtractor(Options{PeriodEnd: "2023-12-31"}).Extract(got)
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if d := res.Records[0].Values[fields.MaturityDate].Date.String(); d != "2023-11-14" {
		t.Errorf("maturity = %q, want 2023-11-14", d)
	}
}
