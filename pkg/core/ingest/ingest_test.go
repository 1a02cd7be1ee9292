package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const inlineDoc = `<html><body>
<ix:header><xbrli:context id="c1">
  <xbrli:entity><xbrli:segment>
    <xbrldi:typedMember dimension="us-gaap:InvestmentIdentifierAxis">Acme, First Lien Senior Secured Loan</xbrldi:typedMember>
  </xbrli:segment></xbrli:entity>
  <xbrli:period><xbrli:instant>2023-12-31</xbrli:instant></xbrli:period>
</xbrli:context></ix:header>
<table><tr><td>Portfolio Company</td><td>Investment Type</td><td>Maturity</td><td>Principal</td></tr></table>
<ix:nonFraction name="us-gaap:InvestmentOwnedBalancePrincipalAmount" contextRef="c1" unitRef="usd" decimals="0">3,250,000</ix:nonFraction>
</body></html>`

func writeBundle(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// =============================================================================
// DIRECTORY SOURCE
// =============================================================================

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "b-fund", map[string]string{
		MetaFile:     `{"cik": "1287750", "issuer": "Example Capital", "period_end": "2023-12-31"}`,
		ScheduleFile: "<table><tr><td>Portfolio Company</td></tr></table>",
		// hand-edited bundle: trailing comma and a comment
		FactsFile: `[
  // principal of the Acme loan
  {"context_id": "c1", "identifier": "Acme, First Lien Senior Secured Loan",
   "concept": "us-gaap:InvestmentOwnedBalancePrincipalAmount", "value": "3250000", "unit": "iso4217:USD"},
]`,
	})
	writeBundle(t, root, "a-inline", map[string]string{ScheduleFile: inlineDoc})
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("not a bundle"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewDirSource(root)
	refs, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0].ID != "a-inline" || refs[1].ID != "b-fund" {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[1].CIK != "1287750" || refs[1].PeriodEnd != "2023-12-31" {
		t.Errorf("meta not read: %+v", refs[1])
	}

	fund, err := src.Load(context.Background(), refs[1])
	if err != nil {
		t.Fatal(err)
	}
	if len(fund.Facts) != 1 || fund.Facts[0].Value != "3250000" || fund.HTML == "" {
		t.Errorf("fund bundle = %+v", fund)
	}

	inline, err := src.Load(context.Background(), refs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(inline.Facts) != 1 || inline.Facts[0].Identifier != "Acme, First Lien Senior Secured Loan" {
		t.Errorf("inline facts = %+v", inline.Facts)
	}
}

func TestDirSourceNumericValues(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "numeric", map[string]string{
		FactsFile: `[
  {"context_id": "c1", "identifier": "Acme, First Lien Senior Secured Loan",
   "concept": "us-gaap:InvestmentOwnedBalancePrincipalAmount", "value": 3250000, "unit": "iso4217:USD"},
  {"context_id": "c1", "identifier": "Acme, First Lien Senior Secured Loan",
   "concept": "us-gaap:InvestmentInterestRate", "value": 0.1025, "unit": "pure"},
  {"context_id": "c1", "identifier": "Acme, First Lien Senior Secured Loan",
   "concept": "us-gaap:InvestmentOwnedAtFairValue", "value": 12345678901234567890.12}
]`,
	})

	src := NewDirSource(root)
	refs, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f, err := src.Load(context.Background(), refs[0])
	if err != nil {
		t.Fatalf("numeric fact values should load: %v", err)
	}
	want := []string{"3250000", "0.1025", "12345678901234567890.12"}
	if len(f.Facts) != len(want) {
		t.Fatalf("facts = %+v", f.Facts)
	}
	for i, w := range want {
		if f.Facts[i].Value != w {
			t.Errorf("fact %d value = %q, want %q", i, f.Facts[i].Value, w)
		}
	}
}

func TestDirSourceEmptyBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "empty", map[string]string{MetaFile: `{"cik": "1"}`})

	src := NewDirSource(root)
	refs, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f, err := src.Load(context.Background(), refs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !f.Empty() {
		t.Error("bundle without schedule or facts should be empty")
	}
}

func TestDirSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDirSource(t.TempDir()).Load(ctx, FilingRef{ID: "x"}); err == nil {
		t.Error("cancelled context should fail")
	}
}

// =============================================================================
// EDGAR SOURCE
// =============================================================================

func newEDGARServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/CIK0001287750.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if !strings.Contains(r.Header.Get("User-Agent"), "@") {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"cik": "1287750", "name": "Example Capital", "filings": {"recent": {
			"accessionNumber": ["0001287750-24-000003", "0001287750-24-000002", "0001287750-24-000001"],
			"filingDate": ["2024-03-01", "2024-02-15", "2023-11-01"],
			"reportDate": ["2024-02-29", "2023-12-31", "2023-09-30"],
			"form": ["8-K", "10-K", "10-Q"],
			"primaryDocument": ["ex.htm", "fund-10k.htm", "fund-10q.htm"]}}}`)
	})
	mux.HandleFunc("/Archives/edgar/data/1287750/000128775024000002/fund-10k.htm", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, inlineDoc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEDGARSource(t *testing.T) {
	var hits int32
	srv := newEDGARServer(t, &hits)
	cacheDir := t.TempDir()

	src, err := NewEDGARSource(EDGAROptions{
		UserAgent:         "Research Desk research@example.com",
		RequestsPerSecond: 100,
		CIKs:              []string{"1287750"},
		CacheDir:          cacheDir,
		DataURL:           srv.URL,
		ArchivesURL:       srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}

	refs, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	ref := refs[0]
	if ref.FormType != "10-K" || ref.PeriodEnd != "2023-12-31" || ref.CIK != "0001287750" {
		t.Errorf("ref = %+v", ref)
	}

	f, err := src.Load(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Facts) != 1 {
		t.Errorf("facts = %+v", f.Facts)
	}

	before := atomic.LoadInt32(&hits)
	if _, err := src.Load(context.Background(), ref); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Error("second load should come from the cache")
	}
}

func TestEDGARSourceRequiresUserAgent(t *testing.T) {
	if _, err := NewEDGARSource(EDGAROptions{}); err == nil {
		t.Error("missing user agent should be rejected")
	}
}

func TestEDGARSourceHTTPError(t *testing.T) {
	var hits int32
	srv := newEDGARServer(t, &hits)
	src, err := NewEDGARSource(EDGAROptions{
		UserAgent:   "Research Desk research@example.com",
		CIKs:        []string{"999"},
		DataURL:     srv.URL,
		ArchivesURL: srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.List(context.Background()); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want a 404 status error", err)
	}
}

func TestPadCIK(t *testing.T) {
	for in, want := range map[string]string{"1287750": "0001287750", "0001287750": "0001287750", " 42 ": "0000000042"} {
		if got := PadCIK(in); got != want {
			t.Errorf("PadCIK(%q) = %q, want %q", in, got, want)
		}
	}
}
