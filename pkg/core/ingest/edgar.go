package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultDataURL     = "https://data.sec.gov"
	DefaultArchivesURL = "https://www.sec.gov"

	// SEC asks automated clients to stay at or under 10 requests per second.
	DefaultRequestsPerSecond = 8
)

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// SECCompanyInfo is the top-level company submissions response.
type SECCompanyInfo struct {
	CIK     string     `json:"cik"`
	Name    string     `json:"name"`
	Tickers []string   `json:"tickers"`
	Filings SECFilings `json:"filings"`
}

// SECFilings contains the recent filing list.
type SECFilings struct {
	Recent SECRecentFilings `json:"recent"`
}

// SECRecentFilings holds filing attributes as parallel arrays.
type SECRecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // e.g., "0001287750-24-000012"
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"` // period end
	Form            []string `json:"form"`       // "10-K", "10-Q"
	PrimaryDocument []string `json:"primaryDocument"`
}

// =============================================================================
// EDGAR SOURCE
// =============================================================================

// EDGAROptions configures an EDGARSource.
type EDGAROptions struct {
	UserAgent         string // required by SEC: "Name contact@example.com"
	RequestsPerSecond float64
	CIKs              []string
	FormTypes         []string // default 10-K and 10-Q
	PerIssuer         int      // filings per issuer, default 1
	CacheDir          string   // optional document cache
	DataURL           string
	ArchivesURL       string
	HTTPClient        *http.Client
}

// EDGARSource lists and downloads filings from SEC EDGAR. All requests share
// one rate limiter, so a batch run stays inside the SEC fair-access limit.
type EDGARSource struct {
	opts    EDGAROptions
	client  *http.Client
	limiter *rate.Limiter
	cache   *DocumentCache
}

// NewEDGARSource creates a source.
func NewEDGARSource(opts EDGAROptions) (*EDGARSource, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, fmt.Errorf("edgar: a User-Agent with contact details is required")
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if len(opts.FormTypes) == 0 {
		opts.FormTypes = []string{"10-K", "10-Q"}
	}
	if opts.PerIssuer <= 0 {
		opts.PerIssuer = 1
	}
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.ArchivesURL == "" {
		opts.ArchivesURL = DefaultArchivesURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s := &EDGARSource{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
	if opts.CacheDir != "" {
		s.cache = NewDocumentCache(opts.CacheDir)
	}
	return s, nil
}

// List returns the most recent filings of each configured issuer.
func (s *EDGARSource) List(ctx context.Context) ([]FilingRef, error) {
	var refs []FilingRef
	for _, cik := range s.opts.CIKs {
		info, err := s.FetchCompanyInfo(ctx, cik)
		if err != nil {
			return nil, err
		}
		refs = append(refs, s.Filings(info)...)
	}
	return refs, nil
}

// FetchCompanyInfo retrieves an issuer's submissions.
func (s *EDGARSource) FetchCompanyInfo(ctx context.Context, cik string) (*SECCompanyInfo, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", s.opts.DataURL, PadCIK(cik))
	body, err := s.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	var info SECCompanyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse submissions for %s: %w", cik, err)
	}
	if info.CIK == "" {
		info.CIK = cik
	}
	return &info, nil
}

// Filings picks the configured form types from an issuer's recent filings.
func (s *EDGARSource) Filings(info *SECCompanyInfo) []FilingRef {
	recent := info.Filings.Recent
	want := make(map[string]bool, len(s.opts.FormTypes))
	for _, ft := range s.opts.FormTypes {
		want[ft] = true
	}

	cik := strings.TrimLeft(info.CIK, "0")
	var refs []FilingRef
	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.PrimaryDocument) || !want[recent.Form[i]] {
			continue
		}
		ref := FilingRef{
			ID:              cik + "-" + recent.AccessionNumber[i],
			CIK:             PadCIK(cik),
			Issuer:          info.Name,
			AccessionNumber: recent.AccessionNumber[i],
			FormType:        recent.Form[i],
			Location: fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", s.opts.ArchivesURL, cik,
				strings.ReplaceAll(recent.AccessionNumber[i], "-", ""), recent.PrimaryDocument[i]),
		}
		if i < len(recent.ReportDate) {
			ref.PeriodEnd = recent.ReportDate[i]
		}
		refs = append(refs, ref)
		if len(refs) >= s.opts.PerIssuer {
			break
		}
	}
	return refs
}

// Load downloads the filing's primary document and reads its inline facts.
func (s *EDGARSource) Load(ctx context.Context, ref FilingRef) (*Filing, error) {
	f := &Filing{Ref: ref}
	if s.cache != nil {
		if html, ok := s.cache.Get(ref.CIK, ref.AccessionNumber); ok {
			f.HTML = html
		}
	}
	if f.HTML == "" {
		body, err := s.get(ctx, ref.Location, "text/html")
		if err != nil {
			return nil, err
		}
		f.HTML = string(body)
		if s.cache != nil {
			if err := s.cache.Set(ref.CIK, ref.AccessionNumber, f.HTML); err != nil {
				log.Printf("[EDGAR] cache write failed for %s: %v", ref.ID, err)
			}
		}
	}
	fillInlineFacts(f)
	log.Printf("[EDGAR] Loaded %s: %d bytes, %d facts", ref.ID, len(f.HTML), len(f.Facts))
	return f, nil
}

// get performs one rate-limited request.
func (s *EDGARSource) get(ctx context.Context, url, accept string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// PadCIK zero-pads a CIK to 10 digits.
func PadCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}
