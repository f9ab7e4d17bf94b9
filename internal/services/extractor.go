package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Snapshot is the rendered page a tier reads from
type Snapshot struct {
	HTML string
	// Text is the rendered body text. When empty it is derived from HTML.
	Text string
	doc  *goquery.Document
}

// NewSnapshot parses html once for all tiers
func NewSnapshot(markup, text string) (*Snapshot, error) {
	var reader io.Reader = strings.NewReader(markup)
	if markup != "" {
		var err error
		reader, err = charset.NewReader(reader, "text/html")
		if err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Snapshot{HTML: markup, Text: text, doc: doc}, nil
}

// Lines returns the non-empty trimmed lines of the rendered text
func (s *Snapshot) Lines() []string {
	text := s.Text
	if strings.TrimSpace(text) == "" && s.doc != nil {
		text = renderText(s.doc)
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Tier is one extraction strategy. It returns partial with any unset
// fields it could find filled in.
type Tier func(s *Snapshot, partial models.Record) models.Record

type fieldSpec struct {
	name   string
	target bool
	ref    func(r *models.Record) **string
	// each group matches when all of its keywords are in the label
	labels    [][]string
	proximity [][]string
	lines     []string
	exclude   []string
	minLen    int
}

func (f fieldSpec) excluded(label string) bool {
	return containsAny(label, f.exclude)
}

func (f fieldSpec) matches(label string, groups [][]string) bool {
	if f.excluded(label) {
		return false
	}
	for _, group := range groups {
		all := len(group) > 0
		for _, kw := range group {
			if !strings.Contains(label, kw) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

var fieldSpecs = []fieldSpec{
	{
		name:      "legal_name",
		target:    true,
		ref:       func(r *models.Record) **string { return &r.LegalName },
		labels:    [][]string{{"legal name of business"}, {"legal", "name", "business"}},
		proximity: [][]string{{"legal", "name"}},
		lines:     []string{"legal name"},
	},
	{
		name:      "trade_name",
		target:    true,
		ref:       func(r *models.Record) **string { return &r.TradeName },
		labels:    [][]string{{"trade name"}},
		proximity: [][]string{{"trade", "name"}},
		lines:     []string{"trade name"},
	},
	{
		name:      "address",
		target:    true,
		ref:       func(r *models.Record) **string { return &r.Address },
		labels:    [][]string{{"address"}, {"principal place"}, {"place of business"}},
		proximity: [][]string{{"address"}, {"principal place"}},
		lines:     []string{"address", "principal place of business"},
		minLen:    11,
	},
	{
		name:      "status",
		ref:       func(r *models.Record) **string { return &r.Status },
		labels:    [][]string{{"status"}},
		proximity: [][]string{{"status"}},
		lines:     []string{"status"},
		exclude:   []string{"aadhaar", "kyc", "invoice"},
	},
	{
		name:      "effective_date",
		ref:       func(r *models.Record) **string { return &r.EffectiveDate },
		labels:    [][]string{{"effective date"}, {"date of registration"}},
		proximity: [][]string{{"effective date"}},
		lines:     []string{"effective date", "date of registration"},
		minLen:    6,
	},
	{
		name:   "constitution",
		ref:    func(r *models.Record) **string { return &r.Constitution },
		labels: [][]string{{"constitution of business"}},
	},
	{
		name:   "taxpayer_type",
		ref:    func(r *models.Record) **string { return &r.TaxpayerType },
		labels: [][]string{{"taxpayer type"}},
	},
}

var (
	contentRegionSelector = ".content-pane, .mypage, .tabpane"
	mainContentSelector   = "main, .content, .main-content, #content, .result, .search-result"
	labelElementSelector  = "div, span, p, td, label, strong, li"
	tableDomainKeywords   = []string{"legal", "trade", "address", "status", "effective date"}
	tableExcludeKeywords  = []string{"menu", "navigation", "header", "footer"}
)

// TableTier scans label/value rows of tables in the content region
func TableTier(s *Snapshot, partial models.Record) models.Record {
	rec := partial
	if s.doc == nil {
		return rec
	}

	region := s.doc.Find(contentRegionSelector)
	if region.Length() == 0 {
		region = s.doc.Find("body")
	}

	region.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := strings.ToLower(table.Text())
		if !containsAny(text, tableDomainKeywords) || containsAny(text, tableExcludeKeywords) {
			return
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Children().Filter("td, th")
			if cells.Length() < 2 {
				return
			}
			label := strings.ToLower(collapseSpace(cells.Eq(0).Text()))
			value := collapseSpace(cells.Eq(1).Text())

			for _, f := range fieldSpecs {
				if !f.matches(label, f.labels) {
					continue
				}
				if field := f.ref(&rec); *field == nil && IsValidCandidate(value, f.minLen) {
					*field = models.StringPtr(value)
				}
				break
			}
		})
	})
	return rec
}

// LabelTier finds label elements and reads the value next to them
func LabelTier(s *Snapshot, partial models.Record) models.Record {
	rec := partial
	if s.doc == nil {
		return rec
	}

	scope := s.doc.Find(mainContentSelector)
	if scope.Length() == 0 {
		scope = s.doc.Find("body")
	}

	scope.Find(labelElementSelector).Each(func(_ int, el *goquery.Selection) {
		labelText := collapseSpace(el.Text())
		label := strings.ToLower(labelText)
		if label == "" {
			return
		}

		for _, f := range fieldSpecs {
			if len(f.proximity) == 0 || *f.ref(&rec) != nil || !f.matches(label, f.proximity) {
				continue
			}
			// Only the innermost element carrying the label counts
			if childMatches(el, f) {
				continue
			}

			value := ""
			if next := el.Next(); next.Length() > 0 {
				value = collapseSpace(next.Text())
			} else if parent := el.Parent(); parent.Length() > 0 {
				value = strings.Replace(collapseSpace(parent.Text()), labelText, "", 1)
			}
			value = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(value), ":-"))

			if IsValidCandidate(value, f.minLen) {
				*f.ref(&rec) = models.StringPtr(value)
			}
		}
	})
	return rec
}

func childMatches(el *goquery.Selection, f fieldSpec) bool {
	found := false
	el.Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		if f.matches(strings.ToLower(collapseSpace(child.Text())), f.proximity) {
			found = true
			return false
		}
		return true
	})
	return found
}

// LineTier pairs a keyword line with the line after it. No value filter.
func LineTier(s *Snapshot, partial models.Record) models.Record {
	rec := partial
	lines := s.Lines()

	for i := 0; i+1 < len(lines); i++ {
		lower := strings.ToLower(lines[i])
		for _, f := range fieldSpecs {
			if len(f.lines) == 0 || *f.ref(&rec) != nil {
				continue
			}
			if containsAny(lower, f.lines) && !f.excluded(lower) {
				*f.ref(&rec) = models.StringPtr(lines[i+1])
			}
		}
	}
	return rec
}

// DefaultTiers is the extraction order
var DefaultTiers = []Tier{TableTier, LabelTier, LineTier}

// FoldTiers runs tiers in order. A field set by an earlier tier is never
// replaced, whatever a later tier returns.
func FoldTiers(s *Snapshot, seed models.Record, tiers ...Tier) models.Record {
	rec := seed
	for _, tier := range tiers {
		if allFieldsSet(&rec) {
			break
		}
		rec = MergeUnset(rec, tier(s, rec))
	}
	return rec
}

// MergeUnset copies into dst every field of src that dst lacks
func MergeUnset(dst, src models.Record) models.Record {
	for _, f := range fieldSpecs {
		if d := f.ref(&dst); *d == nil {
			*d = *f.ref(&src)
		}
	}
	fill := func(d **string, s *string) {
		if *d == nil {
			*d = s
		}
	}
	fill(&dst.RegistrationDate, src.RegistrationDate)
	fill(&dst.Jurisdiction, src.Jurisdiction)
	fill(&dst.CenterJurisdiction, src.CenterJurisdiction)
	fill(&dst.CancellationDate, src.CancellationDate)
	fill(&dst.CompositionRate, src.CompositionRate)
	fill(&dst.AadhaarVerified, src.AadhaarVerified)
	fill(&dst.AadhaarVerifiedDate, src.AadhaarVerifiedDate)
	fill(&dst.EKYCVerified, src.EKYCVerified)
	fill(&dst.EInvoiceStatus, src.EInvoiceStatus)
	fill(&dst.FieldVisitConducted, src.FieldVisitConducted)
	fill(&dst.NatureOfCoreBusiness, src.NatureOfCoreBusiness)
	if len(dst.NatureOfBusiness) == 0 {
		dst.NatureOfBusiness = src.NatureOfBusiness
	}
	if len(dst.GoodsServices) == 0 {
		dst.GoodsServices = src.GoodsServices
	}
	return dst
}

func allFieldsSet(r *models.Record) bool {
	for _, f := range fieldSpecs {
		if *f.ref(r) == nil {
			return false
		}
	}
	return true
}

// MarkupDumper receives the page when extraction finds nothing
type MarkupDumper interface {
	DumpMarkup(markup string) (string, error)
}

// ExtractionEngine turns a rendered page into a record
type ExtractionEngine struct {
	tiers  []Tier
	dumper MarkupDumper
	logger *logrus.Logger
}

// NewExtractionEngine creates an engine with the default tiers
func NewExtractionEngine(dumper MarkupDumper, logger *logrus.Logger) *ExtractionEngine {
	return &ExtractionEngine{tiers: DefaultTiers, dumper: dumper, logger: logger}
}

// Extract runs the tiers. ok is false when legal name, trade name and
// address are all missing; the page markup is dumped once in that case.
func (e *ExtractionEngine) Extract(s *Snapshot, gstin string) (rec models.Record, ok bool) {
	rec = FoldTiers(s, models.Record{GSTIN: gstin}, e.tiers...)
	rec.Source = "extraction"

	if rec.HasTargets() {
		e.logger.WithFields(logrus.Fields{
			"gstin":      gstin,
			"legal_name": models.Deref(rec.LegalName, ""),
		}).Debug("Extracted record from page")
		return rec, true
	}

	e.logger.WithField("gstin", gstin).Warn("No fields extracted from page")
	if e.dumper != nil {
		if path, err := e.dumper.DumpMarkup(s.HTML); err != nil {
			e.logger.WithError(err).Warn("Failed to dump page markup")
		} else {
			e.logger.WithField("path", path).Info("Page markup saved for inspection")
		}
	}
	return rec, false
}

// SnapshotPage reads markup and rendered text from the live page
func SnapshotPage(ctx context.Context, page Page) (*Snapshot, error) {
	markup, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page markup: %w", err)
	}
	text, err := page.BodyText(ctx)
	if err != nil {
		text = ""
	}
	return NewSnapshot(markup, text)
}

var blockElements = map[string]bool{
	"address": true, "article": true, "br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "label": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

var skippedElements = map[string]bool{"script": true, "style": true, "noscript": true, "head": true, "template": true}

// renderText approximates innerText: block elements break lines
func renderText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				b.WriteByte('\n')
				defer b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
