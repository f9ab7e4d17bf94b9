package services

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultTableHTML = `<html><body>
<div class="content-pane">
  <table>
    <tr><td>Menu</td><td>Home</td></tr>
    <tr><td>Legal Name</td><td>DECOY ENTERPRISES</td></tr>
  </table>
  <table class="table">
    <tr><td>Legal Name of Business</td><td>ACME TRADING PRIVATE LIMITED</td></tr>
    <tr><td>Trade Name</td><td>ACME TRADERS</td></tr>
    <tr><td>Principal Place of Business</td><td>12, MG Road, Pune, Maharashtra, 411001</td></tr>
    <tr><td>Aadhaar Authentication Status</td><td>Authenticated with Aadhaar</td></tr>
    <tr><td>GSTIN / UIN Status</td><td>Active</td></tr>
    <tr><td>Effective Date of registration</td><td>01/07/2017</td></tr>
    <tr><td>Constitution of Business</td><td>Private Limited Company</td></tr>
    <tr><td>Taxpayer Type</td><td>Regular</td></tr>
  </table>
</div>
</body></html>`

func mustSnapshot(t *testing.T, markup, text string) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(markup, text)
	require.NoError(t, err)
	return s
}

type countingDumper struct {
	calls  int
	markup string
}

func (d *countingDumper) DumpMarkup(markup string) (string, error) {
	d.calls++
	d.markup = markup
	return "debug-page.html", nil
}

func TestTableTier(t *testing.T) {
	rec := TableTier(mustSnapshot(t, resultTableHTML, ""), models.Record{})

	assert.Equal(t, "ACME TRADING PRIVATE LIMITED", models.Deref(rec.LegalName, ""))
	assert.Equal(t, "ACME TRADERS", models.Deref(rec.TradeName, ""))
	assert.Equal(t, "12, MG Road, Pune, Maharashtra, 411001", models.Deref(rec.Address, ""))
	assert.Equal(t, "Active", models.Deref(rec.Status, ""))
	assert.Equal(t, "Private Limited Company", models.Deref(rec.Constitution, ""))
	assert.Equal(t, "Regular", models.Deref(rec.TaxpayerType, ""))
	// digits only never passes the value filter
	assert.Nil(t, rec.EffectiveDate)
}

func TestTableTierKeepsExistingValues(t *testing.T) {
	seed := models.Record{LegalName: models.StringPtr("FROM PAYLOAD")}
	rec := TableTier(mustSnapshot(t, resultTableHTML, ""), seed)
	assert.Equal(t, "FROM PAYLOAD", *rec.LegalName)
}

func TestLabelTier(t *testing.T) {
	markup := `<html><body><main>
<div class="row"><span>Legal Name of Business</span><span>ACME TRADING PRIVATE LIMITED</span></div>
<div class="row"><strong>Trade Name:</strong> ACME TRADERS</div>
<div class="row"><span>Status</span><span>Search</span></div>
</main></body></html>`

	rec := LabelTier(mustSnapshot(t, markup, ""), models.Record{})

	assert.Equal(t, "ACME TRADING PRIVATE LIMITED", models.Deref(rec.LegalName, ""))
	assert.Equal(t, "ACME TRADERS", models.Deref(rec.TradeName, ""))
	assert.Nil(t, rec.Status, "boilerplate value must be rejected")
}

func TestLineTier(t *testing.T) {
	text := "Legal Name\nACME TRADING PRIVATE LIMITED\n\n  Effective Date of registration \n01/07/2017\nStatus"
	rec := LineTier(mustSnapshot(t, "<html></html>", text), models.Record{})

	assert.Equal(t, "ACME TRADING PRIVATE LIMITED", models.Deref(rec.LegalName, ""))
	assert.Equal(t, "01/07/2017", models.Deref(rec.EffectiveDate, ""))
	// a keyword on the last line has no value after it
	assert.Nil(t, rec.Status)
}

func TestLineTierSkipsExcludedStatusLabels(t *testing.T) {
	text := "Aadhaar Authentication Status\nAuthenticated\ne-KYC Status\nNo\nGSTIN / UIN Status\nActive"
	rec := LineTier(mustSnapshot(t, "<html></html>", text), models.Record{})

	assert.Equal(t, "Active", models.Deref(rec.Status, ""))
}

func TestLinesFallBackToMarkup(t *testing.T) {
	markup := `<html><head><title>GST</title></head><body>
<script>var status = "hidden";</script>
<div>Trade Name</div><div>ACME   TRADERS</div>
</body></html>`
	s := mustSnapshot(t, markup, "  ")

	assert.Equal(t, []string{"Trade Name", "ACME TRADERS"}, s.Lines())
	assert.Equal(t, "ACME TRADERS", models.Deref(LineTier(s, models.Record{}).TradeName, ""))
}

func TestFoldTiersFirstWriterWins(t *testing.T) {
	first := func(s *Snapshot, partial models.Record) models.Record {
		partial.LegalName = models.StringPtr("FIRST")
		return partial
	}
	second := func(s *Snapshot, partial models.Record) models.Record {
		// a misbehaving tier overwriting an earlier value
		partial.LegalName = models.StringPtr("SECOND")
		partial.TradeName = models.StringPtr("SECOND TRADERS")
		return partial
	}

	rec := FoldTiers(mustSnapshot(t, "", ""), models.Record{GSTIN: "27ABCDE1234F1Z5"}, first, second)

	want := models.Record{
		GSTIN:     "27ABCDE1234F1Z5",
		LegalName: models.StringPtr("FIRST"),
		TradeName: models.StringPtr("SECOND TRADERS"),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("FoldTiers() mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldTiersStopsWhenComplete(t *testing.T) {
	seed := models.Record{}
	for _, f := range fieldSpecs {
		*f.ref(&seed) = models.StringPtr("value " + f.name)
	}
	calls := 0
	tier := func(s *Snapshot, partial models.Record) models.Record {
		calls++
		return partial
	}

	FoldTiers(mustSnapshot(t, "", ""), seed, tier)
	assert.Zero(t, calls)
}

func TestMergeUnset(t *testing.T) {
	dst := models.Record{
		GSTIN:     "27ABCDE1234F1Z5",
		LegalName: models.StringPtr("PAYLOAD NAME"),
		Source:    "payload",
	}
	src := models.Record{
		LegalName:        models.StringPtr("PAGE NAME"),
		Address:          models.StringPtr("12, MG Road, Pune"),
		Jurisdiction:     models.StringPtr("Pune Ward 1"),
		NatureOfBusiness: []string{"Wholesale Business"},
		Source:           "extraction",
	}

	got := MergeUnset(dst, src)

	assert.Equal(t, "PAYLOAD NAME", *got.LegalName)
	assert.Equal(t, "12, MG Road, Pune", *got.Address)
	assert.Equal(t, "Pune Ward 1", *got.Jurisdiction)
	assert.Equal(t, []string{"Wholesale Business"}, got.NatureOfBusiness)
	assert.Equal(t, "payload", got.Source)
}

func TestExtractionEngineDefaultTiers(t *testing.T) {
	dumper := &countingDumper{}
	engine := NewExtractionEngine(dumper, testLogger())

	rec, ok := engine.Extract(mustSnapshot(t, resultTableHTML, ""), "27ABCDE1234F1Z5")

	require.True(t, ok)
	assert.Equal(t, "extraction", rec.Source)
	assert.Equal(t, "27ABCDE1234F1Z5", rec.GSTIN)
	assert.Equal(t, "ACME TRADING PRIVATE LIMITED", *rec.LegalName)
	// the line tier picks up the date the table tier rejected
	assert.Equal(t, "01/07/2017", models.Deref(rec.EffectiveDate, ""))
	assert.Zero(t, dumper.calls)
}

func TestExtractionEngineDumpsOnceWhenEmpty(t *testing.T) {
	dumper := &countingDumper{}
	engine := NewExtractionEngine(dumper, testLogger())
	markup := `<html><body><p>Something went wrong</p></body></html>`

	rec, ok := engine.Extract(mustSnapshot(t, markup, ""), "27ABCDE1234F1Z5")

	assert.False(t, ok)
	assert.False(t, rec.HasTargets())
	assert.Equal(t, 1, dumper.calls)
	assert.Equal(t, markup, dumper.markup)
}

func TestSnapshotPage(t *testing.T) {
	page := newFakePage()
	page.setPage(resultTableHTML, "Legal Name\nACME")

	s, err := SnapshotPage(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, resultTableHTML, s.HTML)
	assert.Equal(t, []string{"Legal Name", "ACME"}, s.Lines())

	page.closed.Store(true)
	_, err = SnapshotPage(context.Background(), page)
	assert.ErrorIs(t, err, ErrPageClosed)
}
