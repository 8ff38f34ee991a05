package matching

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
)

func breakdown(open, ready, approval, missing int) catalog.AccessBreakdown {
	return catalog.AccessBreakdown{AlreadyOpen: open, ReadyToGrant: ready, NeedsApproval: approval, MissingLocation: missing}
}

func aiIntent() Intent {
	var in Intent
	in.BeyondPrimaryUse.AIResearch = true
	return in
}

func fixtureSelection(t *testing.T, cat *catalog.Memory) []catalog.Dataset {
	t.Helper()
	ds := cat.Resolve(cat.DefaultSelection())
	if len(ds) != 5 {
		t.Fatalf("expected 5 default datasets, got %d", len(ds))
	}
	return ds
}

func TestMostlyOpenDatasetIsImmediateForAnyIntent(t *testing.T) {
	ds := catalog.Dataset{ID: "x", AccessBreakdown: breakdown(85, 10, 5, 0)}
	for _, in := range []Intent{{}, aiIntent(), allFlags()} {
		a := assess(ds, in)
		if a.category != CategoryImmediate || a.estimate.Weeks != 0 {
			t.Fatalf("intent %+v: got %s/%d", in, a.category, a.estimate.Weeks)
		}
	}
}

func TestSingleConflictBelowBlockingCeilingIsExtended(t *testing.T) {
	ds := catalog.Dataset{
		ID:              "x",
		AccessBreakdown: breakdown(0, 60, 30, 10),
		AOT:             &catalog.AOTMetadata{RestrictML: true},
	}
	conflicts := DetectConflicts(ds, aiIntent())
	if len(conflicts) != 1 || conflicts[0].Field != FieldAIResearch || conflicts[0].AddedWeeks != 6 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	est := EstimateTimeline(ds, conflicts)
	if est.BaseWeeks != 1 || est.Basis != BasisReadyToGrant || est.Weeks != 7 {
		t.Fatalf("unexpected estimate: %+v", est)
	}
	if HasBlockingConflicts(conflicts, est.Weeks) {
		t.Fatal("7 weeks must not be blocking")
	}
	if got := Classify(est.Weeks, false); got != CategoryExtended {
		t.Fatalf("expected extended, got %s", got)
	}
}

func TestMissingLocationFloorsBaseWeeks(t *testing.T) {
	cases := []struct {
		name string
		b    catalog.AccessBreakdown
		want int
	}{
		{"floor over new provisioning", breakdown(10, 25, 25, 40), 6},
		{"floor over needs approval", breakdown(5, 15, 50, 30), 6},
		{"just below threshold", breakdown(10, 20, 41, 29), 2},
		{"nothing located", breakdown(0, 0, 0, 100), 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := catalog.Dataset{ID: "x", AccessBreakdown: tc.b}
			if got := EstimateWeeks(ds, nil); got != tc.want {
				t.Fatalf("expected %d weeks, got %d", tc.want, got)
			}
		})
	}

	ds := catalog.Dataset{ID: "x", AccessBreakdown: breakdown(10, 20, 35, 35)}
	if a := assess(ds, Intent{}); a.category != CategoryExtended || a.estimate.Basis != BasisDataDiscovery {
		t.Fatalf("unexpected assessment: %+v", a)
	}
}

func TestEmptySelectionYieldsNilResult(t *testing.T) {
	if res := PerformSmartMatching(nil, allFlags(), catalog.NewDefault(nil)); res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
	if res := PerformSmartMatching([]catalog.Dataset{}, Intent{}, nil); res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
}

func TestTwoConflictsPastCeilingAreBlocking(t *testing.T) {
	ds := catalog.Dataset{
		ID:              "x",
		AccessBreakdown: breakdown(20, 20, 40, 20),
		AOT:             &catalog.AOTMetadata{RestrictML: true, RestrictPublication: true},
	}
	in := aiIntent()
	in.Publication.ExternalPublication = true
	a := assess(ds, in)
	if a.estimate.BaseWeeks != 2 || a.estimate.Weeks != 12 {
		t.Fatalf("unexpected estimate: %+v", a.estimate)
	}
	if len(a.conflicts) != 2 || a.conflicts[0].Field != FieldAIResearch || a.conflicts[1].Field != FieldExternalPublication {
		t.Fatalf("unexpected conflict order: %+v", a.conflicts)
	}
	if a.category != CategoryConflict {
		t.Fatalf("expected conflict, got %s", a.category)
	}
}

func TestClassifyOrder(t *testing.T) {
	cases := []struct {
		weeks    int
		blocking bool
		want     Category
	}{
		{0, true, CategoryConflict},
		{0, false, CategoryImmediate},
		{1, false, CategorySoon},
		{2, false, CategorySoon},
		{3, false, CategoryExtended},
		{40, false, CategoryExtended},
	}
	for _, tc := range cases {
		if got := Classify(tc.weeks, tc.blocking); got != tc.want {
			t.Fatalf("Classify(%d, %v) = %s, want %s", tc.weeks, tc.blocking, got, tc.want)
		}
	}
}

func TestNilRestrictionMetadataNeverConflicts(t *testing.T) {
	ds := catalog.Dataset{ID: "x", AccessBreakdown: breakdown(0, 0, 100, 0)}
	if got := DetectConflicts(ds, allFlags()); len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
}

func TestConflictRestrictionTextIncludesReason(t *testing.T) {
	ds := catalog.Dataset{ID: "x", AOT: &catalog.AOTMetadata{RestrictSoftwareDev: true, Reason: " vendor terms "}}
	in := Intent{}
	in.BeyondPrimaryUse.SoftwareDevelopment = true
	got := DetectConflicts(ds, in)
	if len(got) != 1 || got[0].DatasetRestriction != "Dataset restricts software development use: vendor terms" {
		t.Fatalf("unexpected conflicts: %+v", got)
	}
}

func TestRestrictionFlagsNeverDecreaseWeeks(t *testing.T) {
	breakdowns := []catalog.AccessBreakdown{
		breakdown(85, 10, 5, 0), breakdown(0, 60, 30, 10), breakdown(10, 10, 20, 60), breakdown(20, 20, 40, 20),
	}
	for _, b := range breakdowns {
		for restrict := 0; restrict < 8; restrict++ {
			for flags := 0; flags < 8; flags++ {
				in := intentFromBits(flags)
				base := catalog.Dataset{ID: "x", AccessBreakdown: b, AOT: aotFromBits(restrict)}
				before := EstimateWeeks(base, DetectConflicts(base, in))
				for extra := 0; extra < 3; extra++ {
					more := base
					more.AOT = aotFromBits(restrict | 1<<extra)
					after := EstimateWeeks(more, DetectConflicts(more, in))
					if after < before {
						t.Fatalf("breakdown %+v restrict %03b +bit %d intent %03b: %d < %d", b, restrict, extra, flags, after, before)
					}
				}
			}
		}
	}
}

func TestDefaultSelectionWithEmptyIntent(t *testing.T) {
	cat := catalog.NewDefault(nil)
	res := PerformSmartMatching(fixtureSelection(t, cat), Intent{}, cat)

	want := Summary{TotalDatasets: 5, ImmediateCount: 1, SoonCount: 2, ExtendedCount: 2, EstimatedFullAccessWeeks: 6, EstimatedFullAccessDays: 42}
	if res.Summary != want {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if ids := matchIDs(res.Soon); !reflect.DeepEqual(ids, []string{"ds-002", "ds-007"}) {
		t.Fatalf("soon bucket lost input order: %v", ids)
	}
	if ids := matchIDs(res.Extended); !reflect.DeepEqual(ids, []string{"ds-003", "ds-004"}) {
		t.Fatalf("unexpected extended bucket: %v", ids)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", res.Warnings)
	}

	m, _ := res.Find("ds-001")
	if m.MatchingCollection == nil || m.MatchingCollection.ID != "col-001" {
		t.Fatalf("expected col-001 for ds-001, got %+v", m.MatchingCollection)
	}
	if len(m.SimilarDatasets) != 0 {
		t.Fatal("immediate datasets must not get suggestions")
	}

	ovarian, _ := res.Find("ds-003")
	if got := similarIDs(ovarian.SimilarDatasets); !reflect.DeepEqual(got, []string{"ds-012", "ds-008"}) {
		t.Fatalf("unexpected ds-003 suggestions: %v", got)
	}
	if s := ovarian.SimilarDatasets[0]; s.SimilarityScore != 99 || s.Category != CategoryImmediate || s.EstimatedWeeks != 0 {
		t.Fatalf("unexpected top suggestion: %+v", s)
	}
	if s := ovarian.SimilarDatasets[1]; s.SimilarityScore != 57 || s.Category != CategorySoon {
		t.Fatalf("unexpected second suggestion: %+v", s)
	}

	heart, _ := res.Find("ds-004")
	if got := similarIDs(heart.SimilarDatasets); !reflect.DeepEqual(got, []string{"ds-005", "ds-011"}) {
		t.Fatalf("unexpected ds-004 suggestions: %v", got)
	}
}

func TestDefaultSelectionWithRestrictedIntent(t *testing.T) {
	cat := catalog.NewDefault(nil)
	in := aiIntent()
	in.Publication.ExternalPublication = true
	res := PerformSmartMatching(fixtureSelection(t, cat), in, cat)

	if ids := matchIDs(res.Conflicts); !reflect.DeepEqual(ids, []string{"ds-003"}) {
		t.Fatalf("unexpected conflict bucket: %v", ids)
	}
	if m, _ := res.Find("ds-003"); m.EstimatedWeeks != 16 || m.EstimatedDays != 112 {
		t.Fatalf("unexpected ds-003 estimate: %d weeks %d days", m.EstimatedWeeks, m.EstimatedDays)
	}
	breast, _ := res.Find("ds-002")
	if breast.Category != CategoryExtended || breast.EstimatedWeeks != 7 {
		t.Fatalf("unexpected ds-002: %s/%d", breast.Category, breast.EstimatedWeeks)
	}
	if got := similarIDs(breast.SimilarDatasets); !reflect.DeepEqual(got, []string{"ds-012", "ds-008"}) {
		t.Fatalf("unexpected ds-002 suggestions: %v", got)
	}

	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", res.Warnings)
	}
	ai := res.Warnings[0]
	if ai.Field != FieldAIResearch || ai.AddedWeeks != 6 || !reflect.DeepEqual(ai.AffectedDatasetIDs, []string{"ds-002", "ds-003"}) {
		t.Fatalf("unexpected AI warning: %+v", ai)
	}
	if !reflect.DeepEqual(ai.AffectedDatasetCodes, []string{"DCM-ONC-002", "DCM-ONC-003"}) {
		t.Fatalf("unexpected AI warning codes: %v", ai.AffectedDatasetCodes)
	}
	pub := res.Warnings[1]
	if pub.Field != FieldExternalPublication || pub.AddedWeeks != 4 || !reflect.DeepEqual(pub.AffectedDatasetIDs, []string{"ds-003"}) {
		t.Fatalf("unexpected publication warning: %+v", pub)
	}
	if res.Summary.EstimatedFullAccessWeeks != 16 {
		t.Fatalf("expected 16 full-access weeks, got %d", res.Summary.EstimatedFullAccessWeeks)
	}
}

func TestSuggestionsAreStrictlyFasterAndBounded(t *testing.T) {
	cat := catalog.NewDefault(nil)
	all := cat.All()
	for flags := 0; flags < 8; flags++ {
		in := intentFromBits(flags)
		for _, target := range all {
			res := PerformSmartMatching([]catalog.Dataset{target}, in, cat)
			m := res.All()[0]
			if len(m.SimilarDatasets) > MaxSimilarResults {
				t.Fatalf("%s: %d suggestions", target.ID, len(m.SimilarDatasets))
			}
			for _, s := range m.SimilarDatasets {
				if s.EstimatedWeeks >= m.EstimatedWeeks {
					t.Fatalf("%s suggested %s at %d weeks vs %d", target.ID, s.Dataset.ID, s.EstimatedWeeks, m.EstimatedWeeks)
				}
				if s.Dataset.ID == target.ID {
					t.Fatalf("%s suggested itself", target.ID)
				}
				if s.SimilarityScore < MinSimilarityScore || s.SimilarityScore > 100 {
					t.Fatalf("score out of range: %d", s.SimilarityScore)
				}
			}
		}
	}
}

func TestFindSimilarExcludesSelection(t *testing.T) {
	cat := catalog.NewDefault(nil)
	target, _ := cat.Get("ds-003")
	got := FindSimilar(target, 6, Intent{}, cat, map[string]struct{}{"ds-012": {}})
	if ids := similarIDs(got); !reflect.DeepEqual(ids, []string{"ds-001", "ds-002"}) {
		t.Fatalf("unexpected suggestions: %v", ids)
	}
	if FindSimilar(target, 6, Intent{}, nil, nil) != nil {
		t.Fatal("expected nil without a catalog")
	}
}

func TestCategoryBonusOutranksRawSimilarity(t *testing.T) {
	target := catalog.Dataset{
		ID: "target", TherapeuticArea: []string{"Oncology"}, Phase: "Phase II", PatientCount: 100,
		AccessBreakdown: breakdown(0, 0, 10, 90),
		Categories:      []string{"clinical"},
	}
	closeButSlower := catalog.Dataset{
		ID: "soon-100", TherapeuticArea: []string{"Oncology"}, Phase: "Phase II", PatientCount: 100,
		AccessBreakdown: breakdown(0, 100, 0, 0),
		Categories:      []string{"clinical"},
	}
	looserButOpen := catalog.Dataset{
		ID: "immediate-60", TherapeuticArea: []string{"Oncology"}, Phase: "Phase II",
		AccessBreakdown: breakdown(100, 0, 0, 0),
		Categories:      []string{"imaging"},
	}
	cat := catalog.NewMemory(catalog.Snapshot{Datasets: []catalog.Dataset{target, closeButSlower, looserButOpen}}, nil)

	got := FindSimilar(target, EstimateWeeks(target, nil), Intent{}, cat, nil)
	if len(got) != 2 {
		t.Fatalf("expected both candidates, got %+v", got)
	}
	if got[0].Dataset.ID != "immediate-60" || got[0].SimilarityScore != 60 || got[0].Category != CategoryImmediate {
		t.Fatalf("immediate candidate should rank first, got %+v", got[0])
	}
	if got[1].Dataset.ID != "soon-100" || got[1].SimilarityScore != 100 || got[1].Category != CategorySoon {
		t.Fatalf("unexpected second candidate: %+v", got[1])
	}
}

func TestMatchListsEncodeAsEmptyArrays(t *testing.T) {
	cat := catalog.NewDefault(nil)
	res := PerformSmartMatching(cat.Resolve([]string{"ds-001"}), Intent{}, cat)
	blob, err := json.Marshal(res.Immediate[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"intent_conflicts":[]`, `"similar_datasets":[]`} {
		if !strings.Contains(string(blob), want) {
			t.Fatalf("missing %s in %s", want, blob)
		}
	}

	projected := res.Exclude(map[string]struct{}{"ds-001": {}})
	for _, r := range []*Result{res, projected} {
		blob, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal result: %v", err)
		}
		for _, want := range []string{`"conflicts":[]`, `"intent_warnings":[]`, `"soon":[]`} {
			if !strings.Contains(string(blob), want) {
				t.Fatalf("missing %s in %s", want, blob)
			}
		}
	}
}

func TestWarningsMatchConflictsAndIntent(t *testing.T) {
	cat := catalog.NewDefault(nil)
	all := cat.All()
	for flags := 0; flags < 8; flags++ {
		in := intentFromBits(flags)
		res := PerformSmartMatching(all, in, cat)
		matches := res.All()
		warned := map[ConflictField]IntentWarning{}
		for _, w := range res.Warnings {
			warned[w.Field] = w
		}
		for _, f := range conflictFields {
			var affected []string
			for _, m := range matches {
				if hasConflict(m, f) {
					affected = append(affected, m.Dataset.ID)
				}
			}
			w, ok := warned[f]
			want := len(affected) > 0 && f.Enabled(in)
			if ok != want {
				t.Fatalf("intent %03b field %s: warning present=%v want %v", flags, f, ok, want)
			}
			if ok && len(w.AffectedDatasetIDs) != len(affected) {
				t.Fatalf("field %s: %d affected, warning lists %d", f, len(affected), len(w.AffectedDatasetIDs))
			}
		}
	}
}

func TestPerformSmartMatchingIsIdempotent(t *testing.T) {
	cat := catalog.NewDefault(nil)
	in := allFlags()
	a := PerformSmartMatching(cat.All(), in, cat)
	b := PerformSmartMatching(cat.All(), in, cat)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical results for identical input")
	}
}

func TestExcludeFiltersBucketsAndWarnings(t *testing.T) {
	cat := catalog.NewDefault(nil)
	in := aiIntent()
	in.Publication.ExternalPublication = true
	full := PerformSmartMatching(fixtureSelection(t, cat), in, cat)

	got := full.Exclude(map[string]struct{}{"ds-003": {}})
	if len(got.Conflicts) != 0 || got.Summary.TotalDatasets != 4 || got.Summary.ConflictCount != 0 {
		t.Fatalf("unexpected projection: %+v", got.Summary)
	}
	if got.Summary.EstimatedFullAccessWeeks != 7 {
		t.Fatalf("expected 7 weeks after removal, got %d", got.Summary.EstimatedFullAccessWeeks)
	}
	if len(got.Warnings) != 1 || !reflect.DeepEqual(got.Warnings[0].AffectedDatasetIDs, []string{"ds-002"}) {
		t.Fatalf("unexpected warnings: %+v", got.Warnings)
	}
	before, _ := full.Find("ds-002")
	after, _ := got.Find("ds-002")
	if !reflect.DeepEqual(before, after) {
		t.Fatal("retained matches must keep the full-pass assessment")
	}
	if len(full.Conflicts) != 1 {
		t.Fatal("Exclude must not modify the receiver")
	}
	if full.Exclude(nil) != full {
		t.Fatal("empty exclusion should return the receiver")
	}
	var nilResult *Result
	if nilResult.Exclude(map[string]struct{}{"x": {}}) != nil {
		t.Fatal("expected nil projection of nil result")
	}
}

type countingObserver struct {
	mu     sync.Mutex
	calls  int
	cached int
}

func (o *countingObserver) ObserveMatch(_ time.Duration, _ *Result, cached bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if cached {
		o.cached++
	}
}

func TestMatcherMemoizesOnOrderedIDsAndIntent(t *testing.T) {
	cat := catalog.NewDefault(nil)
	obs := &countingObserver{}
	m, err := NewMatcher(Config{Catalog: cat, CacheSize: 8, Observer: obs})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	ds := fixtureSelection(t, cat)
	ctx := context.Background()

	first := m.Match(ctx, ds, Intent{})
	second := m.Match(ctx, ds, Intent{})
	if first != second {
		t.Fatal("expected cached result pointer")
	}
	if third := m.Match(ctx, ds, aiIntent()); third == first {
		t.Fatal("intent change must miss the cache")
	}
	reversed := []catalog.Dataset{ds[4], ds[3], ds[2], ds[1], ds[0]}
	if fourth := m.Match(ctx, reversed, Intent{}); fourth == first {
		t.Fatal("reordered ids must miss the cache")
	}
	if obs.calls != 4 || obs.cached != 1 {
		t.Fatalf("observer saw %d calls, %d cached", obs.calls, obs.cached)
	}
	if !reflect.DeepEqual(first, PerformSmartMatching(ds, Intent{}, cat)) {
		t.Fatal("memoized result must equal a fresh match")
	}
}

func TestMatcherWithoutCache(t *testing.T) {
	cat := catalog.NewDefault(nil)
	m, err := NewMatcher(Config{Catalog: cat})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	ds := fixtureSelection(t, cat)
	a := m.Match(context.Background(), ds, Intent{})
	b := m.Match(context.Background(), ds, Intent{})
	if a == b || !reflect.DeepEqual(a, b) {
		t.Fatal("expected equal but distinct results without a cache")
	}
	if m.Match(context.Background(), nil, Intent{}) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func FuzzClassificationIsTotal(f *testing.F) {
	f.Add(85, 10, 5, 0, uint8(0), uint8(7), 1200, 400)
	f.Add(0, 60, 30, 10, uint8(1), uint8(1), 0, 0)
	f.Add(-5, 200, 0, 31, uint8(7), uint8(7), -10, 3)
	f.Fuzz(func(t *testing.T, open, ready, approval, missing int, restrict, flags uint8, patientsA, patientsB int) {
		target := catalog.Dataset{
			ID: "a", TherapeuticArea: []string{"Oncology"}, Phase: "Phase II", PatientCount: patientsA,
			AccessBreakdown: breakdown(open, ready, approval, missing),
			AOT:             aotFromBits(int(restrict & 7)),
			Categories:      []string{"clinical"},
		}
		other := catalog.Dataset{
			ID: "b", TherapeuticArea: []string{"Oncology"}, Phase: "Phase II", PatientCount: patientsB,
			AccessBreakdown: breakdown(100, 0, 0, 0),
			Categories:      []string{"clinical"},
		}
		cat := catalog.NewMemory(catalog.Snapshot{Datasets: []catalog.Dataset{target, other}}, nil)
		res := PerformSmartMatching([]catalog.Dataset{target}, intentFromBits(int(flags&7)), cat)
		if res == nil || res.Summary.TotalDatasets != 1 {
			t.Fatalf("expected one match, got %+v", res)
		}
		m := res.All()[0]
		switch m.Category {
		case CategoryImmediate, CategorySoon, CategoryExtended, CategoryConflict:
		default:
			t.Fatalf("unknown category %q", m.Category)
		}
		if m.EstimatedWeeks < 0 || m.EstimatedDays != m.EstimatedWeeks*7 {
			t.Fatalf("bad estimate %d/%d", m.EstimatedWeeks, m.EstimatedDays)
		}
		for _, s := range m.SimilarDatasets {
			if s.SimilarityScore < 0 || s.SimilarityScore > 100 || s.EstimatedWeeks >= m.EstimatedWeeks {
				t.Fatalf("bad suggestion %+v for %d weeks", s, m.EstimatedWeeks)
			}
		}
	})
}

func BenchmarkPerformSmartMatching(b *testing.B) {
	cat := catalog.NewDefault(nil)
	ds := cat.All()
	in := allFlags()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		PerformSmartMatching(ds, in, cat)
	}
}

func allFlags() Intent {
	return intentFromBits(7)
}

// intentFromBits sets AI research, software development and external
// publication from bits 0, 1 and 2.
func intentFromBits(bits int) Intent {
	var in Intent
	in.PrimaryUse.UnderstandDisease = true
	in.BeyondPrimaryUse.AIResearch = bits&1 != 0
	in.BeyondPrimaryUse.SoftwareDevelopment = bits&2 != 0
	in.Publication.ExternalPublication = bits&4 != 0
	in.Publication.InternalOnly = bits&4 == 0
	return in
}

func aotFromBits(bits int) *catalog.AOTMetadata {
	if bits == 0 {
		return nil
	}
	return &catalog.AOTMetadata{
		RestrictML:          bits&1 != 0,
		RestrictSoftwareDev: bits&2 != 0,
		RestrictPublication: bits&4 != 0,
	}
}

func matchIDs(ms []DatasetMatch) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Dataset.ID)
	}
	return out
}

func similarIDs(ss []SimilarDataset) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Dataset.ID)
	}
	return out
}
