package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultFixtureBreakdownsSumTo100(t *testing.T) {
	snap := DefaultSnapshot()
	if len(snap.Datasets) == 0 {
		t.Fatal("expected fixture datasets")
	}
	for _, ds := range snap.Datasets {
		if !ds.AccessBreakdown.Valid() {
			t.Fatalf("dataset %s breakdown sums to %d", ds.ID, ds.AccessBreakdown.Total())
		}
	}
}

func TestResolveDropsUnknownIDsAndKeepsOrder(t *testing.T) {
	cat := NewDefault(nil)
	got := cat.Resolve([]string{"ds-003", "nope", "ds-001", ""})
	if len(got) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(got))
	}
	if got[0].ID != "ds-003" || got[1].ID != "ds-001" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestCollectionForReturnsFirstContainingCollection(t *testing.T) {
	cat := NewMemory(Snapshot{
		Datasets: []Dataset{{ID: "a"}, {ID: "b"}},
		Collections: []Collection{
			{ID: "c1", Name: "First", DatasetIDs: []string{"a"}},
			{ID: "c2", Name: "Second", DatasetIDs: []string{"a", "b"}},
		},
	}, nil)
	ref, ok := cat.CollectionFor("a")
	if !ok || ref.ID != "c1" {
		t.Fatalf("expected c1, got %+v ok=%v", ref, ok)
	}
	ref, ok = cat.CollectionFor("b")
	if !ok || ref.ID != "c2" {
		t.Fatalf("expected c2, got %+v ok=%v", ref, ok)
	}
	if _, ok := cat.CollectionFor("zzz"); ok {
		t.Fatal("expected no collection for unknown dataset")
	}
}

func TestNewMemorySkipsDuplicatesAndFiltersDefaultSelection(t *testing.T) {
	cat := NewMemory(Snapshot{
		Datasets:         []Dataset{{ID: "a", Code: "first"}, {ID: "a", Code: "second"}, {ID: " "}},
		DefaultSelection: []string{"a", "missing"},
	}, nil)
	if cat.Len() != 1 {
		t.Fatalf("expected 1 dataset, got %d", cat.Len())
	}
	ds, _ := cat.Get("a")
	if ds.Code != "first" {
		t.Fatalf("expected first entry kept, got %q", ds.Code)
	}
	if sel := cat.DefaultSelection(); !reflect.DeepEqual(sel, []string{"a"}) {
		t.Fatalf("unexpected default selection: %v", sel)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	cat := NewDefault(nil)
	all := cat.All()
	all[0].Code = "mutated"
	again, _ := cat.Get(all[0].ID)
	if again.Code == "mutated" {
		t.Fatal("All must not expose internal storage")
	}
}

func TestSQLiteSeedAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	want := DefaultSnapshot()
	if err := Seed(path, want); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	cat, err := NewSQLiteCatalog(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteCatalog: %v", err)
	}
	defer cat.Close()

	if cat.Len() != len(want.Datasets) {
		t.Fatalf("expected %d datasets, got %d", len(want.Datasets), cat.Len())
	}
	for i, ds := range cat.All() {
		if !reflect.DeepEqual(ds, want.Datasets[i]) {
			t.Fatalf("dataset %d mismatch:\n got=%+v\nwant=%+v", i, ds, want.Datasets[i])
		}
	}
	if !reflect.DeepEqual(cat.DefaultSelection(), want.DefaultSelection) {
		t.Fatalf("default selection mismatch: %v", cat.DefaultSelection())
	}
	ref, ok := cat.CollectionFor("ds-008")
	if !ok || ref.ID != "col-001" {
		t.Fatalf("expected col-001 for ds-008, got %+v", ref)
	}
}

func TestSQLiteSeedReplacesPreviousContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	if err := Seed(path, DefaultSnapshot()); err != nil {
		t.Fatalf("Seed default: %v", err)
	}
	small := Snapshot{Datasets: []Dataset{{ID: "only", Code: "ONLY", AccessBreakdown: AccessBreakdown{AlreadyOpen: 100}}}}
	if err := Seed(path, small); err != nil {
		t.Fatalf("Seed small: %v", err)
	}
	cat, err := NewSQLiteCatalog(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteCatalog: %v", err)
	}
	defer cat.Close()
	if cat.Len() != 1 {
		t.Fatalf("expected 1 dataset after reseed, got %d", cat.Len())
	}
	ds, ok := cat.Get("only")
	if !ok {
		t.Fatal("expected dataset only")
	}
	if ds.AOT != nil {
		t.Fatal("expected nil AOT metadata to survive round trip")
	}
	if len(ds.TherapeuticArea) != 0 || len(ds.Categories) != 0 {
		t.Fatalf("expected empty tag sets, got %v %v", ds.TherapeuticArea, ds.Categories)
	}
}

func TestEmptySQLiteCatalogIsValid(t *testing.T) {
	cat, err := NewSQLiteCatalog(filepath.Join(t.TempDir(), "empty.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteCatalog: %v", err)
	}
	defer cat.Close()
	if cat.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d", cat.Len())
	}
}

func TestOpenPrefersDatabaseThenFixture(t *testing.T) {
	dir := t.TempDir()

	cat, closeFn, err := Open("", "", nil)
	if err != nil || len(cat.All()) != 12 {
		t.Fatalf("default catalog: %v, %d datasets", err, len(cat.All()))
	}
	_ = closeFn()

	fixture := filepath.Join(dir, "small.yaml")
	blob := "datasets:\n  - id: only\n    code: X-1\n    access_breakdown: {already_open: 100}\ndefault_selection: [only]\n"
	if err := os.WriteFile(fixture, []byte(blob), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cat, _, err = Open("", fixture, nil)
	if err != nil || len(cat.All()) != 1 {
		t.Fatalf("fixture catalog: %v", err)
	}

	dbPath := filepath.Join(dir, "catalog.db")
	if err := Seed(dbPath, DefaultSnapshot()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cat, closeFn, err = Open(dbPath, fixture, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeFn()
	if len(cat.All()) != 12 {
		t.Fatalf("database should win over fixture, got %d datasets", len(cat.All()))
	}

	if _, _, err := Open("", filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestSQLiteCorruptTagColumnFailsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	if err := Seed(path, DefaultSnapshot()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("UPDATE datasets SET categories = 'not json' WHERE id = 'ds-003'"); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}
	db.Close()

	cat, err := NewSQLiteCatalog(path, nil)
	if err == nil {
		cat.Close()
		t.Fatal("expected load to fail on an undecodable categories column")
	}
	if !strings.Contains(err.Error(), "ds-003 categories") {
		t.Fatalf("error should name the dataset and column, got %v", err)
	}
}
