package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const fileA = `[
  {"ef_id": 234747, "ipcc_category_2006": "2.G.2.b - Accelerators", "gas": "Sulphur Hexafluoride",
   "description": "Tier 2 SF6 Emission Factor", "value": "2", "unit": "Fraction of SF6/year",
   "source_of_data": "IPCC 2006", "data_provider": "EFDB", "vector": [0.1, 0.2, 0.3]},
  {"ef_id": "PE-1", "ipcc_category_1996": "2.B", "gas": "CO2e", "description": "Polyethylene production",
   "value": 1.5, "unit": "kg CO2e/kg", "vector": [1, 0, 0]}
]`

const fileB = `[
  {"ef_id": 9, "description": "no vector", "value": "1", "unit": "kg CO2/kg"},
  {"ef_id": 10, "description": "equation", "value": "see equation 3.2", "unit": "kg CO2/kg", "vector": [0, 1, 0]},
  {"description": "no id", "value": "1", "unit": "kg CO2/kg", "vector": [0, 1, 0]},
  {"ef_id": 11, "gas": "CH4", "description": "Diesel combustion", "value": "1,000.5", "unit": "kg CH4/TJ",
   "region": "Global", "vector": [0, 0, 1]}
]`

func TestLoad_OrderAndSchema(t *testing.T) {
	dir := t.TempDir()
	// Sorted path order decides insertion order, not creation order.
	writeFile(t, dir, "b.json", fileB)
	writeFile(t, dir, "a.json", fileA)

	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json"), Version: "efdb-2024"}, zap.NewNop())
	cat, stats, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if stats.Files != 2 || stats.Loaded != 3 || stats.Skipped != 3 {
		t.Errorf("stats = %+v, want files=2 loaded=3 skipped=3", stats)
	}
	if cat.Version() != "efdb-2024" {
		t.Errorf("version = %q", cat.Version())
	}

	wantIDs := []string{"234747", "PE-1", "11"}
	for i, id := range wantIDs {
		if got := cat.At(i).ID(); got != id {
			t.Errorf("At(%d) = %q, want %q", i, got, id)
		}
	}

	pe, ok := cat.Get("PE-1")
	if !ok {
		t.Fatal("PE-1 missing")
	}
	if pe.Category() != "2.B" {
		t.Errorf("category fallback to 1996 failed: %q", pe.Category())
	}
	if pe.Value() != 1.5 || pe.Unit() != "kg CO2e/kg" {
		t.Errorf("unexpected factor %v %s", pe.Value(), pe.Unit())
	}

	acc, _ := cat.Get("234747")
	if acc.Category() != "2.G.2.b - Accelerators" {
		t.Errorf("category = %q", acc.Category())
	}
	if acc.Provenance().Label() != "EFDB: IPCC 2006" {
		t.Errorf("provenance = %q", acc.Provenance().Label())
	}

	diesel, _ := cat.Get("11")
	if diesel.Value() != 1000.5 {
		t.Errorf("thousands separator: value = %v", diesel.Value())
	}
	if diesel.Provenance().Region != "Global" {
		t.Errorf("region = %q", diesel.Provenance().Region)
	}
}

func TestLoad_DerivedVersionIsStable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", fileA)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)

	c1, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	c2, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(c1.Version(), "sha256:") || c1.Version() != c2.Version() {
		t.Errorf("versions %q / %q", c1.Version(), c2.Version())
	}

	writeFile(t, dir, "b.json", fileB)
	c3, _, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c3.Version() == c1.Version() {
		t.Error("version must change with content")
	}
}

func TestLoad_NoFiles(t *testing.T) {
	l := NewLoader(Config{Pattern: filepath.Join(t.TempDir(), "*.json")}, nil)
	if _, _, err := l.Load(context.Background()); !errors.Is(err, domain.ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
}

func TestLoad_OnlyInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.json", `[{"ef_id": 1, "value": "n/a", "unit": "kg", "vector": [1]}]`)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)
	_, stats, err := l.Load(context.Background())
	if !errors.Is(err, domain.ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d", stats.Skipped)
	}
}

func TestLoad_SkipsRecordsWithWrongFieldTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.json", `[
  {"ef_id": "ok", "value": "2", "unit": "kg CO2e/kg", "vector": [1, 0]},
  {"ef_id": "bad-vector", "value": "2", "unit": "kg CO2e/kg", "vector": "not-a-list"},
  {"ef_id": "bad-value", "value": {"amount": 2}, "unit": "kg CO2e/kg", "vector": [0, 1]},
  42
]`)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)

	cat, stats, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Loaded != 1 || stats.Skipped != 3 {
		t.Errorf("stats = %+v, want loaded=1 skipped=3", stats)
	}
	if _, ok := cat.Get("ok"); !ok || cat.Len() != 1 {
		t.Errorf("catalog should hold only the valid record, len=%d", cat.Len())
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", fileA)
	writeFile(t, dir, "broken.json", `{"ef_id": 1`)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)
	if _, _, err := l.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "broken.json") {
		t.Fatalf("expected decode error naming the file, got %v", err)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", fileA)
	writeFile(t, dir, "c.json", `[{"ef_id": "PE-1", "value": "2", "unit": "kg CO2e/kg", "vector": [0, 1, 0]}]`)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)

	_, _, err := l.Load(context.Background())
	var ibe *domain.IndexBuildError
	if !errors.As(err, &ibe) || ibe.FactorID != "PE-1" {
		t.Fatalf("expected IndexBuildError for PE-1, got %v", err)
	}
}

func TestLoad_ExpectedDimensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", fileA)
	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json"), Dimensions: 1536}, nil)

	if _, _, err := l.Load(context.Background()); !errors.Is(err, domain.ErrIndexBuild) {
		t.Fatalf("expected ErrIndexBuild, got %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", fileA)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(Config{Pattern: filepath.Join(dir, "*.json")}, nil)
	if _, _, err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFlexString(t *testing.T) {
	var r record
	body := `{"ef_id": 42, "value": 0.25, "unit": "kg CO2/kWh", "vector": [1]}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatal(err)
	}
	if r.ID != "42" || r.Value != "0.25" {
		t.Errorf("got id=%q value=%q", r.ID, r.Value)
	}
	if err := json.Unmarshal([]byte(`{"ef_id": {"x": 1}}`), &r); err == nil {
		t.Error("expected error for object id")
	}
}
