package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
	"github.com/sumaiwise/sumaiwise/pkg/types/rental"
)

const rawJSON = `[
  {"prefecture": "tokyo", "municipality": "nakano", "layout_type": "1K",
   "building_structure": "rc", "avg_rent_yen": 95000, "source_name": "suumo"},
  {"prefecture": "tokyo", "municipality": "nakano", "layout_type": "1K",
   "building_structure": "rc", "avg_rent_yen": "99000.0", "source_name": "homes"},
  {"prefecture": "tokyo", "municipality": "nakano", "layout_type": "1K",
   "avg_rent_yen": 92000}
]`

const rawCSV = `prefecture,municipality,layout_type,building_structure,avg_rent_yen,source_name
tokyo,nakano,1K,rc,95000,suumo
tokyo,nakano,1K,rc,99000.0,homes
tokyo,nakano,1K,,92000,
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRawJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.json", rawJSON)

	rows, err := LoadRaw(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "tokyo", rows[0].Prefecture)
	assert.Equal(t, "rc", rows[0].BuildingStructure)
	assert.Equal(t, 95000, rows[0].AvgRentYen)
	// Exporters sometimes emit yen amounts as float strings.
	assert.Equal(t, 99000, rows[1].AvgRentYen)
	// No structure segmentation defaults to "all".
	assert.Equal(t, "all", rows[2].BuildingStructure)
}

func TestLoadRawCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.csv", rawCSV)

	rows, err := LoadRaw(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 95000, rows[0].AvgRentYen)
	assert.Equal(t, "suumo", rows[0].SourceName)
	assert.Equal(t, 99000, rows[1].AvgRentYen)
	assert.Equal(t, "all", rows[2].BuildingStructure)
}

func TestLoadRawUnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.xlsx", "binary")

	_, err := LoadRaw(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBenchmarkDataInvalid))
}

func TestLoadRawBadRent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.json",
		`[{"prefecture": "tokyo", "municipality": "nakano", "layout_type": "1K", "avg_rent_yen": "cheap"}]`)

	_, err := LoadRaw(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBenchmarkDataInvalid))
}

func TestLoadOrBuildWritesIndex(t *testing.T) {
	dir := t.TempDir()
	rawPath := writeFile(t, dir, "raw.json", rawJSON)
	indexPath := filepath.Join(dir, "derived", "benchmark_index.json")

	index, err := LoadOrBuild(LoadOptions{
		IndexPath:      indexPath,
		RawPaths:       []string{rawPath},
		WriteIfMissing: true,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, index)

	g, ok := index.ByPrefMuniLayout["tokyo|nakano|1K"]
	require.True(t, ok)
	assert.Equal(t, 95000, g.MedianRentYen)
	assert.Equal(t, 3, g.RowCount)

	// The built index was persisted and is preferred on the next load,
	// even when the raw file has since disappeared.
	require.FileExists(t, indexPath)
	require.NoError(t, os.Remove(rawPath))

	again, err := LoadOrBuild(LoadOptions{
		IndexPath: indexPath,
		RawPaths:  []string{rawPath},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, index.ByPrefMuniLayout, again.ByPrefMuniLayout)
}

func TestLoadOrBuildFallsThroughBadFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `{"not": "a list"}`)
	good := writeFile(t, dir, "good.json", rawJSON)

	index, err := LoadOrBuild(LoadOptions{RawPaths: []string{bad, good}}, nil)
	require.NoError(t, err)
	assert.Contains(t, index.ByPrefLayout, "tokyo|1K")
}

func TestLoadOrBuildNothingUsable(t *testing.T) {
	_, err := LoadOrBuild(LoadOptions{RawPaths: []string{filepath.Join(t.TempDir(), "missing.json")}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBenchmarkIndexUnavailable))

	_, err = LoadOrBuild(LoadOptions{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeBenchmarkIndexUnavailable))
}

func TestSourceMatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.json", rawJSON)
	index, err := LoadOrBuild(LoadOptions{RawPaths: []string{path}}, nil)
	require.NoError(t, err)

	src := NewSource(index, benchmark.DefaultHedonicConfig(), nil)

	bm, err := src.Match(context.Background(), benchmark.Query{
		Prefecture:   "tokyo",
		Municipality: "nakano",
		LayoutType:   "1K",
	})
	require.NoError(t, err)
	assert.Equal(t, rental.ConfidenceHigh, bm.Confidence)
	require.NotNil(t, bm.RentYen)
	assert.Equal(t, 95000, *bm.RentYen)
}

func TestSourceMatchCanceledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.json", rawJSON)
	index, err := LoadOrBuild(LoadOptions{RawPaths: []string{path}}, nil)
	require.NoError(t, err)
	src := NewSource(index, benchmark.DefaultHedonicConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bm, err := src.Match(ctx, benchmark.Query{Prefecture: "tokyo", LayoutType: "1K"})
	require.Error(t, err)
	assert.Equal(t, rental.ConfidenceNone, bm.Confidence)
}

func TestSourceSetHedonicConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "raw.json", rawJSON)
	index, err := LoadOrBuild(LoadOptions{RawPaths: []string{path}}, nil)
	require.NoError(t, err)
	src := NewSource(index, benchmark.DefaultHedonicConfig(), nil)

	cfg := benchmark.DefaultHedonicConfig()
	cfg.AgeFactors["ge21"] = 0.5
	src.SetHedonicConfig(cfg)

	age := 30
	bm, err := src.Match(context.Background(), benchmark.Query{
		Prefecture:       "tokyo",
		Municipality:     "nakano",
		LayoutType:       "1K",
		BuildingAgeYears: &age,
	})
	require.NoError(t, err)
	require.NotNil(t, bm.RentYen)
	assert.Equal(t, 47500, *bm.RentYen)
}
