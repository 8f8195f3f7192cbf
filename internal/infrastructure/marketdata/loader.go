// Package marketdata loads collected benchmark rent observations from disk
// and serves them to the evaluation pipeline.  It does not crawl; it only
// parses files provided by the data collection pipeline.
package marketdata

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// LoadOptions configures index resolution.  A prebuilt index JSON is
// preferred; raw CSV/JSON files are tried in order otherwise.
type LoadOptions struct {
	IndexPath      string
	RawPaths       []string
	WriteIfMissing bool
}

// LoadOrBuild resolves a benchmark index.  When IndexPath exists it is
// loaded as-is; otherwise each raw path is parsed and aggregated, and the
// first one that succeeds wins.  With WriteIfMissing the built index is
// persisted next time's fast path.
func LoadOrBuild(opts LoadOptions, logger logging.Logger) (*benchmark.Index, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if opts.IndexPath != "" {
		if _, err := os.Stat(opts.IndexPath); err == nil {
			return LoadIndex(opts.IndexPath)
		}
	}

	var lastErr error
	for _, rawPath := range opts.RawPaths {
		rows, err := LoadRaw(rawPath)
		if err != nil {
			lastErr = err
			logger.Warn("skipping benchmark raw file",
				logging.String("path", rawPath),
				logging.Err(err))
			continue
		}
		index, err := benchmark.BuildIndex(rows)
		if err != nil {
			lastErr = err
			logger.Warn("skipping benchmark raw file, aggregation failed",
				logging.String("path", rawPath),
				logging.Err(err))
			continue
		}
		if opts.WriteIfMissing && opts.IndexPath != "" {
			if err := WriteIndex(opts.IndexPath, index); err != nil {
				logger.Warn("could not persist benchmark index",
					logging.String("path", opts.IndexPath),
					logging.Err(err))
			}
		}
		logger.Info("benchmark index built from raw rows",
			logging.String("path", rawPath),
			logging.Int("rows", len(rows)))
		return index, nil
	}

	if lastErr != nil {
		return nil, errors.Wrap(lastErr, errors.CodeBenchmarkIndexUnavailable,
			"no benchmark raw file could be loaded")
	}
	return nil, errors.New(errors.CodeBenchmarkIndexUnavailable,
		"no benchmark index or raw files configured")
}

// LoadIndex reads a prebuilt index JSON.
func LoadIndex(path string) (*benchmark.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkIndexUnavailable, "read benchmark index %s", path)
	}
	var index benchmark.Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid, "parse benchmark index %s", path)
	}
	if index.Empty() {
		return nil, errors.Newf(errors.CodeBenchmarkDataInvalid, "benchmark index %s has no groups", path)
	}
	return &index, nil
}

// LoadRaw parses one raw observation file, dispatching on the extension.
func LoadRaw(path string) ([]benchmark.Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadRawJSON(path)
	case ".csv":
		return loadRawCSV(path)
	default:
		return nil, errors.Newf(errors.CodeBenchmarkDataInvalid,
			"unsupported raw benchmark format %q", filepath.Ext(path))
	}
}

// rawRow tolerates the loose typing of collected data: rents arrive as
// numbers or numeric strings depending on the source exporter.
type rawRow struct {
	Prefecture        string      `json:"prefecture"`
	Municipality      string      `json:"municipality"`
	LayoutType        string      `json:"layout_type"`
	BuildingStructure string      `json:"building_structure"`
	AvgRentYen        interface{} `json:"avg_rent_yen"`
	SourceName        string      `json:"source_name"`
	SourceURL         string      `json:"source_url"`
	SourceUpdatedAt   string      `json:"source_updated_at"`
	CollectedAt       string      `json:"collected_at"`
	MethodNotes       string      `json:"method_notes"`
}

func loadRawJSON(path string) ([]benchmark.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkIndexUnavailable, "read benchmark raw %s", path)
	}
	var raw []rawRow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid, "parse benchmark raw %s", path)
	}

	rows := make([]benchmark.Row, 0, len(raw))
	for i, r := range raw {
		rent, err := looseInt(r.AvgRentYen)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid,
				"row %d of %s: avg_rent_yen", i, path)
		}
		rows = append(rows, normalizeRow(benchmark.Row{
			Prefecture:        r.Prefecture,
			Municipality:      r.Municipality,
			LayoutType:        r.LayoutType,
			BuildingStructure: r.BuildingStructure,
			AvgRentYen:        rent,
			SourceName:        r.SourceName,
			SourceURL:         r.SourceURL,
			SourceUpdatedAt:   r.SourceUpdatedAt,
			CollectedAt:       r.CollectedAt,
			MethodNotes:       r.MethodNotes,
		}))
	}
	return rows, nil
}

func loadRawCSV(path string) ([]benchmark.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkIndexUnavailable, "read benchmark raw %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid, "read header of %s", path)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []benchmark.Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid, "line %d of %s", line, path)
		}
		line++
		rent, err := looseInt(field(record, "avg_rent_yen"))
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid,
				"line %d of %s: avg_rent_yen", line, path)
		}
		rows = append(rows, normalizeRow(benchmark.Row{
			Prefecture:        field(record, "prefecture"),
			Municipality:      field(record, "municipality"),
			LayoutType:        field(record, "layout_type"),
			BuildingStructure: field(record, "building_structure"),
			AvgRentYen:        rent,
			SourceName:        field(record, "source_name"),
			SourceURL:         field(record, "source_url"),
			SourceUpdatedAt:   field(record, "source_updated_at"),
			CollectedAt:       field(record, "collected_at"),
			MethodNotes:       field(record, "method_notes"),
		}))
	}
	return rows, nil
}

func normalizeRow(r benchmark.Row) benchmark.Row {
	r.Prefecture = strings.TrimSpace(r.Prefecture)
	r.Municipality = strings.TrimSpace(r.Municipality)
	r.LayoutType = strings.TrimSpace(r.LayoutType)
	r.BuildingStructure = strings.TrimSpace(r.BuildingStructure)
	if r.BuildingStructure == "" {
		r.BuildingStructure = "all"
	}
	r.SourceName = strings.TrimSpace(r.SourceName)
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.SourceUpdatedAt = strings.TrimSpace(r.SourceUpdatedAt)
	r.CollectedAt = strings.TrimSpace(r.CollectedAt)
	return r
}

// looseInt coerces a JSON number, numeric string, or "95000.0"-style export
// artifact to an integer yen amount.
func looseInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, errors.New(errors.CodeBenchmarkDataInvalid, "missing value")
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, errors.New(errors.CodeBenchmarkDataInvalid, "empty value")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(err, errors.CodeBenchmarkDataInvalid, "not a number: %q", s)
		}
		return int(f), nil
	default:
		return 0, errors.Newf(errors.CodeBenchmarkDataInvalid, "unsupported value type %T", v)
	}
}

// WriteIndex persists an aggregated index as indented JSON, creating parent
// directories as needed.
func WriteIndex(path string, index *benchmark.Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
