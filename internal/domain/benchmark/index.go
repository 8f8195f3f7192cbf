// Package benchmark builds a rent benchmark index from collected market rows
// and matches listings against it at three segmentation levels.
package benchmark

import (
	"fmt"
	"sort"
	"time"

	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Row is one collected benchmark observation.  Structure "all" means the
// source did not segment by building structure.
type Row struct {
	Prefecture        string `json:"prefecture"`
	Municipality      string `json:"municipality"`
	LayoutType        string `json:"layout_type"`
	BuildingStructure string `json:"building_structure"`
	AvgRentYen        int    `json:"avg_rent_yen"`
	SourceName        string `json:"source_name,omitempty"`
	SourceURL         string `json:"source_url,omitempty"`
	SourceUpdatedAt   string `json:"source_updated_at,omitempty"`
	CollectedAt       string `json:"collected_at,omitempty"`
	MethodNotes       string `json:"method_notes,omitempty"`
}

// Source records provenance for one row that fed a group.
type Source struct {
	SourceName      string `json:"source_name,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"`
	CollectedAt     string `json:"collected_at,omitempty"`
	MethodNotes     string `json:"method_notes,omitempty"`
}

// Group is the aggregate for one segmentation key.
type Group struct {
	MedianRentYen int      `json:"benchmark_rent_yen_median"`
	RowCount      int      `json:"n_rows"`
	Sources       []Source `json:"sources,omitempty"`
}

// Index holds the aggregated benchmark groups at the three match levels.
// FeeInclusive marks whether the collected rents already include management
// fees; rent-only sources get a configured estimate added downstream.
type Index struct {
	GeneratedAt           string           `json:"generated_at"`
	FeeInclusive          bool             `json:"fee_inclusive,omitempty"`
	ByPrefMuniLayoutStruc map[string]Group `json:"by_pref_muni_layout_structure"`
	ByPrefMuniLayout      map[string]Group `json:"by_pref_muni_layout"`
	ByPrefLayout          map[string]Group `json:"by_pref_layout"`
}

func keyPrefMuniLayoutStruc(pref, muni, layout, struc string) string {
	return fmt.Sprintf("%s|%s|%s|%s", pref, muni, layout, struc)
}

func keyPrefMuniLayout(pref, muni, layout string) string {
	return fmt.Sprintf("%s|%s|%s", pref, muni, layout)
}

func keyPrefLayout(pref, layout string) string {
	return fmt.Sprintf("%s|%s", pref, layout)
}

// BuildIndex aggregates raw rows into a matchable index.  Rows missing a
// prefecture, municipality, or layout are skipped; the representative value
// per group is the median across rows.
func BuildIndex(rows []Row) (*Index, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.CodeBenchmarkDataInvalid, "no benchmark rows")
	}

	byStruc := map[string][]Row{}
	byMuni := map[string][]Row{}
	byPref := map[string][]Row{}
	kept := 0
	for _, r := range rows {
		if r.Prefecture == "" || r.LayoutType == "" || r.Municipality == "" {
			continue
		}
		if r.AvgRentYen <= 0 {
			return nil, errors.Newf(errors.CodeBenchmarkDataInvalid,
				"non-positive rent %d for %s/%s/%s", r.AvgRentYen, r.Prefecture, r.Municipality, r.LayoutType)
		}
		kept++
		if r.BuildingStructure != "" && r.BuildingStructure != "all" {
			k := keyPrefMuniLayoutStruc(r.Prefecture, r.Municipality, r.LayoutType, r.BuildingStructure)
			byStruc[k] = append(byStruc[k], r)
		}
		km := keyPrefMuniLayout(r.Prefecture, r.Municipality, r.LayoutType)
		byMuni[km] = append(byMuni[km], r)
		kp := keyPrefLayout(r.Prefecture, r.LayoutType)
		byPref[kp] = append(byPref[kp], r)
	}
	if kept == 0 {
		return nil, errors.New(errors.CodeBenchmarkDataInvalid, "all benchmark rows missing segmentation keys")
	}

	return &Index{
		GeneratedAt:           time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		ByPrefMuniLayoutStruc: packGroups(byStruc),
		ByPrefMuniLayout:      packGroups(byMuni),
		ByPrefLayout:          packGroups(byPref),
	}, nil
}

func packGroups(acc map[string][]Row) map[string]Group {
	out := make(map[string]Group, len(acc))
	for k, group := range acc {
		values := make([]int, len(group))
		sources := make([]Source, len(group))
		for i, r := range group {
			values[i] = r.AvgRentYen
			sources[i] = Source{
				SourceName:      r.SourceName,
				SourceURL:       r.SourceURL,
				SourceUpdatedAt: r.SourceUpdatedAt,
				CollectedAt:     r.CollectedAt,
				MethodNotes:     r.MethodNotes,
			}
		}
		out[k] = Group{
			MedianRentYen: medianInt(values),
			RowCount:      len(group),
			Sources:       sources,
		}
	}
	return out
}

func medianInt(values []int) int {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Empty reports whether the index has no groups at any level.
func (ix *Index) Empty() bool {
	return ix == nil ||
		len(ix.ByPrefMuniLayoutStruc)+len(ix.ByPrefMuniLayout)+len(ix.ByPrefLayout) == 0
}
