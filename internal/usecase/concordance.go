package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"tradelens/internal/adapter/artifact"
	"tradelens/internal/domain"
)

// concordanceRow is one row of a Census concordance table: a NAICS code,
// a 10-digit commodity code, and its long/short descriptions.
type concordanceRow struct {
	naics     string
	commodity string
	longDesc  string
	shortDesc string
}

// ConcordanceUseCase joins the manufacturing NAICS list against the
// export and import concordance tables.
type ConcordanceUseCase struct {
	namesPath  string
	exportGlob string
	importGlob string
	outputPath string
}

// ConcordanceResult summarizes a concordance build.
type ConcordanceResult struct {
	NAICSCodes       int
	ExportRows       int
	ImportRows       int
	TotalExports     int
	TotalImports     int
	NAICSWithExports int
	NAICSWithImports int
}

func NewConcordanceUseCase(namesPath, exportGlob, importGlob, outputPath string) *ConcordanceUseCase {
	return &ConcordanceUseCase{
		namesPath:  namesPath,
		exportGlob: exportGlob,
		importGlob: importGlob,
		outputPath: outputPath,
	}
}

// Run builds and persists the NAICS→products map. progress, if non-nil,
// is called once per NAICS code.
func (u *ConcordanceUseCase) Run(progress func(done, total int)) (*ConcordanceResult, error) {
	names, err := artifact.LoadNAICSNames(u.namesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAICS codes: %w", err)
	}
	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	exportRows, err := loadConcordanceTable(u.exportGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to load export concordance: %w", err)
	}
	importRows, err := loadConcordanceTable(u.importGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to load import concordance: %w", err)
	}

	exportsByNAICS := groupByNAICS(exportRows)
	importsByNAICS := groupByNAICS(importRows)

	result := &ConcordanceResult{
		NAICSCodes: len(codes),
		ExportRows: len(exportRows),
		ImportRows: len(importRows),
	}

	out := make(map[string]domain.NAICSProducts, len(codes))
	for i, naics := range codes {
		products := domain.NAICSProducts{
			Exports: projectProducts(exportsByNAICS[naics]),
			Imports: projectProducts(importsByNAICS[naics]),
		}
		out[naics] = products

		result.TotalExports += len(products.Exports)
		result.TotalImports += len(products.Imports)
		if len(products.Exports) > 0 {
			result.NAICSWithExports++
		}
		if len(products.Imports) > 0 {
			result.NAICSWithImports++
		}
		if progress != nil {
			progress(i+1, len(codes))
		}
	}

	if err := artifact.SaveJSON(u.outputPath, out); err != nil {
		return nil, err
	}
	return result, nil
}

// projectProducts maps rows to the artifact product shape, truncating the
// 10-digit commodity code to its HS6 prefix. Source order and repeated
// HS10 codes are preserved; empty matches emit empty lists, not nulls.
func projectProducts(rows []concordanceRow) []domain.Product {
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		hs6 := r.commodity
		if len(hs6) > 6 {
			hs6 = hs6[:6]
		}
		products = append(products, domain.Product{
			HS10:      r.commodity,
			HS6:       hs6,
			LongDesc:  r.longDesc,
			ShortDesc: r.shortDesc,
		})
	}
	return products
}

func groupByNAICS(rows []concordanceRow) map[string][]concordanceRow {
	m := make(map[string][]concordanceRow)
	for _, r := range rows {
		m[r.naics] = append(m[r.naics], r)
	}
	return m
}

// loadConcordanceTable resolves a glob (concordance files carry a vintage
// suffix, e.g. expconcord24.csv) and parses the lexically last match.
// Column positions come from the table header: naics, commodity,
// descriptn, abbreviatn.
func loadConcordanceTable(glob string) ([]concordanceRow, error) {
	matches, err := doublestar.FilepathGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no concordance file matches %q", glob)
	}
	sort.Strings(matches)
	path := matches[len(matches)-1]

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"naics", "commodity", "descriptn", "abbreviatn"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s is missing column %q", path, required)
		}
	}

	var rows []concordanceRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, concordanceRow{
			naics:     record[cols["naics"]],
			commodity: record[cols["commodity"]],
			longDesc:  record[cols["descriptn"]],
			shortDesc: record[cols["abbreviatn"]],
		})
	}
	return rows, nil
}
