package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Product is a single concordance row projected to the artifact shape.
// Field tags are fixed by the naics_products.json contract.
type Product struct {
	HS10      string `json:"hs10"`
	HS6       string `json:"hs6"`
	LongDesc  string `json:"ld"`
	ShortDesc string `json:"sd"`
}

// NAICSProducts holds the commodity codes associated with one NAICS code,
// split by trade direction. Repeated HS10 codes are kept as-is.
type NAICSProducts struct {
	Exports []Product `json:"exports"`
	Imports []Product `json:"imports"`
}

// HS6Set returns the unique HS6 codes across both directions, sorted.
func (n NAICSProducts) HS6Set() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, p := range n.Exports {
		if !seen[p.HS6] {
			seen[p.HS6] = true
			codes = append(codes, p.HS6)
		}
	}
	for _, p := range n.Imports {
		if !seen[p.HS6] {
			seen[p.HS6] = true
			codes = append(codes, p.HS6)
		}
	}
	sort.Strings(codes)
	return codes
}

// TradeRecord holds per-country trade values for one HS6 code.
// Deficit is absent until the deficit pass has run.
type TradeRecord struct {
	ExportValue map[string]int64 `json:"export_value"`
	ImportValue map[string]int64 `json:"import_value"`
	Deficit     map[string]int64 `json:"deficit,omitempty"`
}

// DefenseScore is one scored entry of the defense index.
type DefenseScore struct {
	HS6         string `json:"hs6"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Reasoning   string `json:"reasoning"`
}

// TradeError records a failed trade fetch for one HS6 code.
type TradeError struct {
	HSCode string `json:"hscode"`
	Error  string `json:"error"`
}

// ScoreError records a failed scoring attempt for one HS6 code. The
// description is kept so a retry run can resubmit the original input.
type ScoreError struct {
	HS6         string `json:"hs6"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

// ChinaIndex maps HS6 codes to the US trade deficit with China. It only
// ever contains strictly positive values. The artifact is written
// deficit-descending; readers must treat it as an unordered lookup.
type ChinaIndex map[string]int64

// ChinaEntry is one ranked entry of the China index.
type ChinaEntry struct {
	HS6     string
	Deficit int64
}

// Ranked returns the index entries sorted by deficit descending,
// HS6 ascending within equal deficits.
func (ci ChinaIndex) Ranked() []ChinaEntry {
	entries := make([]ChinaEntry, 0, len(ci))
	for hs6, deficit := range ci {
		entries = append(entries, ChinaEntry{HS6: hs6, Deficit: deficit})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Deficit != entries[j].Deficit {
			return entries[i].Deficit > entries[j].Deficit
		}
		return entries[i].HS6 < entries[j].HS6
	})
	return entries
}

// Total returns the sum of all deficits in the index.
func (ci ChinaIndex) Total() int64 {
	var total int64
	for _, v := range ci {
		total += v
	}
	return total
}

// MarshalJSON writes the index as a JSON object with keys in deficit-
// descending order, matching the on-disk artifact convention.
func (ci ChinaIndex) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range ci.Ranked() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.HS6)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Deficit)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the artifact back into the unordered map form.
func (ci *ChinaIndex) UnmarshalJSON(data []byte) error {
	m := make(map[string]int64)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*ci = m
	return nil
}
