// Package memstore holds the fully-loaded dataset the query engine runs
// over. A Store is built once at startup and never mutated afterwards,
// so query handlers read it concurrently without locking.
package memstore

import (
	"fmt"
	"sort"

	"tradelens/config"
	"tradelens/internal/adapter/artifact"
	"tradelens/internal/domain"
)

type Store struct {
	Concordance map[string]domain.NAICSProducts
	Trade       map[string]*domain.TradeRecord
	China       domain.ChinaIndex
	Defense     map[string]domain.DefenseScore
	NAICSNames  map[string]string

	// Derived, rebuilt on every load.
	HS6ToNAICS   map[string][]string
	Descriptions map[string]string
}

// Load eagerly reads the five artifacts and derives the reverse lookups.
// Any missing or malformed artifact fails the load; the query engine
// never serves a partial dataset.
func Load(p config.Paths) (*Store, error) {
	concordance, err := artifact.LoadConcordance(p.NAICSProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAICS products: %w", err)
	}

	trade, err := artifact.LoadTrade(p.TradeDeficit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade deficit: %w", err)
	}

	china, err := artifact.LoadChinaIndex(p.ChinaIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to load China index: %w", err)
	}

	defense, err := artifact.LoadDefense(p.DefenseIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to load defense index: %w", err)
	}

	names, err := artifact.LoadNAICSNames(p.NAICSNames)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAICS names: %w", err)
	}

	s := &Store{
		Concordance: concordance,
		Trade:       trade,
		China:       china,
		Defense:     defense,
		NAICSNames:  names,
	}
	s.buildReverseLookups()
	return s, nil
}

// NewStore assembles a store from already-loaded artifacts and derives
// the reverse lookups. Used by tests and by callers that own the load.
func NewStore(
	concordance map[string]domain.NAICSProducts,
	trade map[string]*domain.TradeRecord,
	china domain.ChinaIndex,
	defense map[string]domain.DefenseScore,
	names map[string]string,
) *Store {
	s := &Store{
		Concordance: concordance,
		Trade:       trade,
		China:       china,
		Defense:     defense,
		NAICSNames:  names,
	}
	s.buildReverseLookups()
	return s
}

func (s *Store) buildReverseLookups() {
	byHS6 := make(map[string]map[string]bool)
	for naics, products := range s.Concordance {
		for _, p := range products.Exports {
			addNAICS(byHS6, p.HS6, naics)
		}
		for _, p := range products.Imports {
			addNAICS(byHS6, p.HS6, naics)
		}
	}

	s.HS6ToNAICS = make(map[string][]string, len(byHS6))
	for hs6, set := range byHS6 {
		codes := make([]string, 0, len(set))
		for naics := range set {
			codes = append(codes, naics)
		}
		sort.Strings(codes)
		s.HS6ToNAICS[hs6] = codes
	}

	// Descriptions come from the defense index, which may be sparser
	// than the trade data; absent codes resolve to "".
	s.Descriptions = make(map[string]string, len(s.Defense))
	for hs6, info := range s.Defense {
		s.Descriptions[hs6] = info.Description
	}
}

func addNAICS(m map[string]map[string]bool, hs6, naics string) {
	if m[hs6] == nil {
		m[hs6] = make(map[string]bool)
	}
	m[hs6][naics] = true
}

// Description returns the canonical description for an HS6 code, or ""
// when the defense index has no entry for it.
func (s *Store) Description(hs6 string) string {
	return s.Descriptions[hs6]
}

// DefenseScoreFor returns the defense score for an HS6 code, 0 if unscored.
func (s *Store) DefenseScoreFor(hs6 string) int {
	return s.Defense[hs6].Score
}
