package usecase

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"tradelens/internal/adapter/artifact"
	"tradelens/internal/domain"
)

// fakeScorer returns a fixed score and counts calls per code.
type fakeScorer struct {
	mu    sync.Mutex
	fail  map[string]bool
	score int
	calls map[string]int
}

func newFakeScorer(score int) *fakeScorer {
	return &fakeScorer{
		fail:  make(map[string]bool),
		score: score,
		calls: make(map[string]int),
	}
}

func (f *fakeScorer) Score(hs6, description string) (*domain.DefenseScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hs6]++
	if f.fail[hs6] {
		return nil, fmt.Errorf("API returned status 429: rate limited")
	}
	return &domain.DefenseScore{
		HS6:         hs6,
		Description: description,
		Score:       f.score,
		Reasoning:   "canned reasoning",
	}, nil
}

func TestScore_Run(t *testing.T) {
	paths := testPaths(t)
	writeConcordance(t, paths.NAICSProducts, "111111", "222222")

	scorer := newFakeScorer(7)
	ck := openCheckpoint(t, paths.Checkpoint)
	uc := NewScoreUseCase(scorer, ck, paths, 4, 50)

	result, err := uc.Run(false, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Distribution[7] != 2 {
		t.Errorf("expected 2 codes at score 7, got %v", result.Distribution)
	}

	index, err := artifact.LoadDefense(paths.DefenseIndex)
	if err != nil {
		t.Fatal(err)
	}
	entry := index["111111"]
	if entry.Score != 7 || entry.HS6 != "111111" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	// The description submitted to the model is stored alongside.
	if !strings.HasPrefix(entry.Description, "Product ") {
		t.Errorf("description not preserved: %q", entry.Description)
	}
}

func TestScore_SkipsScored(t *testing.T) {
	paths := testPaths(t)
	writeConcordance(t, paths.NAICSProducts, "111111", "222222")

	existing := map[string]domain.DefenseScore{
		"111111": {HS6: "111111", Description: "already scored", Score: 3},
	}
	if err := artifact.SaveJSON(paths.DefenseIndex, existing); err != nil {
		t.Fatal(err)
	}

	scorer := newFakeScorer(9)
	ck := openCheckpoint(t, paths.Checkpoint)
	uc := NewScoreUseCase(scorer, ck, paths, 4, 50)

	result, err := uc.Run(false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 {
		t.Errorf("expected 1 task, got %d", result.Processed)
	}
	if scorer.calls["111111"] != 0 {
		t.Error("already-scored code was resubmitted")
	}

	// Scored entries are never refreshed by a non-retry run.
	index, _ := artifact.LoadDefense(paths.DefenseIndex)
	if index["111111"].Score != 3 {
		t.Errorf("existing score overwritten: %+v", index["111111"])
	}
}

func TestScore_RetryReplaysErrorSet(t *testing.T) {
	paths := testPaths(t)
	writeConcordance(t, paths.NAICSProducts, "111111", "222222")

	scorer := newFakeScorer(5)
	scorer.fail["222222"] = true

	ck := openCheckpoint(t, paths.Checkpoint)
	uc := NewScoreUseCase(scorer, ck, paths, 4, 50)
	if _, err := uc.Run(false, nil); err != nil {
		t.Fatal(err)
	}

	failures, err := artifact.LoadScoreErrors(paths.DefenseErrors)
	if err != nil {
		t.Fatal(err)
	}
	entry := failures["222222"]
	if entry.HS6 != "222222" || entry.Description == "" || entry.Error == "" {
		t.Fatalf("error entry must keep the original input: %+v", entry)
	}

	scorer.mu.Lock()
	scorer.fail["222222"] = false
	scorer.mu.Unlock()

	result, err := uc.Run(true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 {
		t.Errorf("retry should process exactly the failed code, got %d", result.Processed)
	}

	// Success overwrites the prior error entry.
	failures, _ = artifact.LoadScoreErrors(paths.DefenseErrors)
	if len(failures) != 0 {
		t.Errorf("error collection should be empty after recovery, got %v", failures)
	}
	index, _ := artifact.LoadDefense(paths.DefenseIndex)
	if index["222222"].Score != 5 {
		t.Errorf("recovered code not in defense index: %+v", index["222222"])
	}
}

func TestScore_TargetDescriptions_FirstWins(t *testing.T) {
	paths := testPaths(t)

	// Two NAICS codes share an HS6 with differing descriptions; the
	// first in sorted NAICS order wins, exports before imports.
	concordance := map[string]domain.NAICSProducts{
		"311111": {
			Imports: []domain.Product{{HS10: "2309101000", HS6: "230910", LongDesc: "from imports"}},
			Exports: []domain.Product{{HS10: "2309101000", HS6: "230910", LongDesc: "from exports"}},
		},
		"325110": {
			Exports: []domain.Product{{HS10: "2309109000", HS6: "230910", LongDesc: "later naics"}},
		},
	}
	if err := artifact.SaveJSON(paths.NAICSProducts, concordance); err != nil {
		t.Fatal(err)
	}

	ck := openCheckpoint(t, paths.Checkpoint)
	uc := NewScoreUseCase(newFakeScorer(1), ck, paths, 1, 50)

	targets, err := uc.targetDescriptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 unique HS6, got %v", targets)
	}
	if targets["230910"] != "from exports" {
		t.Errorf("expected first export description, got %q", targets["230910"])
	}
}
