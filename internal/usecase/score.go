package usecase

import (
	"encoding/json"
	"fmt"
	"sort"

	"tradelens/config"
	"tradelens/internal/adapter/artifact"
	"tradelens/internal/adapter/store"
	"tradelens/internal/domain"
	"tradelens/internal/port"
)

const (
	stageDefenseResults = "defense_results"
	stageDefenseErrors  = "defense_errors"
)

// ScoreUseCase runs the bounded-concurrency defense-criticality scoring.
// Pool shape, persistence cadence and retry semantics mirror the trade
// fetcher; the only difference is the task body and the record types.
type ScoreUseCase struct {
	scorer      port.DefenseScorer
	checkpoint  *store.Checkpoint
	paths       config.Paths
	concurrency int
	flushEvery  int
}

// ScoreResult summarizes one scoring run.
type ScoreResult struct {
	Processed int
	Succeeded int
	Failed    int
	Results   int
	Errors    int

	// Distribution counts scored entries by score over the whole
	// results collection, index = score.
	Distribution [11]int
}

func NewScoreUseCase(scorer port.DefenseScorer, checkpoint *store.Checkpoint, paths config.Paths, concurrency, flushEvery int) *ScoreUseCase {
	return &ScoreUseCase{
		scorer:      scorer,
		checkpoint:  checkpoint,
		paths:       paths,
		concurrency: concurrency,
		flushEvery:  flushEvery,
	}
}

// Run scores every unscored (HS6, description) pair, or, in retry mode,
// exactly the pairs recorded in the error collection.
func (u *ScoreUseCase) Run(retry bool, progress func(done, total int)) (*ScoreResult, error) {
	results, err := artifact.LoadDefenseOrEmpty(u.paths.DefenseIndex)
	if err != nil {
		return nil, err
	}
	failures, err := artifact.LoadScoreErrors(u.paths.DefenseErrors)
	if err != nil {
		return nil, err
	}
	if err := u.mergeCheckpoint(results, failures); err != nil {
		return nil, err
	}

	targets := make(map[string]string)
	if retry {
		for hs6, entry := range failures {
			targets[hs6] = entry.Description
		}
	} else {
		all, err := u.targetDescriptions()
		if err != nil {
			return nil, err
		}
		for hs6, desc := range all {
			if _, scored := results[hs6]; !scored {
				targets[hs6] = desc
			}
		}
	}
	codes := make([]string, 0, len(targets))
	for hs6 := range targets {
		codes = append(codes, hs6)
	}
	sort.Strings(codes)

	res := &ScoreResult{Processed: len(codes)}
	if len(codes) == 0 {
		res.Results = len(results)
		res.Errors = len(failures)
		fillDistribution(res, results)
		return res, nil
	}

	save := func() error {
		if err := artifact.SaveJSON(u.paths.DefenseIndex, results); err != nil {
			return err
		}
		return artifact.SaveJSON(u.paths.DefenseErrors, failures)
	}
	fl := newFlusher(u.flushEvery, save)

	type scoreDone struct {
		hs6   string
		score *domain.DefenseScore
		err   error
	}
	done := make(chan scoreDone)
	g := newGate(u.concurrency)

	for _, hs6 := range codes {
		go func(hs6, description string) {
			g.enter()
			defer g.leave()
			score, err := u.scorer.Score(hs6, description)
			done <- scoreDone{hs6: hs6, score: score, err: err}
		}(hs6, targets[hs6])
	}

	var fatal error
	for i := 0; i < len(codes); i++ {
		d := <-done
		if d.err != nil {
			res.Failed++
			entry := domain.ScoreError{
				HS6:         d.hs6,
				Description: targets[d.hs6],
				Error:       d.err.Error(),
			}
			failures[d.hs6] = entry
			if err := u.checkpoint.Put(stageDefenseErrors, d.hs6, entry); err != nil && fatal == nil {
				fatal = err
			}
		} else {
			res.Succeeded++
			results[d.hs6] = *d.score
			delete(failures, d.hs6)
			if err := u.checkpoint.Put(stageDefenseResults, d.hs6, d.score); err != nil && fatal == nil {
				fatal = err
			}
			if err := u.checkpoint.Delete(stageDefenseErrors, d.hs6); err != nil && fatal == nil {
				fatal = err
			}
		}
		if progress != nil {
			progress(i+1, len(codes))
		}
		if err := fl.tick(); err != nil && fatal == nil {
			fatal = err
		}
	}
	if fatal != nil {
		return nil, fatal
	}

	if err := save(); err != nil {
		return nil, err
	}
	if err := u.checkpoint.Clear(stageDefenseResults); err != nil {
		return nil, err
	}
	if err := u.checkpoint.Clear(stageDefenseErrors); err != nil {
		return nil, err
	}

	res.Results = len(results)
	res.Errors = len(failures)
	fillDistribution(res, results)
	return res, nil
}

func fillDistribution(res *ScoreResult, results map[string]domain.DefenseScore) {
	for _, entry := range results {
		if entry.Score >= 0 && entry.Score <= 10 {
			res.Distribution[entry.Score]++
		}
	}
}

func (u *ScoreUseCase) mergeCheckpoint(results map[string]domain.DefenseScore, failures map[string]domain.ScoreError) error {
	err := u.checkpoint.Each(stageDefenseErrors, func(key string, raw []byte) error {
		var entry domain.ScoreError
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("corrupt checkpoint entry %s: %w", key, err)
		}
		failures[key] = entry
		return nil
	})
	if err != nil {
		return err
	}
	return u.checkpoint.Each(stageDefenseResults, func(key string, raw []byte) error {
		var entry domain.DefenseScore
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("corrupt checkpoint entry %s: %w", key, err)
		}
		results[key] = entry
		delete(failures, key)
		return nil
	})
}

// targetDescriptions extracts unique HS6 codes with the first long
// description encountered, scanning NAICS codes in sorted order, exports
// before imports.
func (u *ScoreUseCase) targetDescriptions() (map[string]string, error) {
	concordance, err := artifact.LoadConcordance(u.paths.NAICSProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAICS products: %w", err)
	}

	naics := make([]string, 0, len(concordance))
	for code := range concordance {
		naics = append(naics, code)
	}
	sort.Strings(naics)

	descriptions := make(map[string]string)
	for _, code := range naics {
		products := concordance[code]
		for _, p := range products.Exports {
			if _, ok := descriptions[p.HS6]; !ok {
				descriptions[p.HS6] = p.LongDesc
			}
		}
		for _, p := range products.Imports {
			if _, ok := descriptions[p.HS6]; !ok {
				descriptions[p.HS6] = p.LongDesc
			}
		}
	}
	return descriptions, nil
}
