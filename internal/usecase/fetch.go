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
	stageTradeResults = "trade_results"
	stageTradeErrors  = "trade_errors"
)

// FetchUseCase runs the bounded-concurrency trade fetch: one task per
// target HS6 code, each performing an export and an import request.
// Results and errors accumulate into the persisted collections, flushed
// every flushEvery completions and once more at the end. Individual
// failures never abort the run; only artifact I/O failures do.
type FetchUseCase struct {
	client      port.TradeClient
	checkpoint  *store.Checkpoint
	paths       config.Paths
	concurrency int
	flushEvery  int
}

// FetchResult summarizes one fetch run.
type FetchResult struct {
	Processed int // tasks run this invocation
	Succeeded int
	Failed    int
	Results   int // size of the results collection after the run
	Errors    int // size of the error collection after the run
}

func NewFetchUseCase(client port.TradeClient, checkpoint *store.Checkpoint, paths config.Paths, concurrency, flushEvery int) *FetchUseCase {
	return &FetchUseCase{
		client:      client,
		checkpoint:  checkpoint,
		paths:       paths,
		concurrency: concurrency,
		flushEvery:  flushEvery,
	}
}

// Run fetches trade data for every unprocessed HS6 code, or, in retry
// mode, for exactly the codes in the error collection. progress, if
// non-nil, is called after each completion.
func (u *FetchUseCase) Run(retry bool, progress func(done, total int)) (*FetchResult, error) {
	results, err := artifact.LoadTradeOrEmpty(u.paths.TradeDeficit)
	if err != nil {
		return nil, err
	}
	failures, err := artifact.LoadTradeErrors(u.paths.TradeErrors)
	if err != nil {
		return nil, err
	}
	if err := u.mergeCheckpoint(results, failures); err != nil {
		return nil, err
	}

	var targets []string
	if retry {
		for hs6 := range failures {
			targets = append(targets, hs6)
		}
		sort.Strings(targets)
	} else {
		all, err := u.targetCodes()
		if err != nil {
			return nil, err
		}
		for _, hs6 := range all {
			if _, done := results[hs6]; !done {
				targets = append(targets, hs6)
			}
		}
	}

	res := &FetchResult{Processed: len(targets)}
	if len(targets) == 0 {
		res.Results = len(results)
		res.Errors = len(failures)
		return res, nil
	}

	save := func() error {
		if err := artifact.SaveJSON(u.paths.TradeDeficit, results); err != nil {
			return err
		}
		return artifact.SaveJSON(u.paths.TradeErrors, failures)
	}
	fl := newFlusher(u.flushEvery, save)

	type fetchDone struct {
		hs6    string
		record *domain.TradeRecord
		err    error
	}
	done := make(chan fetchDone)
	g := newGate(u.concurrency)

	for _, hs6 := range targets {
		go func(hs6 string) {
			g.enter()
			defer g.leave()
			record, err := u.client.CountryValues(hs6)
			done <- fetchDone{hs6: hs6, record: record, err: err}
		}(hs6)
	}

	// Single collector: sole writer to the accumulator maps.
	var fatal error
	for i := 0; i < len(targets); i++ {
		d := <-done
		if d.err != nil {
			res.Failed++
			entry := domain.TradeError{HSCode: d.hs6, Error: d.err.Error()}
			failures[d.hs6] = entry
			if err := u.checkpoint.Put(stageTradeErrors, d.hs6, entry); err != nil && fatal == nil {
				fatal = err
			}
		} else {
			res.Succeeded++
			results[d.hs6] = d.record
			delete(failures, d.hs6)
			if err := u.checkpoint.Put(stageTradeResults, d.hs6, d.record); err != nil && fatal == nil {
				fatal = err
			}
			if err := u.checkpoint.Delete(stageTradeErrors, d.hs6); err != nil && fatal == nil {
				fatal = err
			}
		}
		if progress != nil {
			progress(i+1, len(targets))
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
	if err := u.checkpoint.Clear(stageTradeResults); err != nil {
		return nil, err
	}
	if err := u.checkpoint.Clear(stageTradeErrors); err != nil {
		return nil, err
	}

	res.Results = len(results)
	res.Errors = len(failures)
	return res, nil
}

// mergeCheckpoint overlays the unflushed delta from a crashed run onto
// the artifact state. A checkpointed success supersedes any stale error
// entry for the same code.
func (u *FetchUseCase) mergeCheckpoint(results map[string]*domain.TradeRecord, failures map[string]domain.TradeError) error {
	err := u.checkpoint.Each(stageTradeErrors, func(key string, raw []byte) error {
		var entry domain.TradeError
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("corrupt checkpoint entry %s: %w", key, err)
		}
		failures[key] = entry
		return nil
	})
	if err != nil {
		return err
	}
	return u.checkpoint.Each(stageTradeResults, func(key string, raw []byte) error {
		var record domain.TradeRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("corrupt checkpoint entry %s: %w", key, err)
		}
		results[key] = &record
		delete(failures, key)
		return nil
	})
}

// targetCodes extracts the sorted unique HS6 codes from the concordance.
func (u *FetchUseCase) targetCodes() ([]string, error) {
	concordance, err := artifact.LoadConcordance(u.paths.NAICSProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAICS products: %w", err)
	}

	seen := make(map[string]bool)
	var codes []string
	for _, products := range concordance {
		for _, hs6 := range products.HS6Set() {
			if !seen[hs6] {
				seen[hs6] = true
				codes = append(codes, hs6)
			}
		}
	}
	sort.Strings(codes)
	return codes, nil
}
