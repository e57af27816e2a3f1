package usecase

// gate bounds the number of in-flight tasks in a batch run. It is the
// admission half of the worker-pool pattern shared by the trade fetcher
// and the criticality scorer; results always flow back to a single
// collector goroutine, which alone touches the accumulator maps.
type gate chan struct{}

func newGate(limit int) gate {
	if limit < 1 {
		limit = 1
	}
	return make(gate, limit)
}

func (g gate) enter() { g <- struct{}{} }
func (g gate) leave() { <-g }

// flusher triggers a save every N completions. The final save at the end
// of a run is the caller's responsibility.
type flusher struct {
	every int
	done  int
	save  func() error
}

func newFlusher(every int, save func() error) *flusher {
	return &flusher{every: every, save: save}
}

// tick records one completion and saves when the cadence is hit.
func (f *flusher) tick() error {
	f.done++
	if f.every > 0 && f.done%f.every == 0 {
		return f.save()
	}
	return nil
}
