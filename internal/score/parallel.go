package score

import (
	"runtime"
	"sync"

	"github.com/inodb/chc2go/internal/chc"
)

// WorkItem holds an accepted interaction ready for scoring.
type WorkItem struct {
	Seq         int
	Interaction *chc.Interaction
}

// WorkResult holds the pair scores for a single interaction.
type WorkResult struct {
	Seq         int
	Interaction *chc.Interaction
	Pairs       []PairScore
}

// Items feeds interactions into a work channel with sequence numbers.
func Items(recs []*chc.Interaction) <-chan WorkItem {
	ch := make(chan WorkItem, 64)
	go func() {
		defer close(ch)
		for i, rec := range recs {
			ch <- WorkItem{Seq: i, Interaction: rec}
		}
	}()
	return ch
}

// ParallelScore scores work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (s *Scorer) ParallelScore(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:         item.Seq,
					Interaction: item.Interaction,
					Pairs:       s.Score(item.Interaction),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order,
// buffering early arrivals until their turn. Blocks until results is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain so workers can exit.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
