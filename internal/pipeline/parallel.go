package pipeline

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-norm/internal/vcf"
)

// WorkItem holds a parsed variant ready for normalization.
type WorkItem struct {
	Seq     int
	Line    int // input line the variant was read from
	Variant *vcf.Variant
}

// WorkResult holds the normalization output for a single variant.
type WorkResult struct {
	Seq     int
	Line    int
	Variant *vcf.Variant
	Result  *Result
	Err     error
}

// ParallelNormalize normalizes work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (n *Normalizer) ParallelNormalize(items <-chan WorkItem, workers int) <-chan WorkResult {
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
				r, err := n.Normalize(item.Variant)
				results <- WorkResult{
					Seq:     item.Seq,
					Line:    item.Line,
					Variant: item.Variant,
					Result:  r,
					Err:     err,
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

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until their turn.
// Blocks until the results channel is closed.
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
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
