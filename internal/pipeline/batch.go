package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// chunkResult tags a chunk's output with its position in the input.
type chunkResult[R any] struct {
	index  int
	values []R
}

// MapOrdered splits items into contiguous chunks of chunkSize, runs fn on every
// chunk concurrently (at most limit at once; limit <= 0 means unbounded), and
// returns the outputs flattened in chunk order. Completion order does not
// affect the result. fn must not retain or mutate its chunk.
func MapOrdered[T, R any](ctx context.Context, items []T, chunkSize, limit int, fn func(ctx context.Context, chunk []T) []R) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(items)
	}
	chunks := (len(items) + chunkSize - 1) / chunkSize

	results := make(chan chunkResult[R], chunks)
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for idx := range chunks {
		lo := idx * chunkSize
		chunk := items[lo:min(lo+chunkSize, len(items))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results <- chunkResult[R]{index: idx, values: fn(gctx, chunk)}
			return nil
		})
	}

	err := g.Wait()
	close(results)
	if err != nil {
		return nil, err
	}

	ordered := make([][]R, chunks)
	for res := range results {
		ordered[res.index] = res.values
	}
	out := make([]R, 0, len(items))
	for _, values := range ordered {
		out = append(out, values...)
	}
	return out, nil
}
