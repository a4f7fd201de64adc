package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ResolveBatch resolves every request with at most jobs running at once
// and returns results in input order. It stops early only when ctx is
// cancelled; per-request failures are ordinary results.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request, jobs int) ([]Result, error) {
	if jobs <= 0 {
		jobs = 1
	}
	results := make([]Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.ResolveRequest(req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
