package sink

import (
	"context"
	"errors"

	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Multi writes every row to each sink in order. A failing sink does not stop
// the others; all failures are joined.
type Multi []tracker.Sink

func (m Multi) WriteRow(ctx context.Context, row types.Row) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRow(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
