package progress

import (
	"context"
	"errors"
)

// Sink consumes progress events. Implementations must be safe for repeated
// calls and may be invoked from concurrently running crawls.
type Sink interface {
	Report(ctx context.Context, evt Event) error
}

// Multi fans one event out to every sink and joins their errors. A failing
// sink never prevents the remaining sinks from observing the event.
type Multi []Sink

// Report delivers evt to each sink in order.
func (m Multi) Report(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
