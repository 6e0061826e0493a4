package driven

import (
	"context"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// RunReporter defines the driven port for delivering completed run reports
// to an external consumer. Implementations forward the structured report;
// rendering is the consumer's concern.
type RunReporter interface {
	Report(ctx context.Context, report model.RunReport) error
}
