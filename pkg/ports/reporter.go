package ports

import (
	"context"

	"github.com/aretw0/ledgerchat/pkg/domain"
)

// ErrorReporter receives the structured context of every classified failure.
type ErrorReporter interface {
	Report(ctx context.Context, ec domain.ErrorContext)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(ctx context.Context, ec domain.ErrorContext)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, ec domain.ErrorContext) {
	f(ctx, ec)
}
