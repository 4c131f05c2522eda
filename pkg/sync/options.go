package sync

import "fusioncore/internal/engine"

// CoordinatorOptions configures a Coordinator at construction time,
// following the teacher's constructor-injection style (NewMemoryStore,
// NewInMemoryService take their collaborators as arguments rather than
// reaching for globals).
type CoordinatorOptions struct {
	Equality  *EqualityRegistry
	Logger    engine.Logger
	Metrics   engine.MetricsRecorder
	Publisher Publisher
	RoundCap  int
}

// Option mutates a CoordinatorOptions during NewCoordinator.
type Option func(*CoordinatorOptions)

// WithEqualityRegistry overrides the default (empty) EqualityRegistry.
func WithEqualityRegistry(r *EqualityRegistry) Option {
	return func(o *CoordinatorOptions) { o.Equality = r }
}

// WithLogger overrides the default no-op Logger.
func WithLogger(l engine.Logger) Option {
	return func(o *CoordinatorOptions) { o.Logger = l }
}

// WithMetricsRecorder overrides the default no-op MetricsRecorder.
func WithMetricsRecorder(m engine.MetricsRecorder) Option {
	return func(o *CoordinatorOptions) { o.Metrics = m }
}

// WithPublisher installs the phase-6 publisher dispatch collaborator.
func WithPublisher(p Publisher) Option {
	return func(o *CoordinatorOptions) { o.Publisher = p }
}

// WithRoundCap overrides the phase-2 fixed-point iteration cap (default
// 100, matching the reference implementation's max_iterations).
func WithRoundCap(n int) Option {
	return func(o *CoordinatorOptions) { o.RoundCap = n }
}

func defaultOptions() CoordinatorOptions {
	return CoordinatorOptions{
		Equality: NewEqualityRegistry(),
		Logger:   engine.NewNoopLogger(),
		Metrics:  engine.NewNoopMetricsRecorder(),
		RoundCap: 100,
	}
}
