package alarm

// serviceOptions holds configuration resolved from ServiceOption values
// passed to New.
type serviceOptions struct {
	clock              Clock
	logger             Logger
	wakeLock           WakeLockController
	wakeAlarm          WakeAlarmCallout
	dispatcherPriority bool
	metrics            MetricsCollector
}

// ServiceOption configures a Service instance.
type ServiceOption interface {
	applyService(*serviceOptions)
}

type serviceOptionFunc func(*serviceOptions)

func (f serviceOptionFunc) applyService(opts *serviceOptions) { f(opts) }

// WithClock overrides the Service's time source. Tests use this to inject
// a fake clock; production code should not need it, since DefaultClock
// already picks the right monotonic source per platform.
func WithClock(clock Clock) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.clock = clock
	})
}

// WithLogger sets the structured logger used by this Service, overriding
// the package-level default set via SetStructuredLogger.
func WithLogger(logger Logger) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.logger = logger
	})
}

// WithWakeLockController overrides the wake-lock collaborator. Defaults
// to NewNoopWakeLockController.
func WithWakeLockController(controller WakeLockController) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.wakeLock = controller
	})
}

// WithWakeAlarmCallout overrides the kernel wake-alarm collaborator.
// Defaults to NewTimerWakeAlarm.
func WithWakeAlarmCallout(callout WakeAlarmCallout) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.wakeAlarm = callout
	})
}

// WithDispatcherPriority requests that the dispatcher goroutine lock
// itself to its OS thread and attempt to raise that thread's scheduling
// priority, a best-effort analogue of a dedicated high-priority alarm
// thread. The attempt is best-effort and logged, never fatal, on
// platforms or environments that refuse the priority change.
func WithDispatcherPriority(enabled bool) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.dispatcherPriority = enabled
	})
}

// WithMetricsCollector attaches a MetricsCollector that mirrors every
// Stats update alongside the in-process aggregates, letting a Prometheus
// registry (see metrics.go) observe the service without polling.
func WithMetricsCollector(collector MetricsCollector) ServiceOption {
	return serviceOptionFunc(func(opts *serviceOptions) {
		opts.metrics = collector
	})
}

// resolveServiceOptions applies ServiceOption instances over the default
// configuration.
func resolveServiceOptions(opts []ServiceOption) *serviceOptions {
	cfg := &serviceOptions{
		clock:     DefaultClock,
		logger:    getGlobalLogger(),
		wakeLock:  NewNoopWakeLockController(getGlobalLogger()),
		wakeAlarm: NewTimerWakeAlarm(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyService(cfg)
	}
	return cfg
}
