package optimizer

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// Config holds the optimizer's runtime tunables.
type Config struct {
	// Interval between feedback cycles.
	Interval time.Duration
	// MaxOptimizationsPerCycle caps executed actions per cycle; further
	// breaches are recorded but not acted on until a later cycle.
	MaxOptimizationsPerCycle int
	// OptimizationThreshold is the minimum estimated impact an action needs
	// to be executed rather than merely recorded.
	OptimizationThreshold float64
	// AdaptiveLearning folds realized improvements back into per-kind impact
	// estimates.
	AdaptiveLearning bool
	// PredictionEnabled adds advisory loops for metrics trending toward a
	// breach.
	PredictionEnabled bool
}

// DefaultConfig returns the default optimizer configuration.
func DefaultConfig() Config {
	return Config{
		Interval:                 30 * time.Second,
		MaxOptimizationsPerCycle: 3,
		OptimizationThreshold:    0.1,
		AdaptiveLearning:         true,
	}
}

// ConfigUpdate is a partial configuration change; nil fields keep their
// current value.
type ConfigUpdate struct {
	Interval                 *time.Duration `json:"interval,omitempty"`
	MaxOptimizationsPerCycle *int           `json:"maxOptimizationsPerCycle,omitempty"`
	OptimizationThreshold    *float64       `json:"optimizationThreshold,omitempty"`
	AdaptiveLearning         *bool          `json:"adaptiveLearning,omitempty"`
	PredictionEnabled        *bool          `json:"predictionEnabled,omitempty"`
}

// Stats is a point-in-time view of the optimizer's state.
type Stats struct {
	Running               bool                   `json:"running"`
	CyclesCompleted       int64                  `json:"cycles_completed"`
	OptimizationsExecuted int64                  `json:"optimizations_executed"`
	HistoryLength         int                    `json:"history_length"`
	ActiveLoops           int                    `json:"active_loops"`
	LastCycleAt           time.Time              `json:"last_cycle_at"`
	LastSnapshot          Snapshot               `json:"last_snapshot"`
	LearnedImpacts        map[ActionKind]float64 `json:"learned_impacts,omitempty"`
	Config                Config                 `json:"config"`
}

// Optimizer is the periodic feedback loop over the engine's metrics.
type Optimizer struct {
	collector  *Collector
	applier    Applier
	thresholds []Threshold
	history    *History
	predictor  *Predictor

	config        Config
	running       bool
	cycleInFlight bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex

	logger *slog.Logger
	rng    *rand.Rand

	cycles       int64
	executed     int64
	lastCycleAt  time.Time
	lastSnapshot Snapshot
	learned      map[ActionKind]float64
}

// New creates an optimizer over a collector and an action applier.
func New(collector *Collector, applier Applier, cfg Config) *Optimizer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxOptimizationsPerCycle <= 0 {
		cfg.MaxOptimizationsPerCycle = DefaultConfig().MaxOptimizationsPerCycle
	}

	return &Optimizer{
		collector:  collector,
		applier:    applier,
		thresholds: DefaultThresholds(),
		history:    NewHistory(),
		predictor:  NewPredictor(),
		config:     cfg,
		stopCh:     make(chan struct{}),
		logger:     slog.Default(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		learned:    make(map[ActionKind]float64),
	}
}

// SetLogger sets a custom logger.
func (o *Optimizer) SetLogger(logger *slog.Logger) {
	o.logger = logger
}

// SetThresholds replaces the threshold set. Intended for tests and tuning.
func (o *Optimizer) SetThresholds(thresholds []Threshold) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.thresholds = thresholds
}

// Start begins the periodic feedback loop.
func (o *Optimizer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return apperrors.AlreadyRunning("optimizer is already running")
	}
	o.running = true
	o.stopCh = make(chan struct{})
	// Copy the interval under the lock: the loop goroutine must not read
	// o.config concurrently with Configure.
	interval := o.config.Interval
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, interval)

	o.logger.Info("feedback optimizer started", "interval", interval)
	return nil
}

// Stop halts the loop, letting an in-flight cycle finish.
func (o *Optimizer) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return apperrors.NotRunning("optimizer is not running")
	}
	o.running = false
	close(o.stopCh)
	o.mu.Unlock()

	o.wg.Wait()
	o.logger.Info("feedback optimizer stopped")
	return nil
}

// IsRunning returns whether the loop is active.
func (o *Optimizer) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Configure applies a partial configuration update. Interval changes take
// effect on the next Start.
func (o *Optimizer) Configure(update ConfigUpdate) Config {
	o.mu.Lock()
	defer o.mu.Unlock()

	if update.Interval != nil && *update.Interval > 0 {
		o.config.Interval = *update.Interval
	}
	if update.MaxOptimizationsPerCycle != nil && *update.MaxOptimizationsPerCycle > 0 {
		o.config.MaxOptimizationsPerCycle = *update.MaxOptimizationsPerCycle
	}
	if update.OptimizationThreshold != nil {
		o.config.OptimizationThreshold = *update.OptimizationThreshold
	}
	if update.AdaptiveLearning != nil {
		o.config.AdaptiveLearning = *update.AdaptiveLearning
	}
	if update.PredictionEnabled != nil {
		o.config.PredictionEnabled = *update.PredictionEnabled
	}
	return o.config
}

// ForceCycle runs one feedback cycle immediately, regardless of whether the
// periodic loop is running. Returns the loops detected in the cycle.
func (o *Optimizer) ForceCycle(ctx context.Context) ([]*FeedbackLoop, error) {
	return o.runCycle(ctx)
}

// Recommendations evaluates the current metrics and returns the corrective
// actions the optimizer would take, without executing anything.
func (o *Optimizer) Recommendations() []*FeedbackLoop {
	o.mu.Lock()
	cfg := o.config
	thresholds := o.thresholds
	o.mu.Unlock()

	snap := o.collector.Snapshot()
	loops := o.detect(snap, thresholds, cfg, false)
	sortByPriority(loops)
	return loops
}

// ClearHistory drops all recorded feedback loops and active breach markers.
func (o *Optimizer) ClearHistory() {
	o.history.Clear()
}

// History returns the recorded feedback loops, oldest first.
func (o *Optimizer) History() []*FeedbackLoop {
	return o.history.Entries()
}

// Stats returns a snapshot of the optimizer's state.
func (o *Optimizer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	learned := make(map[ActionKind]float64, len(o.learned))
	for k, v := range o.learned {
		learned[k] = v
	}

	return Stats{
		Running:               o.running,
		CyclesCompleted:       o.cycles,
		OptimizationsExecuted: o.executed,
		HistoryLength:         o.history.Len(),
		ActiveLoops:           o.history.ActiveCount(),
		LastCycleAt:           o.lastCycleAt,
		LastSnapshot:          o.lastSnapshot,
		LearnedImpacts:        learned,
		Config:                o.config,
	}
}

// run is the periodic loop.
func (o *Optimizer) run(ctx context.Context, interval time.Duration) {
	defer o.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("optimizer context cancelled")
			// The loop is dead; IsRunning and Stats must say so even though
			// Stop was never called.
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			if _, err := o.runCycle(ctx); err != nil {
				o.logger.Error("feedback cycle failed", "error", err)
			}
		}
	}
}

// runCycle executes one feedback cycle: snapshot, detect, execute the
// highest-priority actions up to the per-cycle cap. A cycle already in flight
// is never doubled; the overlapping request is skipped.
func (o *Optimizer) runCycle(ctx context.Context) ([]*FeedbackLoop, error) {
	o.mu.Lock()
	if o.cycleInFlight {
		o.mu.Unlock()
		o.logger.Debug("feedback cycle already in flight, skipping")
		return nil, nil
	}
	o.cycleInFlight = true
	cfg := o.config
	thresholds := o.thresholds
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.cycleInFlight = false
		o.mu.Unlock()
	}()

	snap := o.collector.Snapshot()
	o.predictor.Observe(snap)

	loops := o.detect(snap, thresholds, cfg, true)
	sortByPriority(loops)

	executed := 0
	for _, loop := range loops {
		o.history.Append(loop)
		if executed >= cfg.MaxOptimizationsPerCycle {
			continue
		}
		if loop.Action.EstimatedImpact < cfg.OptimizationThreshold {
			continue
		}
		o.execute(ctx, loop, cfg)
		executed++
	}

	o.mu.Lock()
	o.cycles++
	o.executed += int64(executed)
	o.lastCycleAt = time.Now()
	o.lastSnapshot = snap
	o.mu.Unlock()

	if len(loops) > 0 {
		o.logger.InfoContext(ctx, "feedback cycle completed",
			"detected", len(loops),
			"executed", executed,
		)
	}
	return loops, nil
}

// detect evaluates every threshold against the snapshot and builds a feedback
// loop per breach. When record is true, recovered metrics clear their active
// markers. Prediction adds advisory loops for healthy metrics projected to
// breach next cycle.
func (o *Optimizer) detect(snap Snapshot, thresholds []Threshold, cfg Config, record bool) []*FeedbackLoop {
	var loops []*FeedbackLoop
	for _, t := range thresholds {
		if t.NeedsSamples && snap.SampleCount == 0 {
			continue
		}
		value := snap.metric(t.Metric)
		trend := o.predictor.Trend(t.Metric)
		severity := t.Evaluate(value)

		if severity == SeverityNone {
			if record {
				o.history.Resolve(t.Metric)
			}
			if cfg.PredictionEnabled {
				if projected := value + trend; t.Evaluate(projected) != SeverityNone {
					loop := o.buildLoop(t, value, trend, SeverityLow)
					loop.Action.Params["predicted"] = true
					loop.Action.EstimatedImpact /= 2
					loops = append(loops, loop)
				}
			}
			continue
		}

		loops = append(loops, o.buildLoop(t, value, trend, severity))
	}
	return loops
}

func (o *Optimizer) buildLoop(t Threshold, value, trend float64, severity Severity) *FeedbackLoop {
	plan := planFor(t.Metric, severity)

	impact := plan.impact
	o.mu.Lock()
	if o.config.AdaptiveLearning {
		if learned, ok := o.learned[plan.kind]; ok {
			impact = learned
		}
	}
	o.mu.Unlock()

	params := plan.params
	if params == nil {
		params = make(map[string]any)
	}

	return &FeedbackLoop{
		ID:       uuid.New().String(),
		Category: t.Category,
		Trigger: Trigger{
			Metric:    t.Metric,
			Threshold: t.breached(severity),
			Value:     value,
			Trend:     trend,
			Severity:  severity,
		},
		Action: Action{
			Kind:            plan.kind,
			Params:          params,
			Priority:        plan.priority,
			EstimatedImpact: impact,
		},
		DetectedAt: time.Now(),
	}
}

// execute runs one action through the applier. Failures are recorded on the
// loop and never abort the cycle.
func (o *Optimizer) execute(ctx context.Context, loop *FeedbackLoop, cfg Config) {
	start := time.Now()
	sideEffects, err := o.applier.ApplyOptimization(ctx, loop.Action)

	result := &OptimizationResult{
		SideEffects: sideEffects,
		Duration:    time.Since(start),
	}
	if err != nil {
		o.logger.Warn("optimization action failed",
			"kind", loop.Action.Kind,
			"metric", loop.Trigger.Metric,
			"error", err,
		)
	} else {
		result.Success = true
		result.Improvement = loop.Action.EstimatedImpact * o.randFactor()
	}
	loop.Result = result

	if cfg.AdaptiveLearning {
		o.learn(loop.Action.Kind, result.Improvement)
	}
}

// learn folds a realized improvement into the per-kind impact estimate via an
// exponentially weighted moving average.
func (o *Optimizer) learn(kind ActionKind, improvement float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.learned[kind]; ok {
		o.learned[kind] = 0.7*prev + 0.3*improvement
	} else {
		o.learned[kind] = improvement
	}
}

// randFactor samples the execution noise factor in [0.8, 1.2].
func (o *Optimizer) randFactor() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return 0.8 + 0.4*o.rng.Float64()
}

// sortByPriority orders loops by priority descending, keeping detection order
// for equal priorities.
func sortByPriority(loops []*FeedbackLoop) {
	sort.SliceStable(loops, func(i, j int) bool {
		return loops[i].Action.Priority > loops[j].Action.Priority
	})
}
