package optimizer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// recordingApplier captures executed actions.
type recordingApplier struct {
	mu      sync.Mutex
	applied []Action
	fail    bool
}

func (a *recordingApplier) ApplyOptimization(_ context.Context, action Action) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, action)
	if a.fail {
		return nil, assert.AnError
	}
	return []string{"applied " + string(action.Kind)}, nil
}

func (a *recordingApplier) actions() []Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Action, len(a.applied))
	copy(out, a.applied)
	return out
}

func TestThresholdEvaluate_LowIsBad(t *testing.T) {
	threshold := Threshold{Metric: "m", Critical: 0.4, Low: 0.55, Medium: 0.7}

	tests := []struct {
		name     string
		value    float64
		expected Severity
	}{
		{name: "below critical", value: 0.39, expected: SeverityCritical},
		{name: "between critical and low", value: 0.5, expected: SeverityMedium},
		{name: "between low and medium", value: 0.6, expected: SeverityLow},
		{name: "at medium", value: 0.7, expected: SeverityNone},
		{name: "above medium", value: 0.9, expected: SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, threshold.Evaluate(tt.value))
		})
	}
}

func TestThresholdEvaluate_HighIsBad(t *testing.T) {
	threshold := Threshold{Metric: "m", Critical: 95, Low: 85, Medium: 75, HighIsBad: true}

	tests := []struct {
		name     string
		value    float64
		expected Severity
	}{
		{name: "above critical", value: 96, expected: SeverityCritical},
		{name: "between low and critical", value: 90, expected: SeverityMedium},
		{name: "between medium and low", value: 80, expected: SeverityLow},
		{name: "at medium", value: 75, expected: SeverityNone},
		{name: "below medium", value: 50, expected: SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, threshold.Evaluate(tt.value))
		})
	}
}

func TestForceCycle_ExecutesCappedByPriority(t *testing.T) {
	applier := &recordingApplier{}
	// One very slow, low-quality, non-converging sample plus a cold cache
	// breaches five thresholds at once: latency, quality, convergence,
	// satisfaction and cache hit rate.
	collector := NewCollector(func() float64 { return 0.01 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{
		Interval:                 time.Hour,
		MaxOptimizationsPerCycle: 3,
		OptimizationThreshold:    0,
		AdaptiveLearning:         false,
	})

	loops, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(loops), 5)

	executed := applier.actions()
	require.Len(t, executed, 3)

	// Executed actions are the highest-priority ones, in descending order.
	for i := 1; i < len(executed); i++ {
		assert.GreaterOrEqual(t, executed[i-1].Priority, executed[i].Priority)
	}
	for _, loop := range loops[3:] {
		assert.Nil(t, loop.Result)
	}
}

func TestForceCycle_DetectionOrderBreaksPriorityTies(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(time.Second, 0.2, false)

	opt := New(collector, applier, Config{Interval: time.Hour, MaxOptimizationsPerCycle: 10})
	// Both breaches land at severity low, so their planned actions tie at
	// priority 5 and detection order must decide.
	opt.SetThresholds([]Threshold{
		{Metric: MetricThroughput, Category: CategoryPerformance, Critical: 0.1, Low: 0.5, Medium: 100, NeedsSamples: true},
		{Metric: MetricConvergenceRate, Category: CategoryQuality, Critical: -1, Low: -0.5, Medium: 0.6, NeedsSamples: true},
	})

	loops, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, loops, 2)
	// Throughput breach plans reduce-iterations (priority 5); convergence
	// breach plans increase-iterations (priority 5): a stable tie.
	assert.Equal(t, MetricThroughput, loops[0].Trigger.Metric)
	assert.Equal(t, MetricConvergenceRate, loops[1].Trigger.Metric)
}

func TestForceCycle_ActionFailureNeverAbortsCycle(t *testing.T) {
	applier := &recordingApplier{fail: true}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{Interval: time.Hour, MaxOptimizationsPerCycle: 2})

	loops, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, applier.actions(), 2)

	failures := 0
	for _, loop := range loops {
		if loop.Result != nil && !loop.Result.Success {
			failures++
		}
	}
	assert.Equal(t, 2, failures)
}

func TestForceCycle_ImprovementWithinNoiseBand(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{Interval: time.Hour, MaxOptimizationsPerCycle: 1})

	loops, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)

	var executed *FeedbackLoop
	for _, loop := range loops {
		if loop.Result != nil {
			executed = loop
			break
		}
	}
	require.NotNil(t, executed)
	impact := executed.Action.EstimatedImpact
	assert.GreaterOrEqual(t, executed.Result.Improvement, 0.8*impact-1e-9)
	assert.LessOrEqual(t, executed.Result.Improvement, 1.2*impact+1e-9)
}

func TestClearHistoryZeroesStats(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{Interval: time.Hour})
	_, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)
	require.Greater(t, opt.Stats().HistoryLength, 0)
	require.Greater(t, opt.Stats().ActiveLoops, 0)

	opt.ClearHistory()
	stats := opt.Stats()
	assert.Zero(t, stats.HistoryLength)
	assert.Zero(t, stats.ActiveLoops)
}

func TestHistoryCap(t *testing.T) {
	history := NewHistory()
	for i := 0; i < historyCap+25; i++ {
		history.Append(&FeedbackLoop{Trigger: Trigger{Metric: MetricAvgQuality}})
	}
	assert.Equal(t, historyCap, history.Len())
	assert.Equal(t, 1, history.ActiveCount())
}

func TestStartStop(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(nil)
	opt := New(collector, applier, Config{Interval: time.Hour})

	require.Error(t, opt.Stop())
	assert.True(t, apperrors.IsCode(opt.Stop(), apperrors.ErrCodeNotRunning))

	require.NoError(t, opt.Start(context.Background()))
	assert.True(t, opt.IsRunning())
	err := opt.Start(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAlreadyRunning))

	require.NoError(t, opt.Stop())
	assert.False(t, opt.IsRunning())
}

func TestRecommendationsDoNotExecute(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{Interval: time.Hour})

	recs := opt.Recommendations()
	assert.NotEmpty(t, recs)
	assert.Empty(t, applier.actions())
	assert.Zero(t, opt.Stats().HistoryLength)
}

func TestAdaptiveLearningFoldsImprovements(t *testing.T) {
	applier := &recordingApplier{}
	collector := NewCollector(func() float64 { return 1 })
	collector.RecordGeneration(20*time.Second, 0.2, false)

	opt := New(collector, applier, Config{
		Interval:                 time.Hour,
		MaxOptimizationsPerCycle: 1,
		AdaptiveLearning:         true,
	})

	_, err := opt.ForceCycle(context.Background())
	require.NoError(t, err)

	stats := opt.Stats()
	require.Len(t, applier.actions(), 1)
	kind := applier.actions()[0].Kind
	assert.Contains(t, stats.LearnedImpacts, kind)
	assert.Greater(t, stats.LearnedImpacts[kind], 0.0)
}

func TestConfigureWhileRunning(t *testing.T) {
	opt := New(NewCollector(nil), &recordingApplier{}, Config{Interval: time.Hour})
	require.NoError(t, opt.Start(context.Background()))

	// Concurrent reconfiguration must not race the loop goroutine.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			interval := time.Minute
			opt.Configure(ConfigUpdate{Interval: &interval})
		}()
	}
	wg.Wait()

	require.NoError(t, opt.Stop())
	assert.Equal(t, time.Minute, opt.Stats().Config.Interval)
}

func TestContextCancelMarksStopped(t *testing.T) {
	opt := New(NewCollector(nil), &recordingApplier{}, Config{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, opt.Start(ctx))
	require.True(t, opt.IsRunning())

	cancel()
	assert.Eventually(t, func() bool { return !opt.IsRunning() }, time.Second, 5*time.Millisecond)
	assert.False(t, opt.Stats().Running)
}

func TestConfigurePartialUpdate(t *testing.T) {
	opt := New(NewCollector(nil), &recordingApplier{}, DefaultConfig())

	interval := 5 * time.Second
	maxOpts := 7
	cfg := opt.Configure(ConfigUpdate{Interval: &interval, MaxOptimizationsPerCycle: &maxOpts})
	assert.Equal(t, interval, cfg.Interval)
	assert.Equal(t, 7, cfg.MaxOptimizationsPerCycle)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultConfig().OptimizationThreshold, cfg.OptimizationThreshold)
	assert.True(t, cfg.AdaptiveLearning)
}

func TestCollectorSnapshot(t *testing.T) {
	collector := NewCollector(func() float64 { return 0.25 })
	collector.RecordGeneration(100*time.Millisecond, 0.8, true)
	collector.RecordGeneration(300*time.Millisecond, 0.6, false)

	snap := collector.Snapshot()
	assert.Equal(t, 2, snap.SampleCount)
	assert.InDelta(t, 200, snap.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 0.7, snap.AvgQuality, 1e-9)
	assert.InDelta(t, 0.5, snap.ConvergenceRate, 1e-9)
	assert.InDelta(t, 0.25, snap.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.6*0.7+0.4*0.5, snap.Satisfaction, 1e-9)
}
