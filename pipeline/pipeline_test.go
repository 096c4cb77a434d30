package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/matching"
	"github.com/Full-finger/Loquat-sub001/message"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/pool"
	"github.com/Full-finger/Loquat-sub001/testutil"
	"github.com/Full-finger/Loquat-sub001/worker"
)

func userPkg(name string) message.Package {
	return message.New(name, []message.TargetSite{message.NewTargetSite(name, message.UserSite(name))})
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	logger, _ := testutil.NewCaptureLogger()
	return New("test", append([]Option{WithLogger(logger)}, opts...)...)
}

func TestNew_PoolLayout(t *testing.T) {
	p := newTestPipeline(t)

	pools := p.Pools()
	require.Len(t, pools, 9)
	for i, typ := range pool.Types() {
		assert.Equal(t, typ, pools[i].Type())
		assert.Equal(t, "test."+typ.String(), pools[i].ID())
	}

	got, err := p.Pool(pool.PostProcess)
	require.NoError(t, err)
	assert.Equal(t, "test.post_process", got.ID())

	_, err = p.Pool(pool.Type(99))
	assert.ErrorIs(t, err, errors.ErrInvalidFormat)
}

func TestProcess_StageOrdering(t *testing.T) {
	p := newTestPipeline(t)

	var visited []string
	for _, typ := range pool.Types() {
		name := typ.String()
		w := worker.New("trace-"+name, worker.Custom("trace"), nil,
			func(context.Context, []message.Package) worker.Result {
				visited = append(visited, name)
				return worker.Release()
			})
		require.NoError(t, p.Register(typ, worker.NewRegistration(w, matching.All(), 0)))
	}

	in := userPkg("alice")
	out, err := p.Process(context.Background(), []message.Package{in})
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, in.ID(), out[0].ID())
	assert.Equal(t, []string{
		"pre_input", "input", "input_middle",
		"pre_process", "process_middle", "process",
		"post_process", "output", "post_output",
	}, visited)
}

func TestProcess_EmptyPipelinePassesThrough(t *testing.T) {
	p := newTestPipeline(t)
	batch := []message.Package{userPkg("a"), userPkg("b")}

	out, err := p.Process(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, batch, out)
}

func TestProcess_ModifyCarriesIntoLaterStages(t *testing.T) {
	p := newTestPipeline(t)

	tag := worker.New("tagger", worker.TypePreProcess, worker.MatchSiteType(message.UserSite("raw")),
		func(_ context.Context, pkgs []message.Package) worker.Result {
			return worker.Modify(pkgs[0].WithTargetSites(
				message.NewTargetSite("clean", message.UserSite("clean"))))
		})
	var seenAtOutput []string
	out := worker.New("sink", worker.TypeOutput, nil,
		func(_ context.Context, pkgs []message.Package) worker.Result {
			seenAtOutput = append(seenAtOutput, message.SiteStrings(pkgs[0].TargetSites())...)
			return worker.Release()
		})
	require.NoError(t, p.RegisterThirdParty(pool.PreProcess, worker.NewRegistration(tag, matching.All(), 0)))
	require.NoError(t, p.RegisterThirdParty(pool.Output, worker.NewRegistration(out, matching.All(), 0)))

	released, err := p.Process(context.Background(), []message.Package{userPkg("raw")})
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, []string{"clean@user:clean"}, seenAtOutput)
}

func TestRegisterThirdParty_ReservedStages(t *testing.T) {
	p := newTestPipeline(t)
	reg := worker.NewRegistration(worker.New("plugin", worker.TypeProcess, nil, nil), matching.All(), 0)

	for _, typ := range pool.Types() {
		err := p.RegisterThirdParty(typ, reg)
		if typ.AllowsThirdParty() {
			assert.NoError(t, err, typ.String())
			continue
		}
		require.Error(t, err, typ.String())
		assert.ErrorIs(t, err, errors.ErrInvalidFormat)
		assert.Equal(t, errors.KindConfig, errors.KindOf(err))
	}

	// framework registration is open everywhere
	assert.NoError(t, p.Register(pool.PreInput, reg))
}

func TestUnregister(t *testing.T) {
	p := newTestPipeline(t)
	reg := worker.NewRegistration(worker.New("w", worker.TypeInput, nil, nil), matching.All(), 0)
	require.NoError(t, p.RegisterThirdParty(pool.Input, reg))

	require.NoError(t, p.Unregister(pool.Input, "w"))
	assert.ErrorIs(t, p.Unregister(pool.Input, "w"), errors.ErrMissingRequired)
}

func TestProcess_Cancellation(t *testing.T) {
	p := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())

	stopper := worker.New("stopper", worker.TypeInput, nil,
		func(context.Context, []message.Package) worker.Result {
			cancel()
			return worker.Release()
		})
	var reachedOutput bool
	later := worker.New("later", worker.TypeOutput, nil,
		func(context.Context, []message.Package) worker.Result {
			reachedOutput = true
			return worker.Release()
		})
	require.NoError(t, p.RegisterThirdParty(pool.Input, worker.NewRegistration(stopper, matching.All(), 0)))
	require.NoError(t, p.RegisterThirdParty(pool.Output, worker.NewRegistration(later, matching.All(), 0)))

	_, err := p.Process(ctx, []message.Package{userPkg("a"), userPkg("b")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, reachedOutput)
}

func TestHealth(t *testing.T) {
	p := newTestPipeline(t)

	status := p.Health()
	assert.True(t, status.IsHealthy())
	assert.Len(t, status.SubStatuses, 9)

	x := message.WorkerSite("x")
	looper := worker.New("looper", worker.TypeProcess, worker.MatchSiteType(x),
		func(_ context.Context, pkgs []message.Package) worker.Result {
			return worker.Modify(pkgs[0])
		})
	require.NoError(t, p.RegisterThirdParty(pool.Process, worker.NewRegistration(looper, matching.All(), 0)))

	_, err := p.Process(context.Background(), []message.Package{
		message.New(nil, []message.TargetSite{message.NewTargetSite("x", x)}),
	})
	require.NoError(t, err)

	status = p.Health()
	assert.True(t, status.IsDegraded())
	sub := status.SubStatuses[pool.Process]
	assert.Equal(t, "test.process", sub.Component)
	assert.True(t, sub.IsDegraded())
	require.NotNil(t, sub.Metrics)
	assert.Equal(t, 1, sub.Metrics.ErrorCount)
}

func TestWithPool(t *testing.T) {
	custom := pool.NewStandardPool("custom-output", pool.Output)
	p := newTestPipeline(t, WithPool(custom))

	got, err := p.Pool(pool.Output)
	require.NoError(t, err)
	assert.Same(t, custom, got)
}

type collectSink struct {
	mu   sync.Mutex
	pkgs []message.Package
}

func (s *collectSink) Deliver(_ context.Context, pkgs []message.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkgs = append(s.pkgs, pkgs...)
	return nil
}

func (s *collectSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pkgs)
}

func TestRunner_DeliversReleased(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p := newTestPipeline(t, WithMetrics(registry))

	drop := worker.New("drop-bots", worker.TypeInput, worker.MatchSiteType(message.BotSite("spam")),
		func(context.Context, []message.Package) worker.Result { return worker.Drop() })
	require.NoError(t, p.RegisterThirdParty(pool.Input, worker.NewRegistration(drop, matching.All(), 0)))

	sink := &collectSink{}
	r := NewRunner(p, sink, RunnerConfig{Workers: 2, QueueSize: 16}, WithRunnerMetrics(registry))
	require.NoError(t, r.Start(context.Background()))

	spam := message.New(nil, []message.TargetSite{message.NewTargetSite("spam", message.BotSite("spam"))})
	for i := 0; i < 5; i++ {
		require.NoError(t, r.SubmitWait(context.Background(), []message.Package{userPkg("u")}))
	}
	require.NoError(t, r.Submit([]message.Package{spam}))

	require.NoError(t, r.Stop(time.Second))
	assert.Equal(t, 5, sink.len())
	assert.Equal(t, int64(6), r.Stats().Processed)
}

func TestRunner_WorkerNeverOverlapsItself(t *testing.T) {
	p := newTestPipeline(t)

	var inFlight, peak atomic.Int32
	slow := worker.New("slow", worker.TypeProcess, nil,
		func(context.Context, []message.Package) worker.Result {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return worker.Release()
		})
	require.NoError(t, p.RegisterThirdParty(pool.Process, worker.NewRegistration(slow, matching.All(), 0)))

	sink := &collectSink{}
	r := NewRunner(p, sink, RunnerConfig{Workers: 4, QueueSize: 16})
	require.NoError(t, r.Start(context.Background()))
	for i := 0; i < 8; i++ {
		require.NoError(t, r.SubmitWait(context.Background(), []message.Package{userPkg("u")}))
	}
	require.NoError(t, r.Stop(5*time.Second))

	assert.Equal(t, 8, sink.len())
	assert.Equal(t, int32(1), peak.Load())
}

func TestRunner_SinkError(t *testing.T) {
	p := newTestPipeline(t)
	failing := SinkFunc(func(context.Context, []message.Package) error {
		return errors.IO(assert.AnError, "test", "Deliver", "write")
	})

	r := NewRunner(p, failing, RunnerConfig{Workers: 1, QueueSize: 4})
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Submit([]message.Package{userPkg("a")}))
	require.NoError(t, r.Stop(time.Second))

	assert.Equal(t, int64(1), r.Stats().Failed)
}

func TestMetricPrefix(t *testing.T) {
	assert.Equal(t, "loquat_bot_main_runner", metricPrefix("bot-main"))
	assert.Equal(t, "loquat_a_b_runner", metricPrefix("a.b"))
}
