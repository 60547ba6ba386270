package sector_test

import (
	"context"
	"embed"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
	"github.com/viant/afs/file"
	"github.com/viant/sector"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/dispatch"
	"github.com/viant/sector/service/event"
)

//go:embed testdata/*
var embedFS embed.FS

const testTimeout = 5 * time.Second

func blocking(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func ticking(ctx context.Context, ex *processor.Execution) error {
	for !ex.BreakPoint("tick") {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

func TestLoadConfig(t *testing.T) {
	testCases := []struct {
		description string
		URL         string
		expectErr   bool
	}{
		{description: "valid", URL: "embed:///testdata/sector.yaml"},
		{description: "invalid", URL: "embed:///testdata/invalid.yaml", expectErr: true},
		{description: "missing", URL: "embed:///testdata/missing.yaml", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			cfg, err := sector.LoadConfig(context.Background(), testCase.URL, &embedFS)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "app", cfg.Runtime.Name)
			assert.Equal(t, 2*time.Second, cfg.Runtime.InterruptGrace)
			assert.Equal(t, 50, cfg.Events.Buffer)
			assert.Equal(t, 100, cfg.Reports.Limit)
			assert.Equal(t, "sector", cfg.Tracing.Service)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := sector.DefaultConfig()
	require.NoError(t, cfg.Validate())
	cfg.Events.Vendor = "fs"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.baseURL")
	_, err = sector.NewFromConfig(cfg)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := sector.LoadConfig(context.Background(), "embed:///testdata/sector.yaml", &embedFS)
	require.NoError(t, err)
	srv, err := sector.NewFromConfig(cfg)
	require.NoError(t, err)

	region, err := srv.Transaction().String("region")
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)

	rt := srv.Runtime()
	require.NoError(t, rt.Start(context.Background()))
	rate, err := rt.Root().Transaction().Int("rate")
	require.NoError(t, err)
	assert.Equal(t, 10, rate)
	require.NoError(t, rt.SetConfigured("/app", "rate", 20))
	rate, err = rt.Root().Transaction().Int("rate")
	require.NoError(t, err)
	assert.Equal(t, 20, rate)
	assert.Error(t, rt.SetConfigured("/app", "region", "eu"))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, rt.Shutdown(ctx))
}

func TestRuntime_RoundTrip(t *testing.T) {
	srv, err := sector.New(sector.WithName("app"), sector.WithInterruptGrace(time.Second))
	require.NoError(t, err)
	rt := srv.Runtime()

	notices := make(chan sector.Notice, 10)
	require.NoError(t, rt.OnNotice(func(e *event.Event[sector.Notice]) {
		notices <- e.Data
	}))
	assert.ErrorIs(t, rt.Dispatch(context.Background(), dispatch.Call(blocking)), sector.ErrNotStarted)

	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	assert.ErrorIs(t, rt.Start(ctx), sector.ErrAlreadyStarted)

	a := dispatch.Routine(ticking, []string{"tick"}, processor.WithName("a"))
	require.NoError(t, rt.Dispatch(ctx, a))
	workers := processor.NewSector(nil, processor.WithName("workers"), processor.WithPersistent())
	require.NoError(t, rt.Dispatch(ctx, workers))
	b := dispatch.Call(blocking, processor.WithName("b"))
	require.NoError(t, rt.Dispatch(ctx, b, sector.Under("/app/workers")))
	assert.ErrorIs(t, rt.Dispatch(ctx, dispatch.Call(blocking), sector.Under("/app/a")), sector.ErrNotSector)

	resource, err := rt.Lookup("/app/workers/b")
	require.NoError(t, err)
	assert.Equal(t, b.ID(), resource.ID())
	_, err = rt.Lookup("/app/missing")
	assert.ErrorIs(t, err, sector.ErrNotFound)
	_, err = rt.Lookup("/other")
	assert.ErrorIs(t, err, sector.ErrNotFound)
	status, err := rt.Status("/app/a")
	require.NoError(t, err)
	assert.Equal(t, processor.StateRunning, status)

	snapshot, err := rt.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 4, snapshot.Len())

	require.NoError(t, rt.Interrupt("/app/workers/b"))
	select {
	case notice := <-notices:
		assert.Equal(t, "/app/workers/b", notice.Path)
		assert.Equal(t, processor.StateInterrupted, notice.State)
	case <-time.After(testTimeout):
		t.Fatal("exit notice was not delivered")
	}

	require.NoError(t, rt.Terminate("/app"))
	waitCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	report, err := rt.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, processor.StateTerminated, report.State)
	assert.Equal(t, processor.CauseTerminated, report.Cause)
	assert.True(t, report.Noted(b.ID()))
	assert.False(t, report.Noted(a.ID()))

	interrupted, err := rt.Reports(ctx, processor.StateInterrupted)
	require.NoError(t, err)
	require.Len(t, interrupted, 1)
	assert.Equal(t, b.ID(), interrupted[0].ID)
	all, err := rt.Reports(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	require.NoError(t, rt.Shutdown(waitCtx))
}

func TestRuntime_ShutdownEscalates(t *testing.T) {
	srv, err := sector.New(sector.WithName("svc"))
	require.NoError(t, err)
	rt := srv.Runtime()
	assert.ErrorIs(t, rt.Shutdown(context.Background()), sector.ErrNotStarted)

	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	call := dispatch.Call(blocking, processor.WithName("call"))
	require.NoError(t, rt.Dispatch(ctx, call))
	assert.ErrorIs(t, rt.Terminate("/svc/call"), processor.ErrTerminationUnsupported)

	shutdownCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	require.NoError(t, rt.Shutdown(shutdownCtx))
	report := rt.Root().Report()
	require.NotNil(t, report)
	assert.Equal(t, processor.StateTerminated, report.State)
	assert.True(t, report.Noted(call.ID()))
}

func TestRuntime_ConfigSource(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/sector/app/config.yaml"
	require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader("rate: 42\n")))

	srv, err := sector.New(
		sector.WithName("app"),
		sector.WithFs(fs),
		sector.WithConfigured(state.Configured("rate", 1)),
		sector.WithEnvironment(state.Environment("zone", "a")),
		sector.WithConfigSource(URL, 5*time.Millisecond),
	)
	require.NoError(t, err)
	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	rate, err := rt.Root().Transaction().Int("rate")
	require.NoError(t, err)
	assert.Equal(t, 42, rate)

	require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader("rate: 43\n")))
	require.Eventually(t, func() bool {
		rate, _ := rt.Root().Transaction().Int("rate")
		return rate == 43
	}, testTimeout, time.Millisecond)
	status, err := rt.Status("/app/config")
	require.NoError(t, err)
	assert.Equal(t, processor.StateRunning, status)

	shutdownCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	require.NoError(t, rt.Shutdown(shutdownCtx))
	report := rt.Root().Report()
	assert.Equal(t, processor.StateTerminated, report.State)
	assert.Empty(t, report.Interrupted)
}

func TestRuntime_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv, err := sector.New(sector.WithName("app"), sector.WithMetrics(registry))
	require.NoError(t, err)
	rt := srv.Runtime()
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))

	call := dispatch.Call(func(ctx context.Context) error { return nil }, processor.WithName("once"))
	require.NoError(t, rt.Dispatch(ctx, call))
	<-call.Done()
	require.NoError(t, rt.Terminate("/app"))
	waitCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()
	_, err = rt.Wait(waitCtx)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	completed := 0.0
	for _, family := range families {
		if family.GetName() != "sector_processor_exits_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["kind"] == "call" && labels["cause"] == string(processor.CauseCompleted) {
				completed += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, completed)

	_, err = sector.New(sector.WithMetrics(registry))
	assert.Error(t, err)
}

func TestNew_Declarations(t *testing.T) {
	testCases := []struct {
		description  string
		declarations []string
		expectErr    bool
	}{
		{description: "typed environment and configured", declarations: []string{"region[string](environment/cluster)", "rate[int](configured)", "burst[int](configured)"}},
		{description: "environment without value", declarations: []string{"zone[string](environment)"}, expectErr: true},
		{description: "requisite on root", declarations: []string{"input[string](requisite)"}, expectErr: true},
		{description: "malformed", declarations: []string{"rate(configured)"}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv, err := sector.New(sector.WithName("app"),
				sector.WithEnvironment(state.Environment("region", "us-east-1")),
				sector.WithConfigured(state.Configured("rate", "10")),
				sector.WithDeclarations(testCase.declarations...))
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			rt := srv.Runtime()
			require.NoError(t, rt.Start(context.Background()))
			defer rt.Interrupt("/app")

			txn := rt.Root().Transaction()
			rate, err := txn.Value("rate")
			require.NoError(t, err)
			assert.Equal(t, 10, rate)
			binding, err := txn.Resolve("region")
			require.NoError(t, err)
			require.NotNil(t, binding.Location)
			assert.Equal(t, "cluster", binding.Location.In)

			require.NoError(t, rt.SetConfigured("/app", "burst", "20"))
			burst, err := txn.Value("burst")
			require.NoError(t, err)
			assert.Equal(t, 20, burst)
			assert.Error(t, rt.SetConfigured("/app", "burst", "many"))
		})
	}
}
