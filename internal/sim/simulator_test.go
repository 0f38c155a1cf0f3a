package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/integrators"
	"github.com/san-kum/psmcsim/internal/physics"
	"github.com/san-kum/psmcsim/internal/states"
)

var testParams = physics.Params{
	U01: 6.036, U01Quad: -0.599, U12: 8.451, C1: 114.609, C2: 11.362,
	ACIS50: 54.192, ACIS90: 26.975, ACIS150: 28.029,
	HRCI50: 38.543, HRCI90: 28.053, HRCI150: 32.977,
	HRCS50: 30.715, HRCS90: 30.013, HRCS150: 37.265,
}

func pitchSteps() []states.State {
	return []states.State{
		{Start: 0, Stop: 10000, Power: 60, Pitch: 100, SimPos: 75766},
		{Start: 10000, Stop: 20000, Power: 60, Pitch: 80, SimPos: 75766},
		{Start: 20000, Stop: 30000, Power: 60, Pitch: 60, SimPos: 75766},
	}
}

type countingSolver struct {
	Solver
	calls atomic.Int64
}

func (c *countingSolver) Solve(seg *physics.Segment, elapsed []float64, ti dynamo.Vector) ([]dynamo.Vector, error) {
	c.calls.Add(1)
	return c.Solver.Solve(seg, elapsed, ti)
}

func newTestSim() *Simulator {
	return New(integrators.NewAnalytic(), testParams, dynamo.DefaultConfig())
}

func TestSampleTimes(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		count    int
	}{
		{"zero duration", 0, 2},
		{"shorter than dt", 10, 3},
		{"exactly dt", dynamo.DefaultDt, 3},
		{"ten ksec", 10000, 306},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleTimes(tt.duration, dynamo.DefaultDt)
			if len(got) != tt.count {
				t.Fatalf("len = %d, want %d", len(got), tt.count)
			}
			if got[0] != 0 || got[len(got)-1] != tt.duration {
				t.Errorf("endpoints = (%v, %v), want (0, %v)", got[0], got[len(got)-1], tt.duration)
			}
			for i := 1; i < len(got); i++ {
				if got[i] < got[i-1] {
					t.Fatalf("not monotonic at %d", i)
				}
			}
		})
	}
}

func TestRunSingleState(t *testing.T) {
	ss := []states.State{{Start: 0, Stop: 10000, Power: 100, Pitch: 60, SimPos: 75766}}
	result, err := newTestSim().Run(context.Background(), ss, 35, 45)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	tr := result.Trajectory
	if tr.Len() != 306 {
		t.Fatalf("expected 306 samples, got %d", tr.Len())
	}

	tt, x := tr.Last()
	if tt != 10000 {
		t.Errorf("last sample at %v, want 10000", tt)
	}
	c := x.Celsius()
	if math.Abs(c[0]-32.085422) > 1e-4 || math.Abs(c[1]-44.223793) > 1e-4 {
		t.Errorf("final temperatures %v, want (32.085422, 44.223793)", c)
	}

	_, x0 := tr.At(0)
	if d := x0.Celsius().Sub(dynamo.Vector{35, 45}).Norm(); d > 1e-9 {
		t.Errorf("first sample differs from initial temperatures by %g", d)
	}
}

func TestRunCarriesStateForward(t *testing.T) {
	result, err := newTestSim().Run(context.Background(), pitchSteps(), 35, 45)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Segments != 3 || result.Trajectory.Len() != 918 {
		t.Fatalf("got %d segments and %d samples, want 3 and 918", result.Segments, result.Trajectory.Len())
	}
	wantBounds := []int{0, 306, 612}
	for i, b := range wantBounds {
		if result.Bounds[i] != b {
			t.Errorf("Bounds[%d] = %d, want %d", i, result.Bounds[i], b)
		}
	}

	for _, b := range result.Bounds[1:] {
		t0, x0 := result.Trajectory.At(b - 1)
		t1, x1 := result.Trajectory.At(b)
		if t0 != t1 || x0 != x1 {
			t.Errorf("discontinuity at sample %d: (%v, %v) -> (%v, %v)", b, t0, x0, t1, x1)
		}
	}

	wantEnds := []dynamo.Vector{
		{22.0686, 30.6254},
		{16.5274, 24.2565},
		{17.8747, 24.8308},
	}
	for i, want := range wantEnds {
		end := 306*(i+1) - 1
		_, x := result.Trajectory.At(end)
		if d := x.Celsius().Sub(want).Norm(); d > 1e-3 {
			t.Errorf("segment %d ends at %v, want %v", i, x.Celsius(), want)
		}
	}
}

func TestRunZeroDurationState(t *testing.T) {
	ss := []states.State{
		{Start: 0, Stop: 1000, Power: 60, Pitch: 100},
		{Start: 1000, Stop: 1000, Power: 120, Pitch: 150},
		{Start: 1000, Stop: 2000, Power: 60, Pitch: 100},
	}
	result, err := newTestSim().Run(context.Background(), ss, 30, 40)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	b := result.Bounds[1]
	_, before := result.Trajectory.At(b - 1)
	_, a := result.Trajectory.At(b)
	_, z := result.Trajectory.At(b + 1)
	if before != a || a != z {
		t.Errorf("zero-length state changed temperatures: %v %v %v", before, a, z)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		ss     []states.State
		pin0   float64
		params physics.Params
		want   error
	}{
		{"no states", nil, 30, testParams, dynamo.ErrInvalidStateSequence},
		{"gap", []states.State{{Start: 0, Stop: 10}, {Start: 20, Stop: 30}}, 30, testParams, dynamo.ErrInvalidStateSequence},
		{"nan pitch", []states.State{{Start: 0, Stop: 10, Pitch: math.NaN()}}, 30, testParams, dynamo.ErrNumericDomain},
		{"nan initial", []states.State{{Start: 0, Stop: 10, Pitch: 90}}, math.NaN(), testParams, dynamo.ErrNumericDomain},
		{"zero capacitance", []states.State{{Start: 0, Stop: 10, Pitch: 90}}, 30, physics.Params{U01: 1, U12: 1}, dynamo.ErrModelConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(integrators.NewAnalytic(), tt.params, dynamo.DefaultConfig())
			_, err := s.Run(context.Background(), tt.ss, tt.pin0, 40)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunReportsSegment(t *testing.T) {
	p := testParams
	p.C2 = -1
	ss := []states.State{{Start: 0, Stop: 100, Pitch: 90}}

	_, err := New(integrators.NewAnalytic(), p, dynamo.DefaultConfig()).Run(context.Background(), ss, 30, 40)
	var segErr *dynamo.SegmentError
	if !errors.As(err, &segErr) {
		t.Fatalf("expected SegmentError, got %v", err)
	}
	if segErr.Index != 0 {
		t.Errorf("segment index = %d, want 0", segErr.Index)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSim().Run(ctx, pitchSteps(), 35, 45)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	for _, dt := range []float64{0, -1, math.NaN()} {
		s := New(integrators.NewAnalytic(), testParams, dynamo.Config{Dt: dt})
		if _, err := s.Run(context.Background(), pitchSteps(), 35, 45); err == nil {
			t.Errorf("dt=%v: expected error", dt)
		}
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	times := []float64{0, 5000, 10000, 15000, 29999, 30000, 40000}
	pin1, dea1, err := Predict(context.Background(), pitchSteps(), 35, 45, times, testParams, 0)
	if err != nil {
		t.Fatal(err)
	}
	pin2, dea2, _ := Predict(context.Background(), pitchSteps(), 35, 45, times, testParams, 0)

	for i := range times {
		if pin1[i] != pin2[i] || dea1[i] != dea2[i] {
			t.Errorf("t=%v: repeated predictions differ", times[i])
		}
	}
	if math.Abs(pin1[0]-35) > 1e-9 || math.Abs(dea1[0]-45) > 1e-9 {
		t.Errorf("prediction at start = (%v, %v), want (35, 45)", pin1[0], dea1[0])
	}
	if pin1[5] != pin1[6] || dea1[5] != dea1[6] {
		t.Error("expected flat hold after the last state")
	}
}

func TestPredictMatchesRK4(t *testing.T) {
	times := []float64{1000, 9000, 21000, 30000}
	exactPin, exactDea, err := Predict(context.Background(), pitchSteps(), 35, 45, times, testParams, 0)
	if err != nil {
		t.Fatal(err)
	}

	s := New(integrators.NewRK4(), testParams, dynamo.DefaultConfig())
	pin, dea, err := s.Predict(context.Background(), pitchSteps(), 35, 45, times)
	if err != nil {
		t.Fatal(err)
	}
	for i := range times {
		if math.Abs(pin[i]-exactPin[i]) > 1e-4 || math.Abs(dea[i]-exactDea[i]) > 1e-4 {
			t.Errorf("t=%v: rk4 (%v, %v) vs analytic (%v, %v)", times[i], pin[i], dea[i], exactPin[i], exactDea[i])
		}
	}
}

func TestInterpolate(t *testing.T) {
	xs := []float64{0, 10, 10, 20}
	ys := []float64{0, 1, 1, 3}

	tests := []struct {
		at   float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{5, 0.5},
		{10, 1},
		{15, 2},
		{20, 3},
		{25, 3},
	}
	at := make([]float64, len(tests))
	for i, tt := range tests {
		at[i] = tt.at
	}
	got, err := Interpolate(xs, ys, at)
	if err != nil {
		t.Fatal(err)
	}

	for i, tt := range tests {
		if math.Abs(got[i]-tt.want) > 1e-12 {
			t.Errorf("Interpolate(%v) = %v, want %v", tt.at, got[i], tt.want)
		}
	}

	if _, err := Interpolate(nil, nil, at); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Interpolate([]float64{0, 2, 1}, []float64{0, 1, 2}, at); err == nil {
		t.Error("expected error for decreasing sample times")
	}

	single, err := Interpolate([]float64{5}, []float64{7}, []float64{0, 5, 10})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range single {
		if v != 7 {
			t.Errorf("single sample [%d] = %v, want 7", i, v)
		}
	}
}

func TestPredictRejectsNaNTimes(t *testing.T) {
	ss := []states.State{{Start: 0, Stop: 10000, Power: 100, Pitch: 60, SimPos: 75766}}
	bad := [][]float64{
		{0, math.NaN(), 5000},
		{math.Inf(1)},
		{0, math.Inf(-1)},
	}

	memo, err := NewMemo(integrators.NewAnalytic(), dynamo.DefaultConfig(), ss, 35, 45, 4)
	if err != nil {
		t.Fatal(err)
	}

	for _, times := range bad {
		_, _, err := Predict(context.Background(), ss, 35, 45, times, testParams, 0)
		if !errors.Is(err, dynamo.ErrNumericDomain) {
			t.Errorf("Predict(%v): expected ErrNumericDomain, got %v", times, err)
		}
		_, _, err = memo.Predict(context.Background(), testParams, times)
		if !errors.Is(err, dynamo.ErrNumericDomain) {
			t.Errorf("Memo.Predict(%v): expected ErrNumericDomain, got %v", times, err)
		}

		tr := &dynamo.Trajectory{Times: []float64{0, 10}, Temps: []dynamo.Vector{{0, 0}, {1, 1}}}
		if _, _, err := Resample(tr, times); !errors.Is(err, dynamo.ErrNumericDomain) {
			t.Errorf("Resample(%v): expected ErrNumericDomain, got %v", times, err)
		}
	}
}

func TestResampleAtSampleTimesIsExact(t *testing.T) {
	result, err := newTestSim().Run(context.Background(), pitchSteps(), 35, 45)
	if err != nil {
		t.Fatal(err)
	}
	tr := result.Trajectory
	if tr.Len() != 918 {
		t.Fatalf("len = %d, want 918", tr.Len())
	}

	pin, dea, err := Resample(tr, tr.Times)
	if err != nil {
		t.Fatal(err)
	}
	wantPin := tr.Channel(dynamo.NodePIN, true)
	wantDea := tr.Channel(dynamo.NodeDEA, true)
	for i := range tr.Times {
		if pin[i] != wantPin[i] || dea[i] != wantDea[i] {
			t.Fatalf("sample %d at t=%v: resampled (%v, %v), stored (%v, %v)",
				i, tr.Times[i], pin[i], dea[i], wantPin[i], wantDea[i])
		}
	}

	for _, b := range result.Bounds[1:] {
		if tr.Times[b] != tr.Times[b-1] {
			t.Errorf("boundary %d: times %v and %v differ", b, tr.Times[b-1], tr.Times[b])
		}
	}
}

func TestRunSnapsOverlappingStarts(t *testing.T) {
	ss := pitchSteps()
	ss[1].Start += 5e-7
	ss[2].Start -= 5e-7

	result, err := newTestSim().Run(context.Background(), ss, 35, 45)
	if err != nil {
		t.Fatal(err)
	}
	times := result.Trajectory.Times
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			t.Fatalf("time decreases at %d: %v after %v", i, times[i], times[i-1])
		}
	}
	for k, b := range result.Bounds[1:] {
		if times[b] != ss[k].Stop {
			t.Errorf("segment %d starts at %v, want previous stop %v", k+1, times[b], ss[k].Stop)
		}
	}
}

func TestInstrumentsRecordRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	inst, err := NewInstruments(reg)
	if err != nil {
		t.Fatal(err)
	}

	s := newTestSim()
	s.SetInstruments(inst)
	if _, err := s.Run(context.Background(), pitchSteps(), 35, 45); err != nil {
		t.Fatal(err)
	}
	_, _ = s.Run(context.Background(), nil, 35, 45)

	if got := testutil.ToFloat64(inst.Runs.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(inst.Runs.WithLabelValues("invalid_states")); got != 1 {
		t.Errorf("invalid_states runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(inst.Segments); got != 3 {
		t.Errorf("segments = %v, want 3", got)
	}

	if _, err := NewInstruments(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMemoReusesTrajectory(t *testing.T) {
	solver := &countingSolver{Solver: integrators.NewAnalytic()}
	ss := pitchSteps()
	memo, err := NewMemo(solver, dynamo.DefaultConfig(), ss, 35, 45, 4)
	if err != nil {
		t.Fatal(err)
	}
	ss[0].Power = 500

	times := []float64{5000, 25000}
	pin1, _, err := memo.Predict(context.Background(), testParams, times)
	if err != nil {
		t.Fatal(err)
	}
	calls := solver.calls.Load()
	pin2, _, _ := memo.Predict(context.Background(), testParams, times)
	if solver.calls.Load() != calls {
		t.Error("second prediction with identical params ran the solver")
	}
	if pin1[0] != pin2[0] || pin1[1] != pin2[1] {
		t.Error("memoized prediction differs")
	}

	want, _, _ := Predict(context.Background(), pitchSteps(), 35, 45, times, testParams, 0)
	if pin1[0] != want[0] {
		t.Error("memo saw the caller's later change to the states")
	}

	other := testParams
	other.C1 = 100
	if _, _, err := memo.Predict(context.Background(), other, times); err != nil {
		t.Fatal(err)
	}

	st := memo.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Size != 2 {
		t.Errorf("stats = %+v, want 1 hit, 2 misses, size 2", st)
	}
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	memo, err := NewMemo(integrators.NewAnalytic(), dynamo.DefaultConfig(), pitchSteps(), 35, 45, 0)
	if err != nil {
		t.Fatal(err)
	}

	bad := testParams
	bad.C1 = 0
	for i := 0; i < 2; i++ {
		if _, err := memo.Trajectory(context.Background(), bad); !errors.Is(err, dynamo.ErrModelConfiguration) {
			t.Fatalf("expected ErrModelConfiguration, got %v", err)
		}
	}
	if memo.Stats().Size != 0 {
		t.Error("failed run was cached")
	}
}

func uniformStates(n int, dur float64) []states.State {
	ss := make([]states.State, n)
	for i := range ss {
		ss[i] = states.State{
			Start:  float64(i) * dur,
			Stop:   float64(i+1) * dur,
			Power:  40 + 10*float64(i%4),
			Pitch:  60 + 15*float64(i%5),
			SimPos: 75766,
		}
	}
	return ss
}

func TestSplitChunks(t *testing.T) {
	ss := uniformStates(6, 1000)
	times := make([]float64, 61)
	for i := range times {
		times[i] = float64(i) * 100
	}

	var calls []float64
	initial := func(t float64) (float64, float64, error) {
		calls = append(calls, t)
		return 30, 40, nil
	}

	chunks, err := SplitChunks(ss, times, 3, initial)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	wantStates := []int{1, 2, 3}
	wantTimes := []int{10, 20, 31}
	for i, ch := range chunks {
		if len(ch.States) != wantStates[i] || len(ch.Times) != wantTimes[i] {
			t.Errorf("chunk %d: %d states and %d times, want %d and %d",
				i, len(ch.States), len(ch.Times), wantStates[i], wantTimes[i])
		}
	}
	if len(calls) != 3 || calls[1] != 1000 || calls[2] != 3000 {
		t.Errorf("initial temperatures requested at %v", calls)
	}
}

func TestSplitChunksSkipsEmpty(t *testing.T) {
	ss := uniformStates(2, 1000)
	times := []float64{0, 500, 1000, 1500, 2000}
	chunks, err := SplitChunks(ss, times, 8, func(float64) (float64, float64, error) { return 30, 40, nil })
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	for _, ch := range chunks {
		if len(ch.States) == 0 {
			t.Error("empty chunk returned")
		}
		total += len(ch.Times)
	}
	if total != len(times) {
		t.Errorf("chunks cover %d times, want %d", total, len(times))
	}
}

func TestEnsembleMatchesSerial(t *testing.T) {
	ss := uniformStates(12, 5000)
	times := make([]float64, 0, 601)
	for tt := 0.0; tt <= 60000; tt += 100 {
		times = append(times, tt)
	}

	s := newTestSim()
	result, err := s.Run(context.Background(), ss, 35, 45)
	if err != nil {
		t.Fatal(err)
	}
	wantPin, wantDea, err := Resample(result.Trajectory, times)
	if err != nil {
		t.Fatal(err)
	}

	initial := func(at float64) (float64, float64, error) {
		pin, dea, err := Resample(result.Trajectory, []float64{at})
		if err != nil {
			return 0, 0, err
		}
		return pin[0], dea[0], nil
	}
	chunks, err := SplitChunks(ss, times, 4, initial)
	if err != nil {
		t.Fatal(err)
	}

	pin, dea, err := NewEnsemble(integrators.NewAnalytic(), dynamo.DefaultConfig(), 2).Run(context.Background(), chunks, testParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(pin) != len(times) || len(dea) != len(times) {
		t.Fatalf("got %d/%d samples, want %d", len(pin), len(dea), len(times))
	}
	for i := range times {
		if math.Abs(pin[i]-wantPin[i]) > 1e-9 || math.Abs(dea[i]-wantDea[i]) > 1e-9 {
			t.Fatalf("t=%v: ensemble (%v, %v) vs serial (%v, %v)", times[i], pin[i], dea[i], wantPin[i], wantDea[i])
		}
	}
}

func TestEnsemblePropagatesErrors(t *testing.T) {
	chunks := []Chunk{
		{States: uniformStates(1, 1000), PIN0: 30, DEA0: 40, Times: []float64{0, 500}},
		{States: uniformStates(1, 1000), PIN0: math.NaN(), DEA0: 40, Times: []float64{1000}},
	}
	_, _, err := NewEnsemble(integrators.NewAnalytic(), dynamo.DefaultConfig(), 0).Run(context.Background(), chunks, testParams)
	if !errors.Is(err, dynamo.ErrNumericDomain) {
		t.Errorf("expected ErrNumericDomain, got %v", err)
	}
}
