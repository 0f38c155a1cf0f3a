package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

func celsius(pin, dea float64) dynamo.Vector {
	return dynamo.Vector{dynamo.ToInternal(pin), dynamo.ToInternal(dea)}
}

func TestPeak(t *testing.T) {
	m := NewPeak(dynamo.NodeDEA)
	assert.Equal(t, "peak_1pdeaat", m.Name())
	assert.True(t, math.IsNaN(m.Value()))

	m.Observe(celsius(30, 40), 0)
	m.Observe(celsius(35, 52.5), 100)
	m.Observe(celsius(31, 45), 200)
	assert.InDelta(t, 52.5, m.Value(), 1e-9)

	m.Reset()
	m.Observe(celsius(0, -10), 0)
	assert.InDelta(t, -10, m.Value(), 1e-9)
}

func TestMean(t *testing.T) {
	m := NewMean(dynamo.NodePIN)
	assert.Equal(t, 0.0, m.Value())

	m.Observe(celsius(10, 0), 0)
	m.Observe(celsius(20, 0), 1)
	assert.InDelta(t, 15, m.Value(), 1e-9)

	m.Reset()
	assert.Equal(t, 0.0, m.Value())
}

func TestTimeAbove(t *testing.T) {
	m := NewTimeAbove(dynamo.NodePIN, 36.5)

	samples := []struct {
		t   float64
		pin float64
	}{
		{0, 30},
		{100, 37},
		{200, 38},
		{300, 36},
		{400, 36.5},
		{500, 20},
	}
	for _, s := range samples {
		m.Observe(celsius(s.pin, 0), s.t)
	}
	assert.InDelta(t, 300, m.Value(), 1e-9)

	m.Reset()
	assert.Equal(t, 0.0, m.Value())
}

func TestTimeAboveIgnoresRepeatedTimes(t *testing.T) {
	m := NewTimeAbove(dynamo.NodeDEA, 50)
	m.Observe(celsius(0, 55), 0)
	m.Observe(celsius(0, 55), 100)
	m.Observe(celsius(0, 55), 100)
	m.Observe(celsius(0, 40), 150)
	assert.InDelta(t, 150, m.Value(), 1e-9)
}

func TestPlanningLimits(t *testing.T) {
	limits := DefaultLimits()

	dea, err := LimitFor(limits, "1PDEAAT")
	require.NoError(t, err)
	assert.Equal(t, 52.5, dea.PlanningLimit())
	assert.Equal(t, dynamo.NodeDEA, dea.Node)

	pin, err := LimitFor(limits, MSIDPIN)
	require.NoError(t, err)
	assert.Equal(t, 36.5, pin.PlanningLimit())

	_, err = LimitFor(limits, "1pdeabt")
	assert.Error(t, err)

	assert.Equal(t, []string{"1pdeaat", "1pin1at"}, SortedMSIDs(limits))
}

func TestViolations(t *testing.T) {
	times := []float64{0, 10, 20, 30, 40, 50, 60}
	temps := []float64{50, 53, 55, 52, 52.5, 52.5, 40}

	got := Violations(times, temps, 52.5)
	require.Len(t, got, 2)

	assert.Equal(t, 10.0, got[0].Start)
	assert.Equal(t, 20.0, got[0].Stop)
	assert.Equal(t, 55.0, got[0].MaxTemp)

	assert.Equal(t, 40.0, got[1].Start)
	assert.Equal(t, 50.0, got[1].Stop)
	assert.Equal(t, 10.0, got[1].Duration())
}

func TestViolationsAtEdges(t *testing.T) {
	times := []float64{0, 10, 20}

	got := Violations(times, []float64{60, 40, 61}, 52.5)
	require.Len(t, got, 2)
	assert.Equal(t, Violation{Limit: 52.5, Start: 0, Stop: 0, MaxTemp: 60}, got[0])
	assert.Equal(t, Violation{Limit: 52.5, Start: 20, Stop: 20, MaxTemp: 61}, got[1])

	assert.Empty(t, Violations(times, []float64{1, 2, 3}, 52.5))
	assert.Empty(t, Violations(nil, nil, 52.5))
}

func TestCheckTrajectory(t *testing.T) {
	tr := dynamo.NewTrajectory(3)
	tr.Append(0, celsius(30, 50))
	tr.Append(100, celsius(37, 53))
	tr.Append(200, celsius(30, 50))

	got := CheckTrajectory(tr, DefaultLimits())
	require.Len(t, got, 2)
	assert.Equal(t, MSIDDEA, got[0].MSID)
	assert.Equal(t, MSIDPIN, got[1].MSID)
	assert.InDelta(t, 37, got[1].MaxTemp, 1e-9)
}

func TestQuantile(t *testing.T) {
	resid := make([]float64, 200)
	for i := range resid {
		resid[i] = float64(199 - i)
	}

	q, err := Quantile(resid, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, q)

	q, err = Quantile(resid, 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, q)

	q, err = Quantile(resid, 100)
	require.NoError(t, err)
	assert.Equal(t, 199.0, q)

	assert.Equal(t, 199.0, resid[0], "input must not be reordered")

	_, err = Quantile(nil, 50)
	assert.Error(t, err)
	_, err = Quantile(resid, 101)
	assert.Error(t, err)
}

func TestCheckValidation(t *testing.T) {
	resid := make([]float64, 100)
	for i := range resid {
		resid[i] = -2 + 4*float64(i)/99
	}

	checks, ok, err := CheckValidation("1PDEAAT", resid, ValidationLimits)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, checks, 3)
	assert.Equal(t, []int{1, 50, 99}, []int{checks[0].Quantile, checks[1].Quantile, checks[2].Quantile})

	resid[99] = 9
	resid[98] = 9
	_, ok, err = CheckValidation("1pdeaat", resid, ValidationLimits)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = CheckValidation("1pdeabt", resid, ValidationLimits)
	assert.Error(t, err)
}
