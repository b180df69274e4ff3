package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_Update(t *testing.T) {
	testCases := []struct {
		name  string
		alpha float64
		mode  ImbalanceMode
		old   EstimatorState
		bar   BarStats
		want  EstimatorState
	}{
		{
			name:  "fixed imbalance",
			alpha: 0.5,
			mode:  ImbalanceFixed,
			old:   EstimatorState{ExpectedTicks: 10, ExpectedImbalance: 2},
			bar:   BarStats{Ticks: 20, AbsMass: 100},
			want:  EstimatorState{ExpectedTicks: 15, ExpectedImbalance: 2},
		},
		{
			name:  "smoothed imbalance",
			alpha: 0.5,
			mode:  ImbalanceSmoothed,
			old:   EstimatorState{ExpectedTicks: 10, ExpectedImbalance: 2},
			bar:   BarStats{Ticks: 20, AbsMass: 100},
			want:  EstimatorState{ExpectedTicks: 15, ExpectedImbalance: 3.5},
		},
		{
			name:  "alpha one follows last bar",
			alpha: 1,
			mode:  ImbalanceSmoothed,
			old:   EstimatorState{ExpectedTicks: 10, ExpectedImbalance: 2},
			bar:   BarStats{Ticks: 4, AbsMass: 2},
			want:  EstimatorState{ExpectedTicks: 4, ExpectedImbalance: 0.5},
		},
		{
			name:  "empty bar leaves state",
			alpha: 0.5,
			mode:  ImbalanceSmoothed,
			old:   EstimatorState{ExpectedTicks: 10, ExpectedImbalance: 2},
			bar:   BarStats{},
			want:  EstimatorState{ExpectedTicks: 10, ExpectedImbalance: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			est, err := NewEstimator(tc.alpha, tc.mode)
			require.NoError(t, err)

			old := tc.old
			got := est.Update(old, tc.bar)
			assert.InDelta(t, tc.want.ExpectedTicks, got.ExpectedTicks, 1e-12)
			assert.InDelta(t, tc.want.ExpectedImbalance, got.ExpectedImbalance, 1e-12)
			assert.Equal(t, tc.old, old, "old state must not change")
		})
	}
}

func TestEstimator_StaysPositive(t *testing.T) {
	est, err := NewEstimator(1, ImbalanceSmoothed)
	require.NoError(t, err)

	s := EstimatorState{ExpectedTicks: 3, ExpectedImbalance: 1}
	for i := 1; i <= 50; i++ {
		s = est.Update(s, BarStats{Ticks: i, AbsMass: 0.001 * float64(i)})
		require.Greater(t, s.ExpectedTicks, 0.0)
		require.Greater(t, s.ExpectedImbalance, 0.0)
	}
	assert.InDelta(t, 0.001, s.ExpectedImbalance, 1e-12)
}

func TestNewEstimator_Invalid(t *testing.T) {
	_, err := NewEstimator(0, ImbalanceFixed)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewEstimator(1.01, ImbalanceFixed)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewEstimator(0.3, "adaptive")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEstimatorState_Threshold(t *testing.T) {
	assert.Equal(t, 12.0, EstimatorState{ExpectedTicks: 4, ExpectedImbalance: 3}.Threshold())
}

func TestSeed(t *testing.T) {
	ticks := makeTicks(2, -2, 4, -4, 0, 6)

	testCases := []struct {
		name   string
		mode   SeedMode
		warmup int
		want   float64
	}{
		{"mean abs", SeedMeanAbs, 0, 3},
		{"abs mean", SeedAbsMean, 0, 1},
		{"warmup window", SeedWarmup, 2, 2},
		{"warmup longer than input", SeedWarmup, 100, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SeedMode = tc.mode
			opts.WarmupTicks = tc.warmup
			got, err := Seed(ticks, opts)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestSeed_Degenerate(t *testing.T) {
	opts := DefaultOptions()

	_, err := Seed(nil, opts)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Seed(makeTicks(0, 0, 0), opts)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// balanced flow has zero signed mean
	opts.SeedMode = SeedAbsMean
	_, err = Seed(makeTicks(1, -1, 1, -1), opts)
	assert.ErrorIs(t, err, ErrInvalidInput)

	opts.SeedMode = SeedWarmup
	opts.WarmupTicks = 2
	_, err = Seed(makeTicks(0, 0, 5), opts)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssembler(t *testing.T) {
	a := newAssembler(4)
	ts := func(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }

	assert.Equal(t, 0, a.assign(ts(0)))
	assert.Equal(t, 0, a.assign(ts(1)))
	a.close()
	assert.Equal(t, 1, a.assign(ts(2)))
	a.close()
	assert.Equal(t, 2, a.assign(ts(3)))
	assert.Equal(t, 2, a.assign(ts(4)))

	assert.Equal(t, []int{0, 0, 1, 2, 2}, a.groupIDs)
	assert.Equal(t, []time.Time{ts(0), ts(2), ts(3)}, a.starts)

	a.dropOpen()
	assert.Equal(t, []int{0, 0, 1, Unassigned, Unassigned}, a.groupIDs)
	assert.Equal(t, []time.Time{ts(0), ts(2)}, a.starts)

	// nothing open after a close
	b := newAssembler(1)
	b.assign(ts(0))
	b.close()
	b.dropOpen()
	assert.Equal(t, []int{0}, b.groupIDs)
}
