package drift

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestADWIN_StableStream(t *testing.T) {
	a, err := NewADWIN()
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	detected := 0
	for i := 0; i < 500; i++ {
		if a.Update(0.3 + 0.1*rng.Float64()) {
			detected++
		}
	}
	assert.Zero(t, detected)

	s := a.Stats()
	assert.Equal(t, 500, s.Width)
	assert.InDelta(t, 0.35, s.Mean, 0.02)
}

func TestADWIN_DetectsShift(t *testing.T) {
	a, err := NewADWIN(WithMaxWidth(400))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.False(t, a.Update(0.1))
	}
	detected := false
	for i := 0; i < 200 && !detected; i++ {
		detected = a.Update(0.9)
	}
	require.True(t, detected)

	s := a.Stats()
	assert.Equal(t, 1, s.Detections)
	assert.Less(t, s.Width, 200)
	assert.Greater(t, s.Mean, 0.5)
}

func TestADWIN_DetectsShiftAfterWrap(t *testing.T) {
	a, err := NewADWIN(WithMaxWidth(100))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		require.False(t, a.Update(0.1))
	}
	require.Equal(t, 100, a.Stats().Width)

	shifted := 0
	for !a.Update(0.9) {
		shifted++
		require.Less(t, shifted, 100)
	}
	s := a.Stats()
	assert.Equal(t, 1, s.Detections)
	assert.LessOrEqual(t, s.Width, shifted+1)
	assert.InDelta(t, 0.9, s.Mean, 1e-9)
}

func TestADWIN_ResetAfterDetection(t *testing.T) {
	a, err := NewADWIN(WithMaxWidth(100))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		a.Update(0.1)
	}
	for !a.Update(0.9) {
	}
	a.Reset()
	assert.Equal(t, Stats{}, a.Stats())

	for i := 0; i < 50; i++ {
		require.False(t, a.Update(0.9))
	}
	assert.Equal(t, 50, a.Stats().Width)
	assert.InDelta(t, 0.9, a.Stats().Mean, 1e-9)
}

func BenchmarkADWIN_Update(b *testing.B) {
	a, err := NewADWIN(WithMaxWidth(100000))
	require.NoError(b, err)
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 100000; i++ {
		a.Update(0.3 + 0.1*rng.Float64())
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Update(0.3 + 0.1*rng.Float64())
	}
}

func TestADWIN_MaxWidth(t *testing.T) {
	a, err := NewADWIN(WithMaxWidth(20), WithMinSubWindow(5))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		a.Update(0.5)
	}
	assert.Equal(t, 20, a.Stats().Width)
	assert.InDelta(t, 0.5, a.Stats().Mean, 1e-12)

	a.Reset()
	assert.Equal(t, Stats{}, a.Stats())
}

func TestNewADWIN_Invalid(t *testing.T) {
	_, err := NewADWIN(WithDelta(0))
	assert.Error(t, err)
	_, err = NewADWIN(WithMinSubWindow(0))
	assert.Error(t, err)
	_, err = NewADWIN(WithMaxWidth(5), WithMinSubWindow(5))
	assert.Error(t, err)
}

func TestADWIN_ImplementsDetector(t *testing.T) {
	a, err := NewADWIN()
	require.NoError(t, err)
	var _ Detector = a
}
