package camera

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpherePointRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		yaw := rng.Float64()*2*math.Pi - math.Pi
		pitch := rng.Float64() * math.Pi
		p := SpherePoint(yaw, pitch, 3.5)
		assert.InDelta(t, 3.5, p.Norm(), 1e-12)
	}
}

func TestLookAtFacesOrigin(t *testing.T) {
	pos := SpherePoint(0.7, 1.1, 3.5)
	tr := LookAt(pos)

	// The camera sits where we put it and looks back at the origin.
	assert.InDelta(t, 0, tr.Position().Sub(pos).Norm(), 1e-12)
	wantDir := pos.Scale(-1).Normalize()
	assert.InDelta(t, 0, tr.ViewDirection().Sub(wantDir).Norm(), 1e-12)
}

func TestLookAtUpright(t *testing.T) {
	tr := LookAt(SpherePoint(-2.1, 0.6, 3.5))
	// Y column biased toward world Z.
	assert.Greater(t, tr[2][1], 0.0)
}

func TestLookAtPole(t *testing.T) {
	tr := LookAt(Vec3{0, 0, 3.5})
	assert.InDelta(t, 0, tr.ViewDirection().Sub(Vec3{0, 0, -1}).Norm(), 1e-12)
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		yaw := rng.Float64()*2*math.Pi - math.Pi
		pitch := math.Acos(1 - 2*rng.Float64())
		pos := SpherePoint(yaw, pitch, 3.5)
		tr := LookAt(pos)

		a, err := EulerAngles(tr)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, a.Pitch, 0.0)
		assert.LessOrEqual(t, a.Pitch, math.Pi)
		assert.GreaterOrEqual(t, a.Yaw, -math.Pi)
		assert.LessOrEqual(t, a.Yaw, math.Pi)
		assert.InDelta(t, 0, a.Roll, 1e-9)

		// Reconstructing the rotation from the extracted angles must
		// reproduce the original look-at direction.
		rebuilt := Rotation(a)
		assert.InDelta(t, 0, rebuilt.ViewDirection().Sub(tr.ViewDirection()).Norm(), 1e-9,
			"view %d yaw=%v pitch=%v", i, yaw, pitch)
	}
}

func TestEulerAnglesRejectsBadPitch(t *testing.T) {
	// A transform whose third row encodes a clearly negative pitch.
	tr := Rotation(Angles{Yaw: 0.3, Pitch: -0.4})
	_, err := EulerAngles(tr)
	assert.Error(t, err)
}

func TestRandomAnglesRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	angles := RandomAngles(500, rng)
	require.Len(t, angles, 500)
	for _, a := range angles {
		assert.GreaterOrEqual(t, a.Yaw, -math.Pi)
		assert.LessOrEqual(t, a.Yaw, math.Pi)
		assert.GreaterOrEqual(t, a.Pitch, 0.0)
		assert.LessOrEqual(t, a.Pitch, math.Pi)
		assert.Zero(t, a.Roll)
	}
}

func TestSweepAnglesCount(t *testing.T) {
	angles := SweepAngles()
	assert.Len(t, angles, SweepViews)
	for _, a := range angles {
		assert.Greater(t, a.Pitch, 0.0)
		assert.Less(t, a.Pitch, math.Pi)
	}
}

func TestFOVSamplerConstant(t *testing.T) {
	s := FOVSampler{Dist: "constant", Mean: math.Pi / 4}
	got, err := s.Sample(5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for _, v := range got {
		assert.Equal(t, math.Pi/4, v)
	}
}

func TestFOVSamplerUniform(t *testing.T) {
	s := FOVSampler{Dist: "uniform", Min: 0.3, Max: 0.8}
	got, err := s.Sample(200, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0.3)
		assert.LessOrEqual(t, v, 0.8)
	}
}

func TestFOVSamplerTruncnorm(t *testing.T) {
	s := FOVSampler{Dist: "truncnorm", Mean: 0.5, Std: 0.2, Min: 0.4, Max: 0.6}
	got, err := s.Sample(100, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0.4)
		assert.LessOrEqual(t, v, 0.6)
	}
}

func TestFOVSamplerUnknown(t *testing.T) {
	s := FOVSampler{Dist: "exponential"}
	_, err := s.Sample(1, rand.New(rand.NewSource(4)))
	assert.Error(t, err)
}

func TestDistanceStats(t *testing.T) {
	ts := []Transform{
		LookAt(SpherePoint(0.1, 1.0, 3.5)),
		LookAt(SpherePoint(1.4, 0.5, 3.5)),
		LookAt(SpherePoint(-2.0, 2.2, 3.5)),
	}
	mean, stddev := DistanceStats(ts)
	assert.InDelta(t, 3.5, mean, 1e-9)
	assert.InDelta(t, 0, stddev, 1e-9)
}
