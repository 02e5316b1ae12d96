package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayalive/internal/domain"
	"stayalive/pkg/e"
)

func TestDistanceKm_KnownValue(t *testing.T) {
	// Paris -> Lyon is roughly 392 km.
	d := DistanceKm(48.8566, 2.3522, 45.7640, 4.8357)
	assert.InDelta(t, 392, d, 5)
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := DistanceKm(48.85, 2.35, 45.0, 5.0)
	b := DistanceKm(45.0, 5.0, 48.85, 2.35)
	assert.InDelta(t, a, b, 1e-9)
}

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	d := DistanceKm(45.0, 5.0, 45.0, 5.0)
	assert.True(t, math.Abs(d) < 1e-9)
}

func TestNearest_Empty(t *testing.T) {
	_, err := Nearest(45.0, 5.0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrNoCandidates))
}

func TestNearest_SingleCandidate(t *testing.T) {
	id := uuid.New()
	got, err := Nearest(45.01, 5.01, []domain.RescuerPosition{
		{RescuerID: id, Lat: 45.0, Lng: 5.0},
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.RescuerID)
}

func TestNearest_PicksClosest(t *testing.T) {
	near := uuid.New()
	far := uuid.New()
	got, err := Nearest(48.85, 2.35, []domain.RescuerPosition{
		{RescuerID: far, Lat: 45.76, Lng: 4.83},
		{RescuerID: near, Lat: 48.86, Lng: 2.34},
	})
	require.NoError(t, err)
	assert.Equal(t, near, got.RescuerID)
}

func TestNearest_TieBreakFirstWins(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	// Same point twice: the earliest candidate must win.
	got, err := Nearest(45.0, 5.0, []domain.RescuerPosition{
		{RescuerID: first, Lat: 44.0, Lng: 5.0},
		{RescuerID: second, Lat: 44.0, Lng: 5.0},
	})
	require.NoError(t, err)
	assert.Equal(t, first, got.RescuerID)
}
