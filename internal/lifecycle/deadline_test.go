package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

func date(t *testing.T, raw string) *models.Date {
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return &d
}

func clock(t *testing.T, raw string) *models.ClockTime {
	c, err := models.ParseClockTime(raw)
	require.NoError(t, err)
	return &c
}

func TestEffectiveDueMatrix(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	due := EffectiveDue(date(t, "2024-01-10"), clock(t, "08:15:00"), now)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 15, 0, 0, time.UTC), *due)

	due = EffectiveDue(date(t, "2024-01-10"), nil, now)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC), *due)

	due = EffectiveDue(nil, clock(t, "18:00:00"), now)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC), *due)

	assert.Nil(t, EffectiveDue(nil, nil, now))
}

func TestEffectiveDueUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 3, 5, 9, 30, 0, 0, loc)
	due := EffectiveDue(date(t, "2024-01-10"), nil, now)
	require.NotNil(t, due)
	assert.Equal(t, loc, due.Location())
	assert.Equal(t, 23, due.Hour())
}

func TestOnTime(t *testing.T) {
	due := time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC)

	before := OnTime(due.Add(-time.Second), &due)
	require.NotNil(t, before)
	assert.True(t, *before)

	exact := OnTime(due, &due)
	require.NotNil(t, exact)
	assert.False(t, *exact)

	after := OnTime(due.Add(time.Hour), &due)
	require.NotNil(t, after)
	assert.False(t, *after)

	assert.Nil(t, OnTime(due, nil))
}

func TestOnTimeIsPure(t *testing.T) {
	now := time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)
	due := EffectiveDue(date(t, "2024-01-10"), clock(t, "18:00:00"), now)

	first := OnTime(now, due)
	second := OnTime(now, due)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.NotSame(t, first, second)
}

func TestOnTimeForAssignmentWithoutDeadline(t *testing.T) {
	a := &models.Assignment{}
	assert.Nil(t, OnTimeFor(a, time.Now()))
}
