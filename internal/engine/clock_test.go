package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chrona/internal/simtime"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock(3)
	assert.Equal(t, simtime.Time(3), c.Now(), "clock should start at the given time")
	assert.Equal(t, uint64(0), c.Seq(), "new clock should start at seq 0")
}

func TestClock_AdvanceTo(t *testing.T) {
	c := NewClock(0)

	require.NoError(t, c.AdvanceTo(10))
	assert.Equal(t, simtime.Time(10), c.Now())

	require.NoError(t, c.AdvanceTo(10), "standing still is allowed")

	err := c.AdvanceTo(9.5)
	require.Error(t, err)
	assert.True(t, IsClockRegression(err))
	assert.Equal(t, simtime.Time(10), c.Now(), "failed advance leaves clock unchanged")
}

func TestClock_AdvanceTo_NonFinite(t *testing.T) {
	c := NewClock(0)

	assert.True(t, IsClockRegression(c.AdvanceTo(simtime.Time(math.NaN()))))
	assert.True(t, IsClockRegression(c.AdvanceTo(simtime.Time(math.Inf(1)))))
	assert.Equal(t, simtime.Zero, c.Now())
}

func TestClock_NextSeq_Incrementing(t *testing.T) {
	c := NewClock(0)

	assert.Equal(t, uint64(1), c.NextSeq())
	assert.Equal(t, uint64(2), c.NextSeq())
	assert.Equal(t, uint64(3), c.NextSeq())
	assert.Equal(t, uint64(3), c.Seq())
}
