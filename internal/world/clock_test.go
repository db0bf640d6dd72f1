package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsAtCampaignOpening(t *testing.T) {
	c := NewClock()
	assert.Equal(t, "14:00:00 14/04/3010", c.String())
	assert.False(t, c.IsActive())
	assert.Equal(t, 1.0, c.Speed())
}

func TestClockTickInactive(t *testing.T) {
	c := NewClock()
	assert.Equal(t, 0, c.Tick(5.0))
	assert.Equal(t, "14:00:00 14/04/3010", c.String())
}

func TestClockTickAccumulatesFractions(t *testing.T) {
	c := NewClock()
	c.Activate()
	// 0.4s per tick: seconds advance on the 3rd and 5th tick.
	total := 0
	for i := 0; i < 5; i++ {
		total += c.Tick(0.4)
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, c.Second())
}

func TestClockSpeedScaling(t *testing.T) {
	c := NewClock()
	c.Activate()
	c.SetSpeed(60)
	c.Tick(1.0)
	assert.Equal(t, 1, c.Minute())
	assert.Equal(t, 0, c.Second())
}

func TestClockCarryChain(t *testing.T) {
	c := NewClock()
	c.SetDate(59, 59, 23, 30, 12, 3010)
	c.AdvanceSecond(1)
	assert.Equal(t, "00:00:00 01/01/3011", c.String())
}

func TestClockThirtyDayMonths(t *testing.T) {
	c := NewClock()
	c.SetDate(0, 0, 0, 30, 4, 3010)
	c.AdvanceDay(1)
	assert.Equal(t, 1, c.Day())
	assert.Equal(t, 5, c.Month())

	// 360 days is exactly one simulation year.
	c.SetDate(0, 0, 0, 1, 1, 3010)
	c.AdvanceDay(360)
	assert.Equal(t, 1, c.Day())
	assert.Equal(t, 1, c.Month())
	assert.Equal(t, 3011, c.Year())
}

func TestClockBorrowChain(t *testing.T) {
	c := NewClock()
	c.SetDate(0, 0, 0, 1, 1, 3011)
	c.AdvanceSecond(-1)
	assert.Equal(t, "23:59:59 30/12/3010", c.String())
}

func TestClockStampOrdering(t *testing.T) {
	a := NewClock()
	b := NewClock()
	b.AdvanceSecond(1)
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.Equal(t, a.Stamp()+1, b.Stamp())

	// A day boundary is still strictly increasing.
	a.SetDate(59, 59, 23, 14, 4, 3010)
	b.SetDate(0, 0, 0, 15, 4, 3010)
	assert.Equal(t, a.Stamp()+1, b.Stamp())
}

func TestClockSetSpeedRejectsNonPositive(t *testing.T) {
	c := NewClock()
	c.SetSpeed(0)
	assert.Equal(t, 1.0, c.Speed())
	c.SetSpeed(-3)
	assert.Equal(t, 1.0, c.Speed())
	c.SetSpeed(2.5)
	assert.Equal(t, 2.5, c.Speed())
}
