package world

import "fmt"

// Clock is the in-game calendar. The simulation runs simplified time:
// every month has exactly 30 days, every year 12 months. Ticked and read
// only from the tick loop goroutine, so no locking.
type Clock struct {
	second int
	minute int
	hour   int
	day    int // 1-30
	month  int // 1-12
	year   int

	active bool
	speed  float64 // game seconds per real second

	frac float64 // accumulated sub-second time
}

func NewClock() *Clock {
	c := &Clock{speed: 1.0}
	// The campaign opens at 14:00, 14th of April 3010.
	c.SetDate(0, 0, 14, 14, 4, 3010)
	return c
}

func (c *Clock) SetDate(second, minute, hour, day, month, year int) {
	c.second = second
	c.minute = minute
	c.hour = hour
	c.day = day
	c.month = month
	c.year = year
}

func (c *Clock) Activate()       { c.active = true }
func (c *Clock) Deactivate()     { c.active = false }
func (c *Clock) IsActive() bool  { return c.active }
func (c *Clock) SetSpeed(s float64) {
	if s > 0 {
		c.speed = s
	}
}
func (c *Clock) Speed() float64 { return c.speed }

// Tick advances the clock by dt real seconds, scaled by speed. Only whole
// game seconds are applied; the remainder carries to the next tick.
// Returns the number of game seconds that elapsed.
func (c *Clock) Tick(dt float64) int {
	if !c.active || dt <= 0 {
		return 0
	}
	c.frac += dt * c.speed
	whole := int(c.frac)
	if whole > 0 {
		c.frac -= float64(whole)
		c.AdvanceSecond(whole)
	}
	return whole
}

// AdvanceSecond adds n seconds with carry and borrow.
func (c *Clock) AdvanceSecond(n int) {
	c.second += n
	for c.second > 59 {
		c.second -= 60
		c.AdvanceMinute(1)
	}
	for c.second < 0 {
		c.second += 60
		c.AdvanceMinute(-1)
	}
}

func (c *Clock) AdvanceMinute(n int) {
	c.minute += n
	for c.minute > 59 {
		c.minute -= 60
		c.AdvanceHour(1)
	}
	for c.minute < 0 {
		c.minute += 60
		c.AdvanceHour(-1)
	}
}

func (c *Clock) AdvanceHour(n int) {
	c.hour += n
	for c.hour > 23 {
		c.hour -= 24
		c.AdvanceDay(1)
	}
	for c.hour < 0 {
		c.hour += 24
		c.AdvanceDay(-1)
	}
}

func (c *Clock) AdvanceDay(n int) {
	c.day += n
	for c.day > 30 {
		c.day -= 30
		c.AdvanceMonth(1)
	}
	for c.day < 1 {
		c.day += 30
		c.AdvanceMonth(-1)
	}
}

func (c *Clock) AdvanceMonth(n int) {
	c.month += n
	for c.month > 12 {
		c.month -= 12
		c.AdvanceYear(1)
	}
	for c.month < 1 {
		c.month += 12
		c.AdvanceYear(-1)
	}
}

func (c *Clock) AdvanceYear(n int) {
	c.year += n
}

func (c *Clock) Second() int { return c.second }
func (c *Clock) Minute() int { return c.minute }
func (c *Clock) Hour() int   { return c.hour }
func (c *Clock) Day() int    { return c.day }
func (c *Clock) Month() int  { return c.month }
func (c *Clock) Year() int   { return c.year }

// Stamp returns a monotonic in-game timestamp in seconds, used to order
// access-log entries.
func (c *Clock) Stamp() int64 {
	days := int64(c.year)*360 + int64(c.month-1)*30 + int64(c.day-1)
	return ((days*24+int64(c.hour))*60+int64(c.minute))*60 + int64(c.second)
}

// After reports whether the clock is later than the other clock reading.
func (c *Clock) After(other *Clock) bool {
	return c.Stamp() > other.Stamp()
}

func (c *Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d %02d/%02d/%d",
		c.hour, c.minute, c.second, c.day, c.month, c.year)
}
