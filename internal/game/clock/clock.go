package clock

import (
	"sync"
	"time"
)

// GameClock advances game time by a fixed number of minutes per real tick
// and broadcasts the new time to subscribers.
type GameClock struct {
	now            MilitaryTime
	minutesPerTick int
	tickInterval   time.Duration
	mu             sync.Mutex
	subscribers    map[chan<- MilitaryTime]struct{}
}

// NewGameClock creates a stopped GameClock starting at start.
//
// Precondition: start must be valid; minutesPerTick >= 1; tickInterval > 0.
// Postcondition: Returns a non-nil *GameClock ready to Start().
func NewGameClock(start MilitaryTime, minutesPerTick int, tickInterval time.Duration) *GameClock {
	if minutesPerTick < 1 {
		minutesPerTick = 1
	}
	return &GameClock{
		now:            FromMinutes(start.Minutes()),
		minutesPerTick: minutesPerTick,
		tickInterval:   tickInterval,
		subscribers:    make(map[chan<- MilitaryTime]struct{}),
	}
}

// Now returns the current game time.
func (c *GameClock) Now() MilitaryTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Subscribe registers ch to receive the game time on each tick.
// If ch is full, the tick is dropped for that subscriber (non-blocking).
//
// Precondition: ch must not be nil.
func (c *GameClock) Subscribe(ch chan<- MilitaryTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (c *GameClock) Unsubscribe(ch chan<- MilitaryTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers, ch)
}

// Advance moves the clock forward by minutes and notifies subscribers.
// It is what the ticker goroutine calls; tests may call it directly.
//
// Postcondition: Returns the new time, wrapped at 2400.
func (c *GameClock) Advance(minutes int) MilitaryTime {
	c.mu.Lock()
	c.now = c.now.AddMinutes(minutes)
	now := c.now
	subs := make([]chan<- MilitaryTime, 0, len(c.subscribers))
	for ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- now:
		default:
		}
	}
	return now
}

// Start launches the clock goroutine and returns a stop function.
// Calling stop() is idempotent.
//
// Postcondition: The clock advances by minutesPerTick every tickInterval until stop() is called.
func (c *GameClock) Start() (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Advance(c.minutesPerTick)
			case <-done:
				return
			}
		}
	}()
	return func() {
		once.Do(func() { close(done) })
	}
}
