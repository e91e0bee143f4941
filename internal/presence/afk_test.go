package presence

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// fakeClock gives tests control over the tracker's notion of now
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewTracker()
	tracker.now = func() time.Time { return clock.current }
	return tracker, clock
}

func TestUntrackedPlayerIsNotAFK(t *testing.T) {
	tracker, _ := newTestTracker()

	assert.False(t, tracker.IsAFK("ghost", time.Minute))
	assert.Zero(t, tracker.SinceActivity("ghost"))
}

func TestTouchResetsAFK(t *testing.T) {
	tracker, clock := newTestTracker()
	threshold := 5 * time.Minute

	tracker.Touch("steve")
	assert.False(t, tracker.IsAFK("steve", threshold))

	clock.advance(6 * time.Minute)
	assert.True(t, tracker.IsAFK("steve", threshold))
	assert.Equal(t, 6*time.Minute, tracker.SinceActivity("steve"))

	tracker.Touch("steve")
	assert.False(t, tracker.IsAFK("steve", threshold))
	assert.Zero(t, tracker.SinceActivity("steve"))
}

func TestThresholdBoundaryIsAFK(t *testing.T) {
	tracker, clock := newTestTracker()
	threshold := 5 * time.Minute

	tracker.Touch("steve")
	clock.advance(threshold)

	// Exactly at the threshold counts as AFK
	assert.True(t, tracker.IsAFK("steve", threshold))
}

func TestRemoveForgetsPlayer(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.Touch("steve")
	clock.advance(time.Hour)
	tracker.Remove("steve")

	assert.False(t, tracker.IsAFK("steve", time.Minute))
	assert.Zero(t, tracker.SinceActivity("steve"))
	assert.Zero(t, tracker.Online())
}

func TestAFKPlayersAndCount(t *testing.T) {
	tracker, clock := newTestTracker()
	threshold := 5 * time.Minute

	tracker.Touch("idle1")
	tracker.Touch("idle2")
	clock.advance(10 * time.Minute)
	tracker.Touch("active")

	assert.Equal(t, 3, tracker.Online())
	assert.Equal(t, 2, tracker.AFKCount(threshold))
	assert.ElementsMatch(t, []string{"idle1", "idle2"}, tracker.AFKPlayers(threshold))
}

func TestClear(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.Touch("steve")
	tracker.Touch("alex")
	tracker.Clear()

	assert.Zero(t, tracker.Online())
	assert.Empty(t, tracker.AFKPlayers(0))
}

// AFK status always agrees with the elapsed-time view, and the AFK
// count always matches the AFK list.
func TestAFKConsistencyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("IsAFK matches SinceActivity against the threshold", prop.ForAll(
		func(idleMinutes int, thresholdMinutes int) bool {
			tracker, clock := newTestTracker()
			threshold := time.Duration(thresholdMinutes) * time.Minute

			tracker.Touch("steve")
			clock.advance(time.Duration(idleMinutes) * time.Minute)

			wantAFK := tracker.SinceActivity("steve") >= threshold
			if tracker.IsAFK("steve", threshold) != wantAFK {
				return false
			}
			return tracker.AFKCount(threshold) == len(tracker.AFKPlayers(threshold))
		},
		gen.IntRange(0, 120),
		gen.IntRange(1, 60),
	))
	properties.TestingRun(t)
}
