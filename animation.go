package tsxset

import "time"

// Animation plays the frames of an animated tile by wall-clock time.
type Animation struct {
	Frames      []Frame
	TotalFrames int
	Index       int       // Current frame
	LastChange  time.Time // Updated each time the frame changes
}

// NewAnimation starts t's animation at now. It returns nil for tiles
// without frames.
func NewAnimation(t Tile, now time.Time) *Animation {
	if len(t.Animation) == 0 {
		return nil
	}
	return &Animation{
		Frames:      t.Animation,
		TotalFrames: len(t.Animation),
		LastChange:  now,
	}
}

// Update advances the animation to now, skipping frames whose duration has
// fully elapsed, and reports whether the frame changed.
func (a *Animation) Update(now time.Time) bool {
	changed := false

	// Whole cycles end on the current frame; skip them without stepping.
	// Sub saturates for very old times, hence the loop.
	if cycle := a.Length(); cycle > 0 && a.allTimed() {
		for elapsed := now.Sub(a.LastChange); elapsed >= cycle; elapsed = now.Sub(a.LastChange) {
			a.LastChange = a.LastChange.Add(elapsed - elapsed%cycle)
			changed = true
		}
	}

	for {
		d := a.Frames[a.Index].Duration
		if d <= 0 || now.Sub(a.LastChange) < d {
			return changed
		}
		a.LastChange = a.LastChange.Add(d)
		a.Index = (a.Index + 1) % a.TotalFrames
		changed = true
	}
}

// Current returns the tile id of the current frame.
func (a *Animation) Current() int {
	return a.Frames[a.Index].TileID
}

func (a *Animation) allTimed() bool {
	for _, f := range a.Frames {
		if f.Duration <= 0 {
			return false
		}
	}
	return true
}

// Length returns the duration of one full cycle.
func (a *Animation) Length() time.Duration {
	var total time.Duration
	for _, f := range a.Frames {
		total += f.Duration
	}
	return total
}
