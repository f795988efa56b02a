package sim

import (
	"sync"
	"time"
)

// Key is a movement direction
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	keyCount
)

// KeyState tracks which movement keys are held. Input handlers write it;
// the tick loop reads it once per tick with Snapshot.
//
// Terminals only report key presses, so a key can also be held for a
// fixed window with Tap, refreshed by auto-repeat while the user keeps it
// down.
type KeyState struct {
	mu    sync.Mutex
	held  [keyCount]bool
	until [keyCount]time.Time
}

// Press holds key until Release
func (k *KeyState) Press(key Key) {
	if key < 0 || key >= keyCount {
		return
	}
	k.mu.Lock()
	k.held[key] = true
	k.mu.Unlock()
}

// Release lets go of key, including any pending Tap
func (k *KeyState) Release(key Key) {
	if key < 0 || key >= keyCount {
		return
	}
	k.mu.Lock()
	k.held[key] = false
	k.until[key] = time.Time{}
	k.mu.Unlock()
}

// Tap holds key until the deadline
func (k *KeyState) Tap(key Key, until time.Time) {
	if key < 0 || key >= keyCount {
		return
	}
	k.mu.Lock()
	if until.After(k.until[key]) {
		k.until[key] = until
	}
	k.mu.Unlock()
}

// ReleaseAll clears every key
func (k *KeyState) ReleaseAll() {
	k.mu.Lock()
	k.held = [keyCount]bool{}
	k.until = [keyCount]time.Time{}
	k.mu.Unlock()
}

// Snapshot returns the keys held at now
func (k *KeyState) Snapshot(now time.Time) Input {
	k.mu.Lock()
	defer k.mu.Unlock()

	down := func(key Key) bool {
		return k.held[key] || now.Before(k.until[key])
	}
	return Input{
		Up:    down(KeyUp),
		Down:  down(KeyDown),
		Left:  down(KeyLeft),
		Right: down(KeyRight),
	}
}

// Input is the set of movement keys held during one tick
type Input struct {
	Up, Down, Left, Right bool
}

// Delta is the per-tick displacement in degrees. Opposite keys cancel.
func (in Input) Delta(speed float64) (dLat, dLng float64) {
	if in.Up {
		dLat += speed
	}
	if in.Down {
		dLat -= speed
	}
	if in.Right {
		dLng += speed
	}
	if in.Left {
		dLng -= speed
	}
	return dLat, dLng
}

// Moving reports whether the input produces any displacement
func (in Input) Moving() bool {
	return in.Up != in.Down || in.Left != in.Right
}
