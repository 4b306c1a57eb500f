// internal/game/state.go
package game

// Phase is the lifecycle state of a room.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseRoundEnd
	PhaseRetryNegotiation
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhasePlaying:
		return "playing"
	case PhaseRoundEnd:
		return "roundEnd"
	case PhaseRetryNegotiation:
		return "retryNegotiation"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// KeyStatus is a discrete movement directive, sampled once per tick.
// Last write before the tick wins.
type KeyStatus string

const (
	KeyUp      KeyStatus = "up"
	KeyDown    KeyStatus = "down"
	KeyNeutral KeyStatus = "neutral"
)

// ParseKeyStatus maps a wire value to a KeyStatus, defaulting to neutral.
func ParseKeyStatus(s string) KeyStatus {
	switch KeyStatus(s) {
	case KeyUp, KeyDown:
		return KeyStatus(s)
	default:
		return KeyNeutral
	}
}

// GameSettings are the numeric tunables of a round. They may only change
// during Setup; Start freezes them for the lifetime of the room.
type GameSettings struct {
	TargetScore int     `json:"targetScore"`
	BallSpeed   float64 `json:"ballSpeed"`
}

// DefaultSettings returns the values a fresh room starts with.
func DefaultSettings() GameSettings {
	return GameSettings{TargetScore: 3, BallSpeed: 5}
}

// Playfield geometry. Clients render against the same constants.
const (
	FieldWidth  = 600.0
	FieldHeight = 400.0
	BarHeight   = 80.0
	BarWidth    = 10.0
	barSpeed    = 8.0
)

// Ball tracks position and a unit-ish direction vector; BallSpeed scales the
// per-tick displacement.
type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// GameState is the authoritative simulation state owned by a Room. All access
// goes through the room's mutex; GameState itself carries no locking.
type GameState struct {
	Settings GameSettings `json:"gameSetting"`
	Ball     Ball         `json:"ball"`
	Bars     [2]float64   `json:"bars"`   // top edge of each paddle
	Scores   [2]int       `json:"scores"` // per slot
	Retry    [2]bool      `json:"retryFlags"`
	Phase    Phase        `json:"phase"`

	input [2]KeyStatus
}

// NewGameState builds a Setup-phase state. Retry flags always start false,
// including in rooms created from a rematch.
func NewGameState(settings GameSettings) GameState {
	st := GameState{
		Settings: settings,
		Bars:     [2]float64{(FieldHeight - BarHeight) / 2, (FieldHeight - BarHeight) / 2},
		Phase:    PhaseSetup,
	}
	st.resetBall(1)
	return st
}

// resetBall recenters the ball, serving toward the given horizontal direction.
func (st *GameState) resetBall(dir float64) {
	st.Ball = Ball{
		X:  FieldWidth / 2,
		Y:  FieldHeight / 2,
		VX: dir,
		VY: 0.5,
	}
}

// step advances the simulation by one tick: paddles move by their sampled
// input, the ball advances and bounces, goals score and re-serve. Returns the
// winning slot (0 or 1) once a side reaches the target score, else -1.
func (st *GameState) step() int {
	for i := 0; i < 2; i++ {
		switch st.input[i] {
		case KeyUp:
			st.Bars[i] -= barSpeed
		case KeyDown:
			st.Bars[i] += barSpeed
		}
		if st.Bars[i] < 0 {
			st.Bars[i] = 0
		}
		if st.Bars[i] > FieldHeight-BarHeight {
			st.Bars[i] = FieldHeight - BarHeight
		}
	}

	st.Ball.X += st.Ball.VX * st.Settings.BallSpeed
	st.Ball.Y += st.Ball.VY * st.Settings.BallSpeed

	// wall bounce
	if st.Ball.Y <= 0 {
		st.Ball.Y = -st.Ball.Y
		st.Ball.VY = -st.Ball.VY
	}
	if st.Ball.Y >= FieldHeight {
		st.Ball.Y = 2*FieldHeight - st.Ball.Y
		st.Ball.VY = -st.Ball.VY
	}

	// paddle bounce
	if st.Ball.VX < 0 && st.Ball.X <= BarWidth &&
		st.Ball.Y >= st.Bars[0] && st.Ball.Y <= st.Bars[0]+BarHeight {
		st.Ball.X = BarWidth
		st.Ball.VX = -st.Ball.VX
		st.Ball.VY = st.deflect(0)
	}
	if st.Ball.VX > 0 && st.Ball.X >= FieldWidth-BarWidth &&
		st.Ball.Y >= st.Bars[1] && st.Ball.Y <= st.Bars[1]+BarHeight {
		st.Ball.X = FieldWidth - BarWidth
		st.Ball.VX = -st.Ball.VX
		st.Ball.VY = st.deflect(1)
	}

	// goals
	if st.Ball.X < 0 {
		st.Scores[1]++
		st.resetBall(1)
	} else if st.Ball.X > FieldWidth {
		st.Scores[0]++
		st.resetBall(-1)
	}

	for i := 0; i < 2; i++ {
		if st.Scores[i] >= st.Settings.TargetScore {
			return i
		}
	}
	return -1
}

// deflect angles the ball off a paddle based on where it struck, so play
// doesn't settle into a flat loop.
func (st *GameState) deflect(slot int) float64 {
	offset := (st.Ball.Y - (st.Bars[slot] + BarHeight/2)) / (BarHeight / 2)
	return offset
}
