package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyStatus(t *testing.T) {
	assert.Equal(t, KeyUp, ParseKeyStatus("up"))
	assert.Equal(t, KeyDown, ParseKeyStatus("down"))
	assert.Equal(t, KeyNeutral, ParseKeyStatus("neutral"))
	assert.Equal(t, KeyNeutral, ParseKeyStatus("sideways"))
	assert.Equal(t, KeyNeutral, ParseKeyStatus(""))
}

func TestStepMovesAndClampsBars(t *testing.T) {
	st := NewGameState(DefaultSettings())
	st.Phase = PhasePlaying
	st.input[0] = KeyUp
	st.input[1] = KeyDown

	start := st.Bars[0]
	st.step()
	assert.Equal(t, start-barSpeed, st.Bars[0])
	assert.Equal(t, start+barSpeed, st.Bars[1])

	// hold the keys long enough to hit both edges
	for i := 0; i < 1000; i++ {
		st.step()
	}
	assert.Equal(t, 0.0, st.Bars[0])
	assert.Equal(t, FieldHeight-BarHeight, st.Bars[1])
}

func TestStepWallBounce(t *testing.T) {
	st := NewGameState(GameSettings{TargetScore: 100, BallSpeed: 5})
	st.Phase = PhasePlaying
	st.Ball = Ball{X: FieldWidth / 2, Y: 2, VX: 0, VY: -1}

	st.step()
	assert.Greater(t, st.Ball.Y, 0.0)
	assert.Equal(t, 1.0, st.Ball.VY, "vertical direction flips at the top wall")
}

func TestStepScoresAndReserves(t *testing.T) {
	st := NewGameState(GameSettings{TargetScore: 2, BallSpeed: 10})
	st.Phase = PhasePlaying

	// park both paddles at the top so the centered ball sails past player2
	st.Bars = [2]float64{0, 0}
	st.Ball = Ball{X: FieldWidth - 5, Y: FieldHeight / 2, VX: 1, VY: 0}

	winner := st.step()
	assert.Equal(t, -1, winner)
	assert.Equal(t, [2]int{1, 0}, st.Scores)
	assert.Equal(t, FieldWidth/2, st.Ball.X, "ball re-serves from center")

	st.Ball = Ball{X: FieldWidth - 5, Y: FieldHeight / 2, VX: 1, VY: 0}
	winner = st.step()
	assert.Equal(t, 0, winner, "slot 0 reaches the target score")
}

func TestSimulationTerminates(t *testing.T) {
	// With neither side moving, a one-point game must finish on its own.
	st := NewGameState(GameSettings{TargetScore: 1, BallSpeed: 5})
	st.Phase = PhasePlaying

	winner := -1
	for i := 0; i < 10000 && winner < 0; i++ {
		winner = st.step()
	}
	require.GreaterOrEqual(t, winner, 0, "simulation should reach the target score")
}
