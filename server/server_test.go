package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/c4uct/game"
)

type stubPredictor struct{}

func (stubPredictor) Predict(features []float32) ([]float32, float32, error) {
	return []float32{1, 1, 1, 1, 1, 1, 1}, 0, nil
}

func TestEvaluate(t *testing.T) {
	s := New(stubPredictor{})

	resp, err := s.evaluate(EvalRequest{Position: "7/7/7/7/7/7", Playouts: 64})
	require.NoError(t, err)
	require.False(t, resp.EndOfGame)
	require.GreaterOrEqual(t, resp.Move, 0)
	require.Less(t, resp.Move, game.Cols)
	require.NotEmpty(t, resp.PV)
	require.Len(t, resp.Probs, game.Cols)
	require.Equal(t, resp.Move, resp.PV[0])
}

func TestEvaluateFullBoard(t *testing.T) {
	s := New(stubPredictor{})

	// A drawn, completely full board has nothing to search.
	full := "oxoxoxo/xoxoxox/xoxoxox/oxoxoxo/oxoxoxo/xoxoxox"
	resp, err := s.evaluate(EvalRequest{Position: full, Playouts: 64})
	require.NoError(t, err)
	require.True(t, resp.EndOfGame)
}

func TestEvaluateClampsPlayouts(t *testing.T) {
	s := New(stubPredictor{})

	// A request below the floor still produces a meaningful search.
	resp, err := s.evaluate(EvalRequest{Position: "7/7/7/7/7/7", Playouts: 1})
	require.NoError(t, err)
	require.False(t, resp.EndOfGame)
	require.NotEmpty(t, resp.PV)
}
