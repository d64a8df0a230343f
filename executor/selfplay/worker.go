// Package selfplay drives stochastic training games: MCTS visit
// distributions blended with Dirichlet noise and sampled under a temperature
// schedule, producing one training row per ply.
package selfplay

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/brensch/c4uct/executor/mcts"
	"github.com/brensch/c4uct/game"
	"github.com/brensch/c4uct/store"
)

// Mixing weights and temperature schedule, as in AlphaZero-style training.
const (
	searchWeight = 0.84
	noiseWeight  = 0.16

	highTemperature = 1.0
	lowTemperature  = 0.05
)

// Config holds the self-play tunables.
type Config struct {
	CPuct      float32
	DirAlpha   float64
	TempCutoff int
	Playouts   uint64
}

// DefaultConfig returns the standard training parameters.
func DefaultConfig() Config {
	return Config{
		CPuct:      3.0,
		DirAlpha:   1.3,
		TempCutoff: 12,
		Playouts:   800,
	}
}

// Result summarizes a finished game. Winner is +1 for X, -1 for O, 0 for a
// draw.
type Result struct {
	Winner int
	Plies  int
}

// PlayGame runs one stochastic self-play game from the empty board.
//
// Each ply: run playouts, read the visit distribution, mix in Dirichlet(α)
// noise over the legal columns, sharpen by the temperature schedule, sample a
// column, and commit it with RecycleTree so the chosen subtree's statistics
// carry over. onMove, if non-nil, is called after each committed move with
// the sampled column and the raw visit distribution.
func PlayGame(client mcts.Predictor, cfg Config, src rand.Source, onMove func(col int, probs [game.Cols]float32)) ([]store.TrainingRow, Result, error) {
	rng := rand.New(src)
	gameID := fmt.Sprintf("selfplay_%d", time.Now().UnixNano())

	var board game.State
	eng := mcts.NewEngine(board, client, cfg.CPuct, cfg.Playouts)

	rows := make([]store.TrainingRow, 0, game.Cells)
	moveN := 0

	for board.GameOver() == game.Ongoing {
		probs, err := eng.MoveProbs()
		if err != nil {
			return nil, Result{}, err
		}

		col, err := sampleMove(&board, probs, cfg, moveN, rng)
		if err != nil {
			return nil, Result{}, err
		}

		rows = append(rows, store.TrainingRow{
			GameID:      gameID,
			Ply:         int32(moveN),
			Position:    board.Position(),
			Policy:      int32(col),
			PolicyProbs: probs[:],
			Source:      "selfplay",
		})

		board.Play(col)
		eng.RecycleTree(col)
		moveN++

		if onMove != nil {
			onMove(col, probs)
		}
	}

	result := Result{Plies: moveN}
	if board.GameOver() == game.Won {
		// The winner is the side that played the final move.
		if moveN%2 == 1 {
			result.Winner = 1
		} else {
			result.Winner = -1
		}
	}

	// Assign outcome values now that the result is known: +1 when the row's
	// side to move went on to win, -1 when it lost, 0 on a draw.
	for i := range rows {
		if result.Winner == 0 {
			continue
		}
		sideToMove := 1
		if rows[i].Ply%2 == 1 {
			sideToMove = -1
		}
		if sideToMove == result.Winner {
			rows[i].Value = 1
		} else {
			rows[i].Value = -1
		}
	}

	return rows, result, nil
}

// sampleMove blends the visit distribution with Dirichlet noise, applies the
// temperature schedule, and samples a legal column by inverse CDF.
func sampleMove(board *game.State, probs [game.Cols]float32, cfg Config, moveN int, rng *rand.Rand) (int, error) {
	legal := board.LegalMoves()
	legalN := 0
	for _, ok := range legal {
		if ok {
			legalN++
		}
	}
	if legalN == 0 {
		return 0, fmt.Errorf("no legal moves to sample")
	}

	alpha := make([]float64, legalN)
	for i := range alpha {
		alpha[i] = cfg.DirAlpha
	}
	theta := distuv.NewDirichlet(alpha, rng).Rand(nil)

	var mixed [game.Cols]float64
	next := 0
	for col := 0; col < game.Cols; col++ {
		if !legal[col] {
			continue
		}
		mixed[col] = searchWeight*float64(probs[col]) + noiseWeight*theta[next]
		next++
	}

	// Sharpen: p^(1/t) computed as exp(log(p+ε)/t), where ε (the smallest
	// nonzero float64) keeps the log finite when p is 0.
	temperature := highTemperature
	if moveN >= cfg.TempCutoff {
		temperature = lowTemperature
	}
	sum := 0.0
	for col := 0; col < game.Cols; col++ {
		if !legal[col] {
			continue
		}
		mixed[col] = math.Exp(math.Log(mixed[col]+math.SmallestNonzeroFloat64) / temperature)
		sum += mixed[col]
	}
	for col := 0; col < game.Cols; col++ {
		mixed[col] /= sum
	}

	r := rng.Float64()
	acc := 0.0
	last := 0
	for col := 0; col < game.Cols; col++ {
		if !legal[col] {
			continue
		}
		last = col
		acc += mixed[col]
		if acc > r {
			return col, nil
		}
	}
	// Rounding left acc just below r; the last legal column takes it.
	return last, nil
}
