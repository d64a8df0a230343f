// Command c4uct is the engine's operator console.
//
// It starts in analysis mode and switches between modes on command:
// analysis (position probing over stdin), selfplay (stochastic training
// games speaking a line protocol to a driving pipeline), game (human vs
// engine), and debug (arena inspection). With -addr it instead serves the
// analysis websocket.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"github.com/brensch/c4uct/executor/inference"
	"github.com/brensch/c4uct/executor/mcts"
	"github.com/brensch/c4uct/executor/selfplay"
	"github.com/brensch/c4uct/game"
	"github.com/brensch/c4uct/server"
	"github.com/brensch/c4uct/store"
)

// Mode transition codes.
const (
	modeAnalysis = 0
	modeSelfplay = 1
	modeGame     = 2
	modeDebug    = 3
	modeExit     = -1
)

func main() {
	modelPath := flag.String("model", "models/default.onnx", "path to the ONNX policy/value model")
	addr := flag.String("addr", "", "serve the analysis websocket on this address instead of the console")
	outDir := flag.String("out", "", "directory for self-play training parquet batches")
	logLevel := flag.String("log-level", "info", "zerolog level")
	flag.Parse()

	// Diagnostics go to stderr so they never corrupt the stdout protocol.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	client, err := inference.NewOnnxClient(*modelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model", *modelPath).Msg("failed to load model")
	}
	defer client.Close()

	if *addr != "" {
		if err := server.New(client).ListenAndServe(*addr); err != nil {
			log.Fatal().Err(err).Msg("analysis server stopped")
		}
		return
	}

	in := bufio.NewScanner(os.Stdin)
	mode := modeAnalysis
	for mode != modeExit {
		switch mode {
		case modeAnalysis:
			mode = analysisMode(in, client)
		case modeSelfplay:
			mode = selfplayMode(in, client, *outDir)
		case modeGame:
			mode = gameMode(in, client)
		case modeDebug:
			mode = debugMode(in, client)
		}
	}
}

// readLine returns the next input line, or false at EOF.
func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return in.Text(), true
}

func analysisMode(in *bufio.Scanner, client mcts.Predictor) int {
	fmt.Println("Welcome to analysis mode.")
	var board game.State

	for {
		line, ok := readLine(in)
		if !ok {
			return modeExit
		}
		switch {
		case line == "":
		case line == "isready":
			fmt.Println("readyok")
		case line == "d":
			fmt.Println(board.String())
		case strings.HasPrefix(line, "mv "):
			col, err := strconv.Atoi(strings.TrimPrefix(line, "mv "))
			if err != nil || col < 0 || col >= game.Cols {
				continue
			}
			// Illegal moves are ignored.
			if board.LegalMoves()[col] {
				board.Play(col)
			}
		case line == "undo":
			board.Undo()
		case strings.HasPrefix(line, "position set "):
			board = game.ParsePosition(strings.TrimPrefix(line, "position set "))
		case strings.HasPrefix(line, "getbest n "):
			playouts, err := strconv.ParseUint(strings.TrimPrefix(line, "getbest n "), 10, 64)
			if err != nil {
				continue
			}
			if playouts < 10 {
				playouts = 10
			}
			eng := mcts.NewEngine(board, client, 3, playouts)
			if err := eng.DoPlayouts(false); err != nil {
				log.Error().Err(err).Msg("search failed")
				continue
			}
			pv := eng.GetPV()
			if len(pv) == 0 {
				fmt.Println("end of game")
				continue
			}
			fmt.Printf("%v %d\n", eng.Root().Child(pv[0]).Q(), pv[0])
		case line == "ssp":
			return modeSelfplay
		case line == "game":
			return modeGame
		case line == "debug":
			return modeDebug
		case line == "exit":
			return modeExit
		}
	}
}

func selfplayMode(in *bufio.Scanner, client mcts.Predictor, outDir string) int {
	fmt.Println("Welcome to selfplay mode.")

	cfg := selfplay.DefaultConfig()
	src := rand.NewSource(uint64(time.Now().UnixNano()))

	// Games stream into one batch for the whole mode session; the batch is
	// published when the operator leaves the mode.
	var batch *store.BatchWriter
	finishBatch := func() {
		if batch == nil {
			return
		}
		path, err := batch.Finalize()
		if err != nil {
			log.Error().Err(err).Msg("failed to finalize training batch")
		} else if path != "" {
			log.Info().Str("path", path).Int("games", batch.Games()).Int("rows", batch.Rows()).Msg("training batch written")
		}
		batch = nil
	}
	defer finishBatch()

	for {
		line, ok := readLine(in)
		if !ok {
			return modeExit
		}
		switch {
		case line == "":
		case line == "isready":
			fmt.Println("readyok")
		case strings.HasPrefix(line, "seed "):
			seed, err := strconv.ParseUint(strings.TrimPrefix(line, "seed "), 10, 64)
			if err != nil {
				continue
			}
			src = rand.NewSource(seed)
			fmt.Printf("seed set to %d\n", seed)
		case strings.HasPrefix(line, "c_puct set "):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "c_puct set "), 32); err == nil {
				cfg.CPuct = float32(v)
			}
		case strings.HasPrefix(line, "dir_alpha set "):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, "dir_alpha set "), 64); err == nil {
				cfg.DirAlpha = v
			}
		case strings.HasPrefix(line, "temp_cutoff set "):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "temp_cutoff set ")); err == nil {
				cfg.TempCutoff = v
			}
		case strings.HasPrefix(line, "playouts set "):
			if v, err := strconv.ParseUint(strings.TrimPrefix(line, "playouts set "), 10, 64); err == nil {
				cfg.Playouts = v
			}
		case line == "params":
			fmt.Printf("Parameters\nc_puct %v\ndir_alpha %v\ntemp_cutoff %d\nplayouts %d\n",
				cfg.CPuct, cfg.DirAlpha, cfg.TempCutoff, cfg.Playouts)
		case line == "sspgo":
			rows, result, err := selfplay.PlayGame(client, cfg, src, func(col int, probs [game.Cols]float32) {
				for _, p := range probs {
					fmt.Printf("%v ", p)
				}
				fmt.Printf("~%d\n", col)
			})
			if err != nil {
				log.Error().Err(err).Msg("selfplay game failed")
				continue
			}
			fmt.Println("done")
			log.Info().Int("winner", result.Winner).Int("plies", result.Plies).Msg("game finished")
			if outDir != "" {
				if batch == nil {
					batch, err = store.NewBatchWriter(outDir)
					if err != nil {
						log.Error().Err(err).Msg("failed to open training batch")
						continue
					}
				}
				if err := batch.AppendGame(rows); err != nil {
					log.Error().Err(err).Msg("failed to append game to training batch")
				}
			}
		case line == "game":
			return modeGame
		case line == "exit":
			return modeExit
		}
	}
}

func gameMode(in *bufio.Scanner, client mcts.Predictor) int {
	fmt.Print("Search playouts (default 5000): ")
	line, ok := readLine(in)
	if !ok {
		return modeExit
	}
	playouts, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil || playouts == 0 {
		playouts = 5000
	}
	if playouts < 10 {
		playouts = 10
	}
	fmt.Printf("Set playouts to %d\n", playouts)

	var board game.State
	for board.GameOver() == game.Ongoing {
		selfplay.PrintBoard(&board)
		if board.XToMove() {
			if !humanMove(in, &board, client, playouts) {
				return modeExit
			}
		} else {
			computerMove(&board, client, playouts)
		}
	}

	fmt.Println("Game over!")
	selfplay.PrintBoard(&board)
	return modeAnalysis
}

// humanMove reads a column from the operator, or hands the turn to the
// engine on "go". Returns false at EOF.
func humanMove(in *bufio.Scanner, board *game.State, client mcts.Predictor, playouts uint64) bool {
	legal := board.LegalMoves()
	for {
		fmt.Print("Your turn: ")
		line, ok := readLine(in)
		if !ok {
			return false
		}
		if line == "go" {
			computerMove(board, client, playouts)
			return true
		}
		col, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || col < 0 || col >= game.Cols || !legal[col] {
			continue
		}
		board.Play(col)
		return true
	}
}

func computerMove(board *game.State, client mcts.Predictor, playouts uint64) {
	eng := mcts.NewEngine(*board, client, 3, playouts)
	if err := eng.DoPlayouts(false); err != nil {
		log.Error().Err(err).Msg("search failed")
		return
	}
	pv := eng.GetPV()
	if len(pv) == 0 {
		return
	}
	fmt.Printf("Winrate: %v %%\n", eng.Root().Child(pv[0]).Q()*50+50)
	board.Play(pv[0])
}

func debugMode(in *bufio.Scanner, client mcts.Predictor) int {
	fmt.Println("Welcome to debug mode.")

	// Debug mode has a persistent engine.
	var board game.State
	eng := mcts.NewEngine(board, client, 3, 800)

	for {
		line, ok := readLine(in)
		if !ok {
			return modeExit
		}
		switch {
		case line == "":
		case line == "isready":
			fmt.Println("readyok")
		case line == "peek":
			eng.DumpArena()
		case line == "go":
			if err := eng.DoPlayouts(true); err != nil {
				log.Error().Err(err).Msg("search failed")
			}
		case line == "cap":
			active, _ := eng.ArenaStats()
			fmt.Println(active)
		case strings.HasPrefix(line, "prune "):
			col, err := strconv.Atoi(strings.TrimPrefix(line, "prune "))
			if err != nil || col < 0 || col >= game.Cols {
				continue
			}
			if child := eng.Root().Child(col); child != nil {
				child.SetInactive()
			}
		case strings.HasPrefix(line, "select "):
			col, err := strconv.Atoi(strings.TrimPrefix(line, "select "))
			if err != nil || col < 0 || col >= game.Cols {
				continue
			}
			eng.RecycleTree(col)
		case line == "exit":
			return modeExit
		}
	}
}
