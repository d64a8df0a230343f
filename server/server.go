// Package server exposes position analysis over a websocket, for front ends
// that let a human play against or probe the engine.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/brensch/c4uct/executor/mcts"
	"github.com/brensch/c4uct/game"
)

// Playout bounds for requests, so a single query can neither starve the
// process nor return garbage from a tiny search.
const (
	minPlayouts = 10
	maxPlayouts = 30000
)

const defaultCPuct = 3.0

// EvalRequest asks for an evaluation of a position in the engine's textual
// format.
type EvalRequest struct {
	Position string `json:"position"`
	Playouts uint64 `json:"playouts"`
}

// EvalResponse carries the search result. EndOfGame is set when the position
// has no continuation to search.
type EvalResponse struct {
	Q         float32   `json:"q"`
	Move      int       `json:"move"`
	PV        []int     `json:"pv"`
	Probs     []float32 `json:"probs"`
	EndOfGame bool      `json:"end_of_game"`
}

// Server serves analysis queries using a shared predictor. Searches run
// one at a time per connection; the search core is single-threaded.
type Server struct {
	client   mcts.Predictor
	upgrader websocket.Upgrader
}

func New(client mcts.Predictor) *Server {
	return &Server{
		client: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ListenAndServe serves the analysis websocket on addr at /analysis.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/analysis", s.handleAnalysis)
	log.Info().Str("addr", addr).Msg("analysis server listening")
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req EvalRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		resp, err := s.evaluate(req)
		if err != nil {
			log.Error().Err(err).Msg("analysis failed")
			return
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) evaluate(req EvalRequest) (EvalResponse, error) {
	playouts := min(max(req.Playouts, minPlayouts), maxPlayouts)

	position := game.ParsePosition(req.Position)
	if position.GameOver() != game.Ongoing {
		return EvalResponse{EndOfGame: true}, nil
	}

	eng := mcts.NewEngine(position, s.client, defaultCPuct, playouts)
	probs, err := eng.MoveProbs()
	if err != nil {
		return EvalResponse{}, err
	}

	pv := eng.GetPV()
	if len(pv) == 0 {
		return EvalResponse{EndOfGame: true}, nil
	}
	return EvalResponse{
		Q:     eng.Root().Child(pv[0]).Q(),
		Move:  pv[0],
		PV:    pv,
		Probs: probs[:],
	}, nil
}
