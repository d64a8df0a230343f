// Package store persists self-play training samples as Parquet batches.
package store

// schemaTag marks the row layout in the parquet file metadata so trainers
// can reject batches written by an incompatible engine build.
const schemaTag = "c4_training_row_v1"

// TrainingRow is a single supervised training sample.
//
// Position is the board in the engine's textual position format, read top row
// first: a self-contained, model-agnostic snapshot trainers can featurize
// however they like.
//
// Policy is the sampled column. PolicyProbs is the normalized MCTS visit
// distribution over all 7 columns. Value is the outcome target in [-1..1]
// from the perspective of the side to move in Position.
type TrainingRow struct {
	GameID      string    `parquet:"game_id,dict"`
	Ply         int32     `parquet:"ply"`
	Position    string    `parquet:"position,dict"`
	Policy      int32     `parquet:"policy"`
	PolicyProbs []float32 `parquet:"policy_probs"`
	Value       float32   `parquet:"value"`
	Source      string    `parquet:"source,dict"`
}
