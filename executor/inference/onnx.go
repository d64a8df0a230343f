// Package inference wraps an ONNX Runtime policy/value network behind the
// search's Predictor interface.
package inference

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/c4uct/game"
)

const (
	InputSize  = game.EncodedSize
	PolicySize = game.Cols
	ValueSize  = 1
)

var ortInitOnce sync.Once
var ortInitErr error

// OnnxClient runs policy/value inference over ONNX Runtime.
//
// Predict is synchronous: the search core is single-threaded, so there is
// nothing to gain from request batching here.
type OnnxClient struct {
	session *ort.DynamicAdvancedSession
}

// NewOnnxClient loads the model at modelPath and prepares a session with one
// intra-op thread.
func NewOnnxClient(modelPath string) (*OnnxClient, error) {
	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			cwd, _ := os.Getwd()
			candidates := []string{
				"libonnxruntime.so",
				"libonnxruntime.so.1",
			}
			for _, name := range candidates {
				abs := filepath.Join(cwd, name)
				if _, err := os.Stat(abs); err == nil {
					ort.SetSharedLibraryPath(abs)
					break
				}
			}
		}
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to init ort: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"policy", "value"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &OnnxClient{session: session}, nil
}

func (c *OnnxClient) Close() error {
	return c.session.Destroy()
}

// Predict evaluates one encoded position and returns the raw 7-way policy
// and the scalar value.
func (c *OnnxClient) Predict(features []float32) ([]float32, float32, error) {
	if len(features) != InputSize {
		return nil, 0, fmt.Errorf("expected %d features, got %d", InputSize, len(features))
	}

	input := make([]float32, InputSize)
	copy(input, features)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, game.Cols, game.Rows, 3), input)
	if err != nil {
		return nil, 0, err
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, PolicySize))
	if err != nil {
		return nil, 0, err
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ValueSize))
	if err != nil {
		return nil, 0, err
	}
	defer valueTensor.Destroy()

	err = c.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor})
	if err != nil {
		return nil, 0, fmt.Errorf("run inference: %w", err)
	}

	policy := make([]float32, PolicySize)
	copy(policy, policyTensor.GetData())

	return policy, valueTensor.GetData()[0], nil
}
