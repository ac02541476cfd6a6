package inference

import (
	"fmt"
	"sync"

	"github.com/deepserve/image-classifier-api/pkg/config"
	ort "github.com/yalue/onnxruntime_go"
)

// input/output tensor names the training export uses
const (
	inputName  = "input"
	outputName = "output"
)

// Runner runs forward inference over one preprocessed view and returns the
// class probability vector.
type Runner interface {
	Infer(input []float32) ([]float32, error)
	Close() error
}

// RunnerFactory builds a Runner for a checkpoint file
type RunnerFactory func(modelPath string, imageSize, numClasses int) (Runner, error)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initialize the onnxruntime environment once per process
func initRuntime() error {
	ortInitOnce.Do(func() {
		if lib := config.ConfigGlobal.OrtSharedLib; lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

type ortRunner struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputLen     int
	numClasses   int
}

// NewRunner load an ONNX checkpoint with fixed [1,H,W,3] input and [1,C]
// output shapes. Intra-op parallelism is disabled, throughput is traded for
// robustness under repeated failed queries.
func NewRunner(modelPath string, imageSize, numClasses int) (Runner, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, int64(imageSize), int64(imageSize), 3)
	outputShape := ort.NewShape(1, int64(numClasses))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		opts)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ortRunner{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputLen:     imageSize * imageSize * 3,
		numClasses:   numClasses,
	}, nil
}

func (r *ortRunner) Infer(input []float32) ([]float32, error) {
	if len(input) != r.inputLen {
		return nil, fmt.Errorf("input length %d, expected %d", len(input), r.inputLen)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.inputTensor.GetData(), input)
	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	probs := make([]float32, r.numClasses)
	copy(probs, r.outputTensor.GetData())
	return probs, nil
}

func (r *ortRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputTensor != nil {
		r.inputTensor.Destroy()
		r.inputTensor = nil
	}
	if r.outputTensor != nil {
		r.outputTensor.Destroy()
		r.outputTensor = nil
	}
	if r.session != nil {
		r.session.Destroy()
		r.session = nil
	}
	return nil
}
