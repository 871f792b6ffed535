package ocr

import (
	"fmt"
	"image"
	"os"
	"sync"

	perrors "plate-reader/internal/errors"

	"gocv.io/x/gocv"
)

// NetClassifier runs an OpenCV DNN model (ONNX, TensorFlow, Caffe, ...)
// exported from the character recognizer.
type NetClassifier struct {
	mu  sync.Mutex
	net gocv.Net
}

// LoadNetClassifier reads the model at model (with an optional config file).
// Failure to load is a ClassifierError.
func LoadNetClassifier(model, config string) (*NetClassifier, error) {
	for _, path := range []string{model, config} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, perrors.NewClassifierError("dnn", "cannot read model file", err)
		}
	}
	if model == "" {
		return nil, perrors.NewClassifierError("dnn", "no model path configured", nil)
	}

	net := gocv.ReadNet(model, config)
	if net.Empty() {
		net.Close()
		return nil, perrors.NewClassifierError("dnn", fmt.Sprintf("model %s is empty", model), nil)
	}
	return &NetClassifier{net: net}, nil
}

// Classify runs one forward pass. The net is not re-entrant, so calls are
// serialized.
func (c *NetClassifier) Classify(input gocv.Mat) ([]float32, error) {
	if input.Empty() {
		return nil, fmt.Errorf("empty input")
	}
	// Input is already scaled; no mean subtraction, no channel swap
	blob := gocv.BlobFromImage(input, 1.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, perrors.NewClassifierError("dnn", "forward pass returned nothing", nil)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, perrors.NewClassifierError("dnn", "unexpected output type", err)
	}
	// data points into out, which is closed on return
	probs := make([]float32, len(data))
	copy(probs, data)
	return probs, nil
}

// Close releases the network.
func (c *NetClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}
