package classifier

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/tensor"
)

// DNNClassifier runs an exported letter model (ONNX or TensorFlow graph)
// through the OpenCV dnn module.
type DNNClassifier struct {
	mu     sync.Mutex
	net    gocv.Net
	path   string
	closed bool
}

// Load tries each candidate model path in order and returns the first that
// loads. A failing path is logged and skipped.
func Load(paths []string) (*DNNClassifier, error) {
	for _, path := range paths {
		c, err := Open(path)
		if err != nil {
			log.Printf("Failed to load classifier from %s: %v", path, err)
			continue
		}
		log.Printf("Classifier model loaded from %s", path)
		return c, nil
	}
	return nil, fmt.Errorf("%w: tried %d candidate paths", ErrNoModel, len(paths))
}

// Open loads a single model file.
func Open(path string) (*DNNClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read net %s: empty network", path)
	}

	return &DNNClassifier{net: net, path: path}, nil
}

// Path returns the loaded model file.
func (c *DNNClassifier) Path() string {
	return c.path
}

// Predict builds an input blob from in, runs a forward pass and copies the
// output scores back into Go memory. Both native buffers are released
// before returning, on every path.
func (c *DNNClassifier) Predict(in tensor.Tensor) (tensor.Tensor, error) {
	if in.IsEmpty() {
		return tensor.Tensor{}, ErrEmptyInput
	}
	if err := in.Validate(); err != nil {
		return tensor.Tensor{}, err
	}

	raw := float32Bytes(in.Data)
	blob, err := gocv.NewMatWithSizesFromBytes(in.Shape, gocv.MatTypeCV32F, raw)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return tensor.Tensor{}, ErrClosed
	}

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()
	runtime.KeepAlive(raw)

	if out.Empty() {
		return tensor.Tensor{}, fmt.Errorf("forward pass returned no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("read output: %w", err)
	}

	scores := tensor.Tensor{
		Shape: out.Size(),
		Data:  append([]float32(nil), data...),
	}
	return scores, nil
}

// Close releases the network.
func (c *DNNClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}

// float32Bytes serializes values in the little-endian layout OpenCV reads
// CV_32F data in.
func float32Bytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
