package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the sidecar may sit unused before it is stopped.
// The next Detect call restarts it with the already resolved model.
const idleShutdown = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Wire protocol, per frame: a 4-byte big-endian length and a JPEG image on
// stdin; one JSON line on stdout. On startup the service prints a single
// handshake line before accepting frames.
type MediaPipeDetector struct {
	config    Config
	script    string
	python    string
	modelPath string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

// LoadMediaPipe starts the landmark service, trying each of config.ModelPaths
// in order until one loads. A failing candidate is logged and skipped; only
// exhausting all of them is an error.
func LoadMediaPipe(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, fmt.Errorf("hand_landmarker_service.py not found")
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d := &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
	}

	for _, path := range config.ModelPaths {
		if _, err := os.Stat(path); err != nil {
			log.Printf("Landmark model not at %s: %v", path, err)
			continue
		}

		d.mu.Lock()
		d.modelPath = path
		err := d.ensureStarted()
		if err != nil {
			d.modelPath = ""
		}
		d.mu.Unlock()

		if err != nil {
			log.Printf("Failed to load landmark model %s: %v", path, err)
			continue
		}

		log.Printf("Landmark model loaded from %s", path)
		return d, nil
	}

	return nil, fmt.Errorf("%w: tried %d candidate paths", ErrModelUnavailable, len(config.ModelPaths))
}

// ModelPath returns the model the service was started with.
func (d *MediaPipeDetector) ModelPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modelPath
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	result, err := parseResponse([]byte(line), d.config.MaxHands)
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}
	if d.modelPath == "" {
		return ErrModelUnavailable
	}

	d.cmd = exec.Command(d.python, d.script,
		"--model", d.modelPath,
		"--running-mode", d.config.RunningMode,
		"--num-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinDetectionConfidence, 'f', -1, 64),
		"--min-presence-confidence", strconv.FormatFloat(d.config.MinPresenceConfidence, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	if err := d.handshake(); err != nil {
		d.shutdown()
		return err
	}

	d.lastUsed = time.Now()
	return nil
}

// handshake reads the service's first line and reports a model load failure.
func (d *MediaPipeDetector) handshake() error {
	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}

	var hello struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &hello); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if !hello.Ready {
		if hello.Error == "" {
			hello.Error = "service not ready"
		}
		return fmt.Errorf("landmark service: %s", hello.Error)
	}
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/hand_landmarker_service.py",
		"../scripts/hand_landmarker_service.py",
		filepath.Join(execDir, "scripts/hand_landmarker_service.py"),
		filepath.Join(os.Getenv("HOME"), ".fingerspell/scripts/hand_landmarker_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".fingerspell/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents one hand in the service's response.
type jsonHand struct {
	Points      []Point3D `json:"points"`
	WorldPoints []Point3D `json:"world_points"`
	Handedness  string    `json:"handedness"`
	Score       float64   `json:"score"`
}

// parseResponse decodes a response line. Hands missing any of the 21 image
// or world points are dropped so both result slices stay parallel.
func parseResponse(line []byte, maxHands int) (*Result, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", response.Error)
	}

	result := &Result{}
	for _, h := range response.Hands {
		if maxHands > 0 && len(result.Landmarks) >= maxHands {
			break
		}
		if len(h.Points) < NumLandmarks || len(h.WorldPoints) < NumLandmarks {
			log.Printf("Dropping hand with %d/%d landmarks", len(h.Points), len(h.WorldPoints))
			continue
		}

		image := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		world := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		copy(image.Points[:], h.Points[:NumLandmarks])
		copy(world.Points[:], h.WorldPoints[:NumLandmarks])

		result.Landmarks = append(result.Landmarks, image)
		result.WorldLandmarks = append(result.WorldLandmarks, world)
	}

	return result, nil
}
