package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
)

const serviceScript = "face_landmarker_service.py"

// ErrScriptNotFound is returned when the landmarker sidecar script cannot be located.
var ErrScriptNotFound = errors.New(serviceScript + " not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MediaPipeDetector implements Detector using a Python MediaPipe Face
// Landmarker subprocess running in VIDEO mode.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastTS     int64
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findLandmarkerScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("landmarker script: %w", err)
	}
	if config.MaxFaces <= 0 {
		config.MaxFaces = 1
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		lastTS:     -1,
	}, nil
}

// frameHeader precedes the pixel payload of every request.
type frameHeader struct {
	TimestampMs int64 `json:"timestamp_ms"`
	Width       int   `json:"width"`
	Height      int   `json:"height"`
}

// serviceResponse is one JSON line written by the sidecar.
type serviceResponse struct {
	Faces []Face `json:"faces"`
	Error string `json:"error,omitempty"`
}

// Detect converts the frame to RGB, ships it to the sidecar and returns the
// decoded result.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, timestampMs int64) (*Result, error) {
	if frame == nil || frame.Empty() {
		return &Result{}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if timestampMs < d.lastTS {
		return nil, fmt.Errorf("timestamp %d is before previous %d", timestampMs, d.lastTS)
	}

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(*frame, &rgb, gocv.ColorBGRToRGB)

	header := frameHeader{
		TimestampMs: timestampMs,
		Width:       rgb.Cols(),
		Height:      rgb.Rows(),
	}
	if err := writeRequest(d.stdin, header, rgb.ToBytes()); err != nil {
		return nil, err
	}

	result, err := readResponse(d.stdout)
	if err != nil {
		return nil, err
	}

	d.lastTS = timestampMs
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// writeRequest frames a request as [len][header json][len][rgb bytes],
// lengths being 4-byte big-endian.
func writeRequest(w io.Writer, header frameHeader, pixels []byte) error {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(headerJSON))); err != nil {
		return fmt.Errorf("write header length: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(pixels))); err != nil {
		return fmt.Errorf("write data length: %w", err)
	}
	if _, err := w.Write(pixels); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// readResponse reads one JSON line from the sidecar.
func readResponse(r *bufio.Reader) (*Result, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response serviceResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("landmarker: %s", response.Error)
	}

	return &Result{Faces: response.Faces}, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.Python
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	args := []string{
		d.scriptPath,
		"--model", d.config.ModelPath,
		"--num-faces", strconv.Itoa(d.config.MaxFaces),
	}
	if !d.config.Blendshapes {
		args = append(args, "--no-blendshapes")
	}
	d.cmd = exec.Command(pythonPath, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmarker service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
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

func findLandmarkerScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".abhinaya", "scripts", serviceScript),
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
		filepath.Join(os.Getenv("HOME"), ".abhinaya/venv/bin/python"),
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
