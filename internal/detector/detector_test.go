package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_First(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		var r *Result
		assert.Nil(t, r.First())
	})

	t.Run("no faces", func(t *testing.T) {
		assert.Nil(t, (&Result{}).First())
	})

	t.Run("returns first face", func(t *testing.T) {
		r := &Result{Faces: []Face{SmilingFace(), EllipseFace()}}
		face := r.First()
		require.NotNil(t, face)
		assert.True(t, face.HasBlendshapes())
	})
}

func TestFace_Blendshape(t *testing.T) {
	face := EllipseFace(Category{Name: "jawOpen", Score: 0.7})

	assert.Equal(t, 0.7, face.Blendshape("jawOpen"))
	assert.Equal(t, 0.0, face.Blendshape("eyeWideLeft"))

	var nilFace *Face
	assert.Equal(t, 0.0, nilFace.Blendshape("jawOpen"))
	assert.False(t, nilFace.HasBlendshapes())
}

func TestEllipseFace(t *testing.T) {
	face := EllipseFace()

	require.Len(t, face.Landmarks, NumFaceLandmarks)
	assert.False(t, face.HasBlendshapes())

	for i, p := range face.Landmarks {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Fatalf("landmark %d not normalized: %+v", i, p)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no faces by default", func(t *testing.T) {
		mock := NewMockDetector()

		result, err := mock.Detect(nil, 0)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result.Faces)
	})

	t.Run("returns configured faces", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetFaces([]Face{SmilingFace()})

		result, err := mock.Detect(nil, 0)

		require.NoError(t, err)
		assert.Len(t, result.Faces, 1)
	})

	t.Run("scripted call overrides default", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetResultAt(2, &Result{Faces: []Face{SmilingFace()}})

		for call := 0; call < 4; call++ {
			result, err := mock.Detect(nil, int64(call*33))
			require.NoError(t, err)
			if call == 2 {
				assert.Len(t, result.Faces, 1, "call %d", call)
			} else {
				assert.Empty(t, result.Faces, "call %d", call)
			}
		}

		assert.Equal(t, []int64{0, 33, 66, 99}, mock.Timestamps())
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		result, err := mock.Detect(nil, 0)

		assert.Equal(t, expectedErr, err)
		assert.Nil(t, result)
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()
		require.NoError(t, mock.Close())
		assert.True(t, mock.Closed())
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	pixels := []byte{1, 2, 3, 4, 5, 6}

	err := writeRequest(&buf, frameHeader{TimestampMs: 66, Width: 2, Height: 1}, pixels)
	require.NoError(t, err)

	var headerLen uint32
	require.NoError(t, binary.Read(&buf, binary.BigEndian, &headerLen))
	headerJSON := make([]byte, headerLen)
	_, err = io.ReadFull(&buf, headerJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp_ms":66,"width":2,"height":1}`, string(headerJSON))

	var dataLen uint32
	require.NoError(t, binary.Read(&buf, binary.BigEndian, &dataLen))
	assert.Equal(t, uint32(len(pixels)), dataLen)
	assert.Equal(t, pixels, buf.Bytes())
}

func TestReadResponse(t *testing.T) {
	t.Run("decodes faces and blendshapes", func(t *testing.T) {
		line := `{"faces":[{"landmarks":[{"x":0.1,"y":0.2,"z":0.0},{"x":0.3,"y":0.4,"z":-0.1}],` +
			`"blendshapes":[{"category_name":"jawOpen","score":0.75}]}]}` + "\n"

		result, err := readResponse(bufio.NewReader(strings.NewReader(line)))

		require.NoError(t, err)
		face := result.First()
		require.NotNil(t, face)
		assert.Len(t, face.Landmarks, 2)
		assert.Equal(t, Point3D{X: 0.3, Y: 0.4, Z: -0.1}, face.Landmarks[1])
		assert.Equal(t, 0.75, face.Blendshape("jawOpen"))
	})

	t.Run("no faces", func(t *testing.T) {
		result, err := readResponse(bufio.NewReader(strings.NewReader("{\"faces\":[]}\n")))
		require.NoError(t, err)
		assert.Nil(t, result.First())
	})

	t.Run("service error", func(t *testing.T) {
		_, err := readResponse(bufio.NewReader(strings.NewReader("{\"error\":\"model not found\"}\n")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := readResponse(bufio.NewReader(strings.NewReader("not json\n")))
		assert.Error(t, err)
	})

	t.Run("closed pipe", func(t *testing.T) {
		_, err := readResponse(bufio.NewReader(strings.NewReader("")))
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = "/nonexistent/" + serviceScript

	_, err := NewMediaPipeDetector(cfg)

	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "face_landmarker.task", cfg.ModelPath)
	assert.Equal(t, 1, cfg.MaxFaces)
	assert.True(t, cfg.Blendshapes)
}
