package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name     string
		deviceID int
	}{
		{name: "default device", deviceID: 0},
		{name: "device 1", deviceID: 1},
		{name: "device 2", deviceID: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.deviceID)
			require.NotNil(t, cam)

			assert.Equal(t, DefaultFPS, cam.FPS())
			assert.False(t, cam.IsOpen(), "camera should not be running initially")

			w, h := cam.Size()
			assert.Zero(t, w)
			assert.Zero(t, h)
		})
	}
}

func TestNewCameraWithSize(t *testing.T) {
	cam := NewCameraWithSize(0, 1280, 720)

	w, h := cam.Size()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{name: "set to 10", fps: 10, wantFPS: 10},
		{name: "set to 60", fps: 60, wantFPS: 60},
		{name: "set to 1", fps: 1, wantFPS: 1},
		{name: "set to 0 should keep previous", fps: 0, wantFPS: 1},
		{name: "set to negative should keep previous", fps: -5, wantFPS: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)
			assert.Equal(t, tt.wantFPS, cam.FPS())
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)

	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	assert.True(t, cam.IsOpen())

	mat, err := cam.ReadFrame()
	if assert.NoError(t, err) {
		require.NotNil(t, mat)
		assert.False(t, mat.Empty())

		w, h := cam.Size()
		if mat.Cols() != w || mat.Rows() != h {
			t.Logf("frame %dx%d differs from reported %dx%d", mat.Cols(), mat.Rows(), w, h)
		}
		mat.Close()
	}

	require.NoError(t, cam.Close())
	assert.False(t, cam.IsOpen())
}

func TestCamera_ReadFrame_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()
	assert.ErrorIs(t, err, ErrCameraNotOpen)
}

func TestCamera_Close_NotOpened(t *testing.T) {
	cam := NewCamera(0)

	assert.NoError(t, cam.Close())
}
