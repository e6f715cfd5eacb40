package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/sink"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/testdata"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func mockFactory(camera capture.Camera, d detector.Detector, rec *sink.Recorder) app.Factory {
	return app.Factory{
		NewDetector: func(detector.Config) (detector.Detector, error) { return d, nil },
		NewCamera:   func(int, int, int) capture.Camera { return camera },
		NewWriter: func(string, string, float64, int, int) (sink.Writer, error) {
			return rec, nil
		},
		NewDisplay: func(string) sink.Display { return rec },
	}
}

func TestE2E_SessionWithJournalAndPreview(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	frames := testdata.GraySequence(5, testdata.Width, testdata.Height)
	defer testdata.CloseAll(frames)

	camera := capture.NewMockCamera(frames, false)
	mock := detector.NewMockDetector()
	mock.SetResultAt(2, &detector.Result{Faces: []detector.Face{detector.SmilingFace()}})
	rec := sink.NewRecorder()
	defer rec.Release()

	cfg := config.Default()
	log := logging.Discard()

	pipeline, err := mockFactory(camera, mock, rec).Open(cfg, log)
	require.NoError(t, err)

	journal, err := app.StartJournal(st, cfg, log)
	require.NoError(t, err)
	pipeline.RegisterFrameCallback(journal.OnFrame)

	hub := server.NewHub()
	pipeline.RegisterFrameCallback(hub.Publish)

	ts := httptest.NewServer(server.New(server.Config{Hub: hub, Store: st, Logger: log}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/expressions", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		infos, _ := hub.Clients()
		return infos == 1
	}, 2*time.Second, 10*time.Millisecond)

	summary := pipeline.Run(context.Background())
	require.NoError(t, journal.Finish(summary))
	require.NoError(t, pipeline.Close())

	t.Run("Summary", func(t *testing.T) {
		assert.Equal(t, 5, summary.Frames)
		assert.Equal(t, 1, summary.Detections)
		assert.Equal(t, map[expression.Label]int{expression.Happy: 1}, summary.Labels)
		assert.Equal(t, app.StopEndOfStream, summary.Reason)
	})

	t.Run("OutputInOrder", func(t *testing.T) {
		written := rec.Frames()
		require.Len(t, written, 5)
		for i, f := range written {
			assert.Equal(t, testdata.Level(i), f.GetUCharAt(0, 0))
		}
		assert.True(t, rec.Closed())
		assert.True(t, mock.Closed())
		assert.False(t, camera.IsOpen())
	})

	t.Run("ExpressionFeed", func(t *testing.T) {
		var captions []string
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for i := 0; i < 5; i++ {
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)

			var info app.FrameInfo
			require.NoError(t, json.Unmarshal(msg, &info))
			assert.Equal(t, i, info.Index)
			if info.Caption != "" {
				captions = append(captions, info.Caption)
			}
		}
		assert.Equal(t, []string{"You seem Happy!"}, captions)
	})

	t.Run("JournalAPI", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/sessions/" + journal.SessionID())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			Frames     int                      `json:"frames"`
			Detections int                      `json:"detections"`
			Labels     map[expression.Label]int `json:"labels"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 5, got.Frames)
		assert.Equal(t, 1, got.Detections)
		assert.Equal(t, map[expression.Label]int{expression.Happy: 1}, got.Labels)
	})
}

func TestE2E_CameraUnavailable(t *testing.T) {
	camera := capture.NewMockCamera(nil, false)
	camera.SetOpenError(capture.ErrCameraNotOpen)
	mock := detector.NewMockDetector()
	rec := sink.NewRecorder()

	_, err := mockFactory(camera, mock, rec).Open(config.Default(), logging.Discard())

	require.ErrorIs(t, err, app.ErrOpenCamera)
	assert.Contains(t, err.Error(), "could not open webcam")
	assert.True(t, mock.Closed())
	assert.Empty(t, rec.Frames())
}
