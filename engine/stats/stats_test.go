package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSetIncAdd(t *testing.T) {
	s := New()
	s.SetStat("frame.last_frame_ms", 16)
	s.IncStat("frame.total_frames")
	s.IncStat("frame.total_frames")
	s.AddStat("betweenframe.total_processed", 5)

	v, ok := s.Get("frame.total_frames")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]int64{
		"frame.last_frame_ms":          16,
		"frame.total_frames":           2,
		"betweenframe.total_processed": 5,
	}, s.Snapshot())
	assert.Equal(t, []string{"betweenframe.total_processed", "frame.last_frame_ms", "frame.total_frames"}, s.Names())
}

func TestStatsConcurrentIncrements(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.IncStat("n")
			}
		}()
	}
	wg.Wait()
	v, _ := s.Get("n")
	assert.Equal(t, int64(8000), v)
}

func TestOrDiscard(t *testing.T) {
	assert.Equal(t, Discard, OrDiscard(nil))
	s := New()
	assert.Equal(t, Sink(s), OrDiscard(s))
	Discard.IncStat("ignored")
}

func TestServerAll(t *testing.T) {
	s := New()
	s.SetStat("frame.frames_per_second", 60000)
	srv := NewServer(s, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(60000), got["frame.frames_per_second"])
}

func TestServerOne(t *testing.T) {
	s := New()
	s.SetStat("frame.total_frames", 42)
	srv := NewServer(s, nil, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/frame.total_frames", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frame.total_frames":42}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStream(t *testing.T) {
	s := New()
	s.SetStat("frame.total_frames", 1)
	ts := httptest.NewServer(NewServer(s, nil, 10*time.Millisecond))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stats/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]int64
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, int64(1), got["frame.total_frames"])

	s.SetStat("frame.total_frames", 2)
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, int64(2), got["frame.total_frames"])
}
