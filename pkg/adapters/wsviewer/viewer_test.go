package wsviewer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/multicam/pkg/adapters/logger"
	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/mocks"
	"github.com/user/multicam/pkg/stages/display"
)

func TestGridColumns(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 2}, {5, 3}, {6, 2}, {7, 3}, {9, 3}, {10, 4},
	}
	for _, tt := range tests {
		if got := GridColumns(tt.n); got != tt.want {
			t.Errorf("GridColumns(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func newViewer(t *testing.T, sinks ...*display.Sink) (*Server, *httptest.Server) {
	t.Helper()
	tiles := make([]Tile, len(sinks))
	for i, s := range sinks {
		tiles[i] = s
	}
	v := New(tiles, &mocks.Renderer{}, logger.NewNoop(), Options{Interval: 10 * time.Millisecond})
	ts := httptest.NewServer(v.Handler())
	t.Cleanup(func() {
		v.Close()
		ts.Close()
	})
	return v, ts
}

func dial(t *testing.T, ts *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) (Status, bool) {
	t.Helper()
	sawImage := false
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind == websocket.BinaryMessage {
			sawImage = true
			continue
		}
		var st Status
		if err := json.Unmarshal(msg, &st); err != nil {
			t.Fatalf("bad status %q: %v", msg, err)
		}
		return st, sawImage
	}
}

func TestServer_PageListsTilesInGrid(t *testing.T) {
	a := display.New("cam0", nil, logger.NewNoop())
	b := display.New("cam1", nil, logger.NewNoop())
	c := display.New("clip", nil, logger.NewNoop())
	_, ts := newViewer(t, a, b, c)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	for _, want := range []string{`data-name="cam0"`, `data-name="clip"`, "repeat(1, 1fr)", `data-req="start"`, `data-req="stop"`} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}

	if resp, _ := http.Get(ts.URL + "/ws/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", resp.StatusCode)
	}
}

func TestServer_PlaceholderUntilFirstImage(t *testing.T) {
	sink := display.New("cam0", nil, logger.NewNoop())
	_, ts := newViewer(t, sink)
	conn := dial(t, ts, "cam0")

	st, sawImage := readStatus(t, conn)
	if !st.Waiting || sawImage {
		t.Errorf("expected a waiting placeholder, got %+v image=%v", st, sawImage)
	}

	sink.SetImage(frame.NewImage(4, 2))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, sawImage = readStatus(t, conn)
		if sawImage {
			break
		}
	}
	if !sawImage || st.Waiting {
		t.Fatalf("expected an image push, got %+v", st)
	}
	if sink.Stats().Rendered == 0 {
		t.Error("push must mark the image rendered")
	}
}

func TestServer_ForwardsControlRequests(t *testing.T) {
	sink := display.New("cam0", nil, logger.NewNoop())
	_, ts := newViewer(t, sink)
	conn := dial(t, ts, "cam0")

	for _, msg := range []string{"bogus", "start-recording", "snapshot", "stop", "start"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []display.Request{display.RequestStartRecording, display.RequestSnapshot, display.RequestStop, display.RequestStart} {
		select {
		case got := <-sink.Requests():
			if got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("request %s not forwarded", want)
		}
	}
}

func TestServer_StatusTracksEvents(t *testing.T) {
	sink := display.New("cam0", nil, logger.NewNoop())
	v, _ := newViewer(t, sink)

	sink.HandleEvent(events.Event{Kind: events.RecordingStarted, Source: "cam0", Text: "/v/cam0.mp4"})
	v.HandleEvent(events.Event{Kind: events.Redraw, Source: "cam0", Stalled: true})
	v.HandleEvent(events.Event{Kind: events.DiskStatus, Text: "Disk: 12.0 GiB free"})

	st, ok := v.Status("cam0")
	if !ok || !st.Stalled || !st.Recording || st.Path != "/v/cam0.mp4" || st.Disk != "Disk: 12.0 GiB free" {
		t.Errorf("unexpected status %+v", st)
	}

	v.HandleEvent(events.Event{Kind: events.ImageReady, Source: "cam0"})
	if st, _ := v.Status("cam0"); st.Stalled {
		t.Error("a new image must clear the stalled flag")
	}
	if _, ok := v.Status("missing"); ok {
		t.Error("unknown tile must not report status")
	}
}

func TestServer_StalledStateIsPerTile(t *testing.T) {
	a := display.New("cam0", nil, logger.NewNoop())
	b := display.New("cam1", nil, logger.NewNoop())
	v, _ := newViewer(t, a, b)

	busA, busB := events.NewBus(), events.NewBus()
	busA.Subscribe(v.HandleEvent)
	busB.Subscribe(v.HandleEvent)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			busA.Emit(events.Event{Kind: events.Redraw, Source: "cam0", Stalled: true})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			busB.Emit(events.Event{Kind: events.Redraw, Source: "cam1", Stalled: true})
			busB.Emit(events.Event{Kind: events.ImageReady, Source: "cam1"})
		}
	}()
	wg.Wait()

	if st, _ := v.Status("cam0"); !st.Stalled {
		t.Error("cam0 must stay stalled")
	}
	if st, _ := v.Status("cam1"); st.Stalled {
		t.Error("cam1 must be cleared by its last image")
	}
	v.HandleEvent(events.Event{Kind: events.Redraw, Source: "unknown", Stalled: true})
}
