// Package wsviewer serves a browser page that shows every pipeline in a grid.
// Images are pushed as JPEG over one websocket per source; the same socket
// carries recording and snapshot requests back to the pipeline.
package wsviewer

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"image"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/multicam/pkg/events"
	"github.com/user/multicam/pkg/frame"
	"github.com/user/multicam/pkg/ports"
	"github.com/user/multicam/pkg/stages/display"
)

const (
	// DefaultInterval is the push period per client.
	DefaultInterval = 66 * time.Millisecond
	// DefaultQuality is the JPEG quality of pushed images.
	DefaultQuality = 75

	writeWait = 2 * time.Second
)

// Tile is the display side of one pipeline. *display.Sink implements it.
type Tile interface {
	Name() string
	Label() string
	FPS() float64
	Render(fn func(img *frame.Image)) bool
	Recording() display.RecordingStatus
	Request(r display.Request) error
}

// Options configures the viewer.
type Options struct {
	Addr     string
	Interval time.Duration
	Quality  int
	// Fullscreen hides the header and buttons so the grid fills the window.
	Fullscreen bool
}

// Status is the overlay state sent with every push.
type Status struct {
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	FPS       float64 `json:"fps"`
	Waiting   bool    `json:"waiting"`
	Stalled   bool    `json:"stalled"`
	Recording bool    `json:"recording"`
	Paused    bool    `json:"paused"`
	Path      string  `json:"path,omitempty"`
	Disk      string  `json:"disk,omitempty"`
}

// tileState is the overlay state of one source.
type tileState struct {
	Tile
	stalled atomic.Bool
}

// Server is the viewer HTTP server.
type Server struct {
	tiles    []*tileState
	byName   map[string]*tileState
	renderer ports.Renderer
	logger   ports.Logger
	opts     Options
	upgrader websocket.Upgrader

	disk atomic.Pointer[string]

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a viewer for tiles, in display order.
func New(tiles []Tile, renderer ports.Renderer, logger ports.Logger, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	s := &Server{
		byName:   make(map[string]*tileState, len(tiles)),
		renderer: renderer,
		logger:   logger,
		opts:     opts,
		done:     make(chan struct{}),
	}
	for _, t := range tiles {
		ts := &tileState{Tile: t}
		s.tiles = append(s.tiles, ts)
		s.byName[t.Name()] = ts
	}
	return s
}

// GridColumns returns the column count for n tiles, keeping the grid close
// to square and widening it when the tiles do not fill whole rows.
func GridColumns(n int) int {
	if n <= 0 {
		return 1
	}
	root := int(math.Sqrt(float64(n)))
	rows := n / root
	cols := n / rows
	cols += n % (cols * rows)
	return cols
}

// HandleEvent tracks stalled sources and the disk status line. It is safe
// to subscribe it to several buses at once.
func (s *Server) HandleEvent(e events.Event) {
	switch e.Kind {
	case events.Redraw:
		if t, ok := s.byName[e.Source]; ok {
			t.stalled.Store(e.Stalled)
		}
	case events.ImageReady:
		if t, ok := s.byName[e.Source]; ok {
			t.stalled.Store(false)
		}
	case events.DiskStatus, events.DiskFloorReached:
		text := e.Text
		s.disk.Store(&text)
	}
}

// Status returns the overlay state of the named tile.
func (s *Server) Status(name string) (Status, bool) {
	t, ok := s.byName[name]
	if !ok {
		return Status{}, false
	}
	rec := t.Recording()
	st := Status{
		Name:      name,
		Label:     t.Label(),
		FPS:       t.FPS(),
		Stalled:   t.stalled.Load(),
		Recording: rec.Recording,
		Paused:    rec.Paused,
		Path:      rec.Path,
	}
	if d := s.disk.Load(); d != nil {
		st.Disk = *d
	}
	return st, true
}

// Handler returns the routes: "/" for the page and "/ws/<name>" per source.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.servePage)
	mux.HandleFunc("/ws/", s.serveSocket)
	return mux
}

// Run listens on Options.Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.logger.Warn("Viewer stopped: %v", err)
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("Viewer listening on %s", "http://"+ln.Addr().String())

	go func() {
		<-ctx.Done()
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.logger.Warn("Viewer stopped: %v", err)
	return err
}

// Close ends every client connection.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type pageData struct {
	Columns    int
	Fullscreen bool
	Tiles      []string
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := pageData{Columns: GridColumns(len(s.tiles)), Fullscreen: s.opts.Fullscreen}
	for _, t := range s.tiles {
		data.Tiles = append(data.Tiles, t.Name())
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/ws/")
	tile, ok := s.byName[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := conn.RemoteAddr().String()
	s.logger.Debug("Viewer client connected: %s", client)
	defer s.logger.Debug("Viewer client disconnected: %s", client)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		s.readRequests(conn, tile)
	}()
	s.push(conn, tile, gone)
}

// readRequests applies request names sent by the page until the socket closes.
func (s *Server) readRequests(conn *websocket.Conn, tile *tileState) {
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		req, ok := display.ParseRequest(strings.TrimSpace(string(msg)))
		if !ok {
			s.logger.Warn("Unknown control request %q from viewer", string(msg))
			continue
		}
		if err := tile.Request(req); err != nil {
			return
		}
	}
}

// push sends the current image and overlay status every interval.
func (s *Server) push(conn *websocket.Conn, tile *tileState, gone <-chan struct{}) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var rgba *image.RGBA
	for {
		has := tile.Render(func(img *frame.Image) {
			rgba = img.ToRGBA(rgba)
		})
		if has {
			jpg, err := s.renderer.EncodeImage(rgba, ports.FormatJPEG, s.opts.Quality)
			if err == nil {
				if s.write(conn, websocket.BinaryMessage, jpg) != nil {
					return
				}
			}
		}

		st, _ := s.Status(tile.Name())
		st.Waiting = !has
		msg, _ := json.Marshal(st)
		if s.write(conn, websocket.TextMessage, msg) != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, kind int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, data)
}

var _ Tile = (*display.Sink)(nil)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>multicam</title>
<style>
body { margin: 0; background: #111; color: #eee; font: 13px sans-serif; }
header { padding: 6px 10px; }
.grid { display: grid; grid-template-columns: repeat({{.Columns}}, 1fr); gap: 4px; padding: 4px; }
.tile { position: relative; border: 1px solid #444; min-height: 120px; background: #000; }
.tile img { width: 100%; display: block; }
.tile.waiting { border: 2px dashed #666; }
.tile.stalled img { opacity: .5; }
.overlay { position: absolute; top: 4px; left: 4px; background: rgba(0,0,0,.6); padding: 2px 6px; }
.rec { color: #f44; }
.controls { position: absolute; bottom: 4px; left: 4px; }
.fullscreen header, .fullscreen .controls { display: none; }
</style>
</head>
<body{{if .Fullscreen}} class="fullscreen"{{end}}>
<header><span id="disk"></span></header>
<div class="grid">
{{range .Tiles}}<div class="tile waiting" data-name="{{.}}">
<img alt="">
<div class="overlay"><span class="label">{{.}}</span> <span class="fps"></span> <span class="rec"></span></div>
<div class="controls">
<button data-req="start">start</button><button data-req="stop">halt</button>
<button data-req="start-recording">rec</button><button data-req="pause-recording">pause</button><button data-req="continue-recording">continue</button><button data-req="stop-recording">stop</button><button data-req="snapshot">snap</button>
</div>
</div>
{{end}}</div>
<script>
document.querySelectorAll(".tile").forEach(function (tile) {
  var name = tile.dataset.name;
  var img = tile.querySelector("img");
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws/" + encodeURIComponent(name));
  ws.binaryType = "blob";
  ws.onmessage = function (ev) {
    if (typeof ev.data !== "string") {
      var old = img.src;
      img.src = URL.createObjectURL(ev.data);
      if (old) URL.revokeObjectURL(old);
      return;
    }
    var st = JSON.parse(ev.data);
    tile.classList.toggle("waiting", st.waiting);
    tile.classList.toggle("stalled", st.stalled);
    tile.querySelector(".label").textContent = st.label;
    tile.querySelector(".fps").textContent = "FPS: " + Math.round(st.fps) + (st.stalled ? " (stalled)" : "");
    tile.querySelector(".rec").textContent = st.recording ? (st.paused ? "PAUSED" : "REC") : "";
    if (st.disk) document.getElementById("disk").textContent = st.disk;
  };
  tile.querySelectorAll("button").forEach(function (b) {
    b.onclick = function () { ws.send(b.dataset.req); };
  });
});
</script>
</body>
</html>
`))
