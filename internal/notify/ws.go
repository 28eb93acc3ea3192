package notify

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrNotConnected = errors.New("ws not connected")

type StateCallback func(state WebSocketState)

const (
	dialTimeout       = 10 * time.Second
	frameWriteTimeout = 5 * time.Second
	pingTimeout       = 3 * time.Second
	maxMissedPings    = 2
)

// WebSocket keeps one outbound connection to the dispatch service. A dead
// link is detected by failed pings or a read error and redialled up to
// maxRedials times.
type WebSocket struct {
	url        string
	maxRedials int
	keepalive  time.Duration
	headers    HeaderProvider
	logger     *zap.Logger

	mu    sync.RWMutex
	conn  *websocket.Conn
	state WebSocketState

	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[int]StateCallback
	lastID      int

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	stop    sync.Once
	loops   sync.WaitGroup
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		url:        strings.TrimSpace(wsURL),
		maxRedials: maxReconnectAttempts,
		keepalive:  30 * time.Second,
		logger:     logger,
		state:      WSStateDisconnected,
		listeners:  make(map[int]StateCallback),
		ctx:        ctx,
		cancel:     cancel,
		stopped:    make(chan struct{}),
	}
}

// SetHeaderProvider injects headers into every handshake, redials included.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) State() WebSocketState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool { return ws != nil && ws.State() == WSStateConnected }

// Connect dials once. On failure the redial loop takes over in the
// background and the dial error is returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if s := ws.State(); s == WSStateConnected || s == WSStateConnecting {
		return nil
	}
	ws.transition(WSStateConnecting)
	conn, err := ws.open(ctx)
	if err != nil {
		ws.transition(WSStateFailed)
		ws.redial()
		return err
	}
	ws.adopt(conn)
	return nil
}

func (ws *WebSocket) open(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.handshakeHeader(),
	})
	return conn, err
}

func (ws *WebSocket) adopt(conn *websocket.Conn) {
	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	ws.transition(WSStateConnected)

	ws.loops.Add(2)
	go ws.readAcks(conn)
	go ws.ping(conn)
}

// WriteJSON sends v as one text frame. Writes are serialized; a context
// without a deadline gets a short one.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	ws.mu.RLock()
	conn := ws.conn
	up := ws.state == WSStateConnected
	ws.mu.RUnlock()
	if conn == nil || !up {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, frameWriteTimeout)
		defer cancel()
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

// readAcks logs delivery acknowledgements until the connection breaks.
func (ws *WebSocket) readAcks(conn *websocket.Conn) {
	defer ws.loops.Done()
	for {
		var ack Ack
		err := wsjson.Read(ws.ctx, conn, &ack)
		if err != nil {
			if ws.closing() {
				return
			}
			ws.logger.Warn("notify_ws_read_error", zap.Error(err))
			ws.release(conn, "reconnect")
			ws.redial()
			return
		}
		switch {
		case ack.Error != "":
			ws.logger.Warn("notify_ws_nack", zap.String("game_id", ack.GameID), zap.String("error", ack.Error))
		default:
			ws.logger.Debug("notify_ws_ack", zap.String("type", ack.Type), zap.String("game_id", ack.GameID))
		}
	}
}

// ping releases conn after maxMissedPings consecutive failures; readAcks
// then sees the closed connection and redials.
func (ws *WebSocket) ping(conn *websocket.Conn) {
	defer ws.loops.Done()
	ticker := time.NewTicker(ws.keepalive)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-ws.stopped:
			return
		case <-ticker.C:
		}
		if !ws.owns(conn) {
			return
		}
		ctx, cancel := context.WithTimeout(ws.ctx, pingTimeout)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			missed = 0
			continue
		}
		if missed++; missed < maxMissedPings {
			continue
		}
		if !ws.closing() {
			ws.release(conn, "ping failure")
		}
		return
	}
}

func (ws *WebSocket) redial() {
	if ws.maxRedials <= 0 || ws.closing() {
		ws.transition(WSStateFailed)
		return
	}
	ws.transition(WSStateReconnecting)

	ws.loops.Add(1)
	go func() {
		defer ws.loops.Done()
		for attempt := 1; attempt <= ws.maxRedials; attempt++ {
			select {
			case <-ws.stopped:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := ws.open(ws.ctx)
			if err != nil {
				ws.logger.Debug("notify_ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.adopt(conn)
			ws.logger.Info("notify_ws_reconnected", zap.Int("attempt", attempt))
			return
		}
		ws.transition(WSStateFailed)
	}()
}

// OnStateChange registers cb and returns an id for RemoveStateCallback.
func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.listenersMu.Lock()
	defer ws.listenersMu.Unlock()
	ws.lastID++
	ws.listeners[ws.lastID] = cb
	return ws.lastID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.listenersMu.Lock()
	delete(ws.listeners, id)
	ws.listenersMu.Unlock()
}

func (ws *WebSocket) transition(state WebSocketState) {
	ws.mu.Lock()
	ws.state = state
	ws.mu.Unlock()

	ws.listenersMu.Lock()
	ids := make([]int, 0, len(ws.listeners))
	for id := range ws.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	cbs := make([]StateCallback, 0, len(ids))
	for _, id := range ids {
		cbs = append(cbs, ws.listeners[id])
	}
	ws.listenersMu.Unlock()

	for _, cb := range cbs {
		if cb != nil {
			cb(state)
		}
	}
}

// Close stops redials, closes the connection and waits for the background
// loops, bounded by ctx.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stop.Do(func() { close(ws.stopped) })
	ws.mu.RLock()
	conn := ws.conn
	ws.mu.RUnlock()
	if conn != nil {
		ws.release(conn, "close")
	}
	ws.cancel()

	done := make(chan struct{})
	go func() {
		ws.loops.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.transition(WSStateDisconnected)
		return nil
	}
}

// release closes conn unless a newer connection already replaced it.
func (ws *WebSocket) release(conn *websocket.Conn, reason string) {
	ws.mu.Lock()
	if ws.conn != conn {
		ws.mu.Unlock()
		return
	}
	ws.conn = nil
	ws.mu.Unlock()

	ws.transition(WSStateDisconnected)
	status := websocket.StatusGoingAway
	if ws.closing() {
		status = websocket.StatusNormalClosure
	}
	_ = conn.Close(status, reason)
}

func (ws *WebSocket) owns(conn *websocket.Conn) bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.conn == conn
}

func (ws *WebSocket) closing() bool {
	select {
	case <-ws.stopped:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) handshakeHeader() http.Header {
	h := http.Header{}
	if ws.headers == nil {
		return h
	}
	for k, v := range ws.headers() {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			h.Set(k, v)
		}
	}
	return h
}
