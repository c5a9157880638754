package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/metrics"
)

const (
	writeDeadline  = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongDeadline   = 60 * time.Second
	idleTimeout    = 5 * time.Minute
	sendBufferSize = 16
)

var (
	errWriterStopped  = errors.New("writer stopped")
	errSendBufferFull = errors.New("send buffer full")
)

// clientWriter serializes all writes to one WebSocket connection through a
// single goroutine. It owns the keepalive ping loop and the idle timeout.
type clientWriter struct {
	conn     *websocket.Conn
	clock    clockwork.Clock
	sendCh   chan []byte
	doneCh   chan struct{}
	deadCh   chan struct{}
	deadOnce sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup

	activityMu   sync.Mutex
	lastActivity time.Time
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		conn:         conn,
		clock:        clock,
		sendCh:       make(chan []byte, sendBufferSize),
		doneCh:       make(chan struct{}),
		deadCh:       make(chan struct{}),
		lastActivity: clock.Now(),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue hands a message to the write goroutine without blocking. A dead
// writer or a full buffer is a send failure; a full buffer means the client
// cannot keep up.
func (cw *clientWriter) enqueue(msg []byte) error {
	select {
	case <-cw.deadCh:
		return errWriterStopped
	default:
	}

	select {
	case cw.sendCh <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()
	// Once the write loop exits for any reason, further enqueues must fail
	// so the dispatcher detects the connection on its next fan-out.
	defer cw.markDead()

	for {
		select {
		case msg := <-cw.sendCh:
			start := cw.clock.Now()
			cw.updateWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			metrics.MessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			if cw.idleExceeded() {
				metrics.IdleDisconnectsTotal.Inc()
				return
			}
			cw.updateWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.PingFailuresTotal.Inc()
				return
			}
		case <-cw.doneCh:
			return
		}
	}
}

func (cw *clientWriter) markDead() {
	cw.deadOnce.Do(func() { close(cw.deadCh) })
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)
		_ = cw.conn.Close()
	})
	cw.wg.Wait()
}

// stopGraceful writes a close frame with reason before closing. The write
// happens only after the run goroutine has exited, so it never races another
// write on the same connection.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.conn.Close()
	})
}

func (cw *clientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.conn.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		cw.recordActivity()
		return nil
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}

// recordActivity marks the connection live. Called on pong and on every
// inbound frame the transport decodes.
func (cw *clientWriter) recordActivity() {
	cw.activityMu.Lock()
	cw.lastActivity = cw.clock.Now()
	cw.activityMu.Unlock()
}

func (cw *clientWriter) idleExceeded() bool {
	cw.activityMu.Lock()
	idle := cw.clock.Since(cw.lastActivity)
	cw.activityMu.Unlock()
	return idle >= idleTimeout
}
