package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybrelink/server/internal/net/packet"
	"go.uber.org/zap"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the tick loop.
type Session struct {
	ID   uint32 // doubles as the wire player id
	conn net.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan *packet.Frame // tick loop reads frames from here
	OutQueue chan []byte        // writer goroutine reads from here

	IP     string
	Handle string // set by the handshake handler (tick loop only)
	AuthID string // backend user id, empty for guests

	outBuf [][]byte // buffered frames, flushed by SyncSystem (tick loop only)

	lastActivity atomic.Int64 // unix nanos of last inbound traffic

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint32, inSize, outSize int, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan *packet.Frame, inSize),
		OutQueue: make(chan []byte, outSize),
		IP:       conn.RemoteAddr().String(),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint32("session", id)),
	}
	s.state.Store(int32(packet.StateUnauth))
	s.Touch()
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Touch records inbound traffic for the idle-timeout check.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor returns how long the session has been silent.
func (s *Session) IdleFor() time.Duration {
	return time.Duration(time.Now().UnixNano() - s.lastActivity.Load())
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers an encoded frame for sending. Nothing is written to TCP
// until FlushOutput runs at the end of the network tick.
// Called only from the tick loop goroutine — no lock needed on outBuf.
func (s *Session) Send(frame []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, frame)
}

// SendPacket encodes and buffers a typed payload. Oversized payloads are
// dropped with a log line rather than corrupting the stream.
func (s *Session) SendPacket(ptype byte, payload []byte) {
	frame, err := EncodeFrame(ptype, 0, payload)
	if err != nil {
		s.log.Error("封包編碼失敗", zap.Uint8("type", ptype), zap.Error(err))
		return
	}
	s.Send(frame)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. Non-blocking: if OutQueue is full the session is disconnected
// (backpressure against clients that stop reading).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts down the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDead)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop runs in its own goroutine. It feeds raw TCP bytes through the
// frame decoder and pushes whole frames onto InQueue for the tick loop.
func (s *Session) readLoop() {
	defer s.Close()

	var dec Decoder
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		s.Touch()
		dec.Feed(buf[:n])

		for {
			frame, err := dec.Next()
			if err != nil {
				s.log.Warn("封包解碼失敗，斷開連線", zap.Error(err))
				return
			}
			if frame == nil {
				break
			}
			// Block until InQueue has space or the session closes. The
			// readLoop goroutine is per-session, so this only stalls
			// the offending client.
			select {
			case s.InQueue <- frame:
			case <-s.closeCh:
				return
			}
		}
	}
}

// writeLoop runs in its own goroutine, draining OutQueue to the socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := s.conn.Write(data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
