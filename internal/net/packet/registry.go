package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateUnauth SessionState = iota // connected, handshake pending
	StateAuth                       // handshake accepted, in world
	StateDead                       // closing, no further dispatch
)

func (s SessionState) String() string {
	switch s {
	case StateUnauth:
		return "Unauth"
	case StateAuth:
		return "Auth"
	case StateDead:
		return "Dead"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Frame is one decoded wire packet: type and flags from the 4-byte header
// plus the (decompressed) payload.
type Frame struct {
	Type    byte
	Flags   byte
	Payload []byte
}

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, f *Frame)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps packet types to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps a packet type to a handler, restricted to the given states.
func (reg *Registry) Register(ptype byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[ptype] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the frame's type, validates the session
// state, and calls the handler. An unauthenticated session sending anything
// unexpected is a protocol violation and returns an error; an authenticated
// session sending an unknown type is logged and ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, f *Frame) error {
	reg.log.Debug("收到封包",
		zap.Uint8("type", f.Type),
		zap.Int("size", len(f.Payload)),
		zap.String("state", state.String()),
	)

	if state == StateDead {
		return nil
	}

	entry, ok := reg.handlers[f.Type]
	if !ok {
		if state == StateAuth {
			reg.log.Debug("未知封包類型", zap.Uint8("type", f.Type))
			return nil
		}
		return fmt.Errorf("packet type 0x%02x unexpected in state %s", f.Type, state)
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("封包類型在此狀態下不允許",
			zap.Uint8("type", f.Type),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("packet type 0x%02x not allowed in state %s", f.Type, state)
	}

	return reg.safeCall(entry.fn, sess, f)
}

// safeCall executes a handler with panic recovery so a single bad packet
// cannot crash the tick loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, f *Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Uint8("type", f.Type),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for packet type 0x%02x: %v", f.Type, rec)
		}
	}()
	fn(sess, f)
	return nil
}
