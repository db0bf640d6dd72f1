package system

import (
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/handler"
	gonet "github.com/cybrelink/server/internal/net"
)

// TimeoutSystem disconnects sessions that have sent nothing for longer
// than the configured idle limit. KEEPALIVE counts as activity.
type TimeoutSystem struct {
	deps *handler.Deps
}

func NewTimeoutSystem(deps *handler.Deps) *TimeoutSystem {
	return &TimeoutSystem{deps: deps}
}

func (s *TimeoutSystem) Phase() system.Phase { return system.PhaseUpdate }

func (s *TimeoutSystem) Update(dt time.Duration) {
	limit := s.deps.Config.Network.ConnectionTimeout
	if limit <= 0 {
		return
	}
	s.deps.Sessions.ForEach(func(sess *gonet.Session) {
		if !sess.IsClosed() && sess.IdleFor() > limit {
			handler.Disconnect(s.deps, sess, "Connection timeout")
		}
	})
}
