package system

import (
	"time"

	"github.com/cybrelink/server/internal/core/system"
	"github.com/cybrelink/server/internal/handler"
	"go.uber.org/zap"
)

// PersistenceSystem hands dirty world state to the flush worker on a fixed
// interval. It never touches the network itself; a slow or dead backend
// costs nothing but a dropped snapshot.
type PersistenceSystem struct {
	deps     *handler.Deps
	interval time.Duration
	elapsed  time.Duration
}

func NewPersistenceSystem(deps *handler.Deps) *PersistenceSystem {
	return &PersistenceSystem{
		deps:     deps,
		interval: deps.Config.World.SaveInterval,
	}
}

func (s *PersistenceSystem) Phase() system.Phase { return system.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0

	ds := s.deps.World.SnapshotDirty()
	if ds.Empty() {
		return
	}
	s.deps.Log.Debug("排程自動存檔",
		zap.Int("players", len(ds.Players)),
		zap.Int("computers", len(ds.Computers)),
		zap.Int("missions", len(ds.Missions)))
	s.deps.Flusher.Enqueue(ds)
}
