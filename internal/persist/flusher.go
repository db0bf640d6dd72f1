package persist

import (
	"context"

	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// Flusher drains dirty-state snapshots on its own goroutine so HTTP never
// runs under the world lock or on the tick loop. Failures are logged and
// dropped — the world keeps running and the rows go out with a later flush
// once they dirty again.
type Flusher struct {
	store *Store
	log   *zap.Logger
	ch    chan world.DirtySnapshot
}

func NewFlusher(store *Store, log *zap.Logger) *Flusher {
	return &Flusher{
		store: store,
		log:   log,
		ch:    make(chan world.DirtySnapshot, 8),
	}
}

// Enqueue hands a snapshot to the worker. Never blocks the tick loop: if
// the worker is backed up the snapshot is dropped and the entities stay
// dirty-eligible for the next interval.
func (f *Flusher) Enqueue(ds world.DirtySnapshot) {
	if ds.Empty() {
		return
	}
	select {
	case f.ch <- ds:
	default:
		f.log.Warn("存檔佇列已滿，略過本次快照")
	}
}

// Run consumes snapshots until the context ends, then drains what is left.
func (f *Flusher) Run(ctx context.Context) error {
	for {
		select {
		case ds := <-f.ch:
			f.Flush(ds)
		case <-ctx.Done():
			for {
				select {
				case ds := <-f.ch:
					f.Flush(ds)
				default:
					return nil
				}
			}
		}
	}
}

// Flush writes one snapshot synchronously. Also used directly for the
// final save during shutdown.
func (f *Flusher) Flush(ds world.DirtySnapshot) {
	if !f.store.Enabled() || ds.Empty() {
		return
	}
	saved := 0
	for i := range ds.Players {
		p := &ds.Players[i]
		err := f.store.SavePlayer(&PlayerRow{
			ID:                p.RowID,
			AuthID:            p.AuthID,
			Handle:            p.Handle,
			Credits:           p.Credits,
			UplinkRating:      p.UplinkRating,
			NeuromancerRating: p.NeuromancerRating,
		})
		if err != nil {
			f.log.Error("玩家存檔失敗", zap.String("handle", p.Handle), zap.Error(err))
			continue
		}
		saved++
	}
	for i := range ds.Computers {
		c := &ds.Computers[i]
		err := f.store.SaveComputer(&ComputerRow{
			ID:            c.ID,
			IP:            c.IPString,
			Name:          c.Name,
			ComputerType:  c.Type,
			SecurityLevel: c.Security,
			IsRunning:     c.Running,
		})
		if err != nil {
			f.log.Error("主機存檔失敗", zap.Int32("id", c.ID), zap.Error(err))
			continue
		}
		saved++
	}
	for i := range ds.Missions {
		m := &ds.Missions[i]
		if err := f.store.SaveMission(m.ID, m.ClaimedBy, m.Completed); err != nil {
			f.log.Error("任務存檔失敗", zap.Int32("id", m.ID), zap.Error(err))
			continue
		}
		saved++
	}
	for i := range ds.Accounts {
		a := &ds.Accounts[i]
		if err := f.store.SaveAccount(a.ID, a.Balance); err != nil {
			f.log.Error("帳戶存檔失敗", zap.Int32("id", a.ID), zap.Error(err))
			continue
		}
		saved++
	}
	if saved > 0 {
		f.log.Info("自動存檔完成", zap.Int("rows", saved))
	}
}
