package handler

import (
	"fmt"

	"github.com/cybrelink/server/internal/config"
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/persist"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// Backend is the slice of the persistence store the handlers call into.
// *persist.Store satisfies it; tests substitute fakes.
type Backend interface {
	Enabled() bool
	VerifyToken(token string) (string, error)
	FetchPlayer(authID string) (*persist.PlayerRow, error)
	SignIn(email, password string) (string, error)
	SignUp(email, password, handle string) (string, error)
}

// Deps carries shared server state into packet handlers.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	World    *world.State
	Clock    *world.Clock
	Store    Backend
	Flusher  *persist.Flusher
	Sessions *gonet.SessionStore
}

// RegisterAll wires every packet handler into the registry with its
// allowed session states. The state sets are the whole session FSM:
// anything else an unauthenticated client sends is a protocol violation.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	unauthOnly := []packet.SessionState{packet.StateUnauth}
	anyLive := []packet.SessionState{packet.StateUnauth, packet.StateAuth}
	authOnly := []packet.SessionState{packet.StateAuth}

	reg.Register(packet.HANDSHAKE, unauthOnly, func(sess any, f *packet.Frame) {
		HandleHandshake(sess.(*gonet.Session), f, deps)
	})
	reg.Register(packet.AUTH_REQUEST, unauthOnly, func(sess any, f *packet.Frame) {
		HandleAuth(sess.(*gonet.Session), f, deps)
	})
	reg.Register(packet.KEEPALIVE, anyLive, func(sess any, f *packet.Frame) {
		// Activity is tracked at the read loop; nothing else to do.
	})
	reg.Register(packet.DISCONNECT, anyLive, func(sess any, f *packet.Frame) {
		Disconnect(deps, sess.(*gonet.Session), "Client requested disconnect")
	})
	reg.Register(packet.PLAYER_ACTION, authOnly, func(sess any, f *packet.Frame) {
		HandleAction(sess.(*gonet.Session), f, deps)
	})
	reg.Register(packet.PLAYER_CHAT, authOnly, func(sess any, f *packet.Frame) {
		HandleChat(sess.(*gonet.Session), f, deps)
	})
}

// Disconnect tears a session down with a reason: notify, save, detach from
// the world, close. The input system sweeps the closed session out of the
// store on the next tick.
func Disconnect(deps *Deps, sess *gonet.Session, reason string) {
	if sess.State() == packet.StateDead {
		return
	}

	deps.Log.Info(fmt.Sprintf("玩家斷線  session=%d  handle=%s  reason=%s  online=%d",
		sess.ID, sess.Handle, reason, deps.World.PlayerCount()-1))

	bye := packet.Disconnect{Reason: reason}
	sess.SendPacket(packet.DISCONNECT, bye.Encode())
	sess.FlushOutput()

	wasInWorld := deps.World.GetPlayer(sess.ID) != nil
	if save, ok := deps.World.SnapshotPlayer(sess.ID); ok && save.AuthID != "" {
		deps.Flusher.Enqueue(world.DirtySnapshot{Players: []world.PlayerSave{save}})
	}
	deps.World.RemovePlayer(sess.ID)
	sess.Close()

	if wasInWorld {
		pd := packet.PlayerDisconnect{PlayerID: sess.ID, Reason: reason}
		Broadcast(deps, packet.PLAYER_DISCONNECT, pd.Encode())
	}
}

// sendNetError reports a rejected action back to its sender.
func sendNetError(sess *gonet.Session, actionType byte, reason world.Reason) {
	p := packet.NetError{ActionType: actionType, Reason: byte(reason)}
	sess.SendPacket(packet.NET_ERROR, p.Encode())
}

// Broadcast buffers a payload for every authenticated session.
func Broadcast(deps *Deps, ptype byte, payload []byte) {
	deps.Sessions.ForEach(func(s *gonet.Session) {
		if s.State() == packet.StateAuth {
			s.SendPacket(ptype, payload)
		}
	})
}

// BroadcastLog pushes a fresh access-log line to every authenticated
// session. A nil entry (suppressed by a disabled monitor) is dropped.
func BroadcastLog(deps *Deps, entry *world.AccessLog) {
	if entry == nil {
		return
	}
	p := packet.LogEntry{
		ComputerID: uint32(entry.ComputerID),
		AccessorIP: entry.AccessorIP,
		Action:     entry.Action,
	}
	Broadcast(deps, packet.LOG_ENTRY, p.Encode())
}

// EncodeWorld serializes a change set into a WORLD_FULL / WORLD_DELTA
// payload. Full snapshots carry the static fields (names, addresses)
// alongside the mutable ones; deltas carry only the mutable fields.
func EncodeWorld(cs world.ChangeSet, full bool) []byte {
	w := packet.NewDeltaWriter()
	for i := range cs.Computers {
		c := &cs.Computers[i]
		w.Begin(packet.EntityComputer, uint32(c.ID))
		w.Varint(packet.CompFieldSecurity, uint32(uint16(c.Security)))
		w.Varint(packet.CompFieldRunning, boolBit(c.Running))
		w.Varint(packet.CompFieldBypass, uint32(c.Bypass))
		w.Varint(packet.CompFieldConnected, uint32(c.Connected))
		if full {
			w.String(packet.CompFieldName, c.Name)
			w.String(packet.CompFieldIP, c.IPString)
		}
		w.End()
	}
	for i := range cs.Missions {
		m := &cs.Missions[i]
		w.Begin(packet.EntityMission, uint32(m.ID))
		w.Varint(packet.MissionFieldClaimedBy, uint32(m.ClaimedBy))
		w.Varint(packet.MissionFieldCompleted, boolBit(m.Completed))
		if full {
			w.Varint(packet.MissionFieldPayment, uint32(m.Payment))
			w.Varint(packet.MissionFieldDifficulty, uint32(uint16(m.Difficulty)))
			w.String(packet.MissionFieldDescription, m.Description)
			w.String(packet.MissionFieldTargetIP, m.TargetIP)
		}
		w.End()
	}
	for i := range cs.Agents {
		a := &cs.Agents[i]
		w.Begin(packet.EntityAgent, uint32(a.ID))
		w.Varint(packet.AgentFieldRating, uint32(uint16(a.Rating)))
		w.Varint(packet.AgentFieldCredits, uint32(a.Credits))
		w.Varint(packet.AgentFieldMission, uint32(a.MissionID))
		if full {
			w.String(packet.AgentFieldHandle, a.Handle)
		}
		w.End()
	}
	return w.Bytes()
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
