package handler

import (
	"fmt"

	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// Guest defaults for sessions that connect without an auth token (or when
// the backend is disabled). Guests play but are never persisted.
const (
	guestCredits      = 3000
	guestUplinkRating = 1
)

// HandleHandshake runs the whole join sequence: protocol check, token
// verification, profile load, world entry, then HANDSHAKE_ACK, the full
// world snapshot, and an immediate clock sync.
//
// Token verification and the profile fetch hit the backend inline. That
// stalls the tick loop for one round trip per join, which is acceptable at
// 32 players; moving joins to a worker would be the fix if it ever is not.
func HandleHandshake(sess *gonet.Session, f *packet.Frame, deps *Deps) {
	hs := packet.DecodeHandshake(f.Payload)

	if hs.ProtocolVersion != packet.PROTOCOL_VERSION {
		deps.Log.Warn("協定版本不符",
			zap.Uint32("session", sess.ID),
			zap.Uint32("client", hs.ProtocolVersion),
			zap.Uint32("server", packet.PROTOCOL_VERSION))
		Disconnect(deps, sess, "Protocol version mismatch")
		return
	}
	if hs.Handle == "" {
		Disconnect(deps, sess, "Invalid handshake")
		return
	}
	if deps.World.PlayerCount() >= deps.Config.Network.MaxPlayers {
		Disconnect(deps, sess, "Server full")
		return
	}

	info := &world.PlayerInfo{
		SessionID:    sess.ID,
		Session:      sess,
		Handle:       hs.Handle,
		Credits:      guestCredits,
		UplinkRating: guestUplinkRating,
	}

	if hs.AuthToken != "" && deps.Store.Enabled() {
		authID, err := deps.Store.VerifyToken(hs.AuthToken)
		if err != nil {
			deps.Log.Warn("權杖驗證失敗", zap.Uint32("session", sess.ID), zap.Error(err))
			Disconnect(deps, sess, "Authentication failed")
			return
		}
		info.AuthID = authID

		row, err := deps.Store.FetchPlayer(authID)
		if err != nil {
			deps.Log.Warn("讀取玩家資料失敗，使用預設值",
				zap.Uint32("session", sess.ID), zap.Error(err))
		} else if row != nil {
			info.RowID = row.ID
			info.Handle = row.Handle
			info.Credits = row.Credits
			info.UplinkRating = row.UplinkRating
			info.NeuromancerRating = row.NeuromancerRating
		} else {
			// First login: no row yet. Mark dirty and create it right away,
			// so a crash before the next flush cannot lose the account.
			info.Dirty = true
		}
	}

	sess.Handle = info.Handle
	sess.AuthID = info.AuthID
	deps.World.AddPlayer(info)
	sess.SetState(packet.StateAuth)

	if info.Dirty {
		if save, ok := deps.World.SnapshotPlayer(sess.ID); ok {
			deps.Flusher.Enqueue(world.DirtySnapshot{Players: []world.PlayerSave{save}})
		}
	}

	deps.Log.Info(fmt.Sprintf("玩家加入  session=%d  handle=%s  auth=%t  online=%d",
		sess.ID, info.Handle, info.AuthID != "", deps.World.PlayerCount()))

	ack := packet.HandshakeAck{PlayerID: sess.ID}
	sess.SendPacket(packet.HANDSHAKE_ACK, ack.Encode())

	// Full world snapshot, compressed when it pays for itself.
	snapshot := EncodeWorld(deps.World.FullSnapshot(), true)
	frame, err := gonet.EncodeCompressed(packet.WORLD_FULL, snapshot)
	if err != nil {
		deps.Log.Error("世界快照編碼失敗", zap.Uint32("session", sess.ID), zap.Error(err))
		Disconnect(deps, sess, "Internal server error")
		return
	}
	sess.Send(frame)

	sess.SendPacket(packet.TIME_SYNC, EncodeTimeSync(deps.Clock))

	// Announce the arrival to everyone already in.
	pc := packet.PlayerConnect{
		PlayerID: sess.ID,
		Handle:   info.Handle,
		Rating:   uint16(info.UplinkRating),
	}
	announce := pc.Encode()
	deps.Sessions.ForEach(func(s *gonet.Session) {
		if s.ID != sess.ID && s.State() == packet.StateAuth {
			s.SendPacket(packet.PLAYER_CONNECT, announce)
		}
	})
}

// EncodeTimeSync captures the in-game clock into its broadcast payload.
func EncodeTimeSync(c *world.Clock) []byte {
	active := byte(0)
	if c.IsActive() {
		active = 1
	}
	p := packet.TimeSync{
		Second: byte(c.Second()),
		Minute: byte(c.Minute()),
		Hour:   byte(c.Hour()),
		Day:    byte(c.Day()),
		Month:  byte(c.Month()),
		Year:   uint16(c.Year()),
		Active: active,
		Speed:  float32(c.Speed()),
	}
	return p.Encode()
}
