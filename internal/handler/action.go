package handler

import (
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/world"
	"go.uber.org/zap"
)

// HandleAction is the single dispatch point for every player command. All
// validation lives in the world state; this layer translates wire fields,
// reports rejections as NET_ERROR, and fans out the side-effect packets.
func HandleAction(sess *gonet.Session, f *packet.Frame, deps *Deps) {
	a := packet.DecodeAction(f.Payload)
	ws := deps.World
	now := deps.Clock.Stamp()

	// Audit trail: every action attempt, accepted or not.
	deps.Log.Info("ACTION",
		zap.String("action", packet.ActionName(a.Type)),
		zap.Uint32("session", sess.ID),
		zap.String("handle", sess.Handle),
		zap.Uint32("target", a.TargetID),
		zap.Uint32("param1", a.Param1),
		zap.Uint32("param2", a.Param2),
		zap.String("data", a.Data))

	switch a.Type {
	case packet.ACTION_ADD_BOUNCE:
		if r := ws.AddBounce(sess.ID, int32(a.TargetID)); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_CLEAR_BOUNCES:
		ws.ClearBounces(sess.ID)

	case packet.ACTION_CONNECT_TARGET:
		total, r := ws.Connect(sess.ID, int32(a.TargetID))
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		entry := ws.LogAccess(int32(a.TargetID), ws.AccessorIP(sess.ID), "CONNECT", now)
		BroadcastLog(deps, entry)
		tu := packet.TraceUpdate{Remaining: uint32(total), Total: uint32(total)}
		sess.SendPacket(packet.TRACE_UPDATE, tu.Encode())

	case packet.ACTION_DISCONNECT_ALL:
		ws.DisconnectAll(sess.ID)
		tu := packet.TraceUpdate{}
		sess.SendPacket(packet.TRACE_UPDATE, tu.Encode())

	case packet.ACTION_RUN_SOFTWARE:
		if r := ws.RunSoftware(sess.ID, a.Param1, a.Param2); r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		sendSelfUpdate(deps, sess)

	case packet.ACTION_BYPASS_SECURITY:
		r := ws.Bypass(sess.ID, a.Param1)
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		p := ws.GetPlayer(sess.ID)
		if p != nil && p.ConnectedID != 0 {
			entry := ws.LogAccess(p.ConnectedID, ws.AccessorIP(sess.ID), "SECURITY_BYPASS", now)
			BroadcastLog(deps, entry)
		}

	case packet.ACTION_DOWNLOAD_FILE:
		if r := ws.StartDownload(sess.ID, a.Data); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_UPLOAD_FILE:
		r := ws.UploadFile(sess.ID, a.Data)
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		if p := ws.GetPlayer(sess.ID); p != nil && p.ConnectedID != 0 {
			entry := ws.LogAccess(p.ConnectedID, ws.AccessorIP(sess.ID), "FILE_UPLOAD "+a.Data, now)
			BroadcastLog(deps, entry)
		}

	case packet.ACTION_DELETE_FILE:
		// Requires the monitor down, so nothing is ever logged for it.
		if r := ws.DeleteFile(sess.ID, a.Data); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_COPY_FILE:
		r := ws.CopyFile(sess.ID, a.Data)
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		if p := ws.GetPlayer(sess.ID); p != nil && p.ConnectedID != 0 {
			entry := ws.LogAccess(p.ConnectedID, ws.AccessorIP(sess.ID), "FILE_COPY "+a.Data, now)
			BroadcastLog(deps, entry)
		}

	case packet.ACTION_DELETE_LOG:
		if r := ws.DeleteLog(sess.ID); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_MODIFY_LOG:
		if r := ws.ModifyLog(sess.ID, a.Data); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_TRANSFER_MONEY:
		// Wire layout: targetId = destination account, param1 = amount,
		// param2 = source account.
		if r := ws.Transfer(sess.ID, int32(a.Param2), int32(a.TargetID), int32(a.Param1)); r != world.OK {
			sendNetError(sess, a.Type, r)
		}

	case packet.ACTION_SHUTDOWN_SYSTEM:
		dropped, r := ws.ShutdownSystem(sess.ID, int32(a.TargetID))
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		// Everyone on the box lost their connection; clear their trace HUD.
		tu := packet.TraceUpdate{}
		cleared := tu.Encode()
		for _, sid := range dropped {
			if victim := deps.Sessions.Get(sid); victim != nil {
				victim.SendPacket(packet.TRACE_UPDATE, cleared)
			}
		}

	case packet.ACTION_FRAME_PLAYER:
		victim, r := ws.FramePlayer(sess.ID, a.TargetID, a.Data, now)
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		// The planted line is public record; the victim is not singled out.
		if p := ws.GetPlayer(sess.ID); p != nil && p.ConnectedID != 0 {
			le := packet.LogEntry{
				ComputerID: uint32(p.ConnectedID),
				AccessorIP: victim.Handle,
				Action:     "CRIME:" + a.Data,
			}
			Broadcast(deps, packet.LOG_ENTRY, le.Encode())
		}

	case packet.ACTION_PLACE_BOUNTY:
		victim, r := ws.PlaceBounty(sess.ID, a.TargetID, int32(a.Param1))
		if r != world.OK {
			sendNetError(sess, a.Type, r)
			return
		}
		sendSelfUpdate(deps, sess)
		// Mission id 0 marks a bounty notice rather than a board mission.
		if victim.Session != nil {
			mu := packet.MissionUpdate{MissionID: 0, ClaimedBy: victim.SessionID}
			victim.Session.SendPacket(packet.MISSION_UPDATE, mu.Encode())
		}

	default:
		// Unknown action types are logged and dropped; the session lives on.
		deps.Log.Warn("未知動作類型",
			zap.Uint8("type", a.Type), zap.Uint32("session", sess.ID))
	}
}

// sendSelfUpdate pushes the player's own stats back after they change
// outside the entity delta stream (credits, toolkit).
func sendSelfUpdate(deps *Deps, sess *gonet.Session) {
	p := deps.World.GetPlayer(sess.ID)
	if p == nil {
		return
	}
	au := packet.AgentUpdate{
		AgentID: sess.ID,
		Handle:  p.Handle,
		Rating:  uint16(p.UplinkRating),
		Credits: p.Credits,
	}
	sess.SendPacket(packet.AGENT_UPDATE, au.Encode())
}
