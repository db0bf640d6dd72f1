package handler

import (
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleChat relays a chat line to every authenticated player. The sender
// field is always overwritten with the session's handle — clients do not
// get to speak as someone else.
func HandleChat(sess *gonet.Session, f *packet.Frame, deps *Deps) {
	msg := packet.DecodeChat(f.Payload)
	if msg.Message == "" {
		return
	}
	msg.Sender = sess.Handle

	deps.Log.Debug("聊天訊息",
		zap.String("sender", msg.Sender),
		zap.String("channel", msg.Channel),
		zap.Int("len", len(msg.Message)))

	Broadcast(deps, packet.PLAYER_CHAT, msg.Encode())
}
