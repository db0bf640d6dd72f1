package handler

import (
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"go.uber.org/zap"
)

// HandleAuth serves pre-handshake account requests: login exchanges
// credentials for the token the client then presents in HANDSHAKE; signup
// registers the account. The session stays unauthenticated either way —
// only the handshake grants entry to the world.
func HandleAuth(sess *gonet.Session, f *packet.Frame, deps *Deps) {
	req := packet.DecodeAuthRequest(f.Payload)

	if !deps.Store.Enabled() {
		sendAuthFailure(sess, "Authentication unavailable")
		return
	}
	if req.Email == "" || req.Password == "" {
		sendAuthFailure(sess, "Missing credentials")
		return
	}

	switch req.Mode {
	case packet.AuthModeLogin:
		token, err := deps.Store.SignIn(req.Email, req.Password)
		if err != nil {
			deps.Log.Warn("登入失敗", zap.Uint32("session", sess.ID), zap.Error(err))
			sendAuthFailure(sess, "Invalid credentials")
			return
		}
		resp := packet.AuthResponse{Success: 1, Token: token}
		sess.SendPacket(packet.AUTH_RESPONSE, resp.Encode())

	case packet.AuthModeSignup:
		if req.Handle == "" {
			sendAuthFailure(sess, "Handle required")
			return
		}
		if _, err := deps.Store.SignUp(req.Email, req.Password, req.Handle); err != nil {
			deps.Log.Warn("註冊失敗", zap.Uint32("session", sess.ID), zap.Error(err))
			sendAuthFailure(sess, "Signup failed")
			return
		}
		deps.Log.Info("新帳號註冊", zap.Uint32("session", sess.ID), zap.String("handle", req.Handle))
		resp := packet.AuthResponse{Success: 1, Message: "Account created"}
		sess.SendPacket(packet.AUTH_RESPONSE, resp.Encode())

	default:
		sendAuthFailure(sess, "Unknown auth mode")
	}
}

func sendAuthFailure(sess *gonet.Session, msg string) {
	resp := packet.AuthResponse{Message: msg}
	sess.SendPacket(packet.AUTH_RESPONSE, resp.Encode())
}
