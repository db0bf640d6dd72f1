package handler

import (
	"net"
	"testing"

	"github.com/cybrelink/server/internal/config"
	gonet "github.com/cybrelink/server/internal/net"
	"github.com/cybrelink/server/internal/net/packet"
	"github.com/cybrelink/server/internal/persist"
	"github.com/cybrelink/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDeps builds a full offline handler environment. The store has no
// URL, so every session joins as a guest.
func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	cfg, err := config.Load("nonexistent.toml")
	require.NoError(t, err)
	log := zap.NewNop()
	store, err := persist.New("", "", log)
	require.NoError(t, err)

	clock := world.NewClock()
	clock.Activate()
	return &Deps{
		Config:   cfg,
		Log:      log,
		World:    world.NewState(1),
		Clock:    clock,
		Store:    store,
		Flusher:  persist.NewFlusher(store, log),
		Sessions: gonet.NewSessionStore(),
	}
}

// newTestSession builds a session over a pipe without starting its I/O
// goroutines; tests drive it synchronously.
func newTestSession(t *testing.T, deps *Deps, id uint32) *gonet.Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	sess := gonet.NewSession(server, id, 16, 64, zap.NewNop())
	deps.Sessions.Add(sess)
	return sess
}

// drainFrames flushes the session's buffered output and decodes it.
func drainFrames(t *testing.T, sess *gonet.Session) []*packet.Frame {
	t.Helper()
	sess.FlushOutput()
	var d gonet.Decoder
	for {
		select {
		case data := <-sess.OutQueue:
			d.Feed(data)
		default:
			var out []*packet.Frame
			for {
				f, err := d.Next()
				require.NoError(t, err)
				if f == nil {
					return out
				}
				out = append(out, f)
			}
		}
	}
}

func guestHandshake(handle string) *packet.Frame {
	hs := packet.Handshake{
		ProtocolVersion: packet.PROTOCOL_VERSION,
		ClientVersion:   1,
		Handle:          handle,
	}
	return &packet.Frame{Type: packet.HANDSHAKE, Payload: hs.Encode()}
}

func TestHandshakeGuestJoins(t *testing.T) {
	deps := newTestDeps(t)
	deps.World.AddComputer(&world.Computer{ID: 1, IPString: "10.0.0.1", Name: "Gateway", Running: true})
	sess := newTestSession(t, deps, 1)

	HandleHandshake(sess, guestHandshake("NeonRat"), deps)

	assert.Equal(t, packet.StateAuth, sess.State())
	assert.Equal(t, "NeonRat", sess.Handle)

	p := deps.World.GetPlayer(1)
	require.NotNil(t, p)
	assert.Equal(t, int32(3000), p.Credits)
	assert.Equal(t, int16(1), p.UplinkRating)
	assert.Empty(t, p.AuthID)

	frames := drainFrames(t, sess)
	require.Len(t, frames, 3)
	assert.Equal(t, packet.HANDSHAKE_ACK, frames[0].Type)
	ack := packet.DecodeHandshakeAck(frames[0].Payload)
	assert.Equal(t, uint32(1), ack.PlayerID)

	assert.Equal(t, packet.WORLD_FULL, frames[1].Type)
	ents, err := packet.DecodeDelta(frames[1].Payload)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, packet.EntityComputer, ents[0].Kind)

	assert.Equal(t, packet.TIME_SYNC, frames[2].Type)
	ts := packet.DecodeTimeSync(frames[2].Payload)
	assert.Equal(t, uint16(3010), ts.Year)
	assert.Equal(t, byte(1), ts.Active)
}

func TestHandshakeProtocolMismatch(t *testing.T) {
	deps := newTestDeps(t)
	sess := newTestSession(t, deps, 1)

	hs := packet.Handshake{ProtocolVersion: 99, Handle: "NeonRat"}
	HandleHandshake(sess, &packet.Frame{Type: packet.HANDSHAKE, Payload: hs.Encode()}, deps)

	assert.Equal(t, packet.StateDead, sess.State())
	assert.True(t, sess.IsClosed())
	assert.Nil(t, deps.World.GetPlayer(1))
}

func TestHandshakeEmptyHandle(t *testing.T) {
	deps := newTestDeps(t)
	sess := newTestSession(t, deps, 1)

	HandleHandshake(sess, guestHandshake(""), deps)
	assert.True(t, sess.IsClosed())
}

func TestHandshakeServerFull(t *testing.T) {
	deps := newTestDeps(t)
	deps.Config.Network.MaxPlayers = 1

	first := newTestSession(t, deps, 1)
	HandleHandshake(first, guestHandshake("First"), deps)
	require.Equal(t, packet.StateAuth, first.State())

	second := newTestSession(t, deps, 2)
	HandleHandshake(second, guestHandshake("Second"), deps)
	assert.True(t, second.IsClosed())
	assert.Nil(t, deps.World.GetPlayer(2))
	assert.Equal(t, 1, deps.World.PlayerCount())
}

func TestDisconnectDetachesPlayer(t *testing.T) {
	deps := newTestDeps(t)
	sess := newTestSession(t, deps, 1)
	HandleHandshake(sess, guestHandshake("NeonRat"), deps)
	require.NotNil(t, deps.World.GetPlayer(1))

	Disconnect(deps, sess, "Connection timeout")
	assert.True(t, sess.IsClosed())
	assert.Equal(t, packet.StateDead, sess.State())
	assert.Nil(t, deps.World.GetPlayer(1))

	// A second disconnect is a no-op.
	Disconnect(deps, sess, "again")
}

// fakeBackend stands in for the Supabase store in handshake tests.
type fakeBackend struct {
	authID string
	row    *persist.PlayerRow
}

func (f *fakeBackend) Enabled() bool                            { return true }
func (f *fakeBackend) VerifyToken(string) (string, error)       { return f.authID, nil }
func (f *fakeBackend) FetchPlayer(string) (*persist.PlayerRow, error) {
	return f.row, nil
}
func (f *fakeBackend) SignIn(string, string) (string, error)         { return "", nil }
func (f *fakeBackend) SignUp(string, string, string) (string, error) { return "", nil }

func TestHandshakeFirstLoginSchedulesCreate(t *testing.T) {
	deps := newTestDeps(t)
	deps.Store = &fakeBackend{authID: "auth-xyz"} // token valid, no row yet

	sess := newTestSession(t, deps, 1)
	hs := packet.Handshake{
		ProtocolVersion: packet.PROTOCOL_VERSION,
		Handle:          "NeonRat",
		AuthToken:       "jwt-token",
	}
	HandleHandshake(sess, &packet.Frame{Type: packet.HANDSHAKE, Payload: hs.Encode()}, deps)
	require.Equal(t, packet.StateAuth, sess.State())

	p := deps.World.GetPlayer(1)
	require.NotNil(t, p)
	assert.Equal(t, "auth-xyz", p.AuthID)
	assert.Equal(t, int32(3000), p.Credits) // guest defaults seed the new row

	// The new account is flush-eligible immediately, not only at disconnect.
	ds := deps.World.SnapshotDirty()
	require.Len(t, ds.Players, 1)
	assert.Equal(t, "auth-xyz", ds.Players[0].AuthID)
	assert.Equal(t, "NeonRat", ds.Players[0].Handle)
}

func TestHandshakeExistingRowNotRecreated(t *testing.T) {
	deps := newTestDeps(t)
	deps.Store = &fakeBackend{
		authID: "auth-xyz",
		row: &persist.PlayerRow{
			ID: 7, AuthID: "auth-xyz", Handle: "Stored",
			Credits: 9999, UplinkRating: 4,
		},
	}

	sess := newTestSession(t, deps, 1)
	hs := packet.Handshake{
		ProtocolVersion: packet.PROTOCOL_VERSION,
		Handle:          "Ignored",
		AuthToken:       "jwt-token",
	}
	HandleHandshake(sess, &packet.Frame{Type: packet.HANDSHAKE, Payload: hs.Encode()}, deps)

	p := deps.World.GetPlayer(1)
	require.NotNil(t, p)
	assert.Equal(t, "Stored", p.Handle)
	assert.Equal(t, int32(9999), p.Credits)
	assert.Empty(t, deps.World.SnapshotDirty().Players)
}

func TestAuthUnavailableOffline(t *testing.T) {
	deps := newTestDeps(t)
	sess := newTestSession(t, deps, 1)

	req := packet.AuthRequest{Mode: packet.AuthModeLogin, Email: "a@b.c", Password: "hunter2"}
	HandleAuth(sess, &packet.Frame{Type: packet.AUTH_REQUEST, Payload: req.Encode()}, deps)

	// The session survives; it can still join as a guest.
	assert.Equal(t, packet.StateUnauth, sess.State())
	assert.False(t, sess.IsClosed())

	frames := drainFrames(t, sess)
	require.Len(t, frames, 1)
	require.Equal(t, packet.AUTH_RESPONSE, frames[0].Type)
	resp := packet.DecodeAuthResponse(frames[0].Payload)
	assert.Equal(t, byte(0), resp.Success)
	assert.Equal(t, "Authentication unavailable", resp.Message)
}

func TestJoinAndLeaveAnnounced(t *testing.T) {
	deps := newTestDeps(t)

	first := newTestSession(t, deps, 1)
	HandleHandshake(first, guestHandshake("First"), deps)
	drainFrames(t, first)

	second := newTestSession(t, deps, 2)
	HandleHandshake(second, guestHandshake("Second"), deps)

	frames := drainFrames(t, first)
	require.Len(t, frames, 1)
	require.Equal(t, packet.PLAYER_CONNECT, frames[0].Type)
	pc := packet.DecodePlayerConnect(frames[0].Payload)
	assert.Equal(t, uint32(2), pc.PlayerID)
	assert.Equal(t, "Second", pc.Handle)

	Disconnect(deps, second, "Connection timeout")
	frames = drainFrames(t, first)
	require.Len(t, frames, 1)
	require.Equal(t, packet.PLAYER_DISCONNECT, frames[0].Type)
	pd := packet.DecodePlayerDisconnect(frames[0].Payload)
	assert.Equal(t, uint32(2), pd.PlayerID)
	assert.Equal(t, "Connection timeout", pd.Reason)
}
