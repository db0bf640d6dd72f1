package packet

// Fixed-layout payloads shared with the client. Field widths mirror the
// client's packed structs; encode/decode pairs keep the layout in one place.

// Handshake is the first packet a client must send.
type Handshake struct {
	ProtocolVersion uint32
	ClientVersion   uint32
	Handle          string // 32 bytes on the wire
	AuthToken       string // 512 bytes on the wire
}

func (p *Handshake) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.ProtocolVersion)
	w.WriteDU(p.ClientVersion)
	w.WriteS(p.Handle, 32)
	w.WriteS(p.AuthToken, 512)
	return w.Bytes()
}

func DecodeHandshake(data []byte) Handshake {
	r := NewReader(data)
	return Handshake{
		ProtocolVersion: r.ReadDU(),
		ClientVersion:   r.ReadDU(),
		Handle:          r.ReadS(32),
		AuthToken:       r.ReadS(512),
	}
}

// HandshakeAck carries the session's assigned player id.
type HandshakeAck struct {
	PlayerID uint32
}

func (p *HandshakeAck) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.PlayerID)
	return w.Bytes()
}

func DecodeHandshakeAck(data []byte) HandshakeAck {
	r := NewReader(data)
	return HandshakeAck{PlayerID: r.ReadDU()}
}

// Disconnect carries a human-readable reason.
type Disconnect struct {
	Reason string // 64 bytes on the wire
}

func (p *Disconnect) Encode() []byte {
	w := NewWriter()
	w.WriteS(p.Reason, 64)
	return w.Bytes()
}

func DecodeDisconnect(data []byte) Disconnect {
	r := NewReader(data)
	return Disconnect{Reason: r.ReadS(64)}
}

// Auth modes carried in AUTH_REQUEST.
const (
	AuthModeLogin  byte = 0
	AuthModeSignup byte = 1
)

// AuthRequest asks the backend for an account token before the handshake.
type AuthRequest struct {
	Mode     byte
	Email    string // 64 bytes on the wire
	Password string // 64 bytes on the wire
	Handle   string // 32 bytes on the wire, signup only
}

func (p *AuthRequest) Encode() []byte {
	w := NewWriter()
	w.WriteC(p.Mode)
	w.WriteS(p.Email, 64)
	w.WriteS(p.Password, 64)
	w.WriteS(p.Handle, 32)
	return w.Bytes()
}

func DecodeAuthRequest(data []byte) AuthRequest {
	r := NewReader(data)
	return AuthRequest{
		Mode:     r.ReadC(),
		Email:    r.ReadS(64),
		Password: r.ReadS(64),
		Handle:   r.ReadS(32),
	}
}

// AuthResponse returns the token to present in the handshake, or a
// human-readable failure message.
type AuthResponse struct {
	Success byte
	Token   string // 512 bytes on the wire
	Message string // 64 bytes on the wire
}

func (p *AuthResponse) Encode() []byte {
	w := NewWriter()
	w.WriteC(p.Success)
	w.WriteS(p.Token, 512)
	w.WriteS(p.Message, 64)
	return w.Bytes()
}

func DecodeAuthResponse(data []byte) AuthResponse {
	r := NewReader(data)
	return AuthResponse{
		Success: r.ReadC(),
		Token:   r.ReadS(512),
		Message: r.ReadS(64),
	}
}

// Action is a player command against a world entity.
type Action struct {
	Type     byte
	TargetID uint32
	Param1   uint32
	Param2   uint32
	Data     string // 64 bytes on the wire
}

func (p *Action) Encode() []byte {
	w := NewWriter()
	w.WriteC(p.Type)
	w.WriteDU(p.TargetID)
	w.WriteDU(p.Param1)
	w.WriteDU(p.Param2)
	w.WriteS(p.Data, 64)
	return w.Bytes()
}

func DecodeAction(data []byte) Action {
	r := NewReader(data)
	return Action{
		Type:     r.ReadC(),
		TargetID: r.ReadDU(),
		Param1:   r.ReadDU(),
		Param2:   r.ReadDU(),
		Data:     r.ReadS(64),
	}
}

// Chat is a relayed chat line. Sender is filled in by the server.
type Chat struct {
	Sender  string // 32 bytes on the wire
	Channel string // 32 bytes on the wire
	Message string // 256 bytes on the wire
}

func (p *Chat) Encode() []byte {
	w := NewWriter()
	w.WriteS(p.Sender, 32)
	w.WriteS(p.Channel, 32)
	w.WriteS(p.Message, 256)
	return w.Bytes()
}

func DecodeChat(data []byte) Chat {
	r := NewReader(data)
	return Chat{
		Sender:  r.ReadS(32),
		Channel: r.ReadS(32),
		Message: r.ReadS(256),
	}
}

// PlayerConnect announces a player joining to everyone already in.
type PlayerConnect struct {
	PlayerID uint32
	Handle   string // 32 bytes on the wire
	Rating   uint16
}

func (p *PlayerConnect) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.PlayerID)
	w.WriteS(p.Handle, 32)
	w.WriteH(p.Rating)
	return w.Bytes()
}

func DecodePlayerConnect(data []byte) PlayerConnect {
	r := NewReader(data)
	return PlayerConnect{
		PlayerID: r.ReadDU(),
		Handle:   r.ReadS(32),
		Rating:   r.ReadH(),
	}
}

// PlayerDisconnect announces a player leaving.
type PlayerDisconnect struct {
	PlayerID uint32
	Reason   string // 64 bytes on the wire
}

func (p *PlayerDisconnect) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.PlayerID)
	w.WriteS(p.Reason, 64)
	return w.Bytes()
}

func DecodePlayerDisconnect(data []byte) PlayerDisconnect {
	r := NewReader(data)
	return PlayerDisconnect{
		PlayerID: r.ReadDU(),
		Reason:   r.ReadS(64),
	}
}

// TimeSync broadcasts the in-game clock.
type TimeSync struct {
	Second byte
	Minute byte
	Hour   byte
	Day    byte
	Month  byte
	Year   uint16
	Active byte
	Speed  float32
}

func (p *TimeSync) Encode() []byte {
	w := NewWriter()
	w.WriteC(p.Second)
	w.WriteC(p.Minute)
	w.WriteC(p.Hour)
	w.WriteC(p.Day)
	w.WriteC(p.Month)
	w.WriteH(p.Year)
	w.WriteC(p.Active)
	w.WriteF(p.Speed)
	return w.Bytes()
}

func DecodeTimeSync(data []byte) TimeSync {
	r := NewReader(data)
	return TimeSync{
		Second: r.ReadC(),
		Minute: r.ReadC(),
		Hour:   r.ReadC(),
		Day:    r.ReadC(),
		Month:  r.ReadC(),
		Year:   r.ReadH(),
		Active: r.ReadC(),
		Speed:  r.ReadF(),
	}
}

// PlayerListEntry is one row of the online-player broadcast.
type PlayerListEntry struct {
	PlayerID uint32
	Handle   string // 32 bytes on the wire
	Rating   uint16
}

// PlayerList is capped at 32 entries, the connection limit.
type PlayerList struct {
	Players []PlayerListEntry
}

func (p *PlayerList) Encode() []byte {
	w := NewWriter()
	n := len(p.Players)
	if n > 32 {
		n = 32
	}
	w.WriteC(byte(n))
	for _, e := range p.Players[:n] {
		w.WriteDU(e.PlayerID)
		w.WriteS(e.Handle, 32)
		w.WriteH(e.Rating)
	}
	return w.Bytes()
}

func DecodePlayerList(data []byte) PlayerList {
	r := NewReader(data)
	n := int(r.ReadC())
	out := PlayerList{Players: make([]PlayerListEntry, 0, n)}
	for i := 0; i < n; i++ {
		out.Players = append(out.Players, PlayerListEntry{
			PlayerID: r.ReadDU(),
			Handle:   r.ReadS(32),
			Rating:   r.ReadH(),
		})
	}
	return out
}

// AgentUpdate reports a single agent's public stats.
type AgentUpdate struct {
	AgentID uint32
	Handle  string // 32 bytes on the wire
	Rating  uint16
	Credits int32
}

func (p *AgentUpdate) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.AgentID)
	w.WriteS(p.Handle, 32)
	w.WriteH(p.Rating)
	w.WriteD(p.Credits)
	return w.Bytes()
}

func DecodeAgentUpdate(data []byte) AgentUpdate {
	r := NewReader(data)
	return AgentUpdate{
		AgentID: r.ReadDU(),
		Handle:  r.ReadS(32),
		Rating:  r.ReadH(),
		Credits: r.ReadD(),
	}
}

// TraceUpdate is the per-tick countdown while a trace runs against a player.
type TraceUpdate struct {
	Remaining uint32 // in-game seconds left
	Total     uint32
}

func (p *TraceUpdate) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.Remaining)
	w.WriteDU(p.Total)
	return w.Bytes()
}

func DecodeTraceUpdate(data []byte) TraceUpdate {
	r := NewReader(data)
	return TraceUpdate{Remaining: r.ReadDU(), Total: r.ReadDU()}
}

// MissionUpdate reports a mission board state change.
type MissionUpdate struct {
	MissionID uint32
	ClaimedBy uint32
	Completed byte
}

func (p *MissionUpdate) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.MissionID)
	w.WriteDU(p.ClaimedBy)
	w.WriteC(p.Completed)
	return w.Bytes()
}

func DecodeMissionUpdate(data []byte) MissionUpdate {
	r := NewReader(data)
	return MissionUpdate{
		MissionID: r.ReadDU(),
		ClaimedBy: r.ReadDU(),
		Completed: r.ReadC(),
	}
}

// LogEntry pushes a fresh access-log line to interested clients.
type LogEntry struct {
	ComputerID uint32
	AccessorIP string // 24 bytes on the wire
	Action     string // 64 bytes on the wire
}

func (p *LogEntry) Encode() []byte {
	w := NewWriter()
	w.WriteDU(p.ComputerID)
	w.WriteS(p.AccessorIP, 24)
	w.WriteS(p.Action, 64)
	return w.Bytes()
}

func DecodeLogEntry(data []byte) LogEntry {
	r := NewReader(data)
	return LogEntry{
		ComputerID: r.ReadDU(),
		AccessorIP: r.ReadS(24),
		Action:     r.ReadS(64),
	}
}

// NetError reports why an action was rejected.
type NetError struct {
	ActionType byte
	Reason     byte
}

func (p *NetError) Encode() []byte {
	w := NewWriter()
	w.WriteC(p.ActionType)
	w.WriteC(p.Reason)
	return w.Bytes()
}

func DecodeNetError(data []byte) NetError {
	r := NewReader(data)
	return NetError{ActionType: r.ReadC(), Reason: r.ReadC()}
}
