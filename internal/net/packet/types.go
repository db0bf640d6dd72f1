package packet

// Protocol constants shared with the client.
const (
	PROTOCOL_VERSION uint32 = 1
	HeaderSize              = 4
	MaxPayload              = 65535
)

// Packet types. 0x00-0x0F connection management, 0x10-0x1F auth,
// 0x20-0x2F player→server, 0x30-0x3F server→client world sync,
// 0x40-0x4F entity updates, 0xF0+ misc.
const (
	HANDSHAKE         byte = 0x01
	HANDSHAKE_ACK     byte = 0x02
	DISCONNECT        byte = 0x03
	KEEPALIVE         byte = 0x04
	AUTH_REQUEST      byte = 0x10
	AUTH_RESPONSE     byte = 0x11
	PLAYER_CONNECT    byte = 0x20
	PLAYER_DISCONNECT byte = 0x21
	PLAYER_ACTION     byte = 0x22
	PLAYER_CHAT       byte = 0x23
	WORLD_FULL        byte = 0x30
	WORLD_DELTA       byte = 0x31
	TIME_SYNC         byte = 0x32
	PLAYER_LIST       byte = 0x33
	AGENT_UPDATE      byte = 0x40
	TRACE_UPDATE      byte = 0x41
	MISSION_UPDATE    byte = 0x42
	LOG_ENTRY         byte = 0xF0
	NET_ERROR         byte = 0xFE
)

// Header flags.
const (
	FLAG_COMPRESSED    byte = 0x01 // payload is zstd compressed
	FLAG_RELIABLE      byte = 0x02
	FLAG_FRAGMENTED    byte = 0x04
	FLAG_LAST_FRAGMENT byte = 0x08
)

// Action types carried in PLAYER_ACTION payloads.
const (
	ACTION_ADD_BOUNCE      byte = 0x10
	ACTION_CLEAR_BOUNCES   byte = 0x11
	ACTION_CONNECT_TARGET  byte = 0x12
	ACTION_DISCONNECT_ALL  byte = 0x13
	ACTION_RUN_SOFTWARE    byte = 0x20
	ACTION_BYPASS_SECURITY byte = 0x21
	ACTION_DOWNLOAD_FILE   byte = 0x30
	ACTION_UPLOAD_FILE     byte = 0x31
	ACTION_DELETE_FILE     byte = 0x32
	ACTION_COPY_FILE       byte = 0x33
	ACTION_DELETE_LOG      byte = 0x40
	ACTION_MODIFY_LOG      byte = 0x41
	ACTION_TRANSFER_MONEY  byte = 0x50
	ACTION_SHUTDOWN_SYSTEM byte = 0x60
	ACTION_FRAME_PLAYER    byte = 0x70
	ACTION_PLACE_BOUNTY    byte = 0x71
)

// NET_ERROR reason codes.
const (
	ErrUnknownEntity     byte = 1
	ErrOffline           byte = 2
	ErrDenied            byte = 3
	ErrInsufficientFunds byte = 4
	ErrInvalidArgument   byte = 5
)

// ActionName returns a short label for audit logging.
func ActionName(t byte) string {
	switch t {
	case ACTION_ADD_BOUNCE:
		return "ADD_BOUNCE"
	case ACTION_CLEAR_BOUNCES:
		return "CLEAR_BOUNCES"
	case ACTION_CONNECT_TARGET:
		return "CONNECT_TARGET"
	case ACTION_DISCONNECT_ALL:
		return "DISCONNECT_ALL"
	case ACTION_RUN_SOFTWARE:
		return "RUN_SOFTWARE"
	case ACTION_BYPASS_SECURITY:
		return "BYPASS_SECURITY"
	case ACTION_DOWNLOAD_FILE:
		return "DOWNLOAD_FILE"
	case ACTION_UPLOAD_FILE:
		return "UPLOAD_FILE"
	case ACTION_DELETE_FILE:
		return "DELETE_FILE"
	case ACTION_COPY_FILE:
		return "COPY_FILE"
	case ACTION_DELETE_LOG:
		return "DELETE_LOG"
	case ACTION_MODIFY_LOG:
		return "MODIFY_LOG"
	case ACTION_TRANSFER_MONEY:
		return "TRANSFER_MONEY"
	case ACTION_SHUTDOWN_SYSTEM:
		return "SHUTDOWN_SYSTEM"
	case ACTION_FRAME_PLAYER:
		return "FRAME_PLAYER"
	case ACTION_PLACE_BOUNTY:
		return "PLACE_BOUNTY"
	default:
		return "UNKNOWN"
	}
}
