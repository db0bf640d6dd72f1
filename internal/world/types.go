package world

import (
	"github.com/cybrelink/server/internal/net"
)

// Computer is a hackable host in the simulation.
type Computer struct {
	ID            int32
	IP            int64 // numeric form of IPString, see ParseIP
	IPString      string
	Name          string
	CompanyID     int32
	Type          int16
	SecurityLevel int16
	Running       bool

	// Security bypass state. Reset when the connected player disconnects.
	ProxyBypassed    bool
	FirewallBypassed bool
	MonitorDisabled  bool

	Connected []uint32 // session ids currently connected here
}

// BypassMask packs the three bypass flags for the wire.
func (c *Computer) BypassMask() byte {
	var m byte
	if c.ProxyBypassed {
		m |= 0x01
	}
	if c.FirewallBypassed {
		m |= 0x02
	}
	if c.MonitorDisabled {
		m |= 0x04
	}
	return m
}

// BankAccount lives on a bank computer and is addressable both by id and by
// (bank IP, account number).
type BankAccount struct {
	ID          int32
	BankIP      int64
	AccountNo   string
	AccountName string
	Balance     int32
	OwnerID     uint32 // owning session id, 0 for NPC/world accounts
}

// Mission is a job on the mission board. Claiming is terminal per claimant:
// a claimed mission can only be completed by its claimant or abandoned on
// that agent's removal.
type Mission struct {
	ID          int32
	Type        int16
	TargetIP    int64
	EmployerID  int32
	Description string
	Payment     int32
	MaxPayment  int32
	Difficulty  int16
	MinRating   int16
	ClaimedBy   int32 // agent id, 0 = unclaimed
	Completed   bool
}

// AccessLog is one line in a computer's access log.
type AccessLog struct {
	ComputerID int32
	AccessorIP string
	Action     string
	Timestamp  int64 // in-game clock stamp
}

// Agent is an NPC participant in the mission economy.
type Agent struct {
	ID                int32
	Handle            string
	UplinkRating      int16
	NeuromancerRating int16
	Credits           int32
	CurrentMissionID  int32   // 0 = idle
	ThinkTimer        float64 // seconds until next decision
}

// Bounty is an open contract against another agent or player.
type Bounty struct {
	TargetID uint32
	Amount   int32
	PlacedBy uint32 // session id
}

// TraceJob is an active trace running against a player while connected.
type TraceJob struct {
	Remaining float64 // in-game seconds
	Total     int32
}

// DownloadJob is a timed file transfer in progress.
type DownloadJob struct {
	ComputerID int32
	Filename   string
	Remaining  float64 // in-game seconds
}

// PlayerInfo is the authoritative state of an online player. Fields are
// mutated only under the world lock.
type PlayerInfo struct {
	SessionID uint32
	Session   *net.Session

	AuthID string // backend user id, empty for guests
	RowID  int32  // backend players row id, 0 when unsaved
	Handle string

	Credits           int32
	UplinkRating      int16
	NeuromancerRating int16

	ConnectedID int32   // computer id, 0 = not connected
	BouncePath  []int32 // computer ids routed through before the target

	Toolkit map[uint32]uint32 // software type -> version

	Trace     *TraceJob
	Downloads []*DownloadJob

	Dirty bool // needs persistence flush
}
