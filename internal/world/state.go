package world

import (
	"math/rand"
	"sync"
)

// Reason codes for rejected operations, matching the NET_ERROR wire values.
type Reason byte

const (
	OK Reason = iota
	ReasonUnknownEntity
	ReasonOffline
	ReasonDenied
	ReasonInsufficientFunds
	ReasonInvalidArgument
)

// maxBouncePath caps the routing chain a client may build.
const maxBouncePath = 16

// accountKey addresses a bank account by (bank IP, account number).
type accountKey struct {
	bankIP    int64
	accountNo string
}

// State is the authoritative world container. A single coarse mutex guards
// everything; operations are short and the tick loop is the main caller, so
// contention stays low. The NPC scheduler takes the lock once per agent.
type State struct {
	mu  sync.Mutex
	rng *rand.Rand

	computers     map[int32]*Computer
	computerOrder []int32
	computerByIP  map[int64]*Computer

	accounts     map[int32]*BankAccount
	accountByKey map[accountKey]*BankAccount

	missions     map[int32]*Mission
	missionOrder []int32

	agents     map[int32]*Agent
	agentOrder []int32

	logs     []AccessLog
	bounties []Bounty

	players map[uint32]*PlayerInfo

	nextAgentID int32

	// Per-entity dirty sets consumed by the persistence flush.
	dirtyComputers map[int32]bool
	dirtyMissions  map[int32]bool
	dirtyAccounts  map[int32]bool
	logsDirty      bool

	// Change journal consumed by the WORLD_DELTA builder each network tick.
	changedComputers map[int32]bool
	changedMissions  map[int32]bool
	changedAgents    map[int32]bool
}

// NewState builds an empty world. The seed drives NPC decisions; fixed
// seeds give reproducible worlds.
func NewState(seed int64) *State {
	return &State{
		rng:              rand.New(rand.NewSource(seed)),
		computers:        make(map[int32]*Computer),
		computerByIP:     make(map[int64]*Computer),
		accounts:         make(map[int32]*BankAccount),
		accountByKey:     make(map[accountKey]*BankAccount),
		missions:         make(map[int32]*Mission),
		agents:           make(map[int32]*Agent),
		players:          make(map[uint32]*PlayerInfo),
		nextAgentID:      1000, // NPC agents start above any backend row id
		dirtyComputers:   make(map[int32]bool),
		dirtyMissions:    make(map[int32]bool),
		dirtyAccounts:    make(map[int32]bool),
		changedComputers: make(map[int32]bool),
		changedMissions:  make(map[int32]bool),
		changedAgents:    make(map[int32]bool),
	}
}

// ── Entity registration (world load / seed) ────────────────────────

func (st *State) AddComputer(c *Computer) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if c.IP == 0 {
		c.IP = ParseIP(c.IPString)
	}
	st.computers[c.ID] = c
	st.computerOrder = append(st.computerOrder, c.ID)
	st.computerByIP[c.IP] = c
}

func (st *State) AddAccount(a *BankAccount) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.accounts[a.ID] = a
	st.accountByKey[accountKey{a.BankIP, a.AccountNo}] = a
}

func (st *State) AddMission(m *Mission) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.missions[m.ID] = m
	st.missionOrder = append(st.missionOrder, m.ID)
}

func (st *State) AddAgent(a *Agent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if a.ID == 0 {
		a.ID = st.nextAgentID
		st.nextAgentID++
	}
	st.agents[a.ID] = a
	st.agentOrder = append(st.agentOrder, a.ID)
}

func (st *State) NumComputers() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.computers)
}

func (st *State) NumAccounts() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.accounts)
}

func (st *State) NumMissions() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.missions)
}

func (st *State) NumAgents() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.agents)
}

// FindComputer returns the computer with the given id, or nil.
func (st *State) FindComputer(id int32) *Computer {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.computers[id]
}

// FindComputerByIP looks a computer up by its numeric address.
func (st *State) FindComputerByIP(ip int64) *Computer {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.computerByIP[ip]
}

// FindAccount looks a bank account up by (bank IP, account number).
func (st *State) FindAccount(bankIP int64, accountNo string) *BankAccount {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.accountByKey[accountKey{bankIP, accountNo}]
}

// FindAccountByID looks a bank account up by id.
func (st *State) FindAccountByID(id int32) *BankAccount {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.accounts[id]
}

// ── Players ────────────────────────────────────────────────────────

func (st *State) AddPlayer(p *PlayerInfo) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p.Toolkit == nil {
		p.Toolkit = make(map[uint32]uint32)
	}
	st.players[p.SessionID] = p
}

// RemovePlayer detaches the player from the world and returns it for the
// final save. Disconnecting is the reset point for the target computer's
// bypass flags.
func (st *State) RemovePlayer(sessionID uint32) *PlayerInfo {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return nil
	}
	st.disconnectTargetLocked(p)
	delete(st.players, sessionID)
	return p
}

func (st *State) GetPlayer(sessionID uint32) *PlayerInfo {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.players[sessionID]
}

func (st *State) PlayerCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.players)
}

// AllPlayers visits every online player under the world lock.
func (st *State) AllPlayers(fn func(*PlayerInfo)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, p := range st.players {
		fn(p)
	}
}

// ── Connection and trace ───────────────────────────────────────────

// Connect attaches a player to a target computer and starts the trace
// against them. Connecting while already connected implicitly disconnects
// first. Returns the trace total in game seconds.
func (st *State) Connect(sessionID uint32, computerID int32) (int32, Reason) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return 0, ReasonUnknownEntity
	}
	c, ok := st.computers[computerID]
	if !ok {
		return 0, ReasonUnknownEntity
	}
	if !c.Running {
		return 0, ReasonOffline
	}
	if p.ConnectedID != 0 {
		st.disconnectTargetLocked(p)
	}

	p.ConnectedID = c.ID
	c.Connected = append(c.Connected, sessionID)
	st.changedComputers[c.ID] = true

	// Trace clock: base on target security, each bounce hop buys time.
	total := int32(20) + 5*int32(c.SecurityLevel) + 15*int32(len(p.BouncePath))
	p.Trace = &TraceJob{Remaining: float64(total), Total: total}
	return total, OK
}

// DisconnectAll drops the player's connection and cancels the running
// trace. A no-op when not connected.
func (st *State) DisconnectAll(sessionID uint32) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p, ok := st.players[sessionID]; ok {
		st.disconnectTargetLocked(p)
	}
}

// disconnectTargetLocked clears the player's connection, trace, pending
// downloads, and resets the bypass flags on the computer they were on.
func (st *State) disconnectTargetLocked(p *PlayerInfo) {
	if p.ConnectedID == 0 {
		p.Trace = nil
		p.Downloads = nil
		return
	}
	if c, ok := st.computers[p.ConnectedID]; ok {
		for i, sid := range c.Connected {
			if sid == p.SessionID {
				c.Connected = append(c.Connected[:i], c.Connected[i+1:]...)
				break
			}
		}
		if c.ProxyBypassed || c.FirewallBypassed || c.MonitorDisabled {
			c.ProxyBypassed = false
			c.FirewallBypassed = false
			c.MonitorDisabled = false
		}
		st.changedComputers[c.ID] = true
	}
	p.ConnectedID = 0
	p.Trace = nil
	p.Downloads = nil
}

// AddBounce appends a computer to the player's routing chain.
func (st *State) AddBounce(sessionID uint32, computerID int32) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return ReasonUnknownEntity
	}
	c, ok := st.computers[computerID]
	if !ok {
		return ReasonUnknownEntity
	}
	if !c.Running {
		return ReasonOffline
	}
	if len(p.BouncePath) >= maxBouncePath {
		return ReasonInvalidArgument
	}
	p.BouncePath = append(p.BouncePath, computerID)
	return OK
}

// ClearBounces empties the routing chain.
func (st *State) ClearBounces(sessionID uint32) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p, ok := st.players[sessionID]; ok {
		p.BouncePath = nil
	}
}

// AccessorIP resolves the address a player's actions appear to originate
// from: the last hop of the bounce chain if one is set, otherwise the
// player's own handle. Bouncing is what keeps logs from naming you.
func (st *State) AccessorIP(sessionID uint32) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return ""
	}
	if n := len(p.BouncePath); n > 0 {
		if c, ok := st.computers[p.BouncePath[n-1]]; ok {
			return c.IPString
		}
	}
	return p.Handle
}

// ── Security actions against the connected computer ────────────────

// connectedComputerLocked resolves the computer the player is attached to.
func (st *State) connectedComputerLocked(p *PlayerInfo) *Computer {
	if p == nil || p.ConnectedID == 0 {
		return nil
	}
	return st.computers[p.ConnectedID]
}

// Bypass defeats one security system on the connected computer.
// system: 0 = proxy, 1 = firewall, 2 = monitor.
// The gate is rating against security level.
func (st *State) Bypass(sessionID uint32, system uint32) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if p.UplinkRating < c.SecurityLevel {
		return ReasonDenied
	}
	switch system {
	case 0:
		c.ProxyBypassed = true
	case 1:
		c.FirewallBypassed = true
	case 2:
		c.MonitorDisabled = true
	default:
		return ReasonInvalidArgument
	}
	st.changedComputers[c.ID] = true
	return OK
}

// RunSoftware records a tool in the player's loaded toolkit.
func (st *State) RunSoftware(sessionID uint32, swType, version uint32) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return ReasonUnknownEntity
	}
	p.Toolkit[swType] = version
	return OK
}

// StartDownload schedules a timed file transfer from the connected
// computer. Requires the proxy and firewall to be down.
func (st *State) StartDownload(sessionID uint32, filename string) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if filename == "" {
		return ReasonInvalidArgument
	}
	if !c.ProxyBypassed || !c.FirewallBypassed {
		return ReasonDenied
	}
	secs := 1 + len(filename)/16
	p.Downloads = append(p.Downloads, &DownloadJob{
		ComputerID: c.ID,
		Filename:   filename,
		Remaining:  float64(secs),
	})
	return OK
}

// UploadFile pushes a file onto the connected computer. Requires the proxy
// to be down.
func (st *State) UploadFile(sessionID uint32, filename string) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if filename == "" {
		return ReasonInvalidArgument
	}
	if !c.ProxyBypassed {
		return ReasonDenied
	}
	return OK
}

// CopyFile duplicates a file on the connected computer.
func (st *State) CopyFile(sessionID uint32, filename string) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if filename == "" {
		return ReasonInvalidArgument
	}
	return OK
}

// DeleteFile removes a file from the connected computer. Destructive, so
// it requires all three security systems down.
func (st *State) DeleteFile(sessionID uint32, filename string) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if filename == "" {
		return ReasonInvalidArgument
	}
	if !c.ProxyBypassed || !c.FirewallBypassed || !c.MonitorDisabled {
		return ReasonDenied
	}
	return OK
}

// DeleteLog removes the newest access-log line on the connected computer.
func (st *State) DeleteLog(sessionID uint32) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	for i := len(st.logs) - 1; i >= 0; i-- {
		if st.logs[i].ComputerID == c.ID {
			st.logs = append(st.logs[:i], st.logs[i+1:]...)
			st.logsDirty = true
			return OK
		}
	}
	return ReasonInvalidArgument
}

// ModifyLog rewrites the newest access-log line on the connected computer.
func (st *State) ModifyLog(sessionID uint32, newAction string) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return ReasonInvalidArgument
	}
	if newAction == "" {
		return ReasonInvalidArgument
	}
	for i := len(st.logs) - 1; i >= 0; i-- {
		if st.logs[i].ComputerID == c.ID {
			st.logs[i].Action = newAction
			st.logsDirty = true
			return OK
		}
	}
	return ReasonInvalidArgument
}

// ShutdownSystem powers off the connected computer, dropping everyone on
// it. Requires proxy and firewall down. Returns the sessions that were
// force-disconnected (the caller included).
func (st *State) ShutdownSystem(sessionID uint32, computerID int32) ([]uint32, Reason) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil || c.ID != computerID {
		return nil, ReasonInvalidArgument
	}
	if !c.ProxyBypassed || !c.FirewallBypassed {
		return nil, ReasonDenied
	}
	c.Running = false
	dropped := make([]uint32, 0, len(c.Connected))
	for _, sid := range append([]uint32(nil), c.Connected...) {
		if victim, ok := st.players[sid]; ok {
			st.disconnectTargetLocked(victim)
			dropped = append(dropped, sid)
		}
	}
	c.Connected = nil
	st.changedComputers[c.ID] = true
	st.dirtyComputers[c.ID] = true
	return dropped, OK
}

// FramePlayer plants a fabricated access-log line naming the victim. Only
// possible once the monitor on the connected computer is disabled.
func (st *State) FramePlayer(sessionID, targetSession uint32, code string, ts int64) (*PlayerInfo, Reason) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p := st.players[sessionID]
	c := st.connectedComputerLocked(p)
	if c == nil {
		return nil, ReasonInvalidArgument
	}
	if !c.MonitorDisabled {
		return nil, ReasonDenied
	}
	victim, ok := st.players[targetSession]
	if !ok {
		return nil, ReasonUnknownEntity
	}
	if code == "" {
		code = "UNSPECIFIED"
	}
	st.logs = append(st.logs, AccessLog{
		ComputerID: c.ID,
		AccessorIP: victim.Handle,
		Action:     "CRIME:" + code,
		Timestamp:  ts,
	})
	st.logsDirty = true
	return victim, OK
}

// PlaceBounty opens a contract against another player, funded up front.
func (st *State) PlaceBounty(sessionID, targetSession uint32, amount int32) (*PlayerInfo, Reason) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return nil, ReasonUnknownEntity
	}
	if amount <= 0 {
		return nil, ReasonInvalidArgument
	}
	victim, ok := st.players[targetSession]
	if !ok || targetSession == sessionID {
		return nil, ReasonUnknownEntity
	}
	if p.Credits < amount {
		return nil, ReasonInsufficientFunds
	}
	p.Credits -= amount
	p.Dirty = true
	st.bounties = append(st.bounties, Bounty{
		TargetID: targetSession,
		Amount:   amount,
		PlacedBy: sessionID,
	})
	return victim, OK
}

// Bounties returns a copy of the open bounty list.
func (st *State) Bounties() []Bounty {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Bounty(nil), st.bounties...)
}

// ── Money ──────────────────────────────────────────────────────────

// Transfer moves credits between accounts. The source must either belong
// to the acting player or sit on the bank they have cracked open.
func (st *State) Transfer(sessionID uint32, srcID, dstID, amount int32) Reason {
	st.mu.Lock()
	defer st.mu.Unlock()
	if amount <= 0 {
		return ReasonInvalidArgument
	}
	src, ok := st.accounts[srcID]
	if !ok {
		return ReasonUnknownEntity
	}
	dst, ok := st.accounts[dstID]
	if !ok {
		return ReasonUnknownEntity
	}
	p := st.players[sessionID]
	if p == nil {
		return ReasonUnknownEntity
	}
	if src.OwnerID != sessionID {
		c := st.connectedComputerLocked(p)
		if c == nil || c.IP != src.BankIP || !c.ProxyBypassed || !c.FirewallBypassed {
			return ReasonDenied
		}
	}
	if src.Balance < amount {
		return ReasonInsufficientFunds
	}
	src.Balance -= amount
	dst.Balance += amount
	st.dirtyAccounts[src.ID] = true
	st.dirtyAccounts[dst.ID] = true
	return OK
}

// ── Missions ───────────────────────────────────────────────────────

// ClaimMission marks a mission as taken by an agent. Fails if already
// claimed or completed — claims are first-come, single-winner.
func (st *State) ClaimMission(missionID, agentID int32) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.claimMissionLocked(missionID, agentID)
}

func (st *State) claimMissionLocked(missionID, agentID int32) bool {
	m, ok := st.missions[missionID]
	if !ok || m.Completed || m.ClaimedBy != 0 {
		return false
	}
	m.ClaimedBy = agentID
	st.changedMissions[m.ID] = true
	st.dirtyMissions[m.ID] = true
	return true
}

// CompleteMission finishes a mission. Only the claimant can complete it;
// completion is terminal. Returns the payment.
func (st *State) CompleteMission(missionID, agentID int32) (int32, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.completeMissionLocked(missionID, agentID)
}

func (st *State) completeMissionLocked(missionID, agentID int32) (int32, bool) {
	m, ok := st.missions[missionID]
	if !ok || m.Completed || m.ClaimedBy != agentID {
		return 0, false
	}
	m.Completed = true
	st.changedMissions[m.ID] = true
	st.dirtyMissions[m.ID] = true
	return m.Payment, true
}

// AbandonMission releases a claim without completing.
func (st *State) AbandonMission(missionID, agentID int32) {
	st.mu.Lock()
	defer st.mu.Unlock()
	m, ok := st.missions[missionID]
	if !ok || m.Completed || m.ClaimedBy != agentID {
		return
	}
	m.ClaimedBy = 0
	st.changedMissions[m.ID] = true
	st.dirtyMissions[m.ID] = true
}

// ── Access logs ────────────────────────────────────────────────────

// LogAccess appends a line to a computer's access log, unless its monitor
// has been disabled. Returns the entry, or nil when suppressed.
func (st *State) LogAccess(computerID int32, accessorIP, action string, ts int64) *AccessLog {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.computers[computerID]
	if !ok || c.MonitorDisabled {
		return nil
	}
	st.logs = append(st.logs, AccessLog{
		ComputerID: computerID,
		AccessorIP: accessorIP,
		Action:     action,
		Timestamp:  ts,
	})
	st.logsDirty = true
	entry := st.logs[len(st.logs)-1]
	return &entry
}

// LogsFor returns a copy of the access log for one computer, oldest first.
func (st *State) LogsFor(computerID int32) []AccessLog {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []AccessLog
	for _, l := range st.logs {
		if l.ComputerID == computerID {
			out = append(out, l)
		}
	}
	return out
}

// ── Timed jobs ─────────────────────────────────────────────────────

// JobEventKind discriminates TickJobs results.
type JobEventKind int

const (
	JobTraceComplete JobEventKind = iota
	JobDownloadComplete
)

// JobEvent is a completed timed job the tick systems must announce.
type JobEvent struct {
	Kind       JobEventKind
	Player     *PlayerInfo
	ComputerID int32
	Filename   string
	Log        *AccessLog
}

// TickJobs advances every player's trace and download timers by dt game
// seconds and applies completions: a finished trace logs TRACED, force
// disconnects and costs a rating point; a finished download logs the file.
func (st *State) TickJobs(dt float64, ts int64) []JobEvent {
	st.mu.Lock()
	defer st.mu.Unlock()
	var events []JobEvent

	for _, p := range st.players {
		if p.Trace != nil {
			p.Trace.Remaining -= dt
			if p.Trace.Remaining <= 0 {
				compID := p.ConnectedID
				var entry *AccessLog
				if compID != 0 {
					st.logs = append(st.logs, AccessLog{
						ComputerID: compID,
						AccessorIP: p.Handle,
						Action:     "TRACED",
						Timestamp:  ts,
					})
					st.logsDirty = true
					e := st.logs[len(st.logs)-1]
					entry = &e
				}
				st.disconnectTargetLocked(p)
				if p.UplinkRating > 0 {
					p.UplinkRating--
				}
				p.Dirty = true
				events = append(events, JobEvent{
					Kind:       JobTraceComplete,
					Player:     p,
					ComputerID: compID,
					Log:        entry,
				})
				continue // downloads died with the connection
			}
		}

		remaining := p.Downloads[:0]
		for _, d := range p.Downloads {
			d.Remaining -= dt
			if d.Remaining > 0 {
				remaining = append(remaining, d)
				continue
			}
			var entry *AccessLog
			if c, ok := st.computers[d.ComputerID]; ok && !c.MonitorDisabled {
				st.logs = append(st.logs, AccessLog{
					ComputerID: d.ComputerID,
					AccessorIP: p.Handle,
					Action:     "FILE_DOWNLOAD " + d.Filename,
					Timestamp:  ts,
				})
				st.logsDirty = true
				e := st.logs[len(st.logs)-1]
				entry = &e
			}
			events = append(events, JobEvent{
				Kind:       JobDownloadComplete,
				Player:     p,
				ComputerID: d.ComputerID,
				Filename:   d.Filename,
				Log:        entry,
			})
		}
		p.Downloads = remaining
	}
	return events
}
