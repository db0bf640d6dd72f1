package world

// Snapshot types decouple wire encoding and persistence from the live
// entities: callers get copies taken under the lock and encode or flush
// them without holding it.

// ComputerView is the wire-visible slice of a computer.
type ComputerView struct {
	ID        int32
	IPString  string
	Name      string
	Security  int16
	Running   bool
	Bypass    byte
	Connected int
}

// MissionView is the wire-visible slice of a mission.
type MissionView struct {
	ID          int32
	TargetIP    string
	Description string
	Payment     int32
	Difficulty  int16
	ClaimedBy   int32
	Completed   bool
}

// AgentView is the wire-visible slice of an NPC agent.
type AgentView struct {
	ID        int32
	Handle    string
	Rating    int16
	Credits   int32
	MissionID int32
}

// ChangeSet is everything that changed since the last network tick.
type ChangeSet struct {
	Computers []ComputerView
	Missions  []MissionView
	Agents    []AgentView
}

func (cs ChangeSet) Empty() bool {
	return len(cs.Computers) == 0 && len(cs.Missions) == 0 && len(cs.Agents) == 0
}

func computerView(c *Computer) ComputerView {
	return ComputerView{
		ID:        c.ID,
		IPString:  c.IPString,
		Name:      c.Name,
		Security:  c.SecurityLevel,
		Running:   c.Running,
		Bypass:    c.BypassMask(),
		Connected: len(c.Connected),
	}
}

func missionView(m *Mission) MissionView {
	return MissionView{
		ID:          m.ID,
		TargetIP:    FormatIP(m.TargetIP),
		Description: m.Description,
		Payment:     m.Payment,
		Difficulty:  m.Difficulty,
		ClaimedBy:   m.ClaimedBy,
		Completed:   m.Completed,
	}
}

func agentView(a *Agent) AgentView {
	return AgentView{
		ID:        a.ID,
		Handle:    a.Handle,
		Rating:    a.UplinkRating,
		Credits:   a.Credits,
		MissionID: a.CurrentMissionID,
	}
}

// TakeChanges drains the change journal. Called once per network tick by
// the sync system; the returned views feed one WORLD_DELTA broadcast.
func (st *State) TakeChanges() ChangeSet {
	st.mu.Lock()
	defer st.mu.Unlock()
	var cs ChangeSet
	for id := range st.changedComputers {
		if c, ok := st.computers[id]; ok {
			cs.Computers = append(cs.Computers, computerView(c))
		}
		delete(st.changedComputers, id)
	}
	for id := range st.changedMissions {
		if m, ok := st.missions[id]; ok {
			cs.Missions = append(cs.Missions, missionView(m))
		}
		delete(st.changedMissions, id)
	}
	for id := range st.changedAgents {
		if a, ok := st.agents[id]; ok {
			cs.Agents = append(cs.Agents, agentView(a))
		}
		delete(st.changedAgents, id)
	}
	return cs
}

// FullSnapshot returns every entity in load order, for WORLD_FULL on join.
func (st *State) FullSnapshot() ChangeSet {
	st.mu.Lock()
	defer st.mu.Unlock()
	cs := ChangeSet{
		Computers: make([]ComputerView, 0, len(st.computerOrder)),
		Missions:  make([]MissionView, 0, len(st.missionOrder)),
		Agents:    make([]AgentView, 0, len(st.agentOrder)),
	}
	for _, id := range st.computerOrder {
		cs.Computers = append(cs.Computers, computerView(st.computers[id]))
	}
	for _, id := range st.missionOrder {
		cs.Missions = append(cs.Missions, missionView(st.missions[id]))
	}
	for _, id := range st.agentOrder {
		cs.Agents = append(cs.Agents, agentView(st.agents[id]))
	}
	return cs
}

// PlayerSave is a player row headed for the backend.
type PlayerSave struct {
	RowID             int32
	AuthID            string
	Handle            string
	Credits           int32
	UplinkRating      int16
	NeuromancerRating int16
}

// ComputerSave is a computer row headed for the backend.
type ComputerSave struct {
	ID       int32
	IPString string
	Name     string
	Type     int16
	Security int16
	Running  bool
}

// MissionSave is a mission row headed for the backend.
type MissionSave struct {
	ID        int32
	ClaimedBy int32
	Completed bool
}

// AccountSave is a bank account row headed for the backend.
type AccountSave struct {
	ID      int32
	Balance int32
}

// DirtySnapshot is one persistence flush worth of changed rows.
type DirtySnapshot struct {
	Players   []PlayerSave
	Computers []ComputerSave
	Missions  []MissionSave
	Accounts  []AccountSave
}

func (ds DirtySnapshot) Empty() bool {
	return len(ds.Players) == 0 && len(ds.Computers) == 0 &&
		len(ds.Missions) == 0 && len(ds.Accounts) == 0
}

func playerSave(p *PlayerInfo) PlayerSave {
	return PlayerSave{
		RowID:             p.RowID,
		AuthID:            p.AuthID,
		Handle:            p.Handle,
		Credits:           p.Credits,
		UplinkRating:      p.UplinkRating,
		NeuromancerRating: p.NeuromancerRating,
	}
}

// SnapshotPlayer copies one player's persistable state under the lock.
func (st *State) SnapshotPlayer(sessionID uint32) (PlayerSave, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.players[sessionID]
	if !ok {
		return PlayerSave{}, false
	}
	return playerSave(p), true
}

// SnapshotDirty drains the dirty sets into a flush batch. The flush worker
// does the HTTP; nothing here blocks on the network.
func (st *State) SnapshotDirty() DirtySnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	var ds DirtySnapshot

	for _, p := range st.players {
		if !p.Dirty {
			continue
		}
		if p.AuthID == "" {
			p.Dirty = false // guests have no backend row
			continue
		}
		ds.Players = append(ds.Players, playerSave(p))
		p.Dirty = false
	}

	for id := range st.dirtyComputers {
		if c, ok := st.computers[id]; ok {
			ds.Computers = append(ds.Computers, ComputerSave{
				ID:       c.ID,
				IPString: c.IPString,
				Name:     c.Name,
				Type:     c.Type,
				Security: c.SecurityLevel,
				Running:  c.Running,
			})
		}
		delete(st.dirtyComputers, id)
	}

	for id := range st.dirtyMissions {
		if m, ok := st.missions[id]; ok {
			ds.Missions = append(ds.Missions, MissionSave{
				ID:        m.ID,
				ClaimedBy: m.ClaimedBy,
				Completed: m.Completed,
			})
		}
		delete(st.dirtyMissions, id)
	}

	for id := range st.dirtyAccounts {
		if a, ok := st.accounts[id]; ok {
			ds.Accounts = append(ds.Accounts, AccountSave{
				ID:      a.ID,
				Balance: a.Balance,
			})
		}
		delete(st.dirtyAccounts, id)
	}

	st.logsDirty = false
	return ds
}
