package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *State {
	return NewState(1)
}

func addTestComputer(st *State, id int32, security int16, running bool) *Computer {
	c := &Computer{
		ID:            id,
		IPString:      "10.0.0.1",
		Name:          "host",
		SecurityLevel: security,
		Running:       running,
	}
	st.AddComputer(c)
	return c
}

func addTestPlayer(st *State, sessionID uint32, rating int16) *PlayerInfo {
	p := &PlayerInfo{
		SessionID:    sessionID,
		Handle:       "agent",
		Credits:      3000,
		UplinkRating: rating,
	}
	st.AddPlayer(p)
	return p
}

// ── Connection and trace ───────────────────────────────────────────

func TestConnectStartsTrace(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 3, true)
	p := addTestPlayer(st, 10, 5)

	total, r := st.Connect(10, 1)
	require.Equal(t, OK, r)
	// 20 base + 5 per security level, no bounces.
	assert.Equal(t, int32(35), total)
	require.NotNil(t, p.Trace)
	assert.Equal(t, int32(35), p.Trace.Total)
	assert.Equal(t, int32(1), p.ConnectedID)
}

func TestConnectBouncesBuyTraceTime(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	addTestComputer(st, 2, 1, true)
	addTestComputer(st, 3, 1, true)
	addTestPlayer(st, 10, 5)

	require.Equal(t, OK, st.AddBounce(10, 2))
	require.Equal(t, OK, st.AddBounce(10, 3))
	total, r := st.Connect(10, 1)
	require.Equal(t, OK, r)
	assert.Equal(t, int32(20+15*2), total)
}

func TestConnectRejections(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, false)
	addTestPlayer(st, 10, 1)

	_, r := st.Connect(10, 99)
	assert.Equal(t, ReasonUnknownEntity, r)

	_, r = st.Connect(10, 1)
	assert.Equal(t, ReasonOffline, r)

	_, r = st.Connect(99, 1)
	assert.Equal(t, ReasonUnknownEntity, r)
}

func TestReconnectImplicitlyDisconnects(t *testing.T) {
	st := newTestState()
	a := addTestComputer(st, 1, 0, true)
	addTestComputer(st, 2, 0, true)
	p := addTestPlayer(st, 10, 1)

	_, r := st.Connect(10, 1)
	require.Equal(t, OK, r)
	require.Equal(t, OK, st.Bypass(10, 0))
	require.True(t, a.ProxyBypassed)

	_, r = st.Connect(10, 2)
	require.Equal(t, OK, r)
	assert.Equal(t, int32(2), p.ConnectedID)
	assert.Empty(t, a.Connected)
	// Bypass flags reset when the intruder leaves.
	assert.False(t, a.ProxyBypassed)
}

func TestDisconnectClearsEverything(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	p := addTestPlayer(st, 10, 1)

	_, _ = st.Connect(10, 1)
	require.Equal(t, OK, st.Bypass(10, 0))
	require.Equal(t, OK, st.Bypass(10, 1))
	require.Equal(t, OK, st.StartDownload(10, "secrets.dat"))

	st.DisconnectAll(10)
	assert.Equal(t, int32(0), p.ConnectedID)
	assert.Nil(t, p.Trace)
	assert.Empty(t, p.Downloads)
	assert.False(t, c.ProxyBypassed)
	assert.False(t, c.FirewallBypassed)
}

func TestBouncePathCap(t *testing.T) {
	st := newTestState()
	for i := int32(1); i <= 20; i++ {
		addTestComputer(st, i, 0, true)
	}
	addTestPlayer(st, 10, 1)

	for i := int32(1); i <= 16; i++ {
		require.Equal(t, OK, st.AddBounce(10, i))
	}
	assert.Equal(t, ReasonInvalidArgument, st.AddBounce(10, 17))

	st.ClearBounces(10)
	assert.Equal(t, OK, st.AddBounce(10, 17))
}

// ── Security systems ───────────────────────────────────────────────

func TestBypassGatedByRating(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 5, true)
	addTestPlayer(st, 10, 3)

	_, _ = st.Connect(10, 1)
	assert.Equal(t, ReasonDenied, st.Bypass(10, 0))

	p := st.GetPlayer(10)
	p.UplinkRating = 5
	assert.Equal(t, OK, st.Bypass(10, 0))
}

func TestBypassRequiresConnection(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)

	assert.Equal(t, ReasonInvalidArgument, st.Bypass(10, 0))

	_, _ = st.Connect(10, 1)
	assert.Equal(t, ReasonInvalidArgument, st.Bypass(10, 3))
}

func TestFileOperationGates(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)

	// Nothing bypassed: download and upload denied, copy allowed.
	assert.Equal(t, ReasonDenied, st.StartDownload(10, "f"))
	assert.Equal(t, ReasonDenied, st.UploadFile(10, "f"))
	assert.Equal(t, OK, st.CopyFile(10, "f"))
	assert.Equal(t, ReasonDenied, st.DeleteFile(10, "f"))

	c.ProxyBypassed = true
	assert.Equal(t, OK, st.UploadFile(10, "f"))
	assert.Equal(t, ReasonDenied, st.StartDownload(10, "f"))

	c.FirewallBypassed = true
	assert.Equal(t, OK, st.StartDownload(10, "f"))
	assert.Equal(t, ReasonDenied, st.DeleteFile(10, "f"))

	c.MonitorDisabled = true
	assert.Equal(t, OK, st.DeleteFile(10, "f"))
}

func TestShutdownDropsEveryone(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)
	addTestPlayer(st, 11, 1)

	_, _ = st.Connect(10, 1)
	_, _ = st.Connect(11, 1)
	require.Equal(t, OK, st.Bypass(10, 0))
	require.Equal(t, OK, st.Bypass(10, 1))

	dropped, r := st.ShutdownSystem(10, 1)
	require.Equal(t, OK, r)
	assert.ElementsMatch(t, []uint32{10, 11}, dropped)
	assert.False(t, c.Running)
	assert.Empty(t, c.Connected)
	assert.Equal(t, int32(0), st.GetPlayer(11).ConnectedID)

	// Powered off: nobody can connect until it comes back.
	_, r = st.Connect(11, 1)
	assert.Equal(t, ReasonOffline, r)
}

func TestShutdownRequiresCrackedTarget(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	addTestComputer(st, 2, 0, true)
	addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)

	_, r := st.ShutdownSystem(10, 2) // not the connected computer
	assert.Equal(t, ReasonInvalidArgument, r)

	_, r = st.ShutdownSystem(10, 1) // proxy+firewall still up
	assert.Equal(t, ReasonDenied, r)
}

// ── Access logs ────────────────────────────────────────────────────

func TestLogAccessSuppressedByMonitor(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)

	entry := st.LogAccess(1, "10.0.0.9", "CONNECT", 100)
	require.NotNil(t, entry)
	assert.Equal(t, "CONNECT", entry.Action)

	c.MonitorDisabled = true
	assert.Nil(t, st.LogAccess(1, "10.0.0.9", "CONNECT", 101))
	assert.Len(t, st.LogsFor(1), 1)
}

func TestDeleteAndModifyLogTargetNewest(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)

	st.LogAccess(1, "a", "FIRST", 1)
	st.LogAccess(1, "b", "SECOND", 2)

	require.Equal(t, OK, st.ModifyLog(10, "EDITED"))
	logs := st.LogsFor(1)
	require.Len(t, logs, 2)
	assert.Equal(t, "FIRST", logs[0].Action)
	assert.Equal(t, "EDITED", logs[1].Action)

	require.Equal(t, OK, st.DeleteLog(10))
	logs = st.LogsFor(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "FIRST", logs[0].Action)

	require.Equal(t, OK, st.DeleteLog(10))
	assert.Equal(t, ReasonInvalidArgument, st.DeleteLog(10))
}

func TestFramePlayerNeedsMonitorDown(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)
	victim := addTestPlayer(st, 11, 1)
	victim.Handle = "Patsy"
	_, _ = st.Connect(10, 1)

	_, r := st.FramePlayer(10, 11, "THEFT", 100)
	assert.Equal(t, ReasonDenied, r)

	c.MonitorDisabled = true
	got, r := st.FramePlayer(10, 11, "THEFT", 100)
	require.Equal(t, OK, r)
	assert.Same(t, victim, got)

	logs := st.LogsFor(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "CRIME:THEFT", logs[0].Action)
	assert.Equal(t, "Patsy", logs[0].AccessorIP)

	_, r = st.FramePlayer(10, 99, "THEFT", 100)
	assert.Equal(t, ReasonUnknownEntity, r)
}

// ── Money ──────────────────────────────────────────────────────────

func TestTransferOwnAccount(t *testing.T) {
	st := newTestState()
	st.AddAccount(&BankAccount{ID: 1, Balance: 1000, OwnerID: 10})
	st.AddAccount(&BankAccount{ID: 2, Balance: 0})
	addTestPlayer(st, 10, 1)

	require.Equal(t, OK, st.Transfer(10, 1, 2, 400))
	assert.Equal(t, int32(600), st.FindAccountByID(1).Balance)
	assert.Equal(t, int32(400), st.FindAccountByID(2).Balance)
}

func TestTransferInsufficientFunds(t *testing.T) {
	st := newTestState()
	st.AddAccount(&BankAccount{ID: 1, Balance: 100, OwnerID: 10})
	st.AddAccount(&BankAccount{ID: 2})
	addTestPlayer(st, 10, 1)

	assert.Equal(t, ReasonInsufficientFunds, st.Transfer(10, 1, 2, 101))
	// Balances untouched on rejection.
	assert.Equal(t, int32(100), st.FindAccountByID(1).Balance)
}

func TestTransferRejectsNonPositiveAmounts(t *testing.T) {
	st := newTestState()
	st.AddAccount(&BankAccount{ID: 1, Balance: 100, OwnerID: 10})
	st.AddAccount(&BankAccount{ID: 2})
	addTestPlayer(st, 10, 1)

	assert.Equal(t, ReasonInvalidArgument, st.Transfer(10, 1, 2, 0))
	assert.Equal(t, ReasonInvalidArgument, st.Transfer(10, 1, 2, -50))
}

func TestTransferForeignAccountNeedsCrackedBank(t *testing.T) {
	st := newTestState()
	bank := &Computer{ID: 1, IPString: "234.112.8.41", Name: "bank", Running: true}
	st.AddComputer(bank)
	st.AddAccount(&BankAccount{ID: 1, BankIP: bank.IP, Balance: 5000})
	st.AddAccount(&BankAccount{ID: 2, OwnerID: 10})
	addTestPlayer(st, 10, 9)

	assert.Equal(t, ReasonDenied, st.Transfer(10, 1, 2, 1000))

	_, _ = st.Connect(10, 1)
	assert.Equal(t, ReasonDenied, st.Transfer(10, 1, 2, 1000))

	require.Equal(t, OK, st.Bypass(10, 0))
	require.Equal(t, OK, st.Bypass(10, 1))
	assert.Equal(t, OK, st.Transfer(10, 1, 2, 1000))
	assert.Equal(t, int32(4000), st.FindAccountByID(1).Balance)
}

func TestPlaceBounty(t *testing.T) {
	st := newTestState()
	p := addTestPlayer(st, 10, 1)
	addTestPlayer(st, 11, 1)

	_, r := st.PlaceBounty(10, 10, 500)
	assert.Equal(t, ReasonUnknownEntity, r) // not on yourself

	_, r = st.PlaceBounty(10, 99, 500)
	assert.Equal(t, ReasonUnknownEntity, r) // victim must be online

	_, r = st.PlaceBounty(10, 11, 0)
	assert.Equal(t, ReasonInvalidArgument, r)

	_, r = st.PlaceBounty(10, 11, 99999)
	assert.Equal(t, ReasonInsufficientFunds, r)

	victim, r := st.PlaceBounty(10, 11, 500)
	require.Equal(t, OK, r)
	assert.Equal(t, uint32(11), victim.SessionID)
	assert.Equal(t, int32(2500), p.Credits)
	require.Len(t, st.Bounties(), 1)
	assert.Equal(t, uint32(11), st.Bounties()[0].TargetID)
}

// ── Missions ───────────────────────────────────────────────────────

func TestMissionClaimIsSingleWinner(t *testing.T) {
	st := newTestState()
	st.AddMission(&Mission{ID: 1, Payment: 1000})

	assert.True(t, st.ClaimMission(1, 100))
	assert.False(t, st.ClaimMission(1, 200))
	assert.False(t, st.ClaimMission(99, 100))
}

func TestMissionCompletionIsTerminal(t *testing.T) {
	st := newTestState()
	st.AddMission(&Mission{ID: 1, Payment: 1000})
	require.True(t, st.ClaimMission(1, 100))

	// Only the claimant completes.
	_, ok := st.CompleteMission(1, 200)
	assert.False(t, ok)

	payment, ok := st.CompleteMission(1, 100)
	require.True(t, ok)
	assert.Equal(t, int32(1000), payment)

	// Terminal: no re-complete, no re-claim, no abandon.
	_, ok = st.CompleteMission(1, 100)
	assert.False(t, ok)
	assert.False(t, st.ClaimMission(1, 300))
	st.AbandonMission(1, 100)
	m := st.missions[1]
	assert.True(t, m.Completed)
	assert.Equal(t, int32(100), m.ClaimedBy)
}

func TestMissionAbandonReopens(t *testing.T) {
	st := newTestState()
	st.AddMission(&Mission{ID: 1})
	require.True(t, st.ClaimMission(1, 100))

	st.AbandonMission(1, 200) // not the claimant: no-op
	assert.False(t, st.ClaimMission(1, 300))

	st.AbandonMission(1, 100)
	assert.True(t, st.ClaimMission(1, 300))
}

// ── Timed jobs ─────────────────────────────────────────────────────

func TestTraceExpiryPunishes(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	p := addTestPlayer(st, 10, 3)
	total, _ := st.Connect(10, 1)
	require.Equal(t, int32(20), total)

	events := st.TickJobs(19, 100)
	assert.Empty(t, events)

	events = st.TickJobs(1, 119)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, JobTraceComplete, ev.Kind)
	assert.Equal(t, int32(1), ev.ComputerID)
	require.NotNil(t, ev.Log)
	assert.Equal(t, "TRACED", ev.Log.Action)

	assert.Equal(t, int32(0), p.ConnectedID)
	assert.Nil(t, p.Trace)
	assert.Equal(t, int16(2), p.UplinkRating)
	assert.True(t, p.Dirty)
}

func TestTraceRatingFloorsAtZero(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	p := addTestPlayer(st, 10, 0)
	_, _ = st.Connect(10, 1)

	st.TickJobs(100, 1)
	assert.Equal(t, int16(0), p.UplinkRating)
}

func TestDownloadCompletes(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	p := addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)
	c.ProxyBypassed = true
	c.FirewallBypassed = true
	require.Equal(t, OK, st.StartDownload(10, "client_list.dat"))

	// Trace is still far off; only the download finishes.
	events := st.TickJobs(5, 50)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, JobDownloadComplete, ev.Kind)
	assert.Equal(t, "client_list.dat", ev.Filename)
	require.NotNil(t, ev.Log)
	assert.Equal(t, "FILE_DOWNLOAD client_list.dat", ev.Log.Action)
	assert.Empty(t, p.Downloads)
}

func TestDownloadDiesWithTrace(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	p := addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)
	c.ProxyBypassed = true
	c.FirewallBypassed = true
	require.Equal(t, OK, st.StartDownload(10, "x"))

	// Burn the whole trace at once: only the trace event fires.
	events := st.TickJobs(100, 1)
	require.Len(t, events, 1)
	assert.Equal(t, JobTraceComplete, events[0].Kind)
	assert.Empty(t, p.Downloads)
}

// ── Players and accessor identity ──────────────────────────────────

func TestRemovePlayerResetsTarget(t *testing.T) {
	st := newTestState()
	c := addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 9)
	_, _ = st.Connect(10, 1)
	require.Equal(t, OK, st.Bypass(10, 0))

	p := st.RemovePlayer(10)
	require.NotNil(t, p)
	assert.Nil(t, st.GetPlayer(10))
	assert.Empty(t, c.Connected)
	assert.False(t, c.ProxyBypassed)

	assert.Nil(t, st.RemovePlayer(10))
}

func TestAccessorIPUsesLastBounce(t *testing.T) {
	st := newTestState()
	st.AddComputer(&Computer{ID: 1, IPString: "10.0.0.1", Running: true})
	st.AddComputer(&Computer{ID: 2, IPString: "88.19.204.7", Running: true})
	p := addTestPlayer(st, 10, 1)
	p.Handle = "NeonRat"

	assert.Equal(t, "NeonRat", st.AccessorIP(10))

	require.Equal(t, OK, st.AddBounce(10, 1))
	require.Equal(t, OK, st.AddBounce(10, 2))
	assert.Equal(t, "88.19.204.7", st.AccessorIP(10))

	st.ClearBounces(10)
	assert.Equal(t, "NeonRat", st.AccessorIP(10))
}

// ── Change journal and dirty sets ──────────────────────────────────

func TestTakeChangesDrains(t *testing.T) {
	st := newTestState()
	addTestComputer(st, 1, 0, true)
	addTestPlayer(st, 10, 1)
	_, _ = st.Connect(10, 1)

	cs := st.TakeChanges()
	require.Len(t, cs.Computers, 1)
	assert.Equal(t, 1, cs.Computers[0].Connected)

	// Second take with no new changes is empty.
	assert.True(t, st.TakeChanges().Empty())
}

func TestTransferMarksAccountsDirty(t *testing.T) {
	st := newTestState()
	addTestPlayer(st, 10, 1)
	st.AddAccount(&BankAccount{ID: 1, Balance: 1000, OwnerID: 10})
	st.AddAccount(&BankAccount{ID: 2})

	require.Equal(t, OK, st.Transfer(10, 1, 2, 400))

	ds := st.SnapshotDirty()
	require.Len(t, ds.Accounts, 2)
	balances := map[int32]int32{}
	for _, a := range ds.Accounts {
		balances[a.ID] = a.Balance
	}
	assert.Equal(t, int32(600), balances[1])
	assert.Equal(t, int32(400), balances[2])

	// Drained: the next snapshot carries nothing.
	assert.True(t, st.SnapshotDirty().Empty())
}

func TestSnapshotDirtySkipsGuests(t *testing.T) {
	st := newTestState()
	guest := addTestPlayer(st, 10, 1)
	saved := addTestPlayer(st, 11, 1)
	saved.AuthID = "auth-11"
	guest.Dirty = true
	saved.Dirty = true

	ds := st.SnapshotDirty()
	require.Len(t, ds.Players, 1)
	assert.Equal(t, "auth-11", ds.Players[0].AuthID)

	// Both flags cleared either way.
	assert.False(t, guest.Dirty)
	assert.False(t, saved.Dirty)
	assert.True(t, st.SnapshotDirty().Empty())
}
