package persist

import (
	"fmt"

	"github.com/supabase-community/gotrue-go/types"
	supabase "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// Store is the Supabase adapter. The backend is reached only over its REST
// surface: gotrue for identity, postgrest for tables. Every method is a
// no-op returning empty results when the store is disabled (no URL
// configured), so the server runs fully offline.
type Store struct {
	client  *supabase.Client
	log     *zap.Logger
	enabled bool
}

// New builds the adapter. An empty URL yields a disabled store.
func New(url, anonKey string, log *zap.Logger) (*Store, error) {
	if url == "" {
		return &Store{log: log}, nil
	}
	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Store{client: client, log: log, enabled: true}, nil
}

func (s *Store) Enabled() bool {
	return s.enabled
}

// ── Identity (auth/v1) ─────────────────────────────────────────────

// VerifyToken resolves a client JWT to the backend user id. Invalid or
// expired tokens return an error.
func (s *Store) VerifyToken(token string) (string, error) {
	if !s.enabled {
		return "", nil
	}
	resp, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	return resp.ID.String(), nil
}

// SignIn exchanges credentials for a session token.
func (s *Store) SignIn(email, password string) (string, error) {
	if !s.enabled {
		return "", nil
	}
	session, err := s.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return "", fmt.Errorf("sign in: %w", err)
	}
	return session.AccessToken, nil
}

// SignUp registers a new backend user, tagging the handle into the user
// metadata.
func (s *Store) SignUp(email, password, handle string) (string, error) {
	if !s.enabled {
		return "", nil
	}
	resp, err := s.client.Auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     map[string]interface{}{"handle": handle},
	})
	if err != nil {
		return "", fmt.Errorf("sign up: %w", err)
	}
	return resp.ID.String(), nil
}

// ── Row types (rest/v1) ────────────────────────────────────────────

// PlayerRow is one row of the players table.
type PlayerRow struct {
	ID                int32  `json:"id,omitempty"`
	AuthID            string `json:"auth_id"`
	Handle            string `json:"handle"`
	Credits           int32  `json:"credits"`
	UplinkRating      int16  `json:"uplink_rating"`
	NeuromancerRating int16  `json:"neuromancer_rating"`
}

// ComputerRow is one row of the computers table.
type ComputerRow struct {
	ID            int32  `json:"id"`
	IP            string `json:"ip"`
	Name          string `json:"name"`
	CompanyID     int32  `json:"company_id"`
	ComputerType  int16  `json:"computer_type"`
	SecurityLevel int16  `json:"security_level"`
	IsRunning     bool   `json:"is_running"`
}

// AccountRow is one row of the bank_accounts table.
type AccountRow struct {
	ID          int32  `json:"id"`
	BankIP      string `json:"bank_ip"`
	AccountNo   string `json:"account_no"`
	AccountName string `json:"account_name"`
	Balance     int32  `json:"balance"`
}

// MissionRow is one row of the missions table.
type MissionRow struct {
	ID          int32  `json:"id"`
	MissionType int16  `json:"mission_type"`
	TargetIP    string `json:"target_ip"`
	EmployerID  int32  `json:"employer_id"`
	Description string `json:"description"`
	Payment     int32  `json:"payment"`
	MaxPayment  int32  `json:"max_payment"`
	Difficulty  int16  `json:"difficulty"`
	MinRating   int16  `json:"min_rating"`
	ClaimedBy   int32  `json:"claimed_by"`
	Completed   bool   `json:"completed"`
}

// ── Players ────────────────────────────────────────────────────────

// FetchPlayer loads the profile for a backend user id. Returns nil when no
// row exists yet.
func (s *Store) FetchPlayer(authID string) (*PlayerRow, error) {
	if !s.enabled {
		return nil, nil
	}
	var rows []PlayerRow
	_, err := s.client.From("players").
		Select("*", "", false).
		Eq("auth_id", authID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("fetch player: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SavePlayer upserts a profile: update by auth id, insert when no row
// matched.
func (s *Store) SavePlayer(row *PlayerRow) error {
	if !s.enabled {
		return nil
	}
	var result []PlayerRow
	_, err := s.client.From("players").
		Update(row, "", "").
		Eq("auth_id", row.AuthID).
		ExecuteTo(&result)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if len(result) > 0 {
		return nil
	}
	insert := *row
	insert.ID = 0 // let the backend assign the row id
	_, _, err = s.client.From("players").
		Insert(insert, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// ── Computers ──────────────────────────────────────────────────────

// LoadComputers pulls the full computers table.
func (s *Store) LoadComputers() ([]ComputerRow, error) {
	if !s.enabled {
		return nil, nil
	}
	var rows []ComputerRow
	_, err := s.client.From("computers").
		Select("*", "", false).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("load computers: %w", err)
	}
	return rows, nil
}

// SaveComputer writes back a computer's mutable columns.
func (s *Store) SaveComputer(row *ComputerRow) error {
	if !s.enabled {
		return nil
	}
	update := map[string]interface{}{
		"security_level": row.SecurityLevel,
		"is_running":     row.IsRunning,
	}
	_, _, err := s.client.From("computers").
		Update(update, "", "").
		Eq("id", fmt.Sprintf("%d", row.ID)).
		Execute()
	if err != nil {
		return fmt.Errorf("save computer %d: %w", row.ID, err)
	}
	return nil
}

// ── Bank accounts ──────────────────────────────────────────────────

// LoadAccounts pulls the full bank_accounts table.
func (s *Store) LoadAccounts() ([]AccountRow, error) {
	if !s.enabled {
		return nil, nil
	}
	var rows []AccountRow
	_, err := s.client.From("bank_accounts").
		Select("*", "", false).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return rows, nil
}

// SaveAccount writes back an account balance.
func (s *Store) SaveAccount(id, balance int32) error {
	if !s.enabled {
		return nil
	}
	update := map[string]interface{}{"balance": balance}
	_, _, err := s.client.From("bank_accounts").
		Update(update, "", "").
		Eq("id", fmt.Sprintf("%d", id)).
		Execute()
	if err != nil {
		return fmt.Errorf("save account %d: %w", id, err)
	}
	return nil
}

// ── Missions ───────────────────────────────────────────────────────

// LoadOpenMissions pulls the open mission board: not completed and not
// claimed. Stale claims from a previous run stay behind (their claimants
// do not survive a restart).
func (s *Store) LoadOpenMissions() ([]MissionRow, error) {
	if !s.enabled {
		return nil, nil
	}
	var rows []MissionRow
	_, err := s.client.From("missions").
		Select("*", "", false).
		Eq("completed", "false").
		Is("claimed_by", "null").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("load open missions: %w", err)
	}
	return rows, nil
}

// missionColumns builds the claim-state update. An unclaimed mission writes
// claimed_by as null, not 0 — the open-board query filters on is.null.
func missionColumns(claimedBy int32, completed bool) map[string]interface{} {
	update := map[string]interface{}{
		"claimed_by": claimedBy,
		"completed":  completed,
	}
	if claimedBy == 0 {
		update["claimed_by"] = nil
	}
	return update
}

// SaveMission writes back a mission's claim state.
func (s *Store) SaveMission(id, claimedBy int32, completed bool) error {
	if !s.enabled {
		return nil
	}
	update := missionColumns(claimedBy, completed)
	_, _, err := s.client.From("missions").
		Update(update, "", "").
		Eq("id", fmt.Sprintf("%d", id)).
		Execute()
	if err != nil {
		return fmt.Errorf("save mission %d: %w", id, err)
	}
	return nil
}
