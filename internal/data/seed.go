package data

import (
	"fmt"
	"os"

	"github.com/cybrelink/server/internal/world"
	"gopkg.in/yaml.v3"
)

// SeedWorld is an offline world definition, used when persistence is
// disabled or as a base layer under the backend tables.
type SeedWorld struct {
	Computers    []SeedComputer `yaml:"computers"`
	Accounts     []SeedAccount  `yaml:"accounts"`
	Missions     []SeedMission  `yaml:"missions"`
	AgentHandles []string       `yaml:"agent_handles"`
}

type SeedComputer struct {
	ID       int32  `yaml:"id"`
	IP       string `yaml:"ip"`
	Name     string `yaml:"name"`
	Company  int32  `yaml:"company"`
	Type     int16  `yaml:"type"`
	Security int16  `yaml:"security"`
	Running  *bool  `yaml:"running"` // nil = running
}

type SeedAccount struct {
	ID        int32  `yaml:"id"`
	BankIP    string `yaml:"bank_ip"`
	AccountNo string `yaml:"account_no"`
	Name      string `yaml:"name"`
	Balance   int32  `yaml:"balance"`
}

type SeedMission struct {
	ID          int32  `yaml:"id"`
	Type        int16  `yaml:"type"`
	TargetIP    string `yaml:"target_ip"`
	Employer    int32  `yaml:"employer"`
	Description string `yaml:"description"`
	Payment     int32  `yaml:"payment"`
	MaxPayment  int32  `yaml:"max_payment"`
	Difficulty  int16  `yaml:"difficulty"`
	MinRating   int16  `yaml:"min_rating"`
}

// LoadSeed parses a YAML seed-world file.
func LoadSeed(path string) (*SeedWorld, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var sw SeedWorld
	if err := yaml.Unmarshal(raw, &sw); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &sw, nil
}

// Apply loads the seed entities into the world state and returns the
// computer, account, and mission counts.
func (sw *SeedWorld) Apply(st *world.State) (int, int, int) {
	for i := range sw.Computers {
		sc := &sw.Computers[i]
		running := true
		if sc.Running != nil {
			running = *sc.Running
		}
		st.AddComputer(&world.Computer{
			ID:            sc.ID,
			IPString:      sc.IP,
			Name:          sc.Name,
			CompanyID:     sc.Company,
			Type:          sc.Type,
			SecurityLevel: sc.Security,
			Running:       running,
		})
	}
	for i := range sw.Accounts {
		sa := &sw.Accounts[i]
		st.AddAccount(&world.BankAccount{
			ID:          sa.ID,
			BankIP:      world.ParseIP(sa.BankIP),
			AccountNo:   sa.AccountNo,
			AccountName: sa.Name,
			Balance:     sa.Balance,
		})
	}
	for i := range sw.Missions {
		sm := &sw.Missions[i]
		st.AddMission(&world.Mission{
			ID:          sm.ID,
			Type:        sm.Type,
			TargetIP:    world.ParseIP(sm.TargetIP),
			EmployerID:  sm.Employer,
			Description: sm.Description,
			Payment:     sm.Payment,
			MaxPayment:  sm.MaxPayment,
			Difficulty:  sm.Difficulty,
			MinRating:   sm.MinRating,
		})
	}
	return len(sw.Computers), len(sw.Accounts), len(sw.Missions)
}
