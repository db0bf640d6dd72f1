package persist

import (
	"fmt"

	"github.com/cybrelink/server/internal/world"
)

// LoadWorld pulls computers, bank accounts, and the open mission board from
// the backend into the world state. Returns the loaded counts.
func LoadWorld(store *Store, st *world.State) (int, int, int, error) {
	computers, err := store.LoadComputers()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load world: %w", err)
	}
	for i := range computers {
		row := &computers[i]
		st.AddComputer(&world.Computer{
			ID:            row.ID,
			IPString:      row.IP,
			Name:          row.Name,
			CompanyID:     row.CompanyID,
			Type:          row.ComputerType,
			SecurityLevel: row.SecurityLevel,
			Running:       row.IsRunning,
		})
	}

	accounts, err := store.LoadAccounts()
	if err != nil {
		return len(computers), 0, 0, fmt.Errorf("load world: %w", err)
	}
	for i := range accounts {
		row := &accounts[i]
		st.AddAccount(&world.BankAccount{
			ID:          row.ID,
			BankIP:      world.ParseIP(row.BankIP),
			AccountNo:   row.AccountNo,
			AccountName: row.AccountName,
			Balance:     row.Balance,
		})
	}

	missions, err := store.LoadOpenMissions()
	if err != nil {
		return len(computers), len(accounts), 0, fmt.Errorf("load world: %w", err)
	}
	for i := range missions {
		row := &missions[i]
		st.AddMission(&world.Mission{
			ID:          row.ID,
			Type:        row.MissionType,
			TargetIP:    world.ParseIP(row.TargetIP),
			EmployerID:  row.EmployerID,
			Description: row.Description,
			Payment:     row.Payment,
			MaxPayment:  row.MaxPayment,
			Difficulty:  row.Difficulty,
			MinRating:   row.MinRating,
			ClaimedBy:   row.ClaimedBy,
			Completed:   row.Completed,
		})
	}
	return len(computers), len(accounts), len(missions), nil
}
