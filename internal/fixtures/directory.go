package fixtures

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/shopspring/decimal"
)

// Directory is the employee directory seeded into in-memory storage.
// The user directory is owned by another system, so the memory driver starts
// from this file instead.
type Directory struct {
	Teams []string        `json:"teams"`
	Users []DirectoryUser `json:"users"`
}

type DirectoryUser struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	BiometricID      string             `json:"biometric_id"`
	Team             string             `json:"team"`
	OfficeStart      *workday.TimeOfDay `json:"office_start,omitempty"`
	OfficeEnd        *workday.TimeOfDay `json:"office_end,omitempty"`
	PayoutMultiplier *decimal.Decimal   `json:"payout_multiplier,omitempty"`
	Inactive         bool               `json:"inactive"`
}

// Seeder receives directory rows. memory.Store satisfies it.
type Seeder interface {
	AddTeam(t user.Team) user.Team
	AddUser(u user.User) user.User
}

// SeededDataIDs maps seeded names to the IDs they were stored under.
type SeededDataIDs struct {
	TeamIDs map[string]string // e.g., "Operations" -> "uuid"
	UserIDs map[string]string // biometric id -> user id
}

// LoadDirectory reads a directory JSON file.
func LoadDirectory(path string) (Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Directory{}, fmt.Errorf("read directory seed: %w", err)
	}

	var dir Directory
	if err := json.Unmarshal(raw, &dir); err != nil {
		return Directory{}, fmt.Errorf("decode directory seed: %w", err)
	}
	return dir, nil
}

// Seed stores every team then every user. Users may name teams missing from Teams.
func (d Directory) Seed(s Seeder) (SeededDataIDs, error) {
	ids := SeededDataIDs{
		TeamIDs: make(map[string]string),
		UserIDs: make(map[string]string),
	}

	teamID := func(name string) string {
		if id, ok := ids.TeamIDs[name]; ok {
			return id
		}
		t := s.AddTeam(user.Team{Name: name})
		ids.TeamIDs[name] = t.ID
		return t.ID
	}

	for _, name := range d.Teams {
		teamID(name)
	}

	for _, u := range d.Users {
		if u.BiometricID == "" {
			return ids, fmt.Errorf("user %q has no biometric_id", u.Name)
		}
		if u.Team == "" {
			return ids, fmt.Errorf("user %q has no team", u.Name)
		}
		if _, dup := ids.UserIDs[u.BiometricID]; dup {
			return ids, fmt.Errorf("duplicate biometric_id %q", u.BiometricID)
		}

		seeded := user.User{
			ID:          u.ID,
			Name:        u.Name,
			BiometricID: u.BiometricID,
			TeamID:      teamID(u.Team),
			OfficeStart: u.OfficeStart,
			OfficeEnd:   u.OfficeEnd,
			IsActive:    !u.Inactive,
		}
		if u.PayoutMultiplier != nil {
			seeded.PayoutMultiplier = *u.PayoutMultiplier
		}
		ids.UserIDs[u.BiometricID] = s.AddUser(seeded).ID
	}
	return ids, nil
}
