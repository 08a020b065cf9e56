package resource

import (
	"fmt"
	"strings"
)

// Stat identifies a boostable battle stat.
type Stat int

const (
	StatAttack Stat = iota
	StatDefense
	StatSpAttack
	StatSpDefense
	StatSpeed
	StatAccuracy
	StatEvasion

	NumStats = int(StatEvasion) + 1
)

var statNames = [NumStats]string{
	"attack", "defense", "sp-attack", "sp-defense", "speed", "accuracy", "evasion",
}

func (s Stat) String() string {
	if s < 0 || int(s) >= NumStats {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

func (s Stat) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= NumStats {
		return nil, fmt.Errorf("resource: invalid stat %d", int(s))
	}
	return []byte(statNames[s]), nil
}

func (s *Stat) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range statNames {
		if n == name {
			*s = Stat(i)
			return nil
		}
	}
	return fmt.Errorf("resource: unknown stat %q", name)
}

// Stats is a full six-value stat block.
type Stats struct {
	HP        int `json:"hp"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	SpAttack  int `json:"sp_attack"`
	SpDefense int `json:"sp_defense"`
	Speed     int `json:"speed"`
}

// StatEffect is the stage change applied by a status move.
type StatEffect struct {
	Stat   Stat `json:"stat"`
	Stages int  `json:"stages"`
	Self   bool `json:"self"`
}

// MoveDefinition is immutable catalog data for one move.
type MoveDefinition struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Type     Type        `json:"type"`
	Power    int         `json:"power"`
	Accuracy int         `json:"accuracy"`
	PP       int         `json:"pp"`
	Effect   *StatEffect `json:"effect,omitempty"`
}

// IsStatus reports whether the move deals no damage.
func (m *MoveDefinition) IsStatus() bool { return m.Power == 0 }

func (m *MoveDefinition) validate() error {
	switch {
	case m.ID <= 0:
		return fmt.Errorf("resource: move %q: id must be positive", m.Name)
	case m.Name == "":
		return fmt.Errorf("resource: move %d: empty name", m.ID)
	case !m.Type.Valid():
		return fmt.Errorf("resource: move %d: invalid type", m.ID)
	case m.Power < 0 || m.Power > 250:
		return fmt.Errorf("resource: move %d: power %d out of range", m.ID, m.Power)
	case m.Accuracy < 0 || m.Accuracy > 100:
		return fmt.Errorf("resource: move %d: accuracy %d out of range", m.ID, m.Accuracy)
	case m.Power == 0 && m.Effect == nil:
		return fmt.Errorf("resource: move %d: status move without effect", m.ID)
	}
	return nil
}

func self(stat Stat, stages int) *StatEffect {
	return &StatEffect{Stat: stat, Stages: stages, Self: true}
}

func foe(stat Stat, stages int) *StatEffect {
	return &StatEffect{Stat: stat, Stages: stages}
}

var builtinMoves = []*MoveDefinition{
	{ID: 1, Name: "Tackle", Type: Normal, Power: 40, Accuracy: 100, PP: 35},
	{ID: 2, Name: "Scratch", Type: Normal, Power: 40, Accuracy: 100, PP: 35},
	{ID: 3, Name: "Body Slam", Type: Normal, Power: 85, Accuracy: 100, PP: 15},
	{ID: 4, Name: "Ember", Type: Fire, Power: 40, Accuracy: 100, PP: 25},
	{ID: 5, Name: "Flamethrower", Type: Fire, Power: 90, Accuracy: 100, PP: 15},
	{ID: 6, Name: "Water Gun", Type: Water, Power: 40, Accuracy: 100, PP: 25},
	{ID: 7, Name: "Surf", Type: Water, Power: 90, Accuracy: 100, PP: 15},
	{ID: 8, Name: "Thunder Shock", Type: Electric, Power: 40, Accuracy: 100, PP: 30},
	{ID: 9, Name: "Thunderbolt", Type: Electric, Power: 90, Accuracy: 100, PP: 15},
	{ID: 10, Name: "Vine Whip", Type: Grass, Power: 45, Accuracy: 100, PP: 25},
	{ID: 11, Name: "Razor Leaf", Type: Grass, Power: 55, Accuracy: 95, PP: 25},
	{ID: 12, Name: "Ice Beam", Type: Ice, Power: 90, Accuracy: 100, PP: 10},
	{ID: 13, Name: "Karate Chop", Type: Fighting, Power: 50, Accuracy: 100, PP: 25},
	{ID: 14, Name: "Sludge Bomb", Type: Poison, Power: 90, Accuracy: 100, PP: 10},
	{ID: 15, Name: "Earthquake", Type: Ground, Power: 100, Accuracy: 100, PP: 10},
	{ID: 16, Name: "Wing Attack", Type: Flying, Power: 60, Accuracy: 100, PP: 35},
	{ID: 17, Name: "Psychic", Type: Psychic, Power: 90, Accuracy: 100, PP: 10},
	{ID: 18, Name: "Bug Bite", Type: Bug, Power: 60, Accuracy: 100, PP: 20},
	{ID: 19, Name: "Rock Slide", Type: Rock, Power: 75, Accuracy: 90, PP: 10},
	{ID: 20, Name: "Shadow Ball", Type: Ghost, Power: 80, Accuracy: 100, PP: 15},
	{ID: 21, Name: "Dragon Claw", Type: Dragon, Power: 80, Accuracy: 100, PP: 15},
	{ID: 22, Name: "Bite", Type: Dark, Power: 60, Accuracy: 100, PP: 25},
	{ID: 23, Name: "Iron Tail", Type: Steel, Power: 100, Accuracy: 75, PP: 15},
	{ID: 24, Name: "Moonblast", Type: Fairy, Power: 95, Accuracy: 100, PP: 15},
	{ID: 25, Name: "Hydro Pump", Type: Water, Power: 110, Accuracy: 80, PP: 5},
	{ID: 26, Name: "Fire Blast", Type: Fire, Power: 110, Accuracy: 85, PP: 5},
	{ID: 27, Name: "Thunder", Type: Electric, Power: 110, Accuracy: 70, PP: 10},
	{ID: 28, Name: "Swords Dance", Type: Normal, Accuracy: 100, PP: 20, Effect: self(StatAttack, 2)},
	{ID: 29, Name: "Growl", Type: Normal, Accuracy: 100, PP: 40, Effect: foe(StatAttack, -1)},
	{ID: 30, Name: "Tail Whip", Type: Normal, Accuracy: 100, PP: 30, Effect: foe(StatDefense, -1)},
	{ID: 31, Name: "Agility", Type: Psychic, Accuracy: 100, PP: 30, Effect: self(StatSpeed, 2)},
	{ID: 32, Name: "Double Team", Type: Normal, Accuracy: 100, PP: 15, Effect: self(StatEvasion, 1)},
	{ID: 33, Name: "Sand Attack", Type: Ground, Accuracy: 100, PP: 15, Effect: foe(StatAccuracy, -1)},
	{ID: 34, Name: "Hyper Beam", Type: Normal, Power: 150, Accuracy: 90, PP: 5},
	{ID: 35, Name: "Quick Attack", Type: Normal, Power: 40, Accuracy: 100, PP: 30},
	{ID: 36, Name: "Dragon Pulse", Type: Dragon, Power: 85, Accuracy: 100, PP: 10},
}
