package resource

import "fmt"

// MaxMoves is the move-list cap of a creature.
const MaxMoves = 4

// CreatureDefinition is the immutable species template.
type CreatureDefinition struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Types     []Type `json:"types"`
	BaseStats Stats  `json:"base_stats"`
	Moves     []int  `json:"moves"`
	Legendary bool   `json:"legendary,omitempty"`
}

// HasType reports whether t is one of the species' types.
func (c *CreatureDefinition) HasType(t Type) bool {
	for _, own := range c.Types {
		if own == t {
			return true
		}
	}
	return false
}

func (c *CreatureDefinition) validate(moves map[int]*MoveDefinition) error {
	if c.ID <= 0 || c.Name == "" {
		return fmt.Errorf("resource: species %d %q: missing id or name", c.ID, c.Name)
	}
	if len(c.Types) < 1 || len(c.Types) > 2 {
		return fmt.Errorf("resource: species %d: needs one or two types", c.ID)
	}
	for _, t := range c.Types {
		if !t.Valid() {
			return fmt.Errorf("resource: species %d: invalid type", c.ID)
		}
	}
	if c.BaseStats.HP <= 0 {
		return fmt.Errorf("resource: species %d: base hp must be positive", c.ID)
	}
	if len(c.Moves) == 0 || len(c.Moves) > MaxMoves {
		return fmt.Errorf("resource: species %d: needs 1..%d moves", c.ID, MaxMoves)
	}
	for _, id := range c.Moves {
		if _, ok := moves[id]; !ok {
			return fmt.Errorf("resource: species %d: unknown move %d", c.ID, id)
		}
	}
	return nil
}

// TeamPreset is a named, ready-made roster of species ids.
type TeamPreset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Species []int  `json:"species"`
}

func types(t ...Type) []Type { return t }

var builtinSpecies = []*CreatureDefinition{
	{ID: 1, Name: "Bulbasaur", Types: types(Grass, Poison), BaseStats: Stats{45, 49, 49, 65, 65, 45}, Moves: []int{1, 10, 11, 29}},
	{ID: 4, Name: "Charmander", Types: types(Fire), BaseStats: Stats{39, 52, 43, 60, 50, 65}, Moves: []int{2, 4, 5, 29}},
	{ID: 6, Name: "Charizard", Types: types(Fire, Flying), BaseStats: Stats{78, 84, 78, 109, 85, 100}, Moves: []int{5, 16, 21, 26}},
	{ID: 7, Name: "Squirtle", Types: types(Water), BaseStats: Stats{44, 48, 65, 50, 64, 43}, Moves: []int{1, 6, 7, 30}},
	{ID: 9, Name: "Blastoise", Types: types(Water), BaseStats: Stats{79, 83, 100, 85, 105, 78}, Moves: []int{7, 25, 12, 22}},
	{ID: 25, Name: "Pikachu", Types: types(Electric), BaseStats: Stats{35, 55, 40, 50, 50, 90}, Moves: []int{8, 9, 35, 23}},
	{ID: 26, Name: "Raichu", Types: types(Electric), BaseStats: Stats{60, 90, 55, 90, 80, 110}, Moves: []int{9, 27, 35, 31}},
	{ID: 39, Name: "Jigglypuff", Types: types(Normal, Fairy), BaseStats: Stats{115, 45, 20, 45, 25, 20}, Moves: []int{3, 24, 32, 29}},
	{ID: 52, Name: "Meowth", Types: types(Normal), BaseStats: Stats{40, 45, 35, 40, 40, 90}, Moves: []int{2, 22, 29, 35}},
	{ID: 66, Name: "Machop", Types: types(Fighting), BaseStats: Stats{70, 80, 50, 35, 35, 35}, Moves: []int{13, 19, 3, 15}},
	{ID: 74, Name: "Geodude", Types: types(Rock, Ground), BaseStats: Stats{40, 80, 100, 30, 30, 20}, Moves: []int{1, 19, 15, 33}},
	{ID: 92, Name: "Gastly", Types: types(Ghost, Poison), BaseStats: Stats{30, 35, 30, 100, 35, 80}, Moves: []int{20, 14, 17, 32}},
	{ID: 94, Name: "Gengar", Types: types(Ghost, Poison), BaseStats: Stats{60, 65, 60, 130, 75, 110}, Moves: []int{20, 14, 9, 17}},
	{ID: 123, Name: "Scyther", Types: types(Bug, Flying), BaseStats: Stats{70, 110, 80, 55, 80, 105}, Moves: []int{18, 16, 28, 35}},
	{ID: 131, Name: "Lapras", Types: types(Water, Ice), BaseStats: Stats{130, 85, 80, 85, 95, 60}, Moves: []int{7, 12, 3, 9}},
	{ID: 143, Name: "Snorlax", Types: types(Normal), BaseStats: Stats{160, 110, 65, 65, 110, 30}, Moves: []int{3, 15, 34, 19}},
	{ID: 147, Name: "Dratini", Types: types(Dragon), BaseStats: Stats{41, 64, 45, 50, 50, 50}, Moves: []int{1, 36, 8, 31}},
	{ID: 149, Name: "Dragonite", Types: types(Dragon, Flying), BaseStats: Stats{91, 134, 95, 100, 100, 80}, Moves: []int{21, 16, 15, 34}},
	{ID: 150, Name: "Mewtwo", Types: types(Psychic), BaseStats: Stats{106, 110, 90, 154, 90, 130}, Moves: []int{17, 20, 12, 31}, Legendary: true},
	{ID: 208, Name: "Steelix", Types: types(Steel, Ground), BaseStats: Stats{75, 85, 200, 55, 65, 30}, Moves: []int{23, 15, 19, 1}},
	{ID: 282, Name: "Gardevoir", Types: types(Psychic, Fairy), BaseStats: Stats{68, 65, 65, 125, 115, 80}, Moves: []int{17, 24, 20, 32}},
}

var builtinTeams = []*TeamPreset{
	{ID: "starters", Name: "Starters", Species: []int{1, 4, 7}},
	{ID: "evolved", Name: "Fully Evolved", Species: []int{6, 9, 26}},
	{ID: "balanced", Name: "Balanced Six", Species: []int{25, 94, 131, 143, 149, 208}},
	{ID: "underdogs", Name: "Underdogs", Species: []int{39, 52, 66, 74}},
	{ID: "psychic", Name: "Mind Games", Species: []int{150, 282, 92}},
}
