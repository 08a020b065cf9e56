package resource

// TypeChart holds the multiplier of an attacking type (row) against a single
// defending type (column). Every cell is one of 0, 0.5, 1 or 2.
type TypeChart [numTypes][numTypes]float64

// matchups lists only the cells that differ from 1.
var matchups = map[Type]map[Type]float64{
	Normal:   {Rock: 0.5, Ghost: 0, Steel: 0.5},
	Fire:     {Fire: 0.5, Water: 0.5, Grass: 2, Ice: 2, Bug: 2, Rock: 0.5, Dragon: 0.5, Steel: 2},
	Water:    {Fire: 2, Water: 0.5, Grass: 0.5, Ground: 2, Rock: 2, Dragon: 0.5},
	Electric: {Water: 2, Electric: 0.5, Grass: 0.5, Ground: 0, Flying: 2, Dragon: 0.5},
	Grass:    {Fire: 0.5, Water: 2, Grass: 0.5, Poison: 0.5, Ground: 2, Flying: 0.5, Bug: 0.5, Rock: 2, Dragon: 0.5, Steel: 0.5},
	Ice:      {Fire: 0.5, Water: 0.5, Grass: 2, Ice: 0.5, Ground: 2, Flying: 2, Dragon: 2, Steel: 0.5},
	Fighting: {Normal: 2, Ice: 2, Poison: 0.5, Flying: 0.5, Psychic: 0.5, Bug: 0.5, Rock: 2, Ghost: 0, Dark: 2, Steel: 2, Fairy: 0.5},
	Poison:   {Grass: 2, Poison: 0.5, Ground: 0.5, Rock: 0.5, Ghost: 0.5, Steel: 0, Fairy: 2},
	Ground:   {Fire: 2, Electric: 2, Grass: 0.5, Poison: 2, Flying: 0, Bug: 0.5, Rock: 2, Steel: 2},
	Flying:   {Electric: 0.5, Grass: 2, Fighting: 2, Bug: 2, Rock: 0.5, Steel: 0.5},
	Psychic:  {Fighting: 2, Poison: 2, Psychic: 0.5, Dark: 0, Steel: 0.5},
	Bug:      {Fire: 0.5, Grass: 2, Fighting: 0.5, Poison: 0.5, Flying: 0.5, Psychic: 2, Ghost: 0.5, Dark: 2, Steel: 0.5, Fairy: 0.5},
	Rock:     {Fire: 2, Ice: 2, Fighting: 0.5, Ground: 0.5, Flying: 2, Bug: 2, Steel: 0.5},
	Ghost:    {Normal: 0, Psychic: 2, Ghost: 2, Dark: 0.5},
	Dragon:   {Dragon: 2, Steel: 0.5, Fairy: 0},
	Dark:     {Fighting: 0.5, Psychic: 2, Ghost: 2, Dark: 0.5, Fairy: 0.5},
	Steel:    {Fire: 0.5, Water: 0.5, Electric: 0.5, Ice: 2, Rock: 2, Steel: 0.5, Fairy: 2},
	Fairy:    {Fire: 0.5, Fighting: 2, Poison: 0.5, Dragon: 2, Dark: 2, Steel: 0.5},
}

var chart = buildChart()

func buildChart() *TypeChart {
	var c TypeChart
	for a := range c {
		for d := range c[a] {
			c[a][d] = 1
		}
	}
	for atk, row := range matchups {
		for def, mult := range row {
			c[atk][def] = mult
		}
	}
	return &c
}

// Chart returns the process-wide type chart. Callers must not modify it.
func Chart() *TypeChart { return chart }

// Multiplier returns the single-type lookup. Unknown types count as neutral.
func (c *TypeChart) Multiplier(attack, defend Type) float64 {
	if !attack.Valid() || !defend.Valid() {
		return 1
	}
	return c[attack][defend]
}

// Effectiveness is the product of the lookups against each defending type, so
// dual types can reach 0, 0.25, 0.5, 1, 2 or 4.
func (c *TypeChart) Effectiveness(attack Type, defenders ...Type) float64 {
	eff := 1.0
	for _, d := range defenders {
		eff *= c.Multiplier(attack, d)
	}
	return eff
}

// Effectiveness uses the process-wide chart.
func Effectiveness(attack Type, defenders ...Type) float64 {
	return chart.Effectiveness(attack, defenders...)
}

// Rows renders the chart as nested maps keyed by type name, for the catalog API.
func (c *TypeChart) Rows() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, numTypes)
	for a := range c {
		row := make(map[string]float64, numTypes)
		for d := range c[a] {
			row[Type(d).String()] = c[a][d]
		}
		out[Type(a).String()] = row
	}
	return out
}
