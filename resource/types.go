package resource

import (
	"fmt"
	"strings"
)

// Type is an elemental type. The numeric order is stable and used as the
// index into the type chart.
type Type int

const (
	Normal Type = iota
	Fire
	Water
	Electric
	Grass
	Ice
	Fighting
	Poison
	Ground
	Flying
	Psychic
	Bug
	Rock
	Ghost
	Dragon
	Dark
	Steel
	Fairy

	numTypes = int(Fairy) + 1
)

var typeNames = [numTypes]string{
	"normal", "fire", "water", "electric", "grass", "ice",
	"fighting", "poison", "ground", "flying", "psychic", "bug",
	"rock", "ghost", "dragon", "dark", "steel", "fairy",
}

// AllTypes returns every type in chart order.
func AllTypes() []Type {
	out := make([]Type, numTypes)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

func (t Type) Valid() bool { return t >= 0 && int(t) < numTypes }

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType accepts a case-insensitive type name.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("resource: unknown type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("resource: invalid type %d", int(t))
	}
	return []byte(typeNames[t]), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// special lists the types whose moves use SpAttack/SpDefense.
var special = map[Type]bool{
	Psychic:  true,
	Fire:     true,
	Water:    true,
	Grass:    true,
	Ice:      true,
	Electric: true,
	Dragon:   true,
	Dark:     true,
	Fairy:    true,
}

// IsSpecial reports whether moves of this type are special rather than physical.
func (t Type) IsSpecial() bool { return special[t] }
