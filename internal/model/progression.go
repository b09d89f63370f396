package model

import "strings"

// Progression defaults and rules
const (
	DefaultPlayerName   = "Jugador"
	DefaultLevel        = 1
	DefaultStatValue    = 5
	XPPerLevel          = 100
	SkillPointsPerLevel = 3
	// MaxExperienceGain caps a single gain so rollover stays bounded and the
	// experience total cannot overflow
	MaxExperienceGain = 1_000_000
)

// Stat identifies an attribute that skill points can be spent on
type Stat string

const (
	StatStrength Stat = "strength"
	StatDefense  Stat = "defense"
	StatAgility  Stat = "agility"
)

// ParseStat matches a stat name case-insensitively
func ParseStat(name string) (Stat, bool) {
	switch Stat(strings.ToLower(strings.TrimSpace(name))) {
	case StatStrength:
		return StatStrength, true
	case StatDefense:
		return StatDefense, true
	case StatAgility:
		return StatAgility, true
	default:
		return "", false
	}
}

// Progression is the player's persisted progression state.
// The JSON field names are the stored blob format and must not change.
type Progression struct {
	PlayerName           string `json:"playerName"`
	Level                int    `json:"level"`
	Experience           int    `json:"experience"`
	AvailableSkillPoints int    `json:"availableSkillPoints"`
	Strength             int    `json:"strength"`
	Defense              int    `json:"defense"`
	Agility              int    `json:"agility"`
	TotalClicks          int    `json:"totalClicks"`
}

// NewProgression returns the default progression for a new player
func NewProgression() Progression {
	return Progression{
		PlayerName: DefaultPlayerName,
		Level:      DefaultLevel,
		Strength:   DefaultStatValue,
		Defense:    DefaultStatValue,
		Agility:    DefaultStatValue,
	}
}

// RequiredXP returns the experience needed to leave the given level
func RequiredXP(level int) int {
	return level * XPPerLevel
}

// RequiredXP returns the experience needed to reach the next level
func (p Progression) RequiredXP() int {
	return RequiredXP(p.Level)
}

// Progress returns the fraction of the current level completed, in [0, 1)
func (p Progression) Progress() float64 {
	required := p.RequiredXP()
	if required <= 0 {
		return 0
	}
	return float64(p.Experience) / float64(required)
}

// StatValue returns the current value of a stat
func (p Progression) StatValue(stat Stat) int {
	switch stat {
	case StatStrength:
		return p.Strength
	case StatDefense:
		return p.Defense
	case StatAgility:
		return p.Agility
	default:
		return 0
	}
}

// Validate checks the invariants a stored progression must satisfy
func (p Progression) Validate() error {
	switch {
	case p.Level < 1:
		return ErrInvalidLevel
	case p.Experience < 0, p.AvailableSkillPoints < 0, p.TotalClicks < 0:
		return ErrNegativeValue
	case p.Strength < 0, p.Defense < 0, p.Agility < 0:
		return ErrNegativeValue
	case p.Experience >= p.RequiredXP():
		return ErrExperienceOverflow
	}
	return nil
}

// ValidExperienceGain reports whether amount is a gain GainExperience accepts
func ValidExperienceGain(amount int) bool {
	return amount > 0 && amount <= MaxExperienceGain
}

// GainExperience adds experience and counts the click, then rolls excess
// experience over into levels. Returns the number of levels gained.
// Amounts outside ValidExperienceGain leave the progression untouched.
func (p *Progression) GainExperience(amount int) int {
	if !ValidExperienceGain(amount) {
		return 0
	}
	p.Experience += amount
	p.TotalClicks++

	levels := 0
	for p.Experience >= p.RequiredXP() {
		p.Experience -= p.RequiredXP()
		p.Level++
		p.AvailableSkillPoints += SkillPointsPerLevel
		levels++
	}
	return levels
}

// SpendSkillPoint raises a stat by one. Returns false if no point was spent.
func (p *Progression) SpendSkillPoint(stat Stat) bool {
	if p.AvailableSkillPoints <= 0 {
		return false
	}
	switch stat {
	case StatStrength:
		p.Strength++
	case StatDefense:
		p.Defense++
	case StatAgility:
		p.Agility++
	default:
		return false
	}
	p.AvailableSkillPoints--
	return true
}
