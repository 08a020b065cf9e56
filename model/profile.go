package model

import "time"

// Profile accumulates a participant's battle record.
type Profile struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Participant  string     `gorm:"uniqueIndex;size:64;not null" json:"participant_id"`
	Name         string     `gorm:"size:32" json:"name"`
	Wins         int        `gorm:"default:0" json:"wins"`
	RankedWins   int        `gorm:"default:0;index" json:"ranked_wins"` // wins against humans; the leaderboard score
	Losses       int        `gorm:"default:0" json:"losses"`
	Knockouts    int        `gorm:"default:0" json:"knockouts"` // wins by knockout
	Forfeits     int        `gorm:"default:0" json:"forfeits"`  // losses by leaving or idling
	Battles      int        `gorm:"default:0" json:"battles"`
	LastBattleAt *time.Time `json:"last_battle_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// WinRate returns wins / battles, or 0 before the first battle.
func (p *Profile) WinRate() float64 {
	if p.Battles == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Battles)
}
