package model

type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleAdmin       ParticipantRole = "admin"
)

// Participant is a player of the game, keyed by a unique name.
// RoundStartTime is kept as text so rows written by older deployments with
// foreign timestamp layouts can still be read; see util.ParseTimestamp.
// swagger:model Participant
type Participant struct {
	Name           string `gorm:"primaryKey;size:100" json:"name"`
	Password       string `gorm:"size:100" json:"-"`
	CurrentRound   int    `gorm:"default:1" json:"round"`
	RoundStartTime string `gorm:"type:datetime" json:"roundStartTime"`
	ElapsedTime    int64  `gorm:"default:0" json:"elapsedTime"`
	Solved         bool   `gorm:"default:false" json:"solved"`
	QueryCount     int64  `gorm:"default:0" json:"queryCount"`
}

func (Participant) TableName() string {
	return "participants"
}
