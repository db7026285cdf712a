package model

// Investigation is a single prompt with one canonical answer, seeded once.
// swagger:model Investigation
type Investigation struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Round         int    `gorm:"index" json:"round"`
	Prompt        string `gorm:"type:text" json:"prompt"`
	CorrectAnswer string `gorm:"size:255" json:"-"`
}

func (Investigation) TableName() string {
	return "investigations"
}

// InvestigationProgress records that a participant solved an investigation.
// The composite primary key makes a solve write-once.
type InvestigationProgress struct {
	Name            string  `gorm:"primaryKey;size:100" json:"name"`
	InvestigationID uint    `gorm:"primaryKey;autoIncrement:false" json:"investigationId"`
	Solved          bool    `gorm:"default:false" json:"solved"`
	SolvedAt        *string `gorm:"type:datetime" json:"solvedAt,omitempty"`
}

func (InvestigationProgress) TableName() string {
	return "investigation_progress"
}
