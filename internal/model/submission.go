package model

// Submission is the single final answer of a participant.
// swagger:model Submission
type Submission struct {
	Name           string `gorm:"primaryKey;size:100" json:"name"`
	Round          int    `json:"round"`
	FinalAnswer    string `gorm:"type:text" json:"finalAnswer"`
	SubmissionTime string `gorm:"type:datetime" json:"submissionTime"`
	TimeTaken      int64  `json:"timeTaken"`
}

func (Submission) TableName() string {
	return "submissions"
}
