package database

import (
	"query_clash_backend/internal/model"

	"gorm.io/gorm"
)

// DefaultInvestigations is the SQL Murder Mystery flow.
var DefaultInvestigations = []model.Investigation{
	{Round: 1, Prompt: "Who committed the murder on Jan 15, 2018 in SQL City?", CorrectAnswer: "Jeremy Bowers"},
	{Round: 2, Prompt: "Who hired the murderer? (Check the killer's interview for clues)", CorrectAnswer: "Miranda Priestly"},
}

// SeedInvestigations fills an empty investigations table. Seeded rows are
// never modified afterwards.
func SeedInvestigations(db *gorm.DB) error {
	if !db.Migrator().HasTable(&model.Investigation{}) {
		return nil
	}
	var count int64
	if err := db.Model(&model.Investigation{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seed := make([]model.Investigation, len(DefaultInvestigations))
	copy(seed, DefaultInvestigations)
	return db.Create(&seed).Error
}
