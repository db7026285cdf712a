package model

// GameModels are the tables owned by the game itself, as opposed to the
// mystery dataset the players query.
func GameModels() []interface{} {
	return []interface{}{
		&Participant{},
		&Investigation{},
		&InvestigationProgress{},
		&Submission{},
	}
}

// HiddenTables are never listed by the schema browser.
var HiddenTables = map[string]bool{
	"participants":           true,
	"investigations":         true,
	"investigation_progress": true,
	"submissions":            true,
}
