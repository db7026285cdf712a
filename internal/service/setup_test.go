package service

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/model"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/util"
	"query_clash_backend/pkg/database"

	"gorm.io/gorm"
)

const personRows = 200

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db             *gorm.DB
	participants   *repository.ParticipantRepository
	investigations *repository.InvestigationRepository
	progress       *repository.ProgressRepository
	submissions    *repository.SubmissionRepository
	dataset        *repository.DatasetRepository
}

// newFixture opens a file-backed sqlite database with the game tables, the
// seeded investigations and a small person table standing in for the dataset.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "game.db"),
	}
	db, err := database.Open(cfg, "test")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedInvestigations(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE TABLE person (
			id INTEGER PRIMARY KEY,
			name TEXT,
			license_id INTEGER,
			address_number INTEGER,
			address_street_name TEXT,
			ssn INTEGER
		)`).Error; err != nil {
			return err
		}
		for i := 1; i <= personRows; i++ {
			if err := tx.Exec("INSERT INTO person (id, name, license_id, address_number, address_street_name, ssn) VALUES (?, ?, ?, ?, ?, ?)",
				i, fmt.Sprintf("Person %d", i), 1000+i, i*10, "Northwestern Dr", 100000000+i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}

	return &fixture{
		db:             db,
		participants:   repository.NewParticipantRepository(db),
		investigations: repository.NewInvestigationRepository(db),
		progress:       repository.NewProgressRepository(db, true),
		submissions:    repository.NewSubmissionRepository(db),
		dataset:        repository.NewDatasetRepository(db),
	}
}

func (f *fixture) addParticipant(t *testing.T, name string, started time.Time) {
	t.Helper()
	err := f.participants.Create(&model.Participant{
		Name:           name,
		Password:       "not-a-hash",
		CurrentRound:   1,
		RoundStartTime: util.FormatTimestamp(started),
	})
	if err != nil {
		t.Fatalf("create participant %s: %v", name, err)
	}
}

func (f *fixture) participant(t *testing.T, name string) *model.Participant {
	t.Helper()
	p, err := f.participants.FindByName(name)
	if err != nil {
		t.Fatalf("find participant %s: %v", name, err)
	}
	return p
}

func (f *fixture) investigationsOf(t *testing.T, round int) []model.Investigation {
	t.Helper()
	invs, err := f.investigations.ListByRound(round)
	if err != nil {
		t.Fatalf("list round %d: %v", round, err)
	}
	if len(invs) == 0 {
		t.Fatalf("no investigations seeded for round %d", round)
	}
	return invs
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
