package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"query_clash_backend/internal/model"
	"query_clash_backend/internal/util"
)

func newProgressionService(f *fixture) *ProgressionService {
	s := NewProgressionService(f.db, f.participants, f.investigations, f.progress)
	s.Now = fixedClock(testNow)
	return s
}

// addRoundOneInvestigation gives round 1 a second investigation so ordering
// between solves can be observed.
func addRoundOneInvestigation(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.db.Create(&model.Investigation{Round: 1, Prompt: "Which gym did the killer use?", CorrectAnswer: "Get Fit Now"}).Error; err != nil {
		t.Fatalf("create investigation: %v", err)
	}
}

func TestVerifyWrongAnswer(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	svc := newProgressionService(f)
	inv := f.investigationsOf(t, 1)[0]

	res, err := svc.Verify(t.Context(), "alice", inv.ID, "Nobody")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Correct {
		t.Fatalf("wrong answer accepted")
	}
	if solved, _ := f.progress.IsSolved("alice", inv.ID); solved {
		t.Fatalf("wrong answer recorded a solve")
	}
}

func TestVerifyAdvancesOnce(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	svc := newProgressionService(f)
	inv := f.investigationsOf(t, 1)[0]

	res, err := svc.Verify(t.Context(), "alice", inv.ID, "  jeremy bowers ")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Correct || !res.Advanced || res.Round != 2 || res.AlreadySolved {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = svc.Verify(t.Context(), "alice", inv.ID, "Jeremy Bowers")
	if err != nil {
		t.Fatalf("Verify again: %v", err)
	}
	if !res.Correct || !res.AlreadySolved || res.Advanced {
		t.Fatalf("repeat solve result %+v", res)
	}
	if p := f.participant(t, "alice"); p.CurrentRound != 2 {
		t.Fatalf("round = %d, want 2", p.CurrentRound)
	}

	var rows int64
	f.db.Model(&model.InvestigationProgress{}).Where("name = ?", "alice").Count(&rows)
	if rows != 1 {
		t.Fatalf("progress rows = %d, want 1", rows)
	}
}

func TestVerifyOrderIndependent(t *testing.T) {
	run := func(t *testing.T, reverse bool) (round int, solved int64) {
		f := newFixture(t)
		addRoundOneInvestigation(t, f)
		f.addParticipant(t, "alice", testNow)
		svc := newProgressionService(f)

		answers := map[string]string{
			"Jeremy Bowers": "jeremy bowers",
			"Get Fit Now":   "GET FIT NOW",
		}
		invs := f.investigationsOf(t, 1)
		if reverse {
			invs[0], invs[1] = invs[1], invs[0]
		}

		for i, inv := range invs {
			res, err := svc.Verify(t.Context(), "alice", inv.ID, answers[inv.CorrectAnswer])
			if err != nil {
				t.Fatalf("Verify %d: %v", inv.ID, err)
			}
			last := i == len(invs)-1
			if res.Advanced != last {
				t.Fatalf("solve %d of %d: advanced = %v", i+1, len(invs), res.Advanced)
			}
		}

		count, err := f.progress.CountSolvedInRound("alice", 1)
		if err != nil {
			t.Fatalf("count solved: %v", err)
		}
		return f.participant(t, "alice").CurrentRound, count
	}

	roundAB, solvedAB := run(t, false)
	roundBA, solvedBA := run(t, true)
	if roundAB != 2 || roundBA != 2 || solvedAB != 2 || solvedBA != 2 {
		t.Fatalf("A,B -> round %d solved %d; B,A -> round %d solved %d", roundAB, solvedAB, roundBA, solvedBA)
	}
}

func TestVerifyStopsAtFinalRound(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	svc := newProgressionService(f)

	first := f.investigationsOf(t, 1)[0]
	if _, err := svc.Verify(t.Context(), "alice", first.ID, "Jeremy Bowers"); err != nil {
		t.Fatalf("Verify round 1: %v", err)
	}

	final := f.investigationsOf(t, 2)[0]
	res, err := svc.Verify(t.Context(), "alice", final.ID, "Miranda Priestly")
	if err != nil {
		t.Fatalf("Verify round 2: %v", err)
	}
	if !res.Correct || res.Advanced || res.Round != 2 {
		t.Fatalf("final round result %+v", res)
	}
	if p := f.participant(t, "alice"); p.CurrentRound != 2 {
		t.Fatalf("round = %d, want 2", p.CurrentRound)
	}
}

func TestVerifyLockedAndUnknown(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	svc := newProgressionService(f)

	future := f.investigationsOf(t, 2)[0]
	if _, err := svc.Verify(t.Context(), "alice", future.ID, "Miranda Priestly"); !errors.Is(err, util.ErrInvestigationLocked) {
		t.Fatalf("expected ErrInvestigationLocked, got %v", err)
	}
	if _, err := svc.Verify(t.Context(), "alice", 9999, "x"); !errors.Is(err, util.ErrInvestigationNotFound) {
		t.Fatalf("expected ErrInvestigationNotFound, got %v", err)
	}
	if _, err := svc.Verify(t.Context(), "", future.ID, "x"); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerifyMissingParticipantIsIndeterminate(t *testing.T) {
	f := newFixture(t)
	svc := newProgressionService(f)
	inv := f.investigationsOf(t, 1)[0]

	res, err := svc.Verify(t.Context(), "ghost", inv.ID, "Jeremy Bowers")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Correct || !res.Indeterminate || res.Advanced {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestListInvestigationsMarksSolved(t *testing.T) {
	f := newFixture(t)
	addRoundOneInvestigation(t, f)
	f.addParticipant(t, "alice", testNow.Add(-time.Minute))
	svc := newProgressionService(f)
	invs := f.investigationsOf(t, 1)

	if _, err := svc.Verify(t.Context(), "alice", invs[0].ID, invs[0].CorrectAnswer); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	views, err := svc.ListInvestigations(t.Context(), "alice")
	if err != nil {
		t.Fatalf("ListInvestigations: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	for _, v := range views {
		if want := v.ID == invs[0].ID; v.Solved != want {
			t.Fatalf("view %d solved = %v, want %v", v.ID, v.Solved, want)
		}
	}
}

func TestRecordSolveIgnoresRepeat(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	inv := f.investigationsOf(t, 1)[0]

	inserted, err := f.progress.RecordSolve("alice", inv.ID, util.FormatTimestamp(testNow))
	if err != nil || !inserted {
		t.Fatalf("first RecordSolve = %v, %v", inserted, err)
	}
	inserted, err = f.progress.RecordSolve("alice", inv.ID, util.FormatTimestamp(testNow.Add(time.Minute)))
	if err != nil || inserted {
		t.Fatalf("repeat RecordSolve = %v, %v", inserted, err)
	}
}

func TestVerifyConcurrentAdvancesOnce(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "alice", testNow)
	svc := newProgressionService(f)
	inv := f.investigationsOf(t, 1)[0]

	const attempts = 4
	results := make(chan *VerifyResult, attempts)
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Verify(t.Context(), "alice", inv.ID, "Jeremy Bowers")
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("Verify: %v", err)
	}
	var fresh, repeats, advanced int
	for res := range results {
		if !res.Correct {
			t.Fatalf("correct answer rejected: %+v", res)
		}
		if res.AlreadySolved {
			repeats++
		} else {
			fresh++
		}
		if res.Advanced {
			advanced++
		}
	}
	if fresh != 1 || repeats != attempts-1 || advanced != 1 {
		t.Fatalf("fresh=%d repeats=%d advanced=%d", fresh, repeats, advanced)
	}
	if p := f.participant(t, "alice"); p.CurrentRound != 2 {
		t.Fatalf("round = %d, want 2", p.CurrentRound)
	}
}
