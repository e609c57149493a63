package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"journal-review-api/models"
)

func TestGormStoreUpdateManuscriptReportsStaleWrite(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("(?s)UPDATE `manuscripts` SET .* WHERE manuscript_id = \\? AND stage = \\?"),
			anyArgs: true,
			result:  scriptedResult{rowsAffected: 0},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	store := NewGormStore(db)
	err := store.Atomic(context.Background(), func(repo Repository) error {
		m := &models.Manuscript{ManuscriptID: 9, Title: "Stale", Stage: models.StageAccepted, UpdatedAt: time.Now()}
		return repo.UpdateManuscript(m, models.StageReview)
	})
	if !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected stale write, got %v", err)
	}
	if KindOf(wrapRepoErr(err, "manuscript", 9)) != KindConflict {
		t.Fatalf("expected stale write to map to conflict")
	}
	if state.rollbacks != 1 || state.commits != 0 {
		t.Fatalf("expected rollback only, got commits=%d rollbacks=%d", state.commits, state.rollbacks)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestGormStoreCommitFailureIsIntegrityError(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO `stage_transitions`"),
			anyArgs: true,
			result:  scriptedResult{lastInsertID: 5, rowsAffected: 1},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()
	state.commitErr = errors.New("connection reset")

	store := NewGormStore(db)
	var appended *models.StageTransition
	err := store.Atomic(context.Background(), func(repo Repository) error {
		var err error
		appended, err = appendTransition(repo, Actor{UserID: 4, Role: RoleEditor}, 9, models.StageReview, models.StageAccepted, Trigger(models.DecisionAccept), nil, "", time.Now())
		return err
	})
	if KindOf(err) != KindIntegrity {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if appended == nil || appended.TransitionID != 5 {
		t.Fatalf("expected transition id from insert, got %+v", appended)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestGormStoreRejectsRecordedDecision(t *testing.T) {
	db, state, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	store := NewGormStore(db)
	err := store.Atomic(context.Background(), func(repo Repository) error {
		return repo.AppendDecision(&models.Decision{DecisionID: 3})
	})
	if err == nil {
		t.Fatalf("expected error for an already recorded decision")
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestGormStoreCountManuscriptsByStageFillsEveryStage(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT stage, COUNT\\(\\*\\) AS total FROM `manuscripts` GROUP BY `?stage`?"),
			columns: []string{"stage", "total"},
			rows: [][]driver.Value{
				{"review", int64(2)},
				{"triage", int64(1)},
			},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	var counts map[models.ManuscriptStage]int64
	err := NewGormStore(db).Read(context.Background(), func(repo Repository) error {
		var err error
		counts, err = repo.CountManuscriptsByStage()
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != len(models.AllStages) {
		t.Fatalf("expected every stage, got %v", counts)
	}
	if counts[models.StageReview] != 2 || counts[models.StageTriage] != 1 || counts[models.StagePublished] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestGormUserDirectoryListByRolesExpandsSynonyms(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT \\* FROM `users` WHERE role IN \\(.*\\) AND delete_at IS NULL ORDER BY user_id"),
			args:    []driver.Value{"editor", "gfj_editor", "editor_in_chief", "editor-in-chief", "eic", "gfj_eic"},
			columns: []string{"user_id", "display_name", "email", "role"},
			rows: [][]driver.Value{
				{int64(4), "Ed Itor", "editor@example.org", "gfj_editor"},
				{int64(5), "Chief", "eic@example.org", "eic"},
			},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	users, err := NewGormUserDirectory(db).ListByRoles(context.Background(), editorialRoles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two users, got %d", len(users))
	}
	if role, _ := ResolveRole(&users[1]); role != RoleEditorInChief {
		t.Fatalf("expected eic alias to resolve, got %q", role)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestMySQLLockerReportsBusyLock(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{ReminderLockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(0)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT GET_LOCK`),
			args:    []driver.Value{ReminderLockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`SELECT RELEASE_LOCK`),
			args:    []driver.Value{ReminderLockName},
			columns: []string{"status"},
			rows:    [][]driver.Value{{int64(1)}},
		},
	}
	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	locker := NewMySQLLocker(db)
	if _, err := locker.Acquire(context.Background(), ReminderLockName); !errors.Is(err, ErrReminderSweepRunning) {
		t.Fatalf("expected busy lock, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	release, err := locker.Acquire(ctx, ReminderLockName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	if err := release(); err != nil {
		t.Fatalf("release after cancel should still run: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}
