package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ivolkov/tasktg/internal/storage"
)

// newTestStore opens a fresh SQLite database under t.TempDir with migrations
// applied and returns a Store over it.
func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "tasktg.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { storage.CloseDB(db) })

	return storage.NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// seedAccount creates an account with a board and returns both IDs.
func seedAccount(t *testing.T, store storage.Store, username string) (accountID, boardID int64) {
	t.Helper()
	ctx := context.Background()

	accountID, err := store.CreateAccount(ctx, username)
	if err != nil {
		t.Fatalf("CreateAccount(%q): %v", username, err)
	}
	boardID, err = store.CreateBoard(ctx, username+"'s board", accountID)
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	return accountID, boardID
}

func TestGetOrCreateChatUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	user, created, err := store.GetOrCreateChatUser(ctx, 1001, 42)
	if err != nil {
		t.Fatalf("GetOrCreateChatUser: %v", err)
	}
	if !created {
		t.Error("first contact should report created")
	}
	if user.ChatID != 1001 || user.SenderID != 42 {
		t.Errorf("user = %+v, want chat 1001 sender 42", user)
	}
	if user.Linked() {
		t.Error("fresh chat user should not be linked")
	}

	again, created, err := store.GetOrCreateChatUser(ctx, 1001, 42)
	if err != nil {
		t.Fatalf("GetOrCreateChatUser (repeat): %v", err)
	}
	if created {
		t.Error("repeat contact should not report created")
	}
	if again.ID != user.ID {
		t.Errorf("repeat contact returned id %d, want %d", again.ID, user.ID)
	}
}

func TestRotateVerificationCode(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	user, _, err := store.GetOrCreateChatUser(ctx, 1002, 42)
	if err != nil {
		t.Fatalf("GetOrCreateChatUser: %v", err)
	}

	first, err := store.RotateVerificationCode(ctx, user.ID)
	if err != nil {
		t.Fatalf("RotateVerificationCode: %v", err)
	}
	if len(first) != 10 {
		t.Errorf("code %q has length %d, want 10", first, len(first))
	}
	for _, r := range first {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Errorf("code %q contains non-hex character %q", first, r)
		}
	}

	second, err := store.RotateVerificationCode(ctx, user.ID)
	if err != nil {
		t.Fatalf("RotateVerificationCode (repeat): %v", err)
	}
	if second == first {
		t.Error("rotation should replace the code")
	}

	// Only the latest code resolves the chat user.
	if _, err := store.LinkAccount(ctx, first, 1); !errors.Is(err, storage.ErrCodeNotFound) {
		t.Errorf("LinkAccount with stale code = %v, want ErrCodeNotFound", err)
	}

	if _, err := store.RotateVerificationCode(ctx, 9999); err == nil {
		t.Error("rotating a missing chat user should fail")
	}
}

func TestLinkAccount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	accountID, _ := seedAccount(t, store, "alice")
	user, _, err := store.GetOrCreateChatUser(ctx, 1003, 42)
	if err != nil {
		t.Fatalf("GetOrCreateChatUser: %v", err)
	}
	code, err := store.RotateVerificationCode(ctx, user.ID)
	if err != nil {
		t.Fatalf("RotateVerificationCode: %v", err)
	}

	linked, err := store.LinkAccount(ctx, code, accountID)
	if err != nil {
		t.Fatalf("LinkAccount: %v", err)
	}
	if !linked.Linked() || linked.AccountID.Int64 != accountID {
		t.Errorf("linked user = %+v, want account %d", linked, accountID)
	}

	if _, err := store.LinkAccount(ctx, code, accountID); !errors.Is(err, storage.ErrAlreadyLinked) {
		t.Errorf("second link = %v, want ErrAlreadyLinked", err)
	}
	if _, err := store.LinkAccount(ctx, "ffffffffff", accountID); !errors.Is(err, storage.ErrCodeNotFound) {
		t.Errorf("unknown code = %v, want ErrCodeNotFound", err)
	}
}

func TestListCategoriesForAccount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	aliceID, aliceBoard := seedAccount(t, store, "alice")
	bobID, bobBoard := seedAccount(t, store, "bob")

	work, err := store.CreateCategory(ctx, aliceBoard, aliceID, "work")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := store.CreateCategory(ctx, aliceBoard, aliceID, "home"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := store.CreateCategory(ctx, bobBoard, bobID, "secret"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	titles := func(cats []storage.Category) []string {
		out := make([]string, 0, len(cats))
		for _, c := range cats {
			out = append(out, c.Title)
		}
		return out
	}

	cats, err := store.ListCategoriesForAccount(ctx, aliceID)
	if err != nil {
		t.Fatalf("ListCategoriesForAccount: %v", err)
	}
	if got := titles(cats); len(got) != 2 || got[0] != "work" || got[1] != "home" {
		t.Errorf("alice categories = %v, want [work home]", got)
	}

	// Participating in another account's board exposes its categories.
	if err := store.AddBoardParticipant(ctx, bobBoard, aliceID, storage.RoleReader); err != nil {
		t.Fatalf("AddBoardParticipant: %v", err)
	}
	cats, err = store.ListCategoriesForAccount(ctx, aliceID)
	if err != nil {
		t.Fatalf("ListCategoriesForAccount: %v", err)
	}
	if len(cats) != 3 {
		t.Errorf("alice sees %d categories after joining bob's board, want 3", len(cats))
	}

	// Soft deletion hides a category without dropping rows.
	if err := store.SoftDeleteCategory(ctx, work); err != nil {
		t.Fatalf("SoftDeleteCategory: %v", err)
	}
	cats, err = store.ListCategoriesForAccount(ctx, aliceID)
	if err != nil {
		t.Fatalf("ListCategoriesForAccount: %v", err)
	}
	for _, c := range cats {
		if c.ID == work {
			t.Error("soft-deleted category still listed")
		}
	}
}

func TestGoalListingFilters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	aliceID, aliceBoard := seedAccount(t, store, "alice")
	bobID, bobBoard := seedAccount(t, store, "bob")

	work, err := store.CreateCategory(ctx, aliceBoard, aliceID, "work")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	doomed, err := store.CreateCategory(ctx, aliceBoard, aliceID, "doomed")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	bobCat, err := store.CreateCategory(ctx, bobBoard, bobID, "chores")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	if _, err := store.CreateGoal(ctx, aliceID, work, "ship release"); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	archived, err := store.CreateGoal(ctx, aliceID, work, "old idea")
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if err := store.UpdateGoalStatus(ctx, archived, storage.GoalStatusArchived); err != nil {
		t.Fatalf("UpdateGoalStatus: %v", err)
	}
	if _, err := store.CreateGoal(ctx, aliceID, doomed, "orphaned"); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if err := store.SoftDeleteCategory(ctx, doomed); err != nil {
		t.Fatalf("SoftDeleteCategory: %v", err)
	}
	if _, err := store.CreateGoal(ctx, bobID, bobCat, "mow lawn"); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	// Duplicate titles are allowed.
	if _, err := store.CreateGoal(ctx, aliceID, work, "ship release"); err != nil {
		t.Fatalf("CreateGoal (duplicate title): %v", err)
	}

	titles, err := store.ListGoalTitlesForAccount(ctx, aliceID)
	if err != nil {
		t.Fatalf("ListGoalTitlesForAccount: %v", err)
	}
	want := []string{"ship release", "ship release"}
	if len(titles) != len(want) {
		t.Fatalf("alice goals = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("alice goals = %v, want %v", titles, want)
		}
	}
}

func TestCreateGoalValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	aliceID, aliceBoard := seedAccount(t, store, "alice")
	work, err := store.CreateCategory(ctx, aliceBoard, aliceID, "work")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	if _, err := store.CreateGoal(ctx, aliceID, work, ""); err == nil {
		t.Error("empty goal title should be rejected")
	}
	if err := store.UpdateGoalStatus(ctx, 9999, storage.GoalStatusDone); err == nil {
		t.Error("updating a missing goal should fail")
	}
}

func TestRunMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunMaintenance(context.Background()); err != nil {
		t.Fatalf("RunMaintenance: %v", err)
	}
}
