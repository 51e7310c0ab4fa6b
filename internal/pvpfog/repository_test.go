package pvpfog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/park285/fogchess-bot/internal/fogchess"
)

func TestRepositorySaveResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewRepositoryWithDB(db)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := &Game{
		ID:        "fog-1",
		Snapshot:  fogchess.NewEngine().Snapshot(),
		Moves:     []string{"e2e3"},
		WhiteID:   "w",
		WhiteName: "W",
		BlackID:   "b",
		BlackName: "B",
		Status:    StatusResigned,
		Winner:    "w",
		Outcome:   "white",
		CreatedAt: start,
		UpdatedAt: start.Add(90 * time.Second),
	}
	mock.ExpectExec("INSERT INTO fog_games").
		WithArgs("fog-1", "w", "W", "b", "B", "", "", "1-0", MethodResignation, "w",
			`["e2e3"]`, "1. e2e3 1-0", sqlmock.AnyArg(), start, start.Add(90*time.Second), int64(90000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveResult(context.Background(), g, MethodResignation); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepositoryMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS fog_games").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewRepositoryWithDB(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.SaveResult(context.Background(), &Game{}, MethodKingCapture); err != nil {
		t.Fatalf("nil repository should ignore results: %v", err)
	}
}
