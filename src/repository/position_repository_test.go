package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestPositionRepositoryFindOpenByModel(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewPositionRepositoryWithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "model_id", "symbol", "side", "quantity", "avg_price", "leverage"}).
		AddRow(1, 7, "BTCUSDT", "LONG", 1.0, 100.0, 10).
		AddRow(2, 7, "ETHUSDT", "SHORT", -2.0, 2000.0, 10)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE model_id = $1 AND quantity <> 0 ORDER BY id ASC`)).
		WithArgs(uint(7)).
		WillReturnRows(rows)

	positions, err := repo.FindOpenByModel(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}
	if positions[0].Symbol != "BTCUSDT" || positions[1].Side != "SHORT" {
		t.Fatalf("unexpected positions: %+v", positions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryFindByModelAndSymbol(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewPositionRepositoryWithDB(mockDB)

	rows := sqlmock.NewRows([]string{"id", "model_id", "symbol", "side", "quantity", "avg_price", "leverage"}).
		AddRow(3, 7, "BTCUSDT", "LONG", 1.0, 100.0, 10)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE model_id = $1 AND symbol = $2 AND quantity <> 0 ORDER BY "positions"."id" LIMIT $3`)).
		WithArgs(uint(7), "BTCUSDT", 1).
		WillReturnRows(rows)

	position, err := repo.FindByModelAndSymbol(context.Background(), 7, "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if position == nil || position.ID != 3 {
		t.Fatalf("unexpected position: %+v", position)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryFindByModelAndSymbolNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewPositionRepositoryWithDB(mockDB)

	empty := sqlmock.NewRows([]string{"id", "model_id", "symbol", "side", "quantity", "avg_price", "leverage"})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE model_id = $1 AND symbol = $2 AND quantity <> 0 ORDER BY "positions"."id" LIMIT $3`)).
		WithArgs(uint(7), "DOGEUSDT", 1).
		WillReturnRows(empty)

	position, err := repo.FindByModelAndSymbol(context.Background(), 7, "DOGEUSDT")
	if err != nil {
		t.Fatalf("not-found must map to (nil, nil), got error: %v", err)
	}
	if position != nil {
		t.Fatalf("expected nil position, got %+v", position)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryDeleteByID(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewPositionRepositoryWithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "positions" WHERE "positions"."id" = $1`)).
		WithArgs(uint(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.DeleteByID(context.Background(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
