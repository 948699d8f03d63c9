package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"sweet_shop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTo[T any](v T) *T { return &v }

var sweetCols = []string{"id", "name", "category", "price", "quantity", "created_at", "updated_at"}

func TestSweetRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()
	s := &model.Sweet{Name: "Gummy Bears", Category: "Gummy", Price: 1.75, Quantity: 150, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sweets")).
		WithArgs(pgxmock.AnyArg(), "Gummy Bears", "Gummy", 1.75, 150, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NotEmpty(t, s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sweets")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	assert.ErrorIs(t, repo.Create(context.Background(), &model.Sweet{Name: "Lollipop"}), ErrDuplicate)
}

func TestSweetRepository_FindByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sweets WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	s, err := repo.FindByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestSweetRepository_FindAll_Filters(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()
	name := "choc_"
	minPrice, maxPrice := 1.0, 3.0

	query := "SELECT " + sweetColumns + " FROM sweets WHERE name ILIKE $1 AND price >= $2 AND price <= $3 ORDER BY name"
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(`%choc\_%`, minPrice, maxPrice).
		WillReturnRows(pgxmock.NewRows(sweetCols).AddRow("s1", "Chocolate Bar", "Chocolate", 2.5, 100, now, now))

	sweets, err := repo.FindAll(context.Background(), model.SweetFilters{Name: &name, PriceMin: &minPrice, PriceMax: &maxPrice})
	require.NoError(t, err)
	require.Len(t, sweets, 1)
	assert.Equal(t, "Chocolate Bar", sweets[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_FindAll_NoFilters(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sweetColumns + " FROM sweets ORDER BY name")).
		WillReturnRows(pgxmock.NewRows(sweetCols))

	sweets, err := repo.FindAll(context.Background(), model.SweetFilters{})
	require.NoError(t, err)
	assert.NotNil(t, sweets)
	assert.Empty(t, sweets)
}

func TestSweetRepository_CountByCategory(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sweets WHERE category = $1")).
		WithArgs("Gummy").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByCategory(context.Background(), "Gummy")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSweetRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets")).
		WillReturnError(pgx.ErrNoRows)

	s, err := repo.Update(context.Background(), "missing", model.UpdateSweetRequest{Price: ptrTo(1.0)}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, s)
}

func TestSweetRepository_Update_OnlyPatchedColumns(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET price = $1, updated_at = $2 WHERE id = $3 RETURNING " + sweetColumns)).
		WithArgs(2.0, now, "s1").
		WillReturnRows(pgxmock.NewRows(sweetCols).AddRow("s1", "Toffee", "Candy", 2.0, 90, now, now))

	s, err := repo.Update(context.Background(), "s1", model.UpdateSweetRequest{Price: ptrTo(2.0)}, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Price)
	assert.Equal(t, 90, s.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_Update_NameAndQuantity(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET name = $1, quantity = $2, updated_at = $3 WHERE id = $4")).
		WithArgs("Fudge", 5, now, "s1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Update(context.Background(), "s1", model.UpdateSweetRequest{Name: ptrTo("Fudge"), Quantity: ptrTo(5)}, now)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sweets WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sweets WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "s1"), ErrNotFound)
}

func TestSweetRepository_DecrementQuantity(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET quantity = quantity - $1")).
		WithArgs(5, now, "s1").
		WillReturnRows(pgxmock.NewRows(sweetCols).AddRow("s1", "Lollipop", "Hard Candy", 0.99, 95, now, now))

	s, err := repo.DecrementQuantity(context.Background(), "s1", 5, now)
	require.NoError(t, err)
	assert.Equal(t, 95, s.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_DecrementQuantity_Insufficient(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET quantity = quantity - $1")).
		WithArgs(500, now, "s1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM sweets WHERE id = $1)")).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	s, err := repo.DecrementQuantity(context.Background(), "s1", 500, now)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweetRepository_DecrementQuantity_Unknown(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET quantity = quantity - $1")).
		WithArgs(1, now, "missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM sweets WHERE id = $1)")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	s, err := repo.DecrementQuantity(context.Background(), "missing", 1, now)
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestSweetRepository_IncrementQuantity(t *testing.T) {
	mock := newMock(t)
	repo := NewSweetRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET quantity = quantity + $1")).
		WithArgs(50, now, "s1").
		WillReturnRows(pgxmock.NewRows(sweetCols).AddRow("s1", "Lollipop", "Hard Candy", 0.99, 150, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sweets SET quantity = quantity + $1")).
		WithArgs(50, now, "missing").
		WillReturnError(pgx.ErrNoRows)

	s, err := repo.IncrementQuantity(context.Background(), "s1", 50, now)
	require.NoError(t, err)
	assert.Equal(t, 150, s.Quantity)

	s, err = repo.IncrementQuantity(context.Background(), "missing", 50, now)
	assert.NoError(t, err)
	assert.Nil(t, s)
}
