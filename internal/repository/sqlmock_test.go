package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fjod/storefront/internal/domain"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, "postgres"), mock
}

func TestCreateOrder_UniqueViolationMapsToDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.CreateOrder(context.Background(), newTestOrder("ORD-X", ""), PlaceOptions{})
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_StockUpdateMissRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE variations SET stock = stock - $1")).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateOrder(context.Background(), newTestOrder("ORD-Y", ""), PlaceOptions{})

	var rule *domain.RuleError
	require.True(t, errors.As(err, &rule))
	assert.Equal(t, "insufficient_stock", rule.Code)
	assert.Contains(t, rule.Message, "Classic Cotton T-Shirt")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_CommitFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	order := newTestOrder("ORD-Z", "")
	order.Items[0].VariationID = nil

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_tracking")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := repo.CreateOrder(context.Background(), order, PlaceOptions{})
	assert.ErrorContains(t, err, "commit tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_UnknownTargetStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	err := repo.UpdateStatus(context.Background(), StatusChange{
		OrderNumber: "ORD-1",
		From:        domain.OrderStatusProcessing,
		To:          domain.OrderStatusPending,
		At:          time.Now(),
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEventAsProcessed_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events SET processed_at")).
		WithArgs(sqlmock.AnyArg(), "evt-1").
		WillReturnError(errors.New("db down"))

	err := repo.MarkEventAsProcessed(context.Background(), "evt-1")
	assert.ErrorContains(t, err, "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}
