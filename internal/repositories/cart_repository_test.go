package repository_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository(t *testing.T) {
	userID := uuid.New()
	cartID := uuid.New()
	now := time.Now().UTC()

	line := models.CartLine{ProductID: uuid.New(), VariantID: "red-xl", UnitPrice: 300000, Quantity: 2}
	items := map[string]models.CartLine{line.Key(): line}

	itemsJSON, err := json.Marshal(items)
	require.NoError(t, err)

	t.Run("CreateCart", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewCartRepo(db)

		cart := &models.Cart{ID: cartID, UserID: userID, Items: items, Total: 600000}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO carts`)).
			WithArgs(cartID, userID, itemsJSON, int64(600000)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(cartID, now, now))

		require.NoError(t, repo.CreateCart(t.Context(), cart))
		assert.Equal(t, now, cart.CreatedAt)
	})

	t.Run("CreateCart for a buyer who already has one", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := repository.NewCartRepo(db)

		cart := &models.Cart{ID: uuid.New(), UserID: userID, Items: items, Total: 600000}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO carts`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "carts_user_id_key"})

		assert.ErrorIs(t, repo.CreateCart(t.Context(), cart), repository.ErrDuplicate)
	})

	t.Run("GetCartByCustomerID", func(t *testing.T) {
		selectSQL := regexp.QuoteMeta(`FROM carts WHERE user_id = $1`)
		columns := []string{"id", "user_id", "items", "total", "created_at", "updated_at"}

		t.Run("Success", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(selectSQL).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID, userID, itemsJSON, int64(600000), now, now))

			cart, err := repo.GetCartByCustomerID(t.Context(), userID)

			require.NoError(t, err)
			assert.Equal(t, cartID, cart.ID)
			assert.Equal(t, items, cart.Items)
			assert.Equal(t, int64(600000), cart.Total)
		})

		t.Run("Empty items column", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(selectSQL).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID, userID, []byte(`null`), int64(0), now, now))

			cart, err := repo.GetCartByCustomerID(t.Context(), userID)

			require.NoError(t, err)
			assert.NotNil(t, cart.Items)
			assert.Empty(t, cart.Items)
		})

		t.Run("Not found", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(selectSQL).WithArgs(userID).WillReturnError(sql.ErrNoRows)

			cart, err := repo.GetCartByCustomerID(t.Context(), userID)

			assert.Nil(t, cart)
			assert.ErrorIs(t, err, sql.ErrNoRows)
		})

		t.Run("Corrupt items", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(selectSQL).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID, userID, []byte(`[1,2`), int64(0), now, now))

			_, err := repo.GetCartByCustomerID(t.Context(), userID)

			assert.ErrorContains(t, err, "decoding cart lines")
		})
	})

	t.Run("GetCartForUpdate locks the row", func(t *testing.T) {
		columns := []string{"id", "user_id", "items", "total", "created_at", "updated_at"}

		t.Run("Success", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(regexp.QuoteMeta(`FROM carts WHERE user_id = $1 FOR UPDATE`)).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID, userID, itemsJSON, int64(600000), now, now))

			cart, err := repo.GetCartForUpdate(t.Context(), userID)

			require.NoError(t, err)
			assert.Equal(t, items, cart.Items)
		})

		t.Run("Plain read does not lock", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(regexp.QuoteMeta(`FROM carts WHERE user_id = $1`) + `$`).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID, userID, itemsJSON, int64(600000), now, now))

			_, err := repo.GetCartByCustomerID(t.Context(), userID)

			require.NoError(t, err)
		})

		t.Run("Not found", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(userID).WillReturnError(sql.ErrNoRows)

			_, err := repo.GetCartForUpdate(t.Context(), userID)

			assert.ErrorIs(t, err, sql.ErrNoRows)
		})
	})

	t.Run("UpdateCart", func(t *testing.T) {
		updateSQL := regexp.QuoteMeta(`UPDATE carts SET items = $1, total = $2, updated_at = $3 WHERE id = $4`)
		cart := &models.Cart{ID: cartID, UserID: userID, Items: items, Total: 600000, UpdatedAt: now}

		t.Run("Success", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectExec(updateSQL).WithArgs(itemsJSON, int64(600000), now, cartID).WillReturnResult(sqlmock.NewResult(0, 1))

			assert.NoError(t, repo.UpdateCart(t.Context(), cart))
		})

		t.Run("No rows affected", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)

			mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))

			assert.ErrorIs(t, repo.UpdateCart(t.Context(), cart), sql.ErrNoRows)
		})

		t.Run("Database error", func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := repository.NewCartRepo(db)
			dbErr := errors.New("disk full")

			mock.ExpectExec(updateSQL).WillReturnError(dbErr)

			assert.ErrorIs(t, repo.UpdateCart(t.Context(), cart), dbErr)
		})
	})
}
