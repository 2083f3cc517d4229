package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 5, 4, 12, 30, 0, 0, time.UTC)

var userRowColumns = []string{"id", "email", "name", "password_hash", "role", "lrn_id", "created_at", "updated_at"}

// setupUserTestRepository creates a user repository with a mock database
func setupUserTestRepository(t *testing.T) (*userRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewUserRepository(db, zap.NewNop())
	repo.now = func() time.Time { return fixedNow }

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestNewUserRepository(t *testing.T) {
	logger := zap.NewNop()
	db := &sql.DB{}

	repo := NewUserRepository(db, logger)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, logger, repo.logger)
}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name          string
		user          *models.User
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		expectedID    int
	}{
		{
			name: "success user with lrn id",
			user: &models.User{Email: "user@example.com", Name: "Regular User", PasswordHash: "hash", Role: models.RoleUser, LRNID: "LRN-1"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("user@example.com", "Regular User", "hash", "USER", "LRN-1", fixedNow, fixedNow).
					WillReturnResult(sqlmock.NewResult(5, 1))
			},
			expectedID: 5,
		},
		{
			name: "success category admin without lrn id",
			user: &models.User{Email: "staff@example.com", Name: "Staff Admin", PasswordHash: "hash", Role: models.CategoryAdmin(models.CategoryStaff)},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("staff@example.com", "Staff Admin", "hash", "ADMIN_STAFF", nil, fixedNow, fixedNow).
					WillReturnResult(sqlmock.NewResult(2, 1))
			},
			expectedID: 2,
		},
		{
			name: "duplicate email",
			user: &models.User{Email: "user@example.com", PasswordHash: "hash", Role: models.RoleUser},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'user@example.com' for key 'email'"})
			},
			expectedError: apperrors.ErrInvalidInput,
		},
		{
			name: "database error",
			user: &models.User{Email: "user@example.com", PasswordHash: "hash", Role: models.RoleUser},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: apperrors.ErrStore,
		},
		{
			name: "last insert id error",
			user: &models.User{Email: "user@example.com", PasswordHash: "hash", Role: models.RoleUser},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnResult(sqlmock.NewErrorResult(errors.New("last insert id error")))
			},
			expectedError: apperrors.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), tt.user)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedID, tt.user.ID)
				assert.Equal(t, fixedNow, tt.user.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		expectedRole  models.Role
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(userRowColumns).
					AddRow(3, "facilities@example.com", "Facilities Admin", "hash", "ADMIN_FACILITIES", nil, fixedNow, fixedNow)
				mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \?`).
					WithArgs("facilities@example.com").
					WillReturnRows(rows)
			},
			expectedRole: models.CategoryAdmin(models.CategoryFacilities),
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \?`).
					WithArgs("facilities@example.com").
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: apperrors.ErrNotFound,
		},
		{
			name: "unknown role in row",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(userRowColumns).
					AddRow(3, "facilities@example.com", "x", "hash", "ADMIN_OTHERS", nil, fixedNow, fixedNow)
				mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \?`).
					WithArgs("facilities@example.com").
					WillReturnRows(rows)
			},
			expectedError: apperrors.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			user, err := repo.GetByEmail(context.Background(), "facilities@example.com")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 3, user.ID)
				assert.Equal(t, tt.expectedRole, user.Role)
				assert.Empty(t, user.LRNID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	repo, mock, cleanup := setupUserTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow(4, "user@example.com", "Regular User", "hash", "USER", "LRN-9", fixedNow, fixedNow)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \?`).
		WithArgs(4).
		WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, "LRN-9", user.LRNID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	repo, mock, cleanup := setupUserTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedCount int
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(userRowColumns).
					AddRow(2, "staff@example.com", "Staff", "hash", "ADMIN_STAFF", nil, fixedNow, fixedNow).
					AddRow(1, "admin@example.com", "Admin", "hash", "SUPER_ADMIN", nil, fixedNow, fixedNow)
				mock.ExpectQuery(`SELECT .+ FROM users ORDER BY`).WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "empty",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM users ORDER BY`).WillReturnRows(sqlmock.NewRows(userRowColumns))
			},
			expectedCount: 0,
		},
		{
			name: "query error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM users ORDER BY`).WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			users, err := repo.List(context.Background())

			if tt.expectedError {
				assert.ErrorIs(t, err, apperrors.ErrStore)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, users)
				assert.Len(t, users, tt.expectedCount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Delete(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM users WHERE id = \?`).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM users WHERE id = \?`).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: apperrors.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM users WHERE id = \?`).WithArgs(9).WillReturnError(errors.New("database error"))
			},
			expectedError: apperrors.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupUserTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Delete(context.Background(), 9)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
