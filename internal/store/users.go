package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// User is a row of the users table. Password is the bcrypt hash and may be NULL.
type User struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Password  sql.NullString `db:"password" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

const userColumns = `id, name, email, password, created_at, updated_at`

// UserStore reads and writes users. It implements sessiongate.UserProvider.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore returns a UserStore on db.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

var _ sessiongate.UserProvider = (*UserStore)(nil)

// Create inserts a user with a fresh UUID. A duplicate email returns ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`INSERT INTO users (id, name, email, password) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		uuid.NewString(), name, email, sql.NullString{String: passwordHash, Valid: passwordHash != ""},
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindByEmail returns the user with email, or ErrNotFound.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID returns the user with id, or ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) findOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// SetPassword replaces the stored hash.
func (s *UserStore) SetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (u User) record() sessiongate.UserRecord {
	return sessiongate.UserRecord{
		UserID:       u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.Password.String,
	}
}

func providerError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return sessiongate.ErrUserNotFound
	}
	return err
}

// GetUserByEmail implements sessiongate.UserProvider.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (sessiongate.UserRecord, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return sessiongate.UserRecord{}, providerError(err)
	}
	return u.record(), nil
}

// GetUserByID implements sessiongate.UserProvider.
func (s *UserStore) GetUserByID(ctx context.Context, userID string) (sessiongate.UserRecord, error) {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return sessiongate.UserRecord{}, providerError(err)
	}
	return u.record(), nil
}

// CreateUser implements sessiongate.UserProvider.
func (s *UserStore) CreateUser(ctx context.Context, in sessiongate.CreateUserInput) (sessiongate.UserRecord, error) {
	u, err := s.Create(ctx, in.Name, in.Email, in.PasswordHash)
	if err != nil {
		return sessiongate.UserRecord{}, err
	}
	return u.record(), nil
}

// UpdatePasswordHash implements sessiongate.UserProvider.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	return providerError(s.SetPassword(ctx, userID, newHash))
}
