package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type IUserService interface {
	Create(ctx context.Context, username, password string) (User, error)
	Verify(ctx context.Context, username, password string) (User, error)
}

type userService struct {
	db   *sql.DB
	cost int
}

func NewUserService(db *sql.DB, bcryptCost int) IUserService {
	return &userService{db: db, cost: bcryptCost}
}

// Create stores a new user with a bcrypt password hash.
func (svc *userService) Create(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), svc.cost)
	if err != nil {
		return User{}, err
	}

	u := User{Username: username}
	err = svc.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		uuid.NewString(), username, string(hash),
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, err
	}
	return u, nil
}

// Verify returns the user when password matches the stored hash.
func (svc *userService) Verify(ctx context.Context, username, password string) (User, error) {
	var (
		u    = User{Username: strings.TrimSpace(username)}
		hash string
	)
	err := svc.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = $1`, u.Username,
	).Scan(&u.ID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
