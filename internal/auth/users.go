package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/storage"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// UserStore persists accounts. Email is the unique key.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[string]*models.User), byEmail: make(map[string]string)}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u *models.User) (string, error) {
	email := strings.ToLower(u.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		return "", ErrDuplicateEmail
	}
	stored := *u
	stored.ID = uuid.New().String()
	stored.Email = email
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.byID[stored.ID] = &stored
	m.byEmail[email] = stored.ID
	return stored.ID, nil
}

func (m *MemoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *MemoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// PostgresUsers relies on the unique index on email; a 23505 from the insert
// maps to ErrDuplicateEmail.
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers { return &PostgresUsers{db: db} }

func (p *PostgresUsers) CreateUser(ctx context.Context, u *models.User) (string, error) {
	id := uuid.New().String()
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, gender, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Gender, u.Phone, createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}
	return id, nil
}

func (p *PostgresUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, name, email, password_hash, gender, phone, created_at FROM users WHERE email = $1`, strings.ToLower(email))
}

func (p *PostgresUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, `SELECT id, name, email, password_hash, gender, phone, created_at FROM users WHERE id = $1`, id)
}

func (p *PostgresUsers) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Gender, &u.Phone, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorage, err)
	}
	return &u, nil
}
