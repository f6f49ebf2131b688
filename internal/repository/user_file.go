package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

// FileUserRepository stores accounts in a single JSON document, for the
// file storage backend where no database is configured.
type FileUserRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileUserRepository ensures the data directory exists and returns the
// adapter.
func NewFileUserRepository(dataDir string) (*FileUserRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create users data directory: %w", err)
	}
	return &FileUserRepository{path: filepath.Join(dataDir, "users.json")}, nil
}

// FindByEmail returns a user by email address.
func (r *FileUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.read()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(email)
	for _, user := range users {
		if user.Email == needle {
			found := user
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByID returns a user by identifier.
func (r *FileUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.ID == id {
			found := user
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

// Create appends a new user, normalising the email to lowercase.
func (r *FileUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, err := r.read()
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = strings.ToLower(user.Email)
	users = append(users, *user)
	return r.write(users)
}

func (r *FileUserRepository) read() ([]models.User, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.User{}, nil
		}
		return nil, fmt.Errorf("read users: %w", err)
	}
	var users []models.User
	if err := json.Unmarshal(content, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *FileUserRepository) write(users []models.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}
