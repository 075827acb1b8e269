package users

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// InMemoryRepository is a map-backed credential store implementing the full
// Repository contract, including the uniqueness invariants, so service tests
// exercise real failure branches rather than only the happy path.
type InMemoryRepository struct {
	mu         sync.Mutex
	byID       map[string]*models.User
	bcryptCost int
}

func NewInMemoryRepository(bcryptCost int) *InMemoryRepository {
	return &InMemoryRepository{
		byID:       make(map[string]*models.User),
		bcryptCost: bcryptCost,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, email, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == username || (email != "" && u.Email == email) {
			return nil, common.ErrUsernameTaken
		}
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	}
	r.byID[user.ID] = user

	cp := *user
	return &cp, nil
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	// An empty email must not address email-less users.
	if email == "" {
		return nil, common.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return nil, common.ErrNotFound
	}

	for id, u := range r.byID {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return nil, common.ErrUsernameTaken
		}
	}

	existing.Email = user.Email
	existing.Username = user.Username

	cp := *existing
	return &cp, nil
}

func (r *InMemoryRepository) ChangePassword(ctx context.Context, id, newPassword string, alreadyHashed bool) error {
	value := newPassword
	if !alreadyHashed {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.bcryptCost)
		if err != nil {
			return err
		}
		value = string(hash)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = value
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *InMemoryRepository) VerifyPassword(plaintext string, user *models.User) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}
