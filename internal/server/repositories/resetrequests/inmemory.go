package resetrequests

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// InMemoryRepository is a map-backed ledger implementing the full Repository
// contract, including the active-window and uniqueness invariants.
type InMemoryRepository struct {
	mu         sync.Mutex
	byEmail    map[string]*models.PasswordResetRequest
	bcryptCost int
	ttl        time.Duration
	now        func() time.Time
}

func NewInMemoryRepository(bcryptCost int, ttl time.Duration, now func() time.Time) *InMemoryRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryRepository{
		byEmail:    make(map[string]*models.PasswordResetRequest),
		bcryptCost: bcryptCost,
		ttl:        ttl,
		now:        now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, email, newPassword string) (*models.PasswordResetRequest, string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	token, err := common.MakeRandHexString(confirmationTokenBytes)
	if err != nil {
		return nil, "", err
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), r.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byEmail[email]; ok {
		if r.active(existing) {
			return nil, "", common.ErrRequestAlreadyExists
		}
		delete(r.byEmail, email)
	}

	request := &models.PasswordResetRequest{
		ID:              uuid.NewString(),
		Email:           email,
		NewPasswordHash: string(passwordHash),
		TokenHash:       string(tokenHash),
		CreatedAt:       r.now(),
	}
	r.byEmail[email] = request

	cp := *request
	return &cp, token, nil
}

func (r *InMemoryRepository) GetActive(ctx context.Context, email string) (*models.PasswordResetRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.byEmail[email]
	if !ok || !r.active(request) {
		return nil, common.ErrNotFound
	}

	cp := *request
	return &cp, nil
}

func (r *InMemoryRepository) Confirm(candidateToken string, request *models.PasswordResetRequest) bool {
	return bcrypt.CompareHashAndPassword([]byte(request.TokenHash), []byte(candidateToken)) == nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byEmail, email)
	return nil
}

func (r *InMemoryRepository) active(request *models.PasswordResetRequest) bool {
	return r.now().Sub(request.CreatedAt) < r.ttl
}
