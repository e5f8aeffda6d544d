package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/models"
)

// MemoryRepository keeps users in process memory. It is used when no
// database is configured and by service tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*models.User
	byEmail map[string]int64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	if !common.ValidRole(user.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, user.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrConflict
	}
	r.insertLocked(user)
	return clone(user), nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) Ensure(_ context.Context, user *models.User) (*models.User, error) {
	if !common.ValidRole(user.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, user.Role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[user.Email]; ok {
		return clone(r.byID[id]), nil
	}
	r.insertLocked(user)
	return clone(user), nil
}

// insertLocked assigns id and creation time and stores a private copy.
func (r *MemoryRepository) insertLocked(user *models.User) {
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = r.now().UTC()
	r.byID[user.ID] = clone(user)
	r.byEmail[user.Email] = user.ID
}

func clone(u *models.User) *models.User {
	c := *u
	if u.PasswordSig != nil {
		sig := *u.PasswordSig
		c.PasswordSig = &sig
	}
	return &c
}
