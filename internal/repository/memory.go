package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sweet_shop/internal/model"

	"github.com/google/uuid"
)

// memoryStore keeps every collection behind one lock so each repository call is
// atomic, including the conditional decrement.
type memoryStore struct {
	mu         sync.RWMutex
	users      map[string]model.User
	sweets     map[string]model.Sweet
	categories map[string]model.Category
}

// NewMemoryRepositories returns repositories backed by process memory. Used for
// STORAGE=memory and in tests.
func NewMemoryRepositories() Repositories {
	store := &memoryStore{
		users:      make(map[string]model.User),
		sweets:     make(map[string]model.Sweet),
		categories: make(map[string]model.Category),
	}
	return Repositories{
		Users:      &memoryUserRepository{store},
		Sweets:     &memorySweetRepository{store},
		Categories: &memoryCategoryRepository{store},
	}
}

// --- users ---

type memoryUserRepository struct{ s *memoryStore }

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) find(match func(model.User) bool) *model.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found
		}
	}
	return nil
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username }), nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email }), nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepository) SetRole(_ context.Context, username, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if u.Username == username {
			u.Role = role
			r.s.users[id] = u
			return nil
		}
	}
	return ErrNotFound
}

// --- sweets ---

type memorySweetRepository struct{ s *memoryStore }

func (r *memorySweetRepository) nameTaken(name, exceptID string) bool {
	for id, sw := range r.s.sweets {
		if sw.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func (r *memorySweetRepository) Create(_ context.Context, sweet *model.Sweet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(sweet.Name, "") {
		return ErrDuplicate
	}
	if sweet.ID == "" {
		sweet.ID = uuid.NewString()
	}
	r.s.sweets[sweet.ID] = *sweet
	return nil
}

func (r *memorySweetRepository) FindByID(_ context.Context, id string) (*model.Sweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sw, ok := r.s.sweets[id]
	if !ok {
		return nil, nil
	}
	return &sw, nil
}

func (r *memorySweetRepository) FindByName(_ context.Context, name string) (*model.Sweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sw := range r.s.sweets {
		if sw.Name == name {
			found := sw
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memorySweetRepository) collect(match func(model.Sweet) bool) []model.Sweet {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sweets := []model.Sweet{}
	for _, sw := range r.s.sweets {
		if match(sw) {
			sweets = append(sweets, sw)
		}
	}
	sort.Slice(sweets, func(i, j int) bool { return sweets[i].Name < sweets[j].Name })
	return sweets
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (r *memorySweetRepository) FindAll(_ context.Context, f model.SweetFilters) ([]model.Sweet, error) {
	return r.collect(func(sw model.Sweet) bool {
		if f.Name != nil && *f.Name != "" && !containsFold(sw.Name, *f.Name) {
			return false
		}
		if f.Category != nil && *f.Category != "" && !containsFold(sw.Category, *f.Category) {
			return false
		}
		if f.PriceMin != nil && sw.Price < *f.PriceMin {
			return false
		}
		if f.PriceMax != nil && sw.Price > *f.PriceMax {
			return false
		}
		return true
	}), nil
}

func (r *memorySweetRepository) FindByCategory(_ context.Context, category string) ([]model.Sweet, error) {
	return r.collect(func(sw model.Sweet) bool { return sw.Category == category }), nil
}

func (r *memorySweetRepository) CountByCategory(ctx context.Context, category string) (int, error) {
	sweets, _ := r.FindByCategory(ctx, category)
	return len(sweets), nil
}

func (r *memorySweetRepository) Update(_ context.Context, id string, patch model.UpdateSweetRequest, at time.Time) (*model.Sweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sw, ok := r.s.sweets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		if r.nameTaken(*patch.Name, id) {
			return nil, ErrDuplicate
		}
		sw.Name = *patch.Name
	}
	if patch.Category != nil {
		sw.Category = *patch.Category
	}
	if patch.Price != nil {
		sw.Price = *patch.Price
	}
	if patch.Quantity != nil {
		sw.Quantity = *patch.Quantity
	}
	sw.UpdatedAt = at
	r.s.sweets[id] = sw
	return &sw, nil
}

func (r *memorySweetRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sweets[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.sweets, id)
	return nil
}

func (r *memorySweetRepository) DecrementQuantity(_ context.Context, id string, n int, at time.Time) (*model.Sweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sw, ok := r.s.sweets[id]
	if !ok {
		return nil, nil
	}
	if sw.Quantity < n {
		return nil, ErrInsufficientQuantity
	}
	sw.Quantity -= n
	sw.UpdatedAt = at
	r.s.sweets[id] = sw
	return &sw, nil
}

func (r *memorySweetRepository) IncrementQuantity(_ context.Context, id string, n int, at time.Time) (*model.Sweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sw, ok := r.s.sweets[id]
	if !ok {
		return nil, nil
	}
	sw.Quantity += n
	sw.UpdatedAt = at
	r.s.sweets[id] = sw
	return &sw, nil
}

// --- categories ---

type memoryCategoryRepository struct{ s *memoryStore }

func (r *memoryCategoryRepository) nameTaken(name, exceptID string) bool {
	for id, c := range r.s.categories {
		if c.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func (r *memoryCategoryRepository) Create(_ context.Context, category *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(category.Name, "") {
		return ErrDuplicate
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r *memoryCategoryRepository) FindByID(_ context.Context, id string) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memoryCategoryRepository) FindByName(_ context.Context, name string) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Name == name {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryCategoryRepository) FindAll(_ context.Context, activeOnly bool) ([]model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	categories := []model.Category{}
	for _, c := range r.s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *memoryCategoryRepository) Update(_ context.Context, id string, patch model.UpdateCategoryRequest) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		if r.nameTaken(*patch.Name, id) {
			return nil, ErrDuplicate
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	r.s.categories[id] = c
	return &c, nil
}

func (r *memoryCategoryRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}
