package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"calshare/internal/domain"
	"calshare/internal/storage"
)

// UserService handles registration, the placeholder login scheme, and
// profile/admin mutations.
type UserService struct {
	storage *storage.Storage
}

func NewUserService(s *storage.Storage) *UserService {
	return &UserService{storage: s}
}

// requireActor rejects requests with no resolvable active actor. An
// inactive account is treated the same as no account at all.
func requireActor(actor *domain.User) error {
	if actor == nil || !actor.IsActive {
		return domain.ErrUnauthenticated
	}
	return nil
}

type UserCreate struct {
	Email     string
	FullName  string
	AvatarURL string
}

func (s *UserService) Register(input UserCreate) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("email %q: %w", input.Email, domain.ErrInvalid)
	}

	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		FullName:  input.FullName,
		AvatarURL: input.AvatarURL,
		IsActive:  true,
		Role:      domain.RoleUser,
	}
	if err := s.storage.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login resolves an email to the bearer token the HTTP layer hands out.
// The token is the bare user id with no integrity protection, a
// placeholder inherited from the existing deployment rather than a
// credential scheme. It must be replaced before any exposed deployment.
func (s *UserService) Login(email string) (string, error) {
	user, err := s.storage.GetUserByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive {
		return "", domain.ErrUnauthenticated
	}
	return user.ID.String(), nil
}

// Authenticate resolves a bearer token back to its user. Unknown tokens,
// malformed tokens and inactive accounts all fail identically.
func (s *UserService) Authenticate(token string) (*domain.User, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.storage.GetUser(id)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

func (s *UserService) Get(actor *domain.User, id uuid.UUID) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	user, err := s.storage.GetUser(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

type UserUpdate struct {
	FullName  *string
	AvatarURL *string
}

// Update changes a profile. Users may edit themselves; admins may edit
// anyone.
func (s *UserService) Update(actor *domain.User, id uuid.UUID, input UserUpdate) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanActFor(id) {
		return nil, domain.ErrForbidden
	}
	user, err := s.storage.GetUser(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}
	if err := s.storage.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate is admin-only. A deactivated user can no longer
// authenticate.
func (s *UserService) Deactivate(actor *domain.User, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	user, err := s.storage.GetUser(id)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return s.storage.SetUserActive(id, false)
}

// SetRole is admin-only.
func (s *UserService) SetRole(actor *domain.User, id uuid.UUID, role domain.UserRole) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, domain.ErrInvalid)
	}
	user, err := s.storage.GetUser(id)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return s.storage.SetUserRole(id, role)
}
