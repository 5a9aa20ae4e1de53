package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common credential errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingField       = errors.New("required field is missing")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Mobile   string
	Address  string
	Role     model.Role
}

// UserService owns registration and password checks.
type UserService struct {
	users UserStore
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService creates a new UserService hashing with the given bcrypt cost.
func NewUserService(users UserStore, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{users: users, cost: bcryptCost}
}

// Register creates a student account.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	return s.Create(ctx, NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Address:  req.Address,
		Role:     model.RoleStudent,
	})
}

// Create hashes the password and stores a user. Emails are stored lower-cased.
// Returns repository.ErrDuplicateEmail when the email is taken.
func (s *UserService) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	name := strings.TrimSpace(nu.Name)
	email := normalizeEmail(nu.Email)
	if name == "" || email == "" || nu.Password == "" {
		return nil, ErrMissingField
	}
	if len(nu.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if hasNUL(name, email, nu.Mobile, nu.Address) {
		return nil, ErrInvalidText
	}
	if nu.Role != model.RoleAdmin {
		nu.Role = model.RoleStudent
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		Mobile:       strings.TrimSpace(nu.Mobile),
		Address:      strings.TrimSpace(nu.Address),
		PasswordHash: string(hash),
		Role:         nu.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks an email/password pair for a user of the given role.
// Unknown email, wrong password and wrong role all yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Keep timing close to the wrong-password path.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Role != role {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
