package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/bcards/internal/apperr"
	"github.com/atinyakov/bcards/internal/cache"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/atinyakov/bcards/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the persistence operations required by UserService.
// Lookups by id return apperr.ErrRecordNotFound when no user matches.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// InsertUser returns apperr.ErrDuplicateKey when the email is registered.
	InsertUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*models.User, error)
	SetBusiness(ctx context.Context, id string, isBusiness bool) (*models.User, error)
}

// UserService implements the user directory.
type UserService struct {
	repo  UserRepository
	cache *cache.Summaries
	log   *zap.Logger
	cost  int
	now   func() time.Time
	newID func() string
}

// UserOption configures a UserService.
type UserOption func(*UserService)

// WithUserLogger sets the logger.
func WithUserLogger(l *zap.Logger) UserOption {
	return func(s *UserService) { s.log = l }
}

// WithSummaryCache sets the owner summary cache to evict on profile changes.
func WithSummaryCache(c *cache.Summaries) UserOption {
	return func(s *UserService) { s.cache = c }
}

// WithHashCost sets the bcrypt cost.
func WithHashCost(cost int) UserOption {
	return func(s *UserService) { s.cost = cost }
}

// NewUserService constructs a UserService.
func NewUserService(repo UserRepository, opts ...UserOption) *UserService {
	s := &UserService{
		repo:  repo,
		log:   zap.NewNop(),
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every user; admins only.
func (s *UserService) List(ctx context.Context, id models.Identity) ([]models.User, error) {
	if err := policy.Check(id, policy.ListUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return nonNil(users), nil
}

// Get returns a user to an admin or to the user itself.
func (s *UserService) Get(ctx context.Context, id models.Identity, userID string) (*models.User, error) {
	if err := policy.Check(id, policy.ReadUser, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	return s.fetch(ctx, userID)
}

// Create registers a new user. Anyone may register.
func (s *UserService) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := in.NewUser()
	u.ID = s.newID()
	u.PasswordHash = hash
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now

	if err := s.repo.InsertUser(ctx, &u); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			return nil, apperr.Conflict("user already registered", err)
		}
		s.log.Error("failed to save user", zap.Error(err))
		return nil, apperr.Internal("error saving the user", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.Bool("is_business", u.IsBusiness))
	return &u, nil
}

// Update edits the caller's own profile.
func (s *UserService) Update(ctx context.Context, id models.Identity, userID string, patch models.UserPatch) (*models.User, error) {
	if err := policy.Check(id, policy.UpdateUser, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	if errs := patch.Validate(); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}
	u, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	patch.Apply(u)
	if patch.Password != nil {
		if u.PasswordHash, err = s.hash(*patch.Password); err != nil {
			return nil, err
		}
	}
	u.UpdatedAt = s.now()

	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		return nil, s.storeErr("update", userID, err)
	}
	s.cache.Delete(userID)
	return updated, nil
}

// Delete removes a user; allowed to admins and to the user itself.
func (s *UserService) Delete(ctx context.Context, id models.Identity, userID string) (*models.User, error) {
	if err := policy.Check(id, policy.DeleteUser, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, invalidUserID(userID)
	}
	deleted, err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		return nil, s.storeErr("delete", userID, err)
	}
	s.cache.Delete(userID)
	s.log.Info("user deleted", zap.String("user_id", userID), zap.String("by", id.ID))
	return deleted, nil
}

// SetBusiness changes the caller's own business flag. A nil flag is a
// validation failure reported after authorization.
func (s *UserService) SetBusiness(ctx context.Context, id models.Identity, userID string, isBusiness *bool) (*models.User, error) {
	if err := policy.Check(id, policy.SetBusiness, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, invalidUserID(userID)
	}
	if isBusiness == nil {
		return nil, apperr.Validation(`"isBusiness" is required`)
	}
	u, err := s.repo.SetBusiness(ctx, userID, *isBusiness)
	if err != nil {
		return nil, s.storeErr("update", userID, err)
	}
	return u, nil
}

func (s *UserService) fetch(ctx context.Context, userID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, invalidUserID(userID)
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, s.storeErr("get", userID, err)
	}
	return u, nil
}

func (s *UserService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Internal("failed to hash password", err)
	}
	return string(b), nil
}

func (s *UserService) storeErr(op, userID string, err error) error {
	if errors.Is(err, apperr.ErrRecordNotFound) {
		return apperr.NotFound(fmt.Sprintf("user id '%s' not found", userID))
	}
	s.log.Error("user store failure", zap.String("op", op), zap.String("user_id", userID), zap.Error(err))
	return apperr.Internal("failed to "+op+" user", err)
}

func invalidUserID(id string) error {
	return apperr.NotFound(fmt.Sprintf("invalid format for user id '%s'", id))
}
