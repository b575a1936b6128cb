package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/internal/identity"
	"github.com/threadloom/storefront-backend/internal/users"
	pkgAuth "github.com/threadloom/storefront-backend/pkg/auth"
	"github.com/threadloom/storefront-backend/pkg/config"
	dbpkg "github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller and guest checkout.
type Service interface {
	Login(ctx context.Context, req LoginRequest, guestSession string) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest, guestSession string) (*LoginResponse, error)
	CreateAccount(ctx context.Context, input AccountInput) (*models.User, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type cartMerger interface {
	MergeGuestIntoUser(ctx context.Context, guest, user identity.Identity) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	Carts          cartMerger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users  userRepository
	carts  cartMerger
	jwtCfg config.JWTConfig
	hasher *security.Hasher
	logg   *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &service{
		users:  params.UserRepo,
		carts:  params.Carts,
		jwtCfg: params.JWTConfig,
		hasher: security.NewHasher(params.PasswordConfig),
		logg:   params.Logger,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, guestSession string) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	s.mergeGuestCart(ctx, guestSession, user)
	return s.issue(user, now)
}

func (s *service) Register(ctx context.Context, req RegisterRequest, guestSession string) (*LoginResponse, error) {
	user, err := s.CreateAccount(ctx, AccountInput{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}
	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	s.mergeGuestCart(ctx, guestSession, user)
	return s.issue(user, now)
}

// CreateAccount hashes the password and persists a customer account. A taken
// email yields CONFLICT.
func (s *service) CreateAccount(ctx context.Context, input AccountInput) (*models.User, error) {
	email := users.NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.ValidationField("email", "is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.ValidationField("name", "is required")
	}
	if err := security.ValidatePassword(input.Password); err != nil {
		return nil, pkgerrors.ValidationField("password", err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if !dbpkg.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	verdict, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !verdict.Match || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if verdict.NeedsRehash {
		s.rehash(ctx, user, password)
	}
	return user, nil
}

// rehash upgrades a hash made with older argon2 costs. Failure keeps the old
// hash, which still verifies.
func (s *service) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "password rehash failed", err)
		}
		return
	}
	user.PasswordHash = hash
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}

// mergeGuestCart is best effort: a failed merge leaves the guest cart intact
// and must not block the login.
func (s *service) mergeGuestCart(ctx context.Context, guestSession string, user *models.User) {
	if s.carts == nil || strings.TrimSpace(guestSession) == "" {
		return
	}
	if err := s.carts.MergeGuestIntoUser(ctx, identity.Guest(guestSession), identity.User(user.ID)); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "merge guest cart failed", err)
	}
}

func (s *service) issue(user *models.User, now time.Time) (*LoginResponse, error) {
	role := enums.RoleCustomer
	if user.IsAdmin {
		role = enums.RoleAdmin
	}
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtCfg.TTL()),
		User:        users.FromModel(user),
	}, nil
}
