package user

import (
	"context"
	"errors"
	"time"

	"iam/domain/shared"
	"iam/domain/user"
	"iam/infrastructure/persistence"
	"iam/infrastructure/persistence/retry"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

var ErrInvalidCurrentPassword = errors.New("current password is incorrect")

// PasswordHasher turns plaintext into a stored hash and checks it back.
// Verify returns nil only on a match.
type PasswordHasher interface {
	Hash(plaintext string) (user.PasswordHash, error)
	Verify(hash user.PasswordHash, plaintext string) error
}

// ApplicationService User application service
type ApplicationService struct {
	repo          user.Repository
	views         user.ViewRepository
	domainService *user.DomainService
	hasher        PasswordHasher
	retry         retry.Config
	clock         func() time.Time
}

func NewApplicationService(
	repo user.Repository,
	views user.ViewRepository,
	hasher PasswordHasher,
	retryCfg retry.Config,
) *ApplicationService {
	return &ApplicationService{
		repo:          repo,
		views:         views,
		domainService: user.NewDomainService(views),
		hasher:        hasher,
		retry:         retryCfg,
		clock:         time.Now,
	}
}

// ============================================================================
// DTO Definitions
// ============================================================================

type ProfileRequest struct {
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

type PreferencesRequest struct {
	Language           string `json:"language" binding:"required"`
	Timezone           string `json:"timezone" binding:"required"`
	Theme              string `json:"theme" binding:"required"`
	EmailNotifications bool   `json:"email_notifications"`
}

// RegisterUserRequest Preferences default to en / UTC / system when nil.
type RegisterUserRequest struct {
	TenantID    string              `json:"tenant_id" binding:"required"`
	PlatformID  string              `json:"platform_id,omitempty"`
	Email       string              `json:"email" binding:"required,email"`
	Password    string              `json:"password" binding:"required"`
	Profile     ProfileRequest      `json:"profile"`
	Preferences *PreferencesRequest `json:"preferences,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type ListUsersQuery struct {
	Status string `form:"status"`
	Email  string `form:"email"`
}

// UserResponse User response DTO. It never carries the password hash.
type UserResponse struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenant_id"`
	PlatformID  string             `json:"platform_id,omitempty"`
	Email       string             `json:"email"`
	Profile     ProfileRequest     `json:"profile"`
	Preferences PreferencesRequest `json:"preferences"`
	Status      string             `json:"status"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Version     int                `json:"version"`
}

// ============================================================================
// Commands
// ============================================================================

func (s *ApplicationService) RegisterUser(ctx context.Context, actorID string, req RegisterUserRequest) (*UserResponse, error) {
	tenantID, err := shared.NewTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}
	ctx = persistence.ContextWithTenantID(ctx, tenantID.String())

	var platformID shared.PlatformID
	if req.PlatformID != "" {
		if platformID, err = shared.NewPlatformID(req.PlatformID); err != nil {
			return nil, err
		}
	}
	email, err := user.NewEmail(req.Email)
	if err != nil {
		return nil, err
	}
	profile, err := toProfile(req.Profile)
	if err != nil {
		return nil, err
	}
	preferences := user.DefaultPreferences()
	if req.Preferences != nil {
		if preferences, err = toPreferences(*req.Preferences); err != nil {
			return nil, err
		}
	}

	if err := s.domainService.EnsureEmailAvailable(ctx, tenantID, email, user.UserID{}); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, shared.NewValidationError("user", "password", err.Error())
	}

	agg := user.NewAggregate().WithClock(s.clock)
	err = agg.RegisterUser(user.RegisterUserParams{
		ID:           user.GenerateUserID(),
		Email:        email,
		PasswordHash: hash,
		Profile:      profile,
		Preferences:  preferences,
		TenantID:     tenantID,
		PlatformID:   platformID,
		CreatedBy:    actorID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, agg); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("User registered", zap.String("user_id", agg.ID()))
	return toUserResponse(agg), nil
}

func (s *ApplicationService) UpdateProfile(ctx context.Context, tenantID, userID string, req ProfileRequest) (*UserResponse, error) {
	profile, err := toProfile(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, tenantID, userID, "update_profile", func(agg *user.Aggregate) error {
		return agg.UpdateProfile(profile)
	})
}

func (s *ApplicationService) UpdatePreferences(ctx context.Context, tenantID, userID string, req PreferencesRequest) (*UserResponse, error) {
	preferences, err := toPreferences(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, tenantID, userID, "update_preferences", func(agg *user.Aggregate) error {
		return agg.UpdatePreferences(preferences)
	})
}

// ChangePassword verifies CurrentPassword against the stored hash before
// storing a hash of NewPassword.
func (s *ApplicationService) ChangePassword(ctx context.Context, tenantID, userID string, req ChangePasswordRequest) error {
	if req.NewPassword == "" {
		return shared.NewValidationError("user", "new_password", "new password is required")
	}
	_, err := s.execute(ctx, tenantID, userID, "change_password", func(agg *user.Aggregate) error {
		if err := s.hasher.Verify(agg.PasswordHash(), req.CurrentPassword); err != nil {
			return shared.NewDomainError(shared.ErrForbidden, ErrInvalidCurrentPassword, "user", "current_password",
				"current password is incorrect")
		}
		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return shared.NewValidationError("user", "new_password", err.Error())
		}
		return agg.ChangePassword(hash)
	})
	return err
}

func (s *ApplicationService) ActivateUser(ctx context.Context, tenantID, userID string) (*UserResponse, error) {
	return s.execute(ctx, tenantID, userID, "activate", (*user.Aggregate).ActivateUser)
}

func (s *ApplicationService) DeactivateUser(ctx context.Context, tenantID, userID string) (*UserResponse, error) {
	return s.execute(ctx, tenantID, userID, "deactivate", (*user.Aggregate).DeactivateUser)
}

func (s *ApplicationService) SuspendUser(ctx context.Context, tenantID, userID string) (*UserResponse, error) {
	return s.execute(ctx, tenantID, userID, "suspend", (*user.Aggregate).SuspendUser)
}

func (s *ApplicationService) DeleteUser(ctx context.Context, tenantID, userID string) (*UserResponse, error) {
	return s.execute(ctx, tenantID, userID, "delete", (*user.Aggregate).DeleteUser)
}

func (s *ApplicationService) execute(ctx context.Context, rawTenantID, rawUserID, operation string, command func(*user.Aggregate) error) (*UserResponse, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	userID, err := user.NewUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	ctx = persistence.ContextWithTenantID(ctx, tenantID.String())

	var saved *user.Aggregate
	err = retry.ExecuteWithRetry(ctx, s.retry, func(ctx context.Context) error {
		agg, err := s.repo.Load(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		agg.WithClock(s.clock)
		if err := command(agg); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, agg); err != nil {
			return err
		}
		saved = agg
		return nil
	})
	if err != nil {
		logger.Ctx(ctx).Warn("User command failed",
			zap.String("operation", operation),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	logger.Ctx(ctx).Info("User command applied",
		zap.String("operation", operation),
		zap.String("user_id", userID.String()),
		zap.Int("version", saved.Version()),
	)
	return toUserResponse(saved), nil
}

// ============================================================================
// Queries
// ============================================================================

func (s *ApplicationService) GetUser(ctx context.Context, rawTenantID, rawUserID string) (*UserResponse, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	userID, err := user.NewUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.Load(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(agg), nil
}

// ListUsers reads the tenant's user views. Deleted users are hidden unless
// Status asks for them.
func (s *ApplicationService) ListUsers(ctx context.Context, rawTenantID string, q ListUsersQuery) ([]*user.View, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	spec := user.ByTenant(tenantID)
	if q.Status != "" {
		status, err := user.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		spec = shared.And(spec, user.ByStatus(status))
	} else {
		spec = shared.And(spec, shared.Not(user.ByStatus(user.StatusDeleted)))
	}
	if q.Email != "" {
		email, err := user.NewEmail(q.Email)
		if err != nil {
			return nil, err
		}
		spec = shared.And(spec, user.ByEmail(email))
	}
	return s.views.FindBySpecification(ctx, spec)
}

func toProfile(r ProfileRequest) (user.Profile, error) {
	return user.NewProfile(user.ProfileData{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Avatar:      r.Avatar,
	})
}

func toPreferences(r PreferencesRequest) (user.Preferences, error) {
	return user.NewPreferences(user.PreferencesData{
		Language:           r.Language,
		Timezone:           r.Timezone,
		Theme:              r.Theme,
		EmailNotifications: r.EmailNotifications,
	})
}

func toUserResponse(a *user.Aggregate) *UserResponse {
	profile := a.Profile()
	prefs := a.Preferences()
	return &UserResponse{
		ID:         a.ID(),
		TenantID:   a.TenantID().String(),
		PlatformID: a.PlatformID().String(),
		Email:      a.Email().Value(),
		Profile: ProfileRequest{
			FirstName:   profile.FirstName(),
			LastName:    profile.LastName(),
			PhoneNumber: profile.PhoneNumber(),
			Avatar:      profile.Avatar(),
		},
		Preferences: PreferencesRequest{
			Language:           prefs.Language(),
			Timezone:           prefs.Timezone(),
			Theme:              prefs.Theme(),
			EmailNotifications: prefs.EmailNotifications(),
		},
		Status:    a.Status().String(),
		CreatedBy: a.CreatedBy(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
		Version:   a.Version(),
	}
}
