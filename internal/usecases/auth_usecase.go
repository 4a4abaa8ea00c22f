package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"estate_crm/internal/entities"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthUsecase struct {
	userRepo  UserStore
	areaRepo  AreaStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthUsecase(users UserStore, areas AreaStore, secret string, ttl time.Duration) *AuthUsecase {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthUsecase{
		userRepo:  users,
		areaRepo:  areas,
		jwtSecret: []byte(secret),
		tokenTTL:  ttl,
	}
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	AreaIDs  []int  `json:"area_ids"`
}

// Register creates a pending broker with its application. The broker must
// pass the interview before the account becomes active.
func (uc *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*entities.User, *entities.BrokerApplication, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid email", entities.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", entities.ErrInvalidInput, minPasswordLength)
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, nil, fmt.Errorf("%w: full name is required", entities.ErrInvalidInput)
	}

	blocked, err := uc.userRepo.IsBlocked(ctx, in.Email, in.Phone)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, entities.ErrAccountBlocked
	}

	existing, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: email already registered", entities.ErrConflict)
	}

	if err := uc.checkAreas(ctx, in.AreaIDs); err != nil {
		return nil, nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &entities.User{
		Email:        in.Email,
		Phone:        in.Phone,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hashed),
		Role:         entities.RoleBroker,
		Status:       entities.UserStatusPending,
		AreaIDs:      in.AreaIDs,
	}
	app := &entities.BrokerApplication{}
	if err := uc.userRepo.CreateBrokerWithApplication(ctx, user, app); err != nil {
		return nil, nil, err
	}
	log.Info().Int("user_id", user.ID).Int("application_id", app.ID).Msg("broker registered")
	return user, app, nil
}

func (uc *AuthUsecase) checkAreas(ctx context.Context, ids []int) error {
	for _, id := range ids {
		area, err := uc.areaRepo.GetByID(ctx, id)
		if errors.Is(err, entities.ErrNotFound) {
			return fmt.Errorf("%w: unknown area %d", entities.ErrInvalidInput, id)
		}
		if err != nil {
			return err
		}
		if !area.IsActive {
			return fmt.Errorf("%w: area %d is inactive", entities.ErrInvalidInput, id)
		}
	}
	return nil
}

// Login checks credentials and returns a signed token.
// Pending brokers may log in so they can take the interview.
func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (string, *entities.User, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, entities.ErrNotFound) {
		return "", nil, entities.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, entities.ErrInvalidCredentials
	}

	switch user.Status {
	case entities.UserStatusBlocked:
		return "", nil, entities.ErrAccountBlocked
	case entities.UserStatusInactive:
		return "", nil, entities.ErrAccountInactive
	}

	token, err := uc.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (uc *AuthUsecase) GenerateToken(user *entities.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(uc.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates a bearer token and returns its user id and role
func (uc *AuthUsecase) ParseToken(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return uc.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, "", entities.ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", entities.ErrInvalidCredentials
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", entities.ErrInvalidCredentials
	}
	role, _ := claims["role"].(string)
	return int(userID), role, nil
}

func (uc *AuthUsecase) Profile(ctx context.Context, userID int) (*entities.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

type ProfileInput struct {
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

func (uc *AuthUsecase) UpdateProfile(ctx context.Context, userID int, in ProfileInput) (*entities.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		if strings.TrimSpace(*in.FullName) == "" {
			return nil, fmt.Errorf("%w: full name is required", entities.ErrInvalidInput)
		}
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.TelegramChatID != nil {
		user.TelegramChatID = *in.TelegramChatID
	}
	user.AreaIDs = nil // leave coverage untouched
	if err := uc.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, userID)
}

// Areas returns the areas a broker covers; supervisors see every active area
func (uc *AuthUsecase) Areas(ctx context.Context, userID int) ([]entities.Area, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := uc.areaRepo.List(ctx, true)
	if err != nil || user.IsSupervisor() {
		return all, err
	}
	covered := make(map[int]bool, len(user.AreaIDs))
	for _, id := range user.AreaIDs {
		covered[id] = true
	}
	out := []entities.Area{}
	for _, a := range all {
		if covered[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// SetAreas replaces the areas a broker covers
func (uc *AuthUsecase) SetAreas(ctx context.Context, userID int, areaIDs []int) ([]entities.Area, error) {
	if err := uc.checkAreas(ctx, areaIDs); err != nil {
		return nil, err
	}
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.AreaIDs = areaIDs
	if user.AreaIDs == nil {
		user.AreaIDs = []int{}
	}
	if err := uc.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return uc.Areas(ctx, userID)
}

// EnsureSupervisor creates the supervisor account if none exists (called on startup)
func (uc *AuthUsecase) EnsureSupervisor(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	_, err := uc.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	supervisor := &entities.User{
		Email:        email,
		FullName:     "Supervisor",
		PasswordHash: string(hashed),
		Role:         entities.RoleSupervisor,
		Status:       entities.UserStatusActive,
	}
	if err := uc.userRepo.Create(ctx, supervisor); err != nil {
		return err
	}
	log.Info().Str("email", supervisor.Email).Msg("supervisor account created")
	return nil
}
