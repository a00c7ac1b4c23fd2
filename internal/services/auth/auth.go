// Package auth содержит бизнес-логику регистрации, входа и проверки JWT.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sublyhq/subly/internal/lib/jwt"
	"github.com/sublyhq/subly/internal/lib/password"
	"github.com/sublyhq/subly/internal/models"
	"github.com/sublyhq/subly/internal/storage"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
// Наружу уходит одинаковый ответ для неизвестного пользователя
// и неверного пароля.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя с хэшированием пароля и ролью "user".
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		UID:          uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user",
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", "", ErrInvalidCredentials
	}
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает claims с данными пользователя.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

// EnsureAdmin создает учётную запись администратора, если её ещё нет.
// Идемпотентна: безопасно вызывать при каждом старте процесса.
func (s *Service) EnsureAdmin(ctx context.Context, adminPassword string) error {
	_, err := s.users.GetUserByUsername(ctx, "admin")
	if err == nil {
		s.log.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return err
	}

	hashed, err := password.GetHash(adminPassword)
	if err != nil {
		return err
	}
	uid, err := s.users.RegisterUser(ctx, models.User{
		UID:          uuid.NewString(),
		Email:        "admin@subly.io",
		Username:     "admin",
		PasswordHash: hashed,
		Role:         "admin",
	})
	if errors.Is(err, storage.ErrUserExists) {
		// Гонка двух стартующих процессов: админа успел создать другой.
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("admin user created", slog.String("uid", uid))
	return nil
}
