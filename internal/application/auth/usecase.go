package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Muestras-api/internal/application/dto"
	"github.com/jhoicas/Muestras-api/internal/domain"
	"github.com/jhoicas/Muestras-api/internal/domain/entity"
	"github.com/jhoicas/Muestras-api/internal/domain/repository"
	"github.com/jhoicas/Muestras-api/pkg/jwt"
)

// AttemptStore contador de intentos fallidos con vencimiento por clave.
type AttemptStore interface {
	// Increment suma un intento; la ventana arranca con el primer intento de la clave.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// LoginGuard bloqueo por intentos fallidos: MaxAttempts dentro de Window bloquea la clave.
type LoginGuard struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLoginGuard 5 intentos en 15 minutos.
func DefaultLoginGuard() LoginGuard {
	return LoginGuard{MaxAttempts: 5, Window: 15 * time.Minute}
}

// AuthUseCase casos de uso de autenticación.
type AuthUseCase struct {
	userRepo repository.UserRepository
	attempts AttemptStore
	jwtCfg   JWTConfig
	guard    LoginGuard
	log      zerolog.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, attempts AttemptStore, jwtCfg JWTConfig, guard LoginGuard, log zerolog.Logger) *AuthUseCase {
	if guard.MaxAttempts < 1 {
		guard = DefaultLoginGuard()
	}
	return &AuthUseCase{
		userRepo: userRepo,
		attempts: attempts,
		jwtCfg:   jwtCfg,
		guard:    guard,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// clientKey identifica al cliente (IP); alcanzado el máximo de fallos, los siguientes intentos responden ErrTooManyAttempts.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest, clientKey string) (*dto.LoginResponse, error) {
	key := "login_attempts:" + clientKey
	n, err := uc.attempts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if n >= int64(uc.guard.MaxAttempts) {
		uc.log.Warn().Str("client", clientKey).Int64("attempts", n).Msg("login bloqueado")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := uc.userRepo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, uc.fail(ctx, key, clientKey)
	}
	if !user.Active || !user.Role.Valid() {
		return nil, domain.ErrForbidden
	}
	if err := uc.attempts.Reset(ctx, key); err != nil {
		uc.log.Warn().Err(err).Str("client", clientKey).Msg("no se pudo limpiar el contador de intentos")
	}

	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, string(user.Role), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	if err := uc.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		uc.log.Warn().Err(err).Int64("user_id", user.ID).Msg("no se pudo actualizar last_login")
	}
	uc.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("login exitoso")

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Duration(uc.jwtCfg.ExpMinutes) * time.Minute),
		User:        *ToUserResponse(user),
	}, nil
}

func (uc *AuthUseCase) fail(ctx context.Context, key, clientKey string) error {
	n, err := uc.attempts.Increment(ctx, key, uc.guard.Window)
	if err != nil {
		return err
	}
	uc.log.Info().Str("client", clientKey).Int64("attempts", n).Msg("login fallido")
	return domain.ErrUnauthorized
}

// ToUserResponse convierte la entidad sin exponer el hash.
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	ids := u.CountryIDs
	if ids == nil {
		ids = []int64{}
	}
	return &dto.UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       string(u.Role),
		CategoryID: u.CategoryID,
		CountryIDs: ids,
		LastLogin:  u.LastLogin,
	}
}
