package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"driftline/internal/models"
	"driftline/internal/observability"
	"driftline/internal/remote"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// accountRow is an authentication account. Profiles live in the users
// collection; accounts only carry credentials and the stable uid.
type accountRow struct {
	ID           uint   `gorm:"primaryKey"`
	UID          string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (accountRow) TableName() string { return "accounts" }

const tokenTTL = 72 * time.Hour

// AuthService implements the backend authentication sub-interface: credential
// accounts, session identity tracking and identity-change notifications.
type AuthService struct {
	db     *gorm.DB
	secret []byte
	logger *slog.Logger

	mu        sync.RWMutex
	current   *remote.Identity
	listeners []remote.IdentityFunc
}

// NewAuth creates an AuthService over the given database connection.
func NewAuth(db *gorm.DB, secret []byte) *AuthService {
	return &AuthService{
		db:     db,
		secret: secret,
		logger: observability.Component("auth"),
	}
}

// SignUp creates a credential account and signs the new identity in.
func (a *AuthService) SignUp(ctx context.Context, email, password string) (*remote.Identity, error) {
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	row := accountRow{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.NewValidationError("Account already exists")
		}
		return nil, models.NewInternalError(err)
	}

	identity := &remote.Identity{UID: row.UID, Email: row.Email}
	a.setCurrent(identity)
	a.logger.Info("account created", slog.String("uid", row.UID))
	return identity, nil
}

// SignIn authenticates a credential and signs the identity in. Bad
// credentials are propagated to the caller, not recovered.
func (a *AuthService) SignIn(ctx context.Context, email, password string) (*remote.Identity, error) {
	var row accountRow
	err := a.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}

	identity := &remote.Identity{UID: row.UID, Email: row.Email}
	a.setCurrent(identity)
	return identity, nil
}

// SignOut clears the session identity and notifies listeners with the absent marker.
func (a *AuthService) SignOut(_ context.Context) error {
	a.setCurrent(nil)
	return nil
}

// CurrentUser returns the present session identity, or nil.
func (a *AuthService) CurrentUser() *remote.Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	id := *a.current
	return &id
}

// OnIdentityChange registers fn and invokes it immediately with the current
// state, then on every subsequent transition.
func (a *AuthService) OnIdentityChange(fn remote.IdentityFunc) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	current := a.current
	a.mu.Unlock()

	fn(copyIdentity(current))
}

func (a *AuthService) setCurrent(identity *remote.Identity) {
	a.mu.Lock()
	a.current = identity
	listeners := make([]remote.IdentityFunc, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(copyIdentity(identity))
	}
}

func copyIdentity(identity *remote.Identity) *remote.Identity {
	if identity == nil {
		return nil
	}
	id := *identity
	return &id
}

// Token issues a signed session token for the identity.
func (a *AuthService) Token(identity *remote.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":   identity.UID,
		"email": identity.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// VerifyToken validates a session token and returns the identity it carries.
func (a *AuthService) VerifyToken(tokenString string) (*remote.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, models.NewUnauthorizedError("Invalid token structure - missing subject")
	}
	email, _ := claims["email"].(string)

	return &remote.Identity{UID: sub, Email: email}, nil
}
