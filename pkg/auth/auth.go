// Package auth handles admin accounts: invite-only sign up, password sign in
// with signed tokens, and sign out through a token denylist.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ejc.kiosk/go-api/pkg/global"
	"ejc.kiosk/go-api/pkg/models"
	"ejc.kiosk/go-api/pkg/store"
)

const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInviteCode  = errors.New("invalid invite code")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail       = errors.New("email is required")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrSigningDisabled    = errors.New("token signing secret is not configured")
)

// Revoker is the token denylist. Entries only need to outlive the token.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Claims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

type Options struct {
	Secret     string
	InviteCode string
	TokenTTL   time.Duration
}

// dummyHash is compared on unknown emails so both sign-in failures cost one
// bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("ejc-kiosk-unknown-user"), bcrypt.DefaultCost)
	return hashed
})

type Service struct {
	users   store.Users
	revoker Revoker
	secret  []byte
	invite  []byte
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
	compare func(hashed, password []byte) error
}

func NewService(users store.Users, revoker Revoker, opts Options, logger *zap.Logger) *Service {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		users:   users,
		revoker: revoker,
		secret:  []byte(opts.Secret),
		invite:  []byte(opts.InviteCode),
		ttl:     ttl,
		logger:  global.OrNop(logger),
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}
}

// SignUp creates an admin account. The invite code is only ever compared here.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if len(s.invite) == 0 || subtle.ConstantTimeCompare([]byte(req.InviteCode), s.invite) != 1 {
		s.logger.Warn("sign up rejected: invalid invite code", zap.String("email", email))
		return nil, ErrInvalidInviteCode
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, Password: string(hashed), CreatedAt: s.now()}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("admin account created", zap.String("email", email))
	return user, nil
}

// SignIn checks the password and issues a signed token.
func (s *Service) SignIn(ctx context.Context, req models.SignInRequest) (string, *models.User, error) {
	if len(s.secret) == 0 {
		return "", nil, ErrSigningDisabled
	}
	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		_ = s.compare(dummyHash(), []byte(req.Password))
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if s.compare([]byte(user.Password), []byte(req.Password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := Claims{
		Email: user.Email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// Parse validates the signature, expiry and revocation of a token.
func (s *Service) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	if tokenStr == "" || len(s.secret) == 0 {
		return nil, ErrUnauthenticated
	}

	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Name}, SkipClaimsValidation: true}
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrUnauthenticated
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Id == "" {
		return nil, ErrUnauthenticated
	}
	// Expiry is checked against the service clock rather than the library's.
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, ErrUnauthenticated
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// CurrentUser resolves the account behind a token.
func (s *Service) CurrentUser(ctx context.Context, tokenStr string) (*models.User, error) {
	claims, err := s.Parse(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	id, err := bson.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	return user, err
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, tokenStr string) error {
	claims, err := s.Parse(ctx, tokenStr)
	if err != nil {
		return err
	}
	return s.revoker.Revoke(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0))
}
