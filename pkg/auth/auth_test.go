package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ejc.kiosk/go-api/pkg/memory"
	"ejc.kiosk/go-api/pkg/models"
)

const (
	testSecret = "kiosk-test-secret"
	testInvite = "EJC-2026"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewStore(), memory.NewRevocations(), Options{
		Secret:     testSecret,
		InviteCode: testInvite,
		TokenTTL:   time.Hour,
	}, nil)
}

func signUp(t *testing.T, svc *Service) *models.User {
	t.Helper()
	user, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Email:      "  Equipe@EJC.org ",
		Password:   "pastel123",
		InviteCode: testInvite,
	})
	require.NoError(t, err)
	return user
}

func TestSignUp(t *testing.T) {
	svc := newService(t)
	user := signUp(t, svc)

	assert.Equal(t, "equipe@ejc.org", user.Email)
	assert.NotEqual(t, "pastel123", user.Password)
	assert.False(t, user.ID.IsZero())
}

func TestSignUpRejections(t *testing.T) {
	tests := []struct {
		name string
		req  models.SignUpRequest
		want error
	}{
		{"wrong invite", models.SignUpRequest{Email: "a@ejc.org", Password: "pastel123", InviteCode: "nope"}, ErrInvalidInviteCode},
		{"missing invite", models.SignUpRequest{Email: "a@ejc.org", Password: "pastel123"}, ErrInvalidInviteCode},
		{"short password", models.SignUpRequest{Email: "a@ejc.org", Password: "1234567", InviteCode: testInvite}, ErrWeakPassword},
		{"blank email", models.SignUpRequest{Email: "  ", Password: "pastel123", InviteCode: testInvite}, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(t).SignUp(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignUpWithoutConfiguredInviteIsClosed(t *testing.T) {
	svc := NewService(memory.NewStore(), memory.NewRevocations(), Options{Secret: testSecret}, nil)
	_, err := svc.SignUp(context.Background(), models.SignUpRequest{Email: "a@ejc.org", Password: "pastel123"})
	assert.ErrorIs(t, err, ErrInvalidInviteCode)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newService(t)
	signUp(t, svc)

	_, err := svc.SignUp(context.Background(), models.SignUpRequest{
		Email: "equipe@ejc.org", Password: "outrasenha", InviteCode: testInvite,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	created := signUp(t, svc)

	token, user, err := svc.SignIn(ctx, models.SignInRequest{Email: "EQUIPE@ejc.org", Password: "pastel123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, created.ID, user.ID)

	current, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "equipe@ejc.org", current.Email)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	signUp(t, svc)

	_, _, err := svc.SignIn(ctx, models.SignInRequest{Email: "equipe@ejc.org", Password: "errada123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.SignIn(ctx, models.SignInRequest{Email: "ninguem@ejc.org", Password: "pastel123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInUnknownEmailStillComparesHash(t *testing.T) {
	svc := newService(t)
	var compared [][]byte
	svc.compare = func(hashed, password []byte) error {
		compared = append(compared, hashed)
		return bcrypt.CompareHashAndPassword(hashed, password)
	}

	_, _, err := svc.SignIn(context.Background(), models.SignInRequest{Email: "ninguem@ejc.org", Password: "pastel123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, compared, 1)
	assert.Equal(t, dummyHash(), compared[0])
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	signUp(t, svc)

	token, _, err := svc.SignIn(ctx, models.SignInRequest{Email: "equipe@ejc.org", Password: "pastel123"})
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, token))

	_, err = svc.CurrentUser(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, svc.SignOut(ctx, token), ErrUnauthenticated)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	signUp(t, svc)

	token, _, err := svc.SignIn(ctx, models.SignInRequest{Email: "equipe@ejc.org", Password: "pastel123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StandardClaims: jwt.StandardClaims{Id: "x", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}).SignedString([]byte("someone-else"))
	require.NoError(t, err)
	_, err = newService(t).Parse(ctx, foreign)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Parse(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSignInWithoutSecret(t *testing.T) {
	svc := NewService(memory.NewStore(), memory.NewRevocations(), Options{InviteCode: testInvite}, nil)
	_, _, err := svc.SignIn(context.Background(), models.SignInRequest{Email: "a@ejc.org", Password: "pastel123"})
	assert.ErrorIs(t, err, ErrSigningDisabled)
}
