package token

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(t *testing.T) (*Issuer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss, err := NewIssuer(Config{
		AccessSecret:     "access-secret",
		RefreshSecret:    "refresh-secret",
		ActivationSecret: "activation-secret",
		AccessTTL:        5 * time.Minute,
		RefreshTTL:       72 * time.Hour,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return iss, clock
}

func TestNewIssuer_RejectsEmptySecrets(t *testing.T) {
	_, err := NewIssuer(Config{AccessSecret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	iss, _ := newTestIssuer(t)

	raw, err := iss.IssueAccessToken("user-1")
	require.NoError(t, err)

	claims, err := iss.VerifyAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestAccessToken_TamperedByteFails(t *testing.T) {
	iss, _ := newTestIssuer(t)
	raw, err := iss.IssueAccessToken("user-1")
	require.NoError(t, err)

	// Flip one character inside the payload segment.
	dot := strings.Index(raw, ".")
	pos := dot + 5
	b := []byte(raw)
	if b[pos] == 'A' {
		b[pos] = 'B'
	} else {
		b[pos] = 'A'
	}

	_, err = iss.VerifyAccess(string(b))
	require.Error(t, err)
}

func TestAccessToken_WrongSecretIsInvalidSignature(t *testing.T) {
	iss, _ := newTestIssuer(t)
	refresh, err := iss.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = iss.VerifyAccess(refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAccessToken_Expires(t *testing.T) {
	iss, clock := newTestIssuer(t)
	raw, err := iss.IssueAccessToken("user-1")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, err = iss.VerifyAccess(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	iss, _ := newTestIssuer(t)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{
		UserID: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.VerifyAccess(unsigned)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, UserClaims{UserID: "admin"}).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = iss.VerifyAccess(hs512)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_GarbageIsMalformed(t *testing.T) {
	iss, _ := newTestIssuer(t)

	_, err := iss.VerifyAccess("")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = iss.VerifyAccess("not.a.token")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRefreshToken_CarriesUniqueID(t *testing.T) {
	iss, clock := newTestIssuer(t)

	first, err := iss.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, err := iss.IssueRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, clock.Now().Add(72*time.Hour).Unix(), first.ExpiresAt.Unix())

	claims, err := iss.VerifyRefresh(first.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, first.ID, claims.ID)
}

func TestActivationToken_RoundTrip(t *testing.T) {
	iss, clock := newTestIssuer(t)
	pending := PendingUser{Name: "Ann", Email: "a@x.com", PasswordHash: "$argon2id$..."}

	act, err := iss.IssueActivationToken(pending)
	require.NoError(t, err)

	code, err := strconv.Atoi(act.Code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, code, 1000)
	assert.LessOrEqual(t, code, 9999)

	claims, err := iss.VerifyActivation(act.Token)
	require.NoError(t, err)
	assert.Equal(t, pending, claims.User)
	assert.Equal(t, act.Code, claims.ActivationCode)

	// Activation tokens live as long as access tokens.
	clock.Advance(5*time.Minute + time.Second)
	_, err = iss.VerifyActivation(act.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestActivationCode_AlwaysFourDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := activationCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		assert.NotEqual(t, byte('0'), code[0])
	}
}
