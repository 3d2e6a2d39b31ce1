package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	claim := Claim{UserID: 12, SessionToken: "tok-1", LoginTime: time.UnixMilli(1_700_000_000_123)}
	signed, exp, err := ti.Issue(claim)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	got, err := ti.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, claim.UserID, got.UserID)
	assert.Equal(t, claim.SessionToken, got.SessionToken)
	assert.Equal(t, claim.LoginTime.UnixMilli(), got.LoginTime.UnixMilli())
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("other", time.Hour)
	require.NoError(t, err)

	signed, _, err := other.Issue(Claim{UserID: 1, SessionToken: "t", LoginTime: time.Now()})
	require.NoError(t, err)

	_, err = ti.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = ti.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken, "garbage")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "sid": "t"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ti.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	signed, _, err := ti.Issue(Claim{UserID: 1, SessionToken: "t", LoginTime: time.Now()})
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestTokenIssuer_IssueRequiresIdentity(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	_, _, err = ti.Issue(Claim{SessionToken: "t"})
	assert.Error(t, err)
}
