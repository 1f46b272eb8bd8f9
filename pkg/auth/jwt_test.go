package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func TestNewTokenParse(t *testing.T) {
	tok, err := NewToken("s3cret", "m1", "amy@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := Parse("s3cret", tok)
	require.NoError(t, err)
	require.Equal(t, "m1", claims.Subject)
	require.Equal(t, "amy@example.com", claims.Email)
}

func TestParse_Rejects(t *testing.T) {
	tok, err := NewToken("s3cret", "m1", "", time.Hour)
	require.NoError(t, err)
	_, err = Parse("other", tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewToken("s3cret", "m1", "", -time.Minute)
	require.NoError(t, err)
	_, err = Parse("s3cret", expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = Parse("s3cret", noSub)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.StandardClaims{Subject: "m1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Parse("s3cret", none)
	require.ErrorIs(t, err, ErrInvalidToken)
}
