package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, expiresAt, err := GenerateToken(&Payload{UserName: "alice"}, testSecret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	payload, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.UserName)
	assert.Equal(t, "alice", payload.Subject)
	assert.Equal(t, TokenIssuer, payload.Issuer)
	assert.Equal(t, expiresAt, payload.ExpiresAtTime())
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken(&Payload{UserName: "alice"}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "another-secret")
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken(&Payload{UserName: "alice"}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseToken_MissingUserName(t *testing.T) {
	token, _, err := GenerateToken(&Payload{}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestMiddleware(t *testing.T) {
	token, _, err := GenerateToken(&Payload{UserName: "bob"}, testSecret, time.Hour)
	require.NoError(t, err)

	var seen *Payload
	protected := IdentityExtractorMiddleware(testSecret)(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/chats/all-rooms", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "bob", seen.UserName)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats/all-rooms", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/chats/all-rooms", nil)
		r.Header.Set("Authorization", "Bearer "+token+"x")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
