package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
)

func TestClientLoginSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "counselor@nextstep.dev", body["identifier"])
		assert.Equal(t, "counselor123", body["secret"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-1","user":{"id":"u1","email":"counselor@nextstep.dev"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.Login(context.Background(), "counselor@nextstep.dev", "counselor123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", result.Token)
	assert.Equal(t, "u1", result.User.ID)
}

func TestClientLoginRejectionCarriesBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_credentials","error_description":"invalid email or password"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Login(context.Background(), "counselor@nextstep.dev", "wrong")
	require.Error(t, err)

	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_credentials", authErr.Code)
	assert.Equal(t, "invalid email or password", authErr.Description)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestClientLoginRejectionWithoutBodyGetsGenericError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Login(context.Background(), "a@b.com", "wrong")

	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "login_failed", authErr.Code)
}

func TestClientMeSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/me", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"counselor@nextstep.dev","name":"Dana"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	u, err := client.Me(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", u.Name)
}

func TestClientMeRevokedStatusesAreAuthoritative(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(server.URL, 5*time.Second)
		_, err := client.Me(context.Background(), "tok-1")
		assert.ErrorIs(t, err, apperrors.ErrSessionRevoked, "status %d", status)

		server.Close()
	}
}

func TestClientMeTransportErrorIsNotRevocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, time.Second)
	_, err := client.Me(context.Background(), "tok-1")
	require.Error(t, err)
	assert.False(t, apperrors.IsRevoked(err))
}

func TestClientMeServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Me(context.Background(), "tok-1")
	require.Error(t, err)
	assert.False(t, apperrors.IsRevoked(err))
}
