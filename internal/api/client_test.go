package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeSuccessFlagWins(t *testing.T) {
	// HTTP 200 with success:false is a failure carrying the body message.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"X"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env, status, err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	envErr := EnvelopeError(status, env)
	require.Error(t, envErr)
	var apiErr *Error
	require.ErrorAs(t, envErr, &apiErr)
	assert.Equal(t, "X", apiErr.Message)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestUnparsableBodyBecomesEmptyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>Bad Gateway-ish</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env, status, err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	require.NoError(t, err)
	assert.False(t, env.Success)

	envErr := EnvelopeError(status, env)
	require.Error(t, envErr)
	assert.Equal(t, "request failed (500 Internal Server Error)", envErr.Error())
}

func TestUnparsableSuccessBodyIsStillFailure(t *testing.T) {
	// A 200 with a non-JSON body has no success:true, so it fails with a
	// status-derived message rather than raising a parse error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env, status, err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	require.NoError(t, err)

	envErr := EnvelopeError(status, env)
	require.Error(t, envErr)
	assert.Equal(t, "request failed (200 OK)", envErr.Error())
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL)
	_, _, err := c.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	require.Error(t, err)
	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
}

func TestHeadersAndBody(t *testing.T) {
	var gotAuth, gotContentType, gotRequestID string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer tok")

	c := NewClient(srv.URL)
	env, status, err := c.Do(context.Background(), http.MethodPost, "/orders", headers, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, EnvelopeError(status, env))

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.NotEmpty(t, gotRequestID)
	assert.JSONEq(t, `{"k":"v"}`, string(gotBody))
}

func TestURLJoining(t *testing.T) {
	c := NewClient("http://host/api/")
	assert.Equal(t, "http://host/api/menu", c.URL("/menu", nil))
	assert.Equal(t, "http://host/api/menu", c.URL("menu", nil))
}
