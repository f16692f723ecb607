package vault

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/venyaka/Bank-REST/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestClient(serverURL string) *Client {
	return NewClient(&config.Config{
		VaultAddr:       serverURL,
		VaultToken:      "test-token",
		VaultSecretPath: "secret/data/bank/encryption",
	}, testLogger())
}

func TestCurrentKey_FetchAndCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/secret/data/bank/encryption", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Write([]byte(`{"data":{"data":{"key":"0123456789abcdef"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	key, err := c.CurrentKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), key)

	// Second call is served from cache.
	key, err = c.CurrentKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), key)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCurrentKey_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sealed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.CurrentKey()
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestCurrentKey_MissingKeyField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":{}}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.CurrentKey()
	assert.ErrorIs(t, err, ErrKeyUnavailable)
}

func TestCurrentKey_FailureNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "sealed", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"data":{"key":"0123456789abcdef"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.CurrentKey()
	require.ErrorIs(t, err, ErrKeyUnavailable)

	key, err := c.CurrentKey()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), key)
}
