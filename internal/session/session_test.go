package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fakeSessionStore struct {
	created  []*models.UserSession
	endedFor []int64
	fail     bool
}

func (s *fakeSessionStore) CreateSession(_ context.Context, sess *models.UserSession) error {
	if s.fail {
		return errors.New("db down")
	}
	s.created = append(s.created, sess)
	return nil
}

func (s *fakeSessionStore) EndOpenSessions(_ context.Context, userID int64) error {
	s.endedFor = append(s.endedFor, userID)
	return nil
}

type staticGeo struct {
	city string
	err  error
}

func (g *staticGeo) CityForIP(string) (string, error) { return g.city, g.err }

func TestRecordLogin(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	svc := NewService(store, &staticGeo{city: "Berlin"}, testLogger())

	svc.RecordLogin(context.Background(), 7, "203.0.113.9", "curl/8.0")

	assert.Equal(t, []int64{7}, store.endedFor)
	require.Len(t, store.created, 1)
	sess := store.created[0]
	assert.Equal(t, int64(7), sess.UserID)
	assert.Equal(t, "203.0.113.9", sess.IPAddress)
	assert.Equal(t, "Berlin", sess.City)
	assert.Equal(t, "curl/8.0", sess.UserAgent)
	assert.False(t, sess.StartTime.IsZero())
	assert.Nil(t, sess.EndTime)
	_, err := uuid.Parse(sess.ID)
	assert.NoError(t, err)
}

func TestRecordLogin_GeoFailureFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{}
	svc := NewService(store, &staticGeo{err: errors.New("quota exceeded")}, testLogger())

	svc.RecordLogin(context.Background(), 7, "203.0.113.9", "curl/8.0")

	require.Len(t, store.created, 1)
	assert.Equal(t, "Unknown", store.created[0].City)
}

func TestRecordLogin_StoreFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	store := &fakeSessionStore{fail: true}
	svc := NewService(store, &staticGeo{city: "Berlin"}, testLogger())

	// Auditing must never panic or bubble up into the login path.
	svc.RecordLogin(context.Background(), 7, "203.0.113.9", "curl/8.0")
	assert.Empty(t, store.created)
}

func TestCityForIP_LocalAddresses(t *testing.T) {
	t.Parallel()

	c := NewIPStackClient("http://unused.invalid", "key", testLogger())

	for _, ip := range []string{"127.0.0.1", "::1", "10.0.0.5", "192.168.1.20"} {
		city, err := c.CityForIP(ip)
		require.NoError(t, err, "ip %s", ip)
		assert.Equal(t, "Local", city)
	}
}

func TestCityForIP_InvalidAddress(t *testing.T) {
	t.Parallel()

	c := NewIPStackClient("http://unused.invalid", "key", testLogger())

	_, err := c.CityForIP("not-an-ip")
	assert.Error(t, err)
}

func TestCityForIP_RemoteLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.9", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("access_key"))
		w.Write([]byte(`{"city":"Amsterdam"}`))
	}))
	defer srv.Close()

	c := NewIPStackClient(srv.URL, "test-key", testLogger())

	city, err := c.CityForIP("203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "Amsterdam", city)
}

func TestCityForIP_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewIPStackClient(srv.URL, "test-key", testLogger())

	_, err := c.CityForIP("203.0.113.9")
	assert.Error(t, err)
}
