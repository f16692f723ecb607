// Package session keeps an audit trail of logins: one record per login
// with origin IP, resolved city and user agent. Auditing is best effort
// and never fails the login that triggered it.
package session

import (
	"context"
	"time"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the session persistence the service needs.
type Store interface {
	CreateSession(ctx context.Context, session *models.UserSession) error
	EndOpenSessions(ctx context.Context, userID int64) error
}

// GeoResolver maps an IP address to a city name.
type GeoResolver interface {
	CityForIP(ip string) (string, error)
}

// Service records login sessions.
type Service struct {
	store Store
	geo   GeoResolver
	log   *logrus.Logger
}

// NewService initializes a new session service
func NewService(store Store, geo GeoResolver, log *logrus.Logger) *Service {
	return &Service{store: store, geo: geo, log: log}
}

// RecordLogin ends the user's previous open sessions and stores a new one.
func (s *Service) RecordLogin(ctx context.Context, userID int64, ip, userAgent string) {
	if err := s.store.EndOpenSessions(ctx, userID); err != nil {
		s.log.Errorf("Failed to end old sessions for user %d: %v", userID, err)
	}

	city, err := s.geo.CityForIP(ip)
	if err != nil {
		s.log.Debugf("City lookup failed for %s: %v", ip, err)
		city = "Unknown"
	}

	sess := &models.UserSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		IPAddress: ip,
		City:      city,
		UserAgent: userAgent,
		StartTime: time.Now(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.log.Errorf("Failed to record session for user %d: %v", userID, err)
	}
}
