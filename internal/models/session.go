package models

import "time"

// UserSession is an audit record of a login: where from and with what.
type UserSession struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"user_id"`
	IPAddress string     `json:"ip_address"`
	City      string     `json:"city"`
	UserAgent string     `json:"user_agent"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}
