package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleSet(t *testing.T) {
	t.Parallel()

	user := NewRoleSet(RoleUser)
	assert.True(t, user.Has(RoleUser))
	assert.False(t, user.Has(RoleAdmin))
	assert.False(t, user.IsAdmin())

	admin := NewRoleSet(RoleUser, RoleAdmin)
	assert.True(t, admin.IsAdmin())
	assert.ElementsMatch(t, []string{"USER", "ADMIN"}, admin.Names())

	var none RoleSet
	assert.False(t, none.Has(RoleUser))
	assert.False(t, none.IsAdmin())
}

func TestCardExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expire time.Time
		want   bool
	}{
		{"well in the future", now.AddDate(3, 0, 0), false},
		{"expires today", now, false},
		{"expired yesterday", now.AddDate(0, 0, -1), true},
		{"long expired", now.AddDate(-2, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Card{ExpireDate: tt.expire}
			assert.Equal(t, tt.want, c.Expired(now))
		})
	}
}
