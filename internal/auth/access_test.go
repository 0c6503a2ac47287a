package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanMutate(t *testing.T) {
	tests := []struct {
		name   string
		caller Principal
		owner  string
		want   bool
	}{
		{"owner without roles", Principal{ID: "A"}, "A", true},
		{"stranger", Principal{ID: "A"}, "B", false},
		{"admin on foreign resource", Principal{ID: "A", Roles: []string{"ADMIN"}}, "B", true},
		{"admin on own resource", Principal{ID: "A", Roles: []string{"ADMIN"}}, "A", true},
		{"plain user role", Principal{ID: "A", Roles: []string{"USER"}}, "B", false},
		{"role names are case-sensitive", Principal{ID: "A", Roles: []string{"admin"}}, "B", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanMutate(tc.caller, tc.owner))
		})
	}
}

func TestCanMutate_Exhaustive(t *testing.T) {
	ids := []string{"A", "B", "C"}
	roleSets := [][]string{nil, {"USER"}, {"ADMIN"}, {"USER", "ADMIN"}, {"SELLER"}}
	for _, id := range ids {
		for _, owner := range ids {
			for _, roles := range roleSets {
				admin := false
				for _, r := range roles {
					admin = admin || r == "ADMIN"
				}
				want := admin || id == owner
				assert.Equal(t, want, CanMutate(Principal{ID: id, Roles: roles}, owner), "id=%s owner=%s roles=%v", id, owner, roles)
			}
		}
	}
}

func TestPrincipal_HasRole(t *testing.T) {
	p := Principal{Roles: []string{"USER", "SELLER"}}
	assert.True(t, p.HasRole("SELLER"))
	assert.False(t, p.HasRole("ADMIN"))
	assert.False(t, p.IsAdmin())
}
