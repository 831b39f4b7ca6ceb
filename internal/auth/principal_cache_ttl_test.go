package auth

import (
	"testing"
	"time"
)

func TestEntryTTLCappedByTokenExpiry(t *testing.T) {
	cache := &PrincipalCache{TTL: DefaultPrincipalTTL}

	tests := []struct {
		name      string
		expiresAt time.Time
		min, max  time.Duration
	}{
		{"token outlives cache window", time.Now().Add(time.Hour), DefaultPrincipalTTL, DefaultPrincipalTTL},
		{"token expires inside window", time.Now().Add(30 * time.Second), 29 * time.Second, 30 * time.Second},
		{"token already expired", time.Now().Add(-time.Second), -time.Hour, 0},
		{"no expiry claim", time.Time{}, DefaultPrincipalTTL, DefaultPrincipalTTL},
	}

	for _, tt := range tests {
		ttl := cache.entryTTL(tt.expiresAt)
		if ttl < tt.min || ttl > tt.max {
			t.Errorf("%s: entryTTL = %v, want in [%v, %v]", tt.name, ttl, tt.min, tt.max)
		}
	}
}

func TestEntryTTLZeroConfigFallsBackToDefault(t *testing.T) {
	cache := &PrincipalCache{}
	if ttl := cache.entryTTL(time.Now().Add(time.Hour)); ttl != DefaultPrincipalTTL {
		t.Errorf("entryTTL with zero TTL config = %v, want %v", ttl, DefaultPrincipalTTL)
	}
}
