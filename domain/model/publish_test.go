package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateStatus(t *testing.T) {
	ok := PlatformResult{Platform: "facebook", Success: true}
	failed := PlatformResult{Platform: "instagram", Success: false, Error: "boom"}

	tests := []struct {
		name     string
		results  []PlatformResult
		expected string
	}{
		{name: "no results stays pending", results: nil, expected: PublishStatusPending},
		{name: "all succeeded", results: []PlatformResult{ok, ok}, expected: PublishStatusCompleted},
		{name: "all failed", results: []PlatformResult{failed, failed}, expected: PublishStatusFailed},
		{name: "mixed", results: []PlatformResult{ok, failed}, expected: PublishStatusPartiallyCompleted},
		{name: "single success", results: []PlatformResult{ok}, expected: PublishStatusCompleted},
		{name: "single failure", results: []PlatformResult{failed}, expected: PublishStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateStatus(tt.results))
		})
	}
}

func TestTokenExpired(t *testing.T) {
	assert.False(t, (&LinkedAccount{}).TokenExpired(0), "nil expiry never expires")
}
