package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcnkl/settle/debounce"
)

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func TestPolicy_String(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		expected string
	}{
		{
			name:     "trailing only",
			policy:   Policy{Wait: durationPtr(300 * time.Millisecond), Trailing: true},
			expected: "wait=300ms leading=false trailing=true",
		},
		{
			name:     "frame scheduled",
			policy:   Policy{Trailing: true},
			expected: "wait=frame leading=false trailing=true",
		},
		{
			name: "max wait clamped for display",
			policy: Policy{
				Wait:     durationPtr(time.Second),
				MaxWait:  durationPtr(500 * time.Millisecond),
				Leading:  true,
				Trailing: false,
			},
			expected: "wait=1s max_wait=1s leading=true trailing=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.String())
		})
	}
}

func TestPolicy_Options(t *testing.T) {
	calls := 0
	fn := func(string) (int, error) {
		calls++
		return calls, nil
	}

	p := Policy{Wait: durationPtr(time.Hour), Leading: true, Trailing: false}
	d, err := debounce.New(fn, p.Options()...)
	require.NoError(t, err)

	res, err := d.Call("a")
	require.NoError(t, err)
	assert.Equal(t, 1, res)

	res, err = d.Call("b")
	require.NoError(t, err)
	assert.Equal(t, 1, res, "second call lands inside the wait")
	assert.True(t, d.Pending())

	d.Cancel()
	assert.False(t, p.WaitOmitted())
	assert.True(t, Policy{}.WaitOmitted())
}
