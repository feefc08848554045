package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"09:00", "0 9 * * *", false},
		{"00:00", "0 0 * * *", false},
		{"23:59", "59 23 * * *", false},
		{"9:5", "5 9 * * *", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"12", "", true},
		{"ab:cd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := cronSpec(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, spec)
		})
	}
}

func TestAddTimes(t *testing.T) {
	t.Run("valid times register", func(t *testing.T) {
		s := New(nil, nil)
		err := s.AddTimes([]string{"09:00", "21:30"})
		require.NoError(t, err)
		assert.Len(t, s.cron.Entries(), 2)
	})

	t.Run("invalid time aborts registration", func(t *testing.T) {
		s := New(nil, nil)
		err := s.AddTimes([]string{"09:00", "25:00"})
		require.Error(t, err)
	})
}
