package chatsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldShowDivider(t *testing.T) {
	first := textMsg("a", baseTime)
	require.True(t, ShouldShowDivider(first, nil))

	tests := []struct {
		name string
		gap  time.Duration
		want bool
	}{
		{"four minutes", 4 * time.Minute, false},
		{"just under", DividerGap - time.Second, false},
		{"exactly five minutes", DividerGap, true},
		{"six minutes", 6 * time.Minute, true},
		{"clock skew", -time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := textMsg("b", baseTime.Add(tt.gap))
			require.Equal(t, tt.want, ShouldShowDivider(next, &first))
		})
	}
}

func TestDividers_Fold(t *testing.T) {
	msgs := seq("m", 3, baseTime)
	msgs = append(msgs, textMsg("late", msgs[2].CreatedAt.Add(10*time.Minute)))
	snapshot := append(msgs[:0:0], msgs...)

	require.Equal(t, []bool{true, false, false, true}, Dividers(msgs))
	require.Equal(t, snapshot, msgs)
	require.Empty(t, Dividers(nil))
}
