package handlers

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 4, 59, 123456000, time.FixedZone("WIB", 7*3600))
	id := uuid.NewString()

	cur, err := decodeCursor(encodeCursor(at, id))
	require.NoError(t, err)
	require.True(t, at.Equal(cur.CreatedAt))
	require.Equal(t, id, cur.ID)
}

func TestCursor_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"not base64":   "%%%",
		"not json":     base64.RawURLEncoding.EncodeToString([]byte("nope")),
		"missing time": base64.RawURLEncoding.EncodeToString([]byte(`{"id":"` + uuid.NewString() + `"}`)),
		"bad id":       base64.RawURLEncoding.EncodeToString([]byte(`{"createdAt":"2024-01-01T00:00:00Z","id":"x"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCursor(raw)
			require.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestPageLimit(t *testing.T) {
	require.Equal(t, 20, pageLimit("", 20, 100))
	require.Equal(t, 20, pageLimit("abc", 20, 100))
	require.Equal(t, 1, pageLimit("0", 20, 100))
	require.Equal(t, 1, pageLimit("-5", 20, 100))
	require.Equal(t, 50, pageLimit("50", 20, 100))
	require.Equal(t, 100, pageLimit("1000", 20, 100))
}
