package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zerolog.Disabled, ParseLevel("off"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestInit_JSONComponent(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	log := Component("chatsync")
	log.Debug().Msg("hello")

	require.Contains(t, buf.String(), `"component":"chatsync"`)
	require.Contains(t, buf.String(), `"message":"hello"`)
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var global, scoped bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &global})

	l := FromContext(context.Background())
	l.Info().Msg("global")
	require.Contains(t, global.String(), "global")

	ctx := WithContext(context.Background(), zerolog.New(&scoped))
	l = FromContext(ctx)
	l.Info().Msg("scoped")
	require.Contains(t, scoped.String(), "scoped")
	require.NotContains(t, global.String(), "scoped")
}
