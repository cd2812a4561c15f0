package rhttpd_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/advdv/rhttp/rhttpd"
)

type testEnv struct{ rhttpd.BaseEnvironment }

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("RHTTP_PORT", "8080")

	env, err := rhttpd.ParseEnv[testEnv]()()
	require.NoError(t, err)

	require.Equal(t, 8080, env.Port)
	require.Equal(t, "rhttpd", env.ServiceName)
	require.Equal(t, zapcore.InfoLevel, env.LogLevel)
	require.Equal(t, "utf-8", env.Encoding)
	require.False(t, env.ExposeErrorDetail)
	require.Equal(t, 30*time.Second, env.ReadTimeout)
	require.Equal(t, 120*time.Second, env.IdleTimeout)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("RHTTP_PORT", "9999")
	t.Setenv("RHTTP_LOG_LEVEL", "debug")
	t.Setenv("RHTTP_EXPOSE_ERROR_DETAIL", "true")
	t.Setenv("RHTTP_ENCODING", "latin1")

	env, err := rhttpd.ParseEnv[testEnv]()()
	require.NoError(t, err)

	require.Equal(t, 9999, env.Port)
	require.Equal(t, zapcore.DebugLevel, env.LogLevel)
	require.True(t, env.ExposeErrorDetail)
	require.Equal(t, "latin1", env.Encoding)
}

func TestParseEnvMissingPort(t *testing.T) {
	_, err := rhttpd.ParseEnv[testEnv]()()
	require.Error(t, err)
}
