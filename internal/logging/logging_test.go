package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("json output outside DEV", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter(&buf, "PROD", "debug")
		log.Debug().Str("component", "test").Msg("hello")
		require.Contains(t, buf.String(), `"message":"hello"`)
		require.Contains(t, buf.String(), `"component":"test"`)
	})

	t.Run("level filters lower events", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter(&buf, "PROD", "warn")
		log.Info().Msg("hidden")
		require.Empty(t, buf.String())
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter(&buf, "PROD", "loud")
		log.Info().Msg("visible")
		require.Contains(t, buf.String(), "visible")
	})
}
