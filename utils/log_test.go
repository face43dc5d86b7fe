//nolint:dupl
package utils_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kamalbuilds/movetracer/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var levelStrings = map[utils.LogLevel]string{
	utils.DEBUG: "debug",
	utils.INFO:  "info",
	utils.WARN:  "warn",
	utils.ERROR: "error",
}

func TestLogLevelString(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			assert.Equal(t, str, level.String())
		})
	}
}

// Tests are similar for LogLevel and Network since they
// both implement the pflag.Value and encoding.TextUnmarshaller interfaces.
func TestLogLevelSet(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			l := utils.NewLogLevel(utils.ERROR)
			require.NoError(t, l.Set(str))
			assert.Equal(t, level, *l)
		})
		uppercase := strings.ToUpper(str)
		t.Run("level "+uppercase, func(t *testing.T) {
			l := utils.NewLogLevel(utils.ERROR)
			require.NoError(t, l.Set(uppercase))
			assert.Equal(t, level, *l)
		})
	}

	t.Run("unknown log level", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.ErrorIs(t, l.Set("blah"), utils.ErrUnknownLogLevel)
	})
}

func TestLogLevelUnmarshalText(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			l := utils.NewLogLevel(utils.ERROR)
			require.NoError(t, l.UnmarshalText([]byte(str)))
			assert.Equal(t, level, *l)
		})
	}

	t.Run("unknown log level", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.ErrorIs(t, l.UnmarshalText([]byte("blah")), utils.ErrUnknownLogLevel)
	})
}

func TestLogLevelMarshal(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("json "+str, func(t *testing.T) {
			b, err := json.Marshal(level)
			require.NoError(t, err)
			assert.Equal(t, `"`+str+`"`, string(b))
		})
		t.Run("yaml "+str, func(t *testing.T) {
			b, err := yaml.Marshal(level)
			require.NoError(t, err)
			assert.Equal(t, str+"\n", string(b))
		})
	}
}

func TestLogLevelType(t *testing.T) {
	assert.Equal(t, "LogLevel", new(utils.LogLevel).Type())
}

func TestZapLogger(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("logger "+str, func(t *testing.T) {
			_, err := utils.NewZapLogger(level, true)
			require.NoError(t, err)
		})
	}

	t.Run("nop logger", func(t *testing.T) {
		log := utils.NewNopZapLogger()
		log.Debugw("ignored", "k", "v")
		log.Infof("ignored %d", 1)
	})
}
