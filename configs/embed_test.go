package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/notesearch/internal/config"
)

func TestUserConfigTemplate_ParsesAsConfig(t *testing.T) {
	require.NotEmpty(t, UserConfigTemplate)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(UserConfigTemplate), &cfg))

	assert.Equal(t, "bleve", cfg.Backend)
	assert.Equal(t, []string{".md"}, cfg.Extensions)
	assert.Equal(t, "500ms", cfg.Watch.Debounce)
	assert.Equal(t, 3, cfg.Search.MinQueryLength)
}
