package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeConfigNormalize(t *testing.T) {
	t.Run("NilYieldsDefaults", func(t *testing.T) {
		var theme ThemeConfig
		normalized := theme.Normalize()
		assert.Equal(t, DefaultThemeConfig(), normalized)
	})

	t.Run("OverridesMergeOverDefaults", func(t *testing.T) {
		theme := ThemeConfig{"color": "#000000", "custom_key": "kept"}
		normalized := theme.Normalize()

		assert.Equal(t, "#000000", normalized["color"])
		assert.Equal(t, "kept", normalized["custom_key"])
		// untouched defaults remain
		assert.Equal(t, "rounded", normalized["button_style"])
		assert.Equal(t, "solid", normalized["background"])
	})
}

func TestThemeConfigScan(t *testing.T) {
	t.Run("FromBytes", func(t *testing.T) {
		var theme ThemeConfig
		require.NoError(t, theme.Scan([]byte(`{"color":"#ffffff"}`)))
		assert.Equal(t, "#ffffff", theme["color"])
	})

	t.Run("NilBecomesEmpty", func(t *testing.T) {
		var theme ThemeConfig
		require.NoError(t, theme.Scan(nil))
		assert.NotNil(t, theme)
		assert.Empty(t, theme)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		var theme ThemeConfig
		assert.Error(t, theme.Scan(42))
	})
}
