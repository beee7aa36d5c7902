package conf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChannelMap_YAML(t *testing.T) {
	path := writeFile(t, "channels.yaml", "家電:\n  yamada: ヤマダデンキ\n  bic: ビックカメラ・コジマ\nドラッグ:\n  matsukiyo: マツモトキヨシ\n")

	m, err := LoadChannelMap(path)
	require.NoError(t, err)
	assert.Equal(t, "ヤマダデンキ", m["家電"]["yamada"])
	assert.Equal(t, "マツモトキヨシ", m["ドラッグ"]["matsukiyo"])
}

func TestLoadChannelMap_JSON(t *testing.T) {
	path := writeFile(t, "channels.json", `{"家電": {"yodobashi": "ヨドバシカメラ"}}`)

	m, err := LoadChannelMap(path)
	require.NoError(t, err)
	assert.Equal(t, "ヨドバシカメラ", m["家電"]["yodobashi"])
}

func TestLoadChannelMap_Missing(t *testing.T) {
	m, err := LoadChannelMap(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = LoadChannelMap("")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadChannelMap_Invalid(t *testing.T) {
	path := writeFile(t, "channels.yaml", "- just\n- a list\n")
	_, err := LoadChannelMap(path)
	assert.Error(t, err)
}
