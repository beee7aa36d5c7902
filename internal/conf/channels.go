package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/extract"
)

// LoadChannelMap reads the category -> synonym -> chain map.
// JSON files parse too. A missing file yields an empty map.
func LoadChannelMap(path string) (extract.ChannelMap, error) {
	if path == "" {
		return extract.ChannelMap{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return extract.ChannelMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var m extract.ChannelMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if m == nil {
		m = extract.ChannelMap{}
	}
	return m, nil
}
