package config

import (
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type tomlParser struct{}

// TOMLParser adapts go-toml to koanf's Parser interface.
func TOMLParser() koanf.Parser {
	return &tomlParser{}
}

func (p *tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "parse toml")
	}
	return out, nil
}

func (p *tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return toml.Marshal(m)
}
