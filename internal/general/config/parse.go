package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"

	"github.com/drone/envsubst"
	"github.com/subosito/gotenv"
	"go.yaml.in/yaml/v4"
)

// envFile is loaded (if present) before ${VAR:-default} expansion.
var envFile = ".env"

// parse expands environment references in data and decodes it as YAML.
// Unknown keys are rejected so typos surface at startup.
func parse(data []byte) (*Config, error) {
	if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	expanded, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}
