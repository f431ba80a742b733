// Package config loads the optional compliance-defaults file consumed by the
// synthesis CLI: organization-wide tags, the sensitive-data identifiers to
// audit and mask in log output, and baseline retention settings. Constructs
// take these values through their props; nothing here talks to the CDK.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	Compliance struct {
		AppName string `json:"app" yaml:"app"`

		// Tags are applied to every construct the library creates, in
		// addition to the construct's own standard tags.
		Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

		// DataIdentifiers seed the data-protection policy attached to log
		// groups and topics. Short names refer to AWS managed identifiers.
		DataIdentifiers []string `json:"data_identifiers,omitempty" yaml:"data_identifiers,omitempty"`

		LogRetentionDays int `json:"log_retention_days,omitempty" yaml:"log_retention_days,omitempty"`

		// RetainResources keeps stateful resources (keys, buckets, tables)
		// on stack deletion. Defaults to true.
		RetainResources *bool `json:"retain_resources,omitempty" yaml:"retain_resources,omitempty"`
	}
)

func ReadConfig(fpath string) (Compliance, error) {
	var cfg Compliance

	f, err := os.Open(fpath)
	if err != nil {
		return cfg, err
	}
	defer f.Close() // nolint:errcheck

	switch ext := filepath.Ext(fpath); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(&cfg)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&cfg)
	default:
		err = errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return cfg, err
	}
	if cfg.AppName == "" {
		return cfg, errors.Errorf("config %s: 'app' is required", fpath)
	}
	return cfg, nil
}

// ValueOrDefault returns value unless it is the zero value for its type.
func ValueOrDefault[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
