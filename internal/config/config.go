// Package config loads the lantern TOML configuration file into the
// generic map every section is decoded from, the same two-step shape
// (toml.Unmarshal into map[string]interface{}, then mapstructure.Decode
// per section into a typed struct) used throughout the daemon.
package config

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Read parses the TOML document in r into a generic section map.
func Read(r io.Reader) (map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: error reading from reader")
	}

	v := map[string]interface{}{}
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "config: error decoding toml data")
	}
	return v, nil
}

// Decode decodes the section named key of v into dst using mapstructure.
// A missing section decodes into dst's zero value without error.
func Decode(v map[string]interface{}, key string, dst interface{}) error {
	section, ok := v[key]
	if !ok {
		return nil
	}
	if err := mapstructure.Decode(section, dst); err != nil {
		return errors.Wrapf(err, "config: error decoding section %q", key)
	}
	return nil
}
