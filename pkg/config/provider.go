// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from. Both fields are
	// optional; the zero value searches the platform config directory and
	// then the working directory.
	LoadOptions struct {
		// ConfigFilePath names the config file to read; it must exist.
		ConfigFilePath string
		// ConfigDirPath replaces the platform config directory in the search.
		ConfigDirPath string
	}

	// Loaded is a validated configuration together with its origin.
	Loaded struct {
		Config *Config
		// Path is the config file that was read, empty when only defaults
		// and environment variables applied.
		Path string
	}

	// Provider loads layered configuration (defaults, CUE file, environment).
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Loaded, error)
	}

	layeredProvider struct{}
)

// NewProvider returns the Provider backed by viper and the embedded schema.
func NewProvider() Provider {
	return layeredProvider{}
}

// Load resolves, validates and layers the configuration selected by opts.
func (layeredProvider) Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	cfg, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Loaded{Config: cfg, Path: path}, nil
}
