// This file is part of gpx-tracker (https://github.com/spezifisch/gpx-tracker).
// Copyright (C) 2021-2022 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.


package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. GPXTRACKER_STORE_DIR.
const EnvPrefix = "GPXTRACKER"

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Upload UploadConfig `mapstructure:"upload"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig selects the logrus level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// StoreConfig points to the directory holding the recorded track logs.
type StoreConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// UploadConfig points the upload command to a sharing server.
type UploadConfig struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ServerConfig configures the upload server run by the serve command.
type ServerConfig struct {
	Addr          string `mapstructure:"addr" validate:"required"`
	Root          string `mapstructure:"root" validate:"required"`
	PublicURL     string `mapstructure:"public_url" validate:"omitempty,url"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=1"`
	BodyLimit     int    `mapstructure:"body_limit" validate:"gte=0"`
	Validate      bool   `mapstructure:"validate"`
}

// Retention returns the upload retention as a duration.
func (s ServerConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// flagKeys maps command line flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"dir":        "store.dir",
	"url":        "upload.url",
	"timeout":    "upload.timeout",
	"addr":       "server.addr",
	"root":       "server.root",
	"public-url": "server.public_url",
	"retention":  "server.retention_days",
	"validate":   "server.validate",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	})
	return v
}

// Load reads configuration from defaults, the YAML file at path and the
// environment, in increasing order of precedence. Flags of the given set
// that were set on the command line win over everything else. An empty path
// looks for an optional gpxtracker.yaml in the working directory.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.dir", ".")
	v.SetDefault("upload.url", "")
	v.SetDefault("upload.timeout", "30s")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.root", "./data")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.retention_days", 7)
	v.SetDefault("server.body_limit", 4*1024*1024)
	v.SetDefault("server.validate", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("gpxtracker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// GPXTRACKER_SERVER_PUBLIC_URL → server.public_url
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks all fields and reports every problem at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the leading struct name
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if fe.Param() != "" {
			errs = append(errs, fmt.Sprintf("%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			errs = append(errs, fmt.Sprintf("%s must satisfy %s, got %q", key, fe.Tag(), fmt.Sprint(fe.Value())))
		}
	}
	return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
}
