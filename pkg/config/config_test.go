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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func defaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Store:  StoreConfig{Dir: "."},
		Upload: UploadConfig{Timeout: 30 * time.Second},
		Server: ServerConfig{
			Addr:          ":8080",
			Root:          "./data",
			RetentionDays: 7,
			BodyLimit:     4 * 1024 * 1024,
			Validate:      true,
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpxtracker.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// keep a stray config file in the package directory out of the way
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := defaultConfig(); !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if got.Server.Retention() != 7*24*time.Hour {
		t.Errorf("Retention() = %v", got.Server.Retention())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
store:
  dir: /var/lib/gpxtracker
upload:
  url: https://upload.example.org/
  timeout: 5s
server:
  public_url: https://files.example.org
  retention_days: 14
  validate: false
`)

	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := defaultConfig()
	want.Log = LogConfig{Level: "debug", Format: "json"}
	want.Store.Dir = "/var/lib/gpxtracker"
	want.Upload = UploadConfig{URL: "https://upload.example.org/", Timeout: 5 * time.Second}
	want.Server.PublicURL = "https://files.example.org"
	want.Server.RetentionDays = 14
	want.Server.Validate = false
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
store:
  dir: from-file
server:
  addr: ":9000"
  root: from-file
`)
	t.Setenv("GPXTRACKER_STORE_DIR", "from-env")
	t.Setenv("GPXTRACKER_SERVER_ROOT", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	flags.String("root", "from-flag-default", "")
	flags.Duration("timeout", time.Second, "")
	if err := flags.Parse([]string{"--dir", "from-flag", "--timeout", "1m"}); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Store.Dir != "from-flag" {
		t.Errorf("store.dir = %q, want flag value", got.Store.Dir)
	}
	if got.Server.Root != "from-env" {
		t.Errorf("server.root = %q, want env value", got.Server.Root)
	}
	if got.Server.Addr != ":9000" {
		t.Errorf("server.addr = %q, want file value", got.Server.Addr)
	}
	if got.Upload.Timeout != time.Minute {
		t.Errorf("upload.timeout = %v, want 1m", got.Upload.Timeout)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr []string
	}{
		{
			name:    "broken yaml",
			content: "store: [",
			wantErr: []string{"read config"},
		},
		{
			name: "invalid values",
			content: `
log:
  level: loud
  format: xml
upload:
  url: not a url
server:
  retention_days: 0
`,
			wantErr: []string{
				"config validation failed",
				"log.level must satisfy oneof",
				"log.format must satisfy oneof",
				"upload.url must satisfy url",
				"server.retention_days must satisfy gte=1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			if err == nil {
				t.Fatal("Load() returned no error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Load() error = %q, want it to contain %q", err, want)
				}
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("Load() of missing file returned no error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() of defaults = %v", err)
	}

	cfg.Store.Dir = ""
	cfg.Server.Addr = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() returned no error")
	}
	for _, want := range []string{"store.dir must satisfy required", "server.addr must satisfy required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %q, want it to contain %q", err, want)
		}
	}
}
