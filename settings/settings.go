// Package settings loads connpool.Config from a YAML file kept in an
// application data directory.
//
// On first use the bundled template is copied into the data directory so
// that an operator can fill in the credentials. Keys present in the file
// override the defaults of connpool.DefaultConfig; absent keys keep them.
package settings

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yuku/connpool"
)

// FileName is the name of the settings file inside the data directory.
const FileName = "mysql.yml"

//go:embed template/*.yml
var templates embed.FS

// document mirrors the settings file. Pointer fields distinguish absent
// keys from zero values.
type document struct {
	Driver          *string        `yaml:"driver"`
	Host            *string        `yaml:"host"`
	Port            *int           `yaml:"port"`
	Database        *string        `yaml:"database"`
	Username        *string        `yaml:"username"`
	Password        *string        `yaml:"password"`
	MaxPoolSize     *int           `yaml:"max_pool_size"`
	AcquireTimeout  *time.Duration `yaml:"acquire_timeout"`
	ConnMaxLifetime *time.Duration `yaml:"conn_max_lifetime"`
}

// Load reads dataDir/FileName, creating it from the bundled template when
// it does not exist, and returns the validated configuration.
func Load(dataDir string, logger *zap.Logger) (*connpool.Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := EnsureFile(dataDir, FileName, logger)
	if err != nil {
		logger.Error("unable to create settings file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is built from the caller's data directory
	if err != nil {
		logger.Error("unable to load settings file", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := Decode(data)
	if err != nil {
		logger.Error("settings file is invalid", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the keys present in data on the default configuration and
// validates the result. A document missing database, username or password
// fails with an error wrapping connpool.ErrIncompleteConfig.
func Decode(data []byte) (*connpool.Config, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := connpool.DefaultConfig()
	doc.applyTo(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (d *document) applyTo(cfg *connpool.Config) {
	if d.Driver != nil && *d.Driver != "" && *d.Driver != cfg.Driver {
		cfg.Driver = *d.Driver
		cfg.Port = 0
	}
	if d.Host != nil && *d.Host != "" {
		cfg.Hostname = *d.Host
	}
	if d.Port != nil {
		cfg.Port = *d.Port
	}
	if d.Database != nil {
		cfg.Database = *d.Database
	}
	if d.Username != nil {
		cfg.Username = *d.Username
	}
	if d.Password != nil {
		cfg.Password = *d.Password
	}
	if d.MaxPoolSize != nil {
		cfg.MaxPoolSize = *d.MaxPoolSize
	}
	if d.AcquireTimeout != nil {
		cfg.AcquireTimeout = *d.AcquireTimeout
	}
	if d.ConnMaxLifetime != nil {
		cfg.ConnMaxLifetime = *d.ConnMaxLifetime
	}
}

// EnsureFile makes sure dataDir/name exists, copying the bundled template of
// the same name when it does not. An existing file is never overwritten.
// It returns the path of the file.
func EnsureFile(dataDir, name string, logger *zap.Logger) (string, error) {
	if name == "" {
		return "", errors.New("settings file name must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	name = filepath.ToSlash(name)
	path := filepath.Join(dataDir, filepath.FromSlash(name))

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := templates.ReadFile("template/" + name)
	if err != nil {
		return path, fmt.Errorf("the embedded template %q cannot be found: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			logger.Warn("settings file already exists, not overwriting", zap.String("path", path))
			return path, nil
		}
		return path, fmt.Errorf("could not save %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("could not save %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("could not save %s: %w", path, err)
	}

	logger.Info("created settings file from template", zap.String("path", path))
	return path, nil
}

// substituteEnvVars replaces ${NAME} with the value of the environment
// variable NAME. A bare $ is left alone.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
