package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# gammarpc server configuration.
#
# Every key can be overridden with an environment variable:
#   GAMMARPC_<SECTION>_<KEY>, e.g. GAMMARPC_SERVER_PORT=4000
#
`

// sampleServer mirrors ServerConfig with the duration rendered as a
// human-readable string ("10s") instead of raw nanoseconds.
type sampleServer struct {
	BindAddress     string `yaml:"bind_address"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type sample struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  sampleServer  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
}

func sampleFrom(cfg *Config) sample {
	return sample{
		Logging: cfg.Logging,
		Server: sampleServer{
			BindAddress:     cfg.Server.BindAddress,
			Port:            cfg.Server.Port,
			MaxConnections:  cfg.Server.MaxConnections,
			ShutdownTimeout: cfg.Server.ShutdownTimeout.String(),
		},
		Metrics: cfg.Metrics,
	}
}

// InitConfig writes a commented sample configuration file at path,
// refusing to overwrite an existing file unless force is set.
func InitConfig(path string, force bool) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %q already exists (use force to overwrite)", path)
	}

	body, err := yaml.Marshal(sampleFrom(Default()))
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory %q: %w", dir, err)
		}
	}

	content := append([]byte(sampleHeader), body...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write config file %q: %w", path, err)
	}
	return nil
}
