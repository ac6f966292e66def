package qls

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is where the research-cloud environment drops the
// workspace configuration.
const DefaultConfigPath = "/etc/src_quantum.json"

/*
Config identifies the cloud workspace a run belongs to and carries the
polling cadence for remote jobs.
*/
type Config struct {
	WorkspaceID  string
	Subscription string
	PollInterval time.Duration
}

// LoadConfig reads the JSON workspace configuration from path.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("poll_interval_seconds", 10)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		WorkspaceID:  v.GetString("workspace_id"),
		Subscription: v.GetString("subscription"),
		PollInterval: time.Duration(v.GetInt("poll_interval_seconds")) * time.Second,
	}
	if cfg.WorkspaceID == "" {
		return nil, fmt.Errorf("config %s has no workspace_id", path)
	}
	return cfg, nil
}

// Tags labels cloud resources with the owning workspace.
func (c *Config) Tags() map[string]string {
	return map[string]string{
		"workspace_id": c.WorkspaceID,
		"subscription": c.Subscription,
	}
}

// S3Folder returns the bucket and key prefix job artifacts are written to.
func (c *Config) S3Folder(prefix string) (bucket, key string) {
	return fmt.Sprintf("amazon-braket-%s", c.WorkspaceID), prefix
}
