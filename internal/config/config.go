// Package config loads and writes STRQL's CLI configuration file.
//
// Load uses Viper's multi-source layering (env > file > defaults); no
// command-line flags are bound into it. Init writes a starter file with yaml.v3 directly rather than
// routing through Viper.
package config

import (
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the shape of .strql.yaml: named, reusable queries plus default
// CLI behavior.
type Config struct {
	Name    string            `yaml:"name"`
	Queries map[string]string `yaml:"queries"`
	Output  OutputConfig      `yaml:"output"`
}

// OutputConfig holds output preferences. `strql run` does not read them:
// its JSON layout comes from the --compact flag alone.
type OutputConfig struct {
	Pretty bool `yaml:"pretty"`
	Color  bool `yaml:"color"`
}

func defaultConfig() Config {
	return Config{
		Name:    "strql",
		Queries: map[string]string{},
		Output:  OutputConfig{Pretty: true, Color: true},
	}
}

// Load reads path via Viper (so STRQL_* environment variables can override
// individual fields) and unmarshals into Config. A missing file yields the
// defaults, matching the CLI's zero-config ergonomics.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("STRQL")
	v.AutomaticEnv()
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.color", true)

	cfg := defaultConfig()
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &cfg, nil
		}
		return nil, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes a starter configuration file at path, grounded on
// gnoverse-tlin's initConfigurationFile.
func Init(path string) error {
	if path == "" {
		path = ".strql.yaml"
	}
	cfg := defaultConfig()
	cfg.Queries["example"] = `TEXT = x; x = WORD -> ADD TO ROOT.word`

	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(d)
	return err
}
