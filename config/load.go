package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MACROSS_STRATEGY_FAST_PERIOD.
const EnvPrefix = "MACROSS"

// Load reads configuration like Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges defaults, an optional file (YAML or JSON) and the environment,
// in increasing precedence, without validating the result. A .env file in
// the working directory is loaded into the environment first if present.
func Read(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// setDefaults registers every key of d with v so that environment
// overrides apply even to keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal defaults")
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return errors.Wrap(err, "unmarshal defaults")
	}
	walk("", m, v.SetDefault)
	return nil
}

func walk(prefix string, m map[string]any, set func(string, any)) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walk(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// LoadFromFile is Load for a required file path.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}
	return Load(path)
}
