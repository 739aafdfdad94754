package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// File is an explicit YAML file. When empty, zbxproxy.yaml is searched
	// in DefaultConfigDir and the working directory and may be absent.
	File string
	// EnvFile is a dotenv file with secrets. When empty, DefaultEnvFile is
	// read if it exists.
	EnvFile string
	// Flags are bound according to FlagKeys. Only flags the operator set
	// override other sources.
	Flags *pflag.FlagSet
}

// Load merges defaults, the config file, the environment and flags, in
// increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("zbxproxy")
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, zerrors.NewValidationError("config", opts.File, fmt.Sprintf("cannot read configuration: %v", err))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, opts.Flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, zerrors.NewValidationError("config", v.ConfigFileUsed(), fmt.Sprintf("cannot decode configuration: %v", err))
	}
	cfg.Source = v.ConfigFileUsed()
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return zerrors.NewValidationError("env-file", path, fmt.Sprintf("cannot load environment file: %v", err))
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	var result error
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
