package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvFileVariable names the variable consulted when no -env flag is given.
const EnvFileVariable = "ENV_FILE"

const defaultEnvFile = ".env"

var (
	envFilePath string
	parseOnce   sync.Once

	loadMu sync.Mutex
	loaded = map[string]struct{}{}
)

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New fills T from the environment under prefix. The env file, if any, is
// exported first; variables already set in the process win over the file.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(resolveEnvPath()); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("config %s: %w", prefix, err)
	}

	return &conf, nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	if path := strings.TrimSpace(envFilePath); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(EnvFileVariable))
}

// loadEnvFile exports path once per process. An empty path falls back to an
// optional ./.env.
func loadEnvFile(path string) error {
	optional := path == ""
	if optional {
		path = defaultEnvFile
	}

	loadMu.Lock()
	defer loadMu.Unlock()
	if _, ok := loaded[path]; ok {
		return nil
	}

	if optional {
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
			loaded[path] = struct{}{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load default env file: %w", err)
		}
	}

	if err := exportEnvironment(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	loaded[path] = struct{}{}
	return nil
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}

	return nil
}
