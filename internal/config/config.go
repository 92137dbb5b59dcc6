// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/BurntSushi/toml"
)

// envPrefix is the prefix of environment variables overriding single
// database fields (e.g. PROXYGUARD_DB_PATH, PROXYGUARD_DB_ENGINE).
const envPrefix = "PROXYGUARD"

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("GO_PROXYGUARD_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	mergeEnvOverrides(&c)

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// mergeEnvOverrides applies single-field environment overrides on top of the
// file based configuration. Container deployments set these instead of
// mounting a full config file.
func mergeEnvOverrides(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if engine := v.GetString("db.engine"); engine != "" {
		c.DB.Engine = engine
	}

	if path := v.GetString("db.path"); path != "" {
		c.DB.Path = path
	}

	if host := v.GetString("db.host"); host != "" {
		c.DB.Host = host
	}

	if port := v.GetInt("db.port"); port != 0 {
		c.DB.Port = port
	}

	if user := v.GetString("db.user"); user != "" {
		c.DB.User = user
	}

	if password := v.GetString("db.password"); password != "" {
		c.DB.Password = password
	}

	if name := v.GetString("db.name"); name != "" {
		c.DB.Name = name
	}
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings for the store.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.DB.Engine == "" {
		c.DB.Engine = EngineSQLite // sqlite needs no server settings
	}

	switch c.DB.Engine {
	case EngineSQLite:
		return nil
	case EngineMySQL, EnginePostgres:
		if c.DB.Host == "" {
			return errors.Wrap(ErrEmptyDBHost, invalidErrMessage)
		}

		if c.DB.Name == "" {
			return errors.Wrap(ErrEmptyDBName, invalidErrMessage)
		}

		return nil
	default:
		return errors.Wrap(ErrUnknownDBEngine, invalidErrMessage)
	}
}
