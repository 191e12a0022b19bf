package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tweag/asset-shell/api"
)

// defaultConfigPath is parsed if it exists and no explicit config file
// was requested via flag or environment.
const defaultConfigPath = ".asset-shell.json"

type osConfigReader struct {
	configPath string
}

func (r osConfigReader) Read(config api.GlobalConfig) (api.GlobalConfig, error) {
	file, err := os.Open(r.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, api.ErrConfigNotFound
		}
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}
	return config, nil
}

// loadConfig builds the effective configuration: defaults, overlaid by
// the config file (explicit path via flag or environment, otherwise the
// default path if it exists), overlaid by any flags that were set.
func loadConfig(configPathFlag string, flagConfig api.GlobalConfig) (api.GlobalConfig, error) {
	configPath := configPathFlag
	ignoreMissing := false
	if configPath == "" {
		if configPathEnv, ok := os.LookupEnv(api.ConfigFileEnv); ok {
			configPath = configPathEnv
		} else {
			configPath = defaultConfigPath
			ignoreMissing = true
		}
	}

	fileConfig, err := readConfigFileOrDefault(configPath, ignoreMissing)
	if err != nil {
		return api.GlobalConfig{}, err
	}

	config, err := mergeConfigs(fileConfig, flagConfig)
	if err != nil {
		return api.GlobalConfig{}, err
	}
	return config, config.Validate()
}

func readConfigFileOrDefault(configPath string, ignoreMissing bool) (api.GlobalConfig, error) {
	config := api.DefaultConfig()

	config, err := api.ReadConfig(osConfigReader{configPath: configPath}, config)
	if ignoreMissing && err == api.ErrConfigNotFound {
		return config, nil
	} else if err != nil {
		return api.GlobalConfig{}, fmt.Errorf("reading config from %s: %w", configPath, err)
	}
	return config, nil
}

// mergeConfigs overlays every field of overlay that was set (serialized
// by the omitempty JSON tags) on top of base.
func mergeConfigs(base, overlay api.GlobalConfig) (api.GlobalConfig, error) {
	overlayJSON, err := json.Marshal(overlay)
	if err != nil {
		return api.GlobalConfig{}, err
	}

	decoder := json.NewDecoder(bytes.NewReader(overlayJSON))
	decoder.DisallowUnknownFields()

	merged := base
	if err := decoder.Decode(&merged); err != nil {
		return api.GlobalConfig{}, err
	}
	return merged, nil
}
