package am

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/cadence/am.toml
	SourceUser        ConfigSource = "user"        // ~/.cadence/am.toml
	SourceProject     ConfigSource = "project"     // am.toml found walking up from cwd
	SourceOperator    ConfigSource = "operator"    // ~/.cadence/am_from_operator.toml
	SourceEnvironment ConfigSource = "environment" // CADENCE_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// ConfigSources is filled by mergeConfigFiles while loading.
var ConfigSources = make(map[string]SourceInfo)

// SettingInfo is one effective setting and its origin
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// Settings returns every effective setting sorted by key, with the layer it
// came from. Credential values are masked.
func Settings() []SettingInfo {
	v := GetViper()

	keys := v.AllKeys()
	sort.Strings(keys)

	out := make([]SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}

		envKey := "CADENCE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if os.Getenv(envKey) != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		value := v.Get(key)
		if isSecretKey(key) && value != "" {
			value = "********"
		}

		out = append(out, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return out
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "password") || strings.HasSuffix(key, "token")
}
