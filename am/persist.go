package am

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/daytime"
	"github.com/teranos/cadence/logger"
)

// operatorConfigName holds settings changed through the operator surface.
// It is merged last among files, so operator edits win over am.toml.
const operatorConfigName = "am_from_operator.toml"

// GetOperatorConfigPath returns ~/.cadence/am_from_operator.toml
func GetOperatorConfigPath() string {
	if path := os.Getenv("CADENCE_OPERATOR_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cadence", operatorConfigName)
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", "file", back3, "error", err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOperatorConfig reads the operator config file as a generic table,
// returning an empty one when the file does not exist yet.
func loadOperatorConfig(configPath string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read operator config")
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse operator config")
	}
	return config, nil
}

// saveOperatorConfig writes the table with backup and own-write marking
func saveOperatorConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Prevent the in-process watcher from reloading our own write
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write operator config")
	}

	return nil
}

// updateScheduleKey sets one key of the [schedule] table in the operator config
func updateScheduleKey(configPath, key string, value interface{}) error {
	if configPath == "" {
		return errors.New("could not determine operator config path")
	}

	config, err := loadOperatorConfig(configPath)
	if err != nil {
		return err
	}

	schedule, ok := config["schedule"].(map[string]interface{})
	if !ok {
		schedule = make(map[string]interface{})
	}
	schedule[key] = value
	config["schedule"] = schedule

	return saveOperatorConfig(config, configPath)
}

// UpdateScheduleTimes validates and persists schedule.times to the operator
// config. A running daemon watching that file picks the change up.
func UpdateScheduleTimes(configPath string, times []string) error {
	parsed, err := daytime.ParseSet(times)
	if err != nil {
		return err
	}
	return updateScheduleKey(configPath, "times", daytime.Strings(parsed))
}

// UpdateScheduleEnabled persists schedule.enabled to the operator config.
func UpdateScheduleEnabled(configPath string, enabled bool) error {
	return updateScheduleKey(configPath, "enabled", enabled)
}
