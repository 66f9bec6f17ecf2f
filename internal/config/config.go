// Package config loads the optional on-disk acceptance criteria override.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/tony-sparks-nz/Scout-GPS-Studio/internal/acceptance"
)

const criteriaFileName = "criteria.json"

// homeDir returns $HOME, or $USERPROFILE on Windows.
func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// CriteriaPath returns the path to the optional criteria override file.
func CriteriaPath() string {
	return filepath.Join(homeDir(), ".config", "scout-gps-test", criteriaFileName)
}

// LoadCriteria reads the criteria override file. If it is absent or fails to
// parse, DefaultCriteria is returned and a warning is logged; an optional
// config file degrades gracefully rather than aborting startup.
func LoadCriteria(log logrus.FieldLogger) acceptance.Criteria {
	if log == nil {
		log = logrus.New()
	}

	path := CriteriaPath()
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("config: no criteria override at %s, using defaults: %v", path, err)
		return acceptance.DefaultCriteria()
	}

	var c acceptance.Criteria
	if err := json.Unmarshal(data, &c); err != nil {
		log.Warnf("config: could not parse %s, using defaults: %v", path, err)
		return acceptance.DefaultCriteria()
	}

	log.Infof("config: loaded criteria override from %s", path)
	return c
}

// SaveCriteria writes c to the criteria override file, creating its parent
// directory on demand.
func SaveCriteria(c acceptance.Criteria) error {
	path := CriteriaPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal criteria: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write criteria file: %w", err)
	}
	return nil
}
