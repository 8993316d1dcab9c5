package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/foliolabs/folio/internal/styles"
)

const (
	configFileName  = "config.json"
	presetsFileName = "presets.yaml"
	configDirName   = "folio"
	dbFileName      = "library.db"
	logFileName     = "folio.log"

	MaxRecentlyRead = 10 // Maximum number of recently read books to track
)

// RecentlyReadEntry represents a recently read book
type RecentlyReadEntry struct {
	BookID   string    `json:"book_id"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}

// Config holds the application configuration
type Config struct {
	LibraryDir   string              `json:"library_dir,omitempty"`
	DatabasePath string              `json:"database_path,omitempty"`
	Typography   styles.Typography   `json:"typography"`
	RecentlyRead []RecentlyReadEntry `json:"recently_read,omitempty"`

	// Path to config file (not persisted)
	path string `json:"-"`
}

// Load loads configuration from the config file
func Load() (*Config, error) {
	configPath, err := getConfigPath(configFileName)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Typography: styles.DefaultTypography(),
		path:       configPath,
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		// Config doesn't exist, return defaults
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}

	cfg.path = configPath
	return cfg, nil
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// SetTypography updates the saved typography and saves
func (c *Config) SetTypography(typ styles.Typography) error {
	c.Typography = typ
	return c.Save()
}

// DatabaseFile returns the configured database path, defaulting to the
// config directory.
func (c *Config) DatabaseFile() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	return getConfigPath(dbFileName)
}

// LogFile returns the path of the application log file.
func (c *Config) LogFile() (string, error) {
	return getConfigPath(logFileName)
}

// AddRecentlyRead adds a book to the recently read list
func (c *Config) AddRecentlyRead(bookID, title string) error {
	// Remove existing entry for this book if present
	newList := make([]RecentlyReadEntry, 0, MaxRecentlyRead)
	for _, entry := range c.RecentlyRead {
		if entry.BookID != bookID {
			newList = append(newList, entry)
		}
	}

	// Add new entry at the front
	entry := RecentlyReadEntry{
		BookID:   bookID,
		Title:    title,
		OpenedAt: time.Now(),
	}
	c.RecentlyRead = append([]RecentlyReadEntry{entry}, newList...)

	// Trim to max size
	if len(c.RecentlyRead) > MaxRecentlyRead {
		c.RecentlyRead = c.RecentlyRead[:MaxRecentlyRead]
	}

	return c.Save()
}

// GetRecentlyReadIDs returns the list of recently read book IDs
func (c *Config) GetRecentlyReadIDs() []string {
	ids := make([]string, len(c.RecentlyRead))
	for i, entry := range c.RecentlyRead {
		ids[i] = entry.BookID
	}
	return ids
}

// Preset is a named typography configuration.
type Preset struct {
	Name       string            `yaml:"name"`
	Typography styles.Typography `yaml:"typography"`
}

// LoadPresets loads the typography presets from the user's presets.yaml,
// falling back to the built-in presets when the file is absent.
func LoadPresets() ([]Preset, error) {
	path, err := getConfigPath(presetsFileName)
	if err != nil {
		return DefaultPresets(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPresets(), nil
	}
	if err != nil {
		return nil, err
	}

	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(doc.Presets) == 0 {
		return DefaultPresets(), nil
	}
	return doc.Presets, nil
}

// DefaultPresets are the built-in typography presets.
func DefaultPresets() []Preset {
	compact := styles.DefaultTypography()
	compact.FontSize = 14
	compact.LineHeight = 1.2
	compact.ParagraphSpacing = 0

	relaxed := styles.DefaultTypography()
	relaxed.FontSize = 18
	relaxed.LineHeight = 1.8
	relaxed.MarginHorizontal = 6

	night := styles.DefaultTypography()
	night.ThemeID = "true-black"

	return []Preset{
		{Name: "default", Typography: styles.DefaultTypography()},
		{Name: "compact", Typography: compact},
		{Name: "relaxed", Typography: relaxed},
		{Name: "night", Typography: night},
	}
}

// getConfigPath returns the path of a file inside the config directory
func getConfigPath(file string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, file), nil
}
