package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultListName       = "Inbox"
	DefaultListColor      = "#3b82f6"
	DefaultAddr           = "127.0.0.1:8765"
	DefaultStatsDays      = 30
	DefaultReminderWindow = "1h"

	EnvConfigPath = "PLANDO_CONFIG"
	EnvAddr       = "PLANDO_ADDR"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Detail       string `toml:"detail"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	Edit         string `toml:"edit"`
	PriorityUp   string `toml:"priority_up"`
	PriorityDown string `toml:"priority_down"`
	DueForward   string `toml:"due_forward"`
	DueBack      string `toml:"due_back"`
	NextList     string `toml:"next_list"`
	Filter       string `toml:"filter"`
	Stats        string `toml:"stats"`
	Export       string `toml:"export"`
	Import       string `toml:"import"`
	Remind       string `toml:"remind"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Config struct {
	DefaultList      string `toml:"default_list"`
	DefaultListColor string `toml:"default_list_color"`
	SeedDefaultList  bool   `toml:"seed_default_list"`
	BackupDir        string `toml:"backup_dir"`
	StatsDays        int    `toml:"stats_days"`
	ReminderWindow   string `toml:"reminder_window"`
	DefaultFilter    string `toml:"default_filter"`
	Server           Server `toml:"server"`
	Keys             Keymap `toml:"keys"`
}

// ResolveConfigPath picks the config file: $PLANDO_CONFIG, then
// $XDG_CONFIG_HOME/plando, then ~/.config/plando, then the working
// directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "plando", DefaultConfigFileName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", "plando", DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.DefaultList == "" {
		c.DefaultList = DefaultListName
	}
	if c.StatsDays <= 0 {
		c.StatsDays = DefaultStatsDays
	}
	if _, err := time.ParseDuration(c.ReminderWindow); err != nil {
		c.ReminderWindow = DefaultReminderWindow
	}
	switch c.DefaultFilter {
	case "all", "pending", "completed":
	default:
		c.DefaultFilter = "all"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

// Window returns reminder_window as a duration.
func (c Config) Window() time.Duration {
	d, err := time.ParseDuration(c.ReminderWindow)
	if err != nil {
		d, _ = time.ParseDuration(DefaultReminderWindow)
	}
	return d
}

// ResolveBackupDir returns backup_dir, defaulting to a backups directory
// next to the config file.
func (c Config) ResolveBackupDir(configPath string) string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(configPath), "backups")
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DefaultList:      DefaultListName,
		DefaultListColor: DefaultListColor,
		SeedDefaultList:  true,
		StatsDays:        DefaultStatsDays,
		ReminderWindow:   DefaultReminderWindow,
		DefaultFilter:    "all",
		Server:           Server{Addr: DefaultAddr},
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Detail:       "enter",
			Confirm:      "enter",
			Cancel:       "esc",
			Edit:         "e",
			PriorityUp:   "+",
			PriorityDown: "-",
			DueForward:   "]",
			DueBack:      "[",
			NextList:     "tab",
			Filter:       "f",
			Stats:        "s",
			Export:       "x",
			Import:       "i",
			Remind:       "r",
		},
	}
}
