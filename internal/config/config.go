package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const (
	SensorSimulated = "simulated"
	SensorFile      = "file"
)

type ValveConfig struct {
	Pipe       int  `json:"pipe" yaml:"pipe"`
	Pin        int  `json:"pin" yaml:"pin"`
	ActiveHigh bool `json:"active_high" yaml:"active_high"`
}

type Config struct {
	ConfigFile string        `json:"-" yaml:"-"`
	DBPath     string        `json:"-" yaml:"-"`
	LogLevel   zerolog.Level `json:"-" yaml:"-"`

	TimeUnitMS   int  `json:"time_unit_ms" yaml:"time_unit_ms"`
	WaterSeconds int  `json:"water_seconds" yaml:"water_seconds"`
	SafeMode     bool `json:"safe_mode" yaml:"safe_mode"`

	SensorSource  string `json:"sensor_source" yaml:"sensor_source"`
	SensorFile    string `json:"sensor_file" yaml:"sensor_file"`
	SensorRetries int    `json:"sensor_retries" yaml:"sensor_retries"`

	Valves []ValveConfig `json:"valves" yaml:"valves"`

	APIPort int `json:"api_port" yaml:"api_port"`

	EnableDatadog bool     `json:"enable_datadog" yaml:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr" yaml:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace" yaml:"dd_namespace"`
	DDTags        []string `json:"dd_tags" yaml:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic" yaml:"ntfy_topic"`

	BootScriptPath  string `json:"boot_script_path" yaml:"boot_script_path"`
	OSServicePath   string `json:"os_service_path" yaml:"os_service_path"`
	MainServicePath string `json:"main_service_path" yaml:"main_service_path"`
	LogFile         string `json:"log_file" yaml:"log_file"`
}

func Load() Config {
	var (
		configFile string
		dbPath     string
		logLevel   string
	)

	flag.StringVar(&configFile, "config-file", "config.json", "Path to controller config file (.json, .yaml or .yml)")
	flag.StringVar(&dbPath, "db", "data/irrigation.db", "Path to the SQLite audit database")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := parseFile(configFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	cfg.ConfigFile = configFile
	cfg.DBPath = dbPath
	cfg.LogLevel = parseLogLevel(logLevel)

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

// LoadFile reads a config file without touching flags. Invalid configs are
// reported as errors rather than panics.
func LoadFile(path string) (Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return cfg, err
	}
	cfg.ConfigFile = path
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.TimeUnitMS <= 0 {
		cfg.TimeUnitMS = 1000
	}
	if cfg.WaterSeconds <= 0 {
		cfg.WaterSeconds = 10
	}
	if cfg.SensorSource == "" {
		cfg.SensorSource = SensorSimulated
	}
	if cfg.SensorRetries <= 0 {
		cfg.SensorRetries = 3
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
	if cfg.DDAgentAddr == "" {
		cfg.DDAgentAddr = "127.0.0.1:8125"
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "irrigation."
	}
	if cfg.BootScriptPath == "" {
		cfg.BootScriptPath = "/usr/local/bin/irrigation-valves-off.sh"
	}
}

func (cfg *Config) validate() {
	if err := cfg.check(); err != nil {
		panic(err.Error())
	}
}

func (cfg *Config) check() error {
	var (
		missing   []string
		conflicts []string
		usedPins  = map[int]int{}
		seenPipes = map[int]bool{}
	)

	for _, v := range cfg.Valves {
		if v.Pipe <= 0 || v.Pipe > 255 {
			conflicts = append(conflicts, fmt.Sprintf("pipe %d is out of range", v.Pipe))
			continue
		}
		if seenPipes[v.Pipe] {
			conflicts = append(conflicts, fmt.Sprintf("pipe %d configured twice", v.Pipe))
		}
		seenPipes[v.Pipe] = true

		if other, exists := usedPins[v.Pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("pipes %d and %d both use pin %d", v.Pipe, other, v.Pin))
		} else {
			usedPins[v.Pin] = v.Pipe
		}
	}

	for _, p := range []model.PipeID{model.SoilPipe, model.WeatherPipe} {
		if !seenPipes[int(p)] {
			missing = append(missing, "valve for pipe "+p.String())
		}
	}

	switch cfg.SensorSource {
	case SensorSimulated:
	case SensorFile:
		if cfg.SensorFile == "" {
			missing = append(missing, "sensor_file")
		}
	default:
		conflicts = append(conflicts, "unknown sensor_source "+cfg.SensorSource)
	}

	if len(missing) > 0 {
		return errors.New("Missing required config fields: " + strings.Join(missing, ", "))
	}
	if len(conflicts) > 0 {
		return errors.New("Invalid valve config: " + strings.Join(conflicts, ", "))
	}
	return nil
}

// ValveList converts the configured valves into model valves, ordered by pipe.
func (cfg *Config) ValveList() []model.Valve {
	out := make([]model.Valve, 0, len(cfg.Valves))
	for _, v := range cfg.Valves {
		out = append(out, model.Valve{Pipe: model.PipeID(v.Pipe), Pin: v.Pin, ActiveHigh: v.ActiveHigh})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pipe < out[j].Pipe })
	return out
}
