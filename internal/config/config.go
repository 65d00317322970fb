package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// PinConfig binds a logical pin name to an expander line.
type PinConfig struct {
	Line      *int   `json:"line"`
	Direction string `json:"direction"` // "input" or "output"
}

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level
	LogFile    string

	DBPath              string `json:"db_path"`
	APIPort             int    `json:"api_port"`
	SafeMode            bool   `json:"safe_mode"`
	PinDelayMS          int    `json:"pin_delay_ms"`
	PressurePollSeconds int    `json:"pressure_poll_seconds"`
	FailsafePollSeconds int    `json:"failsafe_poll_seconds"`
	NtfyTopic           string `json:"ntfy_topic"`

	I2CBus     int    `json:"i2c_bus"`
	MCPDevice  int    `json:"mcp23017_device"`
	ADCBus     string `json:"ads1115_bus"`
	ADCAddress int    `json:"ads1115_address"`
	ADCChannel int    `json:"ads1115_channel"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	Pins map[string]*PinConfig `json:"pins"`
}

// requiredPins is the fixed roster the panel hardware wires to the expander.
var requiredPins = map[string]string{
	"motor":       "output",
	"v1":          "output",
	"v2":          "output",
	"v5":          "output",
	"shutdown":    "output",
	"tls":         "input",
	"panel_power": "input",
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&cfg.LogFile, "log-file", "/var/log/gm-controller.log", "Path to log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "data/gm.db"
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
	if cfg.PressurePollSeconds == 0 {
		cfg.PressurePollSeconds = 2
	}
	if cfg.FailsafePollSeconds == 0 {
		cfg.FailsafePollSeconds = 1
	}

	cfg.Validate()
	return cfg
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

// Validate panics with the full list of problems when the pin roster is
// incomplete, a direction is malformed, or two names share a line.
func (cfg *Config) Validate() {
	var (
		missingFields []string
		badDirections []string
		usedLines     = map[int]string{}
		conflicts     []string
	)

	names := make([]string, 0, len(requiredPins))
	for name := range requiredPins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pin, ok := cfg.Pins[name]
		if !ok || pin == nil || pin.Line == nil {
			missingFields = append(missingFields, "pins."+name)
			continue
		}
		if pin.Direction != requiredPins[name] {
			badDirections = append(badDirections,
				fmt.Sprintf("pins.%s must be %s, got %q", name, requiredPins[name], pin.Direction))
		}
		if other, exists := usedLines[*pin.Line]; exists {
			conflicts = append(conflicts, fmt.Sprintf("pins.%s and pins.%s both use line %d", name, other, *pin.Line))
		} else {
			usedLines[*pin.Line] = name
		}
	}

	if len(missingFields) > 0 {
		panic("Missing required pin config fields: " + strings.Join(missingFields, ", "))
	}
	if len(badDirections) > 0 {
		panic("Invalid pin directions: " + strings.Join(badDirections, ", "))
	}
	if len(conflicts) > 0 {
		panic("Conflicting expander lines: " + strings.Join(conflicts, ", "))
	}
}
