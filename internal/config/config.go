// Package config reads the server configuration from FLIGHTSIM_*
// environment variables. Invalid values are logged and replaced by their
// defaults.
package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"globe-flight/internal/illum"
	"globe-flight/internal/log"
)

type Config struct {
	HTTPAddr      string
	TickHz        float64
	LogLevel      string
	LogDir        string
	AirportsFile  string
	Lighting      illum.Mode
	InputRPS      float64
	InputBurst    int
	InputTTL      time.Duration
	TrackInterval time.Duration
	// Wind is a constant drift, km/h towards WindDirection degrees.
	WindSpeed     float64
	WindDirection float64
}

func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		TickHz:        30,
		LogLevel:      "info",
		AirportsFile:  "",
		Lighting:      illum.Auto,
		InputRPS:      60,
		InputBurst:    30,
		InputTTL:      500 * time.Millisecond,
		TrackInterval: time.Second,
	}
}

// Getenv is the signature of os.Getenv.
type Getenv func(string) string

// LogSettings returns the log level and directory, which are needed before
// a logger exists to report anything else.
func LogSettings(getenv Getenv) (level, dir string) {
	level = strings.TrimSpace(getenv("FLIGHTSIM_LOG_LEVEL"))
	if level == "" {
		level = Default().LogLevel
	}
	return level, strings.TrimSpace(getenv("FLIGHTSIM_LOG_DIR"))
}

// Load reads the configuration, logging each invalid value it replaces.
func Load(getenv Getenv, lg *log.Logger) Config {
	cfg := Default()
	cfg.LogLevel, cfg.LogDir = LogSettings(getenv)

	if v := getenv("FLIGHTSIM_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv("FLIGHTSIM_AIRPORTS_FILE"); v != "" {
		cfg.AirportsFile = v
	}

	if v := getenv("FLIGHTSIM_TICK_HZ"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 1 && f <= 240) {
			lg.Warn("invalid FLIGHTSIM_TICK_HZ value, using default", "value", v, "default", cfg.TickHz)
		} else {
			cfg.TickHz = f
		}
	}

	if v := getenv("FLIGHTSIM_LIGHTING"); v != "" {
		m, err := illum.ParseMode(v)
		if err != nil {
			lg.Warn("invalid FLIGHTSIM_LIGHTING value, using default", "value", v, "default", cfg.Lighting.String())
		} else {
			cfg.Lighting = m
		}
	}

	if v := getenv("FLIGHTSIM_INPUT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0) {
			lg.Warn("invalid FLIGHTSIM_INPUT_RPS value, using default", "value", v, "default", cfg.InputRPS)
		} else {
			cfg.InputRPS = f
			cfg.InputBurst = max(1, int(f/2))
		}
	}

	if v := getenv("FLIGHTSIM_INPUT_TTL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			lg.Warn("invalid FLIGHTSIM_INPUT_TTL_MS value, using default", "value", v, "default", cfg.InputTTL.Milliseconds())
		} else {
			cfg.InputTTL = time.Duration(n) * time.Millisecond
		}
	}

	if v := getenv("FLIGHTSIM_TRACK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			lg.Warn("invalid FLIGHTSIM_TRACK_INTERVAL value, using default", "value", v, "default", cfg.TrackInterval.String())
		} else {
			cfg.TrackInterval = d
		}
	}

	if v := getenv("FLIGHTSIM_WIND_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 0 && f < 1000) {
			lg.Warn("invalid FLIGHTSIM_WIND_KMH value, using calm", "value", v)
		} else {
			cfg.WindSpeed = f
		}
	}
	if v := getenv("FLIGHTSIM_WIND_DIR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			lg.Warn("invalid FLIGHTSIM_WIND_DIR value, using north", "value", v)
		} else {
			cfg.WindDirection = f
		}
	}

	lg.Info("config",
		"http_addr", cfg.HTTPAddr,
		"tick_hz", cfg.TickHz,
		"lighting", cfg.Lighting.String(),
		"input_rps", cfg.InputRPS,
		"input_ttl_ms", cfg.InputTTL.Milliseconds(),
		"track_interval", cfg.TrackInterval.String(),
		"airports_file", cfg.AirportsFile,
		"wind_kmh", cfg.WindSpeed,
	)
	return cfg
}
