package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         int
	DBPath       string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds

	// Client side
	WatchdogInterval  int // seconds between PING probes
	ReconnectAttempts int
	ReconnectDelay    int // seconds between attempts
	SendWorkers       int
}

func Load() *Config {
	cfg := &Config{
		Port:              5050,
		DBPath:            "hospital.db",
		ReadTimeout:       120,
		WriteTimeout:      30,
		WatchdogInterval:  30,
		ReconnectAttempts: 3,
		ReconnectDelay:    3,
		SendWorkers:       4,
	}

	if portStr := os.Getenv("HOSPITAL_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if dbPath := os.Getenv("HOSPITAL_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if timeoutStr := os.Getenv("HOSPITAL_READ_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if timeoutStr := os.Getenv("HOSPITAL_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if intervalStr := os.Getenv("HOSPITAL_WATCHDOG_INTERVAL"); intervalStr != "" {
		if interval, err := strconv.Atoi(intervalStr); err == nil {
			cfg.WatchdogInterval = interval
		}
	}

	if attemptsStr := os.Getenv("HOSPITAL_RECONNECT_ATTEMPTS"); attemptsStr != "" {
		if attempts, err := strconv.Atoi(attemptsStr); err == nil {
			cfg.ReconnectAttempts = attempts
		}
	}

	if delayStr := os.Getenv("HOSPITAL_RECONNECT_DELAY"); delayStr != "" {
		if delay, err := strconv.Atoi(delayStr); err == nil {
			cfg.ReconnectDelay = delay
		}
	}

	if workersStr := os.Getenv("HOSPITAL_SEND_WORKERS"); workersStr != "" {
		if workers, err := strconv.Atoi(workersStr); err == nil {
			cfg.SendWorkers = workers
		}
	}

	return cfg
}
