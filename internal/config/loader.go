package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var triggerTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Config captures environment driven configuration values for the attendance service.
type Config struct {
	HTTPPort                int
	SQLiteDSN               string
	SessionTTL              time.Duration
	AnomalyThreshold        time.Duration
	HolidayFile             string
	NotificationTriggers    map[string]string
	NotificationWorkers     int
	ConsecutiveAbsenceLimit int
	MonthlyAbsenceLimit     int
}

// Load parses configuration values from the current process environment. A
// .env file in the working directory is read first when present.
//
// The loader applies sensible defaults for optional fields and accumulates
// every invalid entry into a single error so misconfiguration surfaces at
// once rather than one variable at a time.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:                8080,
		SQLiteDSN:               "file:attendance.db?_pragma=foreign_keys(1)",
		SessionTTL:              12 * time.Hour,
		AnomalyThreshold:        90 * time.Minute,
		NotificationWorkers:     8,
		ConsecutiveAbsenceLimit: 3,
		MonthlyAbsenceLimit:     5,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ATTENDANCE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ATTENDANCE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ATTENDANCE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ATTENDANCE_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ATTENDANCE_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if thresholdValue := strings.TrimSpace(os.Getenv("ATTENDANCE_ANOMALY_THRESHOLD")); thresholdValue != "" {
		threshold, err := time.ParseDuration(thresholdValue)
		if err != nil || threshold <= 0 {
			invalid = append(invalid, "ATTENDANCE_ANOMALY_THRESHOLD")
		} else {
			cfg.AnomalyThreshold = threshold
		}
	}

	cfg.HolidayFile = strings.TrimSpace(os.Getenv("ATTENDANCE_HOLIDAY_FILE"))

	if triggersValue := strings.TrimSpace(os.Getenv("ATTENDANCE_NOTIFY_TRIGGERS")); triggersValue != "" {
		triggers, err := parseTriggers(triggersValue)
		if err != nil {
			invalid = append(invalid, "ATTENDANCE_NOTIFY_TRIGGERS")
		} else {
			cfg.NotificationTriggers = triggers
		}
	}

	if workersValue := strings.TrimSpace(os.Getenv("ATTENDANCE_NOTIFY_WORKERS")); workersValue != "" {
		workers, err := strconv.Atoi(workersValue)
		if err != nil || workers <= 0 {
			invalid = append(invalid, "ATTENDANCE_NOTIFY_WORKERS")
		} else {
			cfg.NotificationWorkers = workers
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("ATTENDANCE_CONSECUTIVE_ABSENCE_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "ATTENDANCE_CONSECUTIVE_ABSENCE_LIMIT")
		} else {
			cfg.ConsecutiveAbsenceLimit = limit
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("ATTENDANCE_MONTHLY_ABSENCE_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "ATTENDANCE_MONTHLY_ABSENCE_LIMIT")
		} else {
			cfg.MonthlyAbsenceLimit = limit
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parseTriggers splits "morning=09:00,afternoon=15:00" into a shift-to-time map.
func parseTriggers(raw string) (map[string]string, error) {
	triggers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		shift, at, ok := strings.Cut(pair, "=")
		shift = strings.TrimSpace(shift)
		at = strings.TrimSpace(at)
		if !ok || shift == "" || !triggerTimePattern.MatchString(at) {
			return nil, fmt.Errorf("config: malformed trigger %q", pair)
		}
		triggers[shift] = at
	}
	if len(triggers) == 0 {
		return nil, fmt.Errorf("config: no triggers present")
	}
	return triggers, nil
}
