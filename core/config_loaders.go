package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var durationKeys = map[string]struct{}{
	"shutdown_timeout":    {},
	"check_interval":      {},
	"drain_interval":      {},
	"startup_delay":       {},
	"processed_retention": {},
	"ping_timeout":        {},
	"timeout":             {},
	"send_timeout":        {},
	"stats_ttl":           {},
}

// EnvLoader maps the process environment onto the raw config tree. Variable
// names follow the deployment conventions (PORT, DATABASE_URL, WOOCOMMERCE_*,
// WHATSAPP_*).
type EnvLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	raw := map[string]any{}
	section := func(name string) map[string]any {
		existing, ok := raw[name].(map[string]any)
		if !ok {
			existing = map[string]any{}
			raw[name] = existing
		}
		return existing
	}

	if value, ok := get("SERVICE_NAME"); ok {
		raw["service_name"] = value
	}
	if value, ok := get("PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("core: PORT %q is invalid", value)
		}
		section("http")["address"] = ":" + strconv.Itoa(port)
	}
	if value, ok := get("CHECK_INTERVAL_MINUTES"); ok {
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("core: CHECK_INTERVAL_MINUTES %q is invalid", value)
		}
		section("schedule")["check_interval"] = time.Duration(minutes) * time.Minute
	}
	if value, ok := get("MAX_ORDERS_TO_CHECK"); ok {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("core: MAX_ORDERS_TO_CHECK %q is invalid", value)
		}
		section("reconcile")["max_orders"] = limit
	}
	if value, ok := get("DATABASE_URL"); ok {
		database := section("database")
		database["dsn"] = value
		database["driver"] = driverForDSN(value)
	}
	if value, ok := get("DATABASE_DRIVER"); ok {
		section("database")["driver"] = value
	}

	envStrings := []struct {
		env     string
		section string
		key     string
	}{
		{"WOOCOMMERCE_URL", "commerce", "base_url"},
		{"WOOCOMMERCE_CONSUMER_KEY", "commerce", "consumer_key"},
		{"WOOCOMMERCE_CONSUMER_SECRET", "commerce", "consumer_secret"},
		{"WHATSAPP_API_URL", "messaging", "api_url"},
		{"WHATSAPP_API_VERSION", "messaging", "api_version"},
		{"WHATSAPP_ACCESS_TOKEN", "messaging", "access_token"},
		{"WHATSAPP_PHONE_NUMBER_ID", "messaging", "phone_number_id"},
		{"WHATSAPP_TARGET_PHONE", "messaging", "target_phone"},
		{"MESSAGES_TIMEZONE", "messages", "timezone"},
	}
	for _, entry := range envStrings {
		if value, ok := get(entry.env); ok {
			section(entry.section)[entry.key] = value
		}
	}
	return raw, nil
}

func driverForDSN(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// YAMLFileLoader reads a YAML document shaped like Config. Durations may be
// written as Go duration strings ("15m").
type YAMLFileLoader struct {
	Path     string
	Optional bool
}

func (l YAMLFileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config file %s: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("core: parse config file %s: %w", path, err)
	}
	if err := normalizeDurations(raw); err != nil {
		return nil, fmt.Errorf("core: config file %s: %w", path, err)
	}
	return raw, nil
}

func normalizeDurations(raw map[string]any) error {
	for key, value := range raw {
		switch typed := value.(type) {
		case map[string]any:
			if err := normalizeDurations(typed); err != nil {
				return err
			}
		case string:
			if _, ok := durationKeys[key]; !ok {
				continue
			}
			parsed, err := time.ParseDuration(strings.TrimSpace(typed))
			if err != nil {
				return fmt.Errorf("%s: invalid duration %q", key, typed)
			}
			raw[key] = parsed
		}
	}
	return nil
}

// MultiLoader merges loaders in order; later loaders win per key.
type MultiLoader []RawConfigLoader

func (m MultiLoader) LoadRaw(ctx context.Context) (map[string]any, error) {
	merged := map[string]any{}
	for _, loader := range m {
		if loader == nil {
			continue
		}
		raw, err := loader.LoadRaw(ctx)
		if err != nil {
			return nil, err
		}
		mergeRaw(merged, raw)
	}
	return merged, nil
}

func mergeRaw(dst map[string]any, src map[string]any) {
	for key, value := range src {
		nested, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[key] = existing
		}
		mergeRaw(existing, nested)
	}
}
