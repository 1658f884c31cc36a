package cli

import (
	"fmt"
	"strconv"
	"strings"

	"price-tracker-go/pkg/config"

	"github.com/pelletier/go-toml/v2"
)

// ShowConfig displays the current configuration
func (a *App) ShowConfig() {
	data, err := toml.Marshal(a.cfg)
	if err != nil {
		fmt.Fprintf(a.out, "Error marshaling config: %v\n", err)
		return
	}
	fmt.Fprintln(a.out, string(data))
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s", key, value)
	}
	return n, nil
}

// SetConfig sets a configuration value
// Format: section.key=value (e.g., "database.url=postgres://...")
func (a *App) SetConfig(setStr string) error {
	parts := strings.SplitN(setStr, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid format: expected 'section.key=value'")
	}

	keyPath := strings.Split(parts[0], ".")
	value := parts[1]

	if len(keyPath) != 2 {
		return fmt.Errorf("invalid key format: expected 'section.key'")
	}

	section := keyPath[0]
	key := keyPath[1]

	var err error
	switch section {
	case "database":
		switch key {
		case "url":
			a.cfg.Database.URL = value
		default:
			return fmt.Errorf("unknown database key: %s", key)
		}
	case "api":
		switch key {
		case "host":
			a.cfg.API.Host = value
		case "port":
			a.cfg.API.Port, err = parseInt(key, value)
		case "api_key":
			a.cfg.API.APIKey = value
		default:
			return fmt.Errorf("unknown api key: %s", key)
		}
	case "cli":
		switch key {
		case "base_url":
			a.cfg.CLI.BaseURL = value
		case "api_key":
			a.cfg.CLI.APIKey = value
		case "poll_interval_ms":
			a.cfg.CLI.PollIntervalMS, err = parseInt(key, value)
		case "max_poll_attempts":
			a.cfg.CLI.MaxPollAttempts, err = parseInt(key, value)
		case "scrape_timeout":
			a.cfg.CLI.ScrapeTimeout, err = parseInt(key, value)
		case "metrics_addr":
			a.cfg.CLI.MetricsAddr = value
		default:
			return fmt.Errorf("unknown cli key: %s", key)
		}
	case "scraper":
		switch key {
		case "user_agent":
			a.cfg.Scraper.UserAgent = value
		case "request_timeout":
			a.cfg.Scraper.RequestTimeout, err = parseInt(key, value)
		case "task_cache_size":
			a.cfg.Scraper.TaskCacheSize, err = parseInt(key, value)
		case "fresh_for_minutes":
			a.cfg.Scraper.FreshForMinutes, err = parseInt(key, value)
		default:
			return fmt.Errorf("unknown scraper key: %s", key)
		}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
	if err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	return config.Save(a.cfg)
}
