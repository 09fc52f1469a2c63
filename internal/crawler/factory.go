package crawler

import (
	"fmt"

	"github.com/stwalsh4118/bizsearch/internal/browser"
	"github.com/stwalsh4118/bizsearch/internal/config"
	"github.com/stwalsh4118/bizsearch/internal/logger"
)

// NewLauncher returns the browsing engine selected by cfg.Engine.
func NewLauncher(cfg config.CrawlerConfig) (browser.Launcher, error) {
	switch cfg.Engine {
	case config.EngineRod, "":
		return browser.NewRodLauncher(browser.RodConfig{
			Bin:               cfg.BrowserBin,
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.WaitTimeout,
			Headless:          cfg.Headless,
		}), nil
	case config.EngineHTTP:
		return browser.NewStaticLauncher(browser.StaticConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.WaitTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown crawler engine %q", cfg.Engine)
	}
}

// OptionsFromConfig maps crawler configuration onto Options. Unset values
// fall back to DefaultOptions in New.
func OptionsFromConfig(cfg config.CrawlerConfig) Options {
	return Options{
		BaseURL:         cfg.BaseURL,
		MaxCandidates:   cfg.MaxResults,
		WaitTimeout:     cfg.WaitTimeout,
		SearchTimeout:   cfg.SearchTimeout,
		IncludeInactive: cfg.IncludeInactive,
	}
}

// FromConfig builds a Crawler and its launcher from configuration.
func FromConfig(cfg config.CrawlerConfig, log *logger.Logger) (*Crawler, error) {
	launcher, err := NewLauncher(cfg)
	if err != nil {
		return nil, err
	}
	return New(launcher, OptionsFromConfig(cfg), log)
}
