package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"pdp-variant-extractor/internal/types"
)

// fileConfig mirrors the recognized options as they appear in env vars and pdp.yaml
type fileConfig struct {
	TargetURL              string `mapstructure:"target_url"`
	OutputPath             string `mapstructure:"output_path"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	Backend                string `mapstructure:"backend"`
	Headless               bool   `mapstructure:"headless"`
	ChromeDriverPath       string `mapstructure:"chromedriver_path"`
	SeleniumPort           int    `mapstructure:"selenium_port"`
	UserAgent              string `mapstructure:"user_agent"`
	PageLoadTimeoutSeconds int    `mapstructure:"page_load_timeout_seconds"`
	InitialRenderDelayMS   int    `mapstructure:"initial_render_delay_ms"`
	ColorSettleMS          int    `mapstructure:"color_settle_ms"`
	SizeSettleMS           int    `mapstructure:"size_settle_ms"`
	PollIntervalMS         int    `mapstructure:"poll_interval_ms"`
}

// Load resolves the run configuration from .env, PDP_* environment
// variables and an optional pdp.yaml, in that order of precedence over defaults.
func Load() (*types.Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("pdp")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PDP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&fc); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &types.Config{
		TargetURL:          strings.TrimSpace(fc.TargetURL),
		OutputPath:         fc.OutputPath,
		Timeout:            time.Duration(fc.TimeoutSeconds) * time.Second,
		Backend:            strings.ToLower(fc.Backend),
		Headless:           fc.Headless,
		ChromeDriverPath:   fc.ChromeDriverPath,
		SeleniumPort:       fc.SeleniumPort,
		UserAgent:          fc.UserAgent,
		PageLoadTimeout:    time.Duration(fc.PageLoadTimeoutSeconds) * time.Second,
		InitialRenderDelay: time.Duration(fc.InitialRenderDelayMS) * time.Millisecond,
		ColorSettleDelay:   time.Duration(fc.ColorSettleMS) * time.Millisecond,
		SizeSettleDelay:    time.Duration(fc.SizeSettleMS) * time.Millisecond,
		PollInterval:       time.Duration(fc.PollIntervalMS) * time.Millisecond,
	}, nil
}

func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("target_url", d.TargetURL)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("timeout_seconds", int(d.Timeout/time.Second))
	v.SetDefault("backend", d.Backend)
	v.SetDefault("headless", d.Headless)
	v.SetDefault("chromedriver_path", d.ChromeDriverPath)
	v.SetDefault("selenium_port", d.SeleniumPort)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("page_load_timeout_seconds", int(d.PageLoadTimeout/time.Second))
	v.SetDefault("initial_render_delay_ms", int(d.InitialRenderDelay/time.Millisecond))
	v.SetDefault("color_settle_ms", int(d.ColorSettleDelay/time.Millisecond))
	v.SetDefault("size_settle_ms", int(d.SizeSettleDelay/time.Millisecond))
	v.SetDefault("poll_interval_ms", int(d.PollInterval/time.Millisecond))
}

func validate(fc *fileConfig) error {
	if strings.TrimSpace(fc.TargetURL) == "" {
		return fmt.Errorf("target URL is required (set PDP_TARGET_URL)")
	}
	if fc.OutputPath == "" {
		return fmt.Errorf("output path is required (set PDP_OUTPUT_PATH)")
	}
	if fc.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got: %d", fc.TimeoutSeconds)
	}
	if fc.PollIntervalMS <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %d", fc.PollIntervalMS)
	}

	switch strings.ToLower(fc.Backend) {
	case types.BackendChromedp, types.BackendSelenium:
	default:
		return fmt.Errorf("backend must be '%s' or '%s', got: %s", types.BackendChromedp, types.BackendSelenium, fc.Backend)
	}

	return nil
}
