package config

import (
    "os"
    "time"
)

// RateLimitConfig controls the fixed-window request limiters and the
// progressive speed limiter.  The general limiter applies to every route;
// the auth limiter applies only to /auth/* endpoints, which are the usual
// brute-force target and therefore get a far smaller budget within the
// same window.
type RateLimitConfig struct {
    Enabled     bool
    Window      time.Duration // length of the fixed counting window
    GeneralMax  int           // requests allowed per client in the window (all routes)
    AuthMax     int           // requests allowed per client in the window (auth routes)
    SpeedAfter  int           // requests after which the speed limiter starts delaying
    SpeedStep   time.Duration // added delay per request over the threshold
    SpeedMax    time.Duration // upper bound on the injected delay
    Prefix      string        // key namespace for counter storage
}

// LoadRateLimitConfig reads rate-limit settings from the environment with
// defaults matching the deployed behaviour: a 15 minute window, 100
// requests generally, 5 on auth endpoints, and a 500ms-per-request ramp
// once a client exceeds 5 requests.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:    envBool("RATE_LIMIT_ENABLED", true),
        Window:     envDur("RATE_LIMIT_WINDOW", 15*time.Minute),
        GeneralMax: envInt("RATE_LIMIT_GENERAL_MAX", 100),
        AuthMax:    envInt("RATE_LIMIT_AUTH_MAX", 5),
        SpeedAfter: envInt("RATE_LIMIT_SPEED_AFTER", 5),
        SpeedStep:  envDur("RATE_LIMIT_SPEED_STEP", 500*time.Millisecond),
        SpeedMax:   envDur("RATE_LIMIT_SPEED_MAX", 10*time.Second),
        Prefix:     envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if cfg.Window <= 0 {
        cfg.Window = 15 * time.Minute
    }
    if cfg.GeneralMax < 1 {
        cfg.GeneralMax = 1
    }
    if cfg.AuthMax < 1 {
        cfg.AuthMax = 1
    }
    if cfg.SpeedStep <= 0 {
        cfg.SpeedStep = 500 * time.Millisecond
    }
    if cfg.SpeedMax < cfg.SpeedStep {
        cfg.SpeedMax = cfg.SpeedStep
    }
    return cfg
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
