package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  Access and refresh tokens are signed with independent secrets
// so a leaked access token can never be replayed against the refresh
// endpoint (and vice versa).
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    AccessSecret   string // secret used to sign access JWTs
    RefreshSecret  string // secret used to sign refresh JWTs
    AccessTTLHours int    // access token time-to-live in hours
    RefreshTTLDays int    // refresh token time-to-live in days
    ResetTTLMin    int    // password-reset token time-to-live in minutes
    BcryptCost     int    // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The signing secrets
// in particular have no fallback: a process that starts with a known
// default secret would happily sign tokens anyone can forge, so an absent
// or empty secret halts startup.
func Load() Config {
    cfg := Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty password allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        AccessSecret:   must("ACCESS_TOKEN_SECRET"),
        RefreshSecret:  must("REFRESH_TOKEN_SECRET"),
        AccessTTLHours: envInt("ACCESS_TOKEN_TTL_HOURS", 24),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        ResetTTLMin:    envInt("RESET_TOKEN_TTL_MIN", 30),
        BcryptCost:     envInt("BCRYPT_COST", 12),
    }
    if cfg.AccessSecret == cfg.RefreshSecret {
        log.Fatal("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
    }
    if cfg.BcryptCost < 12 {
        log.Fatalf("BCRYPT_COST must be at least 12, got %d", cfg.BcryptCost)
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// envInt reads an integer environment variable, falling back to a default
// when the variable is unset or malformed.
func envInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return def
}
