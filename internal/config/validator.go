package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "steam.max_retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidEnvironments returns the list of valid environments
func ValidEnvironments() []string {
	return []string{EnvProduction, EnvDevelopment}
}

// ValidMultiplexers returns the list of valid multiplexer backends
func ValidMultiplexers() []string {
	return []string{MultiplexerScreen, MultiplexerTmux}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidPlatforms returns the platforms steamcmd can be forced to
func ValidPlatforms() []string {
	return []string{"linux", "windows"}
}

// ValidThemes returns the list of valid prompt themes
func ValidThemes() []string {
	return []string{"charm", "dracula", "catppuccin", "base16", "base"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidEnvironments(), c.Environment) {
		errors = append(errors, oneOf("environment", c.Environment, ValidEnvironments()))
	}
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateSteam()...)
	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateDownload()...)

	if c.Prompt.Theme != "" && !slices.Contains(ValidThemes(), c.Prompt.Theme) {
		errors = append(errors, oneOf("prompt.theme", c.Prompt.Theme, ValidThemes()))
	}

	return errors
}

func oneOf(field string, value any, valid []string) ValidationError {
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
	}
}

func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	paths := map[string]string{
		"paths.data_dir": c.Paths.DataDir,
		"paths.database": c.Paths.Database,
	}
	for _, field := range []string{"paths.data_dir", "paths.database"} {
		if strings.ContainsRune(paths[field], '\x00') {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   paths[field],
				Message: "path contains invalid null character",
			})
		}
	}

	if len(c.Paths.SteamHomeCandidates) == 0 {
		errors = append(errors, ValidationError{
			Field:   "paths.steam_home_candidates",
			Value:   c.Paths.SteamHomeCandidates,
			Message: "at least one candidate is required",
		})
	}

	return errors
}

func (c *Config) validateSteam() []ValidationError {
	var errors []ValidationError

	if c.Steam.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "steam.path",
			Value:   c.Steam.Path,
			Message: "must not be empty",
		})
	}

	if c.Steam.MaxRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "steam.max_retries",
			Value:   c.Steam.MaxRetries,
			Message: "must be at least 1",
		})
	}

	if c.Steam.RetryDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "steam.retry_delay_seconds",
			Value:   c.Steam.RetryDelaySeconds,
			Message: "must be non-negative",
		})
	}

	if !slices.Contains(ValidPlatforms(), c.Steam.Platform) {
		errors = append(errors, oneOf("steam.platform", c.Steam.Platform, ValidPlatforms()))
	}

	// The username ends up in the steamcmd argument list
	if strings.ContainsAny(c.Steam.Username, " \t\n\"") {
		errors = append(errors, ValidationError{
			Field:   "steam.username",
			Value:   c.Steam.Username,
			Message: "must not contain whitespace or quotes",
		})
	}

	return errors
}

func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidMultiplexers(), c.Session.Multiplexer) {
		errors = append(errors, oneOf("session.multiplexer", c.Session.Multiplexer, ValidMultiplexers()))
	}

	if c.Session.Multiplexer == MultiplexerTmux && c.Session.TmuxSocket == "" {
		errors = append(errors, ValidationError{
			Field:   "session.tmux_socket",
			Value:   c.Session.TmuxSocket,
			Message: "required when the tmux multiplexer is selected",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, oneOf("logging.level", c.Logging.Level, ValidLogLevels()))
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateDownload() []ValidationError {
	var errors []ValidationError

	if c.Download.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "download.timeout_seconds",
			Value:   c.Download.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Download.Retries < 0 {
		errors = append(errors, ValidationError{
			Field:   "download.retries",
			Value:   c.Download.Retries,
			Message: "must be non-negative",
		})
	}

	return errors
}
