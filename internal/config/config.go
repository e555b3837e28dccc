package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"deplog/internal/security"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabaseURL  = "./deplog.db"
	DefaultTitlePrefix  = "New version deployed"
	DefaultTimeLayout   = "Jan 02,2006 | 15:04"
	DefaultTimezone     = "Local"
	DefaultActiveIcon   = ":green_apple:"
	DefaultIcon         = ":apple:"
	DefaultPostRate     = 1.0
	DefaultHTTPHost     = "127.0.0.1"
	DefaultHTTPPort     = 5000
	DefaultLineTemplate = "{{ICON}} *{{ENV}}  |*  Current branch: *{{BRANCH}}*  |  Deployed by *{{DEPLOYER}}* on {{DEPLOYED}}"
)

// Environment variables read by ApplyEnv.
const (
	EnvBotToken      = "DEPLOG_TOKEN"
	EnvAppToken      = "DEPLOG_APP_TOKEN"
	EnvSigningSecret = "DEPLOG_SIGNING_SECRET"
	EnvChannel       = "DEPLOG_CHANNEL"
	EnvDebug         = "DEPLOG_DEBUG"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvGitHubToken   = "GITHUB_TOKEN"
)

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		DatabaseURL:  DefaultDatabaseURL,
		TitlePrefix:  DefaultTitlePrefix,
		Environments: []string{"staging", "feature", "teammobile"},
		Suppress:     []string{"production"},
		Mainline: MainlineConfig{
			Names:    []string{"develop"},
			Prefixes: []string{"release/"},
		},
		Icons: IconConfig{
			Active:  DefaultActiveIcon,
			Default: DefaultIcon,
		},
		Fields: FieldConfig{
			Environment: "Environment",
			Branch:      "Branch",
			Deployer:    "Deployer",
		},
		Timezone:     DefaultTimezone,
		TimeLayout:   DefaultTimeLayout,
		LineTemplate: DefaultLineTemplate,
		PostRate:     DefaultPostRate,
		HTTP: HTTPConfig{
			Host: DefaultHTTPHost,
			Port: DefaultHTTPPort,
		},
	}
}

// LoadConfig loads the YAML file at configPath on top of the defaults,
// applies environment overrides and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)
	return validated(cfg)
}

// LoadEnv builds the configuration from the defaults and the environment
// alone, for deployments that ship no config file. DEPLOG_CHANNEL is then
// required.
func LoadEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	cfg.ApplyEnv(getenv)
	return validated(cfg)
}

func validated(cfg *Config) (*Config, error) {
	if errors := ValidateConfig(cfg); len(errors) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errors, "\n"))
	}
	return cfg, nil
}

// Parse decodes YAML onto the defaults. Lists given in the file replace the
// default lists rather than extending them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills values that an explicit empty YAML key cleared.
func (c *Config) applyDefaults() {
	d := Default()
	if c.DatabaseURL == "" {
		c.DatabaseURL = d.DatabaseURL
	}
	if c.TitlePrefix == "" {
		c.TitlePrefix = d.TitlePrefix
	}
	if c.Icons.Active == "" {
		c.Icons.Active = d.Icons.Active
	}
	if c.Icons.Default == "" {
		c.Icons.Default = d.Icons.Default
	}
	if c.Fields.Environment == "" {
		c.Fields.Environment = d.Fields.Environment
	}
	if c.Fields.Branch == "" {
		c.Fields.Branch = d.Fields.Branch
	}
	if c.Fields.Deployer == "" {
		c.Fields.Deployer = d.Fields.Deployer
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.TimeLayout == "" {
		c.TimeLayout = d.TimeLayout
	}
	if c.LineTemplate == "" {
		c.LineTemplate = d.LineTemplate
	}
	if c.PostRate == 0 {
		c.PostRate = d.PostRate
	}
	if c.HTTP.Host == "" {
		c.HTTP.Host = d.HTTP.Host
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = d.HTTP.Port
	}
}

// ApplyEnv overrides configuration from the process environment. Secrets are
// only ever taken from here.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.BotToken = getenv(EnvBotToken)
	c.AppToken = getenv(EnvAppToken)
	c.SigningSecret = getenv(EnvSigningSecret)
	c.GitHub.Token = getenv(EnvGitHubToken)

	if v := getenv(EnvChannel); v != "" {
		c.Channel = v
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	switch strings.ToLower(getenv(EnvDebug)) {
	case "1", "true", "yes":
		c.Debug = true
	case "0", "false", "no":
		c.Debug = false
	}
}

// ValidateConfig validates everything except credentials and returns one
// message per problem found.
func ValidateConfig(c *Config) []string {
	var errors []string

	if err := security.ValidateChannelID(c.Channel); err != nil {
		errors = append(errors, fmt.Sprintf("  - channel: %v", err))
	}

	if c.Debug && c.DebugChannel == "" {
		errors = append(errors, "  - debug_channel: required when debug is enabled")
	}
	if c.DebugChannel != "" {
		if err := security.ValidateChannelID(c.DebugChannel); err != nil {
			errors = append(errors, fmt.Sprintf("  - debug_channel: %v", err))
		}
	}

	if len(c.Environments) == 0 {
		errors = append(errors, "  - environments: at least one environment is required")
	}
	seen := make(map[string]bool)
	for i, env := range c.Environments {
		if err := security.ValidateEnvironmentName(env); err != nil {
			errors = append(errors, fmt.Sprintf("  - environments[%d]: %v", i, err))
			continue
		}
		if seen[env] {
			errors = append(errors, fmt.Sprintf("  - environments[%d]: duplicate environment '%s'", i, env))
		}
		seen[env] = true
	}

	for i, env := range c.Suppress {
		if err := security.ValidateEnvironmentName(env); err != nil {
			errors = append(errors, fmt.Sprintf("  - suppress[%d]: %v", i, err))
			continue
		}
		if seen[env] {
			errors = append(errors, fmt.Sprintf("  - suppress[%d]: '%s' is also a tracked environment", i, env))
		}
	}

	if len(c.Mainline.Names) == 0 && len(c.Mainline.Prefixes) == 0 {
		errors = append(errors, "  - mainline: at least one name or prefix is required")
	}
	for i, prefix := range c.Mainline.Prefixes {
		if err := security.ValidateBranchPrefix(prefix); err != nil {
			errors = append(errors, fmt.Sprintf("  - mainline.prefixes[%d]: %v", i, err))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("  - timezone: %v", err))
	}

	if !strings.Contains(c.LineTemplate, "{{ENV}}") {
		errors = append(errors, "  - line_template: must contain {{ENV}}")
	}

	if c.PostRate < 0 {
		errors = append(errors, fmt.Sprintf("  - post_rate: must be positive, got %g", c.PostRate))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errors = append(errors, fmt.Sprintf("  - http.port: out of range, got %d", c.HTTP.Port))
	}

	if c.GitHub.Repository != "" {
		parts := strings.Split(c.GitHub.Repository, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errors = append(errors, fmt.Sprintf("  - github.repository: expected owner/repo, got '%s'", c.GitHub.Repository))
		}
	}

	return errors
}

// ValidateCredentials checks the secrets needed to talk to Slack. At least
// one inbound transport (socket mode app token or Events API signing secret)
// must be configured.
func ValidateCredentials(c *Config) []string {
	var errors []string

	if err := security.ValidateToken(c.BotToken, "xoxb-"); err != nil {
		errors = append(errors, fmt.Sprintf("  - %s: %v", EnvBotToken, err))
	}

	if c.AppToken == "" && c.SigningSecret == "" {
		errors = append(errors, fmt.Sprintf("  - one of %s or %s is required", EnvAppToken, EnvSigningSecret))
	}
	if c.AppToken != "" {
		if err := security.ValidateToken(c.AppToken, "xapp-"); err != nil {
			errors = append(errors, fmt.Sprintf("  - %s: %v", EnvAppToken, err))
		}
	}
	if c.SigningSecret != "" {
		if err := security.ValidateSigningSecret(c.SigningSecret); err != nil {
			errors = append(errors, fmt.Sprintf("  - %s: %v", EnvSigningSecret, err))
		}
	}

	return errors
}

// Location returns the time zone used to render deployment timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Destination returns the channel summaries are posted to.
func (c *Config) Destination() string {
	if c.Debug && c.DebugChannel != "" {
		return c.DebugChannel
	}
	return c.Channel
}

// GitHubOwnerRepo splits github.repository. ok is false when unset.
func (c *Config) GitHubOwnerRepo() (owner, repo string, ok bool) {
	parts := strings.Split(c.GitHub.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
