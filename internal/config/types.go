package config

// Config represents the deplog configuration file plus the secrets that are
// only ever read from the environment.
type Config struct {
	Channel      string         `yaml:"channel"`
	DebugChannel string         `yaml:"debug_channel"`
	Debug        bool           `yaml:"debug"`
	DatabaseURL  string         `yaml:"database_url"`
	TitlePrefix  string         `yaml:"title_prefix"`
	Environments []string       `yaml:"environments"`
	Suppress     []string       `yaml:"suppress"`
	Mainline     MainlineConfig `yaml:"mainline"`
	Icons        IconConfig     `yaml:"icons"`
	Fields       FieldConfig    `yaml:"fields"`
	Timezone     string         `yaml:"timezone"`
	TimeLayout   string         `yaml:"time_layout"`
	LineTemplate string         `yaml:"line_template"`
	PostRate     float64        `yaml:"post_rate"` // messages per second
	HTTP         HTTPConfig     `yaml:"http"`
	GitHub       GitHubConfig   `yaml:"github"`

	BotToken      string `yaml:"-"`
	AppToken      string `yaml:"-"`
	SigningSecret string `yaml:"-"`
}

// MainlineConfig decides which branches render with the active icon.
type MainlineConfig struct {
	Names    []string `yaml:"names"`
	Prefixes []string `yaml:"prefixes"`
}

// IconConfig holds the two emoji used to decorate summary lines.
type IconConfig struct {
	Active  string `yaml:"active"`
	Default string `yaml:"default"`
}

// FieldConfig holds the attachment field labels read from notifications.
type FieldConfig struct {
	Environment string `yaml:"environment"`
	Branch      string `yaml:"branch"`
	Deployer    string `yaml:"deployer"`
}

// HTTPConfig configures the Events API receiver and status endpoints.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GitHubConfig enables head-commit lookups for deployed branches.
type GitHubConfig struct {
	Repository string `yaml:"repository"` // owner/repo
	Token      string `yaml:"-"`
}
