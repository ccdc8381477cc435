package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"lostfound-bot/internal/model"
)

const (
	DefaultAddr             = "127.0.0.1:8000"
	DefaultHistoryLimit     = 100
	DefaultChannelTTLSecond = 3600

	day = 24 * time.Hour
)

type Config struct {
	Slack     SlackConfig                 `toml:"slack" yaml:"slack"`
	Intervals map[string][]IntervalConfig `toml:"intervals" yaml:"intervals"`
	Server    ServerConfig                `toml:"server" yaml:"server"`
	Logging   LoggingConfig               `toml:"logging" yaml:"logging"`
	Push      PushConfig                  `toml:"push" yaml:"push"`
	Redis     RedisConfig                 `toml:"redis" yaml:"redis"`
	Schedule  ScheduleConfig              `toml:"schedule" yaml:"schedule"`

	// group names of Intervals in document order
	order []string
}

type SlackConfig struct {
	ChannelName      string `toml:"channelName" yaml:"channelName"`
	HistoryLimit     int    `toml:"historyLimit" yaml:"historyLimit"`
	APIURL           string `toml:"apiURL" yaml:"apiURL"`
	PostDelaySeconds int    `toml:"postDelaySeconds" yaml:"postDelaySeconds"`
}

type IntervalConfig struct {
	EarliestDayBefore int    `toml:"earliestDayBefore" yaml:"earliestDayBefore"`
	LatestDayAfter    int    `toml:"latestDayAfter" yaml:"latestDayAfter"`
	Message           string `toml:"message" yaml:"message"`
}

type ServerConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Timezone string `toml:"timezone" yaml:"timezone"`
}

type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

type PushConfig struct {
	MaxPostsPerMinute int `toml:"maxPostsPerMinute" yaml:"maxPostsPerMinute"`
}

type RedisConfig struct {
	Addr              string `toml:"addr" yaml:"addr"`
	Password          string `toml:"password" yaml:"password"`
	DB                int    `toml:"db" yaml:"db"`
	KeyPrefix         string `toml:"keyPrefix" yaml:"keyPrefix"`
	ChannelTTLSeconds int    `toml:"channelTTLSeconds" yaml:"channelTTLSeconds"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron" yaml:"cron"`
}

// Load reads path, expands ${VAR} references and decodes it as YAML (.yaml, .yml) or TOML.
// Every failure wraps model.ErrConfigInvalid.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", model.ErrConfigInvalid, err)
	}
	expanded := expandEnv(raw)

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = decodeYAML(expanded)
	default:
		cfg, err = decodeTOML(expanded)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", model.ErrConfigInvalid, path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references only; a bare $ (as in "$20 reward") is left alone.
func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(ref []byte) []byte {
		name := envRef.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func decodeTOML(raw []byte) (Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	for _, key := range md.Keys() {
		if len(key) == 2 && key[0] == "intervals" {
			cfg.order = appendUnique(cfg.order, key[1])
		}
	}
	return cfg, nil
}

func decodeYAML(raw []byte) (Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return Config{}, err
	}
	var cfg Config
	if len(root.Content) == 0 {
		return cfg, nil
	}
	if err := root.Decode(&cfg); err != nil {
		return Config{}, err
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return cfg, nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "intervals" || doc.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		groups := doc.Content[i+1].Content
		for j := 0; j+1 < len(groups); j += 2 {
			cfg.order = appendUnique(cfg.order, groups[j].Value)
		}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Slack.HistoryLimit == 0 {
		c.Slack.HistoryLimit = DefaultHistoryLimit
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Redis.ChannelTTLSeconds == 0 {
		c.Redis.ChannelTTLSeconds = DefaultChannelTTLSecond
	}
}

// Validate reports every problem at once; each one wraps model.ErrConfigInvalid.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Slack.ChannelName) == "" {
		errs = append(errs, invalid("slack.channelName required"))
	}
	if c.Slack.HistoryLimit < 0 {
		errs = append(errs, invalid("slack.historyLimit must be >= 0"))
	}
	if c.Slack.PostDelaySeconds < 0 {
		errs = append(errs, invalid("slack.postDelaySeconds must be >= 0"))
	}
	if len(c.Intervals) == 0 {
		errs = append(errs, invalid("no intervals configured"))
	}
	for _, name := range c.groupOrder() {
		if len(c.Intervals[name]) == 0 {
			errs = append(errs, invalid("intervals.%s has no entries", name))
		}
	}
	for _, iv := range c.Windows() {
		if err := iv.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Push.MaxPostsPerMinute < 0 {
		errs = append(errs, invalid("push.maxPostsPerMinute must be >= 0"))
	}
	if c.Redis.ChannelTTLSeconds < 0 {
		errs = append(errs, invalid("redis.channelTTLSeconds must be >= 0"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("logging.level %q unknown", c.Logging.Level))
	}
	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			errs = append(errs, invalid("server.timezone: %v", err))
		}
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			errs = append(errs, invalid("schedule.cron: %v", err))
		}
	}
	return errors.Join(errs...)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Windows flattens the interval groups in document order.
func (c Config) Windows() []model.Interval {
	var out []model.Interval
	for _, name := range c.groupOrder() {
		group := c.Intervals[name]
		for i, ic := range group {
			label := name
			if len(group) > 1 {
				label = fmt.Sprintf("%s.%d", name, i)
			}
			out = append(out, model.Interval{
				Name:     label,
				Earliest: time.Duration(ic.EarliestDayBefore) * day,
				Latest:   time.Duration(ic.LatestDayAfter) * day,
				Suffix:   ic.Message,
			})
		}
	}
	return out
}

func (c Config) PostDelay() time.Duration {
	return time.Duration(c.Slack.PostDelaySeconds) * time.Second
}

func (c Config) groupOrder() []string {
	order := make([]string, 0, len(c.Intervals))
	for _, name := range c.order {
		if _, ok := c.Intervals[name]; ok {
			order = appendUnique(order, name)
		}
	}
	// groups set in code rather than decoded from a file sort by name
	var rest []string
	for name := range c.Intervals {
		if !contains(order, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
