package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mywio/ci-notify/pkg/core"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTopicID          = 6
	DefaultMaxMessageLength = 50
	DefaultMaxCommits       = 10
	DefaultHTTPTimeout      = 15 * time.Second
	DefaultConfigFile       = "ci-notify.yaml"
)

// DefaultMergePrefixes mark a commit message as a merge commit.
var DefaultMergePrefixes = []string{"Merge branch", "Merge pull request"}

type Config struct {
	EventPath string
	EventName string

	GitHubToken  core.Secret
	GitHubAPIURL string

	BotToken       core.Secret
	ChatID         string
	TopicID        int
	TelegramAPIURL string

	MaxMessageLength int
	MaxCommits       int
	MergePrefixes    []string
	// UniformCommits disables merge-commit splitting: every commit of a push
	// is listed in the summary message.
	UniformCommits bool

	DryRun      bool
	HTTPTimeout time.Duration
	LogFormat   string
	LogLevel    string
}

// LoadConfig reads the configuration from the process environment. GitHub
// Actions variable names are used where the runner already exports them.
func LoadConfig() Config {
	timeout, _ := time.ParseDuration(os.Getenv("NOTIFY_HTTP_TIMEOUT"))
	topic, _ := strconv.Atoi(strings.TrimSpace(os.Getenv("TELEGRAM_TOPIC_ID")))
	maxLen, _ := strconv.Atoi(strings.TrimSpace(os.Getenv("NOTIFY_MAX_MESSAGE_LENGTH")))
	maxCommits, _ := strconv.Atoi(strings.TrimSpace(os.Getenv("NOTIFY_MAX_COMMITS")))

	var prefixes []string
	if v := os.Getenv("NOTIFY_MERGE_PREFIXES"); v != "" {
		prefixes = splitList(v)
	}

	cfg := Config{
		EventPath:        os.Getenv("GITHUB_EVENT_PATH"),
		EventName:        os.Getenv("GITHUB_EVENT_NAME"),
		GitHubToken:      core.NewSecret(os.Getenv("GITHUB_TOKEN")),
		GitHubAPIURL:     os.Getenv("GITHUB_API_URL"),
		BotToken:         core.NewSecret(os.Getenv("TELEGRAM_BOT_TOKEN")),
		ChatID:           strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		TopicID:          topic,
		TelegramAPIURL:   os.Getenv("TELEGRAM_API_URL"),
		MaxMessageLength: maxLen,
		MaxCommits:       maxCommits,
		MergePrefixes:    prefixes,
		UniformCommits:   strings.EqualFold(strings.TrimSpace(os.Getenv("NOTIFY_SPLIT_MERGES")), "false"),
		DryRun:           os.Getenv("DRY_RUN") == "true",
		HTTPTimeout:      timeout,
		LogFormat:        os.Getenv("LOG_FORMAT"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}
	return cfg
}

// ConfigMap is a sectioned configuration map keyed by section name
// ("core", "github", "telegram", "format").
type ConfigMap map[string]map[string]any

// LoadConfigFile loads a YAML config file from disk.
// Returns an empty map if the file does not exist or is empty.
func LoadConfigFile(path string) (ConfigMap, error) {
	if path == "" {
		return ConfigMap{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigMap{}, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return ConfigMap{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return normalizeConfigMap(raw), nil
}

type formatSection struct {
	MaxMessageLength int      `yaml:"max_message_length"`
	MaxCommits       int      `yaml:"max_commits"`
	MergePrefixes    []string `yaml:"merge_prefixes"`
	SplitMerges      *bool    `yaml:"split_merges"`
}

// LoadConfigFromMap builds a Config from a sectioned file map.
func LoadConfigFromMap(m ConfigMap) (Config, error) {
	cfg := Config{}

	coreSection := m["core"]
	if v, ok := getString(coreSection, "event_path"); ok {
		cfg.EventPath = v
	}
	if v, ok := getString(coreSection, "event_name"); ok {
		cfg.EventName = v
	}
	if v, ok := getBool(coreSection, "dry_run"); ok {
		cfg.DryRun = v
	}
	if v, ok := getDuration(coreSection, "http_timeout"); ok {
		cfg.HTTPTimeout = v
	}
	if v, ok := getString(coreSection, "log_format"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getString(coreSection, "log_level"); ok {
		cfg.LogLevel = v
	}

	gh := m["github"]
	if v, ok := getString(gh, "token"); ok {
		cfg.GitHubToken = core.NewSecret(v)
	}
	if v, ok := getString(gh, "api_url"); ok {
		cfg.GitHubAPIURL = v
	}

	tg := m["telegram"]
	if v, ok := getString(tg, "bot_token", "token"); ok {
		cfg.BotToken = core.NewSecret(v)
	}
	if v, ok := getString(tg, "chat_id"); ok {
		cfg.ChatID = v
	}
	if v, ok := getInt(tg, "topic_id", "thread_id"); ok {
		cfg.TopicID = v
	}
	if v, ok := getString(tg, "api_url"); ok {
		cfg.TelegramAPIURL = v
	}

	var fs formatSection
	if err := DecodeSection(m["format"], &fs); err != nil {
		return cfg, fmt.Errorf("format section: %w", err)
	}
	cfg.MaxMessageLength = fs.MaxMessageLength
	cfg.MaxCommits = fs.MaxCommits
	cfg.MergePrefixes = fs.MergePrefixes
	if fs.SplitMerges != nil && !*fs.SplitMerges {
		cfg.UniformCommits = true
	}

	return cfg, nil
}

// DecodeSection decodes a config section into a struct with yaml tags.
// It is safe to call with a nil or empty section.
func DecodeSection(section map[string]any, out any) error {
	if len(section) == 0 {
		return nil
	}
	data, err := yaml.Marshal(section)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// MergeConfig uses primary values when set, otherwise falls back.
func MergeConfig(primary, fallback Config) Config {
	out := primary
	if out.EventPath == "" {
		out.EventPath = fallback.EventPath
	}
	if out.EventName == "" {
		out.EventName = fallback.EventName
	}
	if out.GitHubToken.IsZero() {
		out.GitHubToken = fallback.GitHubToken
	}
	if out.GitHubAPIURL == "" {
		out.GitHubAPIURL = fallback.GitHubAPIURL
	}
	if out.BotToken.IsZero() {
		out.BotToken = fallback.BotToken
	}
	if out.ChatID == "" {
		out.ChatID = fallback.ChatID
	}
	if out.TopicID == 0 {
		out.TopicID = fallback.TopicID
	}
	if out.TelegramAPIURL == "" {
		out.TelegramAPIURL = fallback.TelegramAPIURL
	}
	if out.MaxMessageLength == 0 {
		out.MaxMessageLength = fallback.MaxMessageLength
	}
	if out.MaxCommits == 0 {
		out.MaxCommits = fallback.MaxCommits
	}
	if len(out.MergePrefixes) == 0 {
		out.MergePrefixes = fallback.MergePrefixes
	}
	if !out.UniformCommits && fallback.UniformCommits {
		out.UniformCommits = true
	}
	if !out.DryRun && fallback.DryRun {
		out.DryRun = true
	}
	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = fallback.HTTPTimeout
	}
	if out.LogFormat == "" {
		out.LogFormat = fallback.LogFormat
	}
	if out.LogLevel == "" {
		out.LogLevel = fallback.LogLevel
	}
	return out
}

// WithDefaults fills every unset tunable.
func (c Config) WithDefaults() Config {
	if c.TopicID == 0 {
		c.TopicID = DefaultTopicID
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.MaxCommits <= 0 {
		c.MaxCommits = DefaultMaxCommits
	}
	if len(c.MergePrefixes) == 0 {
		c.MergePrefixes = append([]string(nil), DefaultMergePrefixes...)
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return c
}

var (
	ErrMissingEvent    = errors.New("missing GITHUB_EVENT_PATH or GITHUB_EVENT_NAME")
	ErrMissingTelegram = errors.New("missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID")
)

// Validate checks the values a run cannot start without. Telegram credentials
// are optional in dry-run mode.
func (c Config) Validate() error {
	if c.EventPath == "" || c.EventName == "" {
		return ErrMissingEvent
	}
	if !c.DryRun && (c.BotToken.IsZero() || c.ChatID == "") {
		return ErrMissingTelegram
	}
	return nil
}

func normalizeConfigMap(raw map[string]any) ConfigMap {
	out := ConfigMap{}
	for key, value := range raw {
		if m := normalizeStringMap(value); m != nil {
			out[key] = m
		}
	}
	return out
}

func normalizeStringMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		out := map[string]any{}
		for k, v := range t {
			out[k] = normalizeValue(v)
		}
		return out
	case map[any]any:
		out := map[string]any{}
		for k, v := range t {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = normalizeValue(v)
		}
		return out
	default:
		return nil
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any:
		return normalizeStringMap(t)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, normalizeValue(item))
		}
		return out
	default:
		return v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getString(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			switch t := v.(type) {
			case string:
				return strings.TrimSpace(t), true
			default:
				return strings.TrimSpace(fmt.Sprint(t)), true
			}
		}
	}
	return "", false
}

func getInt(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case int:
				return t, true
			case int64:
				return int(t), true
			case float64:
				return int(t), true
			case string:
				n, err := strconv.Atoi(strings.TrimSpace(t))
				if err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

func getBool(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case bool:
				return t, true
			case string:
				return strings.EqualFold(strings.TrimSpace(t), "true"), true
			case int:
				return t != 0, true
			}
		}
	}
	return false, false
}

func getDuration(m map[string]any, keys ...string) (time.Duration, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case string:
				d, err := time.ParseDuration(strings.TrimSpace(t))
				if err == nil {
					return d, true
				}
			case int:
				return time.Duration(t) * time.Second, true
			case float64:
				return time.Duration(t * float64(time.Second)), true
			}
		}
	}
	return 0, false
}
