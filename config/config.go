package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	Assistant AssistantConfig `yaml:"assistant"`
	Speech    SpeechConfig    `yaml:"speech"`
	Voice     VoiceConfig     `yaml:"voice"`
	Google    GoogleConfig    `yaml:"google"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type AudioConfig struct {
	// Capture is "microphone" or "file".
	Capture  string `yaml:"capture"`
	FileDir  string `yaml:"file_dir"`
	Channels int    `yaml:"channels"`
	Duration string `yaml:"duration"`

	RawPath    string `yaml:"raw_path"`
	MonoPath   string `yaml:"mono_path"`
	OutputPath string `yaml:"output_path"`

	// Player is "speaker" or "command".
	Player        string   `yaml:"player"`
	PlayerCommand []string `yaml:"player_command"`
}

type TriggerConfig struct {
	// Source is "console", "keypress" or "http".
	Source    string `yaml:"source"`
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
}

type AssistantConfig struct {
	// Mode is "echo" or "assistant".
	Mode         string `yaml:"mode"`
	Provider     string `yaml:"provider"`
	Persona      string `yaml:"persona"`
	SystemPrompt string `yaml:"system_prompt"`
	StageTimeout string `yaml:"stage_timeout"`
	MaxAttempts  int    `yaml:"max_attempts"`
}

type SpeechConfig struct {
	// Provider is "google" or "whisper".
	Provider string `yaml:"provider"`
	Language string `yaml:"language"`
	Model    string `yaml:"model"`
}

type VoiceConfig struct {
	Language   string `yaml:"language"`
	Name       string `yaml:"name"`
	Gender     string `yaml:"gender"`
	SampleRate int    `yaml:"sample_rate"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Title   string `yaml:"title"`
	Enabled bool   `yaml:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr serves /metrics on its own listener. When empty, the http trigger
	// server carries the endpoint, or ":9090" is used for other triggers.
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Personas are the built-in system prompts selectable with assistant.persona.
var Personas = map[string]string{
	"concise": "You are a helpful voice assistant. Answer in one or two short sentences " +
		"that sound natural when read aloud. Do not use lists, markdown or emoji.",
	"poetic": "You are a gentle explainer who answers in a warm, poetic voice, as if telling " +
		"a short story. Keep every answer under five sentences so it can be spoken aloud.",
}

// LoadDotEnv loads credentials from a .env file into the environment before
// the config is expanded. An empty path tries ./.env and ignores its absence.
func LoadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, applies defaults and validates
// the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists: an echo
// assistant on the microphone with console prompts and Google speech services.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Audio.Capture == "" {
		c.Audio.Capture = "microphone"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./clips"
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 2
	}
	if c.Audio.Duration == "" {
		c.Audio.Duration = "3s"
	}
	if c.Audio.RawPath == "" {
		c.Audio.RawPath = "output.wav"
	}
	if c.Audio.MonoPath == "" {
		c.Audio.MonoPath = "output_mono.wav"
	}
	if c.Audio.OutputPath == "" {
		c.Audio.OutputPath = "result.wav"
	}
	if c.Audio.Player == "" {
		c.Audio.Player = "speaker"
	}
	if c.Trigger.Source == "" {
		c.Trigger.Source = "console"
	}
	if c.Trigger.HTTPAddr == "" {
		c.Trigger.HTTPAddr = ":8080"
	}
	if c.Assistant.Mode == "" {
		c.Assistant.Mode = "echo"
	}
	if c.Assistant.Provider == "" {
		c.Assistant.Provider = "openai"
	}
	if c.Assistant.Persona == "" {
		c.Assistant.Persona = "concise"
	}
	if c.Assistant.StageTimeout == "" {
		c.Assistant.StageTimeout = "30s"
	}
	if c.Assistant.MaxAttempts == 0 {
		c.Assistant.MaxAttempts = 1
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = "google"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en-US"
	}
	if c.Voice.Language == "" {
		c.Voice.Language = c.Speech.Language
	}
	if c.Voice.Gender == "" {
		c.Voice.Gender = "FEMALE"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Capture {
	case "microphone", "file":
	default:
		errs = append(errs, fmt.Errorf("audio.capture: unknown value %q", c.Audio.Capture))
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels: must be 1 or 2, got %d", c.Audio.Channels))
	}
	if d, err := c.Audio.CaptureDuration(); err != nil {
		errs = append(errs, err)
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("audio.duration: must be positive"))
	}
	switch c.Audio.Player {
	case "speaker":
	case "command":
		if len(c.Audio.PlayerCommand) == 0 {
			errs = append(errs, fmt.Errorf("audio.player_command: required for the command player"))
		}
	default:
		errs = append(errs, fmt.Errorf("audio.player: unknown value %q", c.Audio.Player))
	}

	switch c.Trigger.Source {
	case "console", "keypress", "http":
	default:
		errs = append(errs, fmt.Errorf("trigger.source: unknown value %q", c.Trigger.Source))
	}

	switch c.Assistant.Mode {
	case "echo":
	case "assistant":
		errs = append(errs, c.validateGenerator()...)
	default:
		errs = append(errs, fmt.Errorf("assistant.mode: unknown value %q", c.Assistant.Mode))
	}
	if d, err := c.Assistant.Timeout(); err != nil {
		errs = append(errs, err)
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("assistant.stage_timeout: must not be negative"))
	}
	if c.Assistant.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("assistant.max_attempts: must be at least 1"))
	}

	switch c.Speech.Provider {
	case "google":
	case "whisper":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("openai.api_key: required for whisper speech"))
		}
	default:
		errs = append(errs, fmt.Errorf("speech.provider: unknown value %q", c.Speech.Provider))
	}

	return errors.Join(errs...)
}

func (c *Config) validateGenerator() []error {
	var errs []error

	var key string
	switch c.Assistant.Provider {
	case "openai":
		key = c.OpenAI.APIKey
	case "anthropic":
		key = c.Anthropic.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	default:
		return []error{fmt.Errorf("assistant.provider: unknown value %q", c.Assistant.Provider)}
	}
	if key == "" {
		errs = append(errs, fmt.Errorf("%s.api_key: required for assistant mode", c.Assistant.Provider))
	}

	if _, err := c.Assistant.Prompt(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (a AudioConfig) CaptureDuration() (time.Duration, error) {
	d, err := time.ParseDuration(a.Duration)
	if err != nil {
		return 0, fmt.Errorf("audio.duration: %w", err)
	}
	return d, nil
}

// Timeout is the per-call limit for service stages. Zero disables it.
func (a AssistantConfig) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(a.StageTimeout)
	if err != nil {
		return 0, fmt.Errorf("assistant.stage_timeout: %w", err)
	}
	return d, nil
}

// Prompt returns the system prompt: the literal override when set, else the
// persona's preset.
func (a AssistantConfig) Prompt() (string, error) {
	if a.SystemPrompt != "" {
		return a.SystemPrompt, nil
	}
	prompt, ok := Personas[a.Persona]
	if !ok {
		return "", fmt.Errorf("assistant.persona: unknown persona %q", a.Persona)
	}
	return prompt, nil
}
