package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// Config holds all application configuration
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Mistral    MistralConfig    `mapstructure:"mistral"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Vertex     VertexConfig     `mapstructure:"vertex"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Watch      WatchConfig      `mapstructure:"watch"`
}

// PathsConfig holds the input/output/ledger triple a run works on
type PathsConfig struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Ledger string `mapstructure:"ledger"`
}

// ExtractionConfig selects the text extraction strategy
type ExtractionConfig struct {
	Method string `mapstructure:"method"`
}

// OCRConfig holds poppler/tesseract settings for the library parse strategy
type OCRConfig struct {
	Pdftotext    string `mapstructure:"pdftotext"`
	Pdftoppm     string `mapstructure:"pdftoppm"`
	Tesseract    string `mapstructure:"tesseract"`
	Lang         string `mapstructure:"lang"`
	DPI          int    `mapstructure:"dpi"`
	TessdataDir  string `mapstructure:"tessdata_dir"`
	MinTextChars int    `mapstructure:"min_text_chars"`
}

// MistralConfig holds remote OCR settings
type MistralConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds field extraction settings
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VertexConfig holds Vertex AI settings when llm.provider is "vertex"
type VertexConfig struct {
	Project string `mapstructure:"project"`
	Region  string `mapstructure:"region"`
	Model   string `mapstructure:"model"`
}

// JournalConfig holds the optional run journal database
type JournalConfig struct {
	DSN string `mapstructure:"dsn"`
}

// WatchConfig holds daemon settings
type WatchConfig struct {
	Debounce   time.Duration `mapstructure:"debounce"`
	HealthAddr string        `mapstructure:"health_addr"`
}

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// envBindings keeps the historical environment variable names.
var envBindings = map[string]string{
	"paths.input":        "INPUT_DIR",
	"paths.output":       "OUTPUT_DIR",
	"paths.ledger":       "LEDGER_PATH",
	"extraction.method":  "EXTRACTION_METHOD",
	"ocr.pdftotext":      "PDFTOTEXT",
	"ocr.pdftoppm":       "PDFTOPPM",
	"ocr.tesseract":      "TESSERACT",
	"ocr.lang":           "OCR_LANG",
	"ocr.dpi":            "OCR_DPI",
	"ocr.tessdata_dir":   "TESSDATA_PREFIX",
	"ocr.min_text_chars": "OCR_MIN_TEXT_CHARS",
	"mistral.api_key":    "MISTRAL_API_KEY",
	"mistral.model":      "MISTRAL_MODEL",
	"mistral.base_url":   "MISTRAL_BASE_URL",
	"mistral.timeout":    "MISTRAL_TIMEOUT",
	"llm.provider":       "LLM_PROVIDER",
	"llm.model":          "OPENAI_MODEL",
	"llm.api_key":        "OPENAI_API_KEY",
	"llm.base_url":       "OPENAI_BASE_URL",
	"llm.temperature":    "OPENAI_TEMPERATURE",
	"llm.timeout":        "OPENAI_TIMEOUT",
	"vertex.project":     "VERTEX_PROJECT",
	"vertex.region":      "VERTEX_REGION",
	"vertex.model":       "VERTEX_MODEL",
	"journal.dsn":        "DB_URL",
	"watch.debounce":     "WATCH_DEBOUNCE",
	"watch.health_addr":  "HEALTH_ADDR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extraction.method", string(constants.DefaultMethod))
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "deu+eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.min_text_chars", 20)
	v.SetDefault("mistral.model", "mistral-ocr-latest")
	v.SetDefault("mistral.base_url", "https://api.mistral.ai")
	v.SetDefault("mistral.timeout", 120*time.Second)
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4.1-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("vertex.region", "europe-west3")
	v.SetDefault("vertex.model", "gemini-1.5-flash")
	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("watch.health_addr", ":8081")
}

// NewViper builds the viper instance: defaults, then the optional config file,
// then environment variables.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read config file %s", configFile), fmt.Errorf("%w: %v", ErrConfiguration, err))
		}
	}
	return v, nil
}

// LoadConfig loads configuration from an optional file and the environment.
func LoadConfig(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes a prepared viper instance into a Config.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", fmt.Errorf("%w: %v", ErrConfiguration, err))
	}
	return &cfg, nil
}

// Method returns the canonical extraction method, or false if the selector is unknown.
func (c *Config) Method() (constants.ExtractionMethod, bool) {
	return constants.CanonicalizeMethod(c.Extraction.Method)
}

// Validate checks everything a run needs before any document is touched.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field(envBindings["paths.input"], c.Paths.Input, Required)
	v.Field(envBindings["paths.output"], c.Paths.Output, Required)
	v.Field(envBindings["paths.ledger"], c.Paths.Ledger, Required)

	method, ok := c.Method()
	v.Check(ok, envBindings["extraction.method"],
		fmt.Sprintf("must be one of [%s], got %q", strings.Join(constants.MethodStrings(), ", "), c.Extraction.Method))
	if ok && method.NeedsRemoteCredentials() {
		v.Field(envBindings["mistral.api_key"], c.Mistral.APIKey, Required)
	}

	v.Field(envBindings["llm.provider"], c.LLM.Provider, OneOf(ProviderOpenAI, ProviderVertex))
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case ProviderOpenAI:
		v.Field(envBindings["llm.api_key"], c.LLM.APIKey, Required)
	case ProviderVertex:
		v.Field(envBindings["vertex.project"], c.Vertex.Project, Required)
	}
	return ValidateAndReturnError(v)
}

// ValidateExtraction checks only what the text extraction strategy needs.
func (c *Config) ValidateExtraction() error {
	v := NewValidator()
	method, ok := c.Method()
	v.Check(ok, envBindings["extraction.method"],
		fmt.Sprintf("must be one of [%s], got %q", strings.Join(constants.MethodStrings(), ", "), c.Extraction.Method))
	if ok && method.NeedsRemoteCredentials() {
		v.Field(envBindings["mistral.api_key"], c.Mistral.APIKey, Required)
	}
	return ValidateAndReturnError(v)
}
