// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 9:58:44 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	LLM         LLMConfig        `toml:"llm"`
	OpenAI      OpenAIConfig     `toml:"openai"`
	Ollama      OllamaConfig     `toml:"ollama"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	OCR         OCRConfig        `toml:"ocr"`
	Annotation  AnnotationConfig `toml:"annotation"`
	Output      OutputConfig     `toml:"output"`
	Logging     LoggingConfig    `toml:"logging"`
}

// LLMConfig contains model selection and completion parameters shared by
// all providers
type LLMConfig struct {
	Model           string  `toml:"model"`             // Preferred model; resolution falls back through the candidate chain
	Temperature     float32 `toml:"temperature"`       // 0.0 for deterministic extraction output
	MaxOutputTokens int     `toml:"max_output_tokens"` // Maximum tokens in the completion
	JSONStrict      bool    `toml:"json_strict"`       // Request strict JSON schema mode when the backend supports it
	Seed            int     `toml:"seed"`              // Sampling seed for reproducibility (negative = unset)
	Timeout         string  `toml:"timeout"`           // Per-request timeout as duration string (default: "30s")
	RateLimit       string  `toml:"rate_limit"`        // Minimum interval between requests (default: "1s")
	DisableOllama   bool    `toml:"disable_ollama"`    // Skip ollama/ candidates during model resolution
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`  // OpenAI API key (OPENAI_API_KEY)
	BaseURL string `toml:"base_url"` // Custom OpenAI-compatible endpoint, empty for api.openai.com
}

// OllamaConfig contains the local OpenAI-compatible server configuration
type OllamaConfig struct {
	BaseURL string `toml:"base_url"` // Ollama endpoint (default: "http://localhost:11434/v1")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"` // Google Gemini API key (GEMINI_API_KEY)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey string `toml:"api_key"` // Anthropic API key (ANTHROPIC_API_KEY)
}

// OCRConfig contains OCR engine configuration
type OCRConfig struct {
	Engine       string  `toml:"engine"`        // "tesseract", "rapidocr", or "docling"
	Langs        string  `toml:"langs"`         // Comma-separated OCR languages (e.g., "spa,eng,cat")
	DPI          int     `toml:"dpi"`           // DPI for PDF page rasterization
	ImagesScale  float64 `toml:"images_scale"`  // Layout engine scale factor (4.17 = 300 DPI / 72)
	MaxPages     int     `toml:"max_pages"`     // Page cap per document (0 = all pages)
	TesseractOEM int     `toml:"tesseract_oem"` // Tesseract OCR engine mode
	TesseractPSM int     `toml:"tesseract_psm"` // Tesseract page segmentation mode
	Deskew       bool    `toml:"deskew"`        // Apply deskew correction to scanned pages
	Binarize     bool    `toml:"binarize"`      // Apply binarization to scanned pages
	RapidOCRURL  string  `toml:"rapidocr_url"`  // RapidOCR HTTP service endpoint
	DoclingURL   string  `toml:"docling_url"`   // Docling HTTP service endpoint
}

// AnnotationConfig contains annotated output rendering configuration
type AnnotationConfig struct {
	DPI int `toml:"dpi"` // DPI for annotated page rendering
}

// OutputConfig contains output file configuration
type OutputConfig struct {
	Dir          string `toml:"dir"`           // Directory for output files
	RedactOutput bool   `toml:"redact_output"` // Redact sensitive values in annotated output
	DebugDir     string `toml:"debug_dir"`     // Directory for raw LLM response dumps (empty = disabled)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in scriba.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		LLM: LLMConfig{
			Model:           "gpt-4o-mini", // Preferred extraction model
			Temperature:     0.0,           // Deterministic output for extraction
			MaxOutputTokens: 2000,
			JSONStrict:      true, // Strict schema mode, falls back when unavailable
			Seed:            7,    // Fixed seed for reproducible runs
			Timeout:         "30s",
			RateLimit:       "1s",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434/v1",
		},
		OCR: OCRConfig{
			Engine:       "tesseract",
			Langs:        "spa,eng,cat", // Spanish documents with Catalan and English fallback
			DPI:          300,
			ImagesScale:  4.17, // 4.17 = 300 DPI (72 * 4.17)
			MaxPages:     0,    // All pages
			TesseractOEM: 1,    // LSTM engine
			TesseractPSM: 6,    // Assume a single uniform block of text
			Deskew:       true,
			Binarize:     true,
			RapidOCRURL:  "http://localhost:9003",
			DoclingURL:   "http://localhost:5001",
		},
		Annotation: AnnotationConfig{
			DPI: 300,
		},
		Output: OutputConfig{
			Dir:          "outputs",
			RedactOutput: false,
			DebugDir:     "", // Disabled unless set
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: SCRIBA_ENV, fallback: GO_ENV)
	if env := os.Getenv("SCRIBA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// LLM configuration
	if model := os.Getenv("SCRIBA_DEFAULT_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if temperature := os.Getenv("SCRIBA_LLM_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.LLM.Temperature = float32(t)
		}
	}
	if maxTokens := os.Getenv("SCRIBA_LLM_MAX_OUTPUT_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.LLM.MaxOutputTokens = mt
		}
	}
	if jsonStrict := os.Getenv("SCRIBA_LLM_JSON_STRICT"); jsonStrict != "" {
		if s, err := strconv.ParseBool(jsonStrict); err == nil {
			config.LLM.JSONStrict = s
		}
	}
	if timeout := os.Getenv("SCRIBA_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}
	if os.Getenv("SCRIBA_DISABLE_OLLAMA") == "1" {
		config.LLM.DisableOllama = true
	}

	// OpenAI configuration
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("SCRIBA_OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey // SCRIBA_ prefix takes priority
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}

	// Ollama configuration
	if baseURL := os.Getenv("OLLAMA_API_BASE"); baseURL != "" {
		config.Ollama.BaseURL = baseURL
	}

	// Gemini configuration
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SCRIBA_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SCRIBA_ prefix takes priority
	}

	// OCR configuration
	if engine := os.Getenv("SCRIBA_OCR_ENGINE"); engine != "" {
		config.OCR.Engine = engine
	}
	if langs := os.Getenv("SCRIBA_OCR_LANGS"); langs != "" {
		config.OCR.Langs = langs
	}
	if dpi := os.Getenv("SCRIBA_OCR_DPI"); dpi != "" {
		if d, err := strconv.Atoi(dpi); err == nil {
			config.OCR.DPI = d
		}
	}
	if maxPages := os.Getenv("SCRIBA_OCR_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.OCR.MaxPages = mp
		}
	}
	if url := os.Getenv("SCRIBA_RAPIDOCR_URL"); url != "" {
		config.OCR.RapidOCRURL = url
	}
	if url := os.Getenv("SCRIBA_DOCLING_URL"); url != "" {
		config.OCR.DoclingURL = url
	}

	// Output configuration
	if dir := os.Getenv("SCRIBA_OUTPUTS_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if redact := os.Getenv("SCRIBA_REDACT_OUTPUT"); redact != "" {
		if r, err := strconv.ParseBool(redact); err == nil {
			config.Output.RedactOutput = r
		}
	}
	if dir := os.Getenv("SCRIBA_DEBUG_DIR"); dir != "" {
		config.Output.DebugDir = dir
	}

	// Logging configuration
	if level := os.Getenv("SCRIBA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCRIBA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, model, engine, outputsDir string) {
	// Command-line flags have highest priority
	if model != "" {
		config.LLM.Model = model
	}
	if engine != "" {
		config.OCR.Engine = engine
	}
	if outputsDir != "" {
		config.Output.Dir = outputsDir
	}
}

// LLMTimeout returns the parsed per-request timeout, defaulting to 30s
// when the configured value does not parse.
func (c *Config) LLMTimeout() time.Duration {
	if d, err := time.ParseDuration(c.LLM.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// LLMRateLimit returns the parsed minimum interval between LLM requests,
// zero when pacing is disabled.
func (c *Config) LLMRateLimit() time.Duration {
	if d, err := time.ParseDuration(c.LLM.RateLimit); err == nil && d > 0 {
		return d
	}
	return 0
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
