package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

//go:embed labels.yaml
var labelsYAML []byte

type Config struct {
	PhotoPrism    PhotoPrismConfig
	OpenAI        OpenAIConfig
	Gemini        GeminiConfig
	Ollama        OllamaConfig
	Embedding     EmbeddingConfig
	TFServing     TFServingConfig
	Geocoder      GeocoderConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Pipeline      PipelineConfig
	Web           WebConfig
	Labels        LabelDefaults
	LogLevel      string
}

type PhotoPrismConfig struct {
	URL      string
	Username string
	Password string
	// Token and DownloadToken reuse an existing session or app password
	// instead of logging in
	Token         string
	DownloadToken string
	Domain        string // public domain for generating photo links (e.g., https://photos.example.com)
}

// PhotoURL returns an OSC 8 hyperlink for terminal emulators (iTerm2, etc.)
// Displays the UID but makes it clickable to open the photo in PhotoPrism
// Returns empty string if Domain is not set
func (c *PhotoPrismConfig) PhotoURL(uid string) string {
	if c.Domain == "" {
		return ""
	}
	url := c.Domain + "/library/browse?view=cards&q=uid:" + uid
	// OSC 8 hyperlink format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	return "\x1b]8;;" + url + "\x1b\\" + uid + "\x1b]8;;\x1b\\"
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type EmbeddingConfig struct {
	URL   string // defaults to http://localhost:8000
	Model string // defaults to clip
}

// TFServingConfig points at a TensorFlow Serving instance hosting the two
// NIMA regression models.
type TFServingConfig struct {
	URL            string
	AestheticModel string
	TechnicalModel string
}

type GeocoderConfig struct {
	URL       string // defaults to https://nominatim.openstreetmap.org
	UserAgent string
	Language  string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // MariaDB DSN, used when URL is empty
	SQLitePath   string // SQLite file, used when neither URL nor MariaDBDSN is set
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ElasticsearchConfig struct {
	URL   string
	Index string
}

// PipelineConfig holds the tuning knobs of the grouping and dedup pipeline.
type PipelineConfig struct {
	GroupThresholdKM float64
	DedupThreshold   float64
	LabelConfidence  float64
	MaxConcurrency   int
	AssetConcurrency int
}

// LabelDefaults is the built-in label vocabulary.
type LabelDefaults struct {
	Required []string `yaml:"required"`
	Excluded []string `yaml:"excluded"`
}

// WebConfig configures the HTTP API.
type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// envList splits a comma-separated environment variable, skipping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floating point values.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DefaultLabels returns the embedded label vocabulary.
func DefaultLabels() LabelDefaults {
	var defaults LabelDefaults
	if err := yaml.Unmarshal(labelsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded labels.yaml: " + err.Error())
	}
	return defaults
}

func Load() *Config {
	return &Config{
		PhotoPrism: PhotoPrismConfig{
			URL:           os.Getenv("PHOTOPRISM_URL"),
			Username:      os.Getenv("PHOTOPRISM_USERNAME"),
			Password:      os.Getenv("PHOTOPRISM_PASSWORD"),
			Token:         os.Getenv("PHOTOPRISM_TOKEN"),
			DownloadToken: os.Getenv("PHOTOPRISM_DOWNLOAD_TOKEN"),
			Domain:        os.Getenv("PHOTOPRISM_DOMAIN"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: os.Getenv("EMBEDDING_MODEL"),
		},
		TFServing: TFServingConfig{
			URL:            envString("TFSERVING_URL", "http://localhost:8501"),
			AestheticModel: envString("NIMA_AESTHETIC_MODEL", "nima_aesthetic"),
			TechnicalModel: envString("NIMA_TECHNICAL_MODEL", "nima_technical"),
		},
		Geocoder: GeocoderConfig{
			URL:       envString("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: envString("GEOCODER_USER_AGENT", "photo-curator"),
			Language:  envString("GEOCODER_LANGUAGE", "en"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			SQLitePath:   envString("SQLITE_PATH", "photo-curator.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:   os.Getenv("ELASTICSEARCH_URL"),
			Index: envString("ELASTICSEARCH_INDEX", "photo-curator"),
		},
		Pipeline: PipelineConfig{
			GroupThresholdKM: envFloat("GROUP_THRESHOLD_KM", constants.DefaultGroupThresholdKM),
			DedupThreshold:   envFloat("DEDUP_THRESHOLD", constants.DefaultDedupThreshold),
			LabelConfidence:  envFloat("LABEL_CONFIDENCE", constants.DefaultLabelConfidence),
			MaxConcurrency:   envInt("MAX_CONCURRENCY", constants.DefaultMaxConcurrency),
			AssetConcurrency: envInt("ASSET_CONCURRENCY", constants.DefaultAssetConcurrency),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Labels:   DefaultLabels(),
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}
