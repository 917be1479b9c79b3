package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	OCR    OCRConfig    `yaml:"ocr" mapstructure:"ocr"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PathsConfig locates the data root that staging, extraction, artifact, and
// snapshot directories hang off of.
type PathsConfig struct {
	DataRoot string `yaml:"data_root" mapstructure:"data_root"`
}

// IngestConfig configures chunking, redaction, and run scheduling.
type IngestConfig struct {
	ChunkMinChars   int    `yaml:"chunk_min_chars" mapstructure:"chunk_min_chars"`
	ChunkMaxChars   int    `yaml:"chunk_max_chars" mapstructure:"chunk_max_chars"`
	RedactSensitive bool   `yaml:"redact_sensitive" mapstructure:"redact_sensitive"`
	MaxWorkers      int    `yaml:"max_workers" mapstructure:"max_workers"`
	EventLogPath    string `yaml:"event_log_path" mapstructure:"event_log_path"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfInfoPath   string `yaml:"pdfinfo_path" mapstructure:"pdfinfo_path"`
	OcrMyPDFPath  string `yaml:"ocrmypdf_path" mapstructure:"ocrmypdf_path"`
	Language      string `yaml:"language" mapstructure:"language"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIDINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bidintake.db")
	v.SetDefault("paths.data_root", "data")
	v.SetDefault("ingest.chunk_min_chars", 1500)
	v.SetDefault("ingest.chunk_max_chars", 2000)
	v.SetDefault("ingest.redact_sensitive", false)
	v.SetDefault("ingest.max_workers", 4)
	v.SetDefault("ingest.event_log_path", "logs/intake.log")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdfinfo_path", "pdfinfo")
	v.SetDefault("ocr.ocrmypdf_path", "ocrmypdf")
	v.SetDefault("ocr.timeout_secs", 300)
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
