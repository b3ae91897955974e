// Package config loads the uploader settings from an optional YAML file
// and environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/gcp"
	"github.com/Lllllllleong/dailyuploadflow/internal/ledger"
	"github.com/Lllllllleong/dailyuploadflow/internal/scheduler"
	"github.com/Lllllllleong/dailyuploadflow/internal/source"
	"gopkg.in/yaml.v3"
)

const (
	SourceLocal = "local"
	SourceGCS   = "gcs"

	LedgerFile      = "file"
	LedgerFirestore = "firestore"

	ProviderVertex   = "vertex"
	ProviderFilename = "filename"
)

// SourceConfig selects where candidate videos come from.
type SourceConfig struct {
	Kind       string   `yaml:"kind"`
	Dir        string   `yaml:"dir"`
	Bucket     string   `yaml:"bucket,omitempty"`
	Prefix     string   `yaml:"prefix,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// LedgerConfig selects the dedup ledger backend.
type LedgerConfig struct {
	Kind       string `yaml:"kind"`
	Path       string `yaml:"path,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	Database   string `yaml:"database,omitempty"`
}

// EnrichmentConfig configures description generation.
type EnrichmentConfig struct {
	Provider             string  `yaml:"provider"`
	Model                string  `yaml:"model"`
	Temperature          float64 `yaml:"temperature"`
	Region               string  `yaml:"region"`
	MaxDescriptionLength int     `yaml:"max_description_length"`
	// Context is appended to every prompt, e.g. the channel's theme.
	Context string `yaml:"context,omitempty"`
}

// PublishConfig configures the YouTube upload.
type PublishConfig struct {
	ClientID      string `yaml:"client_id,omitempty"`
	ClientSecret  string `yaml:"client_secret,omitempty"`
	TokenFile     string `yaml:"token_file"`
	CategoryID    string `yaml:"category_id"`
	PrivacyStatus string `yaml:"privacy_status"`
	ChunkSize     int    `yaml:"chunk_size,omitempty"`
	Thumbnails    bool   `yaml:"thumbnails"`
}

// ScheduleConfig is the daily trigger.
type ScheduleConfig struct {
	Time         string        `yaml:"time"`
	TimeZone     string        `yaml:"timezone,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// NotifyConfig names the workflow started after each published item.
// An empty WorkflowID disables the hand-off.
type NotifyConfig struct {
	WorkflowID string `yaml:"workflow_id,omitempty"`
	Location   string `yaml:"location"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Config is the full uploader configuration.
type Config struct {
	ProjectID  string           `yaml:"project_id,omitempty"`
	Source     SourceConfig     `yaml:"source"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Publish    PublishConfig    `yaml:"publish"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Notify     NotifyConfig     `yaml:"notify"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Kind:       SourceLocal,
			Dir:        filepath.Join(".", "data", "videos"),
			Extensions: append([]string(nil), source.DefaultExtensions...),
		},
		Ledger: LedgerConfig{
			Kind:       LedgerFile,
			Collection: ledger.DefaultCollection,
		},
		Enrichment: EnrichmentConfig{
			Provider:             ProviderVertex,
			Model:                "gemini-1.5-pro",
			Temperature:          0.7,
			Region:               "us-central1",
			MaxDescriptionLength: 5000,
		},
		Publish: PublishConfig{
			TokenFile:     "token.json",
			CategoryID:    "22",
			PrivacyStatus: "public",
			Thumbnails:    true,
		},
		Schedule: ScheduleConfig{
			Time:         "09:00",
			PollInterval: scheduler.DefaultPollInterval,
		},
		Notify: NotifyConfig{Location: "us-central1"},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. Blank environment variables do not override. A missing file is an error only when the path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefaultFile is Load with the CONFIG_FILE variable, falling back to
// ./config.yaml when that exists.
func LoadDefaultFile() (*Config, error) {
	path := gcp.GetEnv("CONFIG_FILE", "")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	c.ProjectID = gcp.GetEnvNonEmpty("PROJECT_ID", c.ProjectID)

	c.Source.Kind = gcp.GetEnvNonEmpty("SOURCE_KIND", c.Source.Kind)
	c.Source.Dir = gcp.GetEnvNonEmpty("VIDEO_FOLDER_PATH", c.Source.Dir)
	c.Source.Bucket = gcp.GetEnvNonEmpty("VIDEO_BUCKET", c.Source.Bucket)
	c.Source.Prefix = gcp.GetEnvNonEmpty("VIDEO_PREFIX", c.Source.Prefix)
	c.Source.Extensions = gcp.GetEnvList("VIDEO_EXTENSIONS", c.Source.Extensions)

	c.Ledger.Kind = gcp.GetEnvNonEmpty("LEDGER_KIND", c.Ledger.Kind)
	c.Ledger.Path = gcp.GetEnvNonEmpty("LEDGER_PATH", c.Ledger.Path)
	c.Ledger.Collection = gcp.GetEnvNonEmpty("FIRESTORE_COLLECTION", c.Ledger.Collection)
	c.Ledger.Database = gcp.GetEnvNonEmpty("FIRESTORE_DATABASE", c.Ledger.Database)

	c.Enrichment.Provider = gcp.GetEnvNonEmpty("ENRICHMENT_PROVIDER", c.Enrichment.Provider)
	c.Enrichment.Model = gcp.GetEnvNonEmpty("LLM_MODEL", c.Enrichment.Model)
	c.Enrichment.Temperature = gcp.GetEnvFloat("LLM_TEMPERATURE", c.Enrichment.Temperature)
	c.Enrichment.Region = gcp.GetEnvNonEmpty("VERTEX_AI_REGION", c.Enrichment.Region)
	c.Enrichment.MaxDescriptionLength = gcp.GetEnvInt("MAX_DESCRIPTION_LENGTH", c.Enrichment.MaxDescriptionLength)
	c.Enrichment.Context = gcp.GetEnvNonEmpty("VIDEO_CONTEXT", c.Enrichment.Context)

	c.Publish.ClientID = gcp.GetEnvNonEmpty("YOUTUBE_CLIENT_ID", c.Publish.ClientID)
	c.Publish.ClientSecret = gcp.GetEnvNonEmpty("YOUTUBE_CLIENT_SECRET", c.Publish.ClientSecret)
	c.Publish.TokenFile = gcp.GetEnvNonEmpty("YOUTUBE_TOKEN_FILE", c.Publish.TokenFile)
	c.Publish.CategoryID = gcp.GetEnvNonEmpty("YOUTUBE_CATEGORY_ID", c.Publish.CategoryID)
	c.Publish.PrivacyStatus = gcp.GetEnvNonEmpty("YOUTUBE_PRIVACY_STATUS", c.Publish.PrivacyStatus)
	c.Publish.ChunkSize = gcp.GetEnvInt("UPLOAD_CHUNK_SIZE", c.Publish.ChunkSize)
	c.Publish.Thumbnails = gcp.GetEnvBool("ATTACH_THUMBNAILS", c.Publish.Thumbnails)

	c.Schedule.Time = gcp.GetEnvNonEmpty("UPLOAD_SCHEDULE_TIME", c.Schedule.Time)
	c.Schedule.TimeZone = gcp.GetEnvNonEmpty("UPLOAD_TIMEZONE", c.Schedule.TimeZone)
	c.Schedule.PollInterval = gcp.GetEnvDuration("POLL_INTERVAL", c.Schedule.PollInterval)

	c.Notify.WorkflowID = gcp.GetEnvNonEmpty("WORKFLOW_ID", c.Notify.WorkflowID)
	c.Notify.Location = gcp.GetEnvNonEmpty("WORKFLOW_LOCATION", c.Notify.Location)

	c.Log.Level = gcp.GetEnvNonEmpty("LOG_LEVEL", c.Log.Level)
	c.Log.Format = gcp.GetEnvNonEmpty("LOG_FORMAT", c.Log.Format)
	c.Log.File = gcp.GetEnvNonEmpty("LOG_FILE", c.Log.File)
}

func (c *Config) fillDerived() {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	c.Ledger.Kind = strings.ToLower(strings.TrimSpace(c.Ledger.Kind))
	c.Enrichment.Provider = strings.ToLower(strings.TrimSpace(c.Enrichment.Provider))
	if c.Ledger.Kind == LedgerFile && c.Ledger.Path == "" && c.Source.Kind == SourceLocal {
		c.Ledger.Path = filepath.Join(c.Source.Dir, ledger.DefaultFileName)
	}
	if c.Ledger.Collection == "" {
		c.Ledger.Collection = ledger.DefaultCollection
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceLocal:
		if c.Source.Dir == "" {
			return errors.New("source.dir is required for a local source")
		}
	case SourceGCS:
		if c.Source.Bucket == "" {
			return errors.New("source.bucket is required for a gcs source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	switch c.Ledger.Kind {
	case LedgerFile:
		if c.Ledger.Path == "" {
			return errors.New("ledger.path is required for a file ledger outside a local source")
		}
	case LedgerFirestore:
		if c.ProjectID == "" {
			return errors.New("project_id is required for the firestore ledger")
		}
	default:
		return fmt.Errorf("unknown ledger kind %q", c.Ledger.Kind)
	}

	switch c.Enrichment.Provider {
	case ProviderVertex:
		if c.ProjectID == "" {
			return errors.New("project_id is required for the vertex provider")
		}
	case ProviderFilename:
	default:
		return fmt.Errorf("unknown enrichment provider %q", c.Enrichment.Provider)
	}
	if c.Enrichment.MaxDescriptionLength <= 0 {
		return errors.New("enrichment.max_description_length must be positive")
	}
	if c.Enrichment.Temperature < 0 || c.Enrichment.Temperature > 2 {
		return fmt.Errorf("enrichment.temperature %v is out of range", c.Enrichment.Temperature)
	}

	switch c.Publish.PrivacyStatus {
	case "public", "private", "unlisted":
	default:
		return fmt.Errorf("unknown privacy status %q", c.Publish.PrivacyStatus)
	}
	if c.Publish.ChunkSize < 0 {
		return errors.New("publish.chunk_size must not be negative")
	}

	if _, err := scheduler.ParseTimeOfDay(c.Schedule.Time); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Schedule.PollInterval <= 0 {
		return errors.New("schedule.poll_interval must be positive")
	}

	if c.Notify.WorkflowID != "" && c.ProjectID == "" {
		return errors.New("project_id is required to notify a workflow")
	}
	return nil
}

// Location resolves the schedule time zone. Empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", c.Schedule.TimeZone, err)
	}
	return loc, nil
}

// SchedulerConfig builds the scheduler settings.
func (c *Config) SchedulerConfig() (scheduler.Config, error) {
	at, err := scheduler.ParseTimeOfDay(c.Schedule.Time)
	if err != nil {
		return scheduler.Config{}, err
	}
	loc, err := c.Location()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{At: at, Location: loc, PollInterval: c.Schedule.PollInterval}, nil
}
