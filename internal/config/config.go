package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Logger      LoggerConfig
	Catalog     CatalogConfig
	Database    DatabaseConfig
	Mesh        MeshConfig
	Render      RenderConfig
	Screenshots ScreenshotConfig
	Viewer      ViewerConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type LoggerConfig struct {
	Level  string
	Format string
}

const (
	CatalogSourceCSV      = "csv"
	CatalogSourcePostgres = "postgres"
)

type CatalogConfig struct {
	Source   string
	CSVPath  string
	PageSize int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type MeshConfig struct {
	MitoSource        string
	NeuronSource      string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheSize         int
	VoxelSize         [3]float64
}

type RenderConfig struct {
	ImageSize   int
	StepDeg     int
	Supersample int
	Workers     int
	Timeout     time.Duration
}

type ScreenshotConfig struct {
	Dir              string
	URLPrefix        string
	PlaceholderPath  string
	PlaceholderURL   string
	PlaceholderPixel int
}

type ViewerConfig struct {
	NeuroglancerURL string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 5000)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("CATALOG_SOURCE", CatalogSourceCSV)
	v.SetDefault("MITO_CSV_PATH", "data/36750893213_mito_materialization.csv")
	v.SetDefault("CATALOG_PAGE_SIZE", 8)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "mito")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TABLE", "mito_materialization")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("MITO_URL", "precomputed://https://rhoana.rc.fas.harvard.edu/ng/h01_mito/36750893213")
	v.SetDefault("NEURON_URL", "precomputed://gs://h01-release/data/20210601/c3")
	v.SetDefault("MESH_TIMEOUT", "30s")
	v.SetDefault("MESH_RATE_LIMIT", 20)
	v.SetDefault("MESH_CACHE_SIZE", 32)
	v.SetDefault("MESH_VOXEL_SIZE", "8,8,33")

	v.SetDefault("RENDER_IMAGE_SIZE", 1024)
	v.SetDefault("RENDER_STEP_DEG", 45)
	v.SetDefault("RENDER_SUPERSAMPLE", 1)
	v.SetDefault("RENDER_WORKERS", 4)
	v.SetDefault("RENDER_TIMEOUT", "2m")

	v.SetDefault("SCREENSHOTS_DIR", "static/screenshots")
	v.SetDefault("SCREENSHOTS_URL_PREFIX", "/static/screenshots")
	v.SetDefault("PLACEHOLDER_IMAGE", "static/img/default_mito.png")
	v.SetDefault("PLACEHOLDER_URL", "/static/img/default_mito.png")
	v.SetDefault("PLACEHOLDER_SIZE", 256)

	v.SetDefault("NEUROGLANCER_URL", "https://neuroglancer-demo.appspot.com/")

	// Env
	v.AutomaticEnv()

	meshTimeout, err := time.ParseDuration(v.GetString("MESH_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("MESH_TIMEOUT: %w", err)
	}
	renderTimeout, err := time.ParseDuration(v.GetString("RENDER_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("RENDER_TIMEOUT: %w", err)
	}
	connLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}
	voxel, err := parseTriple(v.GetString("MESH_VOXEL_SIZE"))
	if err != nil {
		return nil, fmt.Errorf("MESH_VOXEL_SIZE: %w", err)
	}

	source := strings.ToLower(v.GetString("CATALOG_SOURCE"))
	if source != CatalogSourceCSV && source != CatalogSourcePostgres {
		return nil, fmt.Errorf("CATALOG_SOURCE: unknown source %q", source)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               v.GetString("SERVER_HOST"),
			Port:               v.GetInt("SERVER_PORT"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Catalog: CatalogConfig{
			Source:   source,
			CSVPath:  v.GetString("MITO_CSV_PATH"),
			PageSize: v.GetInt("CATALOG_PAGE_SIZE"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			Table:           v.GetString("DB_TABLE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Mesh: MeshConfig{
			MitoSource:        v.GetString("MITO_URL"),
			NeuronSource:      v.GetString("NEURON_URL"),
			Timeout:           meshTimeout,
			RequestsPerSecond: v.GetFloat64("MESH_RATE_LIMIT"),
			CacheSize:         v.GetInt("MESH_CACHE_SIZE"),
			VoxelSize:         voxel,
		},
		Render: RenderConfig{
			ImageSize:   v.GetInt("RENDER_IMAGE_SIZE"),
			StepDeg:     v.GetInt("RENDER_STEP_DEG"),
			Supersample: v.GetInt("RENDER_SUPERSAMPLE"),
			Workers:     v.GetInt("RENDER_WORKERS"),
			Timeout:     renderTimeout,
		},
		Screenshots: ScreenshotConfig{
			Dir:              v.GetString("SCREENSHOTS_DIR"),
			URLPrefix:        v.GetString("SCREENSHOTS_URL_PREFIX"),
			PlaceholderPath:  v.GetString("PLACEHOLDER_IMAGE"),
			PlaceholderURL:   v.GetString("PLACEHOLDER_URL"),
			PlaceholderPixel: v.GetInt("PLACEHOLDER_SIZE"),
		},
		Viewer: ViewerConfig{
			NeuroglancerURL: v.GetString("NEUROGLANCER_URL"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := splitList(s)
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 comma-separated values, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return out, err
		}
		if f <= 0 {
			return out, fmt.Errorf("value %v must be positive", f)
		}
		out[i] = f
	}
	return out, nil
}
