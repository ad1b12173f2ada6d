package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	Env       string
	APIKey    string
	AssetsDir string
	Veo       VeoConfig
	Media     MediaConfig
	JobStore  JobStoreConfig
}

type VeoConfig struct {
	Model        string
	PollInterval time.Duration
	Timeout      time.Duration
}

type MediaConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// JobStoreConfig only carries the file path; the optional Postgres DSN
// is read by the store itself (jobstore.NewFromEnv).
type JobStoreConfig struct {
	Path string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:      *port,
		Env:       env,
		APIKey:    ResolveAPIKey(),
		AssetsDir: strings.TrimSpace(os.Getenv("ASSETS_DIR")),
		Veo:       loadVeoConfig(),
		Media:     loadMediaConfig(env),
		JobStore: JobStoreConfig{
			Path: firstNonEmpty(strings.TrimSpace(os.Getenv("JOB_STORE_PATH")), "tmp/generation_jobs.json"),
		},
	}, nil
}

// ResolveAPIKey reads the provider credential. GEMINI_API_KEY wins;
// GOOGLE_API_KEY is accepted because the genai SDK also honors it.
func ResolveAPIKey() string {
	return firstNonEmpty(
		strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
	)
}

func loadVeoConfig() VeoConfig {
	return VeoConfig{
		Model:        firstNonEmpty(strings.TrimSpace(os.Getenv("VEO_MODEL")), "veo-2.0-generate-001"),
		PollInterval: resolveDuration("VEO_POLL_INTERVAL", 10*time.Second),
		Timeout:      resolveDuration("VEO_TIMEOUT", 10*time.Minute),
	}
}

func loadMediaConfig(env string) MediaConfig {
	endpoint := resolveMediaEndpoint(env)
	return MediaConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_BUCKET")), "coloringpage-videos"),
		UseSSL:    resolveMediaUseSSL(env),
	}
}

func resolveMediaEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("MEDIA_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("MEDIA_S3_ENDPOINT"))
}

func resolveMediaUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("MEDIA_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func resolveDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
