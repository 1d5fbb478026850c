package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Groq      GroqConfig
	Storage   StorageConfig
	Media     MediaConfig
	Chat      ChatConfig
	Worker    WorkerConfig
	Upload    UploadConfig
	R2        R2Config
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	ProcessPerHour int
	UploadPerHour  int
	ChatPerMin     int
}

type GroqConfig struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            int // seconds
}

type StorageConfig struct {
	DataDir  string // downloaded audio, uploads and chunks
	JobsFile string
}

type MediaConfig struct {
	YtDlpPath           string
	FFmpegPath          string
	SplitThresholdBytes int64
	SegmentSeconds      int
	TitleLookup         bool
}

type ChatConfig struct {
	MaxTranscriptChars int
	Temperature        float64
	MaxTokens          int
}

type WorkerConfig struct {
	Mode        string // "asynq" or "local"
	Concurrency int
}

type UploadConfig struct {
	MaxBytes int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.model", "GROQ_MODEL")
	_ = viper.BindEnv("groq.transcription_model", "GROQ_TRANSCRIPTION_MODEL")
	_ = viper.BindEnv("groq.timeout", "GROQ_TIMEOUT")
	_ = viper.BindEnv("storage.data_dir", "DATA_DIR")
	_ = viper.BindEnv("storage.jobs_file", "JOBS_FILE")
	_ = viper.BindEnv("media.ytdlp_path", "YTDLP_PATH")
	_ = viper.BindEnv("media.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("media.title_lookup", "TITLE_LOOKUP")
	_ = viper.BindEnv("worker.mode", "WORKER_MODE")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("upload.max_bytes", "UPLOAD_MAX_BYTES")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.endpoint", "R2_ENDPOINT")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.process_per_hour", 30)
	viper.SetDefault("ratelimit.upload_per_hour", 30)
	viper.SetDefault("ratelimit.chat_per_min", 20)

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.model", "llama-3.3-70b-versatile")
	viper.SetDefault("groq.transcription_model", "whisper-large-v3")
	viper.SetDefault("groq.timeout", 300)

	// Storage defaults
	viper.SetDefault("storage.data_dir", "downloads")
	viper.SetDefault("storage.jobs_file", "jobs.json")

	// Media tool defaults
	viper.SetDefault("media.ytdlp_path", "yt-dlp")
	viper.SetDefault("media.ffmpeg_path", "ffmpeg")
	viper.SetDefault("media.split_threshold_bytes", 24*1024*1024)
	viper.SetDefault("media.segment_seconds", 600)
	viper.SetDefault("media.title_lookup", true)

	// Chat defaults
	viper.SetDefault("chat.max_transcript_chars", 15000)
	viper.SetDefault("chat.temperature", 0.5)
	viper.SetDefault("chat.max_tokens", 1024)

	// Worker defaults
	viper.SetDefault("worker.mode", "asynq")
	viper.SetDefault("worker.concurrency", 4)

	viper.SetDefault("upload.max_bytes", 500*1024*1024)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			ProcessPerHour: viper.GetInt("ratelimit.process_per_hour"),
			UploadPerHour:  viper.GetInt("ratelimit.upload_per_hour"),
			ChatPerMin:     viper.GetInt("ratelimit.chat_per_min"),
		},
		Groq: GroqConfig{
			APIKey:             viper.GetString("groq.api_key"),
			BaseURL:            viper.GetString("groq.base_url"),
			Model:              viper.GetString("groq.model"),
			TranscriptionModel: viper.GetString("groq.transcription_model"),
			Timeout:            viper.GetInt("groq.timeout"),
		},
		Storage: StorageConfig{
			DataDir:  viper.GetString("storage.data_dir"),
			JobsFile: viper.GetString("storage.jobs_file"),
		},
		Media: MediaConfig{
			YtDlpPath:           viper.GetString("media.ytdlp_path"),
			FFmpegPath:          viper.GetString("media.ffmpeg_path"),
			SplitThresholdBytes: viper.GetInt64("media.split_threshold_bytes"),
			SegmentSeconds:      viper.GetInt("media.segment_seconds"),
			TitleLookup:         viper.GetBool("media.title_lookup"),
		},
		Chat: ChatConfig{
			MaxTranscriptChars: viper.GetInt("chat.max_transcript_chars"),
			Temperature:        viper.GetFloat64("chat.temperature"),
			MaxTokens:          viper.GetInt("chat.max_tokens"),
		},
		Worker: WorkerConfig{
			Mode:        strings.ToLower(viper.GetString("worker.mode")),
			Concurrency: viper.GetInt("worker.concurrency"),
		},
		Upload: UploadConfig{
			MaxBytes: viper.GetInt("upload.max_bytes"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			Endpoint:        viper.GetString("r2.endpoint"),
		},
	}

	return cfg, nil
}
