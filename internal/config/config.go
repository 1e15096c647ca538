package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config representa a configuração do serviço
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Totvs    TotvsConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Inngest  InngestConfig
	Logging  LoggingConfig
}

// ServerConfig representa a configuração do servidor HTTP
type ServerConfig struct {
	Port    string
	Host    string
	Env     string
	BaseURL string
}

// DatabaseConfig representa a configuração do PostgreSQL principal
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// TotvsConfig representa a configuração do banco TOTVS (SQL Server, somente leitura)
type TotvsConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Enabled indica se a integração TOTVS está configurada
func (t TotvsConfig) Enabled() bool {
	return t.Host != "" && t.Name != ""
}

// RedisConfig representa a configuração do Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig representa a configuração de emissão/validação de JWT
type JWTConfig struct {
	Secret        string
	Issuer        string
	Audience      string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// UploadConfig representa a configuração de upload de arquivos
type UploadConfig struct {
	BasePath         string
	MaxFileSizeMB    int64
	AllowedMimeTypes []string
}

// MimeAllowed indica se o content-type detectado está na whitelist
func (u UploadConfig) MimeAllowed(mime string) bool {
	for _, allowed := range u.AllowedMimeTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), mime) {
			return true
		}
	}
	return false
}

// InngestConfig representa a configuração de eventos Inngest
type InngestConfig struct {
	EventKey   string
	SigningKey string
	AppID      string
	Dev        bool
}

// LoggingConfig representa a configuração de logging
type LoggingConfig struct {
	Level  string
	Format string
}

var defaultAllowedMimeTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"text/plain",
	"text/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Load carrega a configuração a partir de variáveis de ambiente
func Load() (*Config, error) {
	// Carrega o arquivo .env se existir (não é crítico quando ausente)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "8080"),
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Env:     getEnv("SERVER_ENV", "development"),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PGHOST", "localhost"),
			Port:     getEnv("PGPORT", "5432"),
			User:     getEnv("PGUSER", "postgres"),
			Password: getEnv("PGPASSWORD", "postgres"),
			Name:     getEnv("PGDATABASE", "cadastro_mp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Totvs: TotvsConfig{
			Host:     getEnv("TOTVS_DB_HOST", ""),
			Port:     getEnv("TOTVS_DB_PORT", "1433"),
			User:     getEnv("TOTVS_DB_USER", ""),
			Password: getEnv("TOTVS_DB_PASSWORD", ""),
			Name:     getEnv("TOTVS_DB_NAME", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:        getEnv("JWT_ISSUER", "cadastro-mp-api"),
			Audience:      getEnv("JWT_AUDIENCE", "cadastro-mp-front"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 60*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Upload: UploadConfig{
			BasePath:         getEnv("FILES_BASE_PATH", "./_uploads"),
			MaxFileSizeMB:    int64(getEnvAsInt("MAX_FILE_SIZE_MB", 20)),
			AllowedMimeTypes: getEnvAsSlice("ALLOWED_MIME_TYPES", defaultAllowedMimeTypes),
		},
		Inngest: InngestConfig{
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
			AppID:      getEnv("INNGEST_APP_ID", "cadastro-service"),
			Dev:        getEnvAsBool("INNGEST_DEV", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv obtém uma variável de ambiente ou retorna um valor padrão
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtém uma variável de ambiente como inteiro
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool obtém uma variável de ambiente como booleano
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration obtém uma variável de ambiente como duração
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsSlice obtém uma variável de ambiente como lista separada por vírgulas
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// IsDevelopment retorna true se o ambiente é de desenvolvimento
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction retorna true se o ambiente é de produção
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetDSN retorna a cadeia de conexão do PostgreSQL
func (c *Config) GetDSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// GetTotvsDSN retorna a cadeia de conexão do SQL Server do TOTVS
func (c *Config) GetTotvsDSN() string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
		c.Totvs.User, c.Totvs.Password, c.Totvs.Host, c.Totvs.Port, c.Totvs.Name)
}

// GetRedisAddr retorna o endereço do Redis
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}
