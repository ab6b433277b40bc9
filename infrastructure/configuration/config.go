package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"social-hub/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Media       Media       `json:"media"`
	Publish     Publish     `json:"publish"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	OAuth       OAuth       `json:"oauth"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Media struct {
	Dir     string `json:"dir"`
	BaseURL string `json:"baseURL"`
}

type Publish struct {
	CallTimeoutSeconds       int `json:"callTimeoutSeconds"`
	SchedulerIntervalSeconds int `json:"schedulerIntervalSeconds"`
	SchedulerBatchSize       int `json:"schedulerBatchSize"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds per-platform OAuth client settings. StateTTLSeconds bounds
// the lifetime of anti-CSRF state entries across all platforms.
type OAuth struct {
	StateTTLSeconds int         `json:"stateTTLSeconds"`
	Facebook        OAuthClient `json:"facebook"`
	Instagram       OAuthClient `json:"instagram"`
	Twitter         OAuthClient `json:"twitter"`
	YouTube         OAuthClient `json:"youtube"`
}

type OAuthClient struct {
	ClientID      string       `json:"clientId"`
	ClientSecret  string       `json:"clientSecret"`
	RedirectURI   string       `json:"redirectURI"`
	TokenHost     string       `json:"tokenHost"`
	TokenPath     string       `json:"tokenPath"`
	AuthorizePath string       `json:"authorizePath"`
	RevokePath    string       `json:"revokePath"`
	Scopes        []string     `json:"scopes"`
	CacheOptions  CacheOptions `json:"cacheOptions"`
}

// CacheOptions resolves per-token-type TTLs so refresh tokens can outlive
// access tokens without call sites hardcoding durations.
type CacheOptions struct {
	TokenTTLSeconds        int `json:"tokenTTLSeconds"`
	RefreshTokenTTLSeconds int `json:"refreshTokenTTLSeconds"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

// PlatformOAuth returns the OAuth client settings for a platform name.
func (o *OAuth) PlatformOAuth(platform string) (OAuthClient, bool) {
	switch strings.ToLower(platform) {
	case "facebook":
		return o.Facebook, true
	case "instagram":
		return o.Instagram, true
	case "twitter":
		return o.Twitter, true
	case "youtube":
		return o.YouTube, true
	}
	return OAuthClient{}, false
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}
}

func initApp(C *Config) {
	// SECRET_KEY from environment overrides the config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDefaults(C *Config) {
	if C.OAuth.StateTTLSeconds == 0 {
		C.OAuth.StateTTLSeconds = 600
	}
	if C.Publish.CallTimeoutSeconds == 0 {
		C.Publish.CallTimeoutSeconds = 30
	}
	if C.Publish.SchedulerIntervalSeconds == 0 {
		C.Publish.SchedulerIntervalSeconds = 15
	}
	if C.Publish.SchedulerBatchSize == 0 {
		C.Publish.SchedulerBatchSize = 10
	}
	if C.Media.Dir == "" {
		C.Media.Dir = "media"
	}
	if C.Media.BaseURL == "" {
		C.Media.BaseURL = fmt.Sprintf("http://localhost:%d/media", C.App.Port)
	}
	for _, oc := range []*OAuthClient{&C.OAuth.Facebook, &C.OAuth.Instagram, &C.OAuth.Twitter, &C.OAuth.YouTube} {
		if oc.CacheOptions.TokenTTLSeconds == 0 {
			oc.CacheOptions.TokenTTLSeconds = 3600
		}
		if oc.CacheOptions.RefreshTokenTTLSeconds == 0 {
			oc.CacheOptions.RefreshTokenTTLSeconds = 30 * 24 * 3600
		}
	}
}
