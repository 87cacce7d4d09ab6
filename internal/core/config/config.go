package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultConfigPath = "./configs/config.local.yaml"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
	// TrustedProxies 为空时忽略 X-Forwarded-For，客户端 IP 只取 RemoteAddr
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

func (a App) IsProduction() bool { return strings.EqualFold(a.Env, EnvProduction) }

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret string
}

// DB 只认一套变量名：ORACLE_USER / ORACLE_PASSWORD / ORACLE_CONNECTION_STRING
type DB struct {
	User               string
	Password           string
	ConnectionString   string `mapstructure:"connection_string"`
	PoolMin            int    `mapstructure:"pool_min"`
	PoolMax            int    `mapstructure:"pool_max"`
	AcquireTimeoutSec  int    `mapstructure:"acquire_timeout_sec"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
}

type Gate struct {
	ProtectedPrefixes []string `mapstructure:"protected_prefixes"`
	LoginPath         string   `mapstructure:"login_path"`
}

type Limits struct {
	RequestTimeoutSec int     `mapstructure:"request_timeout_sec"`
	MaxBodyBytes      int64   `mapstructure:"max_body_bytes"`
	MaxConcurrent     int64   `mapstructure:"max_concurrent"`
	GlobalRPS         float64 `mapstructure:"global_rps"`
	GlobalBurst       int     `mapstructure:"global_burst"`
	AuthRPS           float64 `mapstructure:"auth_rps"`
	AuthBurst         int     `mapstructure:"auth_burst"`
}

type CORS struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Gate   Gate
	Limits Limits
	CORS   CORS
}

// Load 读取 YAML（可选）+ 环境变量；文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = defaultConfigPath
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 约定的裸环境变量名（不带 APP_ 前缀）
	for key, env := range map[string]string{
		"db.user":              "ORACLE_USER",
		"db.password":          "ORACLE_PASSWORD",
		"db.connection_string": "ORACLE_CONNECTION_STRING",
		"jwt.secret":           "JWT_SECRET",
		"app.env":              "APP_ENV",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gin-oracle-auth")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 10)
	v.SetDefault("app.http.write_timeout_sec", 15)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.http.trusted_proxies", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)

	v.SetDefault("jwt.secret", "")

	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.connection_string", "")
	v.SetDefault("db.pool_min", 2)
	v.SetDefault("db.pool_max", 5)
	v.SetDefault("db.acquire_timeout_sec", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)

	v.SetDefault("gate.protected_prefixes", []string{"/dashboard", "/profile"})
	v.SetDefault("gate.login_path", "/login")

	v.SetDefault("limits.request_timeout_sec", 10)
	v.SetDefault("limits.max_body_bytes", 1<<20)
	v.SetDefault("limits.max_concurrent", 300)
	v.SetDefault("limits.global_rps", 200)
	v.SetDefault("limits.global_burst", 400)
	v.SetDefault("limits.auth_rps", 5)
	v.SetDefault("limits.auth_burst", 10)

	v.SetDefault("cors.allow_origins", []string{"http://localhost:3000"})
}
