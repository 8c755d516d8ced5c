package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port       int           `mapstructure:"port"`
	RPCAddress string        `mapstructure:"rpc_address"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
}

// HTTPAddress 监听地址
func (s ServerConfig) HTTPAddress() string {
	return fmt.Sprintf(":%d", s.Port)
}

type FleetConfig struct {
	// Mode "agones" 连接编排 sidecar，"local" 使用进程内实现
	Mode              string        `mapstructure:"mode"`
	HealthInterval    time.Duration `mapstructure:"health_interval"`
	HealthTimeout     time.Duration `mapstructure:"health_timeout"`
	IdleShutdownDelay time.Duration `mapstructure:"idle_shutdown_delay"`
	PlayerCapacity    int64         `mapstructure:"player_capacity"`
}

type DatabaseConfig struct {
	// Driver "gorm"、"pq"，为空时使用内存记录
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

const (
	FleetModeAgones = "agones"
	FleetModeLocal  = "local"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.read_limit", 4096)
	v.SetDefault("server.send_buffer", 64)
	v.SetDefault("server.write_wait", 10*time.Second)
	v.SetDefault("server.pong_wait", 60*time.Second)

	v.SetDefault("fleet.mode", FleetModeAgones)
	v.SetDefault("fleet.health_interval", time.Second)
	v.SetDefault("fleet.health_timeout", 500*time.Millisecond)
	v.SetDefault("fleet.idle_shutdown_delay", 60*time.Second)
	v.SetDefault("fleet.player_capacity", 10)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "gridserver")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// BindFlags 注册命令行参数
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config file (yaml)")
	fs.Int("port", 3000, "websocket listen port")
	fs.String("fleet-mode", FleetModeAgones, "fleet sidecar mode: agones or local")
}

// LoadConfig 读取配置：默认值 < 配置文件 < 环境变量 < 命令行参数。
// path 为目录时查找其中的 config.yaml；文件不存在不视为错误。
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			path = f.Value.String()
		}
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		if f := fs.Lookup("port"); f != nil && f.Changed {
			if err := v.BindPFlag("server.port", f); err != nil {
				return nil, err
			}
		}
		if f := fs.Lookup("fleet-mode"); f != nil && f.Changed {
			if err := v.BindPFlag("fleet.mode", f); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Fleet.Mode {
	case FleetModeAgones, FleetModeLocal:
	default:
		return fmt.Errorf("invalid fleet.mode %q", c.Fleet.Mode)
	}
	if c.Fleet.HealthInterval <= 0 {
		return fmt.Errorf("fleet.health_interval must be positive")
	}
	if c.Fleet.HealthTimeout <= 0 || c.Fleet.HealthTimeout >= c.Fleet.HealthInterval {
		return fmt.Errorf("fleet.health_timeout must be positive and shorter than fleet.health_interval")
	}
	if c.Fleet.IdleShutdownDelay <= 0 {
		return fmt.Errorf("fleet.idle_shutdown_delay must be positive")
	}
	if c.Fleet.PlayerCapacity <= 0 {
		return fmt.Errorf("fleet.player_capacity must be positive")
	}
	switch c.Database.Driver {
	case "", "gorm", "pq":
	default:
		return fmt.Errorf("invalid database.driver %q", c.Database.Driver)
	}
	return nil
}
