package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config Manager配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
	Issuer     string        `mapstructure:"issuer"`
}

// FleetConfig 主机管理配置
type FleetConfig struct {
	// StaleWindow 心跳超过此时长未上报视为离线
	StaleWindow time.Duration `mapstructure:"stale_window"`
	// SweepInterval 离线扫描周期
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// ScheduleInterval 定时命令派发周期
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
	// ScheduleTolerance 定时命令的执行容忍窗口
	ScheduleTolerance time.Duration `mapstructure:"schedule_tolerance"`
}

// AdminConfig 默认管理员配置
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"` // debug, info, warn, error
	OutputPath string `mapstructure:"output_path"`
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `mapstructure:"max_age"`     // 天
	Compress   bool   `mapstructure:"compress"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 解析配置
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 设置默认值
	setDefaults(config)

	// 验证配置
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// setDefaults 设置默认值
func setDefaults(config *Config) {
	// Server默认值
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}

	// Database默认值
	if config.Database.Driver == "" {
		config.Database.Driver = "mysql"
	}
	if config.Database.MaxIdleConns == 0 {
		config.Database.MaxIdleConns = 10
	}
	if config.Database.MaxOpenConns == 0 {
		config.Database.MaxOpenConns = 100
	}
	if config.Database.ConnMaxLifetime == 0 {
		config.Database.ConnMaxLifetime = time.Hour
	}
	if config.Database.LogLevel == "" {
		config.Database.LogLevel = "warn"
	}

	// JWT默认值
	if config.JWT.ExpireTime == 0 {
		config.JWT.ExpireTime = 24 * time.Hour
	}
	if config.JWT.Issuer == "" {
		config.JWT.Issuer = "fleet-manager"
	}

	// Fleet默认值
	if config.Fleet.StaleWindow == 0 {
		config.Fleet.StaleWindow = 5 * time.Minute
	}
	if config.Fleet.SweepInterval == 0 {
		config.Fleet.SweepInterval = time.Minute
	}
	if config.Fleet.ScheduleInterval == 0 {
		config.Fleet.ScheduleInterval = time.Minute
	}
	if config.Fleet.ScheduleTolerance == 0 {
		config.Fleet.ScheduleTolerance = 2 * time.Minute
	}

	// Admin默认值
	if config.Admin.Username == "" {
		config.Admin.Username = "admin"
	}

	// Log默认值
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.OutputPath == "" {
		config.Log.OutputPath = "logs/manager.log"
	}
	if config.Log.MaxSize == 0 {
		config.Log.MaxSize = 100
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = 10
	}
	if config.Log.MaxAge == 0 {
		config.Log.MaxAge = 30
	}
}

// validate 验证配置
func validate(config *Config) error {
	// 验证服务模式
	validModes := map[string]bool{
		"debug":   true,
		"release": true,
	}
	if !validModes[config.Server.Mode] {
		return fmt.Errorf("invalid server mode: %s", config.Server.Mode)
	}

	// 验证数据库驱动
	validDrivers := map[string]bool{
		"mysql":  true,
		"sqlite": true,
	}
	if !validDrivers[config.Database.Driver] {
		return fmt.Errorf("invalid database driver: %s", config.Database.Driver)
	}

	// 验证数据库DSN
	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	// 验证JWT密钥
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.Log.Level] {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	// 容忍窗口短于派发周期时，命令可能落在两次扫描之间被整体错过
	if config.Fleet.ScheduleTolerance < config.Fleet.ScheduleInterval {
		return fmt.Errorf("schedule_tolerance must not be shorter than schedule_interval")
	}

	return nil
}

// Address 返回HTTP服务监听地址
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
