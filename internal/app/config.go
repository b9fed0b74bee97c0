// Package app 提供应用容器，封装服务端的依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/haierkeys/lww-note-sync/internal/config"
	"github.com/haierkeys/lww-note-sync/pkg/limiter"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
	"github.com/haierkeys/lww-note-sync/pkg/util"
	"github.com/haierkeys/lww-note-sync/pkg/workerpool"
	"github.com/haierkeys/lww-note-sync/pkg/writequeue"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string                `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig          `yaml:"server"`
	Log      LogConfig             `yaml:"log"`
	Database config.DatabaseConfig `yaml:"database"`
	App      AppSettings           `yaml:"app"`
	Tracer   TracerConfig          `yaml:"tracer"`
	Limiter  LimiterConfig         `yaml:"limiter"`
	Client   config.ClientConfig   `yaml:"client"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时只输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式 debug / release
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 监听地址
	HttpPort string `yaml:"http-port" default:":9000"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有 HTTP 监听地址（metrics / pprof），为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:"127.0.0.1:9001"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 请求上下文超时（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"30"`
	// Lang 默认语言 en / zh_cn
	Lang string `yaml:"lang" default:"en"`
	// StatsInterval 副本统计任务周期
	StatsInterval string `yaml:"stats-interval" default:"1m"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"256"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"10s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// LimiterConfig 限流配置，作用于同步接口
type LimiterConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// FillInterval 令牌放入间隔
	FillInterval string `yaml:"fill-interval" default:"1s"`
	// Capacity 令牌桶容量
	Capacity int64 `yaml:"capacity" default:"100"`
	// Quantum 每次放入的令牌数
	Quantum int64 `yaml:"quantum" default:"100"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	c, err := ParseConfig(file)
	if err != nil {
		return nil, realpath, err
	}
	c.File = realpath
	return c, realpath, nil
}

// ParseConfig 解析 YAML 配置
func ParseConfig(data []byte) (*AppConfig, error) {
	c := new(AppConfig)

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}

	// YAML 只覆盖出现的字段，显式的 false 不会被默认值改回
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config file failed")
	}

	return c, nil
}

// LoggerConfig 日志构建配置
func (c *AppConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		Production: c.Log.Production,
	}
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil && timeout > 0 {
		cfg.WriteTimeout = timeout
	}
	if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil && idleTime > 0 {
		cfg.IdleTimeout = idleTime
	}

	return cfg
}

// GetClientWorkerPoolConfig 客户端按需同步的 Worker Pool 配置
func (c *AppConfig) GetClientWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()
	if c.Client.Workers > 0 {
		cfg.MaxWorkers = c.Client.Workers
	}
	return cfg
}

// GetLimiterRules 同步接口的令牌桶规则
func (c *AppConfig) GetLimiterRules() []limiter.BucketRule {
	if !c.Limiter.Enabled {
		return nil
	}
	interval, err := util.ParseDuration(c.Limiter.FillInterval)
	if err != nil || interval <= 0 {
		interval = time.Second
	}
	return []limiter.BucketRule{{
		Key:          "/api/notes",
		FillInterval: interval,
		Capacity:     c.Limiter.Capacity,
		Quantum:      c.Limiter.Quantum,
	}}
}

// GetContextTimeout 请求上下文超时
func (c *AppConfig) GetContextTimeout() time.Duration {
	return time.Duration(c.App.DefaultContextTimeout) * time.Second
}

// GetStatsInterval 副本统计任务周期
func (c *AppConfig) GetStatsInterval() time.Duration {
	if d, err := util.ParseDuration(c.App.StatsInterval); err == nil && d > 0 {
		return d
	}
	return time.Minute
}

// ClientDurations 客户端的各项时间配置
type ClientDurations struct {
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	SyncInterval   time.Duration
	RequestTimeout time.Duration
}

// GetClientDurations 解析客户端时间配置，非法值回退到默认
func (c *AppConfig) GetClientDurations() ClientDurations {
	parse := func(s string, def time.Duration) time.Duration {
		if d, err := util.ParseDuration(s); err == nil && d > 0 {
			return d
		}
		return def
	}
	return ClientDurations{
		ProbeInterval:  parse(c.Client.ProbeInterval, 2*time.Second),
		ProbeTimeout:   parse(c.Client.ProbeTimeout, 2*time.Second),
		SyncInterval:   parse(c.Client.SyncInterval, 3*time.Second),
		RequestTimeout: parse(c.Client.RequestTimeout, 5*time.Second),
	}
}

// Validate 检查取值范围，加载配置后由命令行调用
func (c *AppConfig) Validate() error {
	switch c.Server.RunMode {
	case "debug", "release", "test":
	default:
		return errors.Errorf("server.run-mode %q must be debug, release or test", c.Server.RunMode)
	}
	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite", "mysql", "postgres":
		default:
			return errors.Errorf("database.type %q is not supported", c.Database.Type)
		}
	}
	switch c.Client.Storage {
	case "file", "sqlite":
	default:
		return errors.Errorf("client.storage %q must be file or sqlite", c.Client.Storage)
	}
	if c.Limiter.Enabled && (c.Limiter.Capacity <= 0 || c.Limiter.Quantum <= 0) {
		return errors.New("limiter.capacity and limiter.quantum must be positive")
	}
	for name, v := range map[string]string{
		"client.probe-interval":  c.Client.ProbeInterval,
		"client.probe-timeout":   c.Client.ProbeTimeout,
		"client.sync-interval":   c.Client.SyncInterval,
		"client.request-timeout": c.Client.RequestTimeout,
		"app.stats-interval":     c.App.StatsInterval,
	} {
		if d, err := util.ParseDuration(v); err != nil || d <= 0 {
			return errors.Errorf("%s %q is not a positive duration", name, v)
		}
	}
	return nil
}
