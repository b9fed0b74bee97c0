package config

// ClientConfig 客户端副本配置
type ClientConfig struct {
	// ServerURL 服务端地址
	ServerURL string `yaml:"server-url" default:"http://127.0.0.1:9000"`
	// Replica 副本名称，同一数据库中区分多个客户端
	Replica string `yaml:"replica" default:"client"`
	// Storage 本地存储方式 file / sqlite
	Storage string `yaml:"storage" default:"file"`
	// StateFile JSON 状态文件路径（storage=file）
	StateFile string `yaml:"state-file" default:"storage/client/state.json"`
	// DatabasePath SQLite 文件路径（storage=sqlite）
	DatabasePath string `yaml:"database-path" default:"storage/client/replica.sqlite3"`
	// ProbeInterval 连通性探测周期
	ProbeInterval string `yaml:"probe-interval" default:"2s"`
	// ProbeTimeout 单次探测超时
	ProbeTimeout string `yaml:"probe-timeout" default:"2s"`
	// SyncInterval 周期同步间隔
	SyncInterval string `yaml:"sync-interval" default:"3s"`
	// RequestTimeout 同步与删除请求超时
	RequestTimeout string `yaml:"request-timeout" default:"5s"`
	// SyncOnMutation 本地修改后在线时立即同步
	SyncOnMutation bool `yaml:"sync-on-mutation" default:"true"`
	// Workers 按需同步使用的 worker 数量
	Workers int `yaml:"workers" default:"2"`
}
