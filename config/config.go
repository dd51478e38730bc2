package config

import (
	"os"
	"time"

	"ChatRelay/tools/errs"

	"gopkg.in/yaml.v3"
)

// Duration 支持 yaml 里写 "5s"/"500ms" 这类人类可读时长。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		v, perr := time.ParseDuration(s)
		if perr != nil {
			return errs.WrapMsg(perr, "parse duration")
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return errs.New("duration must be a string like \"5s\" or nanoseconds")
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Server struct {
	Addr          string   `yaml:"addr"`           // 监听地址，默认 :8000
	AllowedOrigin string   `yaml:"allowed_origin"` // CORS origin（带 credentials）
	PingInterval  Duration `yaml:"ping_interval"`  // 心跳探测周期
	PongGrace     Duration `yaml:"pong_grace"`     // 等待 pong 的宽限期
	SendQueueSize int      `yaml:"send_queue_size"`
}

type JWT struct {
	Secret string   `yaml:"secret"`
	Alg    string   `yaml:"alg"`
	TTL    Duration `yaml:"ttl"`
}

type Mongo struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	MaxPoolSize int    `yaml:"max_pool_size"`
	MaxRetry    int    `yaml:"max_retry"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // 为空则不启用 presence 镜像
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Config struct {
	Server Server `yaml:"server"`
	JWT    JWT    `yaml:"jwt"`
	Mongo  Mongo  `yaml:"mongo"`
	Redis  Redis  `yaml:"redis"`
}

// Load reads the YAML config file and applies env overrides and defaults.
// path 为空时只用环境变量和默认值。
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.WrapMsg(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.WrapMsg(err, "parse config file")
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if cfg.JWT.Secret == "" {
		return nil, errs.New("jwt secret is required (jwt.secret / CHAT_JWT_SECRET)")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CHAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CHAT_JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("CHAT_MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("CHAT_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.PingInterval <= 0 {
		c.Server.PingInterval = Duration(5 * time.Second)
	}
	if c.Server.PongGrace <= 0 {
		c.Server.PongGrace = Duration(time.Second)
	}
	if c.Server.SendQueueSize <= 0 {
		c.Server.SendQueueSize = 256
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = Duration(2 * time.Hour)
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "chatrelay"
	}
	if c.Mongo.MaxPoolSize <= 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if c.Mongo.MaxRetry <= 0 {
		c.Mongo.MaxRetry = 3
	}
}
