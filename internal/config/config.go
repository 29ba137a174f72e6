package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"ikuuu_checkin/internal/utils"
)

var ErrMissingCredentials = errors.New("missing required environment variables: IKUUU_EMAIL, IKUUU_PASSWORD")

type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Site     SiteConfig     `yaml:"site"`
	Jitter   JitterConfig   `yaml:"jitter"`
	Limits   LimitsConfig   `yaml:"limits"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Notify   NotifyConfig   `yaml:"notify"`
	Storage  StorageConfig  `yaml:"storage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
	Debug    bool           `yaml:"debug"`
}

type AccountConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Validate 在邮箱或密码为空时返回 ErrMissingCredentials。
func (c AccountConfig) Validate() error {
	if strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Password) == "" {
		return ErrMissingCredentials
	}
	return nil
}

type SiteConfig struct {
	PrimaryHost      string   `yaml:"primaryHost"`
	BackupHosts      []string `yaml:"backupHosts"`
	Scheme           string   `yaml:"scheme"`
	UserAgent        string   `yaml:"userAgent"`
	ReachTimeoutMs   int      `yaml:"reachTimeoutMs"`
	RequestTimeoutMs int      `yaml:"requestTimeoutMs"`
	LoginRetries     int      `yaml:"loginRetries"`
	// VerifyTLS 默认关闭，镜像域名的证书经常不匹配。
	VerifyTLS bool `yaml:"verifyTLS"`
}

func (c SiteConfig) ReachTimeout() time.Duration {
	if c.ReachTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ReachTimeoutMs) * time.Millisecond
}

func (c SiteConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// JitterConfig 是请求之间的随机等待，单位毫秒。
type JitterConfig struct {
	LoginMinMs  int `yaml:"loginMinMs"`
	LoginMaxMs  int `yaml:"loginMaxMs"`
	RetryMinMs  int `yaml:"retryMinMs"`
	RetryMaxMs  int `yaml:"retryMaxMs"`
	ActionMinMs int `yaml:"actionMinMs"`
	ActionMaxMs int `yaml:"actionMaxMs"`
	// Disabled 关闭所有等待。
	Disabled bool `yaml:"disabled"`
}

func (c JitterConfig) Login() utils.Jitter {
	return c.window(c.LoginMinMs, c.LoginMaxMs)
}

func (c JitterConfig) Retry() utils.Jitter {
	return c.window(c.RetryMinMs, c.RetryMaxMs)
}

func (c JitterConfig) Action() utils.Jitter {
	return c.window(c.ActionMinMs, c.ActionMaxMs)
}

func (c JitterConfig) window(minMs, maxMs int) utils.Jitter {
	if c.Disabled {
		return utils.Jitter{}
	}
	return utils.NewJitter(time.Duration(minMs)*time.Millisecond, time.Duration(maxMs)*time.Millisecond)
}

type LimitsConfig struct {
	QPS   float64 `yaml:"qps"`
	Burst int     `yaml:"burst"`
}

type ProxyConfig struct {
	Global string `yaml:"global"`
}

type NotifyConfig struct {
	PushDeer PushDeerConfig `yaml:"pushdeer"`
	Email    EmailConfig    `yaml:"email"`
}

type PushDeerConfig struct {
	Key       string `yaml:"key"`
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

func (c PushDeerConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Email    string `yaml:"email"`
	AuthCode string `yaml:"authCode"`
}

type StorageConfig struct {
	// SQLitePath 非空时记录运行历史。
	SQLitePath string `yaml:"sqlitePath"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

const (
	DefaultPrimaryHost      = "ikuuu.nl"
	DefaultPushDeerEndpoint = "https://api2.pushdeer.com/message/push"
)

// Default 返回内置配置，配置文件和环境变量都叠加在它之上。
func Default() Config {
	return Config{
		Site: SiteConfig{
			PrimaryHost:      DefaultPrimaryHost,
			BackupHosts:      []string{"ikuuu.de", "ikuuu.one", "ikuuu.pw", "ikuuu.me", "ikuuu.club", "ikuuu.vip", "ikuuu.fyi"},
			Scheme:           "https",
			UserAgent:        utils.DefaultDesktopUserAgent(),
			ReachTimeoutMs:   10000,
			RequestTimeoutMs: 15000,
			LoginRetries:     3,
		},
		Jitter: JitterConfig{
			LoginMinMs:  1000,
			LoginMaxMs:  3000,
			RetryMinMs:  2000,
			RetryMaxMs:  4000,
			ActionMinMs: 1000,
			ActionMaxMs: 2000,
		},
		Limits: LimitsConfig{
			QPS:   2,
			Burst: 2,
		},
		Notify: NotifyConfig{
			PushDeer: PushDeerConfig{
				Endpoint:  DefaultPushDeerEndpoint,
				TimeoutMs: 10000,
			},
		},
		Schedule: ScheduleConfig{
			Cron: "30 8 * * *",
		},
	}
}

// Load 以 Default 为底读取 path（文件不存在不算错误），文件里显式写出的
// 零值会保留，再叠加非空的环境变量。
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, err
		}
	}
	var env Config
	env.applyEnv()
	if err := mergo.Merge(&cfg, env, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge env: %w", err)
	}
	if err := setBool(&cfg.Debug, "IKUUU_DEBUG"); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv 只收集字符串类变量，空值不覆盖文件配置。
func (c *Config) applyEnv() {
	setString(&c.Account.Email, "IKUUU_EMAIL")
	setString(&c.Account.Password, "IKUUU_PASSWORD")
	setString(&c.Notify.PushDeer.Key, "PUSHDEER_KEY")
	setString(&c.Site.PrimaryHost, "IKUUU_HOST")
	setStringList(&c.Site.BackupHosts, "IKUUU_BACKUP_HOSTS", ",")
	setString(&c.Storage.SQLitePath, "IKUUU_SQLITE_PATH")
	setString(&c.Proxy.Global, "IKUUU_PROXY")
	setString(&c.Schedule.Cron, "IKUUU_CRON")
	setString(&c.Server.Addr, "IKUUU_ADDR")
}

func (c *Config) normalize() {
	c.Account.Email = strings.TrimSpace(c.Account.Email)
	c.Account.Password = strings.TrimSpace(c.Account.Password)
	c.Site.PrimaryHost = strings.ToLower(strings.TrimSpace(c.Site.PrimaryHost))
	hosts := c.Site.BackupHosts[:0]
	for _, h := range c.Site.BackupHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	c.Site.BackupHosts = hosts
	if c.Site.LoginRetries < 1 {
		c.Site.LoginRetries = 1
	}
	if c.Jitter.LoginMaxMs < c.Jitter.LoginMinMs {
		c.Jitter.LoginMaxMs = c.Jitter.LoginMinMs
	}
	if c.Jitter.RetryMaxMs < c.Jitter.RetryMinMs {
		c.Jitter.RetryMaxMs = c.Jitter.RetryMinMs
	}
	if c.Jitter.ActionMaxMs < c.Jitter.ActionMinMs {
		c.Jitter.ActionMaxMs = c.Jitter.ActionMinMs
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 1
	}
}

func (c Config) validate() error {
	if c.Site.PrimaryHost == "" {
		return errors.New("site.primaryHost is required")
	}
	switch c.Site.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("site.scheme must be http or https, got %q", c.Site.Scheme)
	}
	return nil
}

func setString(field *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*field = v
	}
}

func setStringList(field *[]string, env, sep string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*field = strings.Split(v, sep)
	}
}

func setBool(field *bool, env string) error {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*field = b
	return nil
}
