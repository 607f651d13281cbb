package config

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/ratelimit"
	"github.com/ceyewan/asnkeeper/xerrors"
)

var (
	lookupURLPattern = regexp.MustCompile(`^https?://.*\{asn\}.*$`)
	barcodeTypes     = []string{"CODE128", "CODE39", "CODE93"}
)

// App asnkeeper 的完整运行配置
//
// 典型配置（YAML）：
//
//	asn:
//	  prefix: "ASN"
//	  namespace_range: 600
//	  additional_managed_namespaces: "<700 Pre-printed labels>"
//	store:
//	  driver: "sqlite"
//	  data_dir: "data"
type App struct {
	Server  ServerConfig   `mapstructure:"server"`
	ASN     ASNConfig      `mapstructure:"asn"`
	Lookup  LookupConfig   `mapstructure:"lookup"`
	Store   kv.Config      `mapstructure:"store"`
	Audit   AuditConfig    `mapstructure:"audit"`
	Log     clog.Config    `mapstructure:"log"`
	Metrics metrics.Config `mapstructure:"metrics"`

	additional []namespace.AdditionalNamespace
	notes      []string
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// RateLimit 每秒允许的生成请求数，0 表示不限流
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// RateLimitMode standalone 或 distributed，后者与 store.redis_addr 共用 Redis
	RateLimitMode string `mapstructure:"rate_limit_mode"`
}

// ASNConfig 编码规则。Prefix 与 NamespaceRange 的位数首次使用后不可更改
type ASNConfig struct {
	Prefix                      string `mapstructure:"prefix"`
	NamespaceRange              int64  `mapstructure:"namespace_range"`
	EnableNamespaceExtension    bool   `mapstructure:"enable_namespace_extension"`
	AdditionalManagedNamespaces string `mapstructure:"additional_managed_namespaces"`
	// BarcodeType 校验后统一为小写
	BarcodeType string `mapstructure:"barcode_type"`
}

// LookupConfig 外部系统查询跳转
type LookupConfig struct {
	// URL 必须包含 {asn} 占位符，为空表示不启用
	URL           string `mapstructure:"url"`
	IncludePrefix bool   `mapstructure:"include_prefix"`
}

// AuditConfig 审计镜像配置，NATSURL 为空时只写本地文件
type AuditConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.rate_limit_mode", ratelimit.ModeStandalone)
	v.SetDefault("asn.enable_namespace_extension", false)
	v.SetDefault("asn.additional_managed_namespaces", "")
	v.SetDefault("asn.barcode_type", "CODE128")
	v.SetDefault("lookup.include_prefix", false)
	v.SetDefault("store.driver", kv.DriverSQLite)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.db_file_name", "denokv.sqlite3")
	v.SetDefault("audit.subject", "asn.issued")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.service_name", "asnkeeper")
	v.SetDefault("metrics.path", "/metrics")
}

// Load 加载并校验整个运行配置
func Load(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := newLoader(cfg)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}

	app := &App{}
	if err := l.Unmarshal(app); err != nil {
		return nil, xerrors.Wrapf(ErrLoad, "unmarshal: %v", err)
	}
	if err := app.validate(); err != nil {
		return nil, err
	}
	app.notes = l.notes
	return app, nil
}

func (a *App) validate() error {
	if a.ASN.Prefix == "" {
		return xerrors.Wrap(ErrInvalidConfig, "ASN_PREFIX is required")
	}
	if a.ASN.NamespaceRange == 0 {
		return xerrors.Wrap(ErrInvalidConfig, "ASN_NAMESPACE_RANGE is required")
	}

	barcode := strings.ToUpper(strings.TrimSpace(a.ASN.BarcodeType))
	if !slices.Contains(barcodeTypes, barcode) {
		return xerrors.Wrapf(ErrInvalidConfig, "ASN_BARCODE_TYPE %q must be one of %s",
			a.ASN.BarcodeType, strings.Join(barcodeTypes, ", "))
	}
	a.ASN.BarcodeType = strings.ToLower(barcode)

	if a.Lookup.URL != "" && !lookupURLPattern.MatchString(a.Lookup.URL) {
		return xerrors.Wrapf(ErrInvalidConfig, "ASN_LOOKUP_URL %q must be an http(s) URL containing {asn}", a.Lookup.URL)
	}

	if a.Server.Port < 1 || a.Server.Port > 65535 {
		return xerrors.Wrapf(ErrInvalidConfig, "PORT %d out of range", a.Server.Port)
	}
	if a.Server.RateLimit < 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "ASN_RATE_LIMIT %v must not be negative", a.Server.RateLimit)
	}
	switch a.Server.RateLimitMode {
	case ratelimit.ModeStandalone:
	case ratelimit.ModeDistributed:
		if a.Store.RedisAddr == "" {
			return xerrors.Wrap(ErrInvalidConfig, "ASN_RATE_LIMIT_MODE distributed requires ASN_REDIS_ADDR")
		}
	default:
		return xerrors.Wrapf(ErrInvalidConfig, "ASN_RATE_LIMIT_MODE %q must be standalone or distributed", a.Server.RateLimitMode)
	}

	additional, err := namespace.ParseAdditional(a.ASN.AdditionalManagedNamespaces)
	if err != nil {
		return fmt.Errorf("%w: ADDITIONAL_MANAGED_NAMESPACES: %w", ErrInvalidConfig, err)
	}
	a.additional = additional

	if err := a.Namespace().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Namespace 返回编码规则，Load 成功后保证已通过校验
func (a *App) Namespace() namespace.Config {
	return namespace.Config{
		Prefix:     a.ASN.Prefix,
		Range:      a.ASN.NamespaceRange,
		Extension:  a.ASN.EnableNamespaceExtension,
		Additional: slices.Clone(a.additional),
	}
}

// Notes 加载过程中产生的提示，由调用方在日志就绪后输出
func (a *App) Notes() []string {
	return a.notes
}
