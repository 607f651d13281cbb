package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// envBindings 配置 key 到环境变量名的映射
var envBindings = map[string]string{
	"server.port":                       "PORT",
	"server.rate_limit":                 "ASN_RATE_LIMIT",
	"server.rate_burst":                 "ASN_RATE_BURST",
	"server.rate_limit_mode":            "ASN_RATE_LIMIT_MODE",
	"asn.prefix":                        "ASN_PREFIX",
	"asn.namespace_range":               "ASN_NAMESPACE_RANGE",
	"asn.enable_namespace_extension":    "ASN_ENABLE_NAMESPACE_EXTENSION",
	"asn.additional_managed_namespaces": "ADDITIONAL_MANAGED_NAMESPACES",
	"asn.barcode_type":                  "ASN_BARCODE_TYPE",
	"lookup.url":                        "ASN_LOOKUP_URL",
	"lookup.include_prefix":             "ASN_LOOKUP_INCLUDE_PREFIX",
	"store.driver":                      "ASN_STORE_DRIVER",
	"store.data_dir":                    "DATA_DIR",
	"store.db_file_name":                "DB_FILE_NAME",
	"store.redis_addr":                  "ASN_REDIS_ADDR",
	"store.etcd_endpoints":              "ASN_ETCD_ENDPOINTS",
	"store.mysql_dsn":                   "ASN_MYSQL_DSN",
	"store.breaker":                     "ASN_STORE_BREAKER",
	"audit.nats_url":                    "ASN_NATS_URL",
	"audit.subject":                     "ASN_NATS_SUBJECT",
	"log.level":                         "ASN_LOG_LEVEL",
	"log.format":                        "ASN_LOG_FORMAT",
	"metrics.enabled":                   "ASN_METRICS_ENABLED",
}

// envSelector 选择环境特定配置文件的变量
const envSelector = "ASN_ENV"

// loader 实现 Loader 接口
type loader struct {
	v    *viper.Viper
	opts *Config
	// notes 加载过程中的提示信息，日志组件就绪前无法直接输出
	notes []string
}

func newLoader(opts *Config) *loader {
	return &loader{v: viper.New(), opts: opts}
}

// Load 初始化并从所有来源加载配置
func (l *loader) Load(_ context.Context) error {
	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	// .env 只补充尚未设置的环境变量，必须先于 BindEnv 的读取
	if !l.opts.DisableDotEnv {
		l.loadDotEnv()
	}

	setDefaults(l.v)
	for key, env := range envBindings {
		if err := l.v.BindEnv(key, env); err != nil {
			return xerrors.Wrapf(ErrLoad, "bind env %s: %v", env, err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(ErrLoad, "read config file %s: %v", l.opts.Name, err)
		}
		l.notes = append(l.notes, "no configuration file found, using environment only")
	}

	return l.loadEnvironmentConfig()
}

// loadDotEnv 依次尝试当前目录及各搜索路径下的 .env 文件
func (l *loader) loadDotEnv() {
	candidates := []string{".env"}
	for _, path := range l.opts.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, file := range candidates {
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			l.notes = append(l.notes, fmt.Sprintf("failed to load %s: %v", file, err))
			continue
		}
		l.notes = append(l.notes, "loaded "+file)
	}
}

// loadEnvironmentConfig 合并 <name>.<ASN_ENV> 配置文件
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(envSelector)
	if env == "" {
		return nil
	}

	envConfigName := fmt.Sprintf("%s.%s", l.opts.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(l.opts.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(ErrLoad, "merge environment config %s: %v", envConfigName, err)
		}
		l.notes = append(l.notes, fmt.Sprintf("no environment configuration file found for %q", env))
		return nil
	}
	l.notes = append(l.notes, fmt.Sprintf("loaded environment configuration %q", env))
	return nil
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}
