// Package config 负责加载 asnkeeper 的运行配置，基于 Viper 实现。
//
// 配置来源（优先级从高到低）：
//   - 进程环境变量（变量名沿用既有部署：PORT、ASN_PREFIX、DATA_DIR ...）
//   - .env 文件（godotenv，不覆盖已存在的环境变量）
//   - 环境特定配置文件 asnkeeper.<ASN_ENV>.yaml
//   - 基础配置文件 asnkeeper.yaml
//   - 内置默认值
//
// 基本使用：
//
//	app, err := config.Load(ctx, &config.Config{Paths: []string{"./config"}})
//	if err != nil {
//		log.Fatal(err)
//	}
//	nsCfg := app.Namespace()
//
// 配置在进程生命周期内不可变，加载结果显式传递给各组件，没有全局单例。
package config

// Config 加载器配置
type Config struct {
	Name     string   // 配置文件名称（不含扩展名），默认 "asnkeeper"
	Paths    []string // 配置文件与 .env 搜索路径，默认 [".", "./config"]
	FileType string   // 配置文件类型 (yaml, json, etc.)
	// DisableDotEnv 为 true 时不读取 .env，测试中用于隔离工作目录
	DisableDotEnv bool
}

// validate 设置默认值并验证配置
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "asnkeeper"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	return nil
}

// New 创建配置加载器。
//
// 如果 cfg 为 nil，使用默认配置。
func New(cfg *Config) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return newLoader(cfg), nil
}
