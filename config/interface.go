package config

import "context"

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 从所有来源加载配置
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error
}
