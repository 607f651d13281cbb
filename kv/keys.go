package kv

import "strconv"

// ConfigKey 持久化的配置基线
const ConfigKey = "config"

// CounterKey 命名空间的当前计数器
func CounterKey(ns int64) string {
	return "namespace/" + strconv.FormatInt(ns, 10)
}

// MetadataKey 已签发 ASN 的元数据记录，写入后不再修改
func MetadataKey(ns, counter int64) string {
	return "metadata/" + strconv.FormatInt(ns, 10) + "/" + strconv.FormatInt(counter, 10)
}

// StatsKey 命名空间的签发间隔统计
func StatsKey(ns int64) string {
	return CounterKey(ns) + "/timeStats"
}
