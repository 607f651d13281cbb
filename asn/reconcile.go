package asn

import (
	"context"
	"fmt"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// Baseline 持久化在 kv.ConfigKey 下的配置快照
type Baseline struct {
	Prefix                      string `msgpack:"ASN_PREFIX"`
	NamespaceRange              int64  `msgpack:"ASN_NAMESPACE_RANGE"`
	EnableNamespaceExtension    bool   `msgpack:"ASN_ENABLE_NAMESPACE_EXTENSION"`
	AdditionalManagedNamespaces string `msgpack:"ADDITIONAL_MANAGED_NAMESPACES"`
	BarcodeType                 string `msgpack:"ASN_BARCODE_TYPE"`
}

// NewBaseline 由命名空间配置与条码类型构造基线
func NewBaseline(cfg namespace.Config, barcodeType string) Baseline {
	return Baseline{
		Prefix:                      cfg.Prefix,
		NamespaceRange:              cfg.Range,
		EnableNamespaceExtension:    cfg.Extension,
		AdditionalManagedNamespaces: namespace.FormatAdditional(cfg.Additional),
		BarcodeType:                 barcodeType,
	}
}

// Reconcile 在首次签发前比对当前配置与上次持久化的基线。
//
// 前缀或命名空间位数变化会使已签发的 ASN 无法解析，返回 ErrConfigDrift。
// 条码类型变化只记录警告。首次运行以及每次比对通过后都会写回当前基线。
func Reconcile(ctx context.Context, store *kv.Store, current Baseline, logger clog.Logger) error {
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.WithNamespace("reconcile")

	return store.Transact(ctx, func(txn *kv.Txn) error {
		var stored Baseline
		found, err := txn.Get(kv.ConfigKey, &stored)
		if err != nil {
			return err
		}
		if !found {
			logger.InfoContext(ctx, "persisting initial configuration baseline",
				clog.String("prefix", current.Prefix), clog.Int64("namespace_range", current.NamespaceRange))
			return txn.Set(kv.ConfigKey, current)
		}

		if stored.Prefix != current.Prefix {
			return xerrors.WithCode(fmt.Errorf("%w: ASN_PREFIX changed from %q to %q, the prefix must be the same",
				ErrConfigDrift, stored.Prefix, current.Prefix), "prefix_changed")
		}
		if namespace.Digits(stored.NamespaceRange) != namespace.Digits(current.NamespaceRange) {
			return xerrors.WithCode(fmt.Errorf("%w: ASN_NAMESPACE_RANGE changed from %d to %d, the number of digits must be the same",
				ErrConfigDrift, stored.NamespaceRange, current.NamespaceRange), "namespace_width_changed")
		}
		if stored.BarcodeType != current.BarcodeType {
			logger.WarnContext(ctx, "barcode type changed, future barcodes may be incompatible with existing ones",
				clog.String("old", stored.BarcodeType), clog.String("new", current.BarcodeType))
		}
		if stored == current {
			return nil
		}
		return txn.Set(kv.ConfigKey, current)
	})
}
