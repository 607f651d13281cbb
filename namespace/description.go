package namespace

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatDescription 生成面向用户的 ASN 格式说明
func FormatDescription(cfg Config) string {
	min := MinGeneric(cfg)
	max := MaxGeneric(cfg)

	manualEnd := min*10 - 1
	if cfg.Extension {
		manualEnd -= min
	}

	var b strings.Builder
	b.WriteString("Configured ASN Format:\n")
	fmt.Fprintf(&b, "%-4s - %-4s - 001\n", cfg.Prefix, strconv.FormatInt(min, 10))
	b.WriteString("(1)  - (2)  - (3)\n\n")
	b.WriteString("(1) Prefix specified in configuration (" + cfg.Prefix + ").\n")
	b.WriteString("(2) Numeric Namespace, whereas\n")
	fmt.Fprintf(&b, "    - %d-%d is reserved for automatic generation, and\n", min, max)
	fmt.Fprintf(&b, "    - %d-%d", cfg.Range, manualEnd)
	if cfg.Extension {
		for i := 1; i <= 3; i++ {
			lo, hi, err := NthNinerExtensionRange(i, cfg.Range)
			if err != nil {
				break
			}
			fmt.Fprintf(&b, ",\n    - %d-%d", lo, hi)
		}
		b.WriteString(", etc., are")
	} else {
		b.WriteString(" is")
	}
	b.WriteString(" reserved for user defined namespaces.\n")
	b.WriteString("    The user defined namespace can be used for pre-printed ASN barcodes and the like.\n")
	b.WriteString("(3) Counter, starting from 001, incrementing with each new ASN in the namespace.\n")
	b.WriteString("    After 999, another digit is added.")
	return b.String()
}
