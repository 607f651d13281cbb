package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/timestats"
	"github.com/ceyewan/asnkeeper/xerrors"
)

const backupAdvice = "When restoring a backup, bump each namespace by the hourly rate above multiplied by the number of hours since the last backup. " +
	"This way, you can avoid collisions from registrations that happened after the backup. " +
	"For example, if you want to restore a backup that is 24 hours old, and want to be 99.73 % sure that you won't get any conflicts, " +
	"bump each namespace by the 3σ rate above multiplied by 24."

func (c *cli) runStats(ctx context.Context, args []string) error {
	fs := c.flags("stats")
	ns := fs.Int64("namespace", 0, "show statistics for a specific namespace")
	since := fs.Duration("since", 0, "suggest a bump delta for a backup this old")
	sigma := fs.Float64("sigma", 3, "confidence used for the suggestion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sigma <= 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "--sigma must be positive, got %v", *sigma)
	}

	a, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	cfg := a.alloc.Config()
	namespaces := namespace.AllManaged(cfg)
	if *ns != 0 {
		if !namespace.IsValid(*ns, cfg) {
			return xerrors.Wrapf(asn.ErrInvalidNamespace, "namespace %d", *ns)
		}
		namespaces = []int64{*ns}
	}

	w := c.stdout
	fmt.Fprintln(w, "Calculating statistics...")
	fmt.Fprintln(w, "Depending on the number of namespaces, this may take a while.")
	fmt.Fprintln(w, "---")

	report, err := timestats.BuildReport(ctx, a.alloc.Stats(), namespaces)
	if err != nil {
		return err
	}
	for _, s := range report.Stats {
		fmt.Fprintf(w, "%s: %s\n", namespace.Placeholder(s.Namespace, cfg), s)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintln(w, "Maximum Rate of ASN registrations per hour per namespace in the above namespaces:")
	fmt.Fprintf(w, "Filtered to only include namespaces with more than %d %s numbers.\n", timestats.MinReportCount, cfg.Prefix)

	if len(report.Rates) == 0 || !report.Rates[0].Eligible {
		fmt.Fprintf(w, "Not enough data yet: no namespace has more than %d registered %s numbers.\n",
			timestats.MinReportCount, cfg.Prefix)
	} else {
		for _, r := range report.Rates {
			fmt.Fprintf(w, "%s: %s registered %s numbers per namespace per hour\n",
				r.Label, timestats.FormatSignificant(r.PerHour, 5), cfg.Prefix)
		}
		fmt.Fprintln(w, backupAdvice)
		if *since > 0 {
			delta := recommendDelta(report.Stats, *sigma, *since)
			fmt.Fprintf(w, "Suggested bump delta for a backup %s old at %s: %d\n",
				*since, timestats.ConfidenceLabel(*sigma), delta)
			fmt.Fprintf(w, "Run \"asnkeeper bump %d\" to apply it.\n", delta)
		}
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintln(w, "Done.")
	return nil
}

// recommendDelta 所有合格命名空间中最大的推荐增量
func recommendDelta(stats []timestats.Stats, sigma float64, since time.Duration) int64 {
	var best int64 = 1
	for _, s := range stats {
		if s.Count > timestats.MinReportCount {
			best = max(best, asn.Recommend(s, sigma, since))
		}
	}
	return best
}
