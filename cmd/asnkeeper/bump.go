package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/xerrors"
)

func (c *cli) runBump(ctx context.Context, args []string) error {
	fs := c.flags("bump")
	ns := fs.Int64("namespace", 0, "bump a specific namespace")
	by := fs.String("by", "", "who performed the bump")
	reason := fs.String("reason", "", "why the bump was performed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return xerrors.Wrap(asn.ErrInvalidDelta, "usage: asnkeeper bump <delta> [--namespace <n>]")
	}
	delta, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || delta < 1 {
		return xerrors.Wrapf(asn.ErrInvalidDelta, "delta must be a positive integer, got %q", fs.Arg(0))
	}

	a, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	cfg := a.alloc.Config()
	var namespaces []int64
	if *ns != 0 {
		if !namespace.IsManaged(*ns, cfg) {
			fmt.Fprintf(c.stderr, "Namespace %d (%s) is not managed by the system.\n", *ns, namespace.Placeholder(*ns, cfg))
			fmt.Fprintln(c.stderr, "It therefore cannot be bumped.")
			fmt.Fprintln(c.stderr, "Managed namespace numbers are:", joinInts(namespace.AllManaged(cfg)))
			return errReported
		}
		namespaces = []int64{*ns}
	} else {
		namespaces = namespace.AllManaged(cfg)
	}

	placeholders := make([]string, len(namespaces))
	for i, n := range namespaces {
		placeholders[i] = namespace.Placeholder(n, cfg)
	}
	fmt.Fprintln(c.stdout, "Bumping namespaces:", strings.Join(placeholders, ", "))
	fmt.Fprintln(c.stdout, "---")

	results, err := a.alloc.Bump(ctx, asn.BumpRequest{
		Namespaces: namespaces,
		Delta:      delta,
		By:         *by,
		Reason:     *reason,
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(c.stdout, "Bumped %s. Next registered ASN will be %s.\n", namespace.Placeholder(r.Namespace, cfg), r.Next)
	}

	fmt.Fprintln(c.stdout, "---")
	fmt.Fprintln(c.stdout, "Done.")
	return nil
}

func joinInts(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ")
}
