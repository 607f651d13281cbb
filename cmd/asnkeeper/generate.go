package main

import (
	"context"
	"fmt"

	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/xerrors"
)

func (c *cli) runGenerate(ctx context.Context, args []string) error {
	fs := c.flags("generate")
	count := fs.Int("count", 1, "number of ASNs to generate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count < 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "--count must be at least 1, got %d", *count)
	}

	a, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	metadata := map[string]any{
		"client":         "cli",
		"generatedCount": *count,
	}
	for range *count {
		rec, err := a.alloc.Generate(ctx, metadata)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, rec.ASN)
	}
	return nil
}

func (c *cli) runFormat(ctx context.Context, args []string) error {
	if err := c.flags("format").Parse(args); err != nil {
		return err
	}
	a, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	fmt.Fprintln(c.stdout, namespace.FormatDescription(a.alloc.Config()))
	return nil
}
