// policy-lint validates an execution policy config file and reports the
// effective policies it yields.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-dispatch/policy"
)

type cli struct {
	Config  string   `arg:"" type:"existingfile" help:"Policy config file (YAML or JSON)."`
	Resolve []string `short:"r" help:"Operation names to resolve against the config."`
	Verbose bool     `short:"v" help:"Print a summary line with override counts."`
}

func main() {
	var args cli
	kctx := kong.Parse(&args,
		kong.Name("policy-lint"),
		kong.Description("Validate an execution policy config and show the policies it resolves to."),
		kong.UsageOnError(),
	)

	if err := run(args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "policy-lint: %v\n", err)
		kctx.Exit(1)
	}
}

func run(args cli, out io.Writer) error {
	data, err := os.ReadFile(args.Config)
	if err != nil {
		return err
	}

	cfg, err := policy.ParseConfig(data)
	if err != nil {
		return err
	}

	table := cfg.Table()

	fmt.Fprintln(out, "default:")
	printPolicy(out, "  ", table.Default())

	names := make([]string, 0, len(cfg.Operations))
	for name := range cfg.Operations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "\n%s:\n", name)
		printPolicy(out, "  ", table.Resolve(name, nil))
	}

	for _, op := range args.Resolve {
		origin := "default"
		if table.HasOverride(op) {
			origin = "override"
		}
		fmt.Fprintf(out, "\nresolve %s (%s):\n", op, origin)
		printPolicy(out, "  ", table.Resolve(op, nil))
	}

	if args.Verbose {
		fmt.Fprintf(out, "\n%d operation override(s), config version %d\n", len(cfg.Operations), cfg.Version)
	}
	return nil
}

func printPolicy(out io.Writer, indent string, p policy.ExecutionPolicy) {
	fmt.Fprintf(out, "%stimeout:            %s\n", indent, p.Timeout())
	fmt.Fprintf(out, "%smax attempts:       %d\n", indent, p.MaxAttempts)
	fmt.Fprintf(out, "%sretry delay:        %s base, %s max\n", indent, p.BaseDelay(), p.MaxDelay())
	fmt.Fprintf(out, "%sexponential:        %t\n", indent, p.ExponentialBackoff)
	fmt.Fprintf(out, "%sretry on failure:   %t\n", indent, p.RetryOnFailureResult)
	fmt.Fprintf(out, "%sretry on exception: %t\n", indent, p.RetryOnException)
}
