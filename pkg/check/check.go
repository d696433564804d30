// Package check tests a configuration file: its structure, the header links
// it would produce and the chain IDs its RPC endpoints report.
package check

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"safehdr/pkg/config"
	"safehdr/pkg/header"
	"safehdr/pkg/models"
	"safehdr/pkg/rpc"
	"safehdr/pkg/utils"
)

// probeAddress is substituted into explorer templates to see whether they
// produce a usable link.
const probeAddress = "0x0000000000000000000000000000000000000001"

// ChainIDFunc asks one RPC endpoint for its chain id.
type ChainIDFunc func(ctx context.Context, rpcURL string) (int64, error)

type Options struct {
	DryRun bool
	// Out receives human readable progress. Nil keeps the run quiet.
	Out     io.Writer
	ChainID ChainIDFunc
	Logger  *zap.Logger
}

// Run checks cfg, fills in chain ids the config leaves at zero and saves the
// result to path unless opts.DryRun is set.
func Run(ctx context.Context, cfg config.Config, path string, opts Options) models.TestReport {
	if opts.ChainID == nil {
		opts.ChainID = rpc.CheckChainID
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		DryRun:         opts.DryRun,
	}
	fmt.Fprintf(out, "Testing configuration at: %s\n", path)

	report.StructureErrors, report.Warnings = Structure(cfg)
	for _, msg := range report.StructureErrors {
		fmt.Fprintf(out, "Error: %s\n", msg)
	}
	for _, msg := range report.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", msg)
	}
	if len(report.StructureErrors) > 0 {
		report.ValidStructure = false
		return report
	}

	// Chain ids are filled in below; leave the caller's slice alone.
	cfg.Chains = append([]config.ChainConfig(nil), cfg.Chains...)
	report.SafeCount = len(cfg.Safes)
	report.ChainCount = len(cfg.Chains)
	fmt.Fprintf(out, "Found %d Safes and %d Chains.\n", report.SafeCount, report.ChainCount)

	for i := range cfg.Chains {
		chain := &cfg.Chains[i]
		result := probeChain(ctx, chain, opts, out)
		if result.Inconsistent {
			report.InconsistentChains = append(report.InconsistentChains, chain.Name)
		}
		if result.ChainIDUpdated {
			report.ConfigUpdated = true
		}
		report.Chains = append(report.Chains, result)
	}

	if len(report.InconsistentChains) > 0 {
		fmt.Fprintln(out, "\nWARNING: Inconsistent RPCs detected!")
		fmt.Fprintln(out, "The following chains have RPCs returning conflicting Chain IDs:")
		for _, name := range report.InconsistentChains {
			fmt.Fprintf(out, " - %s\n", name)
		}
	}

	if report.ConfigUpdated {
		fmt.Fprintln(out, "\nUpdating configuration with fetched Chain IDs...")
		if opts.DryRun {
			fmt.Fprintln(out, "Dry run enabled: Configuration NOT saved.")
		} else if err := config.SaveConfig(cfg, path); err != nil {
			report.SaveError = err.Error()
			opts.Logger.Error("failed to save checked config", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(out, "Failed to save config: %v\n", err)
		} else {
			fmt.Fprintln(out, "Configuration saved successfully.")
		}
	}
	return report
}

// Structure returns the problems that make cfg unusable and the ones that
// only degrade the header.
func Structure(cfg config.Config) (errs, warnings []string) {
	if len(cfg.Chains) == 0 {
		return []string{"No Chains found in configuration."}, nil
	}
	for i, chain := range cfg.Chains {
		if strings.TrimSpace(chain.Name) == "" {
			errs = append(errs, fmt.Sprintf("Chain at index %d has no name.", i))
		}
		if len(chain.RPCURLs) == 0 {
			errs = append(errs, fmt.Sprintf("Chain '%s' has no RPC URLs.", chain.Name))
		}
		if strings.TrimSpace(chain.ShortName) == "" {
			warnings = append(warnings, fmt.Sprintf("Chain '%s' has no short name; copied addresses carry no prefix and no explorer link is shown.", chain.Name))
			continue
		}
		if chain.BlockExplorerURITemplate == "" {
			warnings = append(warnings, fmt.Sprintf("Chain '%s' has no block explorer template.", chain.Name))
			continue
		}
		link := header.BuildExplorerHref(probeAddress, models.Some(models.Chain{
			ShortName:                chain.ShortName,
			BlockExplorerURITemplate: chain.BlockExplorerURITemplate,
		}))
		if !link.IsSet() {
			warnings = append(warnings, fmt.Sprintf("Chain '%s' explorer template %q has no address placeholder or does not yield an absolute URL.", chain.Name, chain.BlockExplorerURITemplate))
		}
	}
	if len(cfg.Safes) == 0 {
		warnings = append(warnings, "No Safes found in configuration.")
	}
	for _, safe := range cfg.Safes {
		if !utils.IsCanonicalAddress(safe.Address) {
			errs = append(errs, fmt.Sprintf("Safe '%s' is not a 0x-prefixed 40 digit hex address.", safe.Address))
		}
		if _, ok := cfg.Chain(safe.Chain); !ok {
			errs = append(errs, fmt.Sprintf("Safe '%s' references unknown chain '%s'.", safe.Address, safe.Chain))
		}
	}
	return errs, warnings
}

func probeChain(ctx context.Context, chain *config.ChainConfig, opts Options, out io.Writer) models.ChainResult {
	result := models.ChainResult{
		Name:          chain.Name,
		ShortName:     chain.ShortName,
		ConfigChainID: chain.ChainID,
	}
	fmt.Fprintf(out, "Testing Chain: %s (%s)\n", chain.Name, chain.ShortName)

	var observed int64
	for _, url := range chain.RPCURLs {
		rr := models.RPCResult{URL: url}
		fmt.Fprintf(out, "  RPC: %s ... ", utils.TruncateString(url, 50))

		id, err := opts.ChainID(ctx, url)
		if err != nil {
			rr.Status = "error"
			rr.Error = err.Error()
			fmt.Fprintf(out, "Failed: %v\n", err)
			result.RPCs = append(result.RPCs, rr)
			continue
		}
		rr.Status = "ok"
		rr.ChainID = id
		fmt.Fprintf(out, "OK (ChainID: %d)", id)

		if observed == 0 {
			observed = id
			result.ObservedChainID = id
		} else if observed != id {
			fmt.Fprintf(out, " - WARNING: ChainID mismatch with previous RPC (%d)", observed)
			result.Inconsistent = true
		}

		switch {
		case chain.ChainID == 0:
			chain.ChainID = id
			result.ChainIDUpdated = true
			fmt.Fprint(out, " - UPDATED CONFIG")
			if opts.DryRun {
				fmt.Fprint(out, " (DRY RUN)")
			}
		case chain.ChainID != id:
			rr.Error = fmt.Sprintf("Mismatch! Expected %d", chain.ChainID)
			fmt.Fprintf(out, " - MISMATCH! Expected %d", chain.ChainID)
		default:
			fmt.Fprint(out, " - Verified")
		}
		fmt.Fprintln(out)
		result.RPCs = append(result.RPCs, rr)
	}
	return result
}
