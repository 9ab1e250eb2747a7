package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/transit/internal/config"
	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/internal/presentation/graph"
	"github.com/aretw0/transit/pkg/domain"
)

// PrintPolicies writes the failure policy table as aligned text or JSON.
func PrintPolicies(out io.Writer, asJSON bool) error {
	if asJSON {
		table := make(map[domain.FailureKind]domain.Policy, len(domain.FailureKinds))
		for _, k := range domain.FailureKinds {
			table[k] = domain.PolicyFor(k)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tRETRY\tCLEAR CACHE\tFALLBACK\tMESSAGE")
	for _, k := range domain.FailureKinds {
		p := domain.PolicyFor(k)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", k, mark(p.SuggestRetry), mark(p.SuggestCacheClear), mark(p.DoFallback), p.MessageKey)
	}
	return tw.Flush()
}

func mark(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

// PrintPlan writes the Mermaid flowchart of the steps a run of target would take.
func PrintPlan(out io.Writer, configPath, target string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	req, err := resolveRequest(cfg, RunOptions{Target: target})
	if err != nil {
		return err
	}
	stack, err := createStack(cfg, Simulation{}, io.Discard, logging.NewNop(), false)
	if err != nil {
		return err
	}
	defer stack.Close()

	_, err = fmt.Fprint(out, graph.GenerateMermaid(stack.Orchestrator.Plan(req), nil))
	return err
}
