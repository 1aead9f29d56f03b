package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var policyFlags struct {
	format string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect retention policy",
	Long: `Inspect the retention policy that cleanable reports resolve TTLs from.

Subcommands:
  show   - Print the policy currently loaded from retention.policy_file
  check  - Validate a policy file without loading it

Examples:
  # Show the active policy
  chronicle policy show --config chronicle.yaml

  # Validate an edited policy before deploying it
  chronicle policy check retention.yaml`,
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded retention policy",
	Args:  cobra.NoArgs,
	RunE:  showPolicy,
}

var policyCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a retention policy file",
	Args:  cobra.ExactArgs(1),
	RunE:  checkPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd, policyCheckCmd)

	policyCmd.PersistentFlags().StringVar(&policyFlags.format, "format", "yaml", "output format: yaml, json")
}

// policyDocument is the printable form of a snapshot, laid out like the
// policy file so that show output can be fed back as a file.
type policyDocument struct {
	Batch struct {
		DefaultTTL retention.TTL            `yaml:"default_ttl" json:"default_ttl"`
		Overrides  map[string]retention.TTL `yaml:"overrides,omitempty" json:"overrides,omitempty"`
	} `yaml:"batch" json:"batch"`
	Definitions []retention.DefinitionPolicy `yaml:"definitions,omitempty" json:"definitions,omitempty"`
}

func documentFor(snap *retention.Snapshot) policyDocument {
	var doc policyDocument
	doc.Batch.DefaultTTL = snap.BatchDefault
	doc.Batch.Overrides = snap.BatchOverrides
	for _, kind := range retention.PolicyKinds {
		for _, id := range snap.ConfiguredKeys(kind) {
			if def, ok := snap.Definition(kind, id); ok {
				doc.Definitions = append(doc.Definitions, def)
			}
		}
	}
	return doc
}

func writePolicy(w io.Writer, doc policyDocument) error {
	switch policyFlags.format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return history.NewInvalidArgumentError("format", fmt.Sprintf("unknown format %q (valid: yaml, json)", policyFlags.format))
	}
}

func showPolicy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	snap, err := a.policy.Snapshot(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("policy snapshot", "version", snap.Version, "taken_at", snap.TakenAt)
	return writePolicy(cmd.OutOrStdout(), documentFor(snap))
}

func checkPolicy(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return history.NewPolicyError("file:"+args[0], err)
	}
	snap, err := retention.ParsePolicyFile(data)
	if err != nil {
		return history.NewPolicyError("file:"+args[0], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid\n", args[0])
	fmt.Fprintf(out, "  batch default:   %s\n", snap.BatchDefault)
	fmt.Fprintf(out, "  batch overrides: %d\n", len(snap.BatchOverrides))
	for _, kind := range retention.PolicyKinds {
		if !kind.IsDefinition() {
			continue
		}
		keys := snap.ConfiguredKeys(kind)
		unset := slices.DeleteFunc(slices.Clone(keys), func(id string) bool {
			def, _ := snap.Definition(kind, id)
			return def.TTL.IsSet()
		})
		fmt.Fprintf(out, "  %-20s %d definitions, %d without TTL\n", string(kind)+":", len(keys), len(unset))
	}
	return nil
}
