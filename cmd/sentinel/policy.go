package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sentinel-hq/sentinel/pkg/audit"
	"sentinel-hq/sentinel/pkg/cli"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/policy"
	"sentinel-hq/sentinel/pkg/policy/storage"
)

var policyFlags struct {
	ruleName    string
	urlPattern  string
	fileHash    string
	mimeType    string
	action      string
	matchType   string
	createdBy   string
	expiresIn   time.Duration
	format      string
	threats     bool
	threatsDays int
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage enforcement policies",
	Long: `Manage the enforcement policies Sentinel matches threats against.

Policies are matched in priority order: file hash first, then URL
pattern, then bare rule name. Writing a policy invalidates the whole
match cache, so new rules take effect immediately.

Examples:
  # List all policies
  sentinel policy list

  # Block a known-bad file by content hash
  sentinel policy add --rule EICAR_Test --hash <sha256> --action block

  # Block downloads from a domain for 30 days
  sentinel policy add --rule Phishing_Kit --url "https://evil.example/%" \
    --action block --expires-in 720h

  # Show one policy
  sentinel policy show 42

  # Remove a policy
  sentinel policy rm 42`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all policies",
	RunE:  listPolicies,
}

var policyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new policy",
	Long: `Add a new enforcement policy.

At least --rule is required. Actions: allow, block, quarantine,
block_autofill, warn_user. Match types: download_origin_file_type,
form_action_mismatch, insecure_credential_post, third_party_form_post.`,
	RunE: addPolicy,
}

var policyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one policy",
	Args:  cobra.ExactArgs(1),
	RunE:  showPolicy,
}

var policyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  removePolicy,
}

var policyThreatsCmd = &cobra.Command{
	Use:   "threats",
	Short: "Show threat history",
	RunE:  listThreats,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyListCmd, policyAddCmd, policyShowCmd, policyRmCmd, policyThreatsCmd)

	policyCmd.PersistentFlags().StringVar(&policyFlags.format, "format", "text", "output format: text, json")

	policyAddCmd.Flags().StringVar(&policyFlags.ruleName, "rule", "", "detection rule name (required)")
	policyAddCmd.Flags().StringVar(&policyFlags.urlPattern, "url", "", "URL pattern ('%' any run, '_' one char)")
	policyAddCmd.Flags().StringVar(&policyFlags.fileHash, "hash", "", "hex SHA-256 of the exact content")
	policyAddCmd.Flags().StringVar(&policyFlags.mimeType, "mime", "", "MIME type the policy targets")
	policyAddCmd.Flags().StringVar(&policyFlags.action, "action", "block", "enforcement action")
	policyAddCmd.Flags().StringVar(&policyFlags.matchType, "match-type", "download_origin_file_type", "event class the policy targets")
	policyAddCmd.Flags().StringVar(&policyFlags.createdBy, "created-by", "user", "who is creating the policy")
	policyAddCmd.Flags().DurationVar(&policyFlags.expiresIn, "expires-in", 0, "lifetime before the policy goes inert (0 = never)")
	_ = policyAddCmd.MarkFlagRequired("rule")

	policyThreatsCmd.Flags().IntVar(&policyFlags.threatsDays, "days", 7, "how far back to look")
}

// openGraph loads the configuration and opens the policy graph over the
// configured SQLite store. The caller must invoke the returned closer.
func openGraph() (*policy.Graph, func(), error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	store, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteStoreConfig{
		Path:        cfg.PolicyStore.Path,
		BusyTimeout: time.Duration(cfg.PolicyStore.BusyTimeoutMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open policy store: %w", err)
	}

	graph, err := policy.NewGraph(policy.GraphConfig{
		Store:     store,
		CacheSize: cfg.PolicyStore.CacheSize,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return graph, func() { store.Close() }, nil
}

// recordAudit appends one event to the configured audit log. A disabled or
// unavailable audit log never fails the command that caused the event.
func recordAudit(event audit.Event) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil || !cfg.Audit.Enabled {
		return
	}

	log, err := audit.New(audit.Config{
		Path:         cfg.Audit.Path,
		MaxSizeBytes: cfg.Audit.MaxSizeBytes,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
		return
	}
	defer log.Close()

	if err := log.Record(event); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit record failed: %v\n", err)
	}
}

func listPolicies(cmd *cobra.Command, args []string) error {
	graph, closer, err := openGraph()
	if err != nil {
		return err
	}
	defer closer()

	policies, err := graph.ListPolicies(context.Background())
	if err != nil {
		return cli.NewCommandError("policy list", err)
	}

	if policyFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, policies)
	}

	if len(policies) == 0 {
		fmt.Println("No policies configured.")
		return nil
	}
	for _, p := range policies {
		printPolicyLine(p)
	}
	return nil
}

func addPolicy(cmd *cobra.Command, args []string) error {
	graph, closer, err := openGraph()
	if err != nil {
		return err
	}
	defer closer()

	action, err := policy.ParseAction(policyFlags.action)
	if err != nil {
		return cli.NewCommandError("policy add", err)
	}
	matchType, err := policy.ParseMatchType(policyFlags.matchType)
	if err != nil {
		return cli.NewCommandError("policy add", err)
	}

	p := &policy.Policy{
		RuleName:   policyFlags.ruleName,
		URLPattern: policyFlags.urlPattern,
		FileHash:   policyFlags.fileHash,
		MimeType:   policyFlags.mimeType,
		Action:     action,
		MatchType:  matchType,
		CreatedBy:  policyFlags.createdBy,
	}
	if policyFlags.expiresIn > 0 {
		p.ExpiresAt = time.Now().Add(policyFlags.expiresIn)
	}

	id, err := graph.CreatePolicy(context.Background(), p)
	if err != nil {
		return cli.NewCommandError("policy add", err)
	}

	recordAudit(audit.Event{
		Type:     audit.EventPolicyCreated,
		Actor:    policyFlags.createdBy,
		PolicyID: id,
		RuleName: p.RuleName,
		Action:   p.Action.String(),
	})

	fmt.Printf("✓ Policy %d created (%s -> %s)\n", id, p.RuleName, p.Action)
	return nil
}

func showPolicy(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid policy ID %q", args[0])
	}

	graph, closer, err := openGraph()
	if err != nil {
		return err
	}
	defer closer()

	p, err := graph.GetPolicy(context.Background(), id)
	if err != nil {
		return cli.NewCommandError("policy show", err)
	}

	if policyFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, p)
	}

	fmt.Printf("ID:          %d\n", p.ID)
	fmt.Printf("Rule:        %s\n", p.RuleName)
	fmt.Printf("Action:      %s\n", p.Action)
	fmt.Printf("Match Type:  %s\n", p.MatchType)
	if p.URLPattern != "" {
		fmt.Printf("URL Pattern: %s\n", p.URLPattern)
	}
	if p.FileHash != "" {
		fmt.Printf("File Hash:   %s\n", p.FileHash)
	}
	if p.MimeType != "" {
		fmt.Printf("MIME Type:   %s\n", p.MimeType)
	}
	fmt.Printf("Created:     %s by %s\n", p.CreatedAt.Format(time.RFC3339), p.CreatedBy)
	if !p.ExpiresAt.IsZero() {
		fmt.Printf("Expires:     %s\n", p.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Printf("Hits:        %d", p.HitCount)
	if !p.LastHit.IsZero() {
		fmt.Printf(" (last %s)", p.LastHit.Format(time.RFC3339))
	}
	fmt.Println()
	return nil
}

func removePolicy(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid policy ID %q", args[0])
	}

	graph, closer, err := openGraph()
	if err != nil {
		return err
	}
	defer closer()

	if err := graph.DeletePolicy(context.Background(), id); err != nil {
		return cli.NewCommandError("policy rm", err)
	}

	recordAudit(audit.Event{
		Type:     audit.EventPolicyDeleted,
		Actor:    "user",
		PolicyID: id,
	})

	fmt.Printf("✓ Policy %d removed\n", id)
	return nil
}

func listThreats(cmd *cobra.Command, args []string) error {
	graph, closer, err := openGraph()
	if err != nil {
		return err
	}
	defer closer()

	since := time.Now().AddDate(0, 0, -policyFlags.threatsDays)
	threats, err := graph.ThreatHistory(context.Background(), since)
	if err != nil {
		return cli.NewCommandError("policy threats", err)
	}

	if policyFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, threats)
	}

	if len(threats) == 0 {
		fmt.Printf("No threats recorded in the last %d days.\n", policyFlags.threatsDays)
		return nil
	}
	for _, t := range threats {
		fmt.Printf("%s  %-20s %-10s %s\n",
			t.DetectedAt.Format(time.RFC3339), t.RuleName, t.ActionTaken, t.URL)
	}
	return nil
}

func printPolicyLine(p *policy.Policy) {
	target := p.RuleName
	switch {
	case p.FileHash != "":
		target = "hash " + p.FileHash[:12] + "..."
	case p.URLPattern != "":
		target = "url " + p.URLPattern
	}
	fmt.Printf("%4d  %-15s %-25s %s (hits: %d)\n", p.ID, p.Action, p.RuleName, target, p.HitCount)
}
