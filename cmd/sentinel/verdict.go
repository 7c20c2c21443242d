package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentinel-hq/sentinel/pkg/audit"
	"sentinel-hq/sentinel/pkg/cli"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/verdict"
	"sentinel-hq/sentinel/pkg/verdict/store"
)

var verdictFlags struct {
	yara       float64
	ml         float64
	behavioral float64
	fileHash   string
	format     string
}

var verdictCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Score detector outputs and manage cached verdicts",
	Long: `Score detector outputs and manage the verdict cache.

Scoring fuses the three detector scores with the configured weights and
maps the composite onto a threat level. When --hash is given the verdict
is also cached under that content hash with its severity-based expiry.

Examples:
  # Score three detector outputs
  sentinel verdict score --yara 0.8 --ml 0.7 --behavioral 0.6

  # Score and cache under a content hash
  sentinel verdict score --yara 0.9 --ml 0.85 --behavioral 0.8 --hash <sha256>

  # Look up a cached verdict
  sentinel verdict lookup <sha256>

  # Drop a cached verdict
  sentinel verdict invalidate <sha256>`,
}

var verdictScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Fuse detector scores into a verdict",
	RunE:  scoreVerdict,
}

var verdictLookupCmd = &cobra.Command{
	Use:   "lookup <sha256>",
	Short: "Look up a cached verdict by content hash",
	Args:  cobra.ExactArgs(1),
	RunE:  lookupVerdict,
}

var verdictInvalidateCmd = &cobra.Command{
	Use:   "invalidate <sha256>",
	Short: "Drop a cached verdict",
	Args:  cobra.ExactArgs(1),
	RunE:  invalidateVerdict,
}

var verdictPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove all expired cached verdicts",
	RunE:  purgeVerdicts,
}

func init() {
	rootCmd.AddCommand(verdictCmd)
	verdictCmd.AddCommand(verdictScoreCmd, verdictLookupCmd, verdictInvalidateCmd, verdictPurgeCmd)

	verdictCmd.PersistentFlags().StringVar(&verdictFlags.format, "format", "text", "output format: text, json")

	verdictScoreCmd.Flags().Float64Var(&verdictFlags.yara, "yara", 0, "pattern-matching detector score [0,1]")
	verdictScoreCmd.Flags().Float64Var(&verdictFlags.ml, "ml", 0, "machine-learning detector score [0,1]")
	verdictScoreCmd.Flags().Float64Var(&verdictFlags.behavioral, "behavioral", 0, "behavioral detector score [0,1]")
	verdictScoreCmd.Flags().StringVar(&verdictFlags.fileHash, "hash", "", "cache the verdict under this content hash")
}

// openVerdictCache loads the configuration and opens the verdict cache
// over the configured SQLite backend.
func openVerdictCache() (*store.Cache, func(), error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	backendCfg := store.DefaultSQLiteConfig()
	backendCfg.Path = cfg.VerdictStore.Path
	backend, err := store.NewSQLiteBackend(backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open verdict store: %w", err)
	}

	cache, err := store.NewCache(store.CacheConfig{Backend: backend})
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return cache, func() { backend.Close() }, nil
}

func scoreVerdict(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	engine, err := verdict.NewEngine(verdict.EngineConfig{
		Weights: verdict.Weights{
			YARA:       cfg.Scoring.Weights.YARA,
			ML:         cfg.Scoring.Weights.ML,
			Behavioral: cfg.Scoring.Weights.Behavioral,
		},
		Thresholds: verdict.Thresholds{
			Clean:      cfg.Scoring.Thresholds.Clean,
			Suspicious: cfg.Scoring.Thresholds.Suspicious,
			Malicious:  cfg.Scoring.Thresholds.Malicious,
		},
	})
	if err != nil {
		return cli.NewCommandError("verdict score", err)
	}

	v := engine.CalculateVerdict(verdictFlags.yara, verdictFlags.ml, verdictFlags.behavioral)

	if verdictFlags.fileHash != "" {
		cache, closer, err := openVerdictCache()
		if err != nil {
			return err
		}
		defer closer()

		rec := &store.SandboxVerdict{
			FileHash:        verdictFlags.fileHash,
			Level:           v.Level,
			Confidence:      v.Confidence,
			CompositeScore:  v.CompositeScore,
			Explanation:     v.Explanation,
			YARAScore:       v.YARAScore,
			MLScore:         v.MLScore,
			BehavioralScore: v.BehavioralScore,
		}
		if err := cache.Store(context.Background(), rec); err != nil {
			return cli.NewCommandError("verdict score", err)
		}

		recordAudit(audit.Event{
			Type:   audit.EventVerdictIssued,
			Actor:  "user",
			Detail: fmt.Sprintf("level %s, composite %.3f", v.Level, v.CompositeScore),
		})
	}

	return printVerdict(v)
}

func lookupVerdict(cmd *cobra.Command, args []string) error {
	cache, closer, err := openVerdictCache()
	if err != nil {
		return err
	}
	defer closer()

	rec, err := cache.Lookup(context.Background(), args[0])
	if err != nil {
		return cli.NewCommandError("verdict lookup", err)
	}
	if rec == nil {
		fmt.Println("No cached verdict (miss or expired).")
		return nil
	}

	if verdictFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, rec)
	}

	fmt.Printf("Level:      %s\n", rec.Level)
	fmt.Printf("Composite:  %.3f\n", rec.CompositeScore)
	fmt.Printf("Confidence: %.3f\n", rec.Confidence)
	fmt.Printf("Analyzed:   %s\n", rec.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Expires:    %s\n", rec.ExpiresAt.Format("2006-01-02 15:04:05"))
	if rec.Explanation != "" {
		fmt.Printf("Summary:    %s\n", rec.Explanation)
	}
	return nil
}

func invalidateVerdict(cmd *cobra.Command, args []string) error {
	cache, closer, err := openVerdictCache()
	if err != nil {
		return err
	}
	defer closer()

	if err := cache.Invalidate(context.Background(), args[0]); err != nil {
		return cli.NewCommandError("verdict invalidate", err)
	}
	fmt.Println("✓ Verdict invalidated")
	return nil
}

func purgeVerdicts(cmd *cobra.Command, args []string) error {
	cache, closer, err := openVerdictCache()
	if err != nil {
		return err
	}
	defer closer()

	n, err := cache.PurgeExpired(context.Background())
	if err != nil {
		return cli.NewCommandError("verdict purge", err)
	}
	fmt.Printf("✓ Purged %d expired verdicts\n", n)
	return nil
}

func printVerdict(v verdict.Verdict) error {
	if verdictFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, v)
	}

	fmt.Printf("Level:      %s\n", v.Level)
	fmt.Printf("Composite:  %.3f\n", v.CompositeScore)
	fmt.Printf("Confidence: %.3f\n", v.Confidence)
	fmt.Printf("Summary:    %s\n", v.Explanation)
	return nil
}
