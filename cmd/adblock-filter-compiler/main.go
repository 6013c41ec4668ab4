package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bnema/adblock-filter-compiler/internal/compiler"
	"github.com/bnema/adblock-filter-compiler/internal/fetcher"
	"github.com/bnema/adblock-filter-compiler/internal/logger"
	"github.com/bnema/adblock-filter-compiler/internal/metrics"
	"github.com/bnema/adblock-filter-compiler/internal/models"
	"github.com/bnema/adblock-filter-compiler/internal/renderer"
)

var (
	cfgFile string
	cfg     models.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adblock-filter-compiler",
	Short: "Compile blocklists into one AdBlock filter",
	Long: `A tool that combines hosts files, AdBlock filters and plain domain lists
into a single deduplicated, compressed AdBlock syntax filter.`,
	SilenceUsage: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Fetch the configured lists and write the compiled filter",
	RunE:  runCompile,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured source lists",
	RunE:  runList,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/filter_lists.toml)")

	compileCmd.Flags().StringP("output", "o", "", "blocklist output file (overrides config)")
	compileCmd.Flags().Bool("dry-run", false, "compile without writing files")
	compileCmd.Flags().Bool("no-compress", false, "keep subdomain rules covered by a parent rule")
	compileCmd.Flags().Bool("verbose", false, "verbose output")

	rootCmd.AddCommand(compileCmd, listCmd, initCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("filter_lists")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("AFC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.retries", 3)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.size", 64)
	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("compile.compress", true)
	viper.SetDefault("output.blocklist", "./output/blocklist.txt")
	viper.SetDefault("output.line_ending", "lf")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noCompress, _ := cmd.Flags().GetBool("no-compress")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outputPath != "" {
		cfg.Output.Blocklist = outputPath
	}
	if noCompress {
		cfg.Compile.Compress = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	blockLists := cfg.EnabledLists(models.KindBlocklist)
	if len(blockLists) == 0 {
		return fmt.Errorf("no enabled blocklists found in config")
	}
	whiteLists := cfg.EnabledLists(models.KindWhitelist)

	log := logger.New(verbose)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Compiling %d blocklists and %d whitelists...\n", len(blockLists), len(whiteLists))
	if dryRun {
		fmt.Println("[DRY RUN] No files will be written")
	}

	fetchOpts := []fetcher.Option{fetcher.WithLogger(log)}
	if cfg.Cache.Enabled {
		fetchOpts = append(fetchOpts, fetcher.WithCache(fetcher.NewCache(cfg.Cache.Size, cfg.Cache.TTL)))
	}
	f := fetcher.New(cfg.HTTP, fetchOpts...)
	collector := metrics.New()

	blockResults := f.LoadAll(ctx, blockLists, cfg.Compile.Workers)
	whiteResults := f.LoadAll(ctx, whiteLists, cfg.Compile.Workers)
	collector.RecordFetch(blockResults)
	collector.RecordFetch(whiteResults)
	printFetchResults(append(blockResults, whiteResults...))

	c := compiler.New(
		compiler.WithCompression(cfg.Compile.Compress),
		compiler.WithParallelism(cfg.Compile.Workers),
		compiler.WithLogger(log),
		compiler.WithObserver(collector),
	)

	res, err := c.Compile(ctx, fetcher.Documents(blockResults), fetcher.Documents(whiteResults))
	if err != nil {
		var empty *compiler.EmptyResultError
		if errors.As(err, &empty) {
			return fmt.Errorf("refusing to write an empty filter: %w", err)
		}
		return err
	}

	printSummary(os.Stdout, res, verbose, log)

	if dryRun {
		fmt.Println("\nDone!")
		return nil
	}

	r := renderer.New(renderer.WithLineTerminator(cfg.Output.LineTerminator()))
	w := renderer.NewWriter(afero.NewOsFs(), r)

	if err := w.Write(cfg.Output.Blocklist, r.Render(res.Blocklist, res.Stats)); err != nil {
		return err
	}
	fmt.Printf("\nWrote %s\n", cfg.Output.Blocklist)

	if res.Whitelist != nil && cfg.Output.Whitelist != "" {
		if err := w.Write(cfg.Output.Whitelist, r.RenderWhitelist(res.Whitelist, res.WhitelistStats)); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfg.Output.Whitelist)
	}

	if cfg.Output.MetricsFile != "" {
		collector.RecordResult(res, time.Now())
		if err := os.MkdirAll(filepath.Dir(cfg.Output.MetricsFile), 0755); err != nil {
			return err
		}
		if err := collector.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}

	fmt.Println("\nDone!")
	return nil
}

func printFetchResults(results []fetcher.LoadResult) {
	for _, r := range results {
		fmt.Printf("\n  Loading %s (%s)...\n", r.List.Name, r.List.ListKind())
		if r.Err != nil {
			fmt.Printf("    ERROR: %v\n", r.Err)
			continue
		}
		fmt.Printf("    Downloaded: %d bytes\n", r.Bytes)
	}
}

func printSummary(w io.Writer, res *compiler.Result, verbose bool, log *zap.SugaredLogger) {
	fmt.Fprintf(w, "\nCompilation summary:\n")
	fmt.Fprintf(w, "  Rules:                 %d\n", res.Blocklist.Len())
	fmt.Fprintf(w, "  Total parsed:          %d\n", res.Stats.TotalParsed)
	fmt.Fprintf(w, "  Duplicates removed:    %d\n", res.Stats.DuplicatesRemoved)
	fmt.Fprintf(w, "  Domains compressed:    %d\n", res.Stats.DomainsCompressed)
	fmt.Fprintf(w, "  Invalid lines skipped: %d\n", res.Stats.InvalidLinesSkipped)
	if res.Whitelist != nil {
		fmt.Fprintf(w, "  Whitelisted removed:   %d\n", res.Stats.WhitelistRemoved)
	}

	if verbose {
		totalSkips := make(map[string]int)
		for _, s := range res.Sources {
			if s.Err != nil {
				fmt.Fprintf(w, "    %s: dropped (%v)\n", s.Source, s.Err)
				continue
			}
			fmt.Fprintf(w, "    %s: %d lines, %d blank, %d rules, %d invalid\n", s.Source, s.Lines, s.Blank, s.Rules, s.Invalid)
			for reason, count := range s.SkipReasons {
				fmt.Fprintf(w, "      - %s: %d\n", reason, count)
				totalSkips[reason] += count
			}
		}
		if len(totalSkips) > 0 {
			fmt.Fprintf(w, "\nSkipped lines summary:\n")
			for _, reason := range slices.Sorted(maps.Keys(totalSkips)) {
				fmt.Fprintf(w, "  %s: %d\n", reason, totalSkips[reason])
			}
		}
		for _, inv := range res.Invalid {
			log.Debugw("Skipped invalid line",
				"source", inv.Source,
				"line", inv.Line,
				"text", inv.Text,
				"reason", inv.Reason,
			)
		}
	}
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Println("Configured lists:")
	fmt.Println()
	for _, list := range cfg.Lists {
		status := "enabled"
		if !list.Enabled {
			status = "disabled"
		}
		fmt.Printf("  [%s] %s (%s)\n", status, list.Name, list.ListKind())
		fmt.Printf("         %s\n\n", list.Location())
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "./configs/filter_lists.toml"
	if cfgFile != "" {
		configPath = cfgFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}

const defaultConfig = `# AdBlock Filter Compiler Configuration

# HTTP client settings
[http]
timeout = "30s"
retries = 3
requests_per_second = 0

# Fetch cache; entries older than ttl are downloaded again
[cache]
enabled = true
size = 64
ttl = "1h"

# Compilation settings (workers = 0 uses all CPUs)
[compile]
workers = 0
compress = true

# Output settings
[output]
blocklist = "./output/blocklist.txt"
whitelist = "./output/whitelist.txt"
metrics_file = ""
line_ending = "lf"

# Source lists
# kind is "blocklist" (default) or "whitelist"; use path instead of url for local files
# Set enabled = false to skip a list

[[lists]]
name = "hagezi-multi"
url = "https://raw.githubusercontent.com/hagezi/dns-blocklists/main/adblock/multi.txt"
enabled = true

[[lists]]
name = "notrack-trackers"
url = "https://gitlab.com/quidsup/notrack-blocklists/-/raw/master/trackers.hosts"
enabled = true

[[lists]]
name = "adguard-dns"
url = "https://adguardteam.github.io/HostlistsRegistry/assets/filter_1.txt"
enabled = true

[[lists]]
name = "hblock"
url = "https://hblock.molinero.dev/hosts_adblock.txt"
enabled = false

[[lists]]
name = "hagezi-whitelist"
url = "https://github.com/hagezi/dns-blocklists/raw/main/adblock/whitelist.txt"
kind = "whitelist"
enabled = true

[[lists]]
name = "hagezi-whitelist-referral"
url = "https://github.com/hagezi/dns-blocklists/raw/main/adblock/whitelist-referral.txt"
kind = "whitelist"
enabled = true
`
