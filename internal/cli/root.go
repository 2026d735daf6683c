// Package cli wires the wfmk command line: flag parsing, pattern
// expansion, and table rendering around the engine's resolver.
package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wfmk/wfmk/internal/config"
	"github.com/wfmk/wfmk/internal/engine"
	"github.com/wfmk/wfmk/internal/engine/cache"
	"github.com/wfmk/wfmk/internal/engine/ratelimit"
	"github.com/wfmk/wfmk/internal/market"
)

// rootParams holds every flag of the root command.
type rootParams struct {
	// Actions (mutually exclusive; orders is the default).
	ClearCache bool
	List       bool
	Orders     bool
	Summary    bool

	// Cache options.
	CacheDir  string
	NoCache   bool
	TTLItems  string
	TTLOrders string
	RateLimit int

	// Query options.
	Platform string
	Language string
	Timeout  string
	Files    []string
	Buyers   bool
	All      bool
	Reverse  bool

	// Output.
	Output     string
	ConfigPath string
	Verbose    bool
}

const rootCmdExample = `  # Print the current selling prices for the Ammo Drum mod
  wfmk "ammo drum"

  # Print a buying-price summary for all Ember Prime items
  wfmk --summary --buyers "ember prime*"

  # List all items with "rubedo" in their name
  wfmk --list "*rubedo*"

  # List all Xiphos parts, but not the set
  wfmk --list "xiphos [!s]*"

  # Delete the local cache
  wfmk --clear-cache`

// NewRootCmd creates the wfmk root command. Item patterns are
// case-insensitive and may contain the wildcards *, ? and [] (which
// behave like bash globs); abbreviated part names such as "bp" or
// "neur" are expanded when a raw pattern matches nothing.
func NewRootCmd(version string) *cobra.Command {
	var params rootParams

	cmd := &cobra.Command{
		Use:     "wfmk [flags] pattern...",
		Short:   "Look up item prices on warframe.market",
		Long:    "wfmk looks up current buy and sell orders for tradeable items on warframe.market.",
		Example: rootCmdExample,
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRoot(cmd, args, &params)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()

	flags.BoolVar(&params.ClearCache, "clear-cache", false, "delete the contents of the local disk cache")
	flags.BoolVarP(&params.List, "list", "l", false, "list items matching the name patterns without fetching orders")
	flags.BoolVarP(&params.Orders, "orders", "O", false, "list each item's current orders (the default)")
	flags.BoolVarP(&params.Summary, "summary", "s", false, "show one price-summary row per item")
	cmd.MarkFlagsMutuallyExclusive("clear-cache", "list", "orders", "summary")

	flags.StringVarP(&params.CacheDir, "cache-dir", "C", "", "directory for the local disk cache")
	flags.BoolVar(&params.NoCache, "no-cache", false, "disable the local disk cache")
	flags.StringVar(&params.TTLItems, "ttl-items", config.DefaultTTLItems, "how long to cache the item catalog (e.g. 1d, 12h)")
	flags.StringVar(&params.TTLOrders, "ttl-orders", config.DefaultTTLOrders, "how long to cache an item's orders (e.g. 10m, 300)")
	flags.IntVar(&params.RateLimit, "rate-limit", config.DefaultRateLimit, "maximum API requests per minute")

	flags.StringVarP(&params.Platform, "platform", "P", config.DefaultPlatform, "platform to search (pc, ps4, switch, xbox)")
	flags.StringVarP(&params.Language, "language", "L", config.DefaultLanguage, `language code to search (e.g. "de", "en", "fr", "ru")`)
	flags.StringVar(&params.Timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	flags.StringArrayVarP(&params.Files, "file", "f", nil, "read item patterns from a file, one per line (repeatable)")
	flags.BoolVarP(&params.Buyers, "buyers", "b", false, "show users looking to buy instead of sell")
	flags.BoolVarP(&params.All, "all", "a", false, "show all matching users, not just the top 5")
	flags.BoolVarP(&params.Reverse, "reverse", "r", false, "reverse the sorting order")

	flags.StringVarP(&params.Output, "output", "o", config.DefaultOutput, "output format (table, json, ndjson)")
	flags.StringVar(&params.ConfigPath, "config", "", "config file path (default: "+config.DefaultConfigPath()+")")
	flags.BoolVarP(&params.Verbose, "verbose", "v", false, "print debug messages about cache and request pacing")

	return cmd
}

// executeRoot resolves configuration, builds the access layer, and
// dispatches to the selected action.
func executeRoot(cmd *cobra.Command, args []string, params *rootParams) error {
	settings, err := resolveSettings(cmd, params)
	if err != nil {
		return err
	}

	logger := config.NewLogger(params.Verbose)
	logger.Debug().
		Str("platform", string(settings.Platform)).
		Str("language", settings.Language).
		Str("cache_dir", settings.CacheDir).
		Msg("starting lookup")

	if params.ClearCache {
		return clearCache(settings, logger)
	}

	patterns, err := collectPatterns(args, params.Files)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		return errors.New("item patterns are required (or --file, or --clear-cache)")
	}

	resolver, err := buildResolver(settings, logger)
	if err != nil {
		return err
	}

	return executeLookup(cmd, params, settings, resolver, patterns)
}

// resolveSettings layers file, environment, and explicitly-set flags
// into validated settings.
func resolveSettings(cmd *cobra.Command, params *rootParams) (config.Settings, error) {
	path := params.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}

	// Flags override file and environment only when set on the
	// command line.
	flags := cmd.Flags()
	if flags.Changed("platform") {
		cfg.Platform = params.Platform
	}
	if flags.Changed("language") {
		cfg.Language = params.Language
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = params.CacheDir
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = params.NoCache
	}
	if flags.Changed("ttl-items") {
		cfg.TTLItems = params.TTLItems
	}
	if flags.Changed("ttl-orders") {
		cfg.TTLOrders = params.TTLOrders
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = params.RateLimit
	}
	if flags.Changed("timeout") {
		cfg.Timeout = params.Timeout
	}
	if flags.Changed("output") {
		cfg.Output = params.Output
	}

	return cfg.Resolve()
}

// buildResolver assembles the cached, rate-limited access layer from
// validated settings.
func buildResolver(settings config.Settings, logger zerolog.Logger) (*engine.Resolver, error) {
	var store cache.Store
	if settings.NoCache {
		store = cache.NullStore{}
	} else {
		fileStore, err := cache.NewFileStore(settings.CacheDir)
		if err != nil {
			return nil, err
		}
		store = fileStore
	}

	limiter, err := ratelimit.New(settings.RateLimit)
	if err != nil {
		return nil, err
	}

	client := market.NewClient(settings.Platform, settings.Language,
		market.WithTimeout(settings.Timeout))

	return engine.NewResolver(engine.ResolverConfig{
		Store:      store,
		Limiter:    limiter,
		Fetcher:    client,
		Platform:   settings.Platform,
		Language:   settings.Language,
		CatalogTTL: settings.TTLItems,
		OrdersTTL:  settings.TTLOrders,
		Logger:     logger,
	})
}

// clearCache deletes all cached entries. It always targets the disk
// store, regardless of --no-cache.
func clearCache(settings config.Settings, logger zerolog.Logger) error {
	store, err := cache.NewFileStore(settings.CacheDir)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	logger.Debug().Str("cache_dir", settings.CacheDir).Msg("cache cleared")
	return nil
}

// collectPatterns merges positional patterns with --file contents,
// dropping duplicates while preserving first-seen order.
func collectPatterns(args, files []string) ([]string, error) {
	var patterns []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}

	for _, a := range args {
		add(a)
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading pattern file: %w", err)
		}
		for line := range strings.Lines(string(data)) {
			add(strings.TrimRight(line, "\n"))
		}
	}

	return patterns, nil
}

// matchPatterns expands each pattern against the catalog, deduplicating
// matches while preserving pattern order. Patterns that match nothing
// are returned separately.
func matchPatterns(items []market.Item, patterns []string) (matched []market.Item, notFound []string) {
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches := market.MatchItems(items, pattern)
		if len(matches) == 0 {
			notFound = append(notFound, pattern)
			continue
		}
		for _, m := range matches {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			matched = append(matched, m)
		}
	}
	return matched, notFound
}

// sortItemsByName orders matched items for --list output.
func sortItemsByName(items []market.Item, reverse bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if reverse {
			i, j = j, i
		}
		return items[i].Name < items[j].Name
	})
}
