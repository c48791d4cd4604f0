package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/denorm/internal/denorm"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/store"
)

// cycleMarker replaces a container that is already being printed. Plain
// denormalization of a cyclic schema yields such graphs.
var cycleMarker = ir.IRObject{"$cycle": ir.IRBool(true)}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Schema     string
	Root       string
	StoreFile  string
	Database   string
	Value      string
	Memoized   bool
	Persistent bool
	Repeat     int
	Capacity   int

	// IDGenerator overrides the cache identifier source (for testing).
	// If nil, caches use UUIDv7 identifiers.
	IDGenerator denorm.IDGenerator
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Result json.RawMessage    `json:"result"`
	Runs   int                `json:"runs"`
	Reused bool               `json:"reused"`
	Cache  *denorm.CacheStats `json:"cache,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Denormalize a value against an entity store",
		Long: `Denormalize a JSON value against an entity store using a schema.

The store is read from a JSON or YAML file (--store) or from a SQLite
snapshot written by "denorm import" (--db). The result is printed as
canonical JSON; containers reached again while printing a cyclic result
are shown as {"$cycle":true}.

With --repeat N the value is denormalized N times against the same store.
In memoized mode every repeat after the first returns the first result;
"reused" reports whether it did.

Example:
  denorm run --schema library.yaml --store store.json --value 1
  denorm run --schema library.yaml --db library.db --root '[books]' --value '[1,2]' --memoized
  denorm run --schema library.yaml --store store.yaml --value 1 --memoized --repeat 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDenormalize(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to schema document (yaml, json or cue)")
	cmd.Flags().StringVar(&opts.Root, "root", "", "root reference overriding the document root, e.g. '[books]'")
	cmd.Flags().StringVar(&opts.StoreFile, "store", "", "path to entity store file (json or yaml)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite snapshot")
	cmd.Flags().StringVar(&opts.Value, "value", "", "JSON value to denormalize (required)")
	cmd.Flags().BoolVar(&opts.Memoized, "memoized", false, "use the memoized walker")
	cmd.Flags().BoolVar(&opts.Persistent, "persistent", false, "use persistent containers for store and value")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "number of times to denormalize")
	cmd.Flags().IntVar(&opts.Capacity, "cache-capacity", 0, "memo cache slot limit (0 = unbounded)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("value")
	cmd.MarkFlagsMutuallyExclusive("store", "db")
	cmd.MarkFlagsOneRequired("store", "db")

	return cmd
}

func runDenormalize(opts *RunOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger()
	cfg := opts.config()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Repeat < 1 {
		return NewExitError(ExitCommandError, "--repeat must be at least 1")
	}

	node, _, err := LoadSchema(opts.Schema, opts.Root)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	if node == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("schema %s declares no root; pass --root", opts.Schema))
	}

	value, err := ParseValue(opts.Value)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse value", err)
	}

	entities, err := loadEntities(ctx, opts)
	if err != nil {
		return err
	}
	if opts.Persistent {
		entities = ir.Freeze(entities)
		value = ir.Freeze(value)
	}

	memoized := opts.Memoized
	if !cmd.Flags().Changed("memoized") {
		memoized = cfg.Memoized
	}
	capacity := opts.Capacity
	if !cmd.Flags().Changed("cache-capacity") {
		capacity = cfg.Cache.Capacity
	}

	dopts := []denorm.Option{denorm.WithLogger(logger)}
	if memoized {
		cacheOpts := []denorm.CacheOption{denorm.WithCapacity(capacity), denorm.WithCacheLogger(logger)}
		if opts.IDGenerator != nil {
			cacheOpts = append(cacheOpts, denorm.WithIDGenerator(opts.IDGenerator))
		}
		dopts = append(dopts, denorm.WithCache(denorm.NewCache(cacheOpts...)))
	}
	d := denorm.New(dopts...)

	var first ir.IRValue
	reused := true
	for i := 0; i < opts.Repeat; i++ {
		out, err := d.Denormalize(value, entities, node)
		if err != nil {
			code := ErrCodeGeneric
			if denorm.IsSchemaMismatch(err) {
				code = ErrCodeSchemaMismatch
			}
			if opts.Format == "json" {
				_ = formatter.Error(code, err.Error(), nil)
			}
			return WrapExitError(ExitFailure, "denormalization failed", err)
		}
		if i == 0 {
			first = out
		} else if !ir.Same(first, out) {
			reused = false
		}
	}

	data, err := ir.MarshalCanonicalWith(first, ir.CanonicalOptions{CycleMarker: cycleMarker})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode result", err)
	}

	result := RunResult{
		Result: data,
		Runs:   opts.Repeat,
		Reused: opts.Repeat > 1 && reused,
	}
	var cacheID string
	if c := d.Cache(); c != nil {
		stats := c.Stats()
		result.Cache = &stats
		cacheID = c.ID()
		formatter.VerboseLog("cache %s: hits=%d misses=%d stale=%d evictions=%d slots=%d",
			cacheID, stats.Hits, stats.Misses, stats.StaleResets, stats.Evictions, stats.Slots)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{
			Status:  "ok",
			Data:    result,
			CacheID: cacheID,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if opts.Repeat > 1 {
		formatter.VerboseLog("%d runs, reused=%t", opts.Repeat, result.Reused)
	}
	return nil
}

// loadEntities reads the entity store from a file or a SQLite snapshot.
func loadEntities(ctx context.Context, opts *RunOptions) (ir.IRValue, error) {
	if opts.StoreFile != "" {
		entities, err := LoadStoreFile(opts.StoreFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load store", err)
		}
		return entities, nil
	}

	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	entities, err := st.Load(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read database", err)
	}
	opts.logger().Debug("snapshot loaded", "db", opts.Database, "seq", st.Seq())
	return entities, nil
}
