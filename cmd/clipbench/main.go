// Command clipbench runs zero-shot evaluations and manages stored reports
// (run, compare, list, get, delete).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/klejdi94/clipbench/classifier"
	"github.com/klejdi94/clipbench/config"
	"github.com/klejdi94/clipbench/core"
	"github.com/klejdi94/clipbench/dataset"
	"github.com/klejdi94/clipbench/encoder"
	"github.com/klejdi94/clipbench/harness"
	"github.com/klejdi94/clipbench/middleware"
	"github.com/klejdi94/clipbench/render"
	"github.com/klejdi94/clipbench/results"
	"github.com/klejdi94/clipbench/results/s3blob"
)

// storeOptions collects the store selection flags. explicit is set when any
// store flag was passed on the command line, which takes precedence over a
// store: section in a run config.
type storeOptions struct {
	kind        string
	dir         string
	dsn         string
	table       string
	redisAddr   string
	redisPrefix string
	bucket      string
	prefix      string
	explicit    bool
}

func main() {
	var opts storeOptions
	flag.StringVar(&opts.kind, "store", "file", "Results store: memory, file, postgres, redis, s3")
	flag.StringVar(&opts.dir, "dir", ".clipbench", "Report directory (file store)")
	flag.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN when -store postgres (or CLIPBENCH_DSN env)")
	flag.StringVar(&opts.table, "table", "", "Postgres table name when -store postgres")
	flag.StringVar(&opts.redisAddr, "redis", "", "Redis address when -store redis (e.g. localhost:6379, or CLIPBENCH_REDIS env)")
	flag.StringVar(&opts.redisPrefix, "redis-prefix", "clipbench:", "Redis key prefix")
	flag.StringVar(&opts.bucket, "bucket", "", "S3 bucket when -store s3 (or CLIPBENCH_BUCKET env)")
	flag.StringVar(&opts.prefix, "prefix", "", "S3 key prefix when -store s3")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store", "dir", "dsn", "table", "redis", "redis-prefix", "bucket", "prefix":
			opts.explicit = true
		}
	})
	if v := os.Getenv("CLIPBENCH_DSN"); v != "" && opts.dsn == "" {
		opts.dsn = v
	}
	if v := os.Getenv("CLIPBENCH_REDIS"); v != "" && opts.redisAddr == "" {
		opts.redisAddr = v
	}
	if v := os.Getenv("CLIPBENCH_BUCKET"); v != "" && opts.bucket == "" {
		opts.bucket = v
	}

	ctx := context.Background()
	cmd := args[0]
	rest := args[1:]

	// run resolves its store after reading the config, the rest use the flags.
	if cmd == "run" {
		runCmd(ctx, opts, rest)
		return
	}
	store, cleanup, err := openStore(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
	defer cleanup()

	switch cmd {
	case "compare":
		compareCmd(ctx, store, rest)
	case "list":
		listCmd(ctx, store)
	case "get":
		getCmd(ctx, store, rest)
	case "delete":
		deleteCmd(ctx, store, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

// resolveStore merges a run config's store section with the store flags.
// Explicit flags win; otherwise a non-empty store.kind in the config selects
// the backend, falling back to flag values for settings it leaves unset.
func resolveStore(opts storeOptions, sc config.StoreConfig) storeOptions {
	if opts.explicit || sc.Kind == "" {
		return opts
	}
	out := storeOptions{
		kind:        sc.Kind,
		dir:         sc.Path,
		dsn:         sc.DSN,
		table:       opts.table,
		redisAddr:   sc.Addr,
		redisPrefix: sc.Prefix,
		bucket:      sc.Bucket,
		prefix:      sc.Prefix,
	}
	if out.dir == "" {
		out.dir = opts.dir
	}
	if out.dsn == "" {
		out.dsn = opts.dsn
	}
	if out.redisAddr == "" {
		out.redisAddr = opts.redisAddr
	}
	if out.redisPrefix == "" {
		out.redisPrefix = "clipbench:"
	}
	if out.bucket == "" {
		out.bucket = opts.bucket
	}
	return out
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: clipbench [store flags] <command> [args]

Commands:
  run -config <file>          Evaluate a model from a YAML run config
  compare -out <file> <model...>  Compare the latest report of each model
  list                        List stored reports
  get <model> [run-id]        Print a report as JSON (default: latest)
  delete <model> <run-id>     Delete a report

Store: -store memory|file|postgres|redis|s3 (default: file in -dir)
`)
}

func openStore(ctx context.Context, opts storeOptions) (results.Store, func(), error) {
	noop := func() {}
	switch opts.kind {
	case "memory":
		return results.NewMemoryStore(), noop, nil
	case "file":
		s, err := results.NewFileStore(opts.dir)
		return s, noop, err
	case "postgres":
		if opts.dsn == "" {
			return nil, noop, fmt.Errorf("postgres store requires -dsn or CLIPBENCH_DSN")
		}
		db, err := sql.Open("postgres", opts.dsn)
		if err != nil {
			return nil, noop, err
		}
		s, err := results.NewPostgresStore(db, opts.table, true)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return s, func() { db.Close() }, nil
	case "redis":
		if opts.redisAddr == "" {
			return nil, noop, fmt.Errorf("redis store requires -redis or CLIPBENCH_REDIS")
		}
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		return results.NewRedisStore(rdb, opts.redisPrefix), func() { rdb.Close() }, nil
	case "s3":
		if opts.bucket == "" {
			return nil, noop, fmt.Errorf("s3 store requires -bucket or CLIPBENCH_BUCKET")
		}
		blob, err := s3blob.NewFromConfig(ctx, opts.bucket, "")
		if err != nil {
			return nil, noop, err
		}
		return results.NewS3Store(blob, opts.prefix), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store: %s", opts.kind)
	}
}

func runCmd(ctx context.Context, opts storeOptions, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML run config file")
	fs.Parse(args)
	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "run requires -config <file>")
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	store, cleanup, err := openStore(ctx, resolveStore(opts, cfg.Store))
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(1)
	}
	defer cleanup()

	ds, err := openDataset(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dataset:", err)
		os.Exit(1)
	}
	text, image, closeEnc, err := openEncoders(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encoder:", err)
		os.Exit(1)
	}
	defer closeEnc()

	run := &harness.Run{
		Model:         cfg.Model,
		Dataset:       ds,
		Text:          text,
		Image:         image,
		Template:      cfg.Run.Template,
		BatchSize:     cfg.Run.BatchSize,
		Normalization: classifier.Normalization(cfg.Run.Normalization),
		Logf:          log.Printf,
	}
	report, err := run.Execute(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	harness.PrintSummary(os.Stdout, report)

	if err := store.Store(ctx, report); err != nil {
		fmt.Fprintln(os.Stderr, "store report:", err)
		os.Exit(1)
	}
	fmt.Printf("\nstored %s@%s\n", report.Model, report.RunID)

	if cfg.Output.ConfusionChart != "" {
		if err := render.NewHeatmap().Render(report, cfg.Output.ConfusionChart); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", cfg.Output.ConfusionChart)
	}
	if cfg.Output.MetricsChart != "" {
		if err := render.NewMetricsBars().Render(report, cfg.Output.MetricsChart); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", cfg.Output.MetricsChart)
	}
}

func openDataset(ctx context.Context, cfg *config.Config) (dataset.Dataset, error) {
	switch cfg.Dataset.Kind {
	case "manifest":
		return dataset.LoadManifest(cfg.Dataset.Path)
	case "directory":
		return dataset.NewDirectory(cfg.Dataset.Path)
	case "s3":
		blob, err := s3blob.NewFromConfig(ctx, cfg.Dataset.Bucket, "")
		if err != nil {
			return nil, err
		}
		return dataset.LoadBlob(ctx, blob, cfg.Dataset.Manifest)
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", cfg.Dataset.Kind)
	}
}

func openEncoders(cfg *config.Config) (encoder.TextEncoder, encoder.ImageEncoder, func(), error) {
	noop := func() {}
	switch cfg.Encoder.Kind {
	case "onnx":
		tok, err := encoder.LoadVocabTokenizer(cfg.Encoder.Vocab)
		if err != nil {
			return nil, nil, noop, err
		}
		enc, err := encoder.NewONNXEncoder(cfg.Encoder.ImageModel, cfg.Encoder.TextModel, cfg.Encoder.Metadata, tok)
		if err != nil {
			return nil, nil, noop, err
		}
		return enc, enc, enc.Close, nil
	case "openai":
		key := cfg.Encoder.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		oa := encoder.NewOpenAIEncoder(key)
		if cfg.Encoder.ModelName != "" {
			oa.Model = cfg.Encoder.ModelName
		}
		if cfg.Encoder.BaseURL != "" {
			oa.BaseURL = cfg.Encoder.BaseURL
		}
		if cfg.Encoder.Dimension > 0 {
			oa.Dim = cfg.Encoder.Dimension
		}
		text := wrapRemote(oa, cfg)
		image, err := encoder.NewONNXImageEncoder(cfg.Encoder.ImageModel, cfg.Encoder.Metadata)
		if err != nil {
			return nil, nil, noop, err
		}
		return text, image, image.Close, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown encoder kind %q", cfg.Encoder.Kind)
	}
}

// wrapRemote applies the configured middleware to a remote text encoder.
func wrapRemote(e encoder.TextEncoder, cfg *config.Config) encoder.TextEncoder {
	var mws []middleware.Middleware
	if cfg.Encoder.CacheTTL != "" {
		ttl, err := time.ParseDuration(cfg.Encoder.CacheTTL)
		if err != nil {
			log.Printf("bad cache_ttl %q, caching disabled: %v", cfg.Encoder.CacheTTL, err)
		} else {
			mws = append(mws, middleware.CacheMiddleware(middleware.NewInMemoryCache(), ttl))
		}
	}
	if cfg.Encoder.MaxRetries > 0 {
		mws = append(mws, middleware.Retry(cfg.Encoder.MaxRetries, nil))
	}
	return middleware.Chain(e, mws...)
}

func compareCmd(ctx context.Context, store results.Store, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	out := fs.String("out", "comparison.png", "Comparison chart output path")
	fs.Parse(args)
	models := fs.Args()
	if len(models) < 2 {
		fmt.Fprintln(os.Stderr, "compare requires at least two model names")
		os.Exit(1)
	}
	reports := make(map[string]*core.Report, len(models))
	for _, model := range models {
		r, err := store.Latest(ctx, model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", model, err)
			os.Exit(1)
		}
		reports[model] = r
	}
	cmp := harness.Compare(reports)
	fmt.Printf("%-20s %9s %9s %9s %9s\n", "model", "accuracy", "precision", "recall", "f1")
	for i, name := range cmp.Names {
		s := cmp.Summaries[i]
		fmt.Printf("%-20s %9.4f %9.4f %9.4f %9.4f\n", name, s.Accuracy, s.Precision, s.Recall, s.F1)
	}
	if err := render.NewComparisonBars().RenderComparison(cmp, *out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *out)
}

func listCmd(ctx context.Context, store results.Store) {
	reports, err := store.List(ctx, results.Filter{Limit: 500})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, r := range reports {
		fmt.Printf("%s\t%s\t%.4f\t%s\n", r.Model, r.RunID, r.Summary.Accuracy, r.CreatedAt.Format(time.RFC3339))
	}
}

func getCmd(ctx context.Context, store results.Store, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "get requires <model> [run-id]")
		os.Exit(1)
	}
	model := args[0]
	var r *core.Report
	var err error
	if len(args) >= 2 {
		r, err = store.Get(ctx, model, args[1])
	} else {
		r, err = store.Latest(ctx, model)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func deleteCmd(ctx context.Context, store results.Store, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "delete requires <model> <run-id>")
		os.Exit(1)
	}
	if err := store.Delete(ctx, args[0], args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("deleted %s@%s\n", args[0], args[1])
}
