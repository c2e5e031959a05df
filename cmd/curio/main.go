package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkarjala/curio/internal/appraisal"
	"github.com/mkarjala/curio/internal/config"
	"github.com/mkarjala/curio/internal/embedding"
	"github.com/mkarjala/curio/internal/identity"
	"github.com/mkarjala/curio/internal/imaging"
	"github.com/mkarjala/curio/internal/inventory"
	"github.com/mkarjala/curio/internal/llm"
	"github.com/mkarjala/curio/internal/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: curio <command> [args]

commands:
  appraise <file>...  analyze photos and add them to the inventory
  list                show the inventory
  bundles             suggest bundles across the inventory
  similar <file>      find inventory items similar to a photo
`)
	os.Exit(2)
}

func fatal(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]
	args := os.Args[2:]

	config.LoadEnvFile()
	if missing := config.CheckRequired(); len(missing) > 0 {
		fatal("missing required config: %s", strings.Join(missing, ", "))
	}
	cfg := config.Load()

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DeriveKey(cfg.ImageKey))
	if err != nil {
		fatal("failed to initialize inventory store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("inventory store initialized")

	invoker, err := llm.NewGeminiInvoker(ctx)
	if err != nil {
		fatal("failed to initialize gemini invoker: %v", err)
	}
	analyzer := appraisal.NewAnalyzer(invoker)
	appraiser := appraisal.NewCachedAppraiser(analyzer, store)

	switch command {
	case "appraise":
		if len(args) == 0 {
			usage()
		}
		runAppraise(ctx, cfg, store, appraiser, args)
	case "list":
		runList(store)
	case "bundles":
		runBundles(ctx, store, analyzer)
	case "similar":
		if len(args) != 1 {
			usage()
		}
		runSimilar(ctx, appraiser, args[0])
	default:
		usage()
	}
}

func runAppraise(ctx context.Context, cfg config.Config, store *storage.SQLiteStore, appraiser appraisal.Appraiser, files []string) {
	provider := identity.NewProvider(store, cfg.TokenSecret)
	claims, err := provider.EstablishSession(ctx)
	if err != nil {
		fatal("failed to establish session: %v", err)
	}

	session := inventory.NewSession(claims.PrincipalID, appraiser, store, func(message string) {
		fmt.Fprintln(os.Stderr, message)
	})
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go session.Watch(watchCtx)

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fatal("failed to open %s: %v", path, err)
		}
		err = session.Submit(ctx, f)
		f.Close()
		if err != nil {
			fatal("failed to appraise %s: %v", path, err)
		}
		fmt.Printf("appraised %s\n", path)
	}
}

func runList(store *storage.SQLiteStore) {
	items, err := store.GetAll()
	if err != nil {
		fatal("failed to load inventory: %v", err)
	}
	if len(items) == 0 {
		fmt.Println("inventory is empty")
		return
	}
	for _, item := range items {
		r := item.Appraisal
		fmt.Printf("%s  %s (%s - %s)  [%s]\n",
			item.CreatedAt.Format("2006-01-02"),
			r.DescriptiveName,
			r.EstimatedValueRange.Low,
			r.EstimatedValueRange.High,
			strings.Join(r.Tags, ", "))
	}
}

func runBundles(ctx context.Context, store *storage.SQLiteStore, analyzer *appraisal.Analyzer) {
	items, err := store.GetAll()
	if err != nil {
		fatal("failed to load inventory: %v", err)
	}
	records := make([]appraisal.Record, 0, len(items))
	for _, item := range items {
		records = append(records, item.Appraisal)
	}

	bundles, err := analyzer.SuggestBundles(ctx, records)
	if err != nil {
		fatal("failed to suggest bundles: %v", err)
	}
	if len(bundles) == 0 {
		fmt.Println("not enough items for bundle suggestions")
		return
	}
	for _, b := range bundles {
		fmt.Printf("%s\n  %s\n  items: %s\n", b.BundleName, b.Description, strings.Join(b.ItemNames, ", "))
	}
}

func runSimilar(ctx context.Context, appraiser appraisal.Appraiser, path string) {
	f, err := os.Open(path)
	if err != nil {
		fatal("failed to open %s: %v", path, err)
	}
	defer f.Close()

	img, err := imaging.Process(f)
	if err != nil {
		fatal("failed to process %s: %v", path, err)
	}

	record, err := appraiser.Appraise(ctx, img)
	if err != nil {
		fatal("failed to appraise %s: %v", path, err)
	}
	metadata, err := json.Marshal(record)
	if err != nil {
		fatal("failed to marshal appraisal: %v", err)
	}

	embedder, err := embedding.NewGeminiEmbedder(ctx)
	if err != nil {
		fatal("failed to initialize embedder: %v", err)
	}
	result, err := embedding.Generate(ctx, embedder, img, string(metadata))
	if err != nil {
		fatal("failed to generate embeddings: %v", err)
	}

	similar := embedding.FindSimilar(ctx, result.ImageEmbedding, result.MetadataEmbedding, "")
	if len(similar) == 0 {
		fmt.Println("no similar items found")
		return
	}
	for _, id := range similar {
		fmt.Println(id)
	}
}
