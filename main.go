package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/api"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/config"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/scraper"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/scraper/daraz"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/scraper/sastodeal"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/services"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/storage"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

type app struct {
	cfg        *config.Config
	logger     *utils.Logger
	aggregator *services.Aggregator
	persister  *services.Persister
	reports    *services.ReportService
	store      storage.ProductStore
}

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Nepali E-commerce Price Tracker ===")

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	registry := scraper.NewRegistry(
		daraz.New(cfg, logger),
		sastodeal.New(cfg, logger),
	)
	defer registry.Close()

	a := &app{
		cfg:    cfg,
		logger: logger,
		aggregator: services.NewAggregator(registry, logger,
			time.Duration(cfg.ScrapeDelayMs)*time.Millisecond, cfg.MaxParallelSites),
		persister: services.NewPersister(store, logger),
		reports:   services.NewReportService(logger),
		store:     store,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]
	command := ""
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "search":
		a.runSearch(ctx, args[1:])
	case "compare":
		a.runCompare(ctx, args[1:])
	case "serve":
		a.runServe()
	default:
		a.runInteractive(ctx)
	}
}

// runSearch aggregates listings for a query, persists them and prints the
// cheapest finds, optionally exporting the whole set to CSV.
func (a *app) runSearch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	output := fs.String("o", a.cfg.CSVOutputPath, "CSV output path (empty to skip export)")
	_ = fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if query == "" {
		fmt.Println("usage: pricetracker search [-o out.csv] <query>")
		os.Exit(2)
	}

	products := a.collect(ctx, query)
	if len(products) == 0 {
		fmt.Println("No products found!")
		return
	}

	fmt.Printf("\nFound %d products — cheapest first:\n", len(products))
	fmt.Println(strings.Repeat("=", 70))
	for i, p := range products {
		if i >= 10 {
			break
		}
		fmt.Printf("%2d. %s\n", i+1, p.Name)
		fmt.Printf("    %s | %s\n    %s\n", services.FormatPrice(p.Price), p.Site, p.URL)
	}

	if *output != "" {
		a.exportCSV(*output, products)
	}
}

// runCompare aggregates listings for a query and prints the comparison
// report.
func (a *app) runCompare(ctx context.Context, args []string) {
	query := strings.Join(args, " ")
	if query == "" {
		fmt.Println("usage: pricetracker compare <query>")
		os.Exit(2)
	}

	products := a.collect(ctx, query)
	a.reports.Print(a.reports.Build(products))
}

// runServe starts the HTTP API.
func (a *app) runServe() {
	server := api.NewServer(a.aggregator, a.persister, a.reports, a.store, a.logger)
	if err := server.ListenAndServe(a.cfg.APIListenAddr); err != nil {
		a.logger.Error("API server stopped: %v", err)
		os.Exit(1)
	}
}

// runInteractive prompts for queries until "quit".
func (a *app) runInteractive(ctx context.Context) {
	fmt.Println("Electronics Price Tracker — interactive mode (type 'quit' to exit)")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("\nEnter product to search: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "quit") {
			return
		}

		products := a.collect(ctx, query)
		if len(products) == 0 {
			fmt.Println("No products found!")
			continue
		}

		fmt.Printf("\nBest deals for %q:\n", query)
		for i, p := range products {
			if i >= 5 {
				break
			}
			fmt.Printf("%d. %s\n   %s | %s\n", i+1, p.Name, services.FormatPrice(p.Price), p.Site)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// collect runs the aggregation and persists whatever came back. Persistence
// errors are reported but do not discard the scraped results.
func (a *app) collect(ctx context.Context, query string) []models.Product {
	products := a.aggregator.Aggregate(ctx, query)
	if len(products) == 0 {
		return nil
	}

	if _, err := a.persister.Persist(ctx, products); err != nil {
		a.logger.Error("Could not store results: %v", err)
	}
	return products
}

func (a *app) exportCSV(path string, products []models.Product) {
	writer, err := storage.NewCSVWriter(path)
	if err != nil {
		a.logger.Error("CSV export failed: %v", err)
		return
	}
	defer writer.Close()

	if err := writer.WriteProducts(products); err != nil {
		a.logger.Error("CSV export failed: %v", err)
		return
	}
	fmt.Printf("Results saved to %s\n", path)
}
