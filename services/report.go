package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/models"
	"github.com/PrabeshSubedi120/nepali-ecommerce-scraper/utils"
)

// ReportService computes price-comparison statistics over an aggregated
// result set.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService with the given logger.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Build computes a comparison report. An empty input yields a zero-valued
// report, never an error, and the input slice is not mutated.
func (s *ReportService) Build(products []models.Product) *models.ComparisonReport {
	report := &models.ComparisonReport{
		Sites:        []string{},
		CountsBySite: make(map[string]int),
	}

	if len(products) == 0 {
		return report
	}

	report.TotalProducts = len(products)

	prices := make([]float64, 0, len(products))
	var total float64
	for _, p := range products {
		prices = append(prices, p.Price)
		total += p.Price
		report.CountsBySite[p.Site]++
	}

	for site := range report.CountsBySite {
		report.Sites = append(report.Sites, site)
	}
	sort.Strings(report.Sites)

	sort.Float64s(prices)
	report.MinPrice = prices[0]
	report.MaxPrice = prices[len(prices)-1]
	report.AvgPrice = total / float64(len(prices))
	report.MedianPrice = median(prices)

	return report
}

// median expects a sorted slice; even counts average the two middle values.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Print renders the report to the terminal.
func (s *ReportService) Print(r *models.ComparisonReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  PRICE COMPARISON REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("  Total products : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Printf("  Sites searched : %s\n\n", strings.Join(r.Sites, ", "))

	fmt.Printf("\033[1;33m  Price Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.TotalProducts == 0 {
		fmt.Printf("  No products found\n\n")
		return
	}
	fmt.Printf("  Lowest  : \033[1;32m%s\033[0m\n", FormatPrice(r.MinPrice))
	fmt.Printf("  Highest : \033[1;31m%s\033[0m\n", FormatPrice(r.MaxPrice))
	fmt.Printf("  Average : %s\n", FormatPrice(r.AvgPrice))
	fmt.Printf("  Median  : %s\n\n", FormatPrice(r.MedianPrice))

	fmt.Printf("\033[1;33m  Products per Site\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, site := range r.Sites {
		count := r.CountsBySite[site]
		bar := strings.Repeat("█", count)
		fmt.Printf("  %-15s %s (%d)\n", site, bar, count)
	}
	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}
