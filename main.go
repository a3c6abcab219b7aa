package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `FlexBuy Step-Rate Amortization Surfaces

Computes how a step-rate car loan evolves across a grid of interest rates
and months. Payments are reduced by a fixed decrement until the step month,
then the remaining balance is reamortized so the loan still pays off at term.
Optionally the grid is sliced by loan-to-value ratio against a depreciating
vehicle to show when the borrower's equity turns positive.

Tracked quantities per month:
  balance, principal (cumulative), interest (cumulative), collateral, equity

Usage:
  %s [options]

Options:
`, os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  %s                           Console summary using config.yaml
  %s -config my.yaml           Use custom configuration file
  %s -init                     Write the default configuration to config.yaml
  %s -details -apr 0.07        Month-by-month schedule at 7%% APR
  %s -pdf report.pdf           Write the PDF sensitivity report
  %s -web -addr :8080          Serve the surfaces as JSON

Environment (also read from .env):
  FLEXBUY_CONFIG   Default for -config
  FLEXBUY_ADDR     Default for -addr

Configuration:
  loan.step_month:         Month the payment is reamortized (1..term_months)
  loan.payment_decrement:  Cut to the standard payment before the step (e.g., 15%%)
  rates.min/max/count:     APR axis
  ltv.min/max/step:        Optional loan-to-value axis; remove it for a single layer
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	}

	// A missing .env is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	// Command line flags
	configFile := flag.String("config", envOr("FLEXBUY_CONFIG", "config.yaml"), "Path to YAML configuration file")
	showDetails := flag.Bool("details", false, "Show the month-by-month schedule for the default layer")
	detailAPR := flag.Float64("apr", -1, "APR for -details, e.g. 0.07 (default: middle of the rate axis)")
	pdfFile := flag.String("pdf", "", "Write the PDF sensitivity report to this file")
	webMode := flag.Bool("web", false, "Start web server mode serving the surfaces as JSON")
	webAddr := flag.String("addr", envOr("FLEXBUY_ADDR", "localhost:0"), "Web server address (for -web mode, use :0 for auto port)")
	initConfig := flag.Bool("init", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *initConfig {
		if err := writeDefaultConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configFile)
		return
	}

	config, err := loadOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, runOptions{
		showDetails: *showDetails,
		detailAPR:   *detailAPR,
		pdfFile:     *pdfFile,
		webMode:     *webMode,
		webAddr:     *webAddr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	showDetails bool
	detailAPR   float64
	pdfFile     string
	webMode     bool
	webAddr     string
}

func run(ctx context.Context, config *Config, opts runOptions) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	PrintHeader(config)

	surfaces, err := AssembleSurfaces(ctx, config.SurfaceSpec(), AssembleOptions{})
	if err != nil {
		return err
	}

	if err := PrintSurfaceSummary(surfaces, config); err != nil {
		return err
	}

	if opts.showDetails {
		series, err := detailSeries(config, surfaces, opts.detailAPR)
		if err != nil {
			return err
		}
		PrintScheduleDetails(series)
	}

	if opts.pdfFile != "" {
		pdfBytes, err := GenerateSurfacePDFReport(config, surfaces)
		if err != nil {
			return fmt.Errorf("generating PDF: %w", err)
		}
		if err := os.WriteFile(opts.pdfFile, pdfBytes, 0644); err != nil {
			return err
		}
		fmt.Printf("\nPDF report written to %s\n", opts.pdfFile)
	}

	if opts.webMode {
		server := NewWebServer(config, surfaces, opts.webAddr)
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
	}
	return nil
}

// detailSeries picks the scenario shown by -details: the default layer at
// the requested APR, or the middle of the rate axis
func detailSeries(config *Config, surfaces *Surfaces, apr float64) (MonthlySeries, error) {
	if apr < 0 {
		rates := surfaces.Axes.Rates
		apr = rates[len(rates)/2]
	}
	s, err := config.ScenarioTemplate().ScenarioFor(apr, config.DefaultLTV(), config.IsLTVSliced())
	if err != nil {
		return MonthlySeries{}, err
	}
	return Simulate(s)
}

// loadOrDefault reads the config file, falling back to the embedded default
// when it does not exist
func loadOrDefault(filename string) (*Config, error) {
	config, err := LoadConfig(filename)
	if err == nil {
		return config, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	fmt.Printf("Config file %s not found, using built-in defaults (run with -init to create it)\n\n", filename)
	return LoadDefaultConfig()
}

func writeDefaultConfig(filename string) error {
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("%s already exists", filename)
	}

	config, err := LoadDefaultConfig()
	if err != nil {
		return err
	}
	return SaveConfig(config, filename)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
