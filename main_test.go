package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrDefault_MissingFileUsesEmbedded(t *testing.T) {
	config, err := loadOrDefault(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("loadOrDefault: %v", err)
	}
	if config.Loan.TermMonths != 75 {
		t.Errorf("expected embedded default config, got term %d", config.Loan.TermMonths)
	}
}

func TestLoadOrDefault_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("loan: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := loadOrDefault(path); err == nil {
		t.Errorf("expected a parse error")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("written config should validate: %v", err)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Errorf("expected refusal to overwrite an existing file")
	}
}

func TestDetailSeries(t *testing.T) {
	config := testConfig(t, true)
	surfaces := mustAssemble(t, config.SurfaceSpec(), AssembleOptions{})

	series, err := detailSeries(config, surfaces, -1)
	if err != nil {
		t.Fatalf("detailSeries: %v", err)
	}
	if series.Scenario.APR != surfaces.Axes.Rates[3] {
		t.Errorf("expected the middle rate %v, got %v", surfaces.Axes.Rates[3], series.Scenario.APR)
	}
	if series.Scenario.Principal != config.Loan.CollateralValue*1.0 {
		t.Errorf("expected the default 100%% LTV principal, got %v", series.Scenario.Principal)
	}

	series, err = detailSeries(config, surfaces, 0.07)
	if err != nil {
		t.Fatalf("detailSeries: %v", err)
	}
	if series.Scenario.APR != 0.07 {
		t.Errorf("expected APR 0.07, got %v", series.Scenario.APR)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FLEXBUY_TEST_VALUE", "custom.yaml")
	if got := envOr("FLEXBUY_TEST_VALUE", "config.yaml"); got != "custom.yaml" {
		t.Errorf("expected env value, got %q", got)
	}
	t.Setenv("FLEXBUY_TEST_VALUE", "")
	if got := envOr("FLEXBUY_TEST_VALUE", "config.yaml"); got != "config.yaml" {
		t.Errorf("expected fallback, got %q", got)
	}
}
