package main

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// LoanConfig holds the loan product parameters shared by every grid point
type LoanConfig struct {
	Principal        float64 `yaml:"principal" json:"principal"`                 // Amount financed when no LTV axis is configured
	CollateralValue  float64 `yaml:"collateral_value" json:"collateral_value"`   // Base value V0; principal = V0 * ltv when sliced
	TermMonths       int     `yaml:"term_months" json:"term_months"`             // Total term in months (e.g., 75)
	StepMonth        int     `yaml:"step_month" json:"step_month"`               // Month the payment is reamortized (e.g., 37)
	PaymentDecrement float64 `yaml:"payment_decrement" json:"payment_decrement"` // Cut to the standard payment before the step (e.g., 0.15 = 15%)
	DepreciationRate float64 `yaml:"depreciation_rate" json:"depreciation_rate"` // Annual collateral depreciation (e.g., 0.18 = 18%)
}

// LTVConfig holds the optional loan-to-value axis
type LTVConfig struct {
	AxisSpec `yaml:",inline"`
	Default  float64 `yaml:"default" json:"default"` // Layer shown first by reports and the API (e.g., 1.15)
}

// ReportConfig holds console and PDF report options
type ReportConfig struct {
	SampleRates int    `yaml:"sample_rates" json:"sample_rates"` // Number of rate rows shown in summary tables
	Title       string `yaml:"title" json:"title"`
}

// Config holds the complete configuration
type Config struct {
	Loan   LoanConfig   `yaml:"loan" json:"loan"`
	Rates  AxisSpec     `yaml:"rates" json:"rates"`
	LTV    *LTVConfig   `yaml:"ltv,omitempty" json:"ltv,omitempty"`
	Report ReportConfig `yaml:"report" json:"report"`
}

// LoadConfig loads configuration from a YAML file
// It handles percentage format (e.g., "15%" -> 0.15)
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration content
func ParseConfig(data []byte) (*Config, error) {
	content := preprocessPercentages(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	// Add a header comment with instructions
	header := []byte(`# FlexBuy Surface Configuration
# Generated by -init - feel free to edit manually
#
# ═══════════════════════════════════════════════════════════════════════════════
# VALUE FORMATS
# ═══════════════════════════════════════════════════════════════════════════════
#   Percentages: 0.15 = 15% (decimal), or write 15% directly
#   Money: plain numbers (e.g., 35000)
#   Months: integers, step_month must lie within 1..term_months
#
# ═══════════════════════════════════════════════════════════════════════════════
# RUN COMMANDS
# ═══════════════════════════════════════════════════════════════════════════════
#   ./goFlexBuySurface                        Console summary
#   ./goFlexBuySurface -details               Month-by-month schedule at one APR
#   ./goFlexBuySurface -pdf report.pdf        Write the PDF sensitivity report
#   ./goFlexBuySurface -web -addr :8080       Serve surfaces as JSON
#
# Remove the ltv section to compute a single balance/principal/interest layer.

`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// LoadDefaultConfig loads the default configuration from embedded default-config.yaml
func LoadDefaultConfig() (*Config, error) {
	return ParseConfig([]byte(defaultConfigYAML))
}

// preprocessPercentages converts percentage values like "5%" to decimal "0.05"
func preprocessPercentages(content string) string {
	// Match patterns like: key: 5% or key: 3.89%
	re := regexp.MustCompile(`(:\s*)(\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := strconv.ParseFloat(parts[2], 64)
			if err == nil {
				return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
			}
		}
		return match
	})
}

// IsLTVSliced returns true if an LTV axis is configured
func (c *Config) IsLTVSliced() bool {
	return c.LTV != nil
}

// ScenarioTemplate converts the loan section to the assembler's template
func (c *Config) ScenarioTemplate() ScenarioTemplate {
	return ScenarioTemplate{
		Principal:        c.Loan.Principal,
		CollateralValue:  c.Loan.CollateralValue,
		TermMonths:       c.Loan.TermMonths,
		StepMonth:        c.Loan.StepMonth,
		PaymentDecrement: c.Loan.PaymentDecrement,
		DepreciationRate: c.Loan.DepreciationRate,
	}
}

// SurfaceSpec builds the immutable assembler input from the configuration
func (c *Config) SurfaceSpec() SurfaceSpec {
	spec := SurfaceSpec{
		Template: c.ScenarioTemplate(),
		Grid: GridSpec{
			TermMonths: c.Loan.TermMonths,
			Rates:      c.Rates,
		},
	}
	if c.LTV != nil {
		axis := c.LTV.AxisSpec
		spec.Grid.LTVs = &axis
	}
	return spec
}

// Validate checks the configuration before any simulation work starts
func (c *Config) Validate() error {
	if _, err := BuildGrid(c.SurfaceSpec().Grid); err != nil {
		return err
	}

	loan := c.Loan
	if c.IsLTVSliced() {
		if loan.CollateralValue <= 0 {
			return fmt.Errorf("loan.collateral_value: %w: must be positive when ltv is set, got %v",
				ErrInvalidScenario, loan.CollateralValue)
		}
		if c.LTV.Default != 0 && (c.LTV.Default < c.LTV.Min || c.LTV.Default > c.LTV.Max) {
			return fmt.Errorf("ltv.default: %w: %v outside [%v, %v]",
				ErrInvalidRange, c.LTV.Default, c.LTV.Min, c.LTV.Max)
		}
	}

	// Validate the loan itself through the engine's own checks
	ltv := 0.0
	if c.IsLTVSliced() {
		ltv = c.LTV.Min
	}
	if _, err := c.ScenarioTemplate().ScenarioFor(c.Rates.Min, ltv, c.IsLTVSliced()); err != nil {
		return fmt.Errorf("loan: %w", err)
	}
	return nil
}

// DefaultLTV returns the LTV of the layer reports open on
func (c *Config) DefaultLTV() float64 {
	if c.LTV == nil {
		return 0
	}
	if c.LTV.Default != 0 {
		return c.LTV.Default
	}
	return c.LTV.Min
}

// GetSampleRates returns the number of rate rows for summary tables, default 5
func (c *Config) GetSampleRates() int {
	if c.Report.SampleRates <= 0 {
		return 5
	}
	return c.Report.SampleRates
}

// GetTitle returns the report title, derived from the loan when not set
func (c *Config) GetTitle() string {
	if strings.TrimSpace(c.Report.Title) != "" {
		return c.Report.Title
	}
	return fmt.Sprintf("FlexBuy %d-Month Sensitivity (%s Decrement)",
		c.Loan.TermMonths, formatPercent(c.Loan.PaymentDecrement, 0))
}

func formatPercent(rate float64, decimals int) string {
	return strconv.FormatFloat(rate*100, 'f', decimals, 64) + "%"
}
