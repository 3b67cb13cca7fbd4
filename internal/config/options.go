package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"valuesift/internal/metrics"
	"valuesift/internal/util"
)

// OptionsFile is the on-disk form of metrics.Options. Dates are
// YYYY-MM-DD strings. Every key is required; a pointer left nil marks a key
// missing from the file.
type OptionsFile struct {
	BuyDate         string   `yaml:"buy_date" validate:"required,datetime=2006-01-02"`
	SellDate        string   `yaml:"sell_date" validate:"required,datetime=2006-01-02"`
	CashFlowsBack   *int     `yaml:"cash_flows_back" validate:"required,gte=0"`
	MaxPERatio      *float32 `yaml:"max_pe_ratio" validate:"required"`
	MaxDebtToEquity *float32 `yaml:"max_debt_to_equity" validate:"required"`
	MinPotentialROI *float32 `yaml:"min_potential_roi" validate:"required"`
	MinMarketCap    *float32 `yaml:"min_market_cap" validate:"required"`
	ReturnPercent   *float32 `yaml:"return_percent" validate:"required"`
	IgnoreCNAVCmp   *bool    `yaml:"ignore_cnav_cmp" validate:"required"`
}

// LoadOptions reads a strategy options file. Unknown keys are rejected and
// the result is verified.
func LoadOptions(path string) (metrics.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metrics.Options{}, err
	}
	return ParseOptions(data)
}

// ParseOptions decodes and verifies strategy options from YAML.
func ParseOptions(data []byte) (metrics.Options, error) {
	var f OptionsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return metrics.Options{}, fmt.Errorf("%w: %v", metrics.ErrInvalidOptions, err)
	}
	if err := validate.Struct(&f); err != nil {
		return metrics.Options{}, fmt.Errorf("%w: %v", metrics.ErrInvalidOptions, err)
	}

	buy, err := util.ParseDate(f.BuyDate)
	if err != nil {
		return metrics.Options{}, fmt.Errorf("%w: buy_date: %v", metrics.ErrInvalidOptions, err)
	}
	sell, err := util.ParseDate(f.SellDate)
	if err != nil {
		return metrics.Options{}, fmt.Errorf("%w: sell_date: %v", metrics.ErrInvalidOptions, err)
	}

	opts := metrics.Options{
		BuyDate:         buy,
		SellDate:        sell,
		CashFlowsBack:   *f.CashFlowsBack,
		MaxPERatio:      *f.MaxPERatio,
		MaxDebtToEquity: *f.MaxDebtToEquity,
		MinPotentialROI: *f.MinPotentialROI,
		MinMarketCap:    *f.MinMarketCap,
		ReturnPercent:   *f.ReturnPercent,
		IgnoreCNAVCmp:   *f.IgnoreCNAVCmp,
	}
	if err := opts.Verify(); err != nil {
		return metrics.Options{}, err
	}
	return opts, nil
}

// MarshalOptions renders opts in the options file format.
func MarshalOptions(opts metrics.Options) ([]byte, error) {
	return yaml.Marshal(OptionsFile{
		BuyDate:         opts.BuyDate.Format(util.DateLayout),
		SellDate:        opts.SellDate.Format(util.DateLayout),
		CashFlowsBack:   &opts.CashFlowsBack,
		MaxPERatio:      &opts.MaxPERatio,
		MaxDebtToEquity: &opts.MaxDebtToEquity,
		MinPotentialROI: &opts.MinPotentialROI,
		MinMarketCap:    &opts.MinMarketCap,
		ReturnPercent:   &opts.ReturnPercent,
		IgnoreCNAVCmp:   &opts.IgnoreCNAVCmp,
	})
}
