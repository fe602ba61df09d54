package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const envPrefix = "QUANTRUSH_"

type Config struct {
	// Market maker
	ReferencePrice decimal.Decimal `validate:"gt=0"`
	QuoteSize      int64           `validate:"gt=0"`
	Spread         decimal.Decimal `validate:"gte=0"`

	// Injected flow
	InjectOffset decimal.Decimal `validate:"gte=0"`
	InjectSize   int64           `validate:"gt=0"`

	// Driver; Rounds == 0 runs until interrupted.
	Rounds   int           `validate:"gte=0"`
	Interval time.Duration `validate:"gte=0s"`
	Seed     uint64

	// Engine and ops
	SnapshotDepth  int           `validate:"gte=0"`
	ReportInterval time.Duration `validate:"gt=0s"`
	MetricsAddr    string        `validate:"omitempty,hostname_port"`

	// Output
	LogLevel string `validate:"oneof=trace debug info warn error"`
	CSVPath  string
}

func Default() *Config {
	return &Config{
		ReferencePrice: decimal.RequireFromString("100.0"),
		QuoteSize:      10,
		Spread:         decimal.RequireFromString("0.2"),
		InjectOffset:   decimal.RequireFromString("0.1"),
		InjectSize:     5,
		Rounds:         100,
		Interval:       500 * time.Millisecond,
		Seed:           1,
		SnapshotDepth:  10,
		ReportInterval: time.Second,
		LogLevel:       "info",
		CSVPath:        "results/simulation_log.csv",
	}
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error), then applies QUANTRUSH_* variables over Default.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	p := parser{}
	p.dec("REFERENCE_PRICE", &cfg.ReferencePrice)
	p.i64("QUOTE_SIZE", &cfg.QuoteSize)
	p.dec("SPREAD", &cfg.Spread)
	p.dec("INJECT_OFFSET", &cfg.InjectOffset)
	p.i64("INJECT_SIZE", &cfg.InjectSize)
	p.num("ROUNDS", &cfg.Rounds)
	p.dur("INTERVAL", &cfg.Interval)
	p.u64("SEED", &cfg.Seed)
	p.num("SNAPSHOT_DEPTH", &cfg.SnapshotDepth)
	p.dur("REPORT_INTERVAL", &cfg.ReportInterval)
	p.str("METRICS_ADDR", &cfg.MetricsAddr)
	p.str("LOG_LEVEL", &cfg.LogLevel)
	p.str("CSV_PATH", &cfg.CSVPath)
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// decimals are compared by value for gt/gte tags
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type parser struct {
	errs []error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) dec(key string, dst *decimal.Decimal) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = d
}

func (p *parser) i64(key string, dst *int64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) num(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) u64(key string, dst *uint64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) dur(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = d
}
