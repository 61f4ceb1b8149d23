package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/invoicekit/internal/currency"
	invoiceformat "github.com/smallbiznis/invoicekit/internal/invoice/format"
	"github.com/smallbiznis/invoicekit/internal/invoice/render"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TaxRatePolicy decides what the input layer does with tax rates outside 0-100.
type TaxRatePolicy string

const (
	TaxRatePassthrough TaxRatePolicy = "passthrough"
	TaxRateClamp       TaxRatePolicy = "clamp"
	TaxRateReject      TaxRatePolicy = "reject"
)

func (p TaxRatePolicy) Valid() bool {
	switch p {
	case TaxRatePassthrough, TaxRateClamp, TaxRateReject:
		return true
	default:
		return false
	}
}

// InvoiceDefaults seeds new invoices.
type InvoiceDefaults struct {
	Currency         string        `mapstructure:"currency"`
	PaymentTermsDays int           `mapstructure:"paymentTermsDays"`
	Terms            string        `mapstructure:"terms"`
	Notes            string        `mapstructure:"notes"`
	NumberTemplate   string        `mapstructure:"numberTemplate"`
	TaxRatePolicy    TaxRatePolicy `mapstructure:"taxRatePolicy"`
	PrimaryColor     string        `mapstructure:"primaryColor"`
	FontFamily       string        `mapstructure:"fontFamily"`
}

func DefaultInvoiceDefaults() InvoiceDefaults {
	return InvoiceDefaults{
		Currency:         currency.DefaultCode,
		PaymentTermsDays: 30,
		Terms:            "Payment due within 30 days.",
		Notes:            "",
		NumberTemplate:   invoiceformat.DefaultNumberTemplate,
		TaxRatePolicy:    TaxRatePassthrough,
		PrimaryColor:     render.DefaultPrimaryColor,
		FontFamily:       render.DefaultFontFamily,
	}
}

// DefaultsHolder serves the current invoice defaults and swaps them when
// invoice.yml changes on disk.
type DefaultsHolder struct {
	current atomic.Value // holds InvoiceDefaults
}

// NewDefaultsHolder reads invoice.yml from the configured search paths.
// A missing file falls back to DefaultInvoiceDefaults.
func NewDefaultsHolder(cfg Config, log *zap.Logger) (*DefaultsHolder, error) {
	v := viper.New()

	if cfg.DefaultsPath != "" {
		v.SetConfigFile(cfg.DefaultsPath)
	} else {
		v.SetConfigName("invoice")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/invoicekit")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INVOICEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return newDefaultsHolder(v, cfg.WatchDefaults, log)
}

// NewStaticDefaultsHolder returns a holder that never reloads.
func NewStaticDefaultsHolder(defaults InvoiceDefaults) *DefaultsHolder {
	holder := &DefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func newDefaultsHolder(v *viper.Viper, watch bool, log *zap.Logger) (*DefaultsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.defaults")

	setDefaults(v, DefaultInvoiceDefaults())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read invoice defaults: %w", err)
		}
		fileLoaded = false
	}

	cfg, err := decodeDefaults(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDefaultsHolder(cfg)
	if !fileLoaded || !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDefaults(v)
		if err != nil {
			log.Warn("invalid invoice defaults ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("invoice defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DefaultsHolder) Get() InvoiceDefaults {
	return h.current.Load().(InvoiceDefaults)
}

func setDefaults(v *viper.Viper, d InvoiceDefaults) {
	v.SetDefault("invoice.currency", d.Currency)
	v.SetDefault("invoice.paymentTermsDays", d.PaymentTermsDays)
	v.SetDefault("invoice.terms", d.Terms)
	v.SetDefault("invoice.notes", d.Notes)
	v.SetDefault("invoice.numberTemplate", d.NumberTemplate)
	v.SetDefault("invoice.taxRatePolicy", string(d.TaxRatePolicy))
	v.SetDefault("invoice.primaryColor", d.PrimaryColor)
	v.SetDefault("invoice.fontFamily", d.FontFamily)
}

func decodeDefaults(v *viper.Viper) (InvoiceDefaults, error) {
	// Unmarshal walks every leaf key, so file values, env overrides and
	// defaults merge per field.
	var file struct {
		Invoice InvoiceDefaults `mapstructure:"invoice"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return InvoiceDefaults{}, fmt.Errorf("decode invoice defaults: %w", err)
	}
	cfg := file.Invoice
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.TaxRatePolicy = TaxRatePolicy(strings.ToLower(strings.TrimSpace(string(cfg.TaxRatePolicy))))
	if err := validateDefaults(cfg); err != nil {
		return InvoiceDefaults{}, err
	}
	return cfg, nil
}

func validateDefaults(cfg InvoiceDefaults) error {
	if !currency.Supported(cfg.Currency) {
		return fmt.Errorf("invoice.currency %q is not supported", cfg.Currency)
	}
	if cfg.PaymentTermsDays < 0 {
		return errors.New("invoice.paymentTermsDays cannot be negative")
	}
	if err := invoiceformat.ValidateTemplate(cfg.NumberTemplate); err != nil {
		return fmt.Errorf("invoice.numberTemplate: %w", err)
	}
	if !cfg.TaxRatePolicy.Valid() {
		return fmt.Errorf("invoice.taxRatePolicy %q is not one of passthrough, clamp, reject", cfg.TaxRatePolicy)
	}
	return nil
}
