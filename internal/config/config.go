package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Registry holds the connection settings of one back-office registry.
type Registry struct {
	URL    string
	DB     string
	User   string
	APIKey string
}

func (r Registry) missing(prefix string) []string {
	var out []string
	if r.URL == "" {
		out = append(out, prefix+"_URL")
	}
	if r.DB == "" {
		out = append(out, prefix+"_DB")
	}
	if r.User == "" {
		out = append(out, prefix+"_USER")
	}
	if r.APIKey == "" {
		out = append(out, prefix+"_API_KEY")
	}
	return out
}

type Config struct {
	Port    string
	LogMode string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Primary            Registry
	Secondary          Registry
	RegistryTimeout    time.Duration
	RegistrySessionTTL time.Duration
	PartnerLatField    string
	PartnerLonField    string

	RoutingBaseURL string
	RoutingAPIKey  string
	RoutingProfile string
	RoutingTimeout time.Duration

	FreightProductID   int
	FreightProductName string
	FreightPriceUnit   decimal.Decimal

	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	ReconcileLockTTL  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_mode", "release")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	for _, prefix := range []string{"primary_registry", "secondary_registry"} {
		v.SetDefault(prefix+"_url", "")
		v.SetDefault(prefix+"_db", "")
		v.SetDefault(prefix+"_user", "")
		v.SetDefault(prefix+"_api_key", "")
	}
	v.SetDefault("registry_timeout", "20s")
	v.SetDefault("registry_session_ttl", "30m")
	v.SetDefault("partner_lat_field", "latitude")
	v.SetDefault("partner_lon_field", "longitude")

	v.SetDefault("routing_base_url", "https://graphhopper.com/api/1")
	v.SetDefault("routing_api_key", "")
	v.SetDefault("routing_profile", "truck")
	v.SetDefault("routing_timeout", "10s")

	v.SetDefault("freight_product_id", 873)
	v.SetDefault("freight_product_name", "SERVICIO DE FLETE")
	v.SetDefault("freight_price_unit", "1000")

	v.SetDefault("reconcile_enabled", false)
	v.SetDefault("reconcile_interval", "180s")
	v.SetDefault("reconcile_lock_ttl", "2m")
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(v.GetString("freight_price_unit")))
	if err != nil {
		return nil, fmt.Errorf("config: FREIGHT_PRICE_UNIT: %w", err)
	}

	cfg := &Config{
		Port:          v.GetString("port"),
		LogMode:       strings.ToLower(strings.TrimSpace(v.GetString("log_mode"))),
		DatabaseURL:   strings.TrimSpace(v.GetString("database_url")),
		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),

		Primary:            registryFrom(v, "primary_registry"),
		Secondary:          registryFrom(v, "secondary_registry"),
		RegistryTimeout:    v.GetDuration("registry_timeout"),
		RegistrySessionTTL: v.GetDuration("registry_session_ttl"),
		PartnerLatField:    v.GetString("partner_lat_field"),
		PartnerLonField:    v.GetString("partner_lon_field"),

		RoutingBaseURL: strings.TrimSpace(v.GetString("routing_base_url")),
		RoutingAPIKey:  v.GetString("routing_api_key"),
		RoutingProfile: v.GetString("routing_profile"),
		RoutingTimeout: v.GetDuration("routing_timeout"),

		FreightProductID:   v.GetInt("freight_product_id"),
		FreightProductName: strings.TrimSpace(v.GetString("freight_product_name")),
		FreightPriceUnit:   price,

		ReconcileEnabled:  v.GetBool("reconcile_enabled"),
		ReconcileInterval: v.GetDuration("reconcile_interval"),
		ReconcileLockTTL:  v.GetDuration("reconcile_lock_ttl"),
	}
	return cfg, nil
}

func registryFrom(v *viper.Viper, prefix string) Registry {
	return Registry{
		URL:    strings.TrimSpace(v.GetString(prefix + "_url")),
		DB:     strings.TrimSpace(v.GetString(prefix + "_db")),
		User:   strings.TrimSpace(v.GetString(prefix + "_user")),
		APIKey: v.GetString(prefix + "_api_key"),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var missing []string
	missing = append(missing, c.Primary.missing("PRIMARY_REGISTRY")...)
	missing = append(missing, c.Secondary.missing("SECONDARY_REGISTRY")...)
	if c.RoutingBaseURL == "" {
		missing = append(missing, "ROUTING_BASE_URL")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("config: missing %s", strings.Join(missing, ", ")))
	}
	if c.FreightProductName == "" && c.FreightProductID <= 0 {
		errs = append(errs, errors.New("config: FREIGHT_PRODUCT_NAME or FREIGHT_PRODUCT_ID is required"))
	}
	if c.FreightPriceUnit.IsNegative() {
		errs = append(errs, errors.New("config: FREIGHT_PRICE_UNIT must not be negative"))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("config: RECONCILE_INTERVAL must be positive"))
	}
	if c.ReconcileLockTTL <= 0 {
		errs = append(errs, errors.New("config: RECONCILE_LOCK_TTL must be positive"))
	}
	return errors.Join(errs...)
}
