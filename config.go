package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 8080
	defaultQuoteDBDriver = "sqlite"
	defaultQuoteDB       = "cashu-pos.db"
)

type Config struct {
	// API settings
	Port int `yaml:"port" envconfig:"PORT"`

	// PaymentURL is the public URL of the /payment route, baked into every
	// payment request as its transport target.
	PaymentURL string `yaml:"payment_url" envconfig:"PAYMENT_URL"`

	// Quote store settings. Driver is "sqlite" or "postgres"; QuoteDB is a
	// file path or a connection string accordingly.
	QuoteDBDriver string `yaml:"quote_db_driver" envconfig:"QUOTE_DB_DRIVER"`
	QuoteDB       string `yaml:"quote_db" envconfig:"QUOTE_DB"`

	// AcceptedMints is the allow-list of mints payments may come from.
	AcceptedMints []string `yaml:"accepted_mints" envconfig:"ACCEPTED_MINTS"`
}

// Load Config from a yaml file at path.
func (c *Config) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return err
	}

	c.applyDefaults()
	return c.validate()
}

// Load Config from the environment.
func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return err
	}

	c.applyDefaults()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.QuoteDBDriver == "" {
		c.QuoteDBDriver = defaultQuoteDBDriver
	}
	if c.QuoteDB == "" {
		c.QuoteDB = defaultQuoteDB
	}
}

func (c *Config) validate() error {
	if c.PaymentURL == "" {
		return fmt.Errorf("must set payment_url")
	}
	if len(c.AcceptedMints) == 0 {
		return fmt.Errorf("must set at least one accepted mint")
	}
	if c.QuoteDBDriver != "sqlite" && c.QuoteDBDriver != "postgres" {
		return fmt.Errorf("unknown quote_db_driver %q. must be 'sqlite' or 'postgres'", c.QuoteDBDriver)
	}
	return nil
}
