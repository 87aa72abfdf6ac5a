package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"

	"github.com/masapledge/pledge"
)

type Config struct {
	SiteInfo    SiteInfo    `yaml:"siteInfo"`
	Server      Server      `yaml:"server"`
	Otp         Otp         `yaml:"otp"`
	Certificate Certificate `yaml:"certificate"`
}

type SiteInfo struct {
	FQDN string `yaml:"fqdn"`
	Name string `yaml:"name"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	NatsURL       string `yaml:"natsUrl"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	CatalogPath   string `yaml:"catalogPath"`
}

type Otp struct {
	TTLSeconds      int `yaml:"ttlSeconds"`
	CooldownSeconds int `yaml:"cooldownSeconds"`
	MaxAttempts     int `yaml:"maxAttempts"`
	ProofTTLSeconds int `yaml:"proofTTLSeconds"`

	// TestMode pins the generated code to TestCode so integration environments
	// can verify without a delivery channel. Never enable in production.
	TestMode bool   `yaml:"testMode"`
	TestCode string `yaml:"testCode"`
}

func (o Otp) TTL() time.Duration      { return time.Duration(o.TTLSeconds) * time.Second }
func (o Otp) Cooldown() time.Duration { return time.Duration(o.CooldownSeconds) * time.Second }
func (o Otp) ProofTTL() time.Duration { return time.Duration(o.ProofTTLSeconds) * time.Second }

type Certificate struct {
	// MaxIDRetries bounds ID regeneration on store collision.
	MaxIDRetries int `yaml:"maxIDRetries"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()

	if config.Otp.TestMode && len(config.Otp.TestCode) != 6 {
		return Config{}, fmt.Errorf("testCode must be 6 digits when testMode is enabled")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Otp.TTLSeconds == 0 {
		c.Otp.TTLSeconds = 300
	}
	if c.Otp.CooldownSeconds == 0 {
		c.Otp.CooldownSeconds = 60
	}
	if c.Otp.MaxAttempts == 0 {
		c.Otp.MaxAttempts = 5
	}
	if c.Otp.ProofTTLSeconds == 0 {
		c.Otp.ProofTTLSeconds = 300
	}
	if c.Certificate.MaxIDRetries == 0 {
		c.Certificate.MaxIDRetries = 5
	}
}

// LoadCatalog reads the pledge definition catalog. The catalog is authored by
// the content side of the site; this service only reads it.
func LoadCatalog(path string) ([]pledge.PledgeDefinition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var defs []pledge.PledgeDefinition
	err = yaml.NewDecoder(file).Decode(&defs)
	if err != nil {
		return nil, err
	}

	return defs, nil
}
