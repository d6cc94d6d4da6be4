package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/spore/internal/signer"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Signer struct {
		PublicKeyPath  string `yaml:"public_key_path"`
		PrivateKeyPath string `yaml:"private_key_path"`
		Algorithm      string `yaml:"algorithm"` // rsa-sha1 | rsa-sha256 | ed25519
		SignField      string `yaml:"sign_field"`
		Mode           string `yaml:"mode"`       // record | fields
		Workers        int    `yaml:"workers"`    // batch signing; 0 => GOMAXPROCS
		CacheKeys      bool   `yaml:"cache_keys"` // comparte lecturas entre signers del proceso
	} `yaml:"signer"`
}

// Load lee config.yaml, aplica defaults, overrides por env y valida.
// Paths relativos de claves se resuelven contra el directorio del YAML.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	c.Signer.PublicKeyPath = resolve(base, c.Signer.PublicKeyPath)
	c.Signer.PrivateKeyPath = resolve(base, c.Signer.PrivateKeyPath)

	return c.finish()
}

// FromEnv arma la config sólo con defaults + variables de entorno.
func FromEnv() (*Config, error) {
	var c Config
	return c.finish()
}

func (c *Config) finish() (*Config, error) {
	c.applyEnvOverrides()
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) defaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Signer.Algorithm == "" {
		c.Signer.Algorithm = signer.DefaultAlgorithm
	}
	if c.Signer.SignField == "" {
		c.Signer.SignField = signer.DefaultSignField
	}
	if c.Signer.Mode == "" {
		c.Signer.Mode = "record"
	}
}

// Validate chequea valores que no tienen sentido antes de tocar claves.
func (c *Config) Validate() error {
	var errs []error
	if _, err := signer.LookupScheme(c.Signer.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if _, err := signer.ParseMode(c.Signer.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Signer.Workers < 0 {
		errs = append(errs, fmt.Errorf("signer.workers must be >= 0, got %d", c.Signer.Workers))
	}
	p, q := strings.TrimSpace(c.Signer.PublicKeyPath), strings.TrimSpace(c.Signer.PrivateKeyPath)
	if p != "" && p == q {
		errs = append(errs, errors.New("signer.public_key_path and signer.private_key_path must differ"))
	}
	return errors.Join(errs...)
}

// SignerConfig traduce a la config del paquete signer.
func (c *Config) SignerConfig() signer.Config {
	return signer.Config{
		PublicKeyPath:  c.Signer.PublicKeyPath,
		PrivateKeyPath: c.Signer.PrivateKeyPath,
		Algorithm:      c.Signer.Algorithm,
		SignField:      c.Signer.SignField,
	}
}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: el entorno pisa lo que venga del YAML.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("SPORE_PUBLIC_KEY_PATH"); ok {
		c.Signer.PublicKeyPath = v
	}
	if v, ok := getEnvStr("SPORE_PRIVATE_KEY_PATH"); ok {
		c.Signer.PrivateKeyPath = v
	}
	if v, ok := getEnvStr("SPORE_ALGORITHM"); ok {
		c.Signer.Algorithm = v
	}
	if v, ok := getEnvStr("SPORE_SIGN_FIELD"); ok {
		c.Signer.SignField = v
	}
	if v, ok := getEnvStr("SPORE_MODE"); ok {
		c.Signer.Mode = strings.ToLower(v)
	}
	if v, ok := getEnvInt("SPORE_WORKERS"); ok {
		c.Signer.Workers = v
	}
	if v, ok := getEnvBool("SPORE_CACHE_KEYS"); ok {
		c.Signer.CacheKeys = v
	}
}
