// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Duration is a time.Duration that reads as "12h" from flags, JSON and YAML.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"12h\": %w", err)
	}
	return d.Set(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.Set(n.Value)
}

// Minio configures the optional bucket that receives exported documents.
type Minio struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Enabled reports whether a MinIO endpoint and bucket are configured.
func (m Minio) Enabled() bool { return m.Endpoint != "" && m.Bucket != "" }

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address" yaml:"address"`

	// DatabaseDSN holds the Postgres connection string.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`

	// Store selects the key-value backend.
	Store string `json:"store" yaml:"store"`

	// StorePath is the file or SQLite database path for local backends.
	StorePath string `json:"store_path" yaml:"store_path"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	// MainAdmin is the name of the administrator with full management rights.
	MainAdmin string `json:"main_admin" yaml:"main_admin"`

	JWTSecret string   `json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  Duration `json:"token_ttl" yaml:"token_ttl"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey  string `json:"tls_key" yaml:"tls_key"`

	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	Minio Minio `json:"minio" yaml:"minio"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	options.register(flag.CommandLine)
}

func (o *Options) register(fs *flag.FlagSet) {
	o.TokenTTL = Duration(12 * time.Hour)
	o.CORSOrigins = []string{"*"}

	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&o.Store, "store", StoreFile, "storage backend: memory, file, postgres or sqlite")
	fs.StringVar(&o.StorePath, "store-path", "", "path of the file or sqlite store")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&o.ExportDir, "export-dir", "exports", "directory receiving exported documents")
	fs.StringVar(&o.MainAdmin, "main-admin", "Akram", "name of the main administrator")
	fs.StringVar(&o.JWTSecret, "jwt-secret", "", "HMAC secret for session tokens")
	fs.Var(&o.TokenTTL, "token-ttl", "session token lifetime")
	fs.StringVar(&o.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&o.TLSKey, "tls-key", "", "TLS key file")
}

// Parse parses the command-line flags, the config file and environment
// variables to set configuration values. It returns a pointer to the Options
// struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := options.load(flag.CommandLine, os.Getenv); err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	if err := options.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return options
}

// load applies, in increasing priority: defaults, config file, flags set on
// the command line, environment variables.
func (o *Options) load(fs *flag.FlagSet, getenv func(string) string) error {
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	if configPath := getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("error while reading config file: %w", err)
			}
			if err := o.decodeFile(o.Config, data); err != nil {
				return fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	for name, value := range explicit {
		if name == "c" || name == "config" {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply flag -%s: %w", name, err)
		}
	}

	return o.applyEnv(getenv)
}

func (o *Options) decodeFile(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, o)
	default:
		return json.Unmarshal(data, o)
	}
}

func (o *Options) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"SERVER_ADDRESS":   &o.Port,
		"DATABASE_DSN":     &o.DatabaseDSN,
		"STORE":            &o.Store,
		"STORE_PATH":       &o.StorePath,
		"LOG_LEVEL":        &o.LogLevel,
		"JWT_SECRET":       &o.JWTSecret,
		"EXPORT_DIR":       &o.ExportDir,
		"MAIN_ADMIN":       &o.MainAdmin,
		"MINIO_ENDPOINT":   &o.Minio.Endpoint,
		"MINIO_ACCESS_KEY": &o.Minio.AccessKey,
		"MINIO_SECRET_KEY": &o.Minio.SecretKey,
		"MINIO_BUCKET":     &o.Minio.Bucket,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		if err := o.TokenTTL.Set(v); err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		o.CORSOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate checks option consistency and fills per-backend defaults.
func (o *Options) Validate() error {
	switch o.Store {
	case StoreMemory:
	case StoreFile:
		if o.StorePath == "" {
			o.StorePath = filepath.Join("data", "sero-est.json")
		}
	case StoreSQLite:
		if o.StorePath == "" {
			o.StorePath = filepath.Join("data", "sero-est.db")
		}
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown store %q", o.Store)
	}
	if o.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	if strings.TrimSpace(o.MainAdmin) == "" {
		return errors.New("main admin name must not be blank")
	}
	return nil
}
