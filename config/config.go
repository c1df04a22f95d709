package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DIGISTORE_"

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server settings
type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"` // session cookie signing key
}

// DBConfig database settings
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// AdminConfig protects /admin and /api with HTTP basic auth.
// Auth is disabled unless both Username and PasswordHash are set.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

type AppConfig struct {
	System   SysConfig   `yaml:"system"`
	Web      WebConfig   `yaml:"web"`
	Database DBConfig    `yaml:"database"`
	Logger   LogConfig   `yaml:"logger"`
	Admin    AdminConfig `yaml:"admin"`
}

func (c *AppConfig) GetProductsDir() string {
	return path.Join(c.System.Workdir, "products")
}

// GetPublicDir returns the directory served statically; images live in its products subdir.
func (c *AppConfig) GetPublicDir() string {
	return path.Join(c.System.Workdir, "public")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// InitDirs creates the working directory layout
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetProductsDir(), path.Join(c.GetPublicDir(), "products"), c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

var defaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "DigiStore",
		Location: "UTC",
		Workdir:  "/var/digistore",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   3000,
		Secret: "9b6de5cc-0731-4bf1-zpms-0f568ac9da37",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "digistore",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  50,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/digistore/logs/digistore.log",
	},
}

// DefaultConfig returns a copy of the built-in defaults
func DefaultConfig() *AppConfig {
	cfg := *defaultAppConfig
	return &cfg
}

// LoadConfig reads the YAML file (if present) over the defaults and then applies
// DIGISTORE_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	if cfile == "" {
		cfile = "digistore.yml"
	}
	cfg := DefaultConfig()
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			panic(err)
		}
	}
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvString("SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvString("SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBool("SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvString("WEB_HOST", &cfg.Web.Host)
	setEnvInt("WEB_PORT", &cfg.Web.Port)
	setEnvString("WEB_SECRET", &cfg.Web.Secret)

	setEnvString("DB_TYPE", &cfg.Database.Type)
	setEnvString("DB_HOST", &cfg.Database.Host)
	setEnvInt("DB_PORT", &cfg.Database.Port)
	setEnvString("DB_NAME", &cfg.Database.Name)
	setEnvString("DB_USER", &cfg.Database.User)
	setEnvString("DB_PWD", &cfg.Database.Passwd)
	setEnvBool("DB_DEBUG", &cfg.Database.Debug)

	setEnvString("LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBool("LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvString("ADMIN_USERNAME", &cfg.Admin.Username)
	setEnvString("ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
}

func setEnvString(name string, val *string) {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		*val = v
	}
}

func setEnvInt(name string, val *int) {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvBool(name string, val *bool) {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*val = b
		}
	}
}

func (c AdminConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// Print writes the effective config to stdout as YAML, secrets masked.
func (c *AppConfig) Print() {
	masked := *c
	if masked.Database.Passwd != "" {
		masked.Database.Passwd = "******"
	}
	if masked.Web.Secret != "" {
		masked.Web.Secret = "******"
	}
	bs, err := yaml.Marshal(&masked)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(bs))
}
