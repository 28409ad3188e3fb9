package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server configuration
type WebConfig struct {
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port"`
	Secret    string   `yaml:"secret"`
	AllowCors []string `yaml:"allow_cors"`
	RateLimit float64  `yaml:"rate_limit"` // requests per second per client, 0 disables
}

// LogConfig Logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// QuoteConfig quote engine defaults
type QuoteConfig struct {
	Currency      string   `yaml:"currency"`
	Locale        string   `yaml:"locale"`
	DefaultColor  string   `yaml:"default_color"`
	Colors        []string `yaml:"colors"`
	ViewCacheSize int      `yaml:"view_cache_size"`
}

type AppConfig struct {
	System   SysConfig   `yaml:"system"`
	Web      WebConfig   `yaml:"web"`
	Database DBConfig    `yaml:"database"`
	Logger   LogConfig   `yaml:"logger"`
	Quote    QuoteConfig `yaml:"quote"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o700)
	_ = os.MkdirAll(c.GetDataDir(), 0o700)
	_ = os.MkdirAll(c.GetBackupDir(), 0o700)
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvInt64Value(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := cast.ToIntE(evalue)
	if err == nil {
		*val = p
	}
}

func setEnvFloatValue(name string, val *float64) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := cast.ToFloat64E(evalue)
	if err == nil {
		*val = p
	}
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Backoffice",
		Location: "America/Argentina/Cordoba",
		Workdir:  "/var/backoffice",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-0731-4b8a-9c01-8b4d1e3a2f10",
		AllowCors: []string{"*"},
		RateLimit: 20,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "backoffice",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/backoffice/backoffice.log",
	},
	Quote: QuoteConfig{
		Currency:      "ARS",
		Locale:        "es-AR",
		DefaultColor:  "Celeste",
		Colors:        []string{"Celeste", "Blanco", "Arena"},
		ViewCacheSize: 256,
	},
}

// LoadConfig reads the yaml config file, falling back to the defaults when
// the file is missing, then applies BACKOFFICE_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	// Configuration file loading priority
	if cfile == "" {
		cfile = "backoffice.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/backoffice.yml"
	}
	cfg := new(AppConfig)
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			panic(err)
		}
	} else {
		*cfg = *DefaultAppConfig
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyEnv() {
	setEnvValue("BACKOFFICE_SYSTEM_WORKER_DIR", &c.System.Workdir)
	setEnvValue("BACKOFFICE_SYSTEM_LOCATION", &c.System.Location)
	setEnvBoolValue("BACKOFFICE_SYSTEM_DEBUG", &c.System.Debug)

	setEnvValue("BACKOFFICE_WEB_HOST", &c.Web.Host)
	setEnvValue("BACKOFFICE_WEB_SECRET", &c.Web.Secret)
	setEnvInt64Value("BACKOFFICE_WEB_PORT", &c.Web.Port)
	setEnvFloatValue("BACKOFFICE_WEB_RATE_LIMIT", &c.Web.RateLimit)
	if cors := os.Getenv("BACKOFFICE_WEB_ALLOW_CORS"); cors != "" {
		c.Web.AllowCors = strings.Split(cors, ",")
	}

	setEnvValue("BACKOFFICE_DB_TYPE", &c.Database.Type)
	setEnvValue("BACKOFFICE_DB_HOST", &c.Database.Host)
	setEnvValue("BACKOFFICE_DB_NAME", &c.Database.Name)
	setEnvValue("BACKOFFICE_DB_USER", &c.Database.User)
	setEnvValue("BACKOFFICE_DB_PWD", &c.Database.Passwd)
	setEnvInt64Value("BACKOFFICE_DB_PORT", &c.Database.Port)
	setEnvBoolValue("BACKOFFICE_DB_DEBUG", &c.Database.Debug)

	setEnvValue("BACKOFFICE_LOGGER_MODE", &c.Logger.Mode)
	setEnvBoolValue("BACKOFFICE_LOGGER_FILE_ENABLE", &c.Logger.FileEnable)
}

func (c *AppConfig) applyDefaults() {
	if c.Database.Type == "" {
		c.Database.Type = DefaultAppConfig.Database.Type
	}
	if c.System.Location == "" {
		c.System.Location = DefaultAppConfig.System.Location
	}
	if c.Quote.Currency == "" {
		c.Quote.Currency = DefaultAppConfig.Quote.Currency
	}
	if c.Quote.Locale == "" {
		c.Quote.Locale = DefaultAppConfig.Quote.Locale
	}
	if len(c.Quote.Colors) == 0 {
		c.Quote.Colors = DefaultAppConfig.Quote.Colors
	}
	if c.Quote.DefaultColor == "" {
		c.Quote.DefaultColor = c.Quote.Colors[0]
	}
	if c.Quote.ViewCacheSize <= 0 {
		c.Quote.ViewCacheSize = DefaultAppConfig.Quote.ViewCacheSize
	}
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	return err == nil && !info.IsDir()
}
