package app

import (
	"os"
	"runtime/debug"
	"strings"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/liderplast/backoffice/config"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/finance"
	"github.com/liderplast/backoffice/internal/fleet"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/sales"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig     *config.AppConfig
	gormDB        *gorm.DB
	sched         *cron.Cron
	jobTable      map[string]*job
	configManager *ConfigManager
	bus           EventBus.Bus
	views         *ViewCache
	pricing       *pricing.Service
	sales         *sales.Service
	fleet         *fleet.Service
	finance       *finance.Service
	formatter     *finance.Formatter
}

// Ensure Application implements all interfaces
var (
	_ DBProvider            = (*Application)(nil)
	_ ConfigProvider        = (*Application)(nil)
	_ SettingsProvider      = (*Application)(nil)
	_ SchedulerProvider     = (*Application)(nil)
	_ ConfigManagerProvider = (*Application)(nil)
	_ ServiceProvider       = (*Application)(nil)
	_ ViewCacheProvider     = (*Application)(nil)
	_ AppContext            = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle and rebuilds the
// services on top of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.wire()
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	// Ensure database schema is migrated before loading configs
	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.wire()

	// wait for database initialization to complete
	go func() {
		time.Sleep(3 * time.Second)
		a.Seed()
	}()

	a.initJob()
}

// wire builds the configuration manager, the view cache and the services
// over the current database handle
func (a *Application) wire() {
	cfg := a.appConfig
	if cfg == nil {
		cfg = config.DefaultAppConfig
		a.appConfig = cfg
	}
	a.configManager = NewConfigManager(a)
	a.bus = EventBus.New()
	a.views = NewViewCache(cfg.Quote.ViewCacheSize, a.bus)

	a.pricing = pricing.NewService(pricing.NewGormPriceRepository(a.gormDB))
	a.sales = sales.NewService(a.gormDB, a.pricing, a.views)
	a.sales.SetDefaultColor(cfg.Quote.DefaultColor)
	a.fleet = fleet.NewService(a.gormDB, a.views)
	a.fleet.SetLocation(time.Local)
	a.finance = finance.NewService(a.gormDB)
	a.finance.SetLocation(time.Local)
	a.formatter = finance.NewFormatter(cfg.Quote.Locale, cfg.Quote.Currency)
}

// Seed fills the default rows; every check only inserts what is missing
func (a *Application) Seed() {
	a.checkSettings()
	a.checkProvinces()
	a.checkCatalog()
	a.checkPrices()
	a.checkFinanceLookups()
	a.applySettings()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	if track {
		if err := a.gormDB.Debug().Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	} else {
		if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
			zap.S().Error(err)
		}
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// ConfigMgr returns the configuration manager
func (a *Application) ConfigMgr() *ConfigManager {
	return a.configManager
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Pricing() *pricing.Service {
	return a.pricing
}

func (a *Application) Sales() *sales.Service {
	return a.sales
}

func (a *Application) Fleet() *fleet.Service {
	return a.fleet
}

func (a *Application) Finance() *finance.Service {
	return a.finance
}

// Formatter renders currency amounts in the configured locale
func (a *Application) Formatter() *finance.Formatter {
	return a.formatter
}

// Views returns the rendered view cache
func (a *Application) Views() *ViewCache {
	return a.views
}

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	return a.configManager.GetString(category, key)
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return a.configManager.GetInt64(category, key)
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return a.configManager.GetBool(category, key)
}

// SaveSettings stores "category.name" keyed values. Nothing is written when
// any key is unknown or any value does not fit its schema.
func (a *Application) SaveSettings(settings map[string]interface{}) error {
	for key, value := range settings {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			return errors.Wrap(ErrUnknownSetting, key)
		}
		schema, ok := a.configManager.schemas[key]
		if !ok {
			return errors.Wrap(ErrUnknownSetting, key)
		}
		if _, err := normalizeSetting(schema, value); err != nil {
			return err
		}
	}
	for key, value := range settings {
		parts := strings.SplitN(key, ".", 2)
		if err := a.configManager.Set(parts[0], parts[1], value); err != nil {
			return err
		}
	}
	a.applySettings()
	return nil
}

// applySettings pushes runtime settings into the services
func (a *Application) applySettings() {
	if color := a.configManager.GetString("quote", "default_color"); color != "" {
		a.sales.SetDefaultColor(color)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	_ = zap.L().Sync()
}
