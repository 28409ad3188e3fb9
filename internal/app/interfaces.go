package app

import (
	"github.com/liderplast/backoffice/config"
	"github.com/liderplast/backoffice/internal/finance"
	"github.com/liderplast/backoffice/internal/fleet"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/sales"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]interface{}) error
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobInfo
	RunJobNow(name string) error
}

// ConfigManagerProvider provides configuration manager access
type ConfigManagerProvider interface {
	ConfigMgr() *ConfigManager
}

// ServiceProvider provides the business services
type ServiceProvider interface {
	Pricing() *pricing.Service
	Sales() *sales.Service
	Fleet() *fleet.Service
	Finance() *finance.Service
	Formatter() *finance.Formatter
}

// ViewCacheProvider provides the rendered view cache
type ViewCacheProvider interface {
	Views() *ViewCache
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	SchedulerProvider
	ConfigManagerProvider
	ServiceProvider
	ViewCacheProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
