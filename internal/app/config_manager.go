package app

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

//go:embed config_schemas.json
var configSchemasData []byte

// ConfigSchema definition of one runtime setting, keyed "category.name"
type ConfigSchema struct {
	Key         string   `json:"key"`
	Type        string   `json:"type"`
	Default     string   `json:"default"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description"`
}

type ConfigSchemasJSON struct {
	Schemas []ConfigSchema `json:"schemas"`
}

var ErrUnknownSetting = errors.New("unknown setting")

// ConfigManager keeps the sys_config table in memory. Reads never touch the
// database; writes go to the table first.
type ConfigManager struct {
	app     *Application
	mu      sync.RWMutex
	values  map[string]string
	schemas map[string]ConfigSchema
}

func NewConfigManager(a *Application) *ConfigManager {
	cm := &ConfigManager{
		app:     a,
		values:  map[string]string{},
		schemas: map[string]ConfigSchema{},
	}
	var data ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &data); err != nil {
		zap.L().Error("failed to load config schemas from JSON", zap.Error(err))
	}
	for _, s := range data.Schemas {
		cm.schemas[s.Key] = s
	}
	cm.Reload()
	return cm
}

// Reload reads every setting from the database
func (cm *ConfigManager) Reload() {
	var rows []domain.SysConfig
	if err := cm.app.gormDB.Find(&rows).Error; err != nil {
		zap.L().Error("failed to load settings", zap.Error(err))
		return
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Type+"."+r.Name] = r.Value
	}
	cm.mu.Lock()
	cm.values = values
	cm.mu.Unlock()
}

// Schemas returns the known settings
func (cm *ConfigManager) Schemas() []ConfigSchema {
	var data ConfigSchemasJSON
	_ = json.Unmarshal(configSchemasData, &data)
	return data.Schemas
}

func (cm *ConfigManager) get(category, key string) string {
	k := category + "." + key
	cm.mu.RLock()
	v, ok := cm.values[k]
	cm.mu.RUnlock()
	if ok {
		return v
	}
	return cm.schemas[k].Default
}

func (cm *ConfigManager) GetString(category, key string) string {
	return cm.get(category, key)
}

func (cm *ConfigManager) GetInt64(category, key string) int64 {
	return cast.ToInt64(cm.get(category, key))
}

func (cm *ConfigManager) GetBool(category, key string) bool {
	return cast.ToBool(cm.get(category, key))
}

// Set stores one setting; the value must fit the schema type and enum
func (cm *ConfigManager) Set(category, key string, value interface{}) error {
	k := category + "." + key
	schema, ok := cm.schemas[k]
	if !ok {
		return errors.Wrap(ErrUnknownSetting, k)
	}
	v, err := normalizeSetting(schema, value)
	if err != nil {
		return err
	}

	db := cm.app.gormDB
	res := db.Model(&domain.SysConfig{}).
		Where("type = ? and name = ?", category, key).
		Updates(map[string]interface{}{"value": v, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Create(&domain.SysConfig{
			ID:     0,
			Type:   category,
			Name:   key,
			Value:  v,
			Remark: schema.Description,
		}).Error; err != nil {
			return err
		}
	}
	cm.mu.Lock()
	cm.values[k] = v
	cm.mu.Unlock()
	zap.L().Info("setting updated", zap.String("key", k), zap.String("value", v))
	return nil
}

func normalizeSetting(schema ConfigSchema, value interface{}) (string, error) {
	switch schema.Type {
	case "int":
		n, err := cast.ToInt64E(value)
		if err != nil {
			return "", errors.Errorf("%s must be an integer", schema.Key)
		}
		return cast.ToString(n), nil
	case "bool":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return "", errors.Errorf("%s must be true or false", schema.Key)
		}
		return cast.ToString(b), nil
	}
	v := strings.TrimSpace(cast.ToString(value))
	if len(schema.Enum) > 0 {
		for _, e := range schema.Enum {
			if e == v {
				return v, nil
			}
		}
		return "", errors.Errorf("%s must be one of [%s]", schema.Key, strings.Join(schema.Enum, " "))
	}
	return v, nil
}
