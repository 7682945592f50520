package config

import (
	"fmt"
	"os"
	"strconv"

	commoncfg "sleepsense/common/config"

	"gopkg.in/yaml.v3"
)

// Config sleepsense-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	DBMigrate bool                     `yaml:"db_migrate"` // 启动时执行 db/*.sql
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Redis     commoncfg.RedisConfig    `yaml:"redis"`
	MQTT      commoncfg.MQTTConfig     `yaml:"mqtt"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Sleep SleepConfig `yaml:"sleep"`
}

// SleepConfig 睡眠数据相关配置
type SleepConfig struct {
	ImportStrict       bool   `yaml:"import_strict"`        // 严格模式：日期或数值非法时拒绝整批
	SleepDataKeyPrefix string `yaml:"sleep_data_key_prefix"` // 每用户数据 key 前缀
	CurrentSnapshotKey string `yaml:"current_snapshot_key"`  // 最近一次导入的快照 key
	EventStream        string `yaml:"event_stream"`          // sleepDataUpdated 事件流
	EventsEnabled      bool   `yaml:"events_enabled"`
	SeedDemo           bool   `yaml:"seed_demo"` // 新用户首次访问时写入演示数据

	// 消费 EventStream，数据更新后自动归档当天报告（需 EventsEnabled）
	ArchiveOnUpdate bool   `yaml:"archive_on_update"`
	ArchiverGroup   string `yaml:"archiver_group"`
}

// Load 先读环境变量，CONFIG_FILE 指定时再用 YAML 覆盖
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB 不可用时回退到内存归档
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.DBMigrate = getEnv("DB_MIGRATE", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "sleepsense",
		SSLMode:  "disable",
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Sleep.ImportStrict = getEnv("IMPORT_STRICT", "false") == "true"
	cfg.Sleep.SleepDataKeyPrefix = getEnv("SLEEPDATA_KEY_PREFIX", "sleepData_")
	cfg.Sleep.CurrentSnapshotKey = getEnv("CURRENT_SNAPSHOT_KEY", "currentSleepData")
	cfg.Sleep.EventStream = getEnv("EVENT_STREAM", "sleep:data:updated")
	cfg.Sleep.EventsEnabled = getEnv("EVENTS_ENABLED", "true") == "true"
	cfg.Sleep.SeedDemo = getEnv("SEED_DEMO_DATA", "false") == "true"
	cfg.Sleep.ArchiveOnUpdate = getEnv("REPORT_ARCHIVE_ON_UPDATE", "false") == "true"
	cfg.Sleep.ArchiverGroup = getEnv("REPORT_ARCHIVER_GROUP", "sleepsense-archiver")

	// MQTT 导入通道（默认禁用）
	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "sleepsense-data",
		Topic:    "sleepsense/import",
	}
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// overlayFile 只覆盖文件中出现的字段
func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
