package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"zigbee-bridge/internal/definitions"
	"zigbee-bridge/internal/device"
	"zigbee-bridge/internal/gateway"
	"zigbee-bridge/internal/store"
	"zigbee-bridge/internal/uart"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Adapter struct {
		Port     string `yaml:"port"`
		Baud     int    `yaml:"baud"`
		IEEE     string `yaml:"ieee"`
		Endpoint uint8  `yaml:"endpoint"`
	} `yaml:"adapter"`
	Web struct {
		Listen string `yaml:"listen"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	DefinitionsDir string `yaml:"definitions_dir"`
}

func (c *Config) validate() error {
	if c.Adapter.Port == "" {
		return fmt.Errorf("adapter.port is required")
	}
	if c.Adapter.IEEE == "" {
		return fmt.Errorf("adapter.ieee is required")
	}
	if _, err := device.ParseIEEE(c.Adapter.IEEE); err != nil {
		return fmt.Errorf("adapter.ieee: %w", err)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zigbee-bridge starting", "version", version)

	registry, err := definitions.NewStandardRegistry(logger)
	if err != nil {
		logger.Error("build definitions", "err", err)
		os.Exit(1)
	}
	if err := registry.LoadLuaDir(cfg.DefinitionsDir); err != nil {
		logger.Error("load lua definitions", "err", err)
		os.Exit(1)
	}
	logger.Info("definitions loaded", "count", len(registry.All()))

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	transport, err := uart.Open(uart.Config{Port: cfg.Adapter.Port, Baud: cfg.Adapter.Baud}, logger)
	if err != nil {
		logger.Error("open adapter", "err", err)
		os.Exit(1)
	}
	defer transport.Close()

	coordIEEE, _ := device.ParseIEEE(cfg.Adapter.IEEE)
	coord := device.BindTarget{IEEE: coordIEEE, Endpoint: cfg.Adapter.Endpoint}

	gw := gateway.New(transport, db, registry, coord, logger)
	if err := gw.Start(); err != nil {
		logger.Error("start gateway", "err", err)
		os.Exit(1)
	}
	defer gw.Stop()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	transport.OnIndication(func(ind *uart.Indication) {
		gw.HandleIndication(rootCtx, ind)
	})

	hub := gateway.NewWSHub(gw, logger)
	go hub.Run()
	defer hub.Stop()

	api := gateway.NewAPIServer(gw, hub, cfg.Web.Listen, logger)
	go func() {
		if err := api.Start(); err != nil {
			logger.Error("http server", "err", err)
		}
	}()
	defer api.Stop()

	var mqtt *gateway.MQTTBridge
	if cfg.MQTT.Enabled {
		mqtt, err = gateway.NewMQTTBridge(gw, gateway.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, logger)
		if err != nil {
			logger.Error("connect mqtt", "err", err)
			os.Exit(1)
		}
		mqtt.Start()
		defer mqtt.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zigbee-bridge.db"
	}
	if cfg.Adapter.Baud == 0 {
		cfg.Adapter.Baud = 115200
	}
	if cfg.Adapter.Endpoint == 0 {
		cfg.Adapter.Endpoint = 1
	}
	if cfg.DefinitionsDir == "" {
		cfg.DefinitionsDir = "definitions"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zigbee-bridge"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
