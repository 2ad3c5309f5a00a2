// Package config loads application configuration from an optional YAML
// file, environment variables (prefix AGENTFORGE_), and a .env file, with
// documented defaults for every section the application needs.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	Env         string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Execution    ExecutionConfig    `mapstructure:"execution"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	TLSEnabled   bool   `mapstructure:"tls_enabled"`
	TLSCertFile  string `mapstructure:"tls_cert_file"`
	TLSKeyFile   string `mapstructure:"tls_key_file"`
}

// DatabaseConfig holds ArangoDB connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ExecutionConfig bounds the ExecutionEngine's timing behavior.
type ExecutionConfig struct {
	DefaultTimeoutSeconds         int    `mapstructure:"default_timeout_seconds"`
	MaxTimeoutSeconds             int    `mapstructure:"max_timeout_seconds"`
	SubprocessInnerTimeoutSeconds int    `mapstructure:"subprocess_inner_timeout_seconds"`
	PollIntervalSeconds           int    `mapstructure:"poll_interval_seconds"`
	StaleThresholdSeconds         int    `mapstructure:"stale_threshold_seconds"`
	SubprocessBinaryPath          string `mapstructure:"subprocess_binary_path"`
}

// SubprocessBinary returns the configured code-assistant binary path, or
// "claude" when unset.
func (e ExecutionConfig) SubprocessBinary() string {
	if e.SubprocessBinaryPath == "" {
		return "claude"
	}
	return e.SubprocessBinaryPath
}

// OrchestratorConfig holds the default OrchestratorCore.Config values,
// overridable per workflow pattern at creation time.
type OrchestratorConfig struct {
	MaxIterations            int     `mapstructure:"max_iterations"`
	SuccessThreshold         float64 `mapstructure:"success_threshold"`
	CoordinationRounds       int     `mapstructure:"coordination_rounds"`
	AgentsPerTask            int     `mapstructure:"agents_per_task"`
	TimeoutMinutes           int     `mapstructure:"timeout_minutes"`
	EnableAgentCommunication bool    `mapstructure:"enable_agent_communication"`
	PerformanceMonitoring    bool    `mapstructure:"performance_monitoring"`
	AdaptiveOptimization     bool    `mapstructure:"adaptive_optimization"`
}

// Load loads configuration from an optional file, then environment
// variables, falling back to the defaults below when neither is set.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:   "agentforge",
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			TLSEnabled:   false,
		},
		Database: DatabaseConfig{
			Type:     "arangodb",
			Host:     "localhost",
			Port:     8529,
			Database: "agentforge",
			Username: "root",
			SSLMode:  "disable",
		},
		Execution: ExecutionConfig{
			DefaultTimeoutSeconds:         300,
			MaxTimeoutSeconds:             600,
			SubprocessInnerTimeoutSeconds: 60,
			PollIntervalSeconds:           2,
			StaleThresholdSeconds:         3600,
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations:            10,
			SuccessThreshold:         0.85,
			CoordinationRounds:       2,
			AgentsPerTask:            2,
			TimeoutMinutes:           60,
			EnableAgentCommunication: true,
			PerformanceMonitoring:    true,
			AdaptiveOptimization:     true,
		},
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		if filepath.IsAbs(configPath) {
			viper.SetConfigFile(configPath)
		} else {
			viper.AddConfigPath(filepath.Dir(configPath))
			viper.SetConfigName(filepath.Base(configPath[:len(configPath)-len(filepath.Ext(configPath))]))
		}
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/agentforge")

	viper.SetEnvPrefix("AGENTFORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if password := os.Getenv("AGENTFORGE_DATABASE_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if port := os.Getenv("AGENTFORGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dbPort := os.Getenv("AGENTFORGE_DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = p
		}
	}

	return cfg, nil
}

// Environment returns the deployment environment name ("development",
// "production", ...), defaulting to "development" when unset.
func (c *Config) Environment() string {
	if c.Env == "" {
		return "development"
	}
	return c.Env
}
