// Package config provides configuration for the NAO bridge server.
// Values are read from environment variables (NAO_* / BRIDGE_*) with
// sensible defaults, backed by viper so a config file can override them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults for the bridge server.
const (
	DefaultListenAddr     = ":3000"
	DefaultRobotPort      = 9559
	DefaultConnectTimeout = 5 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultRetention      = 5 * time.Minute
	DefaultMoveDuration   = 1500 * time.Millisecond
	DefaultLogLevel       = "info"
)

// Config holds the bridge server configuration.
type Config struct {
	// ListenAddr is the address the HTTP API listens on.
	ListenAddr string `mapstructure:"listen_addr"`

	// RobotHost is the NAO robot's IP or hostname. Required.
	RobotHost string `mapstructure:"robot_host"`

	// RobotPort is the NAOqi daemon port on the robot.
	RobotPort int `mapstructure:"robot_port"`

	// ConnectTimeout bounds the initial SDK handshake.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// CommandTimeout bounds a single blocking SDK call.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// OperationRetention is how long terminal operations are kept
	// before lazy eviction.
	OperationRetention time.Duration `mapstructure:"operation_retention"`

	// MoveDuration is the default duration for timed movements.
	MoveDuration time.Duration `mapstructure:"move_duration"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the environment and an optional config
// file. Environment variables use the BRIDGE_ prefix (BRIDGE_LISTEN_ADDR,
// BRIDGE_ROBOT_HOST, ...); NAO_IP is honored as a fallback for the robot
// host since the original deployment scripts use it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", DefaultListenAddr)
	// robot_host has no default value but still needs registering: viper's
	// Unmarshal only decodes keys it knows about, and AutomaticEnv alone
	// does not register env-only keys.
	v.SetDefault("robot_host", "")
	v.SetDefault("nao_ip", "")
	v.SetDefault("robot_port", DefaultRobotPort)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)
	v.SetDefault("command_timeout", DefaultCommandTimeout)
	v.SetDefault("operation_retention", DefaultRetention)
	v.SetDefault("move_duration", DefaultMoveDuration)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RobotHost == "" {
		cfg.RobotHost = v.GetString("nao_ip")
	}
	if cfg.RobotHost == "" {
		// Deployment scripts export NAO_IP without the prefix.
		vv := viper.New()
		vv.AutomaticEnv()
		cfg.RobotHost = vv.GetString("NAO_IP")
	}

	return &cfg, nil
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.RobotHost == "" {
		return fmt.Errorf("robot host is required (set BRIDGE_ROBOT_HOST or NAO_IP)")
	}
	if c.RobotPort <= 0 || c.RobotPort > 65535 {
		return fmt.Errorf("invalid robot port %d", c.RobotPort)
	}
	return nil
}

// RobotAddr returns the host:port of the robot daemon.
func (c *Config) RobotAddr() string {
	return fmt.Sprintf("%s:%d", c.RobotHost, c.RobotPort)
}
