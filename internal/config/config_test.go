package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BRIDGE_ROBOT_HOST", "nao.local")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RobotHost != "nao.local" {
		t.Errorf("RobotHost = %q, want value from BRIDGE_ROBOT_HOST", cfg.RobotHost)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %s, want %s", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.RobotPort != DefaultRobotPort {
		t.Errorf("RobotPort = %d, want %d", cfg.RobotPort, DefaultRobotPort)
	}
	if cfg.MoveDuration != DefaultMoveDuration {
		t.Errorf("MoveDuration = %s, want %s", cfg.MoveDuration, DefaultMoveDuration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BRIDGE_ROBOT_HOST", "192.168.1.20")
	t.Setenv("BRIDGE_ROBOT_PORT", "8080")
	t.Setenv("BRIDGE_LISTEN_ADDR", ":8000")
	t.Setenv("BRIDGE_COMMAND_TIMEOUT", "10s")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RobotHost != "192.168.1.20" {
		t.Errorf("RobotHost = %s", cfg.RobotHost)
	}
	if cfg.RobotPort != 8080 {
		t.Errorf("RobotPort = %d", cfg.RobotPort)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %s", cfg.ListenAddr)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Errorf("CommandTimeout = %s", cfg.CommandTimeout)
	}
	if got := cfg.RobotAddr(); got != "192.168.1.20:8080" {
		t.Errorf("RobotAddr() = %s", got)
	}
}

func TestNaoIPFallback(t *testing.T) {
	t.Setenv("NAO_IP", "192.168.1.30")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RobotHost != "192.168.1.30" {
		t.Errorf("RobotHost = %s, want NAO_IP fallback", cfg.RobotHost)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	content := "robot_host: nao.example.org\nrobot_port: 9560\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RobotHost != "nao.example.org" {
		t.Errorf("RobotHost = %s", cfg.RobotHost)
	}
	if cfg.RobotPort != 9560 {
		t.Errorf("RobotPort = %d", cfg.RobotPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
}

func TestValidateRejectsMissingHost(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.RobotHost = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted an empty robot host")
	}
}
