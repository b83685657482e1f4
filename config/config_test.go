package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth: AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-testing",
			AccessTokenTTL: 15 * time.Minute,
		},
		Feature: FeatureConfig{MaxCaseload: 30},
		Outbox:  OutboxConfig{BatchSize: 50, MaxAttempts: 5},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("期望校验通过，实际: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("短密钥应校验失败")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("端口越界应校验失败")
	}
}

func TestValidate_CaseloadRequiredWhenEnforced(t *testing.T) {
	cfg := validConfig()
	cfg.Feature.EnforceCaseload = true
	cfg.Feature.MaxCaseload = 0
	if err := cfg.Validate(); err == nil {
		t.Error("启用负载上限但未设置数值应校验失败")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MENTOR_AUTH_JWT_SECRET", "env-secret-key-0123456789")
	t.Setenv("MENTOR_SERVER_PORT", "9090")
	t.Setenv("MENTOR_FEATURE_DEMO_MODE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 Port=9090，实际=%d", cfg.Server.Port)
	}
	if !cfg.Feature.DemoMode {
		t.Error("期望 DemoMode=true")
	}
	if cfg.Outbox.PollInterval != 5*time.Second {
		t.Errorf("期望默认 PollInterval=5s，实际=%v", cfg.Outbox.PollInterval)
	}
}
