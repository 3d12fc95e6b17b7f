package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestInit_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_ANON_KEY", "")

	var buf bytes.Buffer
	_, err := Init(&buf)
	if err == nil {
		t.Fatal("必須環境変数が未設定でもInitがエラーを返さなかった")
	}
	if !strings.Contains(err.Error(), "BACKEND_URL") {
		t.Errorf("エラーメッセージに不足変数名が含まれない: %v", err)
	}
}

func TestInit_WithValidEnv_LoadsConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://example.supabase.co")
	t.Setenv("BACKEND_ANON_KEY", "anon-key")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Initがエラーを返した: %v", err)
	}
	if cfg.BackendURL != "https://example.supabase.co" {
		t.Errorf("BackendURL = %s", cfg.BackendURL)
	}
}

func TestRun_HealthcheckWithoutServer_ReturnsError(t *testing.T) {
	// 未使用ポートに対するヘルスチェックは接続エラーになる
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err == nil {
		t.Fatal("サーバー不在のヘルスチェックがエラーを返さなかった")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_ANON_KEY", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("必須環境変数が未設定でもRunがエラーを返さなかった")
	}
}
