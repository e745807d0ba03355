package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picname/internal/config"
	"picname/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	server     *testsupport.InferenceServer
	configPath string
	imageDir   string
}

func setupCLITestEnv(t *testing.T, answer func(int) (string, int), opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PICNAME_API_KEY", "")

	server := testsupport.NewInferenceServer(t, answer)
	opts = append([]testsupport.ConfigOption{testsupport.WithInferenceURL(server.URL + "/v1/chat/completions")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)

	configPath := filepath.Join(homeDir, ".config", "picname", "config.toml")
	testsupport.WriteConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		server:     server,
		configPath: configPath,
		imageDir:   cfg.Paths.ImageDir,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	fullArgs := append([]string{}, args...)
	if configPath != "" {
		fullArgs = append([]string{"--config", configPath}, fullArgs...)
	}
	cmd.SetArgs(fullArgs)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\nactual output:\n%s", substr, output)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected output not to contain %q\nactual output:\n%s", substr, output)
	}
}
