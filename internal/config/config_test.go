package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "canon.example.com", []string{"canon.example.com"}},
		{"spaces and quotes", ` "a.example", 'b.example' ,, `, []string{"a.example", "b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAndTrim(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitAndTrim() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if !cfg.AutoTransfer {
		t.Error("auto-transfer should be enabled by default")
	}
	if cfg.EnrichTimeout != 10*time.Second {
		t.Errorf("EnrichTimeout = %v, want 10s", cfg.EnrichTimeout)
	}
	if cfg.ArchiveBackend != "none" {
		t.Errorf("ArchiveBackend = %q, want none", cfg.ArchiveBackend)
	}
	if cfg.DBHost != "" || cfg.RedisAddr != "" {
		t.Error("database and redis should be unset by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CANON_LISTEN_PORT", ":9090")
	t.Setenv("CANON_AUTO_TRANSFER", "false")
	t.Setenv("CANON_ARCHIVE_BACKEND", "S3")
	t.Setenv("CANON_S3_BUCKET", "runs")
	t.Setenv("CANON_ALLOWED_CIDRS", "10.0.0.0/8, 127.0.0.1")
	t.Setenv("CANON_TRACE_SAMPLE_RATE", "0.25")

	cfg := Load()

	if cfg.ListenPort != ":9090" || cfg.AutoTransfer {
		t.Errorf("overrides not applied: port=%q auto=%v", cfg.ListenPort, cfg.AutoTransfer)
	}
	if cfg.ArchiveBackend != "s3" || cfg.S3Bucket != "runs" {
		t.Errorf("archive = %q/%q, want s3/runs", cfg.ArchiveBackend, cfg.S3Bucket)
	}
	if len(cfg.AllowedCIDRS) != 2 {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
	if cfg.TraceSampleRate != 0.25 {
		t.Errorf("TraceSampleRate = %v, want 0.25", cfg.TraceSampleRate)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown archive backend", map[string]string{"CANON_ARCHIVE_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"CANON_ARCHIVE_BACKEND": "s3"}},
		{"db without password", map[string]string{"CANON_DB_HOST": "db"}},
		{"zero import interval", map[string]string{"CANON_IMPORT_FILE": "export.yaml", "CANON_IMPORT_INTERVAL": "0s"}},
		{"negative import interval", map[string]string{"CANON_IMPORT_FILE": "export.yaml", "CANON_IMPORT_INTERVAL": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Error("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestLoadIgnoresImportIntervalWithoutFile(t *testing.T) {
	t.Setenv("CANON_IMPORT_INTERVAL", "0s")

	cfg := Load()
	if cfg.ImportFile != "" || cfg.ImportInterval != 0 {
		t.Errorf("got file %q interval %s", cfg.ImportFile, cfg.ImportInterval)
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{DBPassword: "secret", RedisPassword: "secret", S3SecretKey: "secret", S3AccessKeyID: "key"}
	r := cfg.Redacted()

	for _, v := range []string{r.DBPassword, r.RedisPassword, r.S3SecretKey, r.S3AccessKeyID} {
		if v != redacted {
			t.Errorf("secret leaked: %q", v)
		}
	}
	if cfg.DBPassword != "secret" {
		t.Error("Redacted() must not modify the original")
	}
}
