package config

import "testing"

func TestDatabaseURL(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "")
	if got := DatabaseURL(); got != "postgres://localhost:5432/emolens" {
		t.Errorf("Expected local default, got %s", got)
	}

	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("POSTGRES_PORT", "6543")
	if got := DatabaseURL(); got != "postgres://u:p@db:6543/emolens" {
		t.Errorf("Unexpected URL from env: %s", got)
	}
}

func TestExtensions(t *testing.T) {
	tests := []struct {
		path  string
		image bool
		video bool
	}{
		{"face.JPG", true, false},
		{"/tmp/a.png", true, false},
		{"clip.MoV", false, true},
		{"clip.webm", false, false},
		{"noext", false, false},
	}
	for _, tt := range tests {
		if got := IsImage(tt.path); got != tt.image {
			t.Errorf("IsImage(%q) = %v, want %v", tt.path, got, tt.image)
		}
		if got := IsVideo(tt.path); got != tt.video {
			t.Errorf("IsVideo(%q) = %v, want %v", tt.path, got, tt.video)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EMOLENS_PYTHON", "/opt/venv/bin/python")
	if got := PythonBin(); got != "/opt/venv/bin/python" {
		t.Errorf("Expected override, got %s", got)
	}
	t.Setenv("EMOLENS_MODEL_DIR", "")
	if got := ModelDir(); got != "models" {
		t.Errorf("Expected default model dir, got %s", got)
	}
}
