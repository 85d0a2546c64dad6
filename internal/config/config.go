// Package config resolves defaults and environment overrides for emolens commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Window and playback defaults.
const (
	WindowTitle   = "Emotion Recognition"
	DisplayHeight = 600
	CameraDelay   = 20 * time.Millisecond
	VideoDelay    = 15 * time.Millisecond
	DefaultDevice = 0
	WorkerTimeout = 30 * time.Second
	OutputDir     = "output"
)

// Allowed file extensions
var (
	ImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif"}
	VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv"}
)

// PythonBin returns the interpreter used for the FER worker (EMOLENS_PYTHON).
func PythonBin() string {
	return envOr("EMOLENS_PYTHON", "python3")
}

// WorkerScript returns the path of the FER worker script (EMOLENS_WORKER).
func WorkerScript() string {
	return envOr("EMOLENS_WORKER", filepath.Join("python", "worker.py"))
}

// ModelDir returns the directory holding ONNX models (EMOLENS_MODEL_DIR).
func ModelDir() string {
	return envOr("EMOLENS_MODEL_DIR", "models")
}

// ONNXRuntimeLib returns the onnxruntime shared library path (EMOLENS_ORT_LIB).
// Empty means the platform default lookup.
func ONNXRuntimeLib() string {
	return os.Getenv("EMOLENS_ORT_LIB")
}

// DatabaseURL builds the connection string from POSTGRES_* variables.
// Falls back to a local default if none are set.
func DatabaseURL() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return "postgres://localhost:5432/emolens"
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := envOr("POSTGRES_DB", "emolens")
	port := envOr("POSTGRES_PORT", "5432")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// IsImage reports whether path has an allowed image extension.
func IsImage(path string) bool {
	return hasExt(path, ImageExtensions)
}

// IsVideo reports whether path has an allowed video extension.
func IsVideo(path string) bool {
	return hasExt(path, VideoExtensions)
}

func hasExt(path string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
