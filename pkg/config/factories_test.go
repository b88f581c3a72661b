package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/marmos91/shadowfs/pkg/dicom"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := GetDefaultConfig()
	cfg.Storage.PrimaryRoot = filepath.Join(root, "primary")
	cfg.Storage.ShadowRoot = filepath.Join(root, "shadow")
	cfg.Storage.InitializeFanout = false
	return cfg
}

func TestCreateExtractor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ExtractorConfig
		wantErr string
	}{
		{name: "dicom defaults", cfg: ExtractorConfig{Type: "dicom"}},
		{name: "dicom options", cfg: ExtractorConfig{Type: "dicom", DICOM: map[string]any{"max_bytes": 4096, "skip_pixel_data": false}}},
		{name: "dicom string options", cfg: ExtractorConfig{Type: "dicom", DICOM: map[string]any{"max_bytes": "4096", "skip_pixel_data": "true"}}},
		{name: "none", cfg: ExtractorConfig{Type: "none"}},
		{name: "unknown type", cfg: ExtractorConfig{Type: "nifti"}, wantErr: "unknown extractor type"},
		{name: "unknown option", cfg: ExtractorConfig{Type: "dicom", DICOM: map[string]any{"max_byte": 1}}, wantErr: "max_byte"},
		{name: "negative max", cfg: ExtractorConfig{Type: "dicom", DICOM: map[string]any{"max_bytes": -1}}, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, err := CreateExtractor(&tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateExtractor failed: %v", err)
			}
			if extractor == nil {
				t.Fatal("Expected an extractor")
			}
		})
	}
}

func TestCreateExtractor_None(t *testing.T) {
	extractor, err := CreateExtractor(&ExtractorConfig{Type: "none"})
	if err != nil {
		t.Fatalf("CreateExtractor failed: %v", err)
	}
	if _, ok := extractor.(dicom.Disabled); !ok {
		t.Errorf("Expected dicom.Disabled, got %T", extractor)
	}
}

func TestCreateEngine(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	engine, err := CreateEngine(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("CreateEngine failed: %v", err)
	}

	if err := engine.Put(ctx, "ab12cd34", []byte("payload"), content.KindOpaque); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.PrimaryRoot, "ab", "12", "ab12cd34")); err != nil {
		t.Errorf("Expected primary file: %v", err)
	}
}

func TestCreateEngine_InvalidExtractor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor.Type = "nifti"

	if _, err := CreateEngine(context.Background(), cfg, nil); err == nil {
		t.Fatal("Expected error for unknown extractor")
	}
}

func TestCreateCollector(t *testing.T) {
	cfg := testConfig(t)

	// The collector needs an existing shadow root.
	if _, err := CreateCollector(cfg, nil); err == nil {
		t.Fatal("Expected error before the shadow root exists")
	}

	if _, err := CreateEngine(context.Background(), cfg, nil); err != nil {
		t.Fatalf("CreateEngine failed: %v", err)
	}

	collector, err := CreateCollector(cfg, nil)
	if err != nil {
		t.Fatalf("CreateCollector failed: %v", err)
	}

	stats, err := collector.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if stats.ScannedCount != 0 {
		t.Errorf("Expected empty shadow tree, scanned %d", stats.ScannedCount)
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Metrics.Enabled = false

	result := InitializeMetrics(cfg)
	if result.Server != nil || result.Storage != nil || result.GC != nil {
		t.Errorf("Expected no metrics components, got %+v", result)
	}
}

func TestRootsHealthCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := rootsHealthCheck(dir)(context.Background()); err != nil {
		t.Errorf("Expected healthy root: %v", err)
	}
	if err := rootsHealthCheck(dir, file)(context.Background()); err == nil {
		t.Error("Expected error for a file root")
	}
	if err := rootsHealthCheck(filepath.Join(dir, "missing"))(context.Background()); err == nil {
		t.Error("Expected error for a missing root")
	}
}
