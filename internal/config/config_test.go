package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/relcsv/internal/schema"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: ""},
		{name: "full", input: `
out_dir: out
compress: true
manifest: true
shape_policy: shape+origin
fk_policy: name
max_schemas: 0
parent_column: owner
seq_column: position
log_level: debug
log_format: json
`},
		{name: "unknown key", input: "outdir: x\n", wantErr: "field outdir not found"},
		{name: "bad policy", input: "shape_policy: loose\n", wantErr: "invalid shape policy"},
		{name: "bad fk policy", input: "fk_policy: last\n", wantErr: "invalid foreign key policy"},
		{name: "negative limit", input: "max_schemas: -1\n", wantErr: "invalid max_schemas"},
		{name: "bad level", input: "log_level: chatty\n", wantErr: "invalid log level"},
		{name: "same link columns", input: "parent_column: x\nseq_column: x\n", wantErr: "link column names collide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	cfg, err := Decode(strings.NewReader("shape_policy: shape+origin\nfk_policy: name\nmax_schemas: 0\n"))
	if err != nil {
		t.Fatal(err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if reg.MaxSchemas != 0 {
		t.Errorf("Expected explicit zero limit, got %d", reg.MaxSchemas)
	}
	if reg.ShapePolicy != schema.ShapeAndOrigin {
		t.Errorf("Expected shape+origin, got %s", reg.ShapePolicy)
	}
	if reg.FKPolicy != schema.NameMatch {
		t.Errorf("Expected name policy, got %s", reg.FKPolicy)
	}

	empty, err := (&Config{}).Registry()
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if empty != schema.DefaultConfig() {
		t.Errorf("Expected defaults for an empty config, got %+v", empty)
	}

	if _, err := (&Config{FKPolicy: "last"}).Registry(); err == nil {
		t.Error("Expected error for an invalid policy")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relcsv.yaml")
	if err := os.WriteFile(path, []byte("out_dir: tables\ncompress: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutDir != "tables" || !cfg.Compress {
		t.Errorf("Unexpected config %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
