package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "memdb needs no data dir",
			config:  Config{Backend: "memdb"},
			wantErr: nil,
		},
		{
			name:    "valid pebble config",
			config:  Config{Backend: "pebble", DataDir: "/tmp/data", LogLevel: "debug"},
			wantErr: nil,
		},
		{
			name:    "negative import workers",
			config:  Config{Backend: "sqlite", ImportWorkers: -1},
			wantErr: ErrImportWorkersInvalid,
		},
		{
			name:    "unknown log level",
			config:  Config{Backend: "sqlite", LogLevel: "chatty"},
			wantErr: ErrLogLevelUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWorkers(t *testing.T) {
	if got := (Config{}).Workers(); got != DefaultImportWorkers {
		t.Errorf("Workers() = %d, want %d", got, DefaultImportWorkers)
	}
	if got := (Config{ImportWorkers: 3}).Workers(); got != 3 {
		t.Errorf("Workers() = %d, want 3", got)
	}
}
