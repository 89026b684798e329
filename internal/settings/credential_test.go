package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/statement-insights/internal/kvstore"
)

// MockKV is a mock implementation of kvstore.Store for testing.
type MockKV struct {
	GetFunc func(ctx context.Context, key string) ([]byte, error)
	PutFunc func(ctx context.Context, key string, value []byte) error
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	return m.GetFunc(ctx, key)
}

func (m *MockKV) Put(ctx context.Context, key string, value []byte) error {
	return m.PutFunc(ctx, key, value)
}

func (m *MockKV) Close() error { return nil }

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"AIzaSyA1234567890", false},
		{"AIza", false},
		{"", true},
		{"   ", true},
		{"sk-ant-123", true},
		{"aiza-lowercase", true},
	}

	for _, tt := range tests {
		err := ValidateAPIKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidCredential) {
			t.Errorf("ValidateAPIKey(%q) error should wrap ErrInvalidCredential", tt.key)
		}
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"AIza1234", "********"},
		{"AIzaSyABCD1234", "AIza******1234"},
	}
	for _, tt := range tests {
		if got := Mask(tt.key); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCredentials_SaveAndRead(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	creds := NewCredentials(kv, "", "")

	if _, err := creds.APIKey(ctx); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("APIKey() error = %v, want ErrCredentialMissing", err)
	}

	if err := creds.Save(ctx, "  AIzaSyStoredKey  "); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := creds.APIKey(ctx)
	if err != nil || got != "AIzaSyStoredKey" {
		t.Errorf("APIKey() = %q, %v; want AIzaSyStoredKey", got, err)
	}

	raw, _ := kv.Get(ctx, DefaultKey)
	if string(raw) != "AIzaSyStoredKey" {
		t.Errorf("stored value = %q", raw)
	}
}

func TestCredentials_SaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	creds := NewCredentials(kv, "", "")

	if err := creds.Save(ctx, "sk-ant-abc"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Save() error = %v, want ErrInvalidCredential", err)
	}
	if _, err := kv.Get(ctx, DefaultKey); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("invalid key was written")
	}
}

func TestCredentials_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("used when nothing stored", func(t *testing.T) {
		creds := NewCredentials(kvstore.NewMemoryStore(), "", "AIzaFromEnv")
		got, err := creds.APIKey(ctx)
		if err != nil || got != "AIzaFromEnv" {
			t.Errorf("APIKey() = %q, %v; want AIzaFromEnv", got, err)
		}
	})

	t.Run("stored key wins", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		_ = kv.Put(ctx, DefaultKey, []byte("AIzaStored"))
		creds := NewCredentials(kv, "", "AIzaFromEnv")
		got, _ := creds.APIKey(ctx)
		if got != "AIzaStored" {
			t.Errorf("APIKey() = %q, want AIzaStored", got)
		}
	})

	t.Run("read failure treated as absent", func(t *testing.T) {
		kv := &MockKV{GetFunc: func(context.Context, string) ([]byte, error) { return nil, errors.New("boom") }}
		creds := NewCredentials(kv, "", "AIzaFromEnv")
		got, err := creds.APIKey(ctx)
		if err != nil || got != "AIzaFromEnv" {
			t.Errorf("APIKey() = %q, %v; want fallback", got, err)
		}
	})
}

func TestCredentials_SaveWriteFailure(t *testing.T) {
	writeErr := errors.New("read-only")
	kv := &MockKV{PutFunc: func(context.Context, string, []byte) error { return writeErr }}
	creds := NewCredentials(kv, "", "")

	if err := creds.Save(context.Background(), "AIzaKey"); !errors.Is(err, writeErr) {
		t.Errorf("Save() error = %v, want %v", err, writeErr)
	}
}

func TestCredentials_Configured(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentials(kvstore.NewMemoryStore(), "", "")
	if ok, masked := creds.Configured(ctx); ok || masked != "" {
		t.Errorf("Configured() = %v, %q; want false", ok, masked)
	}

	_ = creds.Save(ctx, "AIzaSyABCD1234")
	if ok, masked := creds.Configured(ctx); !ok || masked != "AIza******1234" {
		t.Errorf("Configured() = %v, %q", ok, masked)
	}
}
