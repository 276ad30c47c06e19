package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestCredentials(t *testing.T) {
	tests := []struct {
		name   string
		set    func(string) error
		get    func() (string, error)
		delete func() error
		value  string
	}{
		{"connection string", SetConnectionString, GetConnectionString, DeleteConnectionString, "postgres://scheduler@localhost:5432/shiftcal"},
		{"caldav password", SetCalDAVPassword, GetCalDAVPassword, DeleteCalDAVPassword, "hunter2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gokeyring.MockInit()

			if err := tt.set(""); err == nil {
				t.Error("set(\"\") should return an error")
			}
			if _, err := tt.get(); !errors.Is(err, ErrNotFound) {
				t.Errorf("get() on empty keyring error = %v, want %v", err, ErrNotFound)
			}

			if err := tt.set(tt.value); err != nil {
				t.Fatalf("set() failed: %v", err)
			}
			got, err := tt.get()
			if err != nil || got != tt.value {
				t.Fatalf("get() = %q, %v, want %q", got, err, tt.value)
			}

			if err := tt.delete(); err != nil {
				t.Fatalf("delete() failed: %v", err)
			}
			if err := tt.delete(); !errors.Is(err, ErrNotFound) {
				t.Errorf("second delete() error = %v, want %v", err, ErrNotFound)
			}
		})
	}
}

func TestCredentialsAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString("host=localhost"); err != nil {
		t.Fatal(err)
	}
	if _, err := GetCalDAVPassword(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCalDAVPassword() error = %v, want %v", err, ErrNotFound)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	if !IsAvailable() {
		t.Error("IsAvailable() = false with mock keyring")
	}
}
