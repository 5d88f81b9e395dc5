package occt

import "testing"

func TestNewReturnsError(t *testing.T) {
	ops, err := New()
	if err == nil {
		t.Fatal("New() error = nil, want non-nil error while the binding is unimplemented")
	}
	if ops != nil {
		t.Fatal("New() returned non-nil engine, want nil")
	}
}
