package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetInferTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	defer SetInferTimeoutSeconds(0)
	SetInferTimeoutSeconds(-5)
	if inferTimeout != 0 {
		t.Fatalf("expected 0, got %d", inferTimeout)
	}
	SetInferTimeoutSeconds(3)
	if inferTimeout != 3 {
		t.Fatalf("expected 3, got %d", inferTimeout)
	}
}

func TestSetCORSOptions_Defaults(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	SetCORSOptions(true, []string{"https://app.example"}, nil, nil)
	if !corsEnabled || len(corsAllowedMethods) == 0 || len(corsAllowedHeaders) == 0 {
		t.Fatalf("expected method and header defaults, got %v %v", corsAllowedMethods, corsAllowedHeaders)
	}
}
