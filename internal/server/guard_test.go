package server

import "testing"

func TestGuardRejectsReadOnlyIntentFirst(t *testing.T) {
	guard := NewGuard()

	// 意图不符时必须返回 403，即使凭证同样缺失。
	apiErr := guard.Authorize(IntentReadOnly, "")
	if apiErr != ErrWriteNotAllowed {
		t.Fatalf("expected ErrWriteNotAllowed, got %v", apiErr)
	}

	apiErr = guard.Authorize(IntentReadOnly, "Bearer token")
	if apiErr != ErrWriteNotAllowed {
		t.Fatalf("expected ErrWriteNotAllowed with credential present, got %v", apiErr)
	}
}

func TestGuardRequiresCredentialOnWriteIntent(t *testing.T) {
	guard := NewGuard()

	if apiErr := guard.Authorize(IntentReadWrite, ""); apiErr != ErrMissingCredential {
		t.Fatalf("expected ErrMissingCredential, got %v", apiErr)
	}
	if apiErr := guard.Authorize(IntentReadWrite, "   "); apiErr != ErrMissingCredential {
		t.Fatalf("expected ErrMissingCredential for blank credential, got %v", apiErr)
	}
	if apiErr := guard.Authorize(IntentReadWrite, "Bearer token"); apiErr != nil {
		t.Fatalf("expected authorization to pass, got %v", apiErr)
	}
}

func TestGuardCustomVerifier(t *testing.T) {
	guard := NewGuard()
	guard.VerifyCredential = func(credential string) bool {
		return credential == "Bearer expected"
	}

	if guard.AuthMode() != "custom" {
		t.Fatalf("expected custom auth mode, got %s", guard.AuthMode())
	}
	if apiErr := guard.Authorize(IntentReadWrite, "Bearer other"); apiErr != ErrMissingCredential {
		t.Fatalf("expected custom verifier rejection, got %v", apiErr)
	}
	if apiErr := guard.Authorize(IntentReadWrite, "Bearer expected"); apiErr != nil {
		t.Fatalf("expected custom verifier acceptance, got %v", apiErr)
	}
}

func TestGuardDefaultAuthMode(t *testing.T) {
	if mode := NewGuard().AuthMode(); mode != "presence-only" {
		t.Fatalf("expected presence-only auth mode, got %s", mode)
	}
}
