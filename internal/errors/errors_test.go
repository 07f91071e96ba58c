package errors

import (
	"fmt"
	"testing"
)

func TestNotefoldError_Error(t *testing.T) {
	err := &NotefoldError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "note not found",
	}

	expected := "NOT_FOUND: note not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("content is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "content is required" {
		t.Errorf("Message = %q, want %q", err.Message, "content is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01J9ZK3V8N0000000000000000")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "01J9ZK3V8N0000000000000000" {
		t.Errorf("Details[identifier] = %v, want note id", err.Details["identifier"])
	}
}

func TestNewWorkspaceNotFound(t *testing.T) {
	err := NewWorkspaceNotFound("personal")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Details["workspace"] != "personal" {
		t.Errorf("Details[workspace] = %v, want %q", err.Details["workspace"], "personal")
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("remote fingerprint changed")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewUnauthorized(t *testing.T) {
	t.Run("with message", func(t *testing.T) {
		err := NewUnauthorized("token expired")
		if err.Code != ErrUnauthorized {
			t.Errorf("Code = %q, want %q", err.Code, ErrUnauthorized)
		}
		if err.Status != 401 {
			t.Errorf("Status = %d, want 401", err.Status)
		}
		if err.Message != "token expired" {
			t.Errorf("Message = %q, want %q", err.Message, "token expired")
		}
	})

	t.Run("default message", func(t *testing.T) {
		err := NewUnauthorized("")
		if err.Message == "" {
			t.Error("Message should default to non-empty")
		}
	})
}

func TestNewWorkspaceGone(t *testing.T) {
	err := NewWorkspaceGone("personal")

	if err.Code != ErrWorkspaceGone {
		t.Errorf("Code = %q, want %q", err.Code, ErrWorkspaceGone)
	}
	if err.Status != 410 {
		t.Errorf("Status = %d, want 410", err.Status)
	}
	if err.Details["workspace"] != "personal" {
		t.Errorf("Details[workspace] = %v, want %q", err.Details["workspace"], "personal")
	}
}

func TestNewRateLimited(t *testing.T) {
	err := NewRateLimited("")

	if err.Code != ErrRateLimited {
		t.Errorf("Code = %q, want %q", err.Code, ErrRateLimited)
	}
	if err.Status != 429 {
		t.Errorf("Status = %d, want 429", err.Status)
	}
	if err.Message == "" {
		t.Error("Message should default to non-empty")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("database connection failed")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		// Original error should be stored in Details for logging
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		// Details should be empty but not nil
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("test")
		if Is(err, ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-NotefoldError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-NotefoldError")
		}
	})

	t.Run("wrapped NotefoldError", func(t *testing.T) {
		inner := NewConflict("sha mismatch")
		wrapped := fmt.Errorf("upload notes/a.md: %w", inner)
		if !Is(wrapped, ErrConflict) {
			t.Error("Is() = false, want true for wrapped NotefoldError")
		}
		if Is(wrapped, ErrNotFound) {
			t.Error("Is() = true, want false for wrong code on wrapped NotefoldError")
		}
	})
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewRateLimited("")); got != ErrRateLimited {
		t.Errorf("CodeOf() = %q, want %q", got, ErrRateLimited)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != ErrInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrInternal)
	}
	wrapped := fmt.Errorf("outer: %w", NewWorkspaceGone("ws"))
	if got := CodeOf(wrapped); got != ErrWorkspaceGone {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, ErrWorkspaceGone)
	}
}
