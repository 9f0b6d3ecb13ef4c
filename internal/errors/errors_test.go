package errors

import (
	"fmt"
	"testing"
)

func TestMemeError_Error(t *testing.T) {
	err := &MemeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "meme not found",
	}

	expected := "NOT_FOUND: meme not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("id is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "id is required" {
		t.Errorf("Message = %q, want %q", err.Message, "id is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("meme", "01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Message != "meme not found: 01ABC" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["kind"] != "meme" || err.Details["id"] != "01ABC" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/backup.json")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/backup.json" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("backup already exists")

	if err.Code != ErrConflict {
		t.Errorf("Code = %q, want %q", err.Code, ErrConflict)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewFileTooLarge(t *testing.T) {
	err := NewFileTooLarge(10*1024*1024, 15*1024*1024)

	if err.Code != ErrFileTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_bytes"] != int64(10*1024*1024) {
		t.Errorf("Details[max_bytes] = %v", err.Details["max_bytes"])
	}
	if err.Details["actual_bytes"] != int64(15*1024*1024) {
		t.Errorf("Details[actual_bytes] = %v", err.Details["actual_bytes"])
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database is locked"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q", err.Message)
		}
		if err.Details["internal_error"] != "database is locked" {
			t.Errorf("Details[internal_error] = %v", err.Details["internal_error"])
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
		if _, ok := err.Details["internal_error"]; ok {
			t.Error("Details[internal_error] should be absent")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("meme", "x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("meme", "x"), ErrConflict) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-MemeError", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-MemeError")
		}
	})

	t.Run("wrapped MemeError", func(t *testing.T) {
		wrapped := fmt.Errorf("restore: %w", NewFileNotFound("a.json"))
		if !Is(wrapped, ErrFileNotFound) {
			t.Error("Is() = false, want true for wrapped MemeError")
		}
		mErr, ok := As(wrapped)
		if !ok || mErr.Status != 404 {
			t.Errorf("As() = %v, %v", mErr, ok)
		}
	})
}
