package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Code:       "test_error",
		Message:    "Test error message",
		StatusCode: http.StatusBadRequest,
	}

	if got := err.Error(); got != "Test error message" {
		t.Errorf("Error() = %q, want %q", got, "Test error message")
	}
}

func TestError_Unwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	err := &Error{
		Code:     "wrapped_error",
		Message:  "Wrapped error",
		Internal: innerErr,
	}

	if got := err.Unwrap(); got != innerErr {
		t.Errorf("Unwrap() = %v, want %v", got, innerErr)
	}
}

func TestWrap(t *testing.T) {
	innerErr := errors.New("storage error")
	wrapped := Wrap(innerErr, ErrInternal)

	if wrapped.Code != ErrInternal.Code {
		t.Errorf("Code = %q, want %q", wrapped.Code, ErrInternal.Code)
	}
	if wrapped.Internal != innerErr {
		t.Errorf("Internal = %v, want %v", wrapped.Internal, innerErr)
	}
	if !errors.Is(wrapped, innerErr) {
		t.Error("errors.Is should return true for wrapped inner error")
	}
}

func TestWithDetails(t *testing.T) {
	details := map[string]string{"width": "must be a positive integer"}
	err := WithDetails(ErrBadRequest, details)

	if err.Code != ErrBadRequest.Code {
		t.Errorf("Code = %q, want %q", err.Code, ErrBadRequest.Code)
	}
	if err.Details["width"] != "must be a positive integer" {
		t.Errorf("Details = %v, want %v", err.Details, details)
	}
	if ErrBadRequest.Details != nil {
		t.Error("WithDetails must not mutate the sentinel value")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{
			name:   "matching error",
			err:    ErrNotFound,
			target: ErrNotFound,
			want:   true,
		},
		{
			name:   "wrapped matching error",
			err:    Wrap(errors.New("inner"), ErrNotFound),
			target: ErrNotFound,
			want:   true,
		},
		{
			name:   "non-matching error",
			err:    ErrUnauthorized,
			target: ErrNotFound,
			want:   false,
		},
		{
			name:   "non-apperror",
			err:    errors.New("regular error"),
			target: ErrNotFound,
			want:   false,
		},
		{
			name:   "nil error",
			err:    nil,
			target: ErrNotFound,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"conversion limit", ErrConversionLimitExceeded, http.StatusForbidden},
		{"internal", ErrInternal, http.StatusInternalServerError},
		{"service unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"non-apperror defaults to 500", errors.New("regular error"), http.StatusInternalServerError},
		{"wrapped error preserves code", Wrap(errors.New("inner"), ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSafeMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound, ErrNotFound.Message},
		{"custom error", New("test", "Custom message", 400), "Custom message"},
		{"non-apperror returns internal message", errors.New("db error"), ErrInternal.Message},
		{"nil error returns internal message", nil, ErrInternal.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeMessage(tt.err); got != tt.want {
				t.Errorf("SafeMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"ErrNotFound", ErrNotFound, "not_found", http.StatusNotFound},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized", http.StatusUnauthorized},
		{"ErrForbidden", ErrForbidden, "forbidden", http.StatusForbidden},
		{"ErrBadRequest", ErrBadRequest, "bad_request", http.StatusBadRequest},
		{"ErrConversionLimitExceeded", ErrConversionLimitExceeded, "conversion_limit_exceeded", http.StatusForbidden},
		{"ErrFileTooLarge", ErrFileTooLarge, "file_too_large", http.StatusRequestEntityTooLarge},
		{"ErrInvalidFileType", ErrInvalidFileType, "invalid_file_type", http.StatusBadRequest},
		{"ErrInvalidToken", ErrInvalidToken, "invalid_token", http.StatusUnauthorized},
		{"ErrInternal", ErrInternal, "internal_error", http.StatusInternalServerError},
		{"ErrServiceUnavailable", ErrServiceUnavailable, "service_unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("%s.Code = %q, want %q", tt.name, tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("%s.StatusCode = %d, want %d", tt.name, tt.err.StatusCode, tt.wantStatus)
			}
			if tt.err.Message == "" {
				t.Errorf("%s.Message should not be empty", tt.name)
			}
		})
	}
}
