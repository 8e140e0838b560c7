package stt_test

import (
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jordansepetys/AibaPM-Notes/internal/stt"
)

func apiError(status int, msg string) error {
	return &openai.APIError{
		HTTPStatusCode: status,
		Message:        msg,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error // nil means: stays unclassified (returned as-is)
	}{
		{
			name: "413 payload too large",
			err:  apiError(http.StatusRequestEntityTooLarge, "Maximum content size limit exceeded"),
			want: stt.ErrPayloadTooLarge,
		},
		{
			name: "429 rate limit",
			err:  apiError(http.StatusTooManyRequests, "Rate limit reached for requests"),
			want: stt.ErrRateLimited,
		},
		{
			name: "429 with quota message is billing",
			err:  apiError(http.StatusTooManyRequests, "You exceeded your current quota, please check your plan and billing details"),
			want: stt.ErrQuotaExceeded,
		},
		{
			name: "401 unauthorized",
			err:  apiError(http.StatusUnauthorized, "Incorrect API key provided"),
			want: stt.ErrUnauthorized,
		},
		{
			name: "402 payment required",
			err:  apiError(http.StatusPaymentRequired, "payment required"),
			want: stt.ErrQuotaExceeded,
		},
		{
			name: "400 with size-limit message",
			err:  apiError(http.StatusBadRequest, "file too large: the upload exceeds the size limit"),
			want: stt.ErrPayloadTooLarge,
		},
		{
			name: "403 with credit message",
			err:  apiError(http.StatusForbidden, "insufficient credit balance"),
			want: stt.ErrQuotaExceeded,
		},
		{
			name: "500 stays unclassified",
			err:  apiError(http.StatusInternalServerError, "The server had an error"),
		},
		{
			name: "plain error with size-limit phrasing",
			err:  errors.New("request rejected: payload too large"),
			want: stt.ErrPayloadTooLarge,
		},
		{
			name: "plain network error stays unclassified",
			err:  errors.New("dial tcp: connection refused"),
		},
		{
			name: "request error carries status",
			err:  &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")},
			want: stt.ErrRateLimited,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := stt.Classify(tt.err)
			if tt.want == nil {
				if !errors.Is(got, tt.err) {
					t.Errorf("Classify() = %v, want original error preserved", got)
				}
				for _, sentinel := range []error{
					stt.ErrPayloadTooLarge, stt.ErrRateLimited,
					stt.ErrUnauthorized, stt.ErrQuotaExceeded,
				} {
					if errors.Is(got, sentinel) {
						t.Errorf("Classify() unexpectedly matched %v", sentinel)
					}
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("Classify() = %v, want errors.Is(%v)", got, tt.want)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	t.Parallel()

	if got := stt.Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", stt.ErrRateLimited, true},
		{"unclassified", errors.New("connection reset"), true},
		{"payload too large", stt.ErrPayloadTooLarge, false},
		{"unauthorized", stt.ErrUnauthorized, false},
		{"quota exceeded", stt.ErrQuotaExceeded, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := stt.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	if !stt.IsFatal(stt.ErrUnauthorized) {
		t.Error("IsFatal(ErrUnauthorized) = false, want true")
	}
	if !stt.IsFatal(stt.ErrQuotaExceeded) {
		t.Error("IsFatal(ErrQuotaExceeded) = false, want true")
	}
	if stt.IsFatal(stt.ErrRateLimited) {
		t.Error("IsFatal(ErrRateLimited) = true, want false")
	}
	if stt.IsFatal(stt.ErrPayloadTooLarge) {
		t.Error("IsFatal(ErrPayloadTooLarge) = true, want false")
	}
}
