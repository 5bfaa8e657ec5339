package tiqrclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/tiqrkit/pkg/tiqrclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchEnrollmentMetadata(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "2", r.Header.Get("X-TIQR-Protocol-Version"))
		w.Write([]byte(`{"service":{}}`))
	}))
	defer srv.Close()

	body, err := tiqrclient.New().FetchEnrollmentMetadata(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"service":{}}`, string(body))
}

func TestFetchEnrollmentMetadata_Failures(t *testing.T) {
	t.Parallel()

	t.Run("http error status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := tiqrclient.New().FetchEnrollmentMetadata(context.Background(), srv.URL)
		assert.ErrorIs(t, err, tiqrclient.ErrConnection)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := tiqrclient.New().FetchEnrollmentMetadata(context.Background(), srv.URL)
		assert.ErrorIs(t, err, tiqrclient.ErrConnection)
	})

	t.Run("non-http url", func(t *testing.T) {
		t.Parallel()
		_, err := tiqrclient.New().FetchEnrollmentMetadata(context.Background(), "ftp://meta.example")
		assert.ErrorIs(t, err, tiqrclient.ErrInvalidURL)
	})
}

func TestSubmitAuthentication_V1(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode tiqrclient.ResponseCode
		attempts *int
	}{
		{"ok", "OK", tiqrclient.CodeSuccess, nil},
		{"blocked", "ACCOUNT_BLOCKED", tiqrclient.CodeAccountBlocked, nil},
		{"invalid challenge", "INVALID_CHALLENGE", tiqrclient.CodeInvalidChallenge, nil},
		{"invalid request", "INVALID_REQUEST", tiqrclient.CodeInvalidRequest, nil},
		{"invalid user", "INVALID_USERID", tiqrclient.CodeInvalidUser, nil},
		{"invalid response with attempts", "INVALID_RESPONSE:2", tiqrclient.CodeInvalidResponse, intPtr(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "login", r.PostForm.Get("operation"))
				assert.Equal(t, "SESSION", r.PostForm.Get("sessionKey"))
				assert.Equal(t, "alice", r.PostForm.Get("userId"))
				assert.Equal(t, "123456", r.PostForm.Get("response"))
				assert.Equal(t, "en", r.PostForm.Get("language"))
				// No version header: body is a v1 plain-text token.
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := tiqrclient.New().SubmitAuthentication(context.Background(), srv.URL,
				tiqrclient.AuthenticationRequest{
					SessionKey: "SESSION",
					UserID:     "alice",
					OTP:        "123456",
					Language:   "en",
				})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.attempts, result.AttemptsLeft)
		})
	}
}

func TestSubmitAuthentication_V1UnknownToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WAT"))
	}))
	defer srv.Close()

	_, err := tiqrclient.New().SubmitAuthentication(context.Background(), srv.URL,
		tiqrclient.AuthenticationRequest{})
	assert.ErrorIs(t, err, tiqrclient.ErrInvalidServerResponse)
}

func TestSubmitAuthentication_V2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode tiqrclient.ResponseCode
		attempts *int
		duration *int
	}{
		{"success", `{"responseCode":1}`, tiqrclient.CodeSuccess, nil, nil},
		{"invalid response", `{"responseCode":201,"attemptsLeft":2}`, tiqrclient.CodeInvalidResponse, intPtr(2), nil},
		{"temporary block", `{"responseCode":204,"duration":300}`, tiqrclient.CodeAccountBlocked, nil, intPtr(300)},
		{"permanent block", `{"responseCode":204}`, tiqrclient.CodeAccountBlocked, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "2", r.Header.Get("X-TIQR-Protocol-Version"))
				w.Header().Set("X-TIQR-Protocol-Version", "2")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := tiqrclient.New().SubmitAuthentication(context.Background(), srv.URL,
				tiqrclient.AuthenticationRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.attempts, result.AttemptsLeft)
			assert.Equal(t, tt.duration, result.Duration)
			assert.Equal(t, tt.wantCode == tiqrclient.CodeSuccess, result.OK())
		})
	}
}

func TestSubmitAuthentication_V2Malformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TIQR-Protocol-Version", "2")
		w.Write([]byte(`"just a string"`))
	}))
	defer srv.Close()

	_, err := tiqrclient.New().SubmitAuthentication(context.Background(), srv.URL,
		tiqrclient.AuthenticationRequest{})
	assert.ErrorIs(t, err, tiqrclient.ErrInvalidServerResponse)
}

func TestSubmitEnrollment(t *testing.T) {
	t.Parallel()

	t.Run("v1 OK", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "register", r.PostForm.Get("operation"))
			// Lowercase hex, zero-padded per byte.
			assert.Equal(t, "00ab10ff", r.PostForm.Get("secret"))
			assert.Equal(t, "APNS", r.PostForm.Get("notificationType"))
			assert.Equal(t, "token-1", r.PostForm.Get("notificationAddress"))
			w.Write([]byte("OK"))
		}))
		defer srv.Close()

		err := tiqrclient.New().SubmitEnrollment(context.Background(), srv.URL,
			tiqrclient.EnrollmentRequest{
				Secret:              []byte{0x00, 0xab, 0x10, 0xff},
				Language:            "en",
				NotificationType:    "APNS",
				NotificationAddress: "token-1",
			})
		require.NoError(t, err)
	})

	t.Run("v1 rejection", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ERROR"))
		}))
		defer srv.Close()

		err := tiqrclient.New().SubmitEnrollment(context.Background(), srv.URL, tiqrclient.EnrollmentRequest{})
		assert.ErrorIs(t, err, tiqrclient.ErrEnrollmentRejected)
	})

	t.Run("v2 rejection", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-TIQR-Protocol-Version", "2")
			w.Write([]byte(`{"responseCode":202}`))
		}))
		defer srv.Close()

		err := tiqrclient.New().SubmitEnrollment(context.Background(), srv.URL, tiqrclient.EnrollmentRequest{})
		assert.ErrorIs(t, err, tiqrclient.ErrEnrollmentRejected)
	})
}

func intPtr(n int) *int { return &n }
