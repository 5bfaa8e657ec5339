package tiqrclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResponseCode is the protocol v2 numeric outcome of an authentication
// submission. Protocol v1 plain-text tokens are normalized onto the same
// codes.
type ResponseCode int

const (
	CodeSuccess          ResponseCode = 1
	CodeInvalidResponse  ResponseCode = 201
	CodeInvalidRequest   ResponseCode = 202
	CodeInvalidChallenge ResponseCode = 203
	CodeAccountBlocked   ResponseCode = 204
	CodeInvalidUser      ResponseCode = 205
)

// AuthenticationResult is the server's verdict on a submitted OTP.
type AuthenticationResult struct {
	Code ResponseCode
	// AttemptsLeft is set for CodeInvalidResponse when the server reports
	// how many tries remain before the account blocks.
	AttemptsLeft *int
	// Duration, in seconds, is set for CodeAccountBlocked when the block
	// is temporary. A permanent block carries no duration.
	Duration *int
}

// OK reports whether the submission was accepted.
func (r *AuthenticationResult) OK() bool {
	return r.Code == CodeSuccess
}

// parseV1Body normalizes a protocol v1 plain-text token onto the v2
// response codes. INVALID_RESPONSE carries the remaining attempt count
// after a colon.
func parseV1Body(body string) (*AuthenticationResult, error) {
	token := strings.TrimSpace(body)

	if rest, found := strings.CutPrefix(token, "INVALID_RESPONSE:"); found {
		attempts, err := strconv.Atoi(rest)
		if err != nil {
			return nil, errors.Join(ErrInvalidServerResponse, err)
		}
		return &AuthenticationResult{Code: CodeInvalidResponse, AttemptsLeft: &attempts}, nil
	}

	switch token {
	case "OK":
		return &AuthenticationResult{Code: CodeSuccess}, nil
	case "ACCOUNT_BLOCKED":
		return &AuthenticationResult{Code: CodeAccountBlocked}, nil
	case "INVALID_CHALLENGE":
		return &AuthenticationResult{Code: CodeInvalidChallenge}, nil
	case "INVALID_REQUEST":
		return &AuthenticationResult{Code: CodeInvalidRequest}, nil
	case "INVALID_USERID":
		return &AuthenticationResult{Code: CodeInvalidUser}, nil
	}
	return nil, fmt.Errorf("%w: token %q", ErrInvalidServerResponse, token)
}

// parseV2Body decodes the protocol v2 JSON response.
func parseV2Body(body []byte) (*AuthenticationResult, error) {
	var payload struct {
		ResponseCode *int `json:"responseCode"`
		AttemptsLeft *int `json:"attemptsLeft"`
		Duration     *int `json:"duration"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(ErrInvalidServerResponse, err)
	}
	if payload.ResponseCode == nil {
		return nil, fmt.Errorf("%w: missing responseCode", ErrInvalidServerResponse)
	}

	return &AuthenticationResult{
		Code:         ResponseCode(*payload.ResponseCode),
		AttemptsLeft: payload.AttemptsLeft,
		Duration:     payload.Duration,
	}, nil
}
