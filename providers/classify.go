package providers

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
)

// RFC 6749 section 5.2 codes that mean the grant can no longer be used.
var reauthCodes = map[string]struct{}{
	"invalid_grant":       {},
	"invalid_token":       {},
	"unauthorized_client": {},
}

// Meta Graph API code for an expired or revoked access token.
const metaCodeInvalidToken = 190

type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Code             json.RawMessage `json:"code"`
}

type metaError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// ErrorCode extracts the provider error code from a token endpoint body. It
// understands the RFC 6749 string form and Meta's nested object form.
func ErrorCode(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if len(eb.Error) > 0 {
		var code string
		if err := json.Unmarshal(eb.Error, &code); err == nil {
			return code
		}
		var meta metaError
		if err := json.Unmarshal(eb.Error, &meta); err == nil && meta.Type != "" {
			return meta.Type
		}
	}
	var code string
	if err := json.Unmarshal(eb.Code, &code); err == nil {
		return code
	}
	return ""
}

// ClassifyOAuth2 handles providers that follow RFC 6749 error responses.
func ClassifyOAuth2(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return apperrors.ErrReauthorizationRequired
	}
	if _, ok := reauthCodes[strings.ToLower(ErrorCode(body))]; ok {
		return apperrors.ErrReauthorizationRequired
	}
	return apperrors.ErrTokenExchangeFailed
}

// ClassifyMeta adds Graph API OAuthException code 190 to the standard rules.
func ClassifyMeta(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var meta metaError
		if err := json.Unmarshal(eb.Error, &meta); err == nil && meta.Code == metaCodeInvalidToken {
			return apperrors.ErrReauthorizationRequired
		}
	}
	return ClassifyOAuth2(status, body)
}
