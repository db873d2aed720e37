package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Wire-level error codes carried in OffChainErrorObject.Code. Protocol codes
// mean the envelope itself is untrustworthy; command codes mean the envelope
// authenticated but the payload failed domain validation.
const (
	ErrorCodeMissingHTTPHeader         = "missing_http_header"
	ErrorCodeInvalidHTTPHeader         = "invalid_http_header"
	ErrorCodeInvalidJWS                = "invalid_jws"
	ErrorCodeInvalidJWSSignature       = "invalid_jws_signature"
	ErrorCodeInvalidJSON               = "invalid_json"
	ErrorCodeInvalidFieldValue         = "invalid_field_value"
	ErrorCodeMissingField              = "missing_field"
	ErrorCodeUnknownCommandType        = "unknown_command_type"
	ErrorCodeUnknownAddress            = "unknown_address"
	ErrorCodeInvalidRecipientSignature = "invalid_recipient_signature"
)

const (
	ErrorTypeProtocol = "protocol_error"
	ErrorTypeCommand  = "command_error"
)

const (
	metadataKeyErrorType = "offchain_error_type"
	metadataKeyErrorCode = "offchain_error_code"
	metadataKeyField     = "offchain_field"
)

// Lifecycle sentinels raised by the pre-approval state machine.
var (
	ErrPreApprovalNotFound      = errors.New("core: funds pull pre-approval command not found")
	ErrPreApprovalExists        = errors.New("core: funds pull pre-approval command already exists")
	ErrInvalidPreApprovalStatus = errors.New("core: invalid funds pull pre-approval status")
	ErrAccountNotFound          = errors.New("core: account not found")
)

// OffChainErrorObject is the structured error embedded in a failure
// CommandResponseObject.
type OffChainErrorObject struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProtocolError builds an authentication/envelope-level error. The caller
// must reject the request before reading any business field.
func ProtocolError(code string, message string) *goerrors.Error {
	return offchainError(ErrorTypeProtocol, code, "", message, nil)
}

// ProtocolWrap wraps a source error with a protocol code.
func ProtocolWrap(source error, code string, message string) *goerrors.Error {
	return offchainError(ErrorTypeProtocol, code, "", message, source)
}

// CommandError builds a payload-level validation error; field is an optional
// JSON-path-like locator for diagnostics.
func CommandError(code string, message string, field string) *goerrors.Error {
	return offchainError(ErrorTypeCommand, code, field, message, nil)
}

func CommandWrap(source error, code string, message string, field string) *goerrors.Error {
	return offchainError(ErrorTypeCommand, code, field, message, source)
}

func offchainError(errType string, code string, field string, message string, source error) *goerrors.Error {
	category := categoryForCode(code)
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	err = err.WithCode(httpStatusForCode(code)).WithTextCode(code)
	metadata := map[string]any{
		metadataKeyErrorType: errType,
		metadataKeyErrorCode: code,
	}
	if strings.TrimSpace(field) != "" {
		metadata[metadataKeyField] = strings.TrimSpace(field)
	}
	err.WithMetadata(metadata)
	return err
}

func categoryForCode(code string) goerrors.Category {
	switch code {
	case ErrorCodeInvalidJWSSignature:
		return goerrors.CategoryAuth
	case ErrorCodeUnknownAddress, ErrorCodeUnknownCommandType:
		return goerrors.CategoryNotFound
	default:
		return goerrors.CategoryBadInput
	}
}

func httpStatusForCode(code string) int {
	switch code {
	case ErrorCodeInvalidJWSSignature:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// AsOffChainError maps any error into the structured wire error. Errors not
// built by this package collapse into a command-category invalid_field_value
// so internals never leak onto the wire verbatim.
func AsOffChainError(err error) OffChainErrorObject {
	if err == nil {
		return OffChainErrorObject{}
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Metadata != nil {
		errType, _ := rich.Metadata[metadataKeyErrorType].(string)
		code, _ := rich.Metadata[metadataKeyErrorCode].(string)
		field, _ := rich.Metadata[metadataKeyField].(string)
		if errType != "" && code != "" {
			return OffChainErrorObject{
				Type:    errType,
				Code:    code,
				Field:   field,
				Message: rich.Message,
			}
		}
	}
	return OffChainErrorObject{
		Type:    ErrorTypeCommand,
		Code:    ErrorCodeInvalidFieldValue,
		Message: err.Error(),
	}
}

// IsProtocolError reports whether err carries a protocol-category wire code.
func IsProtocolError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return false
	}
	errType, _ := rich.Metadata[metadataKeyErrorType].(string)
	return errType == ErrorTypeProtocol
}

// ErrorCodeOf extracts the wire code from an error, empty when absent.
func ErrorCodeOf(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return ""
	}
	code, _ := rich.Metadata[metadataKeyErrorCode].(string)
	return code
}

// ErrorFieldOf extracts the field locator from an error, empty when absent.
func ErrorFieldOf(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return ""
	}
	field, _ := rich.Metadata[metadataKeyField].(string)
	return field
}
