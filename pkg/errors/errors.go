package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// UnknownAttributeError is returned when a request object receives a key it
// does not declare and the schema does not ignore unknown attributes.
type UnknownAttributeError struct {
	Attribute string
	Type      string
}

func NewUnknownAttributeError(attribute, typeName string) *UnknownAttributeError {
	return &UnknownAttributeError{Attribute: attribute, Type: typeName}
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute '%s' for %s", e.Attribute, e.Type)
}

func (e *UnknownAttributeError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("attribute", e.Attribute).
		AddMetaValue("type", e.Type)
}

// ValidationError carries every message produced while validating a request
// object. Validation never stops at the first failure.
type ValidationError struct {
	Type     string
	Messages []string
}

func NewValidationError(typeName string, messages []string) *ValidationError {
	return &ValidationError{Type: typeName, Messages: messages}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Type, strings.Join(e.Messages, ", "))
}

func (e *ValidationError) ErrorMessages() []string {
	return e.Messages
}

func (e *ValidationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("type", e.Type).
		AddMetaValue("errors", e.Messages)
}

// InvalidRequestObject is the organize-level wrapper for request object
// construction failures (unknown attributes and validation errors).
type InvalidRequestObject struct {
	RequestType string
	Messages    []string
	Err         error
}

func NewInvalidRequestObject(requestType string, messages []string, cause error) *InvalidRequestObject {
	return &InvalidRequestObject{RequestType: requestType, Messages: messages, Err: cause}
}

func (e *InvalidRequestObject) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.RequestType, strings.Join(e.Messages, ", "))
}

func (e *InvalidRequestObject) Unwrap() error {
	return e.Err
}

func (e *InvalidRequestObject) ErrorMessages() []string {
	return e.Messages
}

func (e *InvalidRequestObject) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("request_type", e.RequestType).
		AddMetaValue("errors", e.Messages)
}

// TypeCoercionError is returned when a value cannot be converted to the
// declared attribute type, or when the type is not in the registry.
type TypeCoercionError struct {
	Type  string
	Value any
	Field string
	Err   error
}

func NewTypeCoercionError(typeName string, value any, cause error) *TypeCoercionError {
	return &TypeCoercionError{Type: typeName, Value: value, Err: cause}
}

func (e *TypeCoercionError) Error() string {
	msg := fmt.Sprintf("cannot coerce %v (%T) to %s", e.Value, e.Value, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("field '%s': %s", e.Field, msg)
	}
	return msg
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

func (e *TypeCoercionError) AddField(field string) *TypeCoercionError {
	e.Field = field
	return e
}

func (e *TypeCoercionError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("type", e.Type).
		AddMetaValue("field", e.Field)
}

// UnknownTransformError is returned when a transform names a method the
// current value does not support.
type UnknownTransformError struct {
	Field     string
	Method    string
	ValueType string
}

func NewUnknownTransformError(field, method, valueType string) *UnknownTransformError {
	return &UnknownTransformError{Field: field, Method: method, ValueType: valueType}
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("field '%s': transform '%s' is not supported by %s values", e.Field, e.Method, e.ValueType)
}

func (e *UnknownTransformError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("field", e.Field).
		AddMetaValue("method", e.Method)
}

// TransformError wraps a failure raised by a transform function.
type TransformError struct {
	Field string
	Err   error
}

func NewTransformError(field string, cause error) *TransformError {
	return &TransformError{Field: field, Err: cause}
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s failed to transform: %v", e.Field, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

func (e *TransformError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("field", e.Field)
}

// ArgumentError reports a malformed declaration: a bad transform op, a
// malformed inclusion, an update payload of the wrong shape.
type ArgumentError struct {
	Declaration string
	Message     string
}

func NewArgumentError(declaration, msg string) *ArgumentError {
	return &ArgumentError{Declaration: declaration, Message: msg}
}

func NewArgumentErrorf(declaration, format string, args ...any) *ArgumentError {
	return &ArgumentError{Declaration: declaration, Message: fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string {
	if e.Declaration == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Declaration, e.Message)
}

// ConfigurationError reports an unsupported parameter shaping rule, such as
// flattening an array of hashes.
type ConfigurationError struct {
	Key     string
	Message string
}

func NewConfigurationError(key, msg string) *ConfigurationError {
	return &ConfigurationError{Key: key, Message: msg}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for '%s': %s", e.Key, e.Message)
}

func (e *ConfigurationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusInternalServerError, e.Error()).AddMetaValue("key", e.Key)
}

// RecordInvalidError is returned by the store when a model's own validation
// rejects an update.
type RecordInvalidError struct {
	Model    string
	Messages []string
}

func NewRecordInvalidError(model string, messages []string) *RecordInvalidError {
	return &RecordInvalidError{Model: model, Messages: messages}
}

func (e *RecordInvalidError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Model, strings.Join(e.Messages, ", "))
}

func (e *RecordInvalidError) ErrorMessages() []string {
	return e.Messages
}

func (e *RecordInvalidError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("model", e.Model).
		AddMetaValue("errors", e.Messages)
}

// HTTPConvertible is implemented by every error in this package that has a
// natural HTTP representation.
type HTTPConvertible interface {
	ToHTTPError() *httperror.HTTPError
}

// ToHTTPError converts a taxonomy error to an HTTP error. Errors that are
// already HTTP errors are returned as-is; anything else becomes a 500.
func ToHTTPError(err error) *httperror.HTTPError {
	if err == nil {
		return nil
	}
	var converter HTTPConvertible
	if goerrors.As(err, &converter) {
		return converter.ToHTTPError()
	}
	if httperror.IsHTTPError(err) {
		return httperror.ToHTTPError(err)
	}
	return httperror.WrapError(http.StatusInternalServerError, err)
}

type messageCarrier interface {
	ErrorMessages() []string
}

// Messages extracts the flat message list carried by an error or anything it
// wraps, if any.
func Messages(err error) []string {
	var carrier messageCarrier
	if err != nil && goerrors.As(err, &carrier) {
		return carrier.ErrorMessages()
	}
	return nil
}

func IsUnknownAttributeError(err error) bool {
	var target *UnknownAttributeError
	return goerrors.As(err, &target)
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return goerrors.As(err, &target)
}

func IsInvalidRequestObject(err error) bool {
	var target *InvalidRequestObject
	return goerrors.As(err, &target)
}

func IsTypeCoercionError(err error) bool {
	var target *TypeCoercionError
	return goerrors.As(err, &target)
}

func IsArgumentError(err error) bool {
	var target *ArgumentError
	return goerrors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return goerrors.As(err, &target)
}

func IsRecordInvalidError(err error) bool {
	var target *RecordInvalidError
	return goerrors.As(err, &target)
}
