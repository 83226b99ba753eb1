package config

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/sprig/pkg/failure"
)

type ReturnMode string

const (
	ReturnSelf      ReturnMode = "self"
	ReturnDataShape ReturnMode = "data_shape"
)

type Shape string

const (
	ShapeStringMap Shape = "string_map"
	ShapeSymbolMap Shape = "symbol_map"
	ShapeRecord    Shape = "record"
)

type KeyCase string

const (
	KeyCaseDeclared KeyCase = "declared"
	KeyCaseCamel    KeyCase = "camel"
	KeyCaseSnake    KeyCase = "snake"
)

// Settings is the process-wide behaviour of request objects and organizers.
// It is set once at boot with Configure and read-only afterwards; schemas
// and organizers may also be given their own Settings.
type Settings struct {
	ReturnMode ReturnMode `validate:"oneof=self data_shape"`
	Shape      Shape      `validate:"oneof=string_map symbol_map record"`
	KeyCase    KeyCase    `validate:"oneof=declared camel snake"`

	Logger                   ectologger.Logger
	LogUnknownAttributes     bool
	UnknownAttributeLogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// DefaultHandler runs after the registered handlers of every organizer.
	DefaultHandler failure.Handler
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var current atomic.Pointer[Settings]

func Default() *Settings {
	return &Settings{
		ReturnMode:               ReturnSelf,
		Shape:                    ShapeStringMap,
		KeyCase:                  KeyCaseDeclared,
		UnknownAttributeLogLevel: "debug",
	}
}

// FromConfig builds Settings from environment configuration.
func FromConfig(cfg *Config, logger ectologger.Logger) *Settings {
	return &Settings{
		ReturnMode:               ReturnMode(cfg.RequestReturnMode),
		Shape:                    Shape(cfg.RequestDataShape),
		KeyCase:                  KeyCase(cfg.RequestKeyCase),
		Logger:                   logger,
		LogUnknownAttributes:     cfg.RequestLogUnknownAttrs,
		UnknownAttributeLogLevel: cfg.RequestUnknownAttrsLevel,
	}
}

func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Configure installs s as the process-wide settings.
func Configure(s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	current.Store(s)
	return nil
}

// Current returns the process-wide settings, or the defaults when Configure
// was never called.
func Current() *Settings {
	if s := current.Load(); s != nil {
		return s
	}
	return Default()
}

// LogUnknownAttribute records an ignored attribute when logging is enabled.
func (s *Settings) LogUnknownAttribute(ctx context.Context, attribute, typeName string) {
	if !s.LogUnknownAttributes || s.Logger == nil {
		return
	}

	log := s.Logger.WithContext(ctx).WithFields(map[string]any{
		"attribute": attribute,
		"type":      typeName,
	})
	msg := fmt.Sprintf("ignoring unknown attribute '%s' for %s", attribute, typeName)

	switch strings.ToLower(s.UnknownAttributeLogLevel) {
	case "info":
		log.Info(msg)
	case "warn":
		log.Warn(msg)
	case "error":
		log.Error(msg)
	default:
		log.Debug(msg)
	}
}
