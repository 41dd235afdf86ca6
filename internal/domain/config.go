package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultGamePort     uint16 = 27015
	DefaultQueryPort    uint16 = 27016
	DefaultTimeout             = 8 * time.Second
	DefaultPollInterval        = 50 * time.Millisecond
	DefaultProduct             = "SpaceAgency2"
	DefaultGameDesc            = "Space Agency 2"
	DefaultModDir              = "spaceagency2"
	DefaultServerName          = "SpaceAgency2 GS"
	DefaultVersion             = "1.0.0.0"
)

// Config is the validated input of one unlock run.
type Config struct {
	SteamID      SteamID        `flag:"steamid" validate:"required"`
	Achievement  string         `flag:"achievement" validate:"required,printascii"`
	AppID        uint32         `flag:"app-id" validate:"required"`
	Identity     ServerIdentity `flag:"-"`
	Metadata     ServerMetadata `flag:"-"`
	Timeout      time.Duration  `flag:"timeout-ms" validate:"gt=0"`
	PollInterval time.Duration  `flag:"poll-interval-ms" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("flag"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ApplyDefaults fills zero ports and durations.
func (c *Config) ApplyDefaults() {
	if c.Identity.GamePort == 0 {
		c.Identity.GamePort = DefaultGamePort
	}
	if c.Identity.QueryPort == 0 {
		c.Identity.QueryPort = DefaultQueryPort
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	c.Metadata.Dedicated = true
}

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		problems = append(problems, describeFieldError(fieldErr))
	}

	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
}

func describeFieldError(fieldErr validator.FieldError) string {
	name := "--" + fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("missing required flag %s", name)
	case "gt", "min", "max":
		return fmt.Sprintf("flag %s is out of range", name)
	default:
		return fmt.Sprintf("flag %s is invalid (%s)", name, fieldErr.Tag())
	}
}
