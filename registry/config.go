package registry

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Config lists the providers of one orchestration run.
type Config struct {
	Providers []*ProviderDescriptor `json:"providers" yaml:"providers" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// LoadConfig reads the provider configuration from file, expanding
// environment variables.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid providers configuration")
	}
	return cfg, nil
}
