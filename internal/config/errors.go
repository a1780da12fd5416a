package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrDuplicateProviderName error if two provider blocks share a name.
	ErrDuplicateProviderName = errors.New("provider names must be unique")

	// ErrProviderParamMissing error if an enabled provider is missing a
	// required connection parameter for its type.
	ErrProviderParamMissing = errors.New("enabled provider is missing a required connection parameter")
)
