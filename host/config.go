package host

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wippyai/wasm-plugin-host/errors"
)

// DefaultPluginPath is where the guest is loaded from when no path is given,
// relative to the working directory.
const DefaultPluginPath = "../plugin-example/target/wasm32-wasi/debug/plugin_example.wasm"

// Config is the host's command-line configuration.
type Config struct {
	PluginPath string `validate:"required"`
	Engine     EngineConfig
	TUI        bool
	LogLevel   string `validate:"oneof=debug info warn error"`
}

// DefaultConfig reproduces the behavior of running without flags.
func DefaultConfig() Config {
	return Config{
		PluginPath: DefaultPluginPath,
		LogLevel:   "warn",
	}
}

var validate = validator.New()

// Validate checks the configuration, reporting the first failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		detail := fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			detail += " (" + strings.TrimSpace(fe.Param()) + ")"
		}
		return errors.InvalidConfig(detail, err)
	}
	return errors.InvalidConfig("validate", err)
}
