package cli

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	shellfish "github.com/OctopusDeploy/Shellfish"
)

var validate = validator.New()

// Spec is the on-disk description of one command invocation.
type Spec struct {
	Executable string            `yaml:"executable" validate:"required"`
	Args       []string          `yaml:"args" validate:"excluded_with=RawArgs"`
	RawArgs    string            `yaml:"rawArgs"`
	Workdir    string            `yaml:"workdir"`
	Env        map[string]string `yaml:"env"`
	Stdin      []string          `yaml:"stdin"`
}

// LoadSpec reads and validates a YAML command spec. Unknown fields are
// rejected so typos fail loudly instead of being silently ignored.
func LoadSpec(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spec file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var spec Spec
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", path, err)
	}
	if err := validate.Struct(&spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &spec, nil
}

// Command translates the spec into an engine configuration. Stdin lines are
// handled by the caller, which owns the input source's lifecycle.
func (s *Spec) Command() *shellfish.Command {
	command := shellfish.NewCommand(s.Executable)
	if len(s.Args) > 0 {
		command.WithArguments(s.Args...)
	}
	if s.RawArgs != "" {
		command.WithRawArguments(s.RawArgs)
	}
	if s.Workdir != "" {
		command.WithWorkingDirectory(s.Workdir)
	}
	if len(s.Env) > 0 {
		command.WithEnvironment(s.Env)
	}
	return command
}
