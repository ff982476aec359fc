package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	shellfish "github.com/OctopusDeploy/Shellfish"
)

func newRunCmd() *cobra.Command {
	var (
		specFile string
		workdir  string
		envPairs []string
		envFile  string
		rawArgs  string
		user     string
		domain   string
		timeout  time.Duration
		quiet    bool
		noStdin  bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- executable [args...]",
		Short: "Execute one command, streaming its output and exit code through",
		RunE: func(cmd *cobra.Command, args []string) error {
			command, stdin, err := buildCommand(args, specFile, workdir, rawArgs, envPairs, envFile)
			if err != nil {
				return err
			}

			if verbose {
				log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
					With().Timestamp().Logger()
				command.WithLogger(log)
			}
			if !quiet {
				command.WithStdoutTarget(shellfish.LineWriter(cmd.OutOrStdout()))
				command.WithStderrTarget(shellfish.LineWriter(cmd.ErrOrStderr()))
			}

			if user != "" {
				secret, err := readSecret(user, domain)
				if err != nil {
					return err
				}
				command.WithCredential(user, domain, secret)
			}

			if stdin == nil && !noStdin {
				stdin = pipedInput()
			}
			if stdin != nil {
				command.WithInput(stdin)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result, err := command.Run(ctx)
			if err != nil {
				return err
			}
			if result.ExitCode != 0 {
				return &exitCodeError{code: result.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&specFile, "spec", "f", "", "Path to a YAML command spec")
	cmd.Flags().StringVarP(&workdir, "workdir", "w", "", "Working directory for the child")
	cmd.Flags().StringArrayVarP(&envPairs, "env", "e", nil, "Environment override NAME=value (repeatable)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load environment overrides from a dotenv file")
	cmd.Flags().StringVar(&rawArgs, "raw-args", "", "Pre-joined argument string passed to the OS as is")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Run as this user (prompts for the password)")
	cmd.Flags().StringVar(&domain, "domain", "", "Domain for --user")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the process tree after this duration")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Discard the child's output")
	cmd.Flags().BoolVar(&noStdin, "no-stdin", false, "Never forward this process's stdin")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log engine lifecycle events to stderr")

	return cmd
}

func buildCommand(args []string, specFile, workdir, rawArgs string, envPairs []string, envFile string) (*shellfish.Command, shellfish.InputSource, error) {
	var (
		command *shellfish.Command
		stdin   shellfish.InputSource
	)

	switch {
	case specFile != "":
		if len(args) > 0 || rawArgs != "" {
			return nil, nil, fmt.Errorf("--spec cannot be combined with positional arguments")
		}
		spec, err := LoadSpec(specFile)
		if err != nil {
			return nil, nil, err
		}
		command = spec.Command()
		if len(spec.Stdin) > 0 {
			queue := shellfish.NewInputQueue()
			for _, line := range spec.Stdin {
				queue.WriteLine(line)
			}
			queue.Close()
			stdin = queue
		}
	case len(args) > 0:
		command = shellfish.NewCommand(args[0])
		if len(args) > 1 {
			command.WithArguments(args[1:]...)
		}
		if rawArgs != "" {
			command.WithRawArguments(rawArgs)
		}
	default:
		return nil, nil, fmt.Errorf("nothing to run: pass an executable or --spec")
	}

	if workdir != "" {
		command.WithWorkingDirectory(workdir)
	}

	if envFile != "" {
		fromFile, err := godotenv.Read(envFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		command.WithEnvironment(fromFile)
	}
	if len(envPairs) > 0 {
		overrides := make(map[string]string, len(envPairs))
		for _, pair := range envPairs {
			name, value, ok := strings.Cut(pair, "=")
			if !ok || name == "" {
				return nil, nil, fmt.Errorf("malformed --env %q, want NAME=value", pair)
			}
			overrides[name] = value
		}
		command.WithEnvironment(overrides)
	}

	return command, stdin, nil
}

// readSecret takes the password from SHELLFISH_PASSWORD when present (for
// non-interactive hosts), otherwise prompts on the terminal without echo.
func readSecret(user, domain string) (string, error) {
	if secret, ok := os.LookupEnv("SHELLFISH_PASSWORD"); ok {
		return secret, nil
	}
	who := user
	if domain != "" {
		who = domain + "\\" + user
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", who)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}

// pipedInput forwards this process's stdin to the child when it is a pipe or
// file. A terminal stdin is not forwarded; interactive callers use --spec
// stdin lines or shell redirection instead.
func pipedInput() shellfish.InputSource {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	queue := shellfish.NewInputQueue()
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			queue.WriteLine(scanner.Text())
		}
		queue.Close()
	}()
	return queue
}
