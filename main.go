// Copyright 2019 The Morning Consult, LLC or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//         https://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.


package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/xerrors"

	"github.com/morningconsult/vault-env-binding/binding"
	"github.com/morningconsult/vault-env-binding/config"
	"github.com/morningconsult/vault-env-binding/credentials"
	"github.com/morningconsult/vault-env-binding/logging"
	"github.com/morningconsult/vault-env-binding/version"
)

const (
	banner = "vault-env-binding version %v, commit %v, built %v\n"
	usage  = "usage: vault-env-binding [flags] -- command [args...]"

	defaultConfigFile = "/etc/vault-env-binding/config.hcl"

	envConfigFile = "VEB_CONFIG_FILE"
	envJobName    = "JOB_NAME"

	// Time a child is given to exit after SIGTERM before it is killed.
	killDelay = 10 * time.Second
)

const (
	exitOK = iota
	exitError
	exitInvalidConfiguration
	exitCredentialNotFound
	exitAuthenticationFailed

	exitCommandNotFound = 127
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int { // nolint: funlen
	var (
		versionFlag, variablesFlag bool
		configFile, credentialID   string
		job                        string
	)

	flags := flag.NewFlagSet("vault-env-binding", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.BoolVar(&versionFlag, "version", false, "print version and exit")
	flags.BoolVar(&variablesFlag, "variables", false, "print the names of the bound variables and exit")
	flags.StringVar(&configFile, "config", defaultConfigFile, "path to the configuration file")
	flags.StringVar(&credentialID, "credential", "", "ID of the credential used to log in (overrides binding.credential_id)")
	flags.StringVar(&job, "job", os.Getenv(envJobName), "path of the job the command runs for")
	if err := flags.Parse(args); err != nil {
		if xerrors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	// Exit safely when version is used
	if versionFlag {
		fmt.Fprintf(stdout, banner, version.Version, version.Commit, version.Date)
		return exitOK
	}

	// Get path to config file
	if f := os.Getenv(envConfigFile); f != "" {
		configFile = f
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "error parsing configuration file: %v\n", err)
		return exitInvalidConfiguration
	}

	bindingConfig, err := cfg.BindingConfig(credentialID)
	if err != nil {
		return fail(stderr, err)
	}

	// Listing the variables never contacts Vault
	if variablesFlag {
		fmt.Fprintln(stdout, strings.Join(binding.DeclaredVariables(bindingConfig), "\n"))
		return exitOK
	}

	command := flags.Args()
	if len(command) == 0 {
		fmt.Fprintln(stderr, usage)
		return exitError
	}

	logger, closer, err := logging.New(&logging.Options{
		LogDir: cfg.LogDir,
		Level:  cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error creating logger: %v\n", err)
		return exitError
	}
	defer closer.Close()

	store, err := cfg.Store()
	if err != nil {
		fmt.Fprintf(stderr, "error building credential store: %v\n", err)
		return exitInvalidConfiguration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	binder := binding.New(binding.Options{
		Logger:   logger.Named("binder"),
		Resolver: store,
		Timeout:  cfg.ClientTimeout(),
	})

	env, err := binder.Bind(ctx, bindingConfig, credentials.Run{Job: job})
	if err != nil {
		return fail(stderr, err)
	}

	return runCommand(ctx, logger, command, env, stdin, stdout, stderr)
}

func runCommand(
	ctx context.Context,
	logger hclog.Logger,
	command []string,
	env binding.Environment,
	stdin io.Reader,
	stdout, stderr io.Writer,
) int {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...) // nolint: gosec
	cmd.Env = env.Environ(os.Environ())
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killDelay

	logger.Debug("running command", "command", command[0])

	err := cmd.Run()
	if err == nil {
		return exitOK
	}

	var exitErr *exec.ExitError
	if xerrors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		logger.Warn("command was terminated", "command", command[0], "error", err)
		return exitError
	}

	fmt.Fprintf(stderr, "error running %s: %v\n", command[0], err)
	if xerrors.Is(err, exec.ErrNotFound) {
		return exitCommandNotFound
	}
	return exitError
}

// fail reports a binding error by category and returns its exit code.
func fail(stderr io.Writer, err error) int {
	code := exitCode(err)

	msg := err.Error()
	if c := category(code); c != "" && !strings.HasPrefix(msg, c) {
		msg = c + ": " + msg
	}
	fmt.Fprintln(stderr, msg)
	return code
}

func category(code int) string {
	switch code {
	case exitInvalidConfiguration:
		return binding.ErrInvalidConfiguration.Error()
	case exitCredentialNotFound:
		return binding.ErrCredentialNotFound.Error()
	case exitAuthenticationFailed:
		return binding.ErrAuthenticationFailed.Error()
	default:
		return ""
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case xerrors.Is(err, binding.ErrInvalidConfiguration):
		return exitInvalidConfiguration
	case xerrors.Is(err, binding.ErrCredentialNotFound):
		return exitCredentialNotFound
	case xerrors.Is(err, binding.ErrAuthenticationFailed):
		return exitAuthenticationFailed
	default:
		return exitError
	}
}
