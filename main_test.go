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
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"

	"github.com/morningconsult/vault-env-binding/binding"
	test "github.com/morningconsult/vault-env-binding/testing"
)

const envHelperProcess = "VEB_WANT_HELPER_PROCESS"

// TestHelperProcess is the child command of the tests below. It prints
// the bound variables and exits with the code given after "--".
func TestHelperProcess(t *testing.T) {
	if os.Getenv(envHelperProcess) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	code := 0
	if len(args) > 1 {
		code, _ = strconv.Atoi(args[1])
	}

	fmt.Printf("VAULT_ADDR=%s\n", os.Getenv("VAULT_ADDR"))
	fmt.Printf("VAULT_NAMESPACE=%s\n", os.Getenv("VAULT_NAMESPACE"))
	fmt.Printf("VAULT_TOKEN=%s\n", os.Getenv("VAULT_TOKEN"))
	os.Exit(code)
}

func helperCommand(code int) []string {
	return []string{"--", os.Args[0], "-test.run=TestHelperProcess", "--", strconv.Itoa(code)}
}

func setupEnv(t *testing.T) {
	t.Helper()

	t.Setenv(envHelperProcess, "1")
	t.Setenv(envConfigFile, "")
	t.Setenv("VEB_LOG_DIR", "")
	t.Setenv("VEB_LOG_LEVEL", "error")
	t.Setenv("VAULT_TOKEN", "s.from-parent")
	t.Setenv("VAULT_NAMESPACE", "")
}

func writeConfig(t *testing.T, address, credential string) string {
	t.Helper()

	data := fmt.Sprintf(`
vault {
  address   = %q
  namespace = "team-a"
}

binding {
  credential_id = "deploy"
}

%s
`, address, credential)
	return test.MakeFile(t, t.TempDir(), "config.hcl", []byte(data))
}

func TestRun_TokenCredential(t *testing.T) {
	setupEnv(t)

	configFile := writeConfig(t, "https://vault.example:8200", `
credential "deploy" {
  type   = "token"
  folder = "team-a"
  token  = "s.abc123"
}
`)

	var stdout, stderr bytes.Buffer
	args := append([]string{"-config", configFile, "-job", "team-a/deploy"}, helperCommand(0)...)
	code := run(args, nil, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("Expected exit code %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}

	expected := "VAULT_ADDR=https://vault.example:8200\nVAULT_NAMESPACE=team-a\nVAULT_TOKEN=s.abc123\n"
	if diff := cmp.Diff(expected, stdout.String()); diff != "" {
		t.Fatalf("Child environment differs:\n%v", diff)
	}
}

func TestRun_AppRole(t *testing.T) {
	setupEnv(t)

	server := test.NewMockVaultServer(t, test.MockVaultOptions{
		Logins: map[string]test.LoginCheck{
			"auth/approle/login": test.ExpectPayload(map[string]interface{}{
				"role_id":   "role-id",
				"secret_id": "secret-id",
			}),
		},
		Token: "s.approle",
	})

	configFile := writeConfig(t, server.URL, `
credential "deploy" {
  type      = "approle"
  role_id   = "role-id"
  secret_id = "secret-id"
}
`)
	t.Setenv(envConfigFile, configFile)

	var stdout, stderr bytes.Buffer
	code := run(helperCommand(0), nil, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("Expected exit code %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "VAULT_TOKEN=s.approle\n") {
		t.Fatalf("Expected the child to receive the token, got:\n%s", stdout.String())
	}
}

func TestRun_ChildExitCode(t *testing.T) {
	setupEnv(t)

	configFile := writeConfig(t, "https://vault.example:8200", `
credential "deploy" {
  type  = "token"
  token = "s.abc123"
}
`)

	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", configFile}, helperCommand(7)...), nil, &stdout, &stderr)
	if code != 7 {
		t.Fatalf("Expected exit code 7, got %d (stderr: %s)", code, stderr.String())
	}
}

func TestRun_Failures(t *testing.T) {
	cases := []struct {
		name       string
		address    string
		credential string
		args       []string
		exit       int
		stderr     string
	}{
		{
			name:    "credential-not-found",
			address: "https://vault.example:8200",
			credential: `
credential "deploy" {
  type   = "token"
  folder = "team-b"
  token  = "s.abc123"
}
`,
			args:   []string{"-job", "team-a/deploy"},
			exit:   exitCredentialNotFound,
			stderr: `credential not found: "deploy"`,
		},
		{
			name:    "authentication-failed",
			address: "http://127.0.0.1:1",
			credential: `
credential "deploy" {
  type      = "approle"
  role_id   = "role-id"
  secret_id = "hunter2"
}
`,
			exit:   exitAuthenticationFailed,
			stderr: "authentication failed: could not log in into vault at http://127.0.0.1:1",
		},
		{
			name:    "invalid-configuration",
			address: "https://vault.example:8200",
			args:    []string{"-credential", " "},
			exit:    exitInvalidConfiguration,
			stderr:  "invalid configuration: credential ID is empty",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t)

			configFile := writeConfig(t, tc.address, tc.credential)

			var stdout, stderr bytes.Buffer
			args := append([]string{"-config", configFile}, tc.args...)
			code := run(append(args, helperCommand(0)...), nil, &stdout, &stderr)
			if code != tc.exit {
				t.Fatalf("Expected exit code %d, got %d (stderr: %s)", tc.exit, code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.stderr) {
				t.Fatalf("Expected stderr to contain %q, got:\n%s", tc.stderr, stderr.String())
			}
			if strings.Contains(stderr.String(), "hunter2") {
				t.Fatalf("Secret leaked to stderr:\n%s", stderr.String())
			}
			if stdout.Len() != 0 {
				t.Fatalf("Expected the command not to run, got:\n%s", stdout.String())
			}
		})
	}
}

func TestRun_Variables(t *testing.T) {
	setupEnv(t)

	server := test.NewMockVaultServer(t, test.MockVaultOptions{})
	configFile := writeConfig(t, server.URL, `
credential "deploy" {
  type      = "approle"
  role_id   = "role-id"
  secret_id = "secret-id"
}
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", configFile, "-variables"}, nil, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("Expected exit code %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}

	expected := "VAULT_ADDR\nVAULT_NAMESPACE\nVAULT_TOKEN\n"
	if diff := cmp.Diff(expected, stdout.String()); diff != "" {
		t.Fatalf("Variables differ:\n%v", diff)
	}
	if n := len(server.Requests()); n != 0 {
		t.Fatalf("Expected no requests to Vault, got %d", n)
	}
}

func TestRun_Usage(t *testing.T) {
	setupEnv(t)

	configFile := writeConfig(t, "https://vault.example:8200", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", configFile}, nil, &stdout, &stderr)
	if code != exitError {
		t.Fatalf("Expected exit code %d, got %d", exitError, code)
	}
	if !strings.Contains(stderr.String(), usage) {
		t.Fatalf("Expected usage, got:\n%s", stderr.String())
	}
}

func TestRun_BadConfigFile(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", t.TempDir(), "--", "true"}, nil, &stdout, &stderr)
	if code != exitInvalidConfiguration {
		t.Fatalf("Expected exit code %d, got %d", exitInvalidConfiguration, code)
	}
	if !strings.Contains(stderr.String(), "location is a directory, not a file") {
		t.Fatalf("Unexpected error output:\n%s", stderr.String())
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, exitOK},
		{"invalid-configuration", &binding.InvalidConfigurationError{Field: "address", Reason: "is empty"}, exitInvalidConfiguration},
		{"credential-not-found", &binding.CredentialNotFoundError{ID: "deploy"}, exitCredentialNotFound},
		{"authentication-failed", &binding.AuthenticationFailedError{Address: "https://vault.example:8200"}, exitAuthenticationFailed},
		{"wrapped", xerrors.Errorf("binding: %w", &binding.CredentialNotFoundError{ID: "deploy"}), exitCredentialNotFound},
		{"other", xerrors.New("boom"), exitError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.expected {
				t.Fatalf("Expected exit code %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-version"}, nil, &stdout, &stderr); code != exitOK {
		t.Fatalf("Expected exit code %d, got %d", exitOK, code)
	}
	if !strings.HasPrefix(stdout.String(), "vault-env-binding version dev") {
		t.Fatalf("Unexpected banner: %q", stdout.String())
	}
}
