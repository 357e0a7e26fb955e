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


package binding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"
)

func TestEnvironment_Environ(t *testing.T) {
	env := Environment{
		"VAULT_ADDR":  "https://vault.example:8200",
		"VAULT_TOKEN": "s.abc123",
	}

	base := []string{
		"PATH=/usr/bin",
		"VAULT_TOKEN=s.stale",
		"HOME=/home/ci",
		"MALFORMED",
	}

	expected := []string{
		"PATH=/usr/bin",
		"HOME=/home/ci",
		"MALFORMED",
		"VAULT_ADDR=https://vault.example:8200",
		"VAULT_TOKEN=s.abc123",
	}
	if diff := cmp.Diff(expected, env.Environ(base)); diff != "" {
		t.Fatalf("Environ differs:\n%v", diff)
	}
}

func TestEnvironment_Keys(t *testing.T) {
	env := Environment{"B": "", "A": "", "C": ""}
	if diff := cmp.Diff([]string{"A", "B", "C"}, env.Keys()); diff != "" {
		t.Fatalf("Keys differ:\n%v", diff)
	}

	if got := (Environment{}).Keys(); len(got) != 0 {
		t.Fatalf("Expected no keys, got %v", got)
	}
}

func TestAuthenticationFailedError_Redacts(t *testing.T) {
	cause := xerrors.New("bad secret_id abc and role_id xyz")
	err := newAuthenticationFailedError("https://vault.example:8200", cause, []string{"abc", "", "xyz"})

	expected := "could not log in into vault at https://vault.example:8200: bad secret_id <redacted> and role_id <redacted>"
	if err.Error() != expected {
		t.Fatalf("Expected error:\n\t%s\nGot:\n\t%s", expected, err.Error())
	}
	if !xerrors.Is(err, cause) {
		t.Fatal("Expected error to wrap its cause")
	}
}
