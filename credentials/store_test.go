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


package credentials

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/xerrors"

	test "github.com/morningconsult/vault-env-binding/testing"
	"github.com/morningconsult/vault-env-binding/vault"
)

func TestNewStore(t *testing.T) {
	cred := &vault.TokenCredential{Value: "s.static"}

	cases := []struct {
		name    string
		entries []Entry
		err     string
	}{
		{
			name:    "empty",
			entries: nil,
		},
		{
			name: "same-id-different-folders",
			entries: []Entry{
				{ID: "vault", Credential: cred},
				{ID: "vault", Folder: "team-a", Credential: cred},
			},
		},
		{
			name:    "no-id",
			entries: []Entry{{Credential: cred}},
			err:     "credential 1 has no ID",
		},
		{
			name:    "no-credential",
			entries: []Entry{{ID: "vault"}},
			err:     `credential "vault" has no value`,
		},
		{
			name: "duplicate",
			entries: []Entry{
				{ID: "vault", Folder: "team-a", Credential: cred},
				{ID: "vault", Folder: "/team-a/", Credential: cred},
			},
			err: `duplicate credential "vault" in folder "team-a"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStore(tc.entries...)
			test.ErrorsEqual(t, err, tc.err)
		})
	}
}

func TestStore_Resolve(t *testing.T) {
	global := &vault.TokenCredential{Value: "global"}
	teamA := &vault.TokenCredential{Value: "team-a"}
	teamAAPI := &vault.TokenCredential{Value: "team-a/api"}
	teamB := &vault.TokenCredential{Value: "team-b"}

	store, err := NewStore(
		Entry{ID: "vault", Credential: global},
		Entry{ID: "vault", Folder: "team-a", Credential: teamA},
		Entry{ID: "vault", Folder: "team-a/api", Credential: teamAAPI},
		Entry{ID: "team-b-only", Folder: "team-b", Credential: teamB},
	)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		id       string
		job      string
		expected vault.Credential
	}{
		{"top-level-job", "vault", "deploy", global},
		{"no-job", "vault", "", global},
		{"folder", "vault", "team-a/deploy", teamA},
		{"nested-folder", "vault", "team-a/api/deploy", teamAAPI},
		{"deeper-than-any-folder", "vault", "team-a/api/release/deploy", teamAAPI},
		{"job-named-like-folder", "vault", "team-a/api", teamA},
		{"sibling-folder", "vault", "team-b/deploy", global},
		{"folder-only", "team-b-only", "team-b/deploy", teamB},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cred, err := store.Resolve(context.Background(), tc.id, Run{Job: tc.job})
			if err != nil {
				t.Fatal(err)
			}
			if cred != tc.expected {
				t.Fatalf("Expected credential %v, got %v", tc.expected, cred)
			}
		})
	}
}

func TestStore_Resolve_NotFound(t *testing.T) {
	store, err := NewStore(Entry{ID: "team-b-only", Folder: "team-b", Credential: &vault.TokenCredential{}})
	if err != nil {
		t.Fatal(err)
	}

	for _, job := range []string{"deploy", "team-a/deploy", "team-bee/deploy"} {
		_, err = store.Resolve(context.Background(), "team-b-only", Run{Job: job})
		if !xerrors.Is(err, ErrNotFound) {
			t.Fatalf("job %q: expected ErrNotFound, got %v", job, err)
		}
	}
}

func TestStore_Resolve_Cancelled(t *testing.T) {
	store, err := NewStore(Entry{ID: "vault", Credential: &vault.TokenCredential{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err = store.Resolve(ctx, "vault", Run{}); !xerrors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestStore_IDs(t *testing.T) {
	cred := &vault.TokenCredential{}
	store, err := NewStore(
		Entry{ID: "vault", Credential: cred},
		Entry{ID: "vault", Folder: "team-a", Credential: cred},
		Entry{ID: "approle", Folder: "team-a", Credential: cred},
		Entry{ID: "other", Folder: "team-b", Credential: cred},
	)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"approle", "vault"}
	if diff := cmp.Diff(expected, store.IDs(Run{Job: "team-a/deploy"})); diff != "" {
		t.Fatalf("IDs differ:\n%v", diff)
	}
}
