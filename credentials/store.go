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


// Package credentials resolves credential IDs to stored Vault
// credentials. Credentials live either in the global store or in a
// folder; a run sees the credentials of every folder enclosing its
// job, and the innermost folder wins when IDs collide.
package credentials

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	"github.com/morningconsult/vault-env-binding/vault"
)

// ErrNotFound is returned when no credential with the requested ID is
// visible to the run.
var ErrNotFound = xerrors.New("credential not found")

// Run identifies the execution which asks for a credential.
type Run struct {
	// Job is the slash-separated full name of the job, such as
	// "team-a/api/deploy".
	Job string
}

// Entry is a stored credential.
type Entry struct {
	ID          string
	Folder      string
	Description string
	Credential  vault.Credential
}

type key struct {
	folder string
	id     string
}

// Store is an immutable set of credentials. It is safe for
// concurrent use.
type Store struct {
	entries map[key]Entry
}

// NewStore creates a store holding entries.
func NewStore(entries ...Entry) (*Store, error) {
	s := &Store{entries: make(map[key]Entry, len(entries))}

	for i, e := range entries {
		if e.ID == "" {
			return nil, xerrors.Errorf("credential %d has no ID", i+1)
		}
		if e.Credential == nil {
			return nil, xerrors.Errorf("credential %q has no value", e.ID)
		}

		e.Folder = cleanFolder(e.Folder)
		k := key{folder: e.Folder, id: e.ID}
		if _, ok := s.entries[k]; ok {
			return nil, xerrors.Errorf("duplicate credential %q in folder %q", e.ID, e.Folder)
		}
		s.entries[k] = e
	}

	return s, nil
}

// Resolve returns the credential with the given ID from the innermost
// folder enclosing the run's job.
func (s *Store) Resolve(ctx context.Context, id string, run Run) (vault.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, folder := range enclosingFolders(run.Job) {
		if e, ok := s.entries[key{folder: folder, id: id}]; ok {
			return e.Credential, nil
		}
	}

	return nil, xerrors.Errorf("%q: %w", id, ErrNotFound)
}

// IDs returns the sorted IDs of every credential visible to run.
func (s *Store) IDs(run Run) []string {
	seen := make(map[string]struct{})
	for _, folder := range enclosingFolders(run.Job) {
		for k := range s.entries {
			if k.folder == folder {
				seen[k.id] = struct{}{}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// enclosingFolders returns the folders containing job, innermost
// first, ending with the global folder "". The job itself is not a
// folder.
func enclosingFolders(job string) []string {
	parts := strings.Split(cleanFolder(job), "/")
	folders := make([]string, 0, len(parts))
	for i := len(parts) - 1; i > 0; i-- {
		folders = append(folders, strings.Join(parts[:i], "/"))
	}
	return append(folders, "")
}

func cleanFolder(folder string) string {
	return strings.Trim(folder, "/")
}
