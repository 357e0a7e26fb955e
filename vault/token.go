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


package vault

import (
	"context"
	"io/ioutil"
	"strings"

	"github.com/hashicorp/vault/api"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

// TokenCredential is a Vault token stored as-is.
type TokenCredential struct {
	Value string `mapstructure:"token"`
}

// Token returns the stored token without contacting Vault.
func (c *TokenCredential) Token(_ context.Context, _ *api.Client) (string, error) {
	return c.Value, nil
}

func (c *TokenCredential) SensitiveValues() []string {
	return nonEmpty(c.Value)
}

// TokenFileCredential reads a Vault token from a file on every call,
// so the file may be rotated between builds.
type TokenFileCredential struct {
	Path string `mapstructure:"path"`
}

func (c *TokenFileCredential) Token(_ context.Context, _ *api.Client) (string, error) {
	p, err := homedir.Expand(c.Path)
	if err != nil {
		return "", xerrors.Errorf("error expanding token file path %s: %w", c.Path, err)
	}

	data, err := ioutil.ReadFile(p) // nolint: gosec
	if err != nil {
		return "", xerrors.Errorf("error reading token file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
