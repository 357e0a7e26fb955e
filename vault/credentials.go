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
	"path"

	"github.com/hashicorp/vault/api"
	"golang.org/x/xerrors"
)

// Credential is implemented by every stored credential that can be
// exchanged for a Vault token.
type Credential interface {
	// Token logs into Vault with the given client, if necessary, and
	// returns the resulting client token. It does not set the token
	// on the client.
	Token(ctx context.Context, client *api.Client) (string, error)
}

// Sensitive is implemented by credentials which hold secret material
// that must never appear in error messages or logs.
type Sensitive interface {
	SensitiveValues() []string
}

// login writes payload to endpoint and returns the client token of
// the response. A response without an auth block yields an empty
// token and no error.
func login(ctx context.Context, client *api.Client, endpoint string, payload map[string]interface{}) (string, error) {
	secret, err := client.Logical().WriteWithContext(ctx, endpoint, payload)
	if err != nil {
		return "", xerrors.Errorf("error logging in at %s: %w", endpoint, err)
	}

	if secret == nil {
		return "", nil
	}

	token, err := secret.TokenID()
	if err != nil {
		return "", xerrors.Errorf("error reading token from Vault response: %w", err)
	}

	return token, nil
}

func loginPath(mount, fallback string, suffix ...string) string {
	if mount == "" {
		mount = fallback
	}
	return path.Join(append([]string{"auth", mount, "login"}, suffix...)...)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
