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

	"github.com/hashicorp/vault/api"
)

const defaultGitHubMountPath = "github"

// GitHubCredential logs into Vault with a GitHub personal access
// token.
type GitHubCredential struct {
	AccessToken string `mapstructure:"access_token"`
	MountPath   string `mapstructure:"mount_path"`
}

func (c *GitHubCredential) Token(ctx context.Context, client *api.Client) (string, error) {
	return login(ctx, client, loginPath(c.MountPath, defaultGitHubMountPath), map[string]interface{}{
		"token": c.AccessToken,
	})
}

func (c *GitHubCredential) SensitiveValues() []string {
	return nonEmpty(c.AccessToken)
}
