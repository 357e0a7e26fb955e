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

const (
	defaultKubernetesMountPath = "kubernetes"

	// DefaultKubernetesTokenPath is where the pod's service account
	// token is mounted.
	DefaultKubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
)

// KubernetesCredential logs into Vault with the service account
// token of the pod the build runs in.
type KubernetesCredential struct {
	Role      string `mapstructure:"role"`
	MountPath string `mapstructure:"mount_path"`
	TokenPath string `mapstructure:"token_path"`
}

func (c *KubernetesCredential) Token(ctx context.Context, client *api.Client) (string, error) {
	tokenPath := c.TokenPath
	if tokenPath == "" {
		tokenPath = DefaultKubernetesTokenPath
	}

	tokenPath, err := homedir.Expand(tokenPath)
	if err != nil {
		return "", xerrors.Errorf("error expanding service account token path: %w", err)
	}

	jwt, err := ioutil.ReadFile(tokenPath) // nolint: gosec
	if err != nil {
		return "", xerrors.Errorf("error reading service account token: %w", err)
	}

	return login(ctx, client, loginPath(c.MountPath, defaultKubernetesMountPath), map[string]interface{}{
		"role": c.Role,
		"jwt":  strings.TrimSpace(string(jwt)),
	})
}
