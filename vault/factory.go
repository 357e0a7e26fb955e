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
	"github.com/mitchellh/mapstructure"
	"golang.org/x/xerrors"
)

type field struct {
	name  string
	value string
}

// BuildCredential creates a new credential of the given kind from its
// raw configuration. Unknown keys and missing required fields are
// rejected.
func BuildCredential(kind string, raw map[string]interface{}) (Credential, error) { // nolint: gocyclo
	var (
		cred     Credential
		required func() []field
	)

	switch kind {
	case "token":
		c := &TokenCredential{}
		cred = c
		required = func() []field { return []field{{"token", c.Value}} }
	case "token_file":
		c := &TokenFileCredential{}
		cred = c
		required = func() []field { return []field{{"path", c.Path}} }
	case "approle":
		c := &AppRoleCredential{}
		cred = c
		required = func() []field { return []field{{"role_id", c.RoleID}} }
	case "github":
		c := &GitHubCredential{}
		cred = c
		required = func() []field { return []field{{"access_token", c.AccessToken}} }
	case "kubernetes":
		c := &KubernetesCredential{}
		cred = c
		required = func() []field { return []field{{"role", c.Role}} }
	case "userpass":
		c := &UserpassCredential{}
		cred = c
		required = func() []field { return []field{{"username", c.Username}, {"password", c.Password}} }
	case "aws":
		c := &AWSIAMCredential{}
		cred = c
		required = func() []field { return []field{{"role", c.Role}} }
	default:
		return nil, xerrors.Errorf("unknown credential type %q", kind)
	}

	if err := decode(raw, cred); err != nil {
		return nil, xerrors.Errorf("error decoding %s credential: %w", kind, err)
	}

	for _, f := range required() {
		if f.value == "" {
			return nil, xerrors.Errorf("field %q of %s credential is required", f.name, kind)
		}
	}

	return cred, nil
}

func decode(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
