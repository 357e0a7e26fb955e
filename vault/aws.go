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
	"encoding/base64"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/sdk/helper/jsonutil"
	"golang.org/x/xerrors"
)

const (
	defaultAWSMountPath = "aws"

	// The STS endpoint is global, but SigV4 still needs a region in
	// the string to sign.
	defaultAWSRegion = "us-east-1"

	iamServerIDHeader = "X-Vault-AWS-IAM-Server-ID"
)

// AWSIAMCredential logs into Vault's AWS auth method by signing an
// sts:GetCallerIdentity request with the AWS credentials of the
// build host (environment, shared config or instance profile).
type AWSIAMCredential struct {
	// Role is the Vault role bound to the caller's IAM principal
	Role string `mapstructure:"role"`

	// ServerID, if set, is signed into the request as the
	// X-Vault-AWS-IAM-Server-ID header.
	ServerID string `mapstructure:"server_id"`

	Region    string `mapstructure:"region"`
	MountPath string `mapstructure:"mount_path"`
}

func (c *AWSIAMCredential) Token(ctx context.Context, client *api.Client) (string, error) {
	payload, err := c.loginData()
	if err != nil {
		return "", xerrors.Errorf("error building sts:GetCallerIdentity request: %w", err)
	}

	return login(ctx, client, loginPath(c.MountPath, defaultAWSMountPath), payload)
}

func (c *AWSIAMCredential) loginData() (map[string]interface{}, error) {
	region := c.Region
	if region == "" {
		region = defaultAWSRegion
	}

	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, xerrors.Errorf("error creating AWS session: %w", err)
	}

	req, _ := sts.New(sess).GetCallerIdentityRequest(nil)
	if c.ServerID != "" {
		req.HTTPRequest.Header.Add(iamServerIDHeader, c.ServerID)
	}
	if err = req.Sign(); err != nil {
		return nil, err
	}

	headers, err := jsonutil.EncodeJSON(req.HTTPRequest.Header)
	if err != nil {
		return nil, xerrors.Errorf("error encoding request headers: %w", err)
	}

	body, err := ioutil.ReadAll(req.HTTPRequest.Body)
	if err != nil {
		return nil, xerrors.Errorf("error reading request body: %w", err)
	}

	return map[string]interface{}{
		"role":                    c.Role,
		"iam_http_request_method": req.HTTPRequest.Method,
		"iam_request_url":         base64.StdEncoding.EncodeToString([]byte(req.HTTPRequest.URL.String())),
		"iam_request_headers":     base64.StdEncoding.EncodeToString(headers),
		"iam_request_body":        base64.StdEncoding.EncodeToString(body),
	}, nil
}
