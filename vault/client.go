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
	"time"

	"github.com/hashicorp/vault/api"
	"golang.org/x/xerrors"
)

// TLSConfig holds the TLS material used when talking to Vault.
// Paths are handed to the Vault API client as-is; the files are
// read when the client is created.
type TLSConfig struct {
	CACert     string
	ClientCert string
	ClientKey  string
	Insecure   bool
}

// ClientConfig is used to create a new Vault API client
type ClientConfig struct {
	Address   string
	Namespace string
	TLS       *TLSConfig
	Timeout   time.Duration

	// MaxRetries is passed through to the Vault API client. Zero
	// disables retries.
	MaxRetries int
}

// NewClient creates a Vault API client for the given address. The
// returned client never carries a token, even if VAULT_TOKEN is set
// in the environment, and only carries a namespace if one was
// configured.
func NewClient(cfg ClientConfig) (*api.Client, error) {
	if cfg.Address == "" {
		return nil, xerrors.New("no Vault address provided")
	}

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, xerrors.Errorf("error reading Vault environment: %w", config.Error)
	}

	config.Address = cfg.Address
	config.MaxRetries = cfg.MaxRetries
	if cfg.Timeout > 0 {
		config.Timeout = cfg.Timeout
	}

	if cfg.TLS != nil {
		err := config.ConfigureTLS(&api.TLSConfig{
			CACert:     cfg.TLS.CACert,
			ClientCert: cfg.TLS.ClientCert,
			ClientKey:  cfg.TLS.ClientKey,
			Insecure:   cfg.TLS.Insecure,
		})
		if err != nil {
			return nil, xerrors.Errorf("error configuring TLS: %w", err)
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, xerrors.Errorf("error creating Vault API client: %w", err)
	}

	client.ClearToken()

	// The API client picks up VAULT_NAMESPACE on its own
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	} else {
		client.ClearNamespace()
	}

	return client, nil
}
