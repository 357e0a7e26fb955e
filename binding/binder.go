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


// Package binding logs into Vault with a stored credential and binds
// the Vault address, namespace and token to environment variables for
// the duration of a single build step.
package binding

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/vault/api"
	"golang.org/x/xerrors"

	"github.com/morningconsult/vault-env-binding/credentials"
	"github.com/morningconsult/vault-env-binding/vault"
)

// Resolver looks up a stored credential by ID on behalf of a run.
type Resolver interface {
	Resolve(ctx context.Context, id string, run credentials.Run) (vault.Credential, error)
}

// ClientFactory creates the Vault API client handed to a credential.
type ClientFactory func(vault.ClientConfig) (*api.Client, error)

// Options is used to configure a new Binder instance
type Options struct {
	Logger    hclog.Logger
	Resolver  Resolver
	NewClient ClientFactory

	// Timeout bounds each request made by the Vault API client.
	// Zero keeps the client's default.
	Timeout time.Duration
}

// Binder produces the environment of a build step which needs to talk
// to Vault. A Binder holds no per-call state and may be used
// concurrently as long as its Resolver may.
type Binder struct {
	logger    hclog.Logger
	resolver  Resolver
	newClient ClientFactory
	timeout   time.Duration
}

// New creates a new Binder instance
func New(opts Options) *Binder {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	newClient := opts.NewClient
	if newClient == nil {
		newClient = vault.NewClient
	}

	return &Binder{
		logger:    logger,
		resolver:  opts.Resolver,
		newClient: newClient,
		timeout:   opts.Timeout,
	}
}

// Bind logs into Vault with the credential named by cfg and returns
// the address, namespace and token variables. Variables are assigned
// in that order, so when names collide the token wins over the
// namespace, which wins over the address.
func (b *Binder) Bind(ctx context.Context, cfg Config, run credentials.Run) (Environment, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := b.logger.With("credential", cfg.CredentialID(), "address", cfg.Address())

	cred, err := b.resolve(ctx, cfg.CredentialID(), run)
	if err != nil {
		logger.Error("error resolving credential", "error", err)
		return nil, err
	}

	token, err := b.token(ctx, logger, cfg, cred)
	if err != nil {
		logger.Error("error logging in", "error", err)
		return nil, err
	}

	if token == "" {
		logger.Warn("vault returned no token; binding an empty value", "variable", cfg.TokenVariable())
	}

	env := make(Environment, 3)
	env[cfg.AddressVariable()] = cfg.Address()
	env[cfg.NamespaceVariable()] = cfg.Namespace()
	env[cfg.TokenVariable()] = token

	logger.Info("bound vault environment", "variables", env.Keys())
	return env, nil
}

// DeclaredVariables returns the sorted names of the variables Bind
// sets for cfg. It performs no I/O.
func (b *Binder) DeclaredVariables(cfg Config) []string {
	return DeclaredVariables(cfg)
}

// DeclaredVariables returns the sorted, de-duplicated names of the
// variables bound for cfg.
func DeclaredVariables(cfg Config) []string {
	set := map[string]struct{}{
		cfg.AddressVariable():   {},
		cfg.NamespaceVariable(): {},
		cfg.TokenVariable():     {},
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Binder) resolve(ctx context.Context, id string, run credentials.Run) (vault.Credential, error) {
	if b.resolver == nil {
		return nil, &CredentialNotFoundError{ID: id, Err: xerrors.New("no credential resolver configured")}
	}

	cred, err := b.resolver.Resolve(ctx, id, run)
	if err != nil {
		return nil, &CredentialNotFoundError{ID: id, Err: err}
	}
	if cred == nil {
		return nil, &CredentialNotFoundError{ID: id, Err: xerrors.New("credential cannot produce a Vault token")}
	}
	return cred, nil
}

func (b *Binder) token(ctx context.Context, logger hclog.Logger, cfg Config, cred vault.Credential) (string, error) {
	var sensitive []string
	if s, ok := cred.(vault.Sensitive); ok {
		sensitive = s.SensitiveValues()
	}

	client, err := b.newClient(b.clientConfig(logger, cfg))
	if err != nil {
		return "", newAuthenticationFailedError(cfg.Address(), err, sensitive)
	}

	token, err := cred.Token(ctx, client)
	if err != nil {
		return "", newAuthenticationFailedError(cfg.Address(), err, sensitive)
	}

	return token, nil
}

func (b *Binder) clientConfig(logger hclog.Logger, cfg Config) vault.ClientConfig {
	config := vault.ClientConfig{
		Address:   cfg.Address(),
		Namespace: cfg.Namespace(),
		Timeout:   b.timeout,
	}

	var tlsConfig vault.TLSConfig
	certFile, keyFile := cfg.ClientTLS()
	switch {
	case certFile != "" && keyFile != "":
		tlsConfig.ClientCert = certFile
		tlsConfig.ClientKey = keyFile
	case certFile != "":
		logger.Warn("client certificate given without a key; not presenting a client certificate", "cert_file", certFile)
	case keyFile != "":
		logger.Warn("client key given without a certificate; not presenting a client certificate", "key_file", keyFile)
	}
	tlsConfig.CACert = cfg.CACert()
	tlsConfig.Insecure = cfg.TLSSkipVerify()

	if tlsConfig != (vault.TLSConfig{}) {
		config.TLS = &tlsConfig
	}
	return config
}
