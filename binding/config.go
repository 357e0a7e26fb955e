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


package binding

import (
	"strings"
)

// Default names of the bound environment variables
const (
	DefaultAddressVariable   = "VAULT_ADDR"
	DefaultTokenVariable     = "VAULT_TOKEN"
	DefaultNamespaceVariable = "VAULT_NAMESPACE"
)

// Config describes one binding: which credential to log in with,
// which Vault to log into and which variables receive the result.
// A Config is immutable once created by NewConfig.
type Config struct {
	credentialID      string
	address           string
	namespace         string
	addressVariable   string
	tokenVariable     string
	namespaceVariable string
	clientCert        string
	clientKey         string
	caCert            string
	tlsSkipVerify     bool
}

// Option sets an optional field of a Config.
type Option func(*Config)

// WithNamespace sets the Vault namespace. A blank namespace means no
// namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.namespace = strings.TrimSpace(namespace)
	}
}

// WithAddressVariable overrides the name of the address variable.
func WithAddressVariable(name string) Option {
	return func(c *Config) {
		c.addressVariable = name
	}
}

// WithTokenVariable overrides the name of the token variable.
func WithTokenVariable(name string) Option {
	return func(c *Config) {
		c.tokenVariable = name
	}
}

// WithNamespaceVariable overrides the name of the namespace variable.
func WithNamespaceVariable(name string) Option {
	return func(c *Config) {
		c.namespaceVariable = name
	}
}

// WithClientTLS sets the client certificate and key presented to
// Vault (or to a TLS-terminating proxy in front of it). Both are
// needed; a lone certificate or key is ignored at bind time.
func WithClientTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.clientCert = certFile
		c.clientKey = keyFile
	}
}

// WithCACert sets the CA certificate used to verify Vault.
func WithCACert(path string) Option {
	return func(c *Config) {
		c.caCert = path
	}
}

// WithTLSSkipVerify disables verification of Vault's certificate.
func WithTLSSkipVerify(skip bool) Option {
	return func(c *Config) {
		c.tlsSkipVerify = skip
	}
}

// NewConfig creates a validated Config.
func NewConfig(credentialID, address string, opts ...Option) (Config, error) {
	c := Config{
		credentialID: strings.TrimSpace(credentialID),
		address:      strings.TrimSpace(address),
	}
	for _, opt := range opts {
		opt(&c)
	}

	c.addressVariable = defaultIfBlank(c.addressVariable, DefaultAddressVariable)
	c.tokenVariable = defaultIfBlank(c.tokenVariable, DefaultTokenVariable)
	c.namespaceVariable = defaultIfBlank(c.namespaceVariable, DefaultNamespaceVariable)

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.address == "" && c.credentialID == "":
		return &InvalidConfigurationError{Field: "credential ID and address", Reason: "are not set"}
	case c.address == "":
		return &InvalidConfigurationError{Field: "address", Reason: "is empty"}
	case c.credentialID == "":
		return &InvalidConfigurationError{Field: "credential ID", Reason: "is empty"}
	}
	return nil
}

// CredentialID returns the ID of the credential to log in with.
func (c Config) CredentialID() string { return c.credentialID }

// Address returns the Vault address.
func (c Config) Address() string { return c.address }

// Namespace returns the Vault namespace, which may be empty.
func (c Config) Namespace() string { return c.namespace }

func (c Config) AddressVariable() string {
	return defaultIfBlank(c.addressVariable, DefaultAddressVariable)
}

func (c Config) TokenVariable() string {
	return defaultIfBlank(c.tokenVariable, DefaultTokenVariable)
}

func (c Config) NamespaceVariable() string {
	return defaultIfBlank(c.namespaceVariable, DefaultNamespaceVariable)
}

// ClientTLS returns the configured client certificate and key paths.
func (c Config) ClientTLS() (certFile, keyFile string) { return c.clientCert, c.clientKey }

func (c Config) CACert() string { return c.caCert }

func (c Config) TLSSkipVerify() bool { return c.tlsSkipVerify }

func defaultIfBlank(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
