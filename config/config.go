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


// Package config loads the HCL configuration file that describes the
// Vault server, the binding and the credentials available to jobs.
package config

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/ast"
	homedir "github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/morningconsult/vault-env-binding/binding"
	"github.com/morningconsult/vault-env-binding/credentials"
	"github.com/morningconsult/vault-env-binding/vault"
)

// Config is the parsed configuration file.
type Config struct {
	LogLevel string `hcl:"log_level"`
	LogDir   string `hcl:"log_dir"`

	Vault       *Vault        `hcl:"-"`
	Binding     *Binding      `hcl:"-"`
	Credentials []*Credential `hcl:"-"`
}

// Vault is the "vault" block.
type Vault struct {
	Address       string      `hcl:"address"`
	Namespace     string      `hcl:"namespace"`
	CACert        string      `hcl:"ca_cert"`
	TLSSkipVerify bool        `hcl:"tls_skip_verify"`
	ClientCert    string      `hcl:"client_cert"`
	ClientKey     string      `hcl:"client_key"`
	TimeoutRaw    interface{} `hcl:"timeout"`

	Timeout time.Duration `hcl:"-"`
}

// Binding is the optional "binding" block.
type Binding struct {
	CredentialID      string `hcl:"credential_id"`
	AddressVariable   string `hcl:"address_variable"`
	NamespaceVariable string `hcl:"namespace_variable"`
	TokenVariable     string `hcl:"token_variable"`
}

// Credential is one `credential "<id>"` block. Config holds every key
// of the block other than type, folder and description.
type Credential struct {
	ID          string
	Type        string
	Folder      string
	Description string
	Config      map[string]interface{}

	value vault.Credential
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("error expanding path %q: %w", path, err)
	}
	path = expanded

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, xerrors.New("location is a directory, not a file")
	}

	data, err := ioutil.ReadFile(path) // nolint: gosec
	if err != nil {
		return nil, err
	}

	return ParseConfig(string(data))
}

// ParseConfig parses the contents of a configuration file.
func ParseConfig(contents string) (*Config, error) {
	root, err := hcl.Parse(contents)
	if err != nil {
		return nil, xerrors.Errorf("error parsing configuration: %w", err)
	}

	list, ok := root.Node.(*ast.ObjectList)
	if !ok {
		return nil, xerrors.New("error parsing configuration: file doesn't contain a root object")
	}

	valid := []string{"log_level", "log_dir", "vault", "binding", "credential"}
	if err = checkHCLKeys(list, valid); err != nil {
		return nil, err
	}

	var result Config
	if err = hcl.DecodeObject(&result, list); err != nil {
		return nil, err
	}

	if result.LogLevel != "" && hclog.LevelFromString(result.LogLevel) == hclog.NoLevel {
		return nil, xerrors.Errorf("invalid log_level %q", result.LogLevel)
	}

	if err = parseVault(&result, list); err != nil {
		return nil, xerrors.Errorf("error parsing 'vault': %w", err)
	}

	if err = parseBinding(&result, list); err != nil {
		return nil, xerrors.Errorf("error parsing 'binding': %w", err)
	}

	if err = parseCredentials(&result, list); err != nil {
		return nil, xerrors.Errorf("error parsing 'credential': %w", err)
	}

	return &result, nil
}

func parseVault(result *Config, list *ast.ObjectList) error {
	name := "vault"

	vaultList := list.Filter(name)
	if len(vaultList.Items) != 1 {
		return xerrors.Errorf("one and only one %q block is required", name)
	}

	item := vaultList.Items[0]
	if err := checkHCLKeys(item.Val, []string{
		"address",
		"namespace",
		"ca_cert",
		"tls_skip_verify",
		"client_cert",
		"client_key",
		"timeout",
	}); err != nil {
		return err
	}

	var v Vault
	if err := hcl.DecodeObject(&v, item.Val); err != nil {
		return err
	}

	if v.TimeoutRaw != nil {
		timeout, err := parseutil.ParseDurationSecond(v.TimeoutRaw)
		if err != nil {
			return xerrors.Errorf("invalid timeout: %w", err)
		}
		if timeout < 0 {
			return xerrors.New("timeout must not be negative")
		}
		v.Timeout = timeout
		v.TimeoutRaw = nil
	}

	result.Vault = &v
	return nil
}

func parseBinding(result *Config, list *ast.ObjectList) error {
	name := "binding"

	bindingList := list.Filter(name)
	switch len(bindingList.Items) {
	case 0:
		return nil
	case 1:
	default:
		return xerrors.Errorf("at most one %q block is allowed", name)
	}

	item := bindingList.Items[0]
	if err := checkHCLKeys(item.Val, []string{
		"credential_id",
		"address_variable",
		"namespace_variable",
		"token_variable",
	}); err != nil {
		return err
	}

	var b Binding
	if err := hcl.DecodeObject(&b, item.Val); err != nil {
		return err
	}

	result.Binding = &b
	return nil
}

func parseCredentials(result *Config, list *ast.ObjectList) error {
	type key struct{ folder, id string }
	seen := make(map[key]struct{})

	for _, item := range list.Filter("credential").Items {
		if len(item.Keys) != 1 {
			return xerrors.Errorf("credential block on line %d must have exactly one ID", item.Pos().Line)
		}
		id, ok := item.Keys[0].Token.Value().(string)
		if !ok || strings.TrimSpace(id) == "" {
			return xerrors.Errorf("credential block on line %d has an empty ID", item.Pos().Line)
		}

		var raw map[string]interface{}
		if err := hcl.DecodeObject(&raw, item.Val); err != nil {
			return xerrors.Errorf("credential %q: %w", id, err)
		}

		c := &Credential{ID: id}
		var err error
		if c.Type, err = popString(raw, "type"); err != nil {
			return xerrors.Errorf("credential %q: %w", id, err)
		}
		if c.Folder, err = popString(raw, "folder"); err != nil {
			return xerrors.Errorf("credential %q: %w", id, err)
		}
		if c.Description, err = popString(raw, "description"); err != nil {
			return xerrors.Errorf("credential %q: %w", id, err)
		}
		if c.Type == "" {
			return xerrors.Errorf("credential %q: type is required", id)
		}
		c.Folder = strings.Trim(c.Folder, "/")
		c.Config = raw

		k := key{c.Folder, id}
		if _, ok := seen[k]; ok {
			return xerrors.Errorf("duplicate credential %q in folder %q", id, c.Folder)
		}
		seen[k] = struct{}{}

		if c.value, err = vault.BuildCredential(c.Type, raw); err != nil {
			return xerrors.Errorf("credential %q: %w", id, err)
		}

		result.Credentials = append(result.Credentials, c)
	}
	return nil
}

func popString(raw map[string]interface{}, name string) (string, error) {
	v, ok := raw[name]
	if !ok {
		return "", nil
	}
	delete(raw, name)

	s, ok := v.(string)
	if !ok {
		return "", xerrors.Errorf("field %q must be a string", name)
	}
	return strings.TrimSpace(s), nil
}

// BindingConfig returns the binding configuration. A non-empty
// credentialID takes precedence over binding.credential_id.
func (c *Config) BindingConfig(credentialID string) (binding.Config, error) {
	var b Binding
	if c.Binding != nil {
		b = *c.Binding
	}
	if credentialID != "" {
		b.CredentialID = credentialID
	}

	var v Vault
	if c.Vault != nil {
		v = *c.Vault
	}

	clientCert, err := expand(v.ClientCert)
	if err != nil {
		return binding.Config{}, err
	}
	clientKey, err := expand(v.ClientKey)
	if err != nil {
		return binding.Config{}, err
	}
	caCert, err := expand(v.CACert)
	if err != nil {
		return binding.Config{}, err
	}

	return binding.NewConfig(b.CredentialID, v.Address,
		binding.WithNamespace(v.Namespace),
		binding.WithAddressVariable(b.AddressVariable),
		binding.WithNamespaceVariable(b.NamespaceVariable),
		binding.WithTokenVariable(b.TokenVariable),
		binding.WithClientTLS(clientCert, clientKey),
		binding.WithCACert(caCert),
		binding.WithTLSSkipVerify(v.TLSSkipVerify),
	)
}

// Store builds a credential store from the credential blocks.
func (c *Config) Store() (*credentials.Store, error) {
	entries := make([]credentials.Entry, 0, len(c.Credentials))
	for _, cred := range c.Credentials {
		value := cred.value
		if value == nil {
			var err error
			if value, err = vault.BuildCredential(cred.Type, cred.Config); err != nil {
				return nil, xerrors.Errorf("credential %q: %w", cred.ID, err)
			}
		}

		entries = append(entries, credentials.Entry{
			ID:          cred.ID,
			Folder:      cred.Folder,
			Description: cred.Description,
			Credential:  value,
		})
	}
	return credentials.NewStore(entries...)
}

// ClientTimeout is the timeout of each request to Vault, or zero for
// the Vault API client's default.
func (c *Config) ClientTimeout() time.Duration {
	if c.Vault == nil {
		return 0
	}
	return c.Vault.Timeout
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", xerrors.Errorf("error expanding path %q: %w", path, err)
	}
	return expanded, nil
}

func checkHCLKeys(node ast.Node, valid []string) error {
	var list *ast.ObjectList
	switch n := node.(type) {
	case *ast.ObjectList:
		list = n
	case *ast.ObjectType:
		list = n.List
	default:
		return xerrors.Errorf("cannot check HCL keys of type %T", n)
	}

	validMap := make(map[string]struct{}, len(valid))
	for _, v := range valid {
		validMap[v] = struct{}{}
	}

	var result error
	for _, item := range list.Items {
		key := item.Keys[0].Token.Value().(string)
		if _, ok := validMap[key]; !ok {
			result = multierror.Append(result, xerrors.Errorf("invalid key %q on line %d", key, item.Pos().Line))
		}
	}
	return result
}
