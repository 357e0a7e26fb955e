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
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

var (
	// ErrInvalidConfiguration matches every *InvalidConfigurationError.
	ErrInvalidConfiguration = xerrors.New("invalid configuration")

	// ErrCredentialNotFound matches every *CredentialNotFoundError.
	ErrCredentialNotFound = xerrors.New("credential not found")

	// ErrAuthenticationFailed matches every *AuthenticationFailedError.
	ErrAuthenticationFailed = xerrors.New("authentication failed")
)

const redacted = "<redacted>"

// InvalidConfigurationError is returned before any I/O when a binding
// is missing a required field.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// CredentialNotFoundError is returned when the credential ID does not
// resolve to a usable credential.
type CredentialNotFoundError struct {
	ID  string
	Err error
}

func (e *CredentialNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("credential not found: %q", e.ID)
	}
	return fmt.Sprintf("credential not found: %q: %v", e.ID, e.Err)
}

func (e *CredentialNotFoundError) Unwrap() error {
	return e.Err
}

func (e *CredentialNotFoundError) Is(target error) bool {
	return target == ErrCredentialNotFound
}

// AuthenticationFailedError is returned when Vault could not be
// reached or rejected the login. The message has every sensitive
// value of the credential replaced.
type AuthenticationFailedError struct {
	Address string
	Err     error

	msg string
}

func newAuthenticationFailedError(address string, err error, sensitive []string) *AuthenticationFailedError {
	msg := err.Error()
	for _, s := range sensitive {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, redacted)
		}
	}

	return &AuthenticationFailedError{
		Address: address,
		Err:     err,
		msg:     msg,
	}
}

func (e *AuthenticationFailedError) Error() string {
	msg := e.msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("could not log in into vault at %s: %s", e.Address, msg)
}

func (e *AuthenticationFailedError) Unwrap() error {
	return e.Err
}

func (e *AuthenticationFailedError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}
