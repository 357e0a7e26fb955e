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
	"sort"
	"strings"
)

// Environment maps variable names to the values bound for one build
// step. It contains the Vault token and must not be persisted.
type Environment map[string]string

// Keys returns the sorted variable names.
func (e Environment) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environ overlays the environment on base, a list of KEY=VALUE
// pairs such as os.Environ(). Existing entries with a bound name are
// replaced.
func (e Environment) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(e))
	for _, kv := range base {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if _, ok := e[name]; ok {
			continue
		}
		out = append(out, kv)
	}

	for _, k := range e.Keys() {
		out = append(out, k+"="+e[k])
	}
	return out
}
