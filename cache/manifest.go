// Copyright (c) 2024 The BRED Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cache

import (
	"fmt"
	"strings"

	"github.com/frictionlessdata/datapackage-go/datapackage"
)

// Manifest describes the current cache contents as a frictionless data
// package, one resource per cached file. Index entries contribute checksums
// and provenance where they exist.
func (m *Manager) Manifest() (*datapackage.Package, error) {
	index, err := m.readIndex()
	if err != nil {
		return nil, err
	}

	resources := make([]any, 0)
	for _, info := range m.List() {
		resource := map[string]any{
			// frictionless resource names allow lowercase alphanumerics plus
			// ".", "-" and "_", which dataset names and formats satisfy
			"name":   fmt.Sprintf("%s-%s", info.Dataset, strings.ReplaceAll(string(info.Format), ".", "-")),
			"path":   info.Dataset + info.Format.Ext(),
			"format": string(info.Format),
			"bytes":  info.Size,
		}
		if entry, found := index[info.Dataset]; found && entry.Format == info.Format {
			resource["hash"] = fmt.Sprintf("%016x", entry.Checksum)
			resource["sources"] = []any{
				map[string]any{"title": string(entry.SourceTier)},
			}
		}
		resources = append(resources, resource)
	}

	// the frictionless profile requires at least one resource
	if len(resources) == 0 {
		return nil, &MissError{Dataset: "*"}
	}

	descriptor := map[string]any{
		"name":      "bred-cache",
		"resources": resources,
	}
	return datapackage.New(descriptor, m.root)
}
