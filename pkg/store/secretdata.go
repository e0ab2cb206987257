/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package store

import (
	"context"
	"os"
	"path/filepath"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
)

// CreateSecret persists a Secret's envelope through Create and writes
// StringData (and any pre-populated Data) to the sibling data directory,
// one file per key, mode 0600, so a compromised store root readable by
// the wrong user still can't casually cat a Secret value alongside the
// rest of the JSON tree (SPEC_FULL.md §C.1).
func (s *Store) CreateSecret(ctx context.Context, secret *v1.Secret) error {
	data := mergeSecretData(secret)
	if err := s.Create(ctx, secret); err != nil {
		return err
	}
	return s.writeSecretData(secret.ObjectMeta.Namespace, secret.ObjectMeta.Name, data)
}

// UpdateSecret is the Secret-shaped analogue of Update: it rewrites the
// data directory to exactly match the new StringData/Data after the
// envelope update succeeds.
func (s *Store) UpdateSecret(ctx context.Context, secret *v1.Secret) error {
	data := mergeSecretData(secret)
	if err := s.Update(ctx, secret); err != nil {
		return err
	}
	dir := s.secretDataDir(secret.ObjectMeta.Namespace, secret.ObjectMeta.Name)
	if err := os.RemoveAll(dir); err != nil {
		return kerrors.Internal(err, "path", dir)
	}
	return s.writeSecretData(secret.ObjectMeta.Namespace, secret.ObjectMeta.Name, data)
}

// GetSecretData reads every key for a Secret back off disk, for mounting
// into a Pod's volumes/envFrom.
func (s *Store) GetSecretData(namespace, name string) (map[string][]byte, error) {
	dir := s.secretDataDir(namespace, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]byte{}, nil
		}
		return nil, kerrors.Internal(err, "path", dir)
	}
	out := map[string][]byte{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, kerrors.Internal(err, "path", dir)
		}
		out[e.Name()] = b
	}
	return out, nil
}

func mergeSecretData(secret *v1.Secret) map[string][]byte {
	data := map[string][]byte{}
	for k, v := range secret.Data {
		data[k] = v
	}
	for k, v := range secret.StringData {
		data[k] = []byte(v)
	}
	secret.Data = data
	secret.StringData = nil
	return data
}

func (s *Store) writeSecretData(namespace, name string, data map[string][]byte) error {
	dir := s.secretDataDir(namespace, name)
	if len(data) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return kerrors.Internal(err, "path", dir)
	}
	for k, v := range data {
		if err := os.WriteFile(filepath.Join(dir, k), v, 0o600); err != nil {
			return kerrors.Internal(err, "path", dir)
		}
	}
	return nil
}
