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

// Package store implements the Object Store of spec §4.A: typed objects
// keyed by (kind, namespace, name), persisted as one JSON file per object
// under a root directory, with optimistic-concurrency updates and a
// push-based Watch built on top of plain Create/Update/Delete calls.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
)

// Admitter is satisfied by *pkg/admission.Pipeline. The store depends on
// it through this narrow interface rather than importing pkg/admission
// directly, the same way pkg/admission depends on pkg/quota.Checker
// through its own quotaChecker interface — admission is a write-path
// concern of the store, not the other way around.
type Admitter interface {
	Admit(ctx context.Context, obj v1.Object) error
}

// Store is the file-based Object Store. The zero value is not usable; use
// New.
type Store struct {
	root       string
	locks      *keyedMutex
	watchersMu *keyedMutex
	watchers   map[v1.Kind][]*watcher
	admitter   Admitter
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerrors.Internal(err, "root", dir)
	}
	return &Store{
		root:       dir,
		locks:      newKeyedMutex(),
		watchersMu: newKeyedMutex(),
		watchers:   map[v1.Kind][]*watcher{},
	}, nil
}

// SetAdmitter wires the admission pipeline into the write path (spec
// §2: "external writes → Admission → Object Store"; §4.B: "called on
// every create/update before the store mutates"). Every Create/Update
// call, including the ones controllers make when writing child objects,
// goes through it once set. A nil admitter (the default) admits
// everything, which is only appropriate for tests exercising the store
// in isolation.
func (s *Store) SetAdmitter(a Admitter) {
	s.admitter = a
}

// objKey is the striping key for per-object locking.
func objKey(kind v1.Kind, namespace, name string) string {
	return string(kind) + "/" + namespace + "/" + name
}

// readObject reads and unmarshals the JSON file at path into v, returning
// kerrors.NotFound(kind,...) when it doesn't exist.
func readObject(path string, kind v1.Kind, namespace, name string, v any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return kerrors.NotFound(string(kind), namespace, name)
	}
	if err != nil {
		return kerrors.Internal(err, "path", path)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return kerrors.Internal(err, "path", path)
	}
	return nil
}

// Get reads a single object of kind T (a concrete type implementing
// v1.Object, e.g. v1.Pod) by namespace/name.
func Get[T any](ctx context.Context, s *Store, kind v1.Kind, namespace, name string) (*T, error) {
	path := s.objectPath(kind, namespace, name)
	out := new(T)
	if err := readObject(path, kind, namespace, name, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List reads every object of kind T under namespace (empty string means
// "all namespaces" for namespaced kinds, and is the only valid value for
// cluster-scoped kinds), optionally filtered by a label selector (spec
// §4.A: "list(kind, ns?, labelSelector?)").
func List[T any](ctx context.Context, s *Store, kind v1.Kind, namespace string, selector map[string]string) ([]*T, error) {
	var dirs []string
	if namespace != "" || !v1.NamespacedKinds[kind] {
		dirs = []string{s.objectDir(kind, namespace)}
	} else {
		base := s.objectDir(kind, "")
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, kerrors.Internal(err, "path", base)
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(base, e.Name()))
			}
		}
	}

	var out []*T
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, kerrors.Internal(err, "path", dir)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			item := new(T)
			if err := readObject(filepath.Join(dir, e.Name()), kind, namespace, e.Name(), item); err != nil {
				return nil, err
			}
			obj := any(item).(v1.Object)
			if len(selector) == 0 || obj.GetObjectMeta().MatchesSelector(selector) {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

// Create persists a new object, assigning UID and the initial
// resourceVersion (spec §4.A: "uid is assigned on first create and never
// reused").
func (s *Store) Create(ctx context.Context, obj v1.Object) error {
	kind := obj.GetTypeMeta().Kind
	meta := obj.GetObjectMeta()
	if s.admitter != nil {
		if err := s.admitter.Admit(ctx, obj); err != nil {
			return err
		}
	}
	unlock := s.locks.lock(objKey(kind, meta.Namespace, meta.Name))
	defer unlock()

	path := s.objectPath(kind, meta.Namespace, meta.Name)
	if _, err := os.Stat(path); err == nil {
		return kerrors.AlreadyExists(string(kind), meta.Namespace, meta.Name)
	}

	meta.UID = uuid.NewString()
	meta.ResourceVersion = 1
	if err := s.writeObject(path, obj); err != nil {
		return err
	}
	log.FromContext(ctx).WithValues("kind", kind, "namespace", meta.Namespace, "name", meta.Name).V(1).Info("created object")
	s.notify(kind, watchAdded, obj)
	return nil
}

// Update persists obj over the existing object, failing with
// kerrors.Conflict unless obj.ResourceVersion matches what's on disk
// (spec §4.A: "update (optimistic via resourceVersion)").
func (s *Store) Update(ctx context.Context, obj v1.Object) error {
	kind := obj.GetTypeMeta().Kind
	meta := obj.GetObjectMeta()
	if s.admitter != nil {
		if err := s.admitter.Admit(ctx, obj); err != nil {
			return err
		}
	}
	unlock := s.locks.lock(objKey(kind, meta.Namespace, meta.Name))
	defer unlock()

	path := s.objectPath(kind, meta.Namespace, meta.Name)
	current := map[string]json.RawMessage{}
	if err := readObject(path, kind, meta.Namespace, meta.Name, &current); err != nil {
		return err
	}
	var currentMeta v1.ObjectMeta
	if err := json.Unmarshal(current["metadata"], &currentMeta); err != nil {
		return kerrors.Internal(err, "path", path)
	}
	if meta.ResourceVersion != currentMeta.ResourceVersion {
		return kerrors.Conflict(string(kind), meta.Namespace, meta.Name, meta.ResourceVersion, currentMeta.ResourceVersion)
	}

	meta.UID = currentMeta.UID
	meta.CreationTimestamp = currentMeta.CreationTimestamp
	meta.ResourceVersion = currentMeta.ResourceVersion + 1
	if err := s.writeObject(path, obj); err != nil {
		return err
	}
	log.FromContext(ctx).WithValues("kind", kind, "namespace", meta.Namespace, "name", meta.Name).V(1).Info("updated object")
	s.notify(kind, watchModified, obj)
	return nil
}

// Delete removes an object of kind from the store. The caller is
// responsible for resolving cascade deletes via ownerReferences (spec
// §3.4's garbage collection invariant); the store itself only removes the
// one object named.
func (s *Store) Delete(ctx context.Context, kind v1.Kind, namespace, name string) error {
	unlock := s.locks.lock(objKey(kind, namespace, name))
	defer unlock()

	path := s.objectPath(kind, namespace, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return kerrors.NotFound(string(kind), namespace, name)
	}
	if err := os.Remove(path); err != nil {
		return kerrors.Internal(err, "path", path)
	}
	if kind == v1.KindSecret {
		_ = os.RemoveAll(s.secretDataDir(namespace, name))
	}
	log.FromContext(ctx).WithValues("kind", kind, "namespace", namespace, "name", name).V(1).Info("deleted object")
	s.notify(kind, watchDeleted, nil)
	return nil
}

// Exists reports whether an object of kind is present, without needing
// its concrete Go type the way Get[T] does. Used by the ownership
// garbage collector to check whether an owner reference still resolves
// across arbitrary kinds (spec §3.4).
func (s *Store) Exists(kind v1.Kind, namespace, name string) (bool, error) {
	if _, err := os.Stat(s.objectPath(kind, namespace, name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, kerrors.Internal(err, "path", s.objectPath(kind, namespace, name))
	}
	return true, nil
}

// writeObject marshals obj and writes it atomically: a crash mid-write
// never leaves a torn JSON document on disk (spec §4.A: "writes are
// atomic per object").
func (s *Store) writeObject(path string, obj v1.Object) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kerrors.Internal(err, "path", path)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return kerrors.Internal(err, "path", path)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return kerrors.Internal(err, "path", path)
	}
	return nil
}
