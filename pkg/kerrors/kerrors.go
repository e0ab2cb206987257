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

// Package kerrors defines the error kinds shared across the object store,
// admission pipeline, and controllers (spec §7).
package kerrors

import (
	"errors"
	"fmt"

	"github.com/awslabs/operatorpkg/serrors"
)

// Kind is one of the error kinds enumerated in spec §7.
type Kind string

const (
	KindNotFound      Kind = "NotFound"
	KindAlreadyExists Kind = "AlreadyExists"
	KindConflict      Kind = "Conflict"
	KindInvalid       Kind = "Invalid"
	KindQuota         Kind = "Quota"
	KindTimeout       Kind = "Timeout"
	KindInternal      Kind = "Internal"
)

// kindError carries a Kind alongside the wrapped error so callers can
// branch with Is/As without string matching.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Is reports whether target is a kindError with the same Kind, which lets
// errors.Is(err, kerrors.NotFound(...)) style comparisons work when callers
// only care about the kind, via KindOf below.
func (e *kindError) Is(target error) bool {
	var other *kindError
	if errors.As(target, &other) {
		return other.kind == e.kind
	}
	return false
}

func newKind(kind Kind, msg string, keysAndValues ...any) error {
	return &kindError{kind: kind, err: serrors.Wrap(errors.New(msg), keysAndValues...)}
}

func NotFound(kind, namespace, name string) error {
	return newKind(KindNotFound, "object not found", "kind", kind, "namespace", namespace, "name", name)
}

func AlreadyExists(kind, namespace, name string) error {
	return newKind(KindAlreadyExists, "object already exists", "kind", kind, "namespace", namespace, "name", name)
}

func Conflict(kind, namespace, name string, want, got int64) error {
	return newKind(KindConflict, "resourceVersion conflict", "kind", kind, "namespace", namespace, "name", name,
		"wantResourceVersion", want, "gotResourceVersion", got)
}

func Invalid(rule, message string) error {
	return newKind(KindInvalid, message, "rule", rule)
}

func Quota(resourceName string, used, hard string) error {
	return newKind(KindQuota, "would exceed resource quota", "resource", resourceName, "used", used, "hard", hard)
}

func Timeout(op string, cause error) error {
	return &kindError{kind: KindTimeout, err: serrors.Wrap(fmt.Errorf("%s: %w", op, cause), "op", op)}
}

func Internal(cause error, keysAndValues ...any) error {
	return &kindError{kind: KindInternal, err: serrors.Wrap(cause, keysAndValues...)}
}

// KindOf extracts the Kind from err, walking Unwrap chains. Returns
// KindInternal for errors that were never classified, so an unclassified
// failure is treated as an internal error, which Retryable reports as
// retryable under spec §7's propagation policy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }
func IsConflict(err error) bool      { return KindOf(err) == KindConflict }
func IsInvalid(err error) bool       { return KindOf(err) == KindInvalid }
func IsQuota(err error) bool         { return KindOf(err) == KindQuota }
func IsTimeout(err error) bool       { return KindOf(err) == KindTimeout }

// Retryable reports whether the propagation policy of spec §7 says a
// controller should retry the reconcile that produced err.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindTimeout, KindInternal:
		return true
	default:
		return false
	}
}
