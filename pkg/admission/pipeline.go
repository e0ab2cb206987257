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

package admission

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
)

// quotaChecker is satisfied by *pkg/quota.Checker. Admission depends on
// it through this narrow interface rather than importing pkg/quota
// directly, since quota accounting needs store access the per-object
// rules in this package never do.
type quotaChecker interface {
	Admit(ctx context.Context, pod *v1.Pod) error
}

// Pipeline is the ordered rule chain plus webhook stage of spec §4.B,
// invoked on every Create/Update before the Object Store mutates.
type Pipeline struct {
	rules    []Rule
	webhooks []Webhook
	quota    quotaChecker
}

// New builds a Pipeline with the built-in rules and the given webhooks,
// run in registration order after the built-ins (spec §4.B: "after
// built-ins pass, each registered webhook is POSTed").
func New(webhooks ...Webhook) *Pipeline {
	return &Pipeline{rules: Builtins(), webhooks: webhooks}
}

// WithQuotaChecker attaches a ResourceQuota trial-sum check run after the
// built-in rules and before webhooks, only for Pod objects (spec §4.G).
func (p *Pipeline) WithQuotaChecker(q quotaChecker) *Pipeline {
	p.quota = q
	return p
}

// Admit runs every applicable rule and webhook against obj, returning a
// kerrors.Invalid error naming the first failing rule's message (spec
// §4.B: "any rejection surfaces to the caller as Invalid with the first
// failing rule's message").
func (p *Pipeline) Admit(ctx context.Context, obj v1.Object) error {
	kind := obj.GetTypeMeta().Kind
	logger := log.FromContext(ctx).WithValues("kind", kind, "name", obj.GetObjectMeta().Name)

	for _, rule := range p.rules {
		if !ruleAppliesTo(rule, kind) {
			continue
		}
		allow, reason := rule.Check(obj)
		if !allow {
			logger.V(1).Info("admission rejected", "rule", rule.Name, "reason", reason)
			return kerrors.Invalid(rule.Name, reason)
		}
	}

	if p.quota != nil {
		if pod, ok := obj.(*v1.Pod); ok {
			if err := p.quota.Admit(ctx, pod); err != nil {
				logger.V(1).Info("admission rejected by quota", "error", err)
				return err
			}
		}
	}

	for _, wh := range p.webhooks {
		if err := wh.call(ctx, obj); err != nil {
			logger.V(1).Info("admission webhook rejected", "webhook", wh.Name, "error", err)
			return err
		}
	}
	return nil
}

func ruleAppliesTo(rule Rule, kind v1.Kind) bool {
	for _, k := range rule.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
