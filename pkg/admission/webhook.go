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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/kerrors"
)

// FailurePolicy governs what happens when a webhook call itself fails
// (timeout, non-2xx, unparsable body), as opposed to the webhook
// deliberately rejecting the object (spec §4.B).
type FailurePolicy string

const (
	FailurePolicyFail   FailurePolicy = "Fail"
	FailurePolicyIgnore FailurePolicy = "Ignore"
)

// admissionReview is the envelope POSTed to a webhook (spec §4.B:
// "AdmissionReview envelope containing the candidate object").
type admissionReview struct {
	Kind   v1.Kind `json:"kind"`
	Object any     `json:"object"`
}

// admissionReviewResponse is the webhook's reply.
type admissionReviewResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
}

// Webhook is one registered admission webhook, called by URL after the
// built-in rules pass.
type Webhook struct {
	Name          string
	URL           string
	FailurePolicy FailurePolicy
	Timeout       time.Duration
	client        *http.Client
}

// NewWebhook constructs a Webhook with the spec default 10s timeout
// (spec §4.B: "Webhook timeout default 10s") unless timeout is set.
func NewWebhook(name, url string, failurePolicy FailurePolicy, timeout time.Duration) Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return Webhook{Name: name, URL: url, FailurePolicy: failurePolicy, Timeout: timeout, client: &http.Client{Timeout: timeout}}
}

// call POSTs obj to the webhook and interprets the response. stdlib
// net/http is used directly here: the teacher pack has no HTTP client
// library beyond what it already pulls in for unrelated concerns (chi is
// a server router, not a client), and a single POST-and-decode round trip
// does not warrant one.
func (w Webhook) call(ctx context.Context, obj v1.Object) error {
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	body, err := json.Marshal(admissionReview{Kind: obj.GetTypeMeta().Kind, Object: obj})
	if err != nil {
		return w.failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return w.failure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.client
	if client == nil {
		client = &http.Client{Timeout: w.Timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return w.failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return w.failure(kerrors.Invalid(w.Name, "webhook returned non-2xx status"))
	}

	var reviewResp admissionReviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&reviewResp); err != nil {
		return w.failure(err)
	}
	if !reviewResp.Allowed {
		return kerrors.Invalid(w.Name, reviewResp.Message)
	}
	return nil
}

// failure applies FailurePolicy to a webhook-call-level error (not a
// deliberate rejection): Fail rejects the write, Ignore passes it
// through (spec §4.B).
func (w Webhook) failure(cause error) error {
	if w.FailurePolicy == FailurePolicyIgnore {
		return nil
	}
	return kerrors.Invalid(w.Name, "webhook call failed: "+cause.Error())
}
