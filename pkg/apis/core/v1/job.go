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

package v1

// JobSpec is the declared intent of a Job (spec §3, §4.L).
type JobSpec struct {
	Parallelism           int32           `json:"parallelism,omitempty"`
	Completions           int32           `json:"completions,omitempty"`
	BackoffLimit          int32           `json:"backoffLimit,omitempty"`
	ActiveDeadlineSeconds int64           `json:"activeDeadlineSeconds,omitempty"`
	TTLSecondsAfterFinished *int64        `json:"ttlSecondsAfterFinished,omitempty"`
	Template              PodTemplateSpec `json:"template"`
}

// JobStatus is the observed state of a Job (spec §4.L).
type JobStatus struct {
	Active         int32      `json:"active"`
	Succeeded      int32      `json:"succeeded"`
	Failed         int32      `json:"failed"`
	StartTime      float64    `json:"startTime,omitempty"`
	CompletionTime float64    `json:"completionTime,omitempty"`
	Conditions     Conditions `json:"conditions,omitempty"`
}

// Job is the Schema for the Job kind.
type Job struct {
	TypeMeta   TypeMeta   `json:"-"`
	ObjectMeta ObjectMeta `json:"metadata"`
	Spec       JobSpec    `json:"spec"`
	Status     JobStatus  `json:"status,omitempty"`
}

func (j *Job) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindJob, APIVersion: "v1"} }
func (j *Job) GetObjectMeta() *ObjectMeta { return &j.ObjectMeta }

const (
	// JobComplete is set once Status.Succeeded reaches Spec.Completions.
	JobComplete = "Complete"
	// JobFailed is set once the backoff limit or active deadline is hit.
	JobFailed = "Failed"
)
