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

// ConcurrencyPolicy governs overlapping CronJob runs (spec §4.M).
type ConcurrencyPolicy string

const (
	ConcurrencyAllow    ConcurrencyPolicy = "Allow"
	ConcurrencyForbid   ConcurrencyPolicy = "Forbid"
	ConcurrencyReplace  ConcurrencyPolicy = "Replace"
)

// JobTemplateSpec embeds the JobSpec a CronJob stamps out on each fire.
type JobTemplateSpec struct {
	Spec JobSpec `json:"spec"`
}

// CronJobSpec is the declared intent of a CronJob (spec §3, §4.M).
type CronJobSpec struct {
	Schedule                   string            `json:"schedule"`
	JobTemplate                JobTemplateSpec   `json:"jobTemplate"`
	ConcurrencyPolicy          ConcurrencyPolicy `json:"concurrencyPolicy,omitempty"`
	Suspend                    bool              `json:"suspend,omitempty"`
	SuccessfulJobsHistoryLimit int32             `json:"successfulJobsHistoryLimit,omitempty"`
	FailedJobsHistoryLimit     int32             `json:"failedJobsHistoryLimit,omitempty"`
	StartingDeadlineSeconds    *int64            `json:"startingDeadlineSeconds,omitempty"`
}

// CronJobStatus is the observed state of a CronJob (spec §4.M).
type CronJobStatus struct {
	Active             []ObjectReference `json:"active,omitempty"`
	LastScheduleTime   float64           `json:"lastScheduleTime,omitempty"`
	LastSuccessfulTime float64           `json:"lastSuccessfulTime,omitempty"`
}

// CronJob is the Schema for the CronJob kind.
type CronJob struct {
	TypeMeta   TypeMeta      `json:"-"`
	ObjectMeta ObjectMeta    `json:"metadata"`
	Spec       CronJobSpec   `json:"spec"`
	Status     CronJobStatus `json:"status,omitempty"`
}

func (c *CronJob) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindCronJob, APIVersion: "v1"} }
func (c *CronJob) GetObjectMeta() *ObjectMeta { return &c.ObjectMeta }
