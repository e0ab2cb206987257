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

// ScaleTargetRef names the Deployment, StatefulSet or ReplicaSet an HPA drives
// (spec §3, §4.N).
type ScaleTargetRef struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// MetricTargetType selects the metric an HPA samples (spec §4.N).
type MetricTargetType string

const (
	MetricCPUUtilization    MetricTargetType = "cpu"
	MetricMemoryUtilization MetricTargetType = "memory"
)

// HorizontalPodAutoscalerSpec is the declared intent of an HPA (spec §3,
// §4.N).
type HorizontalPodAutoscalerSpec struct {
	ScaleTargetRef                ScaleTargetRef   `json:"scaleTargetRef"`
	MinReplicas                   int32            `json:"minReplicas"`
	MaxReplicas                   int32            `json:"maxReplicas"`
	Metric                        MetricTargetType `json:"metric"`
	TargetUtilizationPercentage   int32            `json:"targetUtilizationPercentage"`
	ScaleUpStabilizationSeconds   int32            `json:"scaleUpStabilizationSeconds,omitempty"`
	ScaleDownStabilizationSeconds int32            `json:"scaleDownStabilizationSeconds,omitempty"`
}

// HorizontalPodAutoscalerStatus is the observed state of an HPA (spec
// §4.N).
type HorizontalPodAutoscalerStatus struct {
	CurrentReplicas              int32   `json:"currentReplicas"`
	DesiredReplicas              int32   `json:"desiredReplicas"`
	CurrentUtilizationPercentage int32   `json:"currentUtilizationPercentage,omitempty"`
	LastScaleTime                float64 `json:"lastScaleTime,omitempty"`
	LastScaleUpTime              float64 `json:"lastScaleUpTime,omitempty"`
	LastScaleDownTime            float64 `json:"lastScaleDownTime,omitempty"`
}

// HorizontalPodAutoscaler is the Schema for the HorizontalPodAutoscaler
// kind.
type HorizontalPodAutoscaler struct {
	TypeMeta   TypeMeta                      `json:"-"`
	ObjectMeta ObjectMeta                    `json:"metadata"`
	Spec       HorizontalPodAutoscalerSpec   `json:"spec"`
	Status     HorizontalPodAutoscalerStatus `json:"status,omitempty"`
}

func (h *HorizontalPodAutoscaler) GetTypeMeta() TypeMeta {
	return TypeMeta{Kind: KindHorizontalPodAutoscaler, APIVersion: "v1"}
}
func (h *HorizontalPodAutoscaler) GetObjectMeta() *ObjectMeta { return &h.ObjectMeta }
