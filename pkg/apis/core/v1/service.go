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

// ServiceType is one of the four Service publishing modes (spec §3).
type ServiceType string

const (
	ServiceClusterIP    ServiceType = "ClusterIP"
	ServiceNodePort     ServiceType = "NodePort"
	ServiceLoadBalancer ServiceType = "LoadBalancer"
	ServiceExternalName ServiceType = "ExternalName"
)

// ServicePort maps an exposed port to a target container port, optionally
// allocating a NodePort (spec §3, §4.E).
type ServicePort struct {
	Name       string `json:"name,omitempty"`
	Port       int32  `json:"port"`
	TargetPort string `json:"targetPort"` // integer, or a named container port
	NodePort   int32  `json:"nodePort,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
}

// ServiceSpec is the declared intent of a Service (spec §3).
type ServiceSpec struct {
	Selector        map[string]string `json:"selector,omitempty"`
	Ports           []ServicePort     `json:"ports,omitempty"`
	Type            ServiceType       `json:"type,omitempty"`
	ClusterIP       string            `json:"clusterIP,omitempty"`
	ExternalName    string            `json:"externalName,omitempty"`
	SessionAffinity string            `json:"sessionAffinity,omitempty"`
}

// ServiceStatus carries the allocated external address, when applicable.
type ServiceStatus struct {
	ExternalIP string `json:"externalIP,omitempty"`
}

// Service is the Schema for the Service kind (spec §3).
type Service struct {
	TypeMeta   TypeMeta      `json:"-"`
	ObjectMeta ObjectMeta    `json:"metadata"`
	Spec       ServiceSpec   `json:"spec"`
	Status     ServiceStatus `json:"status,omitempty"`
}

func (s *Service) GetTypeMeta() TypeMeta      { return TypeMeta{Kind: KindService, APIVersion: "v1"} }
func (s *Service) GetObjectMeta() *ObjectMeta { return &s.ObjectMeta }

// EndpointAddress is one ready backend for a Service port (spec §4.E).
type EndpointAddress struct {
	PodIP      string `json:"podIP"`
	PodName    string `json:"podName"`
	TargetPort int32  `json:"targetPort"`
	Ready      bool   `json:"ready"`
}

// Endpoints is the derived (spec §3: "not stored as a distinct object in
// the source") live backend set for a Service, keyed by port name.
type Endpoints struct {
	ServiceName string                       `json:"serviceName"`
	Namespace   string                       `json:"namespace"`
	Ports       map[string][]EndpointAddress `json:"ports"`
}
