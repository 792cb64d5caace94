/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EDIT THIS FILE!  THIS IS SCAFFOLDING FOR YOU TO OWN!
// NOTE: json tags are required.  Any new fields you add must have json tags for the fields to be serialized.

// Condition types reported on status.conditions.
const (
	// ConditionValid reflects whether spec passed the builder's validation
	// checks (image/port/expires/name well-formed). False blocks every
	// later reconcile step.
	ConditionValid = "Valid"
	// ConditionPodReady reflects the readiness of the owned Pod.
	ConditionPodReady = "PodReady"
	// ConditionAvailable reflects whether the owned Service has ready Endpoints.
	ConditionAvailable = "Available"
)

// HostAnnotation is the controller-maintained annotation carrying the
// synthesized public hostname for the Ephemeron.
const HostAnnotation = "host"

// EphemeronSpec defines the desired state of Ephemeron.
type EphemeronSpec struct {
	// Image is the container image reference to run.
	// +kubebuilder:validation:MinLength=1
	Image string `json:"image"`

	// Port is the container port to expose, also used as the Service and
	// Ingress backend port.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port int32 `json:"port"`

	// Expires is the instant at or after which this Ephemeron is deleted.
	Expires metav1.Time `json:"expires"`

	// Command overrides the container entrypoint.
	// +optional
	Command []string `json:"command,omitempty"`

	// WorkingDir overrides the container working directory.
	// +optional
	WorkingDir string `json:"workingDir,omitempty"`

	// TLSSecretName, if set, is wired into the Ingress TLS block for the
	// synthesized host.
	// +optional
	TLSSecretName string `json:"tlsSecretName,omitempty"`

	// IngressAnnotations are merged into the Ingress annotations, overriding
	// any controller default with the same key.
	// +optional
	IngressAnnotations map[string]string `json:"ingressAnnotations,omitempty"`
}

// EphemeronStatus defines the observed state of Ephemeron.
type EphemeronStatus struct {
	// ObservedGeneration is the last metadata.generation the controller reconciled.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Conditions holds Valid, PodReady and Available, keyed by type.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=eph;ephs
// +kubebuilder:printcolumn:name="Image",type="string",JSONPath=".spec.image"
// +kubebuilder:printcolumn:name="Expires",type="date",JSONPath=".spec.expires"
// +kubebuilder:printcolumn:name="Host",type="string",JSONPath=".metadata.annotations.host"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// Ephemeron is the Schema for the ephemerons API.
type Ephemeron struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   EphemeronSpec   `json:"spec"`
	Status EphemeronStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// EphemeronList contains a list of Ephemeron.
type EphemeronList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Ephemeron `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Ephemeron{}, &EphemeronList{})
}
