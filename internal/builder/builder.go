// Copyright 2025 The Previewd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builder

import (
	"fmt"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	groupVersion = "qualified.io/v1alpha1"
	kind         = "Ephemeron"

	containerName = "ephemeron"

	labelApp       = "app"
	labelEphemeron = "ephemeron"
)

// Config carries the deployment-wide settings the builder needs but that do
// not come from the Ephemeron itself.
type Config struct {
	// BaseDomain is the DNS suffix hostnames are synthesized under
	// (EPHEMERON_DOMAIN). Must be a non-empty DNS-1123 subdomain.
	BaseDomain string

	// TLSScheme is the URL scheme written into the host annotation when the
	// Ephemeron carries no TLSSecretName. "http" or "https"; defaults to
	// "https" if empty.
	TLSScheme string
}

// ValidationError reports a malformed Ephemeron or Config. It is the only
// error kind this package returns.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks that eph and cfg are well-formed enough to build desired
// children from. The CRD's OpenAPI schema already rejects most of these at
// admission time; this is a defensive second check so the builder never
// panics on a malformed object that slipped through (e.g. during tests, or
// against a cluster with a stale CRD).
func Validate(eph *qualifiedv1alpha1.Ephemeron, cfg Config) error {
	if errs := validation.IsDNS1123Label(eph.Name); len(errs) > 0 {
		return &ValidationError{Field: "metadata.name", Reason: errs[0]}
	}
	if cfg.BaseDomain == "" {
		return &ValidationError{Field: "baseDomain", Reason: "must not be empty"}
	}
	if errs := validation.IsDNS1123Subdomain(cfg.BaseDomain); len(errs) > 0 {
		return &ValidationError{Field: "baseDomain", Reason: errs[0]}
	}
	if eph.Spec.Image == "" {
		return &ValidationError{Field: "spec.image", Reason: "must not be empty"}
	}
	if eph.Spec.Port < 1 || eph.Spec.Port > 65535 {
		return &ValidationError{Field: "spec.port", Reason: "must be in [1, 65535]"}
	}
	if eph.Spec.Expires.IsZero() {
		return &ValidationError{Field: "spec.expires", Reason: "must be set"}
	}
	return nil
}

// Hostname computes the public hostname an Ephemeron is routed at. It is
// the single source of truth for both the Ingress rule and the host
// annotation.
func Hostname(name, baseDomain string) string {
	return fmt.Sprintf("%s.%s", name, baseDomain)
}

// AnnotationHost computes the value written to metadata.annotations["host"]:
// the hostname prefixed with a scheme, https when a TLS secret is
// configured, otherwise cfg.TLSScheme (default https).
func AnnotationHost(eph *qualifiedv1alpha1.Ephemeron, cfg Config) string {
	scheme := cfg.TLSScheme
	if scheme == "" {
		scheme = "https"
	}
	if eph.Spec.TLSSecretName != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, Hostname(eph.Name, cfg.BaseDomain))
}

// OwnerReference returns the owner reference every child resource carries
// back to eph: controller=true, blockOwnerDeletion=true so Kubernetes
// garbage collection cascades deletion to Pod/Service/Ingress.
func OwnerReference(eph *qualifiedv1alpha1.Ephemeron) metav1.OwnerReference {
	return metav1.OwnerReference{
		APIVersion:         groupVersion,
		Kind:               kind,
		Name:               eph.Name,
		UID:                eph.UID,
		Controller:         ptrBool(true),
		BlockOwnerDeletion: ptrBool(true),
	}
}

// Labels returns the labels shared by every child resource and the
// selector the Service uses to find its Pod: labels on the child and the
// Service's selector must agree on ephemeron=<name>.
func Labels(name string) map[string]string {
	return map[string]string{
		labelApp:       name,
		labelEphemeron: name,
	}
}

// BuildPod returns the desired Pod for eph: a single container running
// spec.image, restartPolicy Always, enableServiceLinks disabled so the
// container's environment isn't polluted with unrelated Service env vars.
func BuildPod(eph *qualifiedv1alpha1.Ephemeron) *corev1.Pod {
	enableServiceLinks := false
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:            eph.Name,
			Labels:          Labels(eph.Name),
			OwnerReferences: []metav1.OwnerReference{OwnerReference(eph)},
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				{
					Name:       containerName,
					Image:      eph.Spec.Image,
					Command:    eph.Spec.Command,
					WorkingDir: eph.Spec.WorkingDir,
					Ports: []corev1.ContainerPort{
						{ContainerPort: eph.Spec.Port},
					},
				},
			},
			RestartPolicy:      corev1.RestartPolicyAlways,
			EnableServiceLinks: &enableServiceLinks,
		},
	}
}

// BuildService returns the desired ClusterIP Service for eph, selecting the
// owned Pod by ephemeron=<name> and exposing spec.port -> spec.port.
func BuildService(eph *qualifiedv1alpha1.Ephemeron) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:            eph.Name,
			Labels:          Labels(eph.Name),
			OwnerReferences: []metav1.OwnerReference{OwnerReference(eph)},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: map[string]string{labelEphemeron: eph.Name},
			Ports: []corev1.ServicePort{
				{
					Port:       eph.Spec.Port,
					TargetPort: intstr.FromInt32(eph.Spec.Port),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

// BuildIngress returns the desired Ingress for eph, routing
// "<name>.<baseDomain>" path "/" to the owned Service. A TLS block is
// present iff spec.tlsSecretName is set. IngressAnnotations override
// controller defaults with the same key.
func BuildIngress(eph *qualifiedv1alpha1.Ephemeron, cfg Config) *networkingv1.Ingress {
	host := Hostname(eph.Name, cfg.BaseDomain)
	pathType := networkingv1.PathTypePrefix

	annotations := map[string]string{}
	for k, v := range eph.Spec.IngressAnnotations {
		annotations[k] = v
	}

	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:            eph.Name,
			Labels:          Labels(eph.Name),
			Annotations:     annotations,
			OwnerReferences: []metav1.OwnerReference{OwnerReference(eph)},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: host,
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: eph.Name,
											Port: networkingv1.ServiceBackendPort{
												Number: eph.Spec.Port,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	if eph.Spec.TLSSecretName != "" {
		ing.Spec.TLS = []networkingv1.IngressTLS{
			{Hosts: []string{host}, SecretName: eph.Spec.TLSSecretName},
		}
	}

	return ing
}

func ptrBool(b bool) *bool { return &b }
