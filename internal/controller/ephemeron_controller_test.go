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

package controller

import (
	"context"
	"fmt"
	"time"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

var _ = Describe("Ephemeron Controller", func() {
	ctx := context.Background()

	newEphemeron := func(name string, expiresIn time.Duration) *qualifiedv1alpha1.Ephemeron {
		return &qualifiedv1alpha1.Ephemeron{
			ObjectMeta: metav1.ObjectMeta{Name: name},
			Spec: qualifiedv1alpha1.EphemeronSpec{
				Image:   "nginx",
				Port:    80,
				Expires: metav1.NewTime(time.Now().Add(expiresIn)),
			},
		}
	}

	AfterEach(func() {
		var list qualifiedv1alpha1.EphemeronList
		Expect(k8sClient.List(ctx, &list)).To(Succeed())
		for i := range list.Items {
			_ = k8sClient.Delete(ctx, &list.Items[i])
		}
	})

	Describe("Scenario: happy path", func() {
		It("creates Pod, Service, Ingress and sets the host annotation", func() {
			name := fmt.Sprintf("foo-%d", GinkgoRandomSeed())
			eph := newEphemeron(name, 24*time.Hour)
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var pod corev1.Pod
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &pod)).To(Succeed())

			var svc corev1.Service
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &svc)).To(Succeed())

			var ing networkingv1.Ingress
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &ing)).To(Succeed())
			Expect(ing.Spec.Rules[0].Host).To(Equal(name + "." + testBaseDomain))

			var updated qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &updated)).To(Succeed())
			Expect(updated.Annotations[qualifiedv1alpha1.HostAnnotation]).To(Equal("https://" + name + "." + testBaseDomain))
			Expect(updated.Status.ObservedGeneration).To(Equal(updated.Generation))
		})
	})

	Describe("Scenario: expired Ephemeron is deleted", func() {
		It("deletes the Ephemeron instead of ensuring children", func() {
			name := fmt.Sprintf("expired-%d", GinkgoRandomSeed())
			eph := newEphemeron(name, -time.Hour)
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var updated qualifiedv1alpha1.Ephemeron
			err = k8sClient.Get(ctx, types.NamespacedName{Name: name}, &updated)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Scenario: spec update drifts the Service port", func() {
		It("patches the Service in place to match the new port", func() {
			name := fmt.Sprintf("drift-%d", GinkgoRandomSeed())
			eph := newEphemeron(name, 24*time.Hour)
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var current qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &current)).To(Succeed())
			current.Spec.Port = 8080
			Expect(k8sClient.Update(ctx, &current)).To(Succeed())

			_, err = r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var svc corev1.Service
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &svc)).To(Succeed())
			Expect(svc.Spec.Ports[0].Port).To(Equal(int32(8080)))
		})
	})

	Describe("Scenario: ownership conflict", func() {
		It("does not overwrite a Pod owned by another object and reports PodReady=Unknown", func() {
			name := fmt.Sprintf("conflict-%d", GinkgoRandomSeed())

			foreignPod := &corev1.Pod{
				ObjectMeta: metav1.ObjectMeta{
					Name: name,
					OwnerReferences: []metav1.OwnerReference{
						{
							APIVersion: "v1",
							Kind:       "ConfigMap",
							Name:       "unrelated",
							UID:        types.UID("unrelated-uid"),
							Controller: boolPtr(true),
						},
					},
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: "x", Image: "busybox"}},
				},
			}
			Expect(k8sClient.Create(ctx, foreignPod)).To(Succeed())

			eph := newEphemeron(name, 24*time.Hour)
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var stillForeign corev1.Pod
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &stillForeign)).To(Succeed())
			Expect(stillForeign.OwnerReferences[0].Name).To(Equal("unrelated"))

			var updated qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &updated)).To(Succeed())
			podReady := findCondition(updated.Status.Conditions, qualifiedv1alpha1.ConditionPodReady)
			Expect(podReady).NotTo(BeNil())
			Expect(podReady.Status).To(Equal(metav1.ConditionUnknown))
		})
	})

	Describe("Scenario: idempotent status updates", func() {
		It("leaves observedGeneration unchanged across a no-op reconcile", func() {
			name := fmt.Sprintf("idempotent-%d", GinkgoRandomSeed())
			eph := newEphemeron(name, 24*time.Hour)
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var first qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &first)).To(Succeed())

			_, err = r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var second qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &second)).To(Succeed())
			Expect(second.Status.ObservedGeneration).To(Equal(first.Status.ObservedGeneration))
		})
	})

	Describe("Scenario: invalid spec", func() {
		It("reports Valid=False and creates no children", func() {
			name := fmt.Sprintf("invalid-%d", GinkgoRandomSeed())
			eph := newEphemeron(name, 24*time.Hour)
			eph.Spec.Image = ""
			Expect(k8sClient.Create(ctx, eph)).To(Succeed())

			r := newReconciler()
			_, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: name}})
			Expect(err).NotTo(HaveOccurred())

			var pod corev1.Pod
			err = k8sClient.Get(ctx, types.NamespacedName{Name: name}, &pod)
			Expect(err).To(HaveOccurred())

			var updated qualifiedv1alpha1.Ephemeron
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: name}, &updated)).To(Succeed())
			valid := findCondition(updated.Status.Conditions, qualifiedv1alpha1.ConditionValid)
			Expect(valid).NotTo(BeNil())
			Expect(valid.Status).To(Equal(metav1.ConditionFalse))
		})
	})

	Describe("Scenario: missing Ephemeron", func() {
		It("returns no error and an empty result", func() {
			r := newReconciler()
			result, err := r.Reconcile(ctx, reconcile.Request{NamespacedName: types.NamespacedName{Name: "does-not-exist"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconcile.Result{}))
		})
	})
})

func findCondition(conds []metav1.Condition, typ string) *metav1.Condition {
	for i := range conds {
		if conds[i].Type == typ {
			return &conds[i]
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
