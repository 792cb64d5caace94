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
	"sort"
	"time"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"
	"github.com/qualified-io/ephemeron-controller/internal/builder"
	"github.com/qualified-io/ephemeron-controller/internal/cluster"
	"github.com/qualified-io/ephemeron-controller/internal/conditions"
	"github.com/qualified-io/ephemeron-controller/internal/ratelimiter"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apiequality "k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// defaultWorkers is used when EphemeronReconciler.Workers is unset.
const defaultWorkers = 2

// EphemeronReconciler reconciles an Ephemeron object.
type EphemeronReconciler struct {
	Cluster       *cluster.Adapter
	Scheme        *runtime.Scheme
	BuilderConfig builder.Config

	// Clock allows tests to control "now"; nil uses the real wall clock.
	Clock clock.Clock

	// Workers is the desired MaxConcurrentReconciles; 0 uses defaultWorkers.
	Workers int

	// ReconcileTimeout bounds one Reconcile call; 0 disables the bound.
	ReconcileTimeout time.Duration
}

// +kubebuilder:rbac:groups=qualified.io,resources=ephemerons,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=qualified.io,resources=ephemerons/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=endpoints,verbs=get;list;watch
// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=get;list;watch;create;update;patch;delete

// Reconcile drives an Ephemeron through its decision procedure: expiry
// check, host annotation, child ensure (Pod, Service, Ingress, in order),
// status update, requeue-after.
func (r *EphemeronReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	if r.ReconcileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ReconcileTimeout)
		defer cancel()
	}

	var eph qualifiedv1alpha1.Ephemeron
	if err := r.Cluster.Get(ctx, req.NamespacedName, &eph); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	now := r.now()

	// 0. Validation. A malformed spec cannot be built into children at all;
	// surface the failure on status.conditions and stop here rather than
	// requeue by backoff, since nothing changes until the spec is edited.
	if validationErr := builder.Validate(&eph, r.BuilderConfig); validationErr != nil {
		log.Error(validationErr, "ephemeron failed validation")
		if err := r.setInvalid(ctx, &eph, validationErr, now); err != nil {
			reconcileTotal.WithLabelValues("error").Inc()
			return ctrl.Result{}, err
		}
		reconcileTotal.WithLabelValues("invalid").Inc()
		return ctrl.Result{}, nil
	}

	// 1. Expiry check.
	if !now.Before(eph.Spec.Expires.Time) {
		if err := r.Cluster.Delete(ctx, &eph); err != nil && !cluster.IsNotFound(err) {
			reconcileTotal.WithLabelValues("error").Inc()
			return ctrl.Result{}, fmt.Errorf("deleting expired ephemeron: %w", err)
		}
		reconcileTotal.WithLabelValues("expired").Inc()
		return ctrl.Result{}, nil
	}

	// 2. Host annotation. Must land before any readiness is reported.
	if err := r.ensureHostAnnotation(ctx, &eph); err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}

	// 3. Child ensure, in order.
	podOwned, err := r.ensurePod(ctx, &eph, log)
	if err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}
	serviceOwned, err := r.ensureService(ctx, &eph, log)
	if err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}
	if _, err := r.ensureIngress(ctx, &eph, log); err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}

	// 4. Status update.
	if err := r.updateStatus(ctx, &eph, podOwned, serviceOwned, now); err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return ctrl.Result{}, err
	}

	reconcileTotal.WithLabelValues("success").Inc()

	// 5. Requeue decision: wake up at expiry regardless of interim events.
	return ctrl.Result{RequeueAfter: time.Until(eph.Spec.Expires.Time)}, nil
}

// setInvalid records why eph failed validation on status.conditions,
// touching only the Valid condition so readiness facts gathered from a
// prior, valid generation are left alone.
func (r *EphemeronReconciler) setInvalid(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron, validationErr error, now time.Time) error {
	key := client.ObjectKeyFromObject(eph)

	err := r.Cluster.RetryOnConflict(ctx, func() error {
		var fresh qualifiedv1alpha1.Ephemeron
		if err := r.Cluster.Get(ctx, key, &fresh); err != nil {
			return err
		}

		newConditions := conditions.SetCondition(fresh.Status.Conditions, metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionValid,
			Status:  metav1.ConditionFalse,
			Reason:  "ValidationFailed",
			Message: validationErr.Error(),
		}, now)

		if apiequality.Semantic.DeepEqual(fresh.Status.Conditions, newConditions) && fresh.Status.ObservedGeneration == fresh.Generation {
			*eph = fresh
			return nil
		}

		patch := client.MergeFrom(fresh.DeepCopy())
		fresh.Status.Conditions = newConditions
		fresh.Status.ObservedGeneration = fresh.Generation
		if err := r.Cluster.Status().Patch(ctx, &fresh, patch); err != nil {
			return err
		}
		*eph = fresh
		return nil
	})
	if err != nil {
		return fmt.Errorf("patching invalid status: %w", err)
	}
	return nil
}

func (r *EphemeronReconciler) ensureHostAnnotation(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron) error {
	expected := builder.AnnotationHost(eph, r.BuilderConfig)
	if eph.Annotations != nil && eph.Annotations[qualifiedv1alpha1.HostAnnotation] == expected {
		return nil
	}

	key := client.ObjectKeyFromObject(eph)

	err := r.Cluster.RetryOnConflict(ctx, func() error {
		var fresh qualifiedv1alpha1.Ephemeron
		if err := r.Cluster.Get(ctx, key, &fresh); err != nil {
			return err
		}
		if fresh.Annotations != nil && fresh.Annotations[qualifiedv1alpha1.HostAnnotation] == expected {
			*eph = fresh
			return nil
		}

		patch := client.MergeFrom(fresh.DeepCopy())
		if fresh.Annotations == nil {
			fresh.Annotations = map[string]string{}
		}
		fresh.Annotations[qualifiedv1alpha1.HostAnnotation] = expected
		if err := r.Cluster.Patch(ctx, &fresh, patch); err != nil {
			return err
		}
		*eph = fresh
		return nil
	})
	if err != nil {
		return fmt.Errorf("patching host annotation: %w", err)
	}
	return nil
}

func (r *EphemeronReconciler) ensurePod(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron, log logr.Logger) (bool, error) {
	desired := builder.BuildPod(eph)

	var existing corev1.Pod
	err := r.Cluster.Get(ctx, client.ObjectKeyFromObject(desired), &existing)
	if cluster.IsNotFound(err) {
		if createErr := r.Cluster.Create(ctx, desired); createErr != nil && !cluster.IsAlreadyExists(createErr) {
			return false, fmt.Errorf("creating pod: %w", createErr)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting pod: %w", err)
	}

	if !isControlledBy(&existing, eph) {
		ownershipConflictTotal.WithLabelValues("Pod").Inc()
		log.Error(errOwnershipConflict, "pod is not controlled by this ephemeron", "pod", existing.Name)
		return false, nil
	}
	return true, nil
}

func (r *EphemeronReconciler) ensureService(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron, log logr.Logger) (bool, error) {
	desired := builder.BuildService(eph)

	var existing corev1.Service
	err := r.Cluster.Get(ctx, client.ObjectKeyFromObject(desired), &existing)
	if cluster.IsNotFound(err) {
		if createErr := r.Cluster.Create(ctx, desired); createErr != nil && !cluster.IsAlreadyExists(createErr) {
			return false, fmt.Errorf("creating service: %w", createErr)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting service: %w", err)
	}

	if !isControlledBy(&existing, eph) {
		ownershipConflictTotal.WithLabelValues("Service").Inc()
		log.Error(errOwnershipConflict, "service is not controlled by this ephemeron", "service", existing.Name)
		return false, nil
	}

	if servicePortDrifted(&existing, desired) {
		key := client.ObjectKeyFromObject(desired)
		err := r.Cluster.RetryOnConflict(ctx, func() error {
			var fresh corev1.Service
			if err := r.Cluster.Get(ctx, key, &fresh); err != nil {
				return err
			}
			if !servicePortDrifted(&fresh, desired) {
				return nil
			}
			patch := client.MergeFrom(fresh.DeepCopy())
			fresh.Spec.Ports = desired.Spec.Ports
			return r.Cluster.Patch(ctx, &fresh, patch)
		})
		if err != nil {
			return false, fmt.Errorf("patching drifted service ports: %w", err)
		}
	}
	return true, nil
}

func (r *EphemeronReconciler) ensureIngress(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron, log logr.Logger) (bool, error) {
	desired := builder.BuildIngress(eph, r.BuilderConfig)

	var existing networkingv1.Ingress
	err := r.Cluster.Get(ctx, client.ObjectKeyFromObject(desired), &existing)
	if cluster.IsNotFound(err) {
		if createErr := r.Cluster.Create(ctx, desired); createErr != nil && !cluster.IsAlreadyExists(createErr) {
			return false, fmt.Errorf("creating ingress: %w", createErr)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting ingress: %w", err)
	}

	if !isControlledBy(&existing, eph) {
		ownershipConflictTotal.WithLabelValues("Ingress").Inc()
		log.Error(errOwnershipConflict, "ingress is not controlled by this ephemeron", "ingress", existing.Name)
		return false, nil
	}

	if ingressHostDrifted(&existing, desired) {
		// Host changes (e.g. baseDomain reconfigured) aren't patched in
		// place: delete now, the not-found branch above will recreate it
		// from desired state on the next reconcile.
		if err := r.Cluster.Delete(ctx, &existing); err != nil && !cluster.IsNotFound(err) {
			return false, fmt.Errorf("deleting drifted ingress: %w", err)
		}
	}
	return true, nil
}

func (r *EphemeronReconciler) updateStatus(ctx context.Context, eph *qualifiedv1alpha1.Ephemeron, podOwned, serviceOwned bool, now time.Time) error {
	facts := conditions.Facts{}

	if podOwned {
		var pod corev1.Pod
		err := r.Cluster.Get(ctx, client.ObjectKey{Name: eph.Name}, &pod)
		switch {
		case err == nil:
			facts.PodExists = true
			facts.PodPhase = pod.Status.Phase
			if c := findPodReadyCondition(&pod); c != nil {
				facts.PodReadyStatus = c.Status
			}
		case cluster.IsNotFound(err):
			// Pod not observed yet; leave facts at zero value (Unknown).
		default:
			return fmt.Errorf("getting pod for status: %w", err)
		}
	}

	if serviceOwned {
		var ep corev1.Endpoints
		err := r.Cluster.Get(ctx, client.ObjectKey{Name: eph.Name}, &ep)
		switch {
		case err == nil:
			facts.EndpointsReady = endpointsHaveReadyAddress(&ep)
		case cluster.IsNotFound(err):
			// No Endpoints object yet.
		default:
			return fmt.Errorf("getting endpoints for status: %w", err)
		}
	}

	computed := conditions.Compute(eph.Status.Conditions, facts, now)

	validCond := metav1.Condition{
		Type:    qualifiedv1alpha1.ConditionValid,
		Status:  metav1.ConditionTrue,
		Reason:  "ValidationPassed",
		Message: "spec passed validation",
	}
	if old := conditionOfType(eph.Status.Conditions, qualifiedv1alpha1.ConditionValid); old != nil && old.Status == validCond.Status {
		validCond.LastTransitionTime = old.LastTransitionTime
	} else {
		validCond.LastTransitionTime = metav1.NewTime(now)
	}
	computed = append(computed, validCond)
	sort.Slice(computed, func(i, j int) bool { return computed[i].Type < computed[j].Type })

	newStatus := qualifiedv1alpha1.EphemeronStatus{
		ObservedGeneration: eph.Generation,
		Conditions:         computed,
	}

	if apiequality.Semantic.DeepEqual(eph.Status, newStatus) {
		return nil
	}

	key := client.ObjectKeyFromObject(eph)

	err := r.Cluster.RetryOnConflict(ctx, func() error {
		var fresh qualifiedv1alpha1.Ephemeron
		if err := r.Cluster.Get(ctx, key, &fresh); err != nil {
			return err
		}
		if apiequality.Semantic.DeepEqual(fresh.Status, newStatus) {
			*eph = fresh
			return nil
		}

		patch := client.MergeFrom(fresh.DeepCopy())
		fresh.Status = newStatus
		if err := r.Cluster.Status().Patch(ctx, &fresh, patch); err != nil {
			return err
		}
		*eph = fresh
		return nil
	})
	if err != nil {
		return fmt.Errorf("patching status: %w", err)
	}
	return nil
}

func (r *EphemeronReconciler) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock.Now()
}

var errOwnershipConflict = fmt.Errorf("child resource is controlled by another object")

func isControlledBy(obj client.Object, eph *qualifiedv1alpha1.Ephemeron) bool {
	ref := metav1.GetControllerOf(obj)
	return ref != nil && ref.UID == eph.UID
}

func servicePortDrifted(existing *corev1.Service, desired *corev1.Service) bool {
	if len(existing.Spec.Ports) != len(desired.Spec.Ports) {
		return true
	}
	for i := range desired.Spec.Ports {
		if existing.Spec.Ports[i].Port != desired.Spec.Ports[i].Port ||
			existing.Spec.Ports[i].TargetPort != desired.Spec.Ports[i].TargetPort {
			return true
		}
	}
	return false
}

func ingressHostDrifted(existing *networkingv1.Ingress, desired *networkingv1.Ingress) bool {
	if len(existing.Spec.Rules) == 0 || len(desired.Spec.Rules) == 0 {
		return len(existing.Spec.Rules) != len(desired.Spec.Rules)
	}
	return existing.Spec.Rules[0].Host != desired.Spec.Rules[0].Host
}

func conditionOfType(conds []metav1.Condition, typ string) *metav1.Condition {
	for i := range conds {
		if conds[i].Type == typ {
			return &conds[i]
		}
	}
	return nil
}

func findPodReadyCondition(pod *corev1.Pod) *corev1.PodCondition {
	for i := range pod.Status.Conditions {
		if pod.Status.Conditions[i].Type == corev1.PodReady {
			return &pod.Status.Conditions[i]
		}
	}
	return nil
}

func endpointsHaveReadyAddress(ep *corev1.Endpoints) bool {
	for _, subset := range ep.Subsets {
		if len(subset.Addresses) > 0 {
			return true
		}
	}
	return false
}

// SetupWithManager registers the reconciler with mgr, watching Ephemerons
// directly and their owned Pods, Services, and Ingresses for interim
// wakeups.
func (r *EphemeronReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Workers == 0 {
		r.Workers = defaultWorkers
	}
	if r.Cluster == nil {
		r.Cluster = cluster.New(mgr.GetClient())
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&qualifiedv1alpha1.Ephemeron{}).
		Owns(&corev1.Pod{}).
		Owns(&corev1.Service{}).
		Owns(&networkingv1.Ingress{}).
		Named("ephemeron").
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.Workers,
			RateLimiter:             ratelimiter.New(),
		}).
		Complete(r)
}
