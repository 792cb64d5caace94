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

package conditions

import (
	"sort"
	"time"

	qualifiedv1alpha1 "github.com/qualified-io/ephemeron-controller/api/v1alpha1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Facts is the observed child-resource state a Compute call derives
// conditions from. PodPhase is carried through for logging/debugging even
// though it does not feed the PodReady/Available derivation directly.
type Facts struct {
	PodExists       bool
	PodPhase        corev1.PodPhase
	PodReadyStatus  corev1.ConditionStatus // "" if the Pod has no Ready condition
	EndpointsReady  bool
}

const (
	reasonPodMissing   = "PodMissing"
	reasonPodReady     = "PodReady"
	reasonPodNotReady  = "PodNotReady"
	reasonPodUnknown   = "PodStatusUnknown"
	reasonHasEndpoints = "HasReadyEndpoints"
	reasonNoEndpoints  = "NoReadyEndpoints"
)

// Compute derives the new status.conditions list from prev and facts. For
// each condition type, the derived status is compared against prev; if
// unchanged, prev's lastTransitionTime is carried forward, otherwise it is
// set to now. The result is sorted by type for stable diffing, since the
// condition set is a mapping keyed by type rather than an ordered log.
func Compute(prev []metav1.Condition, facts Facts, now time.Time) []metav1.Condition {
	desired := map[string]metav1.Condition{
		qualifiedv1alpha1.ConditionPodReady:  podReadyCondition(facts),
		qualifiedv1alpha1.ConditionAvailable: availableCondition(facts),
	}

	prevByType := make(map[string]metav1.Condition, len(prev))
	for _, c := range prev {
		prevByType[c.Type] = c
	}

	nowMeta := metav1.NewTime(now)
	out := make([]metav1.Condition, 0, len(desired))
	for typ, cond := range desired {
		if old, ok := prevByType[typ]; ok && old.Status == cond.Status {
			cond.LastTransitionTime = old.LastTransitionTime
		} else {
			cond.LastTransitionTime = nowMeta
		}
		out = append(out, cond)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// SetCondition upserts cond into prev by type, leaving every condition of a
// different type untouched. lastTransitionTime is carried forward from the
// existing condition of the same type when the status hasn't changed, set
// to now otherwise.
func SetCondition(prev []metav1.Condition, cond metav1.Condition, now time.Time) []metav1.Condition {
	nowMeta := metav1.NewTime(now)
	out := make([]metav1.Condition, 0, len(prev)+1)
	replaced := false
	for _, existing := range prev {
		if existing.Type != cond.Type {
			out = append(out, existing)
			continue
		}
		replaced = true
		if existing.Status == cond.Status {
			cond.LastTransitionTime = existing.LastTransitionTime
		} else {
			cond.LastTransitionTime = nowMeta
		}
		out = append(out, cond)
	}
	if !replaced {
		cond.LastTransitionTime = nowMeta
		out = append(out, cond)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func podReadyCondition(facts Facts) metav1.Condition {
	switch {
	case !facts.PodExists:
		return metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionPodReady,
			Status:  metav1.ConditionUnknown,
			Reason:  reasonPodMissing,
			Message: "pod does not exist",
		}
	case facts.PodReadyStatus == corev1.ConditionTrue:
		return metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionPodReady,
			Status:  metav1.ConditionTrue,
			Reason:  reasonPodReady,
			Message: "pod reports Ready=True",
		}
	case facts.PodReadyStatus == corev1.ConditionFalse:
		return metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionPodReady,
			Status:  metav1.ConditionFalse,
			Reason:  reasonPodNotReady,
			Message: "pod reports Ready=False",
		}
	default:
		return metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionPodReady,
			Status:  metav1.ConditionUnknown,
			Reason:  reasonPodUnknown,
			Message: "pod has no Ready condition",
		}
	}
}

func availableCondition(facts Facts) metav1.Condition {
	if facts.EndpointsReady {
		return metav1.Condition{
			Type:    qualifiedv1alpha1.ConditionAvailable,
			Status:  metav1.ConditionTrue,
			Reason:  reasonHasEndpoints,
			Message: "service endpoints have at least one ready address",
		}
	}
	return metav1.Condition{
		Type:    qualifiedv1alpha1.ConditionAvailable,
		Status:  metav1.ConditionFalse,
		Reason:  reasonNoEndpoints,
		Message: "service endpoints have no ready addresses",
	}
}
