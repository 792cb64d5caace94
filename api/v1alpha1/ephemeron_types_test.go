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
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestEphemeron_DeepCopy_is_independent_of_the_original(t *testing.T) {
	now := metav1.NewTime(time.Now().Truncate(time.Second))
	original := &Ephemeron{
		ObjectMeta: metav1.ObjectMeta{Name: "foo"},
		Spec: EphemeronSpec{
			Image:              "nginx",
			Port:               80,
			Expires:            now,
			Command:            []string{"nginx", "-g", "daemon off;"},
			IngressAnnotations: map[string]string{"k": "v"},
		},
		Status: EphemeronStatus{
			Conditions: []metav1.Condition{
				{Type: ConditionPodReady, Status: metav1.ConditionTrue, LastTransitionTime: now},
			},
		},
	}

	clone := original.DeepCopy()
	clone.Spec.Command[0] = "mutated"
	clone.Spec.IngressAnnotations["k"] = "mutated"
	clone.Status.Conditions[0].Status = metav1.ConditionFalse

	if original.Spec.Command[0] != "nginx" {
		t.Fatalf("mutating clone.Spec.Command leaked into original: %v", original.Spec.Command)
	}
	if original.Spec.IngressAnnotations["k"] != "v" {
		t.Fatalf("mutating clone.Spec.IngressAnnotations leaked into original: %v", original.Spec.IngressAnnotations)
	}
	if original.Status.Conditions[0].Status != metav1.ConditionTrue {
		t.Fatalf("mutating clone.Status.Conditions leaked into original: %v", original.Status.Conditions[0].Status)
	}
}

func TestEphemeronList_DeepCopyObject_round_trips_through_runtime_Object(t *testing.T) {
	list := &EphemeronList{
		Items: []Ephemeron{
			{ObjectMeta: metav1.ObjectMeta{Name: "a"}},
			{ObjectMeta: metav1.ObjectMeta{Name: "b"}},
		},
	}

	obj := list.DeepCopyObject()
	clone, ok := obj.(*EphemeronList)
	if !ok {
		t.Fatalf("DeepCopyObject returned %T, want *EphemeronList", obj)
	}
	if len(clone.Items) != 2 || clone.Items[0].Name != "a" || clone.Items[1].Name != "b" {
		t.Fatalf("unexpected clone contents: %+v", clone.Items)
	}
}
