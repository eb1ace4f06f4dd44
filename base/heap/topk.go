// Copyright 2026 otakudb Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"cmp"
	"container/heap"
	"slices"
)

type Elem[T any, W cmp.Ordered] struct {
	Value  T
	Weight W
}

// _heap is a min-heap whose root is the worst element: lowest weight, then
// largest value.
type _heap[T cmp.Ordered, W cmp.Ordered] struct {
	elems []Elem[T, W]
}

func worse[T cmp.Ordered, W cmp.Ordered](a, b Elem[T, W]) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	return a.Value > b.Value
}

func (e *_heap[T, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[T, W]) Less(i, j int) bool {
	return worse(e.elems[i], e.elems[j])
}

func (e *_heap[T, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[T, W]) Push(x interface{}) {
	e.elems = append(e.elems, x.(Elem[T, W]))
}

func (e *_heap[T, W]) Pop() interface{} {
	old := e.elems
	item := e.elems[len(old)-1]
	e.elems = old[0 : len(old)-1]
	return item
}

// TopK keeps the k elements with the largest weights. Among equal weights the
// smaller value ranks first.
type TopK[T cmp.Ordered, W cmp.Ordered] struct {
	_heap[T, W]
	k int
}

func NewTopK[T cmp.Ordered, W cmp.Ordered](k int) *TopK[T, W] {
	return &TopK[T, W]{k: k}
}

// Push offers an element. It is dropped if k better elements are already kept.
func (t *TopK[T, W]) Push(v T, weight W) {
	if t.k <= 0 {
		return
	}
	elem := Elem[T, W]{Value: v, Weight: weight}
	if t.Len() < t.k {
		heap.Push(&t._heap, elem)
	} else if worse(t.elems[0], elem) {
		t.elems[0] = elem
		heap.Fix(&t._heap, 0)
	}
}

// Sorted returns kept elements from best to worst.
func (t *TopK[T, W]) Sorted() []Elem[T, W] {
	sorted := slices.Clone(t.elems)
	slices.SortFunc(sorted, func(a, b Elem[T, W]) int {
		if worse(b, a) {
			return -1
		} else if worse(a, b) {
			return 1
		}
		return 0
	})
	return sorted
}
