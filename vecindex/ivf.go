// Copyright 2025 Chattyhq
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


package vecindex

import (
	"math/rand/v2"
)

const kmeansMaxIterations = 12

// IVF is an inverted-file index: entries are partitioned into clusters by
// k-means over their directions, and a query only scans the inverted lists
// of the nprobe closest centroids. The cluster count is fixed at build time
// and controls the accuracy/speed trade-off together with nprobe.
//
// When the corpus is not meaningfully larger than the cluster count the
// index degenerates to a single list, which makes it equivalent to a flat
// scan.
type IVF struct {
	centroids [][]float32
	lists     [][]Entry
	nprobe    int
	size      int
}

var _ Index = (*IVF)(nil)

// BuildIVF clusters the entries into at most clusters inverted lists.
// nprobe is the number of lists scanned per query; values below 1 are
// clamped to 1 and values above the cluster count scan everything.
// The entries slice is retained; callers must not mutate it afterwards.
func BuildIVF(entries []Entry, clusters, nprobe int) *IVF {
	if clusters < 1 {
		clusters = 1
	}
	if nprobe < 1 {
		nprobe = 1
	}

	// Too few entries to be worth partitioning
	if len(entries) <= clusters*2 {
		return &IVF{
			centroids: nil,
			lists:     [][]Entry{entries},
			nprobe:    1,
			size:      len(entries),
		}
	}

	normalized := make([][]float32, len(entries))
	for i, e := range entries {
		normalized[i] = Normalize(e.Vector)
	}

	centroids := seedCentroids(normalized, clusters)
	assignments := make([]int, len(entries))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range normalized {
			best := nearestCentroid(centroids, v)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(centroids, normalized, assignments)
	}

	lists := make([][]Entry, len(centroids))
	for i, e := range entries {
		c := assignments[i]
		lists[c] = append(lists[c], e)
	}

	return &IVF{
		centroids: centroids,
		lists:     lists,
		nprobe:    nprobe,
		size:      len(entries),
	}
}

// Len returns the number of entries in the index.
func (x *IVF) Len() int { return x.size }

// Clusters returns the number of inverted lists.
func (x *IVF) Clusters() int { return len(x.lists) }

// Search probes the nprobe lists whose centroids are closest to the query
// and returns their candidates by descending similarity.
func (x *IVF) Search(query []float32, limit int) []Candidate {
	probe := x.probeOrder(query)

	var candidates []Candidate
	for _, li := range probe {
		for _, e := range x.lists[li] {
			candidates = append(candidates, Candidate{
				ID:         e.ID,
				Similarity: CosineSimilarity(query, e.Vector),
			})
		}
	}
	return sortCandidates(candidates, limit)
}

// probeOrder returns the indexes of the lists to scan, closest centroid first.
func (x *IVF) probeOrder(query []float32) []int {
	if len(x.centroids) == 0 {
		return []int{0}
	}

	q := Normalize(query)
	type scored struct {
		list int
		sim  float32
	}
	order := make([]scored, len(x.centroids))
	for i, c := range x.centroids {
		order[i] = scored{list: i, sim: dot(q, c)}
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j].sim > order[j-1].sim; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	n := x.nprobe
	if n > len(order) {
		n = len(order)
	}
	probe := make([]int, n)
	for i := 0; i < n; i++ {
		probe[i] = order[i].list
	}
	return probe
}

// seedCentroids picks initial centroids with k-means++ style seeding:
// the first centroid is a fixed entry, each subsequent one the vector
// farthest (by cosine) from the centroids chosen so far, with a seeded
// generator breaking exact ties deterministically.
func seedCentroids(vectors [][]float32, k int) [][]float32 {
	rng := rand.New(rand.NewPCG(0x5eed, uint64(len(vectors))))

	centroids := make([][]float32, 0, k)
	first := rng.IntN(len(vectors))
	centroids = append(centroids, clone(vectors[first]))

	for len(centroids) < k {
		worstSim := float32(2)
		worstIdx := -1
		for i, v := range vectors {
			// Distance to the nearest chosen centroid
			best := float32(-2)
			for _, c := range centroids {
				if s := dot(v, c); s > best {
					best = s
				}
			}
			if best < worstSim {
				worstSim = best
				worstIdx = i
			}
		}
		if worstIdx < 0 {
			break
		}
		centroids = append(centroids, clone(vectors[worstIdx]))
	}
	return centroids
}

// nearestCentroid returns the index of the centroid most similar to v.
func nearestCentroid(centroids [][]float32, v []float32) int {
	best := 0
	bestSim := float32(-2)
	for i, c := range centroids {
		if s := dot(v, c); s > bestSim {
			bestSim = s
			best = i
		}
	}
	return best
}

// recomputeCentroids replaces each centroid with the normalized mean of its
// assigned vectors. Empty clusters keep their previous centroid.
func recomputeCentroids(centroids [][]float32, vectors [][]float32, assignments []int) {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dims)
	}
	for i, v := range vectors {
		c := assignments[i]
		counts[c]++
		for d := 0; d < dims && d < len(v); d++ {
			sums[c][d] += float64(v[d])
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		mean := make([]float32, dims)
		for d := 0; d < dims; d++ {
			mean[d] = float32(sums[c][d] / float64(counts[c]))
		}
		centroids[c] = Normalize(mean)
	}
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
