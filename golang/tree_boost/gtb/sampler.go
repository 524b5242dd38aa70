package gtb

import (
	"math"
	"math/rand"

	"github.com/unixpickle/essentials"
	"github.com/yourbasic/bit"
)

//randomStreams holds the generators of one training run. They are never shared or re-seeded.
type randomStreams struct {
	shuffle *rand.Rand // row shuffle before the order index is built
	bagging *rand.Rand // bag draws, advanced once per tree
	tree    *rand.Rand // feature subsets inside the tree learner
}

//newRandomStreams derives every generator of a run from a single seed.
func newRandomStreams(seed int64) randomStreams {
	derived := rand.New(rand.NewSource(seed)).Int63()
	bagging := rand.New(rand.NewSource(derived))
	tree := rand.New(rand.NewSource(bagging.Int63()))
	return randomStreams{
		shuffle: rand.New(rand.NewSource(seed)),
		bagging: bagging,
		tree:    tree,
	}
}

//shufflePermutation returns a Fisher-Yates permutation of n rows.
func shufflePermutation(rng *rand.Rand, n int) []int {
	perm := make([]int, n)
	for ind := range perm {
		perm[ind] = ind
	}
	for ind := n - 1; ind > 0; ind-- {
		other := rng.Intn(ind + 1)
		perm[ind], perm[other] = perm[other], perm[ind]
	}
	return perm
}

//numSamplesFor returns round(n * subsample), at least 1.
func numSamplesFor(n int, subsample float64) int {
	return essentials.MinInt(n, essentials.MaxInt(1, int(math.Round(float64(n)*subsample))))
}

//BagSampler draws bags of distinct rows and remembers which rows were drawn until Clear.
type BagSampler struct {
	rng        *rand.Rand
	perm       []int
	numSamples int
	inBag      *bit.Set
}

//NewBagSampler creates a sampler drawing numSamples of n rows with rng.
func NewBagSampler(rng *rand.Rand, n, numSamples int) *BagSampler {
	perm := make([]int, n)
	for ind := range perm {
		perm[ind] = ind
	}
	return &BagSampler{rng: rng, perm: perm, numSamples: numSamples, inBag: bit.New()}
}

//Draw returns a fresh bag and marks its rows. The returned slice is overwritten by the next Draw.
func (s *BagSampler) Draw() []int {
	n := len(s.perm)
	for ind := 0; ind < s.numSamples; ind++ {
		other := ind + s.rng.Intn(n-ind)
		s.perm[ind], s.perm[other] = s.perm[other], s.perm[ind]
	}
	bag := s.perm[:s.numSamples]
	for _, row := range bag {
		s.inBag.Add(row)
	}
	return bag
}

//InBag reports whether the row was drawn since the last Clear.
func (s *BagSampler) InBag(row int) bool {
	return s.inBag.Contains(row)
}

//Clear forgets every drawn row.
func (s *BagSampler) Clear() {
	s.inBag.DeleteRange(0, len(s.perm))
}

//NumSamples returns the bag size.
func (s *BagSampler) NumSamples() int {
	return s.numSamples
}
