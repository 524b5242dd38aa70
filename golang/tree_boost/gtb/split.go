package gtb

//BestSplit contains results of the split selection algorithm.
type BestSplit struct {
	featureIndex int
	categorical  bool
	threshold    float64
	gain         float64
	leftCount    int
}

//splitStats describes the node being split.
type splitStats struct {
	nodeId int
	count  int
	sum    float64
}

//varianceGain returns the decrease of the squared error when the node is divided into two parts.
func varianceGain(leftSum float64, leftCount int, stats splitStats) float64 {
	rightSum, rightCount := stats.sum-leftSum, stats.count-leftCount
	return leftSum*leftSum/float64(leftCount) +
		rightSum*rightSum/float64(rightCount) -
		stats.sum*stats.sum/float64(stats.count)
}

//theBestSplit samples NumVars candidate features and selects the split with the largest positive gain.
func (grower *treeGrower) theBestSplit(leaf *pendingLeaf, sum float64) *BestSplit {
	task := grower.task
	n := len(leaf.rows)
	if leaf.depth >= task.MaxDepth || n < task.MinSamplesSplit || n < 2*task.MinSamplesLeaf || n < 2 {
		return nil
	}

	stats := splitStats{nodeId: leaf.nodeId, count: n, sum: sum}
	var best *BestSplit
	cols := len(grower.features)
	for visited := 0; visited < task.NumVars; visited++ {
		j := cols - 1 - visited
		k := task.Rng.Intn(j + 1)
		grower.features[k], grower.features[j] = grower.features[j], grower.features[k]
		q := grower.features[j]

		var candidate *BestSplit
		if task.Attributes[q] == Categorical {
			candidate = grower.scanCategorical(q, stats)
		} else {
			candidate = grower.scanQuantitative(q, stats)
		}
		if candidate != nil && (best == nil || candidate.gain > best.gain) {
			best = candidate
		}
	}
	return best
}

//scanQuantitative walks the presorted column q over the rows of the node and
//evaluates a threshold between every pair of distinct neighbouring values.
func (grower *treeGrower) scanQuantitative(q int, stats splitStats) *BestSplit {
	task := grower.task
	var best *BestSplit
	leftCount, leftSum := 0, 0.0
	prevValue, started := 0.0, false
	for _, row := range task.Order.Column(q) {
		if grower.nodeOf[row] != stats.nodeId {
			continue
		}
		value := task.X.At(row, q)
		if started && value > prevValue &&
			leftCount >= task.MinSamplesLeaf && stats.count-leftCount >= task.MinSamplesLeaf {
			gain := varianceGain(leftSum, leftCount, stats)
			if gain > 0 && (best == nil || gain > best.gain) {
				best = &BestSplit{
					featureIndex: q,
					threshold:    midpoint(prevValue, value),
					gain:         gain,
					leftCount:    leftCount,
				}
			}
		}
		leftCount++
		leftSum += task.Response[row]
		prevValue, started = value, true
	}
	return best
}

//midpoint returns a threshold t with lower < t <= upper. Adjacent floats have no value strictly
//between them, then upper itself is used.
func midpoint(lower, upper float64) float64 {
	threshold := lower + (upper-lower)/2
	if threshold <= lower {
		return upper
	}
	return threshold
}

//scanCategorical evaluates every "value versus the rest" partition of the categorical column q.
//Equal values are adjacent in the presorted column.
func (grower *treeGrower) scanCategorical(q int, stats splitStats) *BestSplit {
	task := grower.task
	var best *BestSplit
	runCount, runSum := 0, 0.0
	runValue := 0.0

	flush := func() {
		if runCount < task.MinSamplesLeaf || stats.count-runCount < task.MinSamplesLeaf || runCount == stats.count {
			return
		}
		gain := varianceGain(runSum, runCount, stats)
		if gain > 0 && (best == nil || gain > best.gain) {
			best = &BestSplit{
				featureIndex: q,
				categorical:  true,
				threshold:    runValue,
				gain:         gain,
				leftCount:    runCount,
			}
		}
	}

	for _, row := range task.Order.Column(q) {
		if grower.nodeOf[row] != stats.nodeId {
			continue
		}
		value := task.X.At(row, q)
		if runCount > 0 && value != runValue {
			flush()
			runCount, runSum = 0, 0.0
		}
		runValue = value
		runCount++
		runSum += task.Response[row]
	}
	if runCount > 0 {
		flush()
	}
	return best
}
