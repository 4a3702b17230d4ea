package scorer

// PassAtK is the mean reward across k trials of the same task: the trial
// success rate when rewards are binary. Order-independent by construction.
func PassAtK(rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0.0
	}
	var sum float64
	for _, r := range rewards {
		sum += r
	}
	return sum / float64(len(rewards))
}

// PassExpK is the strict consistency metric: 1.0 only if every trial
// scored a full reward. A single failure zeroes it.
func PassExpK(rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0.0
	}
	for _, r := range rewards {
		if r != 1.0 {
			return 0.0
		}
	}
	return 1.0
}
