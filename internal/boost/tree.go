package boost

import "sort"

// node is one vertex of a regression tree. Leaves carry the mean residual of
// the rows routed to them.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     float64
	leaf      bool
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows a depth-limited regression tree on the given row subset,
// choosing greedy squared-error splits restricted to cols.
func buildTree(x [][]float64, grad []float64, rows []int, cols []int, depth, maxDepth int) *node {
	if depth >= maxDepth || len(rows) < 2 {
		return &node{leaf: true, value: mean(grad, rows)}
	}

	feature, threshold, ok := bestSplit(x, grad, rows, cols)
	if !ok {
		return &node{leaf: true, value: mean(grad, rows)}
	}

	var left, right []int
	for _, r := range rows {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{leaf: true, value: mean(grad, rows)}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(x, grad, left, cols, depth+1, maxDepth),
		right:     buildTree(x, grad, right, cols, depth+1, maxDepth),
	}
}

// bestSplit scans every candidate column for the threshold with the largest
// sum-of-squared-error reduction. Returns ok=false when no split separates
// the rows.
func bestSplit(x [][]float64, grad []float64, rows []int, cols []int) (int, float64, bool) {
	var (
		bestGain    float64
		bestFeature int
		bestThresh  float64
		found       bool
	)

	total := 0.0
	for _, r := range rows {
		total += grad[r]
	}
	n := float64(len(rows))
	baseScore := total * total / n

	order := make([]int, len(rows))
	for _, f := range cols {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool { return x[order[i]][f] < x[order[j]][f] })

		leftSum := 0.0
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			leftSum += grad[r]
			// Can't split between equal feature values.
			if x[order[i+1]][f] == x[r][f] {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			rightSum := total - leftSum
			gain := leftSum*leftSum/nl + rightSum*rightSum/nr - baseScore
			if !found || gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThresh = (x[r][f] + x[order[i+1]][f]) / 2
				found = true
			}
		}
	}

	if !found || bestGain <= 0 {
		return 0, 0, false
	}
	return bestFeature, bestThresh, true
}

func mean(grad []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += grad[r]
	}
	return sum / float64(len(rows))
}
