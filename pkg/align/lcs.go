// Package align implements longest-common-subsequence alignment between
// detected and expected orderings.  The structure evaluator uses it to score
// how much of the expected presentation order the student preserved.
package align

// LCSLength returns the length of the longest common subsequence of a and b
// using the standard O(len(a)*len(b)) dynamic program.
func LCSLength(a, b []string) int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return 0
	}
	dp := newTable(a, b)
	return dp[m][n]
}

// LCSElements recovers one longest common subsequence of a and b.
// Recovery is deterministic: on ties the backtrack moves up, which biases the
// result toward earlier elements of the first sequence.
func LCSElements(a, b []string) []string {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}
	dp := newTable(a, b)

	out := make([]string, 0, dp[m][n])
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			out = append(out, a[i-1])
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	// Reverse into sequence order.
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// Score returns LCSLength(detected, expected) divided by len(expected).
// An empty expected sequence scores 1.0: there is nothing to miss.
func Score(detected, expected []string) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	return float64(LCSLength(detected, expected)) / float64(len(expected))
}

func newTable(a, b []string) [][]int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp
}
