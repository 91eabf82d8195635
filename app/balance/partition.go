package balance

// MaxTeamSize is the maximum amount of players in a single team.
const MaxTeamSize = 5

// MaxRosterSize is the maximum amount of players that can be balanced.
const MaxRosterSize = 2 * MaxTeamSize

// Partitions returns every valid Team1 candidate for a roster of n players,
// as ascending index sets into the roster sorted by player ID.
//
// Candidates are ordered by size first (1..min(5, n-1)) and lexicographically
// within the same size. The order is relied upon for tie-breaking.
// Candidates that would leave more than MaxTeamSize players to Team2 are
// skipped.
func Partitions(n int) [][]int {
	if n < 2 {
		return nil
	}

	var result [][]int
	for size := 1; size <= min(MaxTeamSize, n-1); size++ {
		if n-size > MaxTeamSize {
			continue
		}
		result = combinations(n, size, result)
	}
	return result
}

// combinations appends all k-sized subsets of [0, n) to dst in
// lexicographic order.
func combinations(n, k int, dst [][]int) [][]int {
	buf := make([]int, 0, k)

	var walk func(start int)
	walk = func(start int) {
		if len(buf) == k {
			dst = append(dst, append([]int(nil), buf...))
			return
		}
		// not enough elements left to fill the subset
		for i := start; i <= n-(k-len(buf)); i++ {
			buf = append(buf, i)
			walk(i + 1)
			buf = buf[:len(buf)-1]
		}
	}

	walk(0)
	return dst
}
