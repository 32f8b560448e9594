package mot

import (
	"math"
	"sort"

	"github.com/arthurkushman/go-hungarian"
)

// forbidden marks pairs which must never be matched
var forbidden = math.Inf(-1)

// affinityMatrix is rows (tracks) x columns (detections) affinities
type affinityMatrix struct {
	values    [][]float64
	rowIDs    []int64
	colScores []float64
}

func newAffinityMatrix(rowIDs []int64, colScores []float64) *affinityMatrix {
	values := make([][]float64, len(rowIDs))
	for i := range values {
		row := make([]float64, len(colScores))
		for j := range row {
			row[j] = forbidden
		}
		values[i] = row
	}
	return &affinityMatrix{
		values:    values,
		rowIDs:    rowIDs,
		colScores: colScores,
	}
}

func (m *affinityMatrix) rows() int { return len(m.rowIDs) }
func (m *affinityMatrix) cols() int { return len(m.colScores) }

func (m *affinityMatrix) eligible(i, j int, floor float64) bool {
	v := m.values[i][j]
	return !math.IsInf(v, -1) && !math.IsNaN(v) && v >= floor
}

// solveAssignment returns one-to-one (row, column) pairs with affinity not less than floor.
// Result is sorted by row then column.
func solveAssignment(m *affinityMatrix, floor float64, algorithm MatchingAlgorithm) [][2]int {
	if m.rows() == 0 || m.cols() == 0 {
		return [][2]int{}
	}
	var matches [][2]int
	switch algorithm {
	case MatchingAlgorithmHungarian:
		matches = performHungarianMatching(m, floor)
	default:
		matches = performGreedyMatching(m, floor)
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a][0] != matches[b][0] {
			return matches[a][0] < matches[b][0]
		}
		return matches[a][1] < matches[b][1]
	})
	return matches
}

// performGreedyMatching takes pairs from the highest affinity to the lowest.
// Ties are resolved by column score (descending) and then by row identifier (ascending).
func performGreedyMatching(m *affinityMatrix, floor float64) [][2]int {
	pq := make(pairHeap, 0, m.rows()*m.cols())
	for i := 0; i < m.rows(); i++ {
		for j := 0; j < m.cols(); j++ {
			if !m.eligible(i, j, floor) {
				continue
			}
			pq.Push(&candidatePair{
				row:      i,
				col:      j,
				affinity: m.values[i][j],
				colScore: m.colScores[j],
				rowID:    m.rowIDs[i],
			})
		}
	}

	// Prevent double assignment of either side
	reservedRows := make(map[int]struct{})
	reservedCols := make(map[int]struct{})
	matches := make([][2]int, 0)
	for pq.Len() > 0 {
		pair := pq.Pop()
		if _, ok := reservedRows[pair.row]; ok {
			continue
		}
		if _, ok := reservedCols[pair.col]; ok {
			continue
		}
		reservedRows[pair.row] = struct{}{}
		reservedCols[pair.col] = struct{}{}
		matches = append(matches, [2]int{pair.row, pair.col})
	}
	return matches
}

// performHungarianMatching solves maximum-weight assignment (Kuhn-Munkres) and drops pairs below floor.
func performHungarianMatching(m *affinityMatrix, floor float64) [][2]int {
	numRows := m.rows()
	numCols := m.cols()
	// Rectangular matrix is padded to square one. Forbidden and dummy cells get zero weight
	paddedSize := maxInt(numRows, numCols)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
	}
	for i := 0; i < numRows; i++ {
		for j := 0; j < numCols; j++ {
			if m.eligible(i, j, floor) {
				paddedMatrix[i][j] = m.values[i][j]
			}
		}
	}
	assignmentsMap := hungarian.SolveMax(paddedMatrix)
	matches := make([][2]int, 0)
	for rowIdx, rowMap := range assignmentsMap {
		for colIdx := range rowMap {
			// Dummy rows/columns and ineligible pairs are not real matches
			if rowIdx < numRows && colIdx < numCols && m.eligible(rowIdx, colIdx, floor) {
				matches = append(matches, [2]int{rowIdx, colIdx})
			}
			break
		}
	}
	return matches
}
