package guest

import (
	"golang.org/x/exp/slices"

	"github.com/invrn/fleetledger/internal/journal"
)

// debugAllow3Ship gates the permissive single-ship debug layout. It is
// wired from config at process boot (FLEET_DEBUG_LAYOUT=true) and must
// default to off: production joins are checked against the 18-cell rule.
var debugAllow3Ship = false

// SetDebugLayout toggles the 3-cell debug fleet-validity rule. Called once
// at boot from cmd/fleetledgerd; guest code itself never reads the
// environment (see journal.BaseInputs — guests take only their inputs).
func SetDebugLayout(on bool) {
	debugAllow3Ship = on
}

// validFleet reports whether board decomposes into the production ship
// set {1,1,2,2,3,4,5}, or — only when the debug flag is set — a single
// contiguous 3-cell ship.
func validFleet(board journal.BoardPositions) bool {
	if debugAllow3Ship && len(board) == 3 {
		return valid3ShipDebugLayout(board)
	}
	return validProductionFleet(board)
}

func valid3ShipDebugLayout(board journal.BoardPositions) bool {
	seen := make(map[journal.PositionIndex]bool, 3)
	for _, pos := range board {
		if pos > 99 || seen[pos] {
			return false
		}
		seen[pos] = true
	}
	sorted := append(journal.BoardPositions(nil), board...)
	slices.Sort(sorted)
	if sorted[1] == sorted[0]+1 && sorted[2] == sorted[1]+1 &&
		sorted[0]/10 == sorted[1]/10 && sorted[1]/10 == sorted[2]/10 {
		return true
	}
	if sorted[1] == sorted[0]+10 && sorted[2] == sorted[1]+10 &&
		sorted[0]%10 == sorted[1]%10 && sorted[1]%10 == sorted[2]%10 {
		return true
	}
	return false
}

// validProductionFleet implements the §3/§4.2.1 algorithm: sort positions,
// greedily grow each unmarked cell into a horizontal run, fall back to a
// vertical run when the horizontal run stayed length 1, and check that
// the collected run lengths are exactly the seven-ship fleet.
func validProductionFleet(board journal.BoardPositions) bool {
	if len(board) != 18 {
		return false
	}

	seen := make(map[journal.PositionIndex]bool, 18)
	for _, pos := range board {
		if pos > 99 || seen[pos] {
			return false
		}
		seen[pos] = true
	}

	positions := append(journal.BoardPositions(nil), board...)
	slices.Sort(positions)

	used := make([]bool, len(positions))
	index := make(map[journal.PositionIndex]int, len(positions))
	for i, p := range positions {
		index[p] = i
	}

	var sizes []int
	for i, start := range positions {
		if used[i] {
			continue
		}
		used[i] = true
		length := 1

		next := start + 1
		for {
			k, ok := index[next]
			if !ok || used[k] || next/10 != start/10 {
				break
			}
			used[k] = true
			length++
			next++
		}

		if length == 1 {
			next = start + 10
			for {
				k, ok := index[next]
				if !ok || used[k] || next%10 != start%10 {
					break
				}
				used[k] = true
				length++
				next += 10
			}
		}

		sizes = append(sizes, length)
	}

	slices.Sort(sizes)
	return slices.Equal(sizes, []int{1, 1, 2, 2, 3, 4, 5})
}
