package bars

import "time"

// assembler accumulates the tick -> bar id mapping during a scan.
type assembler struct {
	groupIDs []int
	starts   []time.Time // first timestamp of each group
	current  int
	open     bool // current group has at least one tick
}

func newAssembler(n int) *assembler {
	return &assembler{groupIDs: make([]int, 0, n)}
}

// assign places the next tick in the current group and returns its id.
func (a *assembler) assign(ts time.Time) int {
	if !a.open {
		a.starts = append(a.starts, ts)
		a.open = true
	}
	a.groupIDs = append(a.groupIDs, a.current)
	return a.current
}

// close ends the current group; later ticks go to the next id.
func (a *assembler) close() {
	a.current++
	a.open = false
}

// dropOpen marks the ticks of the still-open group as Unassigned.
func (a *assembler) dropOpen() {
	if !a.open {
		return
	}
	for i := len(a.groupIDs) - 1; i >= 0 && a.groupIDs[i] == a.current; i-- {
		a.groupIDs[i] = Unassigned
	}
	a.starts = a.starts[:len(a.starts)-1]
	a.open = false
}
