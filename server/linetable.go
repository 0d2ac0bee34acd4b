// File: server/linetable.go
// Line-number allocation and socket-to-line routing.

package server

import (
	"github.com/muxtel/muxtel/internal/netio"
	"github.com/muxtel/muxtel/protocol"
)

// line is one active connection: a stable line number, its socket, and the
// Telnet engine decoding its stream. Lines are owned by the table; they are
// created on accept and destroyed on disconnect.
type line struct {
	num        int
	fd         int
	remoteAddr string
	engine     *protocol.Engine

	// closing marks a line whose disconnect callback is in flight, making a
	// second Disconnect for the same line a no-op.
	closing bool
}

// SocketWrite sends raw bytes on the line's socket. The socket is
// non-blocking, so the call never stalls; it reports failure instead.
func (l *line) SocketWrite(p []byte) bool {
	return netio.Write(l.fd, p)
}

// lineTable pairs a fixed array of line slots, indexed directly by line
// number, with a socket-to-line reverse index for O(1) event routing. The two
// are always mutated together, under the server mutex; a slot is occupied
// exactly when its socket appears once in the reverse index.
type lineTable struct {
	slots    []*line
	bySocket map[int]int
}

func newLineTable(maxLines int) *lineTable {
	return &lineTable{
		slots:    make([]*line, maxLines),
		bySocket: make(map[int]int),
	}
}

// reserve returns the lowest free line number, or false when every line is
// occupied.
func (t *lineTable) reserve() (int, bool) {
	for n, l := range t.slots {
		if l == nil {
			return n, true
		}
	}
	return 0, false
}

// insert records a line in both the slot array and the reverse index.
func (t *lineTable) insert(l *line) {
	t.slots[l.num] = l
	t.bySocket[l.fd] = l.num
}

// remove erases a line from both tables, freeing its number for reuse.
func (t *lineTable) remove(num int) {
	l := t.slots[num]
	if l == nil {
		return
	}
	t.slots[num] = nil
	delete(t.bySocket, l.fd)
}

// get returns the line for a number, or nil. Out-of-range numbers are nil
// too, so hosts passing stale numbers get the rejection path, not a panic.
func (t *lineTable) get(num int) *line {
	if num < 0 || num >= len(t.slots) {
		return nil
	}
	return t.slots[num]
}

// bySock resolves a readiness event's descriptor to its line, or nil for
// sockets already torn down.
func (t *lineTable) bySock(fd int) *line {
	num, ok := t.bySocket[fd]
	if !ok {
		return nil
	}
	return t.slots[num]
}

// connected returns the numbers of all occupied lines in ascending order.
func (t *lineTable) connected() []int {
	var nums []int
	for n, l := range t.slots {
		if l != nil {
			nums = append(nums, n)
		}
	}
	return nums
}
