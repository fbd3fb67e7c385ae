package quorum

import (
	"math/rand/v2"
)

// drawQuorum picks size distinct replicas at random. Indices are drawn with
// replacement and duplicates are discarded until enough distinct replicas are found.
func drawQuorum(replicas []string, size int) []string {
	if size > len(replicas) {
		size = len(replicas)
	}

	picked := make(map[int]struct{}, size)
	members := make([]string, 0, size)
	for len(members) < size {
		i := rand.IntN(len(replicas))
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		members = append(members, replicas[i])
	}
	return members
}

// drawView draws the read and the write quorum independently of each other
func drawView(replicas []string, readQuorum, writeQuorum int) View {
	return View{
		Read:  drawQuorum(replicas, readQuorum),
		Write: drawQuorum(replicas, writeQuorum),
	}
}
