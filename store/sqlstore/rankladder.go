// rankladder.go - SQL-backed rank ladder.
//
// Ladder order is conveyed by the rank_ladders insert id, so a re-ordered
// ladder is always flushed as delete-all then insert-in-order.
package sqlstore

import (
	"github.com/warp/permission-engine/data"
)

// RankLadder is a named ordered list of subject refs loaded from the
// rank_ladders table.
type RankLadder struct {
	name  string
	ranks []*SubjectRef
}

func newRankLadder(name string, ranks []*SubjectRef) *RankLadder {
	return &RankLadder{name: name, ranks: ranks}
}

func (l *RankLadder) Name() string {
	return l.name
}

func (l *RankLadder) Ranks() []data.SubjectID {
	return refsToIDs(l.ranks)
}

// RankRefs exposes the allocation-aware refs for the write path.
func (l *RankLadder) RankRefs() []*SubjectRef {
	return l.ranks
}
