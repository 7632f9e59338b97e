package solver

import (
	"sync"
	"sync/atomic"

	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/task"
)

// OnNodeFn processes one node after all of its dependencies have been
// processed. Returning false aborts the walk: no new work is submitted and
// DfsJobs reports failure.
type OnNodeFn func(n *depgraph.Node) bool

// DfsJobs runs onNode over every node reachable from the graph's terminals,
// dependencies before dependents, scheduling independent subtrees as
// parallel tasks on tm.
//
// Every subnode of a fan-out is submitted with RunOrEnqueue except the
// final one, which runs on the submitting worker; the walk therefore makes
// progress with any worker count. A node reached over several paths is
// processed exactly once: the first path claims it and publishes its task
// ID, later paths wait on that same task before running their own node.
func (s *Solved) DfsJobs(tm *task.Manager, onNode OnNodeFn) bool {
	w := &walk{solved: s, onNode: onNode, claimed: make(map[depgraph.NodeID]task.ID)}

	rootID := tm.AddTask(func(tc *task.Context) {
		tc.Successful = w.processSubnodes(tc, nil, s.graph.Terminals())
	})
	return tm.WaitForTasks(rootID)
}

type walk struct {
	solved *Solved
	onNode OnNodeFn

	mu sync.Mutex
	// claimed maps every node that has been scheduled to the task
	// processing its subtree.
	claimed map[depgraph.NodeID]task.ID

	// aborted is set by the first failing onNode call; subtrees reached
	// afterwards are neither scheduled nor processed.
	aborted atomic.Bool
}

// processSubnodes schedules the subtrees of every node in subnodes, waits
// for all of them (including tasks claimed by other paths), and finally
// processes n itself on the current worker. n is nil for the synthetic
// top-level call over the terminals.
func (w *walk) processSubnodes(tc *task.Context, n *depgraph.Node, subnodes depgraph.NodesSet) bool {
	if w.aborted.Load() {
		return false
	}

	successful := true

	if len(subnodes) > 0 {
		ordered := subnodes.Sorted()

		var nodeTasks []task.ID
		var fresh []*task.Prepared
		for _, nid := range ordered {
			w.mu.Lock()
			if tid, seen := w.claimed[nid]; seen {
				w.mu.Unlock()
				nodeTasks = append(nodeTasks, tid)
				continue
			}

			sub := w.solved.graph.Node(nid)
			p := tc.Prepare(func(subTC *task.Context) {
				subTC.Successful = w.processSubnodes(subTC, sub, sub.Dependencies)
			})
			w.claimed[nid] = p.ID()
			w.mu.Unlock()

			fresh = append(fresh, p)
			nodeTasks = append(nodeTasks, p.ID())
		}

		for idx, p := range fresh {
			// The last freshly claimed subnode runs on this worker so a
			// fan-out never parks its submitter while work is pending.
			if idx == len(fresh)-1 {
				p.RunSameThread()
			} else {
				p.RunOrEnqueue()
			}
		}

		successful = tc.WaitForTasks(nodeTasks...)
	}

	if successful && n != nil {
		successful = !w.aborted.Load() && w.onNode(n)
		if !successful {
			w.aborted.Store(true)
		}
	}

	return successful
}
