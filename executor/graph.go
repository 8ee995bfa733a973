package executor

import (
	"context"
	"errors"

	"github.com/mohitkumar/canvasflow/model"
)

var ErrDependencyCycle = errors.New("node is part of a dependency cycle")

// ExecutionOrder sorts the workflow nodes so every node comes after the
// nodes feeding it. An edge from a group feeds the group's children into
// the target. Ties keep node-list order. Nodes on a cycle are returned
// separately.
func ExecutionOrder(wf *model.Workflow) (ordered []string, cyclic []string) {
	index := make(map[string]int, len(wf.Nodes))
	for i, n := range wf.Nodes {
		index[n.ID] = i
	}
	deps := make(map[string]map[string]struct{}, len(wf.Nodes))
	addDep := func(from, to string) {
		if from == to {
			return
		}
		if _, ok := index[from]; !ok {
			return
		}
		if deps[to] == nil {
			deps[to] = map[string]struct{}{}
		}
		deps[to][from] = struct{}{}
	}
	for _, e := range wf.Edges {
		if _, ok := index[e.Target]; !ok {
			continue
		}
		src, ok := wf.Node(e.Source)
		if !ok {
			continue
		}
		if src.IsGroup() {
			for _, child := range wf.Children(src.ID) {
				addDep(child.ID, e.Target)
			}
		}
		addDep(e.Source, e.Target)
	}

	indegree := make([]int, len(wf.Nodes))
	dependents := make(map[string][]string)
	for to, froms := range deps {
		indegree[index[to]] = len(froms)
		for from := range froms {
			dependents[from] = append(dependents[from], to)
		}
	}
	done := make([]bool, len(wf.Nodes))
	for {
		next := -1
		for i := range wf.Nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		id := wf.Nodes[next].ID
		ordered = append(ordered, id)
		for _, to := range dependents[id] {
			indegree[index[to]]--
		}
	}
	for i, n := range wf.Nodes {
		if !done[i] {
			cyclic = append(cyclic, n.ID)
		}
	}
	return ordered, cyclic
}

// ExecuteAll runs every node in dependency order and keeps going past
// failed nodes.
func (e *NodeExecutor) ExecuteAll(ctx context.Context, wf *model.Workflow, opts Options) []model.NodeExecutionResult {
	ordered, cyclic := ExecutionOrder(wf)
	results := make([]model.NodeExecutionResult, 0, len(wf.Nodes))
	for _, id := range ordered {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(id, err))
			continue
		}
		results = append(results, e.Execute(ctx, id, wf, opts))
	}
	for _, id := range cyclic {
		results = append(results, failed(id, ErrDependencyCycle))
	}
	return results
}

func failed(nodeId string, err error) model.NodeExecutionResult {
	return model.NodeExecutionResult{
		NodeID: nodeId,
		Status: model.EXECUTION_ERROR,
		Error:  &model.ExecutionError{Message: err.Error()},
	}
}
