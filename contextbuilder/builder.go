package contextbuilder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mohitkumar/canvasflow/model"
)

const GROUP_PATH_SEPARATOR = " > "

var ErrGroupCycle = errors.New("group hierarchy contains a cycle")
var ErrTargetNotFound = errors.New("target node not found")

// Build collects the outputs of every node feeding targetId. A group
// connected to the target contributes its direct children instead of
// itself. Items are emitted in node-list order.
func Build(wf *model.Workflow, targetId string) (*model.ChatContext, error) {
	if _, ok := wf.Node(targetId); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetId)
	}
	sources := SourceSet(wf, targetId)
	ctx := &model.ChatContext{}
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if _, ok := sources[node.ID]; !ok {
			continue
		}
		path, err := GroupPath(wf, node.ID)
		if err != nil {
			return nil, err
		}
		meta := model.ContextMetadata{
			NodeID:      node.ID,
			Label:       node.Label,
			Description: node.Description,
			GroupPath:   path,
		}
		project(ctx, node, meta)
	}
	return ctx, nil
}

// SourceSet returns the ids of the nodes whose output flows into targetId.
func SourceSet(wf *model.Workflow, targetId string) map[string]struct{} {
	sources := map[string]struct{}{}
	for _, e := range wf.Incoming(targetId) {
		src, ok := wf.Node(e.Source)
		if !ok {
			continue
		}
		if src.IsGroup() {
			for _, child := range wf.Children(src.ID) {
				if !child.IsGroup() {
					sources[child.ID] = struct{}{}
				}
			}
			continue
		}
		sources[src.ID] = struct{}{}
	}
	delete(sources, targetId)
	for id := range sources {
		if n, _ := wf.Node(id); n.Disabled {
			delete(sources, id)
		}
	}
	return sources
}

func groupName(n *model.WorkflowNode) string {
	if n.Label != "" {
		return n.Label
	}
	if g, ok := n.Data.(*model.GroupData); ok && g.Title != "" {
		return g.Title
	}
	return n.ID
}

// GroupPath names the groups enclosing nodeId, outermost first.
func GroupPath(wf *model.Workflow, nodeId string) (string, error) {
	node, ok := wf.Node(nodeId)
	if !ok {
		return "", nil
	}
	var names []string
	visited := map[string]bool{nodeId: true}
	for parentId := node.ParentID; parentId != ""; {
		if visited[parentId] {
			return "", fmt.Errorf("%w: node %s revisits %s", ErrGroupCycle, nodeId, parentId)
		}
		visited[parentId] = true
		parent, ok := wf.Node(parentId)
		if !ok {
			break
		}
		names = append(names, groupName(parent))
		parentId = parent.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, GROUP_PATH_SEPARATOR), nil
}
