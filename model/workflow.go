package model

type WorkflowEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type Workflow struct {
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	UserID string         `json:"userId,omitempty"`
	Nodes  []WorkflowNode `json:"nodes"`
	Edges  []WorkflowEdge `json:"edges"`
}

// Node returns a pointer into the node list so callers can update the payload in place.
func (wf *Workflow) Node(id string) (*WorkflowNode, bool) {
	for i := range wf.Nodes {
		if wf.Nodes[i].ID == id {
			return &wf.Nodes[i], true
		}
	}
	return nil, false
}

func (wf *Workflow) Incoming(target string) []WorkflowEdge {
	var edges []WorkflowEdge
	for _, e := range wf.Edges {
		if e.Target == target {
			edges = append(edges, e)
		}
	}
	return edges
}

func (wf *Workflow) Children(groupId string) []WorkflowNode {
	var children []WorkflowNode
	for _, n := range wf.Nodes {
		if n.ParentID == groupId {
			children = append(children, n)
		}
	}
	return children
}
