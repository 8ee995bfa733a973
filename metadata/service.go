package metadata

import (
	"fmt"

	"github.com/mohitkumar/canvasflow/model"
)

type MetadataService interface {
	ValidateWorkflow(wf model.Workflow) error
	GetWorkflowStorage() WorkflowStorage
}

type MetadataServiceImpl struct {
	storage WorkflowStorage
}

func NewMetadataService(storage WorkflowStorage) MetadataService {
	return &MetadataServiceImpl{
		storage: storage,
	}
}

func (s *MetadataServiceImpl) ValidateWorkflow(wf model.Workflow) error {
	if len(wf.ID) == 0 {
		return fmt.Errorf("workflow id can not be empty")
	}
	nodes := make(map[string]model.WorkflowNode)
	for _, node := range wf.Nodes {
		if len(node.ID) == 0 {
			return fmt.Errorf("node id can not be empty")
		}
		if _, ok := nodes[node.ID]; ok {
			return fmt.Errorf("node id %s is duplicate", node.ID)
		}
		if node.Data == nil {
			return fmt.Errorf("node %s has no data", node.ID)
		}
		if node.Data.NodeType() != node.Type {
			return fmt.Errorf("node %s has type %s but %s data", node.ID, node.Type, node.Data.NodeType())
		}
		nodes[node.ID] = node
	}
	for _, edge := range wf.Edges {
		if _, ok := nodes[edge.Source]; !ok {
			return fmt.Errorf("edge %s source %s not defined", edge.ID, edge.Source)
		}
		if _, ok := nodes[edge.Target]; !ok {
			return fmt.Errorf("edge %s target %s not defined", edge.ID, edge.Target)
		}
		if edge.Source == edge.Target {
			return fmt.Errorf("edge %s connects node %s to itself", edge.ID, edge.Source)
		}
	}
	for _, node := range wf.Nodes {
		if len(node.ParentID) == 0 {
			continue
		}
		parent, ok := nodes[node.ParentID]
		if !ok {
			return fmt.Errorf("node %s parent %s not defined", node.ID, node.ParentID)
		}
		if !parent.IsGroup() {
			return fmt.Errorf("node %s parent %s is not a group", node.ID, node.ParentID)
		}
		if err := checkAncestors(node, nodes); err != nil {
			return err
		}
	}
	return nil
}

func checkAncestors(node model.WorkflowNode, nodes map[string]model.WorkflowNode) error {
	visited := map[string]bool{node.ID: true}
	current := node
	for len(current.ParentID) > 0 {
		if visited[current.ParentID] {
			return fmt.Errorf("node %s is its own ancestor through %s", node.ID, current.ParentID)
		}
		visited[current.ParentID] = true
		parent, ok := nodes[current.ParentID]
		if !ok {
			return nil
		}
		current = parent
	}
	return nil
}

func (s *MetadataServiceImpl) GetWorkflowStorage() WorkflowStorage {
	return s.storage
}
