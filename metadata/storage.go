package metadata

import "github.com/mohitkumar/canvasflow/model"

type WorkflowStorage interface {
	SaveWorkflow(wf model.Workflow) error
	DeleteWorkflow(id string) error
	GetWorkflow(id string) (*model.Workflow, error)
}
