package metadata

import (
	"fmt"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/util"
)

// NewWorkflowEncoderDecoder is the codec every WorkflowStorage uses for
// persisted workflows.
func NewWorkflowEncoderDecoder() util.EncoderDecoder[model.Workflow] {
	return util.NewJsonEncoderDecoder[model.Workflow](util.RECORD_KIND_WORKFLOW, checkStoredWorkflow)
}

func checkStoredWorkflow(wf *model.Workflow) error {
	if len(wf.ID) == 0 {
		return fmt.Errorf("workflow id can not be empty")
	}
	for _, node := range wf.Nodes {
		if len(node.ID) == 0 {
			return fmt.Errorf("workflow %s has a node without id", wf.ID)
		}
	}
	return nil
}
