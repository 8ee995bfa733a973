package metadata

import (
	"sync"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/persistence"
	"github.com/mohitkumar/canvasflow/util"
)

var _ WorkflowStorage = new(inMemoryWorkflowStorage)

// inMemoryWorkflowStorage keeps encoded copies so callers never share
// payload pointers with the store.
type inMemoryWorkflowStorage struct {
	mu             sync.RWMutex
	workflows      map[string][]byte
	encoderDecoder util.EncoderDecoder[model.Workflow]
}

func NewInMemoryWorkflowStorage() *inMemoryWorkflowStorage {
	return &inMemoryWorkflowStorage{
		workflows:      make(map[string][]byte),
		encoderDecoder: NewWorkflowEncoderDecoder(),
	}
}

func (s *inMemoryWorkflowStorage) SaveWorkflow(wf model.Workflow) error {
	data, err := s.encoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = data
	return nil
}

func (s *inMemoryWorkflowStorage) DeleteWorkflow(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	return nil
}

func (s *inMemoryWorkflowStorage) GetWorkflow(id string) (*model.Workflow, error) {
	s.mu.RLock()
	data, ok := s.workflows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, persistence.NotFoundError{Kind: "workflow", Id: id}
	}
	return s.encoderDecoder.Decode(data)
}
