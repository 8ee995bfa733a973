package container

import (
	"context"
	"testing"

	"github.com/mohitkumar/canvasflow/config"
	"github.com/mohitkumar/canvasflow/executor"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/stretchr/testify/require"
)

func TestGettersPanicBeforeInit(t *testing.T) {
	d := NewDiContainer()
	require.Panics(t, func() { d.GetMetadataService() })
}

func TestInitWithoutCredentials(t *testing.T) {
	d := NewDiContainer()
	require.NoError(t, d.Init(context.Background(), config.Config{
		StorageType: config.STORAGE_TYPE_INMEM,
		CacheType:   config.CACHE_TYPE_INMEM,
	}))
	require.NotNil(t, d.GetMetadataService())
	require.NotNil(t, d.GetYouTubeService())
	require.NotNil(t, d.GetSocialService())
	require.Equal(t, 0, d.GetTranscriptCache().Len())
	require.False(t, d.GetSpeechClient().Available())
	require.Nil(t, d.GetStreamDialer())

	wf := &model.Workflow{ID: "wf", Nodes: []model.WorkflowNode{
		model.NewNode("p", &model.PromptData{Prompt: "hello"}),
	}}
	require.NoError(t, d.GetMetadataService().GetWorkflowStorage().SaveWorkflow(*wf))

	res := d.GetNodeExecutor().Execute(context.Background(), "p", wf, executor.Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Error.Message, "not configured")
}
