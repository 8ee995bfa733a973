package contextbuilder

import (
	"encoding/json"
	"testing"

	"github.com/mohitkumar/canvasflow/model"
	"github.com/stretchr/testify/require"
)

func node(id string, parent string, label string, data model.NodeData) model.WorkflowNode {
	n := model.NewNode(id, data)
	n.ParentID = parent
	n.Label = label
	return n
}

func edge(source, target string) model.WorkflowEdge {
	return model.WorkflowEdge{ID: source + "-" + target, Source: source, Target: target}
}

func TestGroupExpansion(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			node("G", "", "Research", &model.GroupData{}),
			node("A", "G", "Note A", &model.TextData{Content: "alpha"}),
			node("B", "G", "Video B", &model.YouTubeData{Mode: model.YOUTUBE_MODE_SINGLE, VideoID: "abc", Transcript: "beta transcript"}),
			node("C", "", "Chat", &model.ChatData{}),
		},
		Edges: []model.WorkflowEdge{edge("G", "C")},
	}
	ctx, err := Build(wf, "C")
	require.NoError(t, err)
	require.Len(t, ctx.TextContext, 1)
	require.Equal(t, "A", ctx.TextContext[0].NodeID)
	require.Equal(t, "Research", ctx.TextContext[0].GroupPath)
	require.Len(t, ctx.YouTubeTranscripts, 1)
	require.Equal(t, "B", ctx.YouTubeTranscripts[0].NodeID)

	wf.Edges = append(wf.Edges, edge("A", "C"))
	again, err := Build(wf, "C")
	require.NoError(t, err)
	require.Equal(t, ctx, again)
	for _, item := range again.TextContext {
		require.NotEqual(t, "G", item.NodeID)
	}
}

func TestEmissionFollowsNodeOrder(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			node("first", "", "", &model.TextData{Content: "1"}),
			node("second", "", "", &model.TextData{Content: "2"}),
			node("third", "", "", &model.TextData{Content: "3"}),
			node("target", "", "", &model.PromptData{Prompt: "go"}),
		},
		Edges: []model.WorkflowEdge{edge("third", "target"), edge("first", "target"), edge("second", "target")},
	}
	for i := 0; i < 5; i++ {
		ctx, err := Build(wf, "target")
		require.NoError(t, err)
		require.Len(t, ctx.TextContext, 3)
		require.Equal(t, "1", ctx.TextContext[0].Content)
		require.Equal(t, "2", ctx.TextContext[1].Content)
		require.Equal(t, "3", ctx.TextContext[2].Content)
	}
}

func TestGroupPathNesting(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			node("outer", "", "Outer", &model.GroupData{}),
			node("inner", "outer", "", &model.GroupData{Title: "Inner"}),
			node("leaf", "inner", "", &model.TextData{Content: "x"}),
		},
	}
	path, err := GroupPath(wf, "leaf")
	require.NoError(t, err)
	require.Equal(t, "Outer > Inner", path)
}

func TestGroupCycle(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			node("g1", "g2", "", &model.GroupData{}),
			node("g2", "g1", "", &model.GroupData{}),
			node("leaf", "g1", "", &model.TextData{Content: "x"}),
			node("target", "", "", &model.ChatData{}),
		},
		Edges: []model.WorkflowEdge{edge("leaf", "target")},
	}
	_, err := GroupPath(wf, "leaf")
	require.ErrorIs(t, err, ErrGroupCycle)
	_, err = Build(wf, "target")
	require.ErrorIs(t, err, ErrGroupCycle)
}

func TestProjection(t *testing.T) {
	wf := &model.Workflow{
		Nodes: []model.WorkflowNode{
			node("empty", "", "", &model.TextData{Content: "   "}),
			node("channel", "", "", &model.YouTubeData{
				Mode:    model.YOUTUBE_MODE_CHANNEL,
				Channel: &model.YouTubeChannel{Name: "Go Talks", Handle: "@gotalks", SubscriberCount: 1000},
				SelectedVideos: []model.YouTubeVideo{
					{ID: "v1", Title: "One", Transcript: "first video"},
					{ID: "v2", Title: "Two"},
					{ID: "v3", Title: "Three", Transcript: "third video"},
				},
			}),
			node("insta", "", "", &model.InstagramData{SocialPost: model.SocialPost{URL: "https://www.instagram.com/p/x", Caption: "cap", FullAnalysis: "full analysis"}}),
			node("linkedin", "", "", &model.LinkedInData{SocialPost: model.SocialPost{URL: "https://www.linkedin.com/posts/x", Caption: "cap", Transcript: "said"}}),
			node("nourl", "", "", &model.InstagramData{SocialPost: model.SocialPost{Caption: "orphan"}}),
			node("chat", "", "", &model.ChatData{Messages: []model.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}}),
			node("mind", "", "", &model.MindMapData{Root: &model.MindMapNode{Text: "root", Children: []*model.MindMapNode{{Text: "child"}}}}),
			node("voice", "", "", &model.VoiceData{Transcript: "spoken"}),
			node("pdf", "", "", &model.PDFData{FileName: "a.pdf", ParsedText: "pages"}),
			node("gen", "", "", &model.ImageGenerationData{Prompt: "cat", ImageURL: "https://img/cat.png"}),
			node("disabled", "", "", &model.TextData{Content: "skip me"}),
			node("target", "", "", &model.ChatData{}),
		},
	}
	wf.Nodes[10].Disabled = true
	for _, n := range wf.Nodes[:len(wf.Nodes)-1] {
		wf.Edges = append(wf.Edges, edge(n.ID, "target"))
	}

	ctx, err := Build(wf, "target")
	require.NoError(t, err)

	require.Len(t, ctx.TextContext, 2)
	require.Contains(t, ctx.TextContext[0].Content, "YouTube channel: Go Talks (@gotalks)")
	require.Contains(t, ctx.TextContext[0].Content, "Videos selected: 3")
	require.Equal(t, "user: hi\nassistant: hello", ctx.TextContext[1].Content)

	require.Len(t, ctx.YouTubeTranscripts, 2)
	require.Equal(t, "v1", ctx.YouTubeTranscripts[0].VideoID)
	require.Equal(t, "v3", ctx.YouTubeTranscripts[1].VideoID)

	require.Len(t, ctx.InstagramReels, 1)
	require.Equal(t, "full analysis", ctx.InstagramReels[0].Content)
	require.Len(t, ctx.LinkedInPosts, 1)
	require.Equal(t, "Caption: cap\n\nTranscript: said", ctx.LinkedInPosts[0].Content)

	require.Len(t, ctx.MindMaps, 1)
	require.Equal(t, "- root\n  - child", ctx.MindMaps[0].Outline)
	require.Len(t, ctx.VoiceTranscripts, 1)
	require.Len(t, ctx.PDFDocuments, 1)
	require.Len(t, ctx.GeneratedImages, 1)

	rendered := ctx.Render()
	require.Contains(t, rendered, "## Notes")
	require.Contains(t, rendered, "## YouTube videos")
	require.Contains(t, rendered, "first video")
	require.NotContains(t, rendered, "## Web pages")
	require.NotContains(t, rendered, "skip me")
}

func TestBuildFromDocument(t *testing.T) {
	doc := `{
		"id": "wf",
		"nodes": [
			{"id": "g", "type": "group", "label": "Sources", "data": {}},
			{"id": "t", "type": "text", "parentId": "g", "data": {"content": "grouped text"}},
			{"id": "p", "type": "prompt", "data": {"prompt": "summarize"}}
		],
		"edges": [{"source": "g", "target": "p"}]
	}`
	var wf model.Workflow
	require.NoError(t, json.Unmarshal([]byte(doc), &wf))
	ctx, err := Build(&wf, "p")
	require.NoError(t, err)
	require.Len(t, ctx.TextContext, 1)
	require.Equal(t, "grouped text", ctx.TextContext[0].Content)
	require.Equal(t, "Sources", ctx.TextContext[0].GroupPath)

	_, err = Build(&wf, "missing")
	require.ErrorIs(t, err, ErrTargetNotFound)
}
