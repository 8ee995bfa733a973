package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohitkumar/canvasflow/ai"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/retry"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/tier"
	"github.com/mohitkumar/canvasflow/webpage"
	"github.com/mohitkumar/canvasflow/youtube"
	"github.com/stretchr/testify/require"
)

type fakeYouTube struct {
	calls   int
	failFor map[string]bool
	opts    []youtube.TranscribeOptions
}

func (f *fakeYouTube) Transcribe(ctx context.Context, url string, opts youtube.TranscribeOptions) (model.TranscriptionResult, error) {
	f.calls++
	f.opts = append(f.opts, opts)
	if f.failFor[url] {
		return model.TranscriptionResult{}, &tier.ChainError{Chain: "youtube", Failures: []tier.Failure{
			{Tier: model.METHOD_CAPTIONS, Err: youtube.ErrNoCaptions},
			{Tier: model.METHOD_GEMINI_VIDEO, Err: ai.ErrInsufficientOutput},
		}}
	}
	id, _ := youtube.ExtractVideoID(url)
	return model.TranscriptionResult{VideoID: id, Transcript: "transcript of " + id, Method: model.METHOD_CAPTIONS, Language: "en"}, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []ai.Request
	reply    string
	panics   bool
}

func (f *fakeGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if f.panics {
		panic("model exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, nil
}

func (f *fakeGenerator) last() ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeSocial struct{}

func (fakeSocial) Fetch(ctx context.Context, url string, userId string) (*social.FetchResult, error) {
	return &social.FetchResult{
		Post:   &social.Post{URL: url, Author: "cook", Caption: "recipe", VideoURL: "https://cdn/v.mp4", IsVideo: true, ThumbnailURL: "https://cdn/t.jpg"},
		Method: social.METHOD_SCRAPE,
		Storage: social.BackupResult{
			Status:               social.BACKUP_PARTIAL,
			ThumbnailURL:         "https://store/t.jpg",
			OriginalVideoURL:     "https://cdn/v.mp4",
			OriginalThumbnailURL: "https://cdn/t.jpg",
		},
	}, nil
}

type fakeImages struct{}

func (fakeImages) GenerateImage(ctx context.Context, prompt string) (*ai.Image, error) {
	return &ai.Image{Data: []byte{1, 2, 3}, MIMEType: "image/png"}, nil
}

func workflow(nodes ...model.WorkflowNode) *model.Workflow {
	return &model.Workflow{ID: "wf", Nodes: nodes}
}

func TestNodeNotFound(t *testing.T) {
	exec := NewNodeExecutor(Dependencies{}, time.Hour)
	res := exec.Execute(context.Background(), "missing", workflow(), Options{})
	require.False(t, res.Success)
	require.Equal(t, model.EXECUTION_ERROR, res.Status)
	require.Contains(t, res.Error.Message, "missing")
}

func TestDisabledNodeIsBypassed(t *testing.T) {
	yt := &fakeYouTube{}
	n := model.NewNode("y", &model.YouTubeData{URL: "dQw4w9WgXcQ"})
	n.Disabled = true
	res := NewNodeExecutor(Dependencies{YouTube: yt}, time.Hour).Execute(context.Background(), "y", workflow(n), Options{})
	require.True(t, res.Success)
	require.Equal(t, model.EXECUTION_BYPASSED, res.Status)
	require.Equal(t, 0, yt.calls)
}

func TestCachedShortCircuit(t *testing.T) {
	yt := &fakeYouTube{}
	exec := NewNodeExecutor(Dependencies{YouTube: yt}, time.Hour)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	exec.now = func() time.Time { return now }
	wf := workflow(model.NewNode("y", &model.YouTubeData{URL: "https://youtu.be/dQw4w9WgXcQ"}))

	res := exec.Execute(context.Background(), "y", wf, Options{})
	require.True(t, res.Success)
	require.Equal(t, model.EXECUTION_SUCCESS, res.Status)
	data := res.Output.(*model.YouTubeData)
	require.Equal(t, "transcript of dQw4w9WgXcQ", data.Transcript)
	require.Equal(t, model.METHOD_CAPTIONS, data.Method)
	require.Equal(t, model.STATUS_SUCCESS, data.Status)

	res = exec.Execute(context.Background(), "y", wf, Options{})
	require.True(t, res.Cached)
	require.Equal(t, model.EXECUTION_CACHED, res.Status)
	require.Equal(t, 1, yt.calls)

	res = exec.Execute(context.Background(), "y", wf, Options{ForceExecution: true})
	require.False(t, res.Cached)
	require.Equal(t, 2, yt.calls)
	require.True(t, yt.opts[1].SkipCache)

	now = now.Add(2 * time.Hour)
	res = exec.Execute(context.Background(), "y", wf, Options{})
	require.Equal(t, model.EXECUTION_SUCCESS, res.Status)
	require.Equal(t, 3, yt.calls)
}

func TestFailureIsReportedNotRaised(t *testing.T) {
	yt := &fakeYouTube{failFor: map[string]bool{"bad": true}}
	wf := workflow(model.NewNode("y", &model.YouTubeData{URL: "bad"}))
	res := NewNodeExecutor(Dependencies{YouTube: yt}, time.Hour).Execute(context.Background(), "y", wf, Options{})
	require.False(t, res.Success)
	require.Equal(t, model.EXECUTION_ERROR, res.Status)
	require.Contains(t, res.Error.Details, model.METHOD_CAPTIONS)
	require.Contains(t, res.Error.Details, model.METHOD_GEMINI_VIDEO)
	node, _ := wf.Node("y")
	require.Equal(t, model.STATUS_ERROR, node.Data.Base().Status)
	require.NotEmpty(t, node.Data.Base().Error)
}

func TestPanicIsRecovered(t *testing.T) {
	gen := &fakeGenerator{panics: true}
	wf := workflow(model.NewNode("p", &model.PromptData{Prompt: "hi"}))
	res := NewNodeExecutor(Dependencies{Generator: gen}, time.Hour).Execute(context.Background(), "p", wf, Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Error.Message, "model exploded")
	require.NotEmpty(t, res.Error.Stack)
}

func TestMissingServiceIsAnError(t *testing.T) {
	wf := workflow(model.NewNode("p", &model.PromptData{Prompt: "hi"}))
	res := NewNodeExecutor(Dependencies{}, time.Hour).Execute(context.Background(), "p", wf, Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Error.Message, "not configured")
}

func TestPromptUsesUpstreamContext(t *testing.T) {
	gen := &fakeGenerator{reply: "a summary"}
	group := model.NewNode("g", &model.GroupData{})
	group.Label = "Sources"
	note := model.NewNode("n", &model.TextData{Content: "upstream note"})
	note.ParentID = "g"
	prompt := model.NewNode("p", &model.PromptData{Prompt: "Summarize"})
	wf := workflow(group, note, prompt)
	wf.Edges = []model.WorkflowEdge{{Source: "g", Target: "p"}}

	res := NewNodeExecutor(Dependencies{Generator: gen}, time.Hour).Execute(context.Background(), "p", wf, Options{})
	require.True(t, res.Success)
	require.Equal(t, "a summary", res.Output.(*model.PromptData).Output)
	req := gen.last()
	require.True(t, strings.HasPrefix(req.Prompt, "Summarize"))
	require.Contains(t, req.Prompt, "upstream note")
	require.Contains(t, req.Prompt, "Sources")
}

func TestTemplateResolvesPlaceholders(t *testing.T) {
	gen := &fakeGenerator{reply: "filled"}
	video := model.NewNode("v", &model.YouTubeData{VideoID: "abc", Title: "Talk", Transcript: "the talk transcript"})
	tmpl := model.NewNode("t", &model.TemplateData{Template: "Title: {$.youtubeTranscripts[0].title}"})
	wf := workflow(video, tmpl)
	wf.Edges = []model.WorkflowEdge{{Source: "v", Target: "t"}}

	res := NewNodeExecutor(Dependencies{Generator: gen}, time.Hour).Execute(context.Background(), "t", wf, Options{})
	require.True(t, res.Success)
	require.Contains(t, gen.last().Prompt, "Title: Talk")
	require.Equal(t, "filled", res.Output.(*model.TemplateData).Output)
}

func TestChatAppendsMessages(t *testing.T) {
	gen := &fakeGenerator{reply: "It is about Go."}
	wf := workflow(model.NewNode("c", &model.ChatData{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
		Pending:  "What is this about?",
	}))
	res := NewNodeExecutor(Dependencies{Generator: gen}, time.Hour).Execute(context.Background(), "c", wf, Options{})
	require.True(t, res.Success)
	chat := res.Output.(*model.ChatData)
	require.Len(t, chat.Messages, 4)
	require.Equal(t, "What is this about?", chat.Messages[2].Content)
	require.Equal(t, "It is about Go.", chat.Messages[3].Content)
	require.Empty(t, chat.Pending)
	require.Contains(t, gen.last().Prompt, "user: hi")
}

func TestChannelModePartialFailure(t *testing.T) {
	yt := &fakeYouTube{failFor: map[string]bool{youtube.WatchURL("bbbbbbbbbbb"): true}}
	wf := workflow(model.NewNode("y", &model.YouTubeData{
		Mode:           model.YOUTUBE_MODE_CHANNEL,
		SelectedVideos: []model.YouTubeVideo{{ID: "aaaaaaaaaaa"}, {ID: "bbbbbbbbbbb"}},
	}))
	res := NewNodeExecutor(Dependencies{YouTube: yt}, time.Hour).Execute(context.Background(), "y", wf, Options{})
	require.True(t, res.Success)
	videos := res.Output.(*model.YouTubeData).SelectedVideos
	require.Equal(t, "transcript of aaaaaaaaaaa", videos[0].Transcript)
	require.NotEmpty(t, videos[1].Error)

	yt.failFor[youtube.WatchURL("aaaaaaaaaaa")] = true
	res = NewNodeExecutor(Dependencies{YouTube: yt}, time.Hour).Execute(context.Background(), "y", wf, Options{ForceExecution: true})
	require.False(t, res.Success)
}

func TestSocialNodeUsesStoredMedia(t *testing.T) {
	gen := &fakeGenerator{reply: "deep analysis"}
	wf := workflow(model.NewNode("i", &model.InstagramData{SocialPost: model.SocialPost{URL: "https://www.instagram.com/p/x"}}))
	res := NewNodeExecutor(Dependencies{Social: fakeSocial{}, Generator: gen}, time.Hour).Execute(context.Background(), "i", wf, Options{UserID: "u"})
	require.True(t, res.Success)
	post := res.Output.(*model.InstagramData)
	require.Equal(t, "https://store/t.jpg", post.ThumbnailURL)
	require.Equal(t, "https://cdn/v.mp4", post.VideoURL)
	require.Equal(t, "partial", post.StorageStatus)
	require.Equal(t, social.METHOD_SCRAPE, post.FetchMethod)
	require.Equal(t, "deep analysis", post.FullAnalysis)
}

func TestImageGenerationInlinesWithoutStorage(t *testing.T) {
	wf := workflow(model.NewNode("g", &model.ImageGenerationData{Prompt: "a cat"}))
	res := NewNodeExecutor(Dependencies{Images: fakeImages{}}, time.Hour).Execute(context.Background(), "g", wf, Options{})
	require.True(t, res.Success)
	require.Equal(t, "data:image/png;base64,AQID", res.Output.(*model.ImageGenerationData).ImageURL)
}

func TestExecuteAll(t *testing.T) {
	gen := &fakeGenerator{reply: "done"}
	yt := &fakeYouTube{}
	wf := workflow(
		model.NewNode("prompt", &model.PromptData{Prompt: "Summarize"}),
		model.NewNode("video", &model.YouTubeData{URL: "dQw4w9WgXcQ"}),
		model.NewNode("loopA", &model.PromptData{Prompt: "a"}),
		model.NewNode("loopB", &model.PromptData{Prompt: "b"}),
		model.NewNode("pdf", &model.PDFData{}),
	)
	wf.Edges = []model.WorkflowEdge{
		{Source: "video", Target: "prompt"},
		{Source: "loopA", Target: "loopB"},
		{Source: "loopB", Target: "loopA"},
	}
	order, cyclic := ExecutionOrder(wf)
	require.Equal(t, []string{"video", "prompt", "pdf"}, order)
	require.Equal(t, []string{"loopA", "loopB"}, cyclic)

	results := NewNodeExecutor(Dependencies{YouTube: yt, Generator: gen}, time.Hour).ExecuteAll(context.Background(), wf, Options{})
	require.Len(t, results, 5)
	require.True(t, results[0].Success)
	require.True(t, results[1].Success)
	require.Contains(t, gen.last().Prompt, "transcript of dQw4w9WgXcQ")
	require.False(t, results[2].Success)
	require.Equal(t, ErrDependencyCycle.Error(), results[3].Error.Message)
	require.Equal(t, ErrDependencyCycle.Error(), results[4].Error.Message)
}

func TestImageNodeSendsInlineBytes(t *testing.T) {
	img := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-test-image")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	gen := &fakeGenerator{reply: "a cat on a sofa"}
	pages := webpage.NewFetcher(time.Second, retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2})
	wf := workflow(model.NewNode("i", &model.ImageData{URL: srv.URL + "/cat.png"}))
	res := NewNodeExecutor(Dependencies{Generator: gen, Media: pages}, time.Hour).Execute(context.Background(), "i", wf, Options{})
	require.True(t, res.Success, "%+v", res.Error)

	req := gen.last()
	require.Equal(t, img, req.InlineData)
	require.Equal(t, "image/png", req.InlineMIME)
	require.Empty(t, req.MediaURI)
	node, _ := wf.Node("i")
	d := node.Data.(*model.ImageData)
	require.Equal(t, "a cat on a sofa", d.Analysis)
	require.Equal(t, "image/png", d.MimeType)
	require.Equal(t, int32(2), hits.Load())
}

func TestImageNodeDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gen := &fakeGenerator{reply: "unused"}
	pages := webpage.NewFetcher(time.Second, retry.Policy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2})
	wf := workflow(model.NewNode("i", &model.ImageData{URL: srv.URL + "/gone.png"}))
	res := NewNodeExecutor(Dependencies{Generator: gen, Media: pages}, time.Hour).Execute(context.Background(), "i", wf, Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Error.Message, "downloading image")
	require.Empty(t, gen.requests)

	res = NewNodeExecutor(Dependencies{Generator: gen}, time.Hour).Execute(context.Background(), "i", wf, Options{ForceExecution: true})
	require.False(t, res.Success)
	require.Contains(t, res.Error.Message, "image download is not configured")
}
