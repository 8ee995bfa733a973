package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/canvasflow/cache"
	"github.com/mohitkumar/canvasflow/executor"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/metadata"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/recording"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/util"
	"github.com/mohitkumar/canvasflow/youtube"
	"go.uber.org/zap"
)

const DEFAULT_QUEUE_CAPACITY = 64

type NodeRunner interface {
	Execute(ctx context.Context, nodeId string, wf *model.Workflow, opts executor.Options) model.NodeExecutionResult
	ExecuteAll(ctx context.Context, wf *model.Workflow, opts executor.Options) []model.NodeExecutionResult
}

type VideoService interface {
	Transcribe(ctx context.Context, url string, opts youtube.TranscribeOptions) (model.TranscriptionResult, error)
	CompareEngines(ctx context.Context, url string) (*youtube.Comparison, error)
}

type PostService interface {
	Fetch(ctx context.Context, url string, userId string) (*social.FetchResult, error)
}

type ServerConfig struct {
	HttpPort        int
	MetadataService metadata.MetadataService
	Runner          NodeRunner
	YouTube         VideoService
	Social          PostService
	Dialer          recording.StreamDialer
	Batch           recording.BatchTranscriber
	RecordingConfig recording.Config
	TranscriptCache cache.TranscriptCache
	QueueCapacity   int
}

type Server struct {
	http.Server
	Port            int
	metadataService metadata.MetadataService
	runner          NodeRunner
	youtube         VideoService
	social          PostService
	dialer          recording.StreamDialer
	batch           recording.BatchTranscriber
	recordingConf   recording.Config
	transcripts     cache.TranscriptCache
	runQueue        *util.Worker[runRequest]
	locks           sync.Map
}

type runRequest struct {
	WorkflowID string
	Options    executor.Options
}

func NewServer(conf ServerConfig) (*Server, error) {
	if conf.MetadataService == nil {
		return nil, fmt.Errorf("metadata service is required")
	}
	if conf.Runner == nil {
		return nil, fmt.Errorf("node runner is required")
	}
	if conf.QueueCapacity <= 0 {
		conf.QueueCapacity = DEFAULT_QUEUE_CAPACITY
	}
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", conf.HttpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:            conf.HttpPort,
		metadataService: conf.MetadataService,
		runner:          conf.Runner,
		youtube:         conf.YouTube,
		social:          conf.Social,
		dialer:          conf.Dialer,
		batch:           conf.Batch,
		recordingConf:   conf.RecordingConfig,
		transcripts:     conf.TranscriptCache,
	}
	s.runQueue = util.NewWorker("workflow-runs", nil, s.runQueued, conf.QueueCapacity)

	router := mux.NewRouter()
	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/cache/clear", s.HandleClearCache).Methods(http.MethodPost)

	router.HandleFunc("/workflow", s.HandleSaveWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{id}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{id}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/workflow/{id}/execute", s.HandleExecuteWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{id}/nodes/{nodeId}/execute", s.HandleExecuteNode).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{id}/nodes/{nodeId}/context", s.HandleGetContext).Methods(http.MethodGet)

	router.HandleFunc("/youtube/transcribe", s.HandleTranscribe).Methods(http.MethodPost)
	router.HandleFunc("/youtube/compare", s.HandleCompare).Methods(http.MethodPost)
	router.HandleFunc("/social/fetch", s.HandleSocialFetch).Methods(http.MethodPost)

	router.HandleFunc("/recording", s.HandleRecording)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	s.runQueue.Start()
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	s.runQueue.Stop()
	return nil
}

// lock serializes executions of one workflow so concurrent runs do not
// overwrite each other's payload updates.
func (s *Server) lock(workflowId string) func() {
	m, _ := s.locks.LoadOrStore(workflowId, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	res := map[string]any{"status": "ok"}
	if s.transcripts != nil {
		res["cache_size"] = s.transcripts.Len()
	}
	respondOK(w, res)
}

func (s *Server) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if s.transcripts == nil {
		respondWithError(w, http.StatusServiceUnavailable, "transcript cache not configured")
		return
	}
	cleared := s.transcripts.Clear()
	logger.Info("transcript cache cleared", zap.Int("entries", cleared))
	respondOK(w, map[string]any{"cleared": cleared})
}
