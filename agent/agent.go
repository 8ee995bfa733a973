package agent

import (
	"context"
	"sync"

	"github.com/mohitkumar/canvasflow/analytics"
	"github.com/mohitkumar/canvasflow/config"
	"github.com/mohitkumar/canvasflow/container"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/recording"
	"github.com/mohitkumar/canvasflow/rest"
)

type Agent struct {
	Config       config.Config
	container    *container.DIContiner
	httpServer   *rest.Server
	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config:    conf,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupContainer,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	return analytics.InitDataCollector(a.Config.AnalyticsConfig)
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(context.Background(), a.Config)
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(rest.ServerConfig{
		HttpPort:        a.Config.HttpPort,
		MetadataService: a.container.GetMetadataService(),
		Runner:          a.container.GetNodeExecutor(),
		YouTube:         a.container.GetYouTubeService(),
		Social:          a.container.GetSocialService(),
		Dialer:          a.container.GetStreamDialer(),
		Batch:           a.container.GetSpeechClient(),
		RecordingConfig: recording.DefaultConfig(),
		TranscriptCache: a.container.GetTranscriptCache(),
	})
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
