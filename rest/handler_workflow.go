package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/canvasflow/contextbuilder"
	"github.com/mohitkumar/canvasflow/executor"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/persistence"
	"go.uber.org/zap"
)

type executeRequest struct {
	ForceExecution bool   `json:"forceExecution"`
	UserID         string `json:"userId"`
	Async          bool   `json:"async"`
}

func decodeExecuteRequest(r *http.Request) (executeRequest, error) {
	var req executeRequest
	if r.ContentLength == 0 {
		return req, nil
	}
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func (req executeRequest) options() executor.Options {
	return executor.Options{ForceExecution: req.ForceExecution, UserID: req.UserID}
}

func (s *Server) HandleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.Workflow
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.metadataService.ValidateWorkflow(wf); err != nil {
		logger.Error("error validating workflow", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	unlock := s.lock(wf.ID)
	defer unlock()
	if err := s.metadataService.GetWorkflowStorage().SaveWorkflow(wf); err != nil {
		logger.Error("error saving workflow", zap.String("workflow", wf.ID), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving workflow")
		return
	}
	respondOK(w, map[string]any{"saved": true, "id": wf.ID})
}

// loadWorkflow writes the error response itself and returns nil when the
// workflow can not be loaded.
func (s *Server) loadWorkflow(w http.ResponseWriter, id string) *model.Workflow {
	wf, err := s.metadataService.GetWorkflowStorage().GetWorkflow(id)
	if err != nil {
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return nil
		}
		logger.Error("error loading workflow", zap.String("workflow", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error loading workflow")
		return nil
	}
	return wf
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf := s.loadWorkflow(w, mux.Vars(r)["id"])
	if wf == nil {
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.metadataService.GetWorkflowStorage().DeleteWorkflow(id); err != nil {
		logger.Error("error deleting workflow", zap.String("workflow", id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting workflow")
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) HandleExecuteNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req, err := decodeExecuteRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	unlock := s.lock(vars["id"])
	defer unlock()
	wf := s.loadWorkflow(w, vars["id"])
	if wf == nil {
		return
	}
	if _, ok := wf.Node(vars["nodeId"]); !ok {
		respondWithError(w, http.StatusNotFound, "node "+vars["nodeId"]+" not found")
		return
	}
	result := s.runner.Execute(r.Context(), vars["nodeId"], wf, req.options())
	if err := s.metadataService.GetWorkflowStorage().SaveWorkflow(*wf); err != nil {
		logger.Error("error saving executed workflow", zap.String("workflow", wf.ID), zap.Error(err))
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) HandleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := decodeExecuteRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Async {
		if err := s.runQueue.Submit(runRequest{WorkflowID: id, Options: req.options()}); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondWithJSON(w, http.StatusAccepted, map[string]any{"queued": true, "id": id})
		return
	}
	unlock := s.lock(id)
	defer unlock()
	wf := s.loadWorkflow(w, id)
	if wf == nil {
		return
	}
	results := s.runner.ExecuteAll(r.Context(), wf, req.options())
	if err := s.metadataService.GetWorkflowStorage().SaveWorkflow(*wf); err != nil {
		logger.Error("error saving executed workflow", zap.String("workflow", wf.ID), zap.Error(err))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"id": id, "results": results})
}

func (s *Server) runQueued(req runRequest) error {
	unlock := s.lock(req.WorkflowID)
	defer unlock()
	storage := s.metadataService.GetWorkflowStorage()
	wf, err := storage.GetWorkflow(req.WorkflowID)
	if err != nil {
		return err
	}
	results := s.runner.ExecuteAll(context.Background(), wf, req.Options)
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	logger.Info("workflow run complete", zap.String("workflow", wf.ID), zap.Int("nodes", len(results)), zap.Int("failed", failed))
	return storage.SaveWorkflow(*wf)
}

func (s *Server) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wf := s.loadWorkflow(w, vars["id"])
	if wf == nil {
		return
	}
	chatCtx, err := contextbuilder.Build(wf, vars["nodeId"])
	if err != nil {
		if errors.Is(err, contextbuilder.ErrTargetNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"context":  chatCtx,
		"rendered": chatCtx.Render(),
	})
}
