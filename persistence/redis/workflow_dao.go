package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/metadata"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/persistence"
	"github.com/mohitkumar/canvasflow/util"
	"go.uber.org/zap"
)

var _ metadata.WorkflowStorage = new(redisWorkflowDao)

type redisWorkflowDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Workflow]
}

func NewRedisWorkflowDao(conf Config, encoderDecoder util.EncoderDecoder[model.Workflow]) *redisWorkflowDao {
	if encoderDecoder == nil {
		encoderDecoder = metadata.NewWorkflowEncoderDecoder()
	}
	return &redisWorkflowDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: encoderDecoder,
	}
}

func (rw *redisWorkflowDao) SaveWorkflow(wf model.Workflow) error {
	key := rw.getNamespaceKey(persistence.WORKFLOW_KEY)
	ctx := context.Background()
	data, err := rw.encoderDecoder.Encode(wf)
	if err != nil {
		return err
	}
	if err := rw.redisClient.HSet(ctx, key, []string{wf.ID, string(data)}).Err(); err != nil {
		logger.Error("error in saving workflow", zap.String("workflow", wf.ID), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rw *redisWorkflowDao) GetWorkflow(id string) (*model.Workflow, error) {
	key := rw.getNamespaceKey(persistence.WORKFLOW_KEY)
	ctx := context.Background()
	wfStr, err := rw.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Id: id}
		}
		logger.Error("error in getting workflow", zap.String("workflow", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rw.encoderDecoder.Decode([]byte(wfStr))
}

func (rw *redisWorkflowDao) DeleteWorkflow(id string) error {
	key := rw.getNamespaceKey(persistence.WORKFLOW_KEY)
	ctx := context.Background()
	if err := rw.redisClient.HDel(ctx, key, id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
