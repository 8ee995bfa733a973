package util

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RECORD_KIND_WORKFLOW   = "workflow"
	RECORD_KIND_TRANSCRIPT = "transcript"
)

const RECORD_VERSION = 1

var ErrRecordKind = errors.New("stored record kind mismatch")
var ErrRecordVersion = errors.New("unsupported stored record version")

// EncoderDecoder turns stored canvasflow records into bytes and back.
type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type record struct {
	Kind    string          `json:"kind"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// JsonRecordCodec wraps every value in a kind/version envelope so a workflow
// hash entry can never be read back as a transcript and vice versa. The
// optional check runs on both sides so invalid values are neither written
// nor returned.
type JsonRecordCodec[T any] struct {
	kind  string
	check func(*T) error
}

var _ EncoderDecoder[any] = new(JsonRecordCodec[any])

func NewJsonEncoderDecoder[T any](kind string, check func(*T) error) *JsonRecordCodec[T] {
	return &JsonRecordCodec[T]{kind: kind, check: check}
}

func (rc *JsonRecordCodec[T]) Kind() string {
	return rc.kind
}

func (rc *JsonRecordCodec[T]) Encode(value T) ([]byte, error) {
	if rc.check != nil {
		if err := rc.check(&value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", rc.kind, err)
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record{Kind: rc.kind, Version: RECORD_VERSION, Data: data})
}

func (rc *JsonRecordCodec[T]) Decode(data []byte) (*T, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Kind != rc.kind {
		return nil, fmt.Errorf("%w: want %s, got %q", ErrRecordKind, rc.kind, rec.Kind)
	}
	if rec.Version != RECORD_VERSION {
		return nil, fmt.Errorf("%w: %d", ErrRecordVersion, rec.Version)
	}
	var res T
	if err := json.Unmarshal(rec.Data, &res); err != nil {
		return nil, err
	}
	if rc.check != nil {
		if err := rc.check(&res); err != nil {
			return nil, fmt.Errorf("decode %s: %w", rc.kind, err)
		}
	}
	return &res, nil
}
