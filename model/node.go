package model

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

type NodeType string

const NODE_TYPE_TEXT NodeType = "text"
const NODE_TYPE_PDF NodeType = "pdf"
const NODE_TYPE_VOICE NodeType = "voice"
const NODE_TYPE_YOUTUBE NodeType = "youtube"
const NODE_TYPE_INSTAGRAM NodeType = "instagram"
const NODE_TYPE_LINKEDIN NodeType = "linkedin"
const NODE_TYPE_IMAGE NodeType = "image"
const NODE_TYPE_WEBPAGE NodeType = "webpage"
const NODE_TYPE_MINDMAP NodeType = "mindmap"
const NODE_TYPE_TEMPLATE NodeType = "template"
const NODE_TYPE_CHAT NodeType = "chat"
const NODE_TYPE_GROUP NodeType = "group"
const NODE_TYPE_PROMPT NodeType = "prompt"
const NODE_TYPE_IMAGE_GENERATION NodeType = "imageGeneration"

type NodeStatus string

const STATUS_IDLE NodeStatus = "idle"
const STATUS_LOADING NodeStatus = "loading"
const STATUS_SUCCESS NodeStatus = "success"
const STATUS_ERROR NodeStatus = "error"

// MaxAIInstructionsLength caps the free-text instructions attached to a node.
const MaxAIInstructionsLength = 2000

// NodeData is the typed payload of a workflow node. The set of
// implementations is closed: only the payload types in this package
// satisfy it.
type NodeData interface {
	NodeType() NodeType
	Base() *BaseData
	isNodeData()
}

// BaseData holds the fields every payload shares.
type BaseData struct {
	Status         NodeStatus `json:"status,omitempty"`
	Error          string     `json:"error,omitempty"`
	AIInstructions string     `json:"aiInstructions,omitempty"`
	ExecutedAt     *time.Time `json:"executedAt,omitempty"`
}

func (b *BaseData) Base() *BaseData {
	return b
}

func (*BaseData) isNodeData() {}

// MarkSuccess records a successful execution at t.
func (b *BaseData) MarkSuccess(t time.Time) {
	b.Status = STATUS_SUCCESS
	b.Error = ""
	b.ExecutedAt = &t
}

func (b *BaseData) MarkError(err error) {
	b.Status = STATUS_ERROR
	b.Error = err.Error()
}

// ClampInstructions truncates s to MaxAIInstructionsLength runes.
func ClampInstructions(s string) string {
	if utf8.RuneCountInString(s) <= MaxAIInstructionsLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxAIInstructionsLength])
}

// NewNodeData returns an empty payload for the node type.
func NewNodeData(t NodeType) (NodeData, error) {
	switch t {
	case NODE_TYPE_TEXT:
		return &TextData{}, nil
	case NODE_TYPE_PDF:
		return &PDFData{}, nil
	case NODE_TYPE_VOICE:
		return &VoiceData{}, nil
	case NODE_TYPE_YOUTUBE:
		return &YouTubeData{}, nil
	case NODE_TYPE_INSTAGRAM:
		return &InstagramData{}, nil
	case NODE_TYPE_LINKEDIN:
		return &LinkedInData{}, nil
	case NODE_TYPE_IMAGE:
		return &ImageData{}, nil
	case NODE_TYPE_WEBPAGE:
		return &WebpageData{}, nil
	case NODE_TYPE_MINDMAP:
		return &MindMapData{}, nil
	case NODE_TYPE_TEMPLATE:
		return &TemplateData{}, nil
	case NODE_TYPE_CHAT:
		return &ChatData{}, nil
	case NODE_TYPE_GROUP:
		return &GroupData{}, nil
	case NODE_TYPE_PROMPT:
		return &PromptData{}, nil
	case NODE_TYPE_IMAGE_GENERATION:
		return &ImageGenerationData{}, nil
	}
	return nil, fmt.Errorf("unknown node type %q", t)
}

type WorkflowNode struct {
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	ParentID    string   `json:"parentId,omitempty"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
	Data        NodeData `json:"data"`
}

func (n *WorkflowNode) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID          string          `json:"id"`
		Type        NodeType        `json:"type"`
		ParentID    string          `json:"parentId"`
		Label       string          `json:"label"`
		Description string          `json:"description"`
		Disabled    bool            `json:"disabled"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	data, err := NewNodeData(aux.Type)
	if err != nil {
		return fmt.Errorf("node %s: %w", aux.ID, err)
	}
	if len(aux.Data) > 0 && string(aux.Data) != "null" {
		if err := json.Unmarshal(aux.Data, data); err != nil {
			return fmt.Errorf("node %s: invalid %s data: %w", aux.ID, aux.Type, err)
		}
	}
	base := data.Base()
	base.AIInstructions = ClampInstructions(base.AIInstructions)
	if base.Status == "" {
		base.Status = STATUS_IDLE
	}
	*n = WorkflowNode{
		ID:          aux.ID,
		Type:        aux.Type,
		ParentID:    aux.ParentID,
		Label:       aux.Label,
		Description: aux.Description,
		Disabled:    aux.Disabled,
		Data:        data,
	}
	return nil
}

// NewNode builds a node whose Type matches its payload.
func NewNode(id string, data NodeData) WorkflowNode {
	return WorkflowNode{
		ID:   id,
		Type: data.NodeType(),
		Data: data,
	}
}

func (n WorkflowNode) IsGroup() bool {
	_, ok := n.Data.(*GroupData)
	return ok
}
