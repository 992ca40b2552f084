// Package messages defines the cross-context message schema as tagged
// variants with explicit required and optional fields. Every inbound
// envelope is validated at the boundary, first against an embedded JSON
// Schema and then against the variant's field constraints, and rejected
// there instead of deep inside a handler.
package messages

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/errorterry/algotrack-agent/internal/samples"
)

// Type discriminates message variants on the wire.
type Type string

const (
	TypeSubmitResult   Type = "SUBMIT_RESULT"
	TypeSamples        Type = "BOJ_SAMPLES"
	TypeRequestSamples Type = "REQUEST_SAMPLES"
	TypeRunResult      Type = "BOJ_RUN_RESULT"
	TypeLoginSuccess   Type = "ALGO_LOGIN_SUCCESS"
)

// Message is one decoded variant.
type Message interface {
	MessageType() Type
}

// SubmitResult reports one accepted submission, relayed from the content
// context to the background worker.
type SubmitResult struct {
	Verdict       string `json:"verdict" validate:"required"`
	SubmissionID  string `json:"submissionId" validate:"required"`
	ProblemID     int    `json:"problemId" validate:"required,gt=0"`
	SolvedDate    string `json:"solvedDate" validate:"required,datetime=2006-01-02"`
	TierNumber    string `json:"tierNumber" validate:"required"`
	AlgorithmName string `json:"algorithmName" validate:"required"`
	SolvedAt      int64  `json:"solvedAt" validate:"required,gt=0"`
}

func (SubmitResult) MessageType() Type { return TypeSubmitResult }

// SamplesPayload is one full replacement of the current sample set.
type SamplesPayload struct {
	ProblemID    string           `json:"problemId,omitempty"`
	ProblemTitle string           `json:"problemTitle,omitempty"`
	URL          string           `json:"url" validate:"required"`
	Samples      []samples.Sample `json:"samples"`
	ParsedAt     int64            `json:"parsedAt" validate:"required,gt=0"`
}

// Samples carries a SamplesPayload from the page bridge to consumers.
type Samples struct {
	Payload SamplesPayload `json:"payload"`
}

func (Samples) MessageType() Type { return TypeSamples }

// RequestSamples asks the bridge to recompute and rebroadcast.
type RequestSamples struct{}

func (RequestSamples) MessageType() Type { return TypeRequestSamples }

// RunResultPayload is one produced output keyed by sample id.
type RunResultPayload struct {
	SampleID int    `json:"sampleId" validate:"required,gte=1"`
	Output   string `json:"output"`
}

// RunResult carries a code-execution result from the panel back to the
// page context.
type RunResult struct {
	Payload RunResultPayload `json:"payload"`
}

func (RunResult) MessageType() Type { return TypeRunResult }

// LoginSuccess carries the auth credential from the login collaborator.
// Only envelopes from allow-listed origins may carry it.
type LoginSuccess struct {
	AccessToken     string `json:"accessToken" validate:"required"`
	Nickname        string `json:"nickname,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

func (LoginSuccess) MessageType() Type { return TypeLoginSuccess }

// Envelope is the wire form: a type tag, an optional sender origin, and
// the variant body.
type Envelope struct {
	ID     string          `json:"id"`
	Origin string          `json:"origin,omitempty"`
	Type   Type            `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

var validate = validator.New()

// Wrap builds an envelope around m.
func Wrap(origin string, m Message) (Envelope, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s: %w", m.MessageType(), err)
	}
	return Envelope{
		ID:     uuid.NewString(),
		Origin: origin,
		Type:   m.MessageType(),
		Data:   data,
	}, nil
}

// Decode validates the envelope body against its schema and field
// constraints and returns the typed variant. Unknown types and envelopes
// missing required fields are rejected.
func (e Envelope) Decode() (Message, error) {
	if e.Type == TypeRequestSamples {
		return RequestSamples{}, nil
	}

	if err := validateSchema(e.Type, e.Data); err != nil {
		return nil, err
	}

	var m Message
	switch e.Type {
	case TypeSubmitResult:
		m = &SubmitResult{}
	case TypeSamples:
		m = &Samples{}
	case TypeRunResult:
		m = &RunResult{}
	case TypeLoginSuccess:
		m = &LoginSuccess{}
	default:
		return nil, fmt.Errorf("unknown message type %q", e.Type)
	}

	if err := json.Unmarshal(e.Data, m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", e.Type, err)
	}
	if err := validateFields(m); err != nil {
		return nil, err
	}
	return m, nil
}

func validateFields(m Message) error {
	var err error
	switch v := m.(type) {
	case *Samples:
		err = validate.Struct(&v.Payload)
	case *RunResult:
		err = validate.Struct(&v.Payload)
	default:
		err = validate.Struct(m)
	}
	if err != nil {
		return fmt.Errorf("invalid %s message: %w", m.MessageType(), err)
	}
	return nil
}
