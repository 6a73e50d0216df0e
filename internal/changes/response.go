package changes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FunctionName is the only function the model is allowed to call.
const FunctionName = "update_spreadsheet"

var (
	ErrNoFunctionCall     = errors.New("response has no function call")
	ErrWrongFunction      = errors.New("response called an unexpected function")
	ErrMalformedArguments = errors.New("function call arguments are not valid JSON")
	ErrChangesNotList     = errors.New("changes is not a list")
	ErrNoWorksheets       = errors.New("document has no worksheets")
)

// Batch is the decoded payload of one update_spreadsheet call.
type Batch struct {
	Changes     []json.RawMessage
	Explanation string
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			FunctionCall *struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function_call"`
		} `json:"message"`
	} `json:"choices"`
}

// ParseResponse extracts the batch from a chat completion body, reading
// choices[0].message.function_call.
func ParseResponse(body []byte) (*Batch, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFunctionCall, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.FunctionCall == nil {
		return nil, ErrNoFunctionCall
	}
	call := resp.Choices[0].Message.FunctionCall
	if call.Name != FunctionName {
		return nil, fmt.Errorf("%w: %q", ErrWrongFunction, call.Name)
	}
	return ParseArguments([]byte(call.Arguments))
}

// ParseArguments decodes {"changes": [...], "explanation": "..."}.
func ParseArguments(args []byte) (*Batch, error) {
	var payload struct {
		Changes     json.RawMessage `json:"changes"`
		Explanation string          `json:"explanation"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	changes, err := DecodeList(payload.Changes)
	if err != nil {
		return nil, err
	}
	return &Batch{Changes: changes, Explanation: payload.Explanation}, nil
}

// DecodeList splits a JSON array into its elements.
func DecodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrChangesNotList
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChangesNotList, err)
	}
	return list, nil
}

// ParseAny accepts a full chat completion, a bare arguments object or a
// bare changes array. It backs offline replays of recorded output.
func ParseAny(data []byte) (*Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		changes, err := DecodeList(trimmed)
		if err != nil {
			return nil, err
		}
		return &Batch{Changes: changes}, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if _, ok := probe["choices"]; ok {
		return ParseResponse(trimmed)
	}
	return ParseArguments(trimmed)
}
