package client

// ErrorResponse is the error body of the chat completions API.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChatMessage is one message of a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionDef declares a function the model may call.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// FunctionChoice forces the model to call one named function.
type FunctionChoice struct {
	Name string `json:"name"`
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model        string          `json:"model"`
	Messages     []ChatMessage   `json:"messages"`
	Functions    []FunctionDef   `json:"functions"`
	FunctionCall *FunctionChoice `json:"function_call,omitempty"`
	Temperature  float64         `json:"temperature"`
	MaxTokens    int             `json:"max_tokens,omitempty"`
}

// Model is one entry of GET /models.
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the response from GET /models.
type ModelList struct {
	Data []Model `json:"data"`
}
