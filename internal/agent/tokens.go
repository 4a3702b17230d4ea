package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingMu sync.Mutex
	// Keyed by model name; a process can estimate usage for several
	// models (e.g. run and ask against different configs).
	encodings = map[string]*tiktoken.Tiktoken{}
)

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingMu.Lock()
	defer encodingMu.Unlock()
	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	encodings[model] = enc
	return enc
}

// EstimateUsage approximates token usage from the transcript when the
// provider omits usage in its response. Falls back to a bytes/4 heuristic
// if the tokenizer for the model cannot be loaded (e.g. offline).
func EstimateUsage(model string, transcript []Message, completion string) Usage {
	var promptText string
	for _, m := range transcript {
		promptText += m.Content + "\n"
	}

	enc := encodingFor(model)
	if enc == nil {
		return Usage{
			InputTokens:  len(promptText) / 4,
			OutputTokens: len(completion) / 4,
		}
	}
	return Usage{
		InputTokens:  len(enc.Encode(promptText, nil, nil)),
		OutputTokens: len(enc.Encode(completion, nil, nil)),
	}
}
