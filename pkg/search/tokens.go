package search

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenizerCache   = make(map[string]*tiktoken.Tiktoken)
	tokenizerCacheMu sync.RWMutex
)

// getTokenizer returns a cached tiktoken encoder for the given model,
// falling back to cl100k_base for models tiktoken does not know.
func getTokenizer(model string) (*tiktoken.Tiktoken, error) {
	tokenizerCacheMu.RLock()
	if tkm, ok := tokenizerCache[model]; ok {
		tokenizerCacheMu.RUnlock()
		return tkm, nil
	}
	tokenizerCacheMu.RUnlock()

	tokenizerCacheMu.Lock()
	defer tokenizerCacheMu.Unlock()

	if tkm, ok := tokenizerCache[model]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	tokenizerCache[model] = tkm
	return tkm, nil
}

// estimateUsage approximates token accounting for providers whose responses
// omit usage information. Used only when the API reports nothing. When no
// encoder can be loaded it falls back to a rough chars/4 approximation.
func estimateUsage(prompt, completion, model string) TokenUsage {
	promptTokens := countTokens(prompt, model)
	completionTokens := countTokens(completion, model)
	return TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func countTokens(text, model string) int {
	if text == "" {
		return 0
	}
	tkm, err := getTokenizer(model)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(tkm.Encode(text, nil, nil))
}
