package request

import "github.com/kestrelai/devstral-gateway/internal/translate/types"

// Transform is one pure step of an OpenAI-request pipeline: it returns a new
// request value rather than mutating its argument.
type Transform func(types.OpenAIRequest) types.OpenAIRequest

// Pipe composes transforms left to right into one pure function, per spec
// §9's pipe(f1, f2, ...)(payload) composer.
func Pipe(steps ...Transform) Transform {
	return func(req types.OpenAIRequest) types.OpenAIRequest {
		for _, step := range steps {
			req = step(req)
		}
		return req
	}
}

// EnforceTrailingRule is the Transform-shaped wrapper around the trailing
// sentinel rule also used by FromAnthropic, for composition in NormalizeOpenAI.
func EnforceTrailingRule(req types.OpenAIRequest) types.OpenAIRequest {
	enforceTrailingRule(&req.Messages)
	return req
}
