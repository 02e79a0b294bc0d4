package backend

import (
	"github.com/kestrelai/devstral-gateway/internal/translate/request"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// Selector holds the default and optional vision backend configuration and
// picks between them per request (spec §4.7).
type Selector struct {
	Default Config
	Vision  *Config
}

// NewSelector builds a Selector; vision may be nil when no vision backend
// is configured.
func NewSelector(def Config, vision *Config) Selector {
	return Selector{Default: def, Vision: vision}
}

// HasVision reports whether a vision backend is configured.
func (s Selector) HasVision() bool {
	return s.Vision != nil
}

// Select picks the vision backend when one is configured and req carries an
// image, otherwise the default backend. When the default backend is chosen
// and no vision backend exists, image content is stripped or placeholder-ed
// before dispatch since nothing downstream can interpret it.
func (s Selector) Select(req types.OpenAIRequest) (Config, types.OpenAIRequest) {
	if s.Vision != nil && request.HasImage(req) {
		return *s.Vision, req
	}
	return s.Default, request.StripOrRouteImages(req)
}
