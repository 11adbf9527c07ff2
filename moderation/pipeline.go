package moderation

import (
	"chat-hub/contract"
)

// Pipeline chains filters, each one receiving the output of the previous one.
type Pipeline struct {
	filters []contract.TextFilter
}

var _ contract.TextFilter = (*Pipeline)(nil)
var _ contract.TextFilter = (*Sanitizer)(nil)
var _ contract.TextFilter = (*Moderator)(nil)

func NewPipeline(filters ...contract.TextFilter) *Pipeline {
	return &Pipeline{filters: filters}
}

func (p *Pipeline) Filter(text string) string {
	for _, f := range p.filters {
		text = f.Filter(text)
	}
	return text
}
