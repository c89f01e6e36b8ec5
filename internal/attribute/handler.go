package attribute

import (
	"strings"
)

// Handler is the class of source an attribute is assigned to.
type Handler int

const (
	HandlerUnspecified Handler = iota
	HandlerDedicatedCrawler
	HandlerRetrievalSearch
	HandlerAlternateSearch
	HandlerGenerative
)

var handlerNames = []struct {
	handler Handler
	name    string
	legacy  string
}{
	{HandlerUnspecified, "unspecified", "NOT_SPECIFIED"},
	{HandlerDedicatedCrawler, "dedicated_crawler", "TUITION_CRAWL"},
	{HandlerRetrievalSearch, "retrieval_search", "LANGCHAIN_TAVILY"},
	{HandlerAlternateSearch, "alternate_search", "GPT_GENERAL"},
	{HandlerGenerative, "generative", "GPT_BASIC"},
}

// String returns the name metadata sheets use for the handler. Ledger
// entries and cache method tags carry the same name.
func (h Handler) String() string {
	for _, n := range handlerNames {
		if n.handler == h {
			return n.legacy
		}
	}
	return "NOT_SPECIFIED"
}

// ParseHandler accepts either naming of a handler, ignoring case. The second
// result is false when `s` is not empty and names no handler.
func ParseHandler(s string) (Handler, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return HandlerUnspecified, true
	}
	for _, n := range handlerNames {
		if strings.EqualFold(s, n.name) || strings.EqualFold(s, n.legacy) {
			return n.handler, true
		}
	}
	return HandlerUnspecified, false
}
