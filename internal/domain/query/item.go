package query

import (
	"fmt"

	"scholar_notification_pipeline/internal/domain/notification"
)

// ItemType classifies a saved query definition.
type ItemType string

const (
	TypeQuery    ItemType = "query"    // persistent saved query, executed by QID
	TypeTemplate ItemType = "template" // named template, expanded locally
)

// TemplateName selects a template variant.
type TemplateName string

const (
	TemplateArxiv     TemplateName = "arxiv"
	TemplateCitations TemplateName = "citations"
	TemplateAuthors   TemplateName = "authors"
	TemplateKeyword   TemplateName = "keyword"
)

// ItemData holds the template parameters from the setup service.
type ItemData struct {
	Data    string   `json:"data"`
	Classes []string `json:"classes"`
}

// Item is one saved query definition from the subscriber's setup.
type Item struct {
	SetupID   int64                  `json:"id"`
	Name      string                 `json:"name"`
	QID       string                 `json:"qid"`
	Active    bool                   `json:"active"`
	Stateful  bool                   `json:"stateful"`
	Frequency notification.Frequency `json:"frequency"`
	Type      ItemType               `json:"type"`
	Template  TemplateName           `json:"template"`
	Data      ItemData               `json:"data"`
}

// HasQID reports whether the item is keyed by a persistent saved-query
// identifier rather than by its numeric setup ID.
func (i Item) HasQID() bool { return i.QID != "" }

// Classify maps an item onto its execution variant.
func Classify(item Item, opts Options) (Variant, error) {
	switch item.Type {
	case TypeQuery:
		if item.QID == "" {
			return nil, fmt.Errorf("saved query %q has no qid", item.Name)
		}
		return Stored{Name: item.Name, QID: item.QID}, nil
	case TypeTemplate:
		switch item.Template {
		case TemplateArxiv:
			return Arxiv{Name: item.Name, Keywords: item.Data.Data, Classes: item.Data.Classes, LookbackDays: opts.ArxivLookbackDays}, nil
		case TemplateCitations:
			return Citations{Name: item.Name, Author: item.Data.Data}, nil
		case TemplateAuthors:
			return Authors{Name: item.Name, Terms: item.Data.Data, LookbackDays: opts.AuthorsLookbackDays}, nil
		case TemplateKeyword:
			return Keyword{Name: item.Name, Terms: item.Data.Data, LookbackDays: opts.AuthorsLookbackDays}, nil
		default:
			return nil, fmt.Errorf("unknown template %q for %q", item.Template, item.Name)
		}
	default:
		return nil, fmt.Errorf("unknown setup item type %q for %q", item.Type, item.Name)
	}
}
