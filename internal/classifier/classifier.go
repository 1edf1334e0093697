// Package classifier assigns business-relevance categories to bill titles
// by case-insensitive substring matching against keyword stems.
package classifier

import (
	"strings"

	"github.com/nitesh/bill_monitor/pkg/models"
)

// DefaultKeywords maps every category to the stems that select it. Stems
// are matched anywhere in the title, so short ones like "мит" also hit
// unrelated words; recall is preferred over precision here.
var DefaultKeywords = map[models.Category][]string{
	models.Agricultural: {
		"земельн", "субсиді", "експортн", "квот", "фітосанітар",
		"ринок землі", "сільськогосподар", "аграрн", "фермерськ",
		"оренда землі", "ділянк", "землеустрій", "кадастр",
		"приватизаці", "майн", "продовольств", "меліораці",
	},
	models.Social: {
		"трудов", "соціальн", "пенсійн", "охорона праці", "зайнятіст",
		"профспілк", "внеск", "пенсі", "прожитков", "ветеран",
		"військовослужбов", "гаранті", "захищеніст", "здоров",
		"навколишн", "оплат", "відпустк",
	},
	models.Corporate: {
		"оподаткуван", "податк", "валютн", "корпоративн", "акціонерн",
		"цінні папери", "злиття та поглинання", "ПДВ", "платник",
		"акцизн", "ставк", "адмініструван", "мит", "сплат", "дохід",
		"звітніст", "кредитуван",
	},
}

type rule struct {
	category models.Category
	keywords []string
}

// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	rules []rule
}

// New builds a classifier from a category → keywords mapping. Categories
// outside models.AllCategories are ignored and empty keywords are dropped.
func New(keywords map[models.Category][]string) *Classifier {
	c := &Classifier{}
	for _, cat := range models.AllCategories() {
		kws := keywords[cat]
		if len(kws) == 0 {
			continue
		}
		r := rule{category: cat, keywords: make([]string, 0, len(kws))}
		for _, kw := range kws {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				r.keywords = append(r.keywords, kw)
			}
		}
		if len(r.keywords) > 0 {
			c.rules = append(c.rules, r)
		}
	}
	return c
}

var defaultClassifier = New(DefaultKeywords)

// Default returns the classifier built from DefaultKeywords.
func Default() *Classifier {
	return defaultClassifier
}

// Categorize returns the categories whose keywords occur in title, in
// declaration order. The result is empty, never nil.
func (c *Classifier) Categorize(title string) []models.Category {
	out := []models.Category{}
	lower := strings.ToLower(title)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, r.category)
				break
			}
		}
	}
	return out
}

// Keywords returns a copy of the normalized mapping.
func (c *Classifier) Keywords() map[models.Category][]string {
	out := make(map[models.Category][]string, len(c.rules))
	for _, r := range c.rules {
		out[r.category] = append([]string(nil), r.keywords...)
	}
	return out
}

// Categorize classifies title with the default keyword set.
func Categorize(title string) []models.Category {
	return defaultClassifier.Categorize(title)
}
