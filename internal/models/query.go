// internal/models/query.go
package models

// QuestionType is the categorical outcome of query classification.
type QuestionType string

const (
	QuestionFactual       QuestionType = "factual"     // which/who/where
	QuestionExplanatory   QuestionType = "explanatory" // how/why
	QuestionComputational QuestionType = "computational"
	QuestionDefinitional  QuestionType = "definitional"
	QuestionOther         QuestionType = "other"
)

// Entity is a named entity extracted from the question.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// QueryContext is the immutable input to ranking and search for one request.
// It is built once per incoming question and read-only downstream.
type QueryContext struct {
	Query        string       `json:"query"`
	QuestionType QuestionType `json:"questionType"`
	Entities     []Entity     `json:"entities,omitempty"`
	TopicID      string       `json:"topicId,omitempty"`
	Complexity   float64      `json:"complexity"`
	SubQueries   []string     `json:"subQueries,omitempty"`
}

// DefaultQueryContext is the degraded context used when the classifier is
// unavailable: unknown type, no entities, no topic.
func DefaultQueryContext(query string) QueryContext {
	return QueryContext{
		Query:        query,
		QuestionType: QuestionOther,
	}
}
