package domain

// QueryResult holds the shaped output of a succeeded query execution.
// Values are untyped strings as returned by the engine; nil marks an
// engine null. No type coercion is performed.
type QueryResult struct {
	Columns []string
	Rows    [][]*string
}

// AgentResponse is the per-request answer produced by the SQL agent.
// It is constructed per request and never persisted.
type AgentResponse struct {
	Question string      `json:"question"`
	SQL      string      `json:"sql"`
	Columns  []string    `json:"columns"`
	Rows     [][]*string `json:"rows"`
	Answer   string      `json:"answer"`
}
