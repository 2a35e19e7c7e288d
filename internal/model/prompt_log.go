package model

import "time"

// PromptLog is one audited proxy request: what the user sent, what the
// upstream saw after masking and context injection, and what went back.
// PIIMappings is a JSON object of placeholder -> original value; Sanitized
// is a JSON array of dangerous fragments redacted from the response.
type PromptLog struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	Original    string    `gorm:"column:original_input;type:text;not null" json:"original_input"`
	Masked      string    `gorm:"column:masked_input;type:text;not null" json:"masked_input"`
	RAGContext  string    `gorm:"column:rag_context;type:text" json:"rag_context,omitempty"`
	LLMOutput   string    `gorm:"column:llm_output;type:text;not null" json:"llm_output"`
	FinalOutput string    `gorm:"column:final_output;type:text;not null" json:"final_output"`
	PIIMappings string    `gorm:"column:pii_mappings;type:text" json:"pii_mappings"`
	Sanitized   string    `gorm:"column:sanitized_commands;type:text" json:"sanitized_commands,omitempty"`
}

// PromptLogQuery filters the audit log listing.
type PromptLogQuery struct {
	StartDate  string `form:"start_date"`
	EndDate    string `form:"end_date"`
	SearchTerm string `form:"search_term"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type PromptLogPage struct {
	Logs  []PromptLog `json:"logs"`
	Total int64       `json:"total"`
}
