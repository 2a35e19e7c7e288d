package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"llmproxy/internal/model"
)

type PromptLogRepository struct {
	db *gorm.DB
}

func NewPromptLogRepository(db *gorm.DB) *PromptLogRepository {
	return &PromptLogRepository{db: db}
}

func (r *PromptLogRepository) Create(entry *model.PromptLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create prompt log failed: %w", err)
	}
	return nil
}

// Query returns a page of prompt logs, newest first, with the total count
// matching the same filters.
func (r *PromptLogRepository) Query(q model.PromptLogQuery) (*model.PromptLogPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tx := r.db.Model(&model.PromptLog{})
	if q.StartDate != "" {
		tx = tx.Where("timestamp >= ?", q.StartDate)
	}
	if q.EndDate != "" {
		tx = tx.Where("timestamp <= ?", q.EndDate)
	}
	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		like := "%" + term + "%"
		tx = tx.Where("original_input LIKE ? OR final_output LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count prompt logs failed: %w", err)
	}

	var logs []model.PromptLog
	if err := tx.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("query prompt logs failed: %w", err)
	}
	if logs == nil {
		logs = []model.PromptLog{}
	}
	return &model.PromptLogPage{Logs: logs, Total: total}, nil
}
