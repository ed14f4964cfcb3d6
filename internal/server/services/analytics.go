package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/lms/internal/server/repositories/repomanager"
)

// Overview is the dashboard summary.
type Overview struct {
	TotalContent int64 `json:"total_content"`
	TotalUsers   int64 `json:"total_users"`
}

type AnalyticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAnalyticsService(db *sql.DB, m repomanager.RepositoryManager) *AnalyticsService {
	return &AnalyticsService{db: db, repomanager: m}
}

// Overview counts content items and users.
func (s *AnalyticsService) Overview(ctx context.Context) (*Overview, error) {
	contents, err := s.repomanager.Contents(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting contents: %w", err)
	}
	users, err := s.repomanager.Users(s.db).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}
	return &Overview{TotalContent: contents, TotalUsers: users}, nil
}
