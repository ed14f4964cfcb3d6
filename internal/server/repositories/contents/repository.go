package contents

import (
	"context"

	"github.com/dmitrijs2005/lms/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, content *models.Content) (*models.Content, error)
	Get(ctx context.Context, id int64) (*models.Content, error)
	List(ctx context.Context) ([]*models.Content, error)
	ListPublic(ctx context.Context, limit int) ([]*models.Content, error)
	Update(ctx context.Context, content *models.Content) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
