package client

import (
	"context"
	"net/url"

	"github.com/bobmcallan/events-portal/internal/models"
)

// CategoryService covers event categories.
type CategoryService struct {
	gw *Gateway
}

func categoryPath(id string) string {
	return "/categories/" + url.PathEscape(id)
}

// List returns all categories, or an empty list and the error on failure.
func (s *CategoryService) List(ctx context.Context) ([]models.EventCategory, error) {
	var categories []models.EventCategory
	if err := s.gw.Get(ctx, "/categories", &categories); err != nil {
		s.gw.logger.Warn().Err(err).Msg("failed to fetch categories")
		return []models.EventCategory{}, err
	}
	if categories == nil {
		categories = []models.EventCategory{}
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.EventCategory, error) {
	var category models.EventCategory
	if err := s.gw.Get(ctx, categoryPath(id), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, data models.EventCategory) (*models.EventCategory, error) {
	data.ID = ""
	var category models.EventCategory
	if err := s.gw.Post(ctx, "/categories", data, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, data models.EventCategory) (*models.EventCategory, error) {
	data.ID = ""
	var category models.EventCategory
	if err := s.gw.Put(ctx, categoryPath(id), data, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.gw.Delete(ctx, categoryPath(id))
}
