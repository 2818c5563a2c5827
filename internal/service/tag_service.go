package service

import (
	"context"

	"todo-scheduler/internal/model"
	"todo-scheduler/internal/repository"
)

// TagService provides helpers around an owner's tags.
type TagService struct {
	store *repository.Store
}

func NewTagService(store *repository.Store) *TagService {
	return &TagService{store: store}
}

func (s *TagService) List(ctx context.Context, ownerID string) ([]model.Tag, error) {
	return s.store.Tags.ListByOwner(ctx, ownerID)
}

func (s *TagService) Rename(ctx context.Context, ownerID, tagID, name string) (*model.Tag, error) {
	return s.store.Tags.Rename(ctx, ownerID, tagID, name)
}

// Delete removes the tag; tasks that carried it keep their other tags.
func (s *TagService) Delete(ctx context.Context, ownerID, tagID string) error {
	return s.store.Tags.Delete(ctx, ownerID, tagID)
}
