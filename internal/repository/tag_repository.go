package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"todo-scheduler/internal/model"
)

// TagRepository manages per-owner tags. Names are matched case-insensitively.
type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetOrCreate returns the owner's tag called name, in any case, creating it
// with this spelling when missing. A blank name yields nil.
func (r *TagRepository) GetOrCreate(ctx context.Context, ownerID, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	db := r.db.WithContext(ctx)
	tag, err := r.findByKey(db, ownerID, name)
	switch {
	case err == nil:
		return tag, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find tag: %w", err)
	}

	created := model.Tag{OwnerID: ownerID, Name: name}
	if err := db.Create(&created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with another writer; theirs wins.
			if tag, findErr := r.findByKey(db, ownerID, name); findErr == nil {
				return tag, nil
			}
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return &created, nil
}

// Resolve maps tag names to tags, creating missing ones. Blank and repeated
// names are skipped.
func (r *TagRepository) Resolve(ctx context.Context, ownerID string, names []string) ([]model.Tag, error) {
	seen := make(map[string]struct{}, len(names))
	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		key := model.TagKey(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		tag, err := r.GetOrCreate(ctx, ownerID, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (r *TagRepository) FindByID(ctx context.Context, ownerID, tagID string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", tagID, ownerID).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTagNotFound
		}
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return &tag, nil
}

func (r *TagRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Tag, error) {
	var tags []model.Tag
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name_key ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Rename changes a tag's name. Another tag of the owner with the same name
// in any case makes it fail with ErrDuplicateTag.
func (r *TagRepository) Rename(ctx context.Context, ownerID, tagID, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.WrapError(model.ErrCodeInvalid, model.ErrInvalidInput.Message, errors.New("tag name is required"))
	}

	tag, err := r.FindByID(ctx, ownerID, tagID)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(tag).Updates(map[string]interface{}{
		"name":     name,
		"name_key": model.TagKey(name),
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.WrapError(model.ErrCodeConflict, model.ErrDuplicateTag.Message, err)
		}
		return nil, fmt.Errorf("rename tag: %w", err)
	}
	tag.Name = name
	tag.NameKey = model.TagKey(name)
	return tag, nil
}

// Delete removes a tag and detaches it from every task.
func (r *TagRepository) Delete(ctx context.Context, ownerID, tagID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag model.Tag
		if err := tx.Where("id = ? AND owner_id = ?", tagID, ownerID).First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrTagNotFound
			}
			return fmt.Errorf("find tag: %w", err)
		}
		if err := tx.Exec("DELETE FROM task_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return fmt.Errorf("detach tag: %w", err)
		}
		if err := tx.Delete(&tag).Error; err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		return nil
	})
}

func (r *TagRepository) findByKey(db *gorm.DB, ownerID, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := db.Where("owner_id = ? AND name_key = ?", ownerID, model.TagKey(name)).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}
