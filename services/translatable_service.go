package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyglot.link/configs/configslog"
	"polyglot.link/repositories"
	"polyglot.link/translation"
)

// ServiceError is a typed error for the service layer. Handlers match on the
// constant, not the message.
type ServiceError string

func (e ServiceError) Error() string { return string(e) }

const (
	ErrEntityNotFound       ServiceError = "entity not found"
	ErrEntityCreationFailed ServiceError = "entity could not be created"
	ErrEntityUpdateFailed   ServiceError = "entity could not be updated"
	ErrEntityDeletionFailed ServiceError = "entity could not be deleted"
	ErrDuplicateEntity      ServiceError = "an entity with the same values already exists"
	ErrInvalidInput         ServiceError = "invalid input"
)

type translatableEntity[T any] interface {
	*T
	translation.Translatable
}

// ITranslatableService is the use-case surface over one translatable entity
// type.
type ITranslatableService[T any, PT translatableEntity[T]] interface {
	Create(ctx context.Context, attrs map[string]any) (PT, error)
	Get(ctx context.Context, id uint, language string) (PT, error)
	List(ctx context.Context, language string, limit, offset int) ([]PT, error)
	Update(ctx context.Context, entity PT, updateFields ...string) error
	AddTranslation(ctx context.Context, entity PT, language string, attrs map[string]any) error
	Delete(ctx context.Context, entity PT) error
	DeleteTranslation(ctx context.Context, entity PT, language string) error
}

// TranslatableService wires the repository into transactional use cases:
// every mutation validates first, then runs inside one transaction carried
// through the context.
type TranslatableService[T any, PT translatableEntity[T]] struct {
	repo *repositories.TranslatableRepository[T, PT]
	db   *gorm.DB
}

// NewTranslatableService creates the service for T.
func NewTranslatableService[T any, PT translatableEntity[T]](db *gorm.DB) (*TranslatableService[T, PT], error) {
	repo, err := repositories.NewTranslatableRepository[T, PT](db)
	if err != nil {
		return nil, err
	}
	return &TranslatableService[T, PT]{repo: repo, db: db}, nil
}

// Repository exposes the underlying repository for callers that need raw
// query access.
func (s *TranslatableService[T, PT]) Repository() *repositories.TranslatableRepository[T, PT] {
	return s.repo
}

// Create builds a new entity from an attribute map and persists it together
// with its initial translation.
func (s *TranslatableService[T, PT]) Create(ctx context.Context, attrs map[string]any) (PT, error) {
	var zero T
	entity := PT(&zero)
	if err := translation.Construct(ctx, entity, attrs); err != nil {
		configslog.Log.Warn("TranslatableService.Create: invalid attributes",
			zap.String("entity", s.repo.Schema().Name), zap.Error(err))
		return nil, ErrInvalidInput
	}
	if err := translation.ValidateUnique(ctx, s.db.WithContext(ctx), entity); err != nil {
		if errors.Is(err, translation.ErrDuplicate) {
			return nil, ErrDuplicateEntity
		}
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Save(repositories.ContextWithTx(ctx, tx), entity)
	})
	if err != nil {
		configslog.Log.Error("TranslatableService.Create: save failed",
			zap.String("entity", s.repo.Schema().Name), zap.Error(err))
		return nil, ErrEntityCreationFailed
	}
	return entity, nil
}

// Get loads an entity with its translation for the given language, falling
// back to any available language.
func (s *TranslatableService[T, PT]) Get(ctx context.Context, id uint, language string) (PT, error) {
	entity, err := s.repo.FindByIDInLanguage(ctx, id, language)
	if err != nil {
		if errors.Is(err, translation.ErrNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	return entity, nil
}

// List returns entities translated to the given language.
func (s *TranslatableService[T, PT]) List(ctx context.Context, language string, limit, offset int) ([]PT, error) {
	return s.repo.List(ctx, language, limit, offset)
}

// Update persists changes to an already loaded entity. An explicit field
// list restricts the write to those fields on whichever side they live.
func (s *TranslatableService[T, PT]) Update(ctx context.Context, entity PT, updateFields ...string) error {
	if err := translation.ValidateUnique(ctx, s.db.WithContext(ctx), entity); err != nil {
		if errors.Is(err, translation.ErrDuplicate) {
			return ErrDuplicateEntity
		}
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Save(repositories.ContextWithTx(ctx, tx), entity, updateFields...)
	})
	if err != nil {
		configslog.Log.Error("TranslatableService.Update: save failed",
			zap.String("entity", s.repo.Schema().Name), zap.Error(err))
		return ErrEntityUpdateFailed
	}
	return nil
}

// AddTranslation attaches a brand-new translation in the given language,
// fills it from attrs and persists it. The restricted save writes only the
// translation row; a new record ignores the restriction on its own side, so
// the shared row is left untouched.
func (s *TranslatableService[T, PT]) AddTranslation(ctx context.Context, entity PT, language string, attrs map[string]any) error {
	if err := translation.Translate(entity, language); err != nil {
		return ErrInvalidInput
	}
	fields := make([]string, 0, len(attrs))
	for name, value := range attrs {
		if err := translation.Set(entity, name, value); err != nil {
			configslog.Log.Warn("TranslatableService.AddTranslation: invalid attribute",
				zap.String("entity", s.repo.Schema().Name), zap.String("field", name), zap.Error(err))
			return ErrInvalidInput
		}
		fields = append(fields, name)
	}
	if err := translation.ValidateUnique(ctx, s.db.WithContext(ctx), entity); err != nil {
		if errors.Is(err, translation.ErrDuplicate) {
			return ErrDuplicateEntity
		}
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Save(repositories.ContextWithTx(ctx, tx), entity, fields...)
	})
	if err != nil {
		configslog.Log.Error("TranslatableService.AddTranslation: save failed",
			zap.String("entity", s.repo.Schema().Name), zap.String("language", language), zap.Error(err))
		return ErrEntityUpdateFailed
	}
	return nil
}

// Delete removes the entity and all of its translations.
func (s *TranslatableService[T, PT]) Delete(ctx context.Context, entity PT) error {
	if err := s.repo.Delete(ctx, entity); err != nil {
		if errors.Is(err, translation.ErrNotFound) {
			return ErrEntityNotFound
		}
		configslog.Log.Error("TranslatableService.Delete: delete failed",
			zap.String("entity", s.repo.Schema().Name), zap.Error(err))
		return ErrEntityDeletionFailed
	}
	return nil
}

// DeleteTranslation removes one language's translation of the entity.
func (s *TranslatableService[T, PT]) DeleteTranslation(ctx context.Context, entity PT, language string) error {
	if err := s.repo.DeleteTranslation(ctx, entity, language); err != nil {
		if errors.Is(err, translation.ErrNotFound) {
			return ErrEntityNotFound
		}
		configslog.Log.Error("TranslatableService.DeleteTranslation: delete failed",
			zap.String("entity", s.repo.Schema().Name), zap.String("language", language), zap.Error(err))
		return ErrEntityDeletionFailed
	}
	return nil
}
