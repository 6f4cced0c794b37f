package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorhub/marketplace-backend/pkg/db"
	"github.com/vendorhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
)

// Service exposes category management and tree reads.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	FindAll(ctx context.Context) ([]models.Category, error)
	FindAllParents(ctx context.Context) ([]models.Category, error)
	FindSubcategories(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	FindOne(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindTree(ctx context.Context) ([]TreeNode, error)
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name     string
	ParentID *uuid.UUID
}

// UpdateCategoryInput holds optional mutation values. A ParentID of uuid.Nil
// detaches the category from its parent.
type UpdateCategoryInput struct {
	Name     *string
	ParentID *uuid.UUID
}

// TreeNode is a root category with its direct children. Nesting is a single
// level deep: grandchildren appear as children of their own parent node only.
type TreeNode struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Subcategories []models.Category `json:"subcategories"`
}

type service struct {
	repo Repository
}

// NewService wires a category service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	if input.ParentID != nil {
		if err := s.ensureCategoryExists(ctx, *input.ParentID, "parent category"); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		ID:       uuid.New(),
		Name:     name,
		ParentID: input.ParentID,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("category %q already exists", name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating category")
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, input UpdateCategoryInput) (*models.Category, error) {
	category, err := s.findCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name cannot be empty")
		}
		category.Name = name
	}

	if input.ParentID != nil {
		if *input.ParentID == uuid.Nil {
			category.ParentID = nil
		} else {
			if *input.ParentID == id {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
			}
			if err := s.ensureCategoryExists(ctx, *input.ParentID, "parent category"); err != nil {
				return nil, err
			}
			parentID := *input.ParentID
			category.ParentID = &parentID
		}
	}

	if err := s.repo.Save(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("category %q already exists", category.Name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating category")
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findCategory(ctx, id); err != nil {
		return err
	}

	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting subcategories")
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("category %s has %d subcategories", id, children))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting category")
	}
	return nil
}

func (s *service) FindAll(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return categories, nil
}

func (s *service) FindAllParents(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.FindParents(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing parent categories")
	}
	return categories, nil
}

func (s *service) FindSubcategories(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	if err := s.ensureCategoryExists(ctx, id, "category"); err != nil {
		return nil, err
	}
	categories, err := s.repo.FindByParentID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing subcategories")
	}
	return categories, nil
}

func (s *service) FindOne(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findCategory(ctx, id)
}

// FindTree groups all categories in two passes: one map of parentID to
// children, then one walk over the roots emitting each with its direct
// children.
func (s *service) FindTree(ctx context.Context) ([]TreeNode, error) {
	categories, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}

	childrenByParent := make(map[uuid.UUID][]models.Category)
	roots := make([]models.Category, 0, len(categories))
	for _, category := range categories {
		if category.ParentID == nil {
			roots = append(roots, category)
			continue
		}
		childrenByParent[*category.ParentID] = append(childrenByParent[*category.ParentID], category)
	}

	tree := make([]TreeNode, 0, len(roots))
	for _, root := range roots {
		children := childrenByParent[root.ID]
		if children == nil {
			children = []models.Category{}
		}
		tree = append(tree, TreeNode{
			ID:            root.ID,
			Name:          root.Name,
			Subcategories: children,
		})
	}
	return tree, nil
}

func (s *service) findCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("category %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
	}
	return category, nil
}

func (s *service) ensureCategoryExists(ctx context.Context, id uuid.UUID, label string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("%s %s not found", label, id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading "+label)
	}
	return nil
}
