package layout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/sanitize"
)

// cacheKeyPrefix keys the public read cache of each section.
const cacheKeyPrefix = "layout:"

// LayoutService handles business logic for layout sections.
type LayoutService interface {
	Create(ctx context.Context, req LayoutRequest) (*Layout, error)

	// Edit replaces the content of an existing section. A new banner image
	// replaces the old one on the asset host.
	Edit(ctx context.Context, req LayoutRequest) (*Layout, error)

	Get(ctx context.Context, t Type) (*Layout, error)
}

// layoutService implements LayoutService.
type layoutService struct {
	repo   LayoutRepository
	assets media.Store
	cache  cache.Store
	now    func() time.Time
}

// NewLayoutService creates a new layout service.
func NewLayoutService(repo LayoutRepository, assets media.Store, store cache.Store) LayoutService {
	return &layoutService{repo: repo, assets: assets, cache: store, now: time.Now}
}

func (s *layoutService) Create(ctx context.Context, req LayoutRequest) (*Layout, error) {
	t, err := ParseType(req.Type)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByType(ctx, t); err == nil {
		return nil, apperror.NewConflict(fmt.Sprintf("%s already exists", t))
	} else if !apperror.IsNotFound(err) {
		return nil, apperror.NewInternal(err)
	}

	content, err := s.buildContent(ctx, t, req, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	l := &Layout{ID: uuid.NewString(), Type: t, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, l); err != nil {
		s.discardNewImage(ctx, content, nil)
		if apperror.Is(err, apperror.TypeConflict) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}

	s.invalidate(ctx, t)
	slog.Info("layout created", slog.String("type", string(t)))
	return l, nil
}

func (s *layoutService) Edit(ctx context.Context, req LayoutRequest) (*Layout, error) {
	t, err := ParseType(req.Type)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.FindByType(ctx, t)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}

	content, err := s.buildContent(ctx, t, req, current.Banner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateContent(ctx, t, content); err != nil {
		s.discardNewImage(ctx, content, current.Banner)
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}
	s.invalidate(ctx, t)

	// The old banner image goes only after the new content is stored.
	if old := current.Banner; old != nil && content.Banner != nil &&
		old.Image.PublicID != "" && old.Image.PublicID != content.Banner.Image.PublicID {
		if err := s.assets.Delete(ctx, old.Image.PublicID); err != nil {
			slog.Warn("failed to delete old banner image",
				slog.String("public_id", old.Image.PublicID),
				slog.Any("error", err),
			)
		}
	}

	current.Content = content
	current.UpdatedAt = s.now().UTC()
	slog.Info("layout updated", slog.String("type", string(t)))
	return current, nil
}

// Get serves from the cache when it can. Cache errors fall through to the
// database.
func (s *layoutService) Get(ctx context.Context, t Type) (*Layout, error) {
	key := cacheKeyPrefix + string(t)

	var cached Layout
	found, err := cache.GetJSON(ctx, s.cache, key, &cached)
	if err != nil {
		slog.Warn("layout cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if found {
		return &cached, nil
	}

	l, err := s.repo.FindByType(ctx, t)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(err)
	}

	if err := cache.SetJSON(ctx, s.cache, key, l, 0); err != nil {
		slog.Warn("layout cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return l, nil
}

// buildContent validates and sanitizes the part of req that belongs to t.
// For banners a new image is uploaded; on edit an empty image keeps prev's.
func (s *layoutService) buildContent(ctx context.Context, t Type, req LayoutRequest, prev *Banner) (Content, error) {
	switch t {
	case TypeBanner:
		banner := &Banner{
			Title:    sanitize.Text(req.Title),
			SubTitle: sanitize.Text(req.SubTitle),
		}
		if banner.Title == "" {
			return Content{}, apperror.NewValidation("Please enter banner title")
		}

		switch {
		case strings.TrimSpace(req.Image) != "":
			asset, err := s.assets.Upload(ctx, media.UploadInput{Data: req.Image, Folder: media.FolderLayout})
			if err != nil {
				return Content{}, err
			}
			banner.Image = asset
		case prev != nil:
			banner.Image = prev.Image
		default:
			return Content{}, apperror.NewValidation("Please provide banner image")
		}
		return Content{Banner: banner}, nil

	case TypeFAQ:
		items := make([]FAQItem, 0, len(req.FAQ))
		for _, item := range req.FAQ {
			q := sanitize.Text(item.Question)
			a := sanitize.HTML(strings.TrimSpace(item.Answer))
			if q == "" || a == "" {
				return Content{}, apperror.NewValidation("Every FAQ item needs a question and an answer")
			}
			items = append(items, FAQItem{Question: q, Answer: a})
		}
		return Content{FAQ: items}, nil

	default:
		cats := make([]Category, 0, len(req.Categories))
		seen := make(map[string]bool, len(req.Categories))
		for _, c := range req.Categories {
			title := sanitize.Text(c.Title)
			if title == "" {
				return Content{}, apperror.NewValidation("Category title must not be empty")
			}
			if key := strings.ToLower(title); !seen[key] {
				seen[key] = true
				cats = append(cats, Category{Title: title})
			}
		}
		return Content{Categories: cats}, nil
	}
}

// discardNewImage removes a banner image uploaded for a write that failed.
func (s *layoutService) discardNewImage(ctx context.Context, content Content, prev *Banner) {
	if content.Banner == nil || content.Banner.Image.PublicID == "" {
		return
	}
	if prev != nil && prev.Image.PublicID == content.Banner.Image.PublicID {
		return
	}
	if err := s.assets.Delete(ctx, content.Banner.Image.PublicID); err != nil {
		slog.Warn("failed to discard uploaded banner image", slog.Any("error", err))
	}
}

func (s *layoutService) invalidate(ctx context.Context, t Type) {
	if err := s.cache.Delete(ctx, cacheKeyPrefix+string(t)); err != nil {
		slog.Warn("layout cache invalidation failed", slog.String("type", string(t)), slog.Any("error", err))
	}
}
