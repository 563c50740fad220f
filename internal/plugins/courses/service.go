package courses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
	"github.com/keyxmakerx/elearning/internal/sanitize"
)

// Cache keys. Both hold public projections only.
const (
	courseKeyPrefix = "course:"
	allCoursesKey   = "courses:all"

	courseCacheTTL = 7 * 24 * time.Hour
)

const msgNotEligible = "You are not eligible to access this course"

// Notifier records admin notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) (*notifications.Notification, error)
}

// CourseService handles business logic for courses.
type CourseService interface {
	// Public reads, served from the cache.
	Get(ctx context.Context, id string) (*Course, error)
	ListPublic(ctx context.Context) ([]Course, error)

	// FindByID returns the full course, bypassing the cache.
	FindByID(ctx context.Context, id string) (*Course, error)

	// Content returns the full content sections to buyers and admins.
	Content(ctx context.Context, user *auth.User, id string) ([]Content, error)

	AddQuestion(ctx context.Context, user *auth.User, req QuestionRequest) (*Course, error)
	AddAnswer(ctx context.Context, user *auth.User, req AnswerRequest) (*Course, error)
	AddReview(ctx context.Context, user *auth.User, courseID string, req ReviewRequest) (*Course, error)

	// RecordPurchase bumps the purchase counter. Used by the orders plugin.
	RecordPurchase(ctx context.Context, id string) error

	// Admin operations.
	ListAll(ctx context.Context) ([]Course, error)
	Create(ctx context.Context, req CourseRequest) (*Course, error)
	Edit(ctx context.Context, id string, req CourseRequest) (*Course, error)
	Delete(ctx context.Context, id string) error
	AddReviewReply(ctx context.Context, user *auth.User, req ReviewReplyRequest) (*Course, error)
}

// courseService implements CourseService.
type courseService struct {
	repo     CourseRepository
	assets   media.Store
	cache    cache.Store
	notifier Notifier
	mailer   mail.Sender
	users    UserFinder
	now      func() time.Time
}

// NewCourseService creates a new course service.
func NewCourseService(
	repo CourseRepository,
	assets media.Store,
	store cache.Store,
	notifier Notifier,
	mailer mail.Sender,
	users UserFinder,
) CourseService {
	return &courseService{
		repo:     repo,
		assets:   assets,
		cache:    store,
		notifier: notifier,
		mailer:   mailer,
		users:    users,
		now:      time.Now,
	}
}

// --- Public reads ---

func (s *courseService) Get(ctx context.Context, id string) (*Course, error) {
	key := courseKeyPrefix + id

	var cached Course
	found, err := cache.GetJSON(ctx, s.cache, key, &cached)
	if err != nil {
		slog.Warn("course cache read failed", slog.String("key", key), slog.Any("error", err))
	} else if found {
		return &cached, nil
	}

	c, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := c.Public()
	if err := cache.SetJSON(ctx, s.cache, key, public, courseCacheTTL); err != nil {
		slog.Warn("course cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return public, nil
}

func (s *courseService) ListPublic(ctx context.Context) ([]Course, error) {
	var cached []Course
	found, err := cache.GetJSON(ctx, s.cache, allCoursesKey, &cached)
	if err != nil {
		slog.Warn("course list cache read failed", slog.Any("error", err))
	} else if found {
		return cached, nil
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]Course, len(all))
	for i := range all {
		public[i] = *all[i].Public()
	}
	if err := cache.SetJSON(ctx, s.cache, allCoursesKey, public, 0); err != nil {
		slog.Warn("course list cache write failed", slog.Any("error", err))
	}
	return public, nil
}

func (s *courseService) FindByID(ctx context.Context, id string) (*Course, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	return c, nil
}

func (s *courseService) ListAll(ctx context.Context) ([]Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return courses, nil
}

// --- Buyers ---

func (s *courseService) Content(ctx context.Context, user *auth.User, id string) ([]Content, error) {
	if !canAccess(user, id) {
		return nil, apperror.NewForbidden(msgNotEligible)
	}
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Content, nil
}

func (s *courseService) AddQuestion(ctx context.Context, user *auth.User, req QuestionRequest) (*Course, error) {
	if !canAccess(user, req.CourseID) {
		return nil, apperror.NewForbidden(msgNotEligible)
	}
	text := sanitize.Text(req.Question)
	if text == "" {
		return nil, apperror.NewValidation("Please enter your question")
	}

	var contentTitle string
	c, err := s.repo.Update(ctx, req.CourseID, func(c *Course) error {
		content := c.findContent(req.ContentID)
		if content == nil {
			return apperror.NewNotFound("Content not found")
		}
		contentTitle = content.Title
		content.Questions = append(content.Questions, Question{
			ID:        uuid.NewString(),
			User:      authorOf(user),
			Question:  text,
			Replies:   []Answer{},
			CreatedAt: s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	s.invalidate(ctx, c.ID)
	s.notify(ctx, user.ID, "New Question Received", "You have a new question in "+contentTitle)
	return c, nil
}

// AddAnswer appends an answer to a question. When the asker answers their
// own question the admins are notified; otherwise the asker gets a mail.
func (s *courseService) AddAnswer(ctx context.Context, user *auth.User, req AnswerRequest) (*Course, error) {
	if !canAccess(user, req.CourseID) {
		return nil, apperror.NewForbidden(msgNotEligible)
	}
	text := sanitize.HTML(strings.TrimSpace(req.Answer))
	if text == "" {
		return nil, apperror.NewValidation("Please enter your answer")
	}

	var contentTitle, askerID string
	c, err := s.repo.Update(ctx, req.CourseID, func(c *Course) error {
		content := c.findContent(req.ContentID)
		if content == nil {
			return apperror.NewNotFound("Content not found")
		}
		question := content.findQuestion(req.QuestionID)
		if question == nil {
			return apperror.NewNotFound("Question not found")
		}
		contentTitle = content.Title
		askerID = question.User.ID
		question.Replies = append(question.Replies, Answer{
			ID:        uuid.NewString(),
			User:      authorOf(user),
			Answer:    text,
			CreatedAt: s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	s.invalidate(ctx, c.ID)

	if askerID == user.ID {
		s.notify(ctx, user.ID, "New Question Reply Received", "You have a new question reply in "+contentTitle)
		return c, nil
	}
	s.mailAsker(ctx, askerID, contentTitle)
	return c, nil
}

func (s *courseService) AddReview(ctx context.Context, user *auth.User, courseID string, req ReviewRequest) (*Course, error) {
	if !user.HasCourse(courseID) {
		return nil, apperror.NewForbidden(msgNotEligible)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.NewValidation("Rating must be between 1 and 5")
	}
	text := sanitize.Text(req.Review)
	if text == "" {
		return nil, apperror.NewValidation("Please enter your review")
	}

	c, err := s.repo.Update(ctx, courseID, func(c *Course) error {
		c.Reviews = append(c.Reviews, Review{
			ID:        uuid.NewString(),
			User:      authorOf(user),
			Rating:    req.Rating,
			Comment:   text,
			Replies:   []ReviewReply{},
			CreatedAt: s.now().UTC(),
		})
		c.recomputeRatings()
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	s.invalidate(ctx, c.ID)
	s.notify(ctx, user.ID, "New Review Received", fmt.Sprintf("%s has given a review in %s", user.Name, c.Name))
	return c, nil
}

func (s *courseService) RecordPurchase(ctx context.Context, id string) error {
	if err := s.repo.IncrementPurchased(ctx, id); err != nil {
		return wrap(err)
	}
	s.invalidate(ctx, id)
	return nil
}

// --- Admin ---

func (s *courseService) Create(ctx context.Context, req CourseRequest) (*Course, error) {
	now := s.now().UTC()
	c := &Course{
		ID:        uuid.NewString(),
		Reviews:   []Review{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyRequest(c, req); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Thumbnail) != "" {
		asset, err := s.assets.Upload(ctx, media.UploadInput{Data: req.Thumbnail, Folder: media.FolderCourses})
		if err != nil {
			return nil, err
		}
		c.Thumbnail = &asset
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.discardAsset(ctx, c.Thumbnail)
		return nil, apperror.NewInternal(err)
	}

	s.invalidate(ctx, c.ID)
	slog.Info("course created", slog.String("course_id", c.ID), slog.String("name", c.Name))
	return c, nil
}

// Edit replaces the editable fields of a course. Content sections that
// keep their ID keep their questions; reviews and counters are untouched.
func (s *courseService) Edit(ctx context.Context, id string, req CourseRequest) (*Course, error) {
	probe := &Course{}
	if err := applyRequest(probe, req); err != nil {
		return nil, err
	}

	var uploaded *media.Asset
	if strings.TrimSpace(req.Thumbnail) != "" {
		asset, err := s.assets.Upload(ctx, media.UploadInput{Data: req.Thumbnail, Folder: media.FolderCourses})
		if err != nil {
			return nil, err
		}
		uploaded = &asset
	}

	var previous *media.Asset
	c, err := s.repo.Update(ctx, id, func(c *Course) error {
		questions := make(map[string][]Question, len(c.Content))
		for _, item := range c.Content {
			questions[item.ID] = item.Questions
		}
		if err := applyRequest(c, req); err != nil {
			return err
		}
		for i := range c.Content {
			if q, ok := questions[c.Content[i].ID]; ok {
				c.Content[i].Questions = q
			}
		}
		if uploaded != nil {
			previous = c.Thumbnail
			c.Thumbnail = uploaded
		}
		return nil
	})
	if err != nil {
		s.discardAsset(ctx, uploaded)
		return nil, wrap(err)
	}

	s.invalidate(ctx, id)
	s.discardAsset(ctx, previous)
	slog.Info("course updated", slog.String("course_id", id))
	return c, nil
}

func (s *courseService) Delete(ctx context.Context, id string) error {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrap(err)
	}

	s.invalidate(ctx, id)
	s.discardAsset(ctx, c.Thumbnail)
	slog.Info("course deleted", slog.String("course_id", id))
	return nil
}

func (s *courseService) AddReviewReply(ctx context.Context, user *auth.User, req ReviewReplyRequest) (*Course, error) {
	text := sanitize.Text(req.Comment)
	if text == "" {
		return nil, apperror.NewValidation("Please enter your reply")
	}

	c, err := s.repo.Update(ctx, req.CourseID, func(c *Course) error {
		review := c.findReview(req.ReviewID)
		if review == nil {
			return apperror.NewNotFound("Review not found")
		}
		review.Replies = append(review.Replies, ReviewReply{
			ID:        uuid.NewString(),
			User:      authorOf(user),
			Comment:   text,
			CreatedAt: s.now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	s.invalidate(ctx, c.ID)
	return c, nil
}

// --- Helpers ---

func canAccess(user *auth.User, courseID string) bool {
	return user.IsAdmin() || user.HasCourse(courseID)
}

// applyRequest validates req and copies it onto c. Content sections get
// fresh IDs unless the request names an existing one.
func applyRequest(c *Course, req CourseRequest) error {
	name := sanitize.Text(req.Name)
	if name == "" {
		return apperror.NewValidation("Please enter name")
	}
	description := sanitize.HTML(strings.TrimSpace(req.Description))
	if description == "" {
		return apperror.NewValidation("Please enter description")
	}
	if req.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative")
	}
	if req.EstimatedPrice.Valid && req.EstimatedPrice.Decimal.IsNegative() {
		return apperror.NewValidation("estimatedPrice must not be negative")
	}

	content := make([]Content, 0, len(req.Content))
	for _, item := range req.Content {
		title := sanitize.Text(item.Title)
		if title == "" {
			return apperror.NewValidation("Every content section needs a title")
		}
		if item.VideoLength < 0 {
			return apperror.NewValidation("videoLength must not be negative")
		}
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		links := make([]Link, 0, len(item.Links))
		for _, l := range item.Links {
			links = append(links, Link{Title: sanitize.Text(l.Title), URL: strings.TrimSpace(l.URL)})
		}
		content = append(content, Content{
			ID:             id,
			Title:          title,
			Description:    sanitize.HTML(strings.TrimSpace(item.Description)),
			VideoURL:       strings.TrimSpace(item.VideoURL),
			VideoThumbnail: strings.TrimSpace(item.VideoThumbnail),
			VideoSection:   sanitize.Text(item.VideoSection),
			VideoLength:    item.VideoLength,
			VideoPlayer:    sanitize.Text(item.VideoPlayer),
			Links:          links,
			Suggestion:     sanitize.Text(item.Suggestion),
		})
	}

	c.Name = name
	c.Description = description
	c.Categories = sanitize.Text(req.Categories)
	c.Price = req.Price
	c.EstimatedPrice = req.EstimatedPrice
	c.Tags = sanitize.Text(req.Tags)
	c.Level = sanitize.Text(req.Level)
	c.DemoURL = strings.TrimSpace(req.DemoURL)
	c.Benefits = titles(req.Benefits)
	c.Prerequisites = titles(req.Prerequisites)
	c.Content = content
	return nil
}

func titles(in []Titled) []Titled {
	out := make([]Titled, 0, len(in))
	for _, t := range sanitize.Texts(titleStrings(in)) {
		out = append(out, Titled{Title: t})
	}
	return out
}

func titleStrings(in []Titled) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = t.Title
	}
	return out
}

func (s *courseService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, courseKeyPrefix+id, allCoursesKey); err != nil {
		slog.Warn("course cache invalidation failed", slog.String("course_id", id), slog.Any("error", err))
	}
}

// notify records an admin notification. The course write already happened,
// so a failure is only logged.
func (s *courseService) notify(ctx context.Context, userID, title, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, title, message); err != nil {
		slog.Warn("failed to record notification",
			slog.String("title", title),
			slog.Any("error", err),
		)
	}
}

func (s *courseService) mailAsker(ctx context.Context, askerID, contentTitle string) {
	asker, err := s.users.FindUserByID(ctx, askerID)
	if err != nil {
		slog.Warn("question author not found, skipping reply mail",
			slog.String("user_id", askerID),
			slog.Any("error", err),
		)
		return
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:       asker.Email,
		Subject:  "Question Reply",
		Template: mail.TemplateQuestionReply,
		Data:     mail.QuestionReplyData{Name: asker.Name, Title: contentTitle},
	})
	if err != nil {
		slog.Warn("failed to send question reply mail",
			slog.String("user_id", askerID),
			slog.Any("error", err),
		)
	}
}

func (s *courseService) discardAsset(ctx context.Context, a *media.Asset) {
	if a == nil || a.PublicID == "" {
		return
	}
	if err := s.assets.Delete(ctx, a.PublicID); err != nil {
		slog.Warn("failed to delete course thumbnail",
			slog.String("public_id", a.PublicID),
			slog.Any("error", err),
		)
	}
}

// wrap passes AppErrors through and hides everything else behind a 500.
func wrap(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(err)
}
