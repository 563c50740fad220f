// Package courses manages the course catalogue: public listings served
// through the shared cache, purchased content, questions and answers on
// content sections, and reviews.
//
// A course is stored as one document. Nested data (content sections,
// questions, reviews) lives in JSON columns and is always rewritten whole
// inside a row-locking transaction.
package courses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/keyxmakerx/elearning/internal/plugins/media"
)

// Author is the part of a user shown next to their questions, answers and
// reviews. Email is deliberately not stored.
type Author struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Avatar *media.Asset `json:"avatar,omitempty"`
}

// Titled is one entry of a benefits or prerequisites list.
type Titled struct {
	Title string `json:"title"`
}

// Link is an extra resource attached to a content section.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is a reply to a question.
type Answer struct {
	ID        string    `json:"id"`
	User      Author    `json:"user"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is asked by a learner on one content section.
type Question struct {
	ID        string    `json:"id"`
	User      Author    `json:"user"`
	Question  string    `json:"question"`
	Replies   []Answer  `json:"question_replies"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewReply is an admin's answer to a review.
type ReviewReply struct {
	ID        string    `json:"id"`
	User      Author    `json:"user"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Review rates a course from 1 to 5.
type Review struct {
	ID        string        `json:"id"`
	User      Author        `json:"user"`
	Rating    int           `json:"rating"`
	Comment   string        `json:"comment"`
	Replies   []ReviewReply `json:"comment_replies"`
	CreatedAt time.Time     `json:"created_at"`
}

// Content is one video section of a course. VideoURL, Links, Suggestion
// and Questions are only visible to buyers.
type Content struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	VideoURL       string     `json:"video_url,omitempty"`
	VideoThumbnail string     `json:"video_thumbnail,omitempty"`
	VideoSection   string     `json:"video_section"`
	VideoLength    int        `json:"video_length"`
	VideoPlayer    string     `json:"video_player,omitempty"`
	Links          []Link     `json:"links,omitempty"`
	Suggestion     string     `json:"suggestion,omitempty"`
	Questions      []Question `json:"questions,omitempty"`
}

// Course is the catalogue entry with everything nested under it.
type Course struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Categories     string              `json:"categories"`
	Price          decimal.Decimal     `json:"price"`
	EstimatedPrice decimal.NullDecimal `json:"estimated_price"`
	Thumbnail      *media.Asset        `json:"thumbnail,omitempty"`
	Tags           string              `json:"tags"`
	Level          string              `json:"level"`
	DemoURL        string              `json:"demo_url"`
	Benefits       []Titled            `json:"benefits"`
	Prerequisites  []Titled            `json:"prerequisites"`
	Content        []Content           `json:"content"`
	Reviews        []Review            `json:"reviews"`
	Ratings        float64             `json:"ratings"`
	Purchased      int                 `json:"purchased"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Public returns a copy of c safe to show to anyone: content sections keep
// their outline but lose the video, links, suggestion and questions.
func (c *Course) Public() *Course {
	out := *c
	out.Content = make([]Content, len(c.Content))
	for i, item := range c.Content {
		out.Content[i] = Content{
			ID:           item.ID,
			Title:        item.Title,
			Description:  item.Description,
			VideoSection: item.VideoSection,
			VideoLength:  item.VideoLength,
		}
	}
	return &out
}

// findContent returns the content section with the given id.
func (c *Course) findContent(id string) *Content {
	for i := range c.Content {
		if c.Content[i].ID == id {
			return &c.Content[i]
		}
	}
	return nil
}

// findReview returns the review with the given id.
func (c *Course) findReview(id string) *Review {
	for i := range c.Reviews {
		if c.Reviews[i].ID == id {
			return &c.Reviews[i]
		}
	}
	return nil
}

// recomputeRatings sets Ratings to the mean of all review ratings.
func (c *Course) recomputeRatings() {
	if len(c.Reviews) == 0 {
		c.Ratings = 0
		return
	}
	sum := 0
	for _, r := range c.Reviews {
		sum += r.Rating
	}
	c.Ratings = float64(sum) / float64(len(c.Reviews))
}

// findQuestion returns the question with the given id.
func (c *Content) findQuestion(id string) *Question {
	for i := range c.Questions {
		if c.Questions[i].ID == id {
			return &c.Questions[i]
		}
	}
	return nil
}

// --- Request DTOs (bound from HTTP requests) ---

// ContentRequest is one content section in a create or edit request. On
// edit, sections that keep their ID keep their questions.
type ContentRequest struct {
	ID             string `json:"id"`
	Title          string `json:"title" validate:"required,max=255"`
	Description    string `json:"description"`
	VideoURL       string `json:"videoUrl"`
	VideoThumbnail string `json:"videoThumbnail"`
	VideoSection   string `json:"videoSection"`
	VideoLength    int    `json:"videoLength"`
	VideoPlayer    string `json:"videoPlayer"`
	Links          []Link `json:"links"`
	Suggestion     string `json:"suggestion"`
}

// CourseRequest is the body of POST /createCourse and PUT /editCourse/:id.
// Thumbnail is a base64 image; on edit an empty value keeps the old one.
type CourseRequest struct {
	Name           string              `json:"name" validate:"required,max=255"`
	Description    string              `json:"description" validate:"required"`
	Categories     string              `json:"categories"`
	Price          decimal.Decimal     `json:"price"`
	EstimatedPrice decimal.NullDecimal `json:"estimatedPrice"`
	Thumbnail      string              `json:"thumbnail"`
	Tags           string              `json:"tags"`
	Level          string              `json:"level"`
	DemoURL        string              `json:"demoUrl"`
	Benefits       []Titled            `json:"benefits"`
	Prerequisites  []Titled            `json:"prerequisites"`
	Content        []ContentRequest    `json:"courseData" validate:"dive"`
}

// QuestionRequest is the body of PUT /addQuestion.
type QuestionRequest struct {
	Question  string `json:"question" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	ContentID string `json:"contentId" validate:"required"`
}

// AnswerRequest is the body of PUT /addAnswer.
type AnswerRequest struct {
	Answer     string `json:"answer" validate:"required"`
	CourseID   string `json:"courseId" validate:"required"`
	ContentID  string `json:"contentId" validate:"required"`
	QuestionID string `json:"questionId" validate:"required"`
}

// ReviewRequest is the body of PUT /addReview/:id.
type ReviewRequest struct {
	Review string `json:"review" validate:"required"`
	Rating int    `json:"rating"`
}

// ReviewReplyRequest is the body of PUT /addReviewReply.
type ReviewReplyRequest struct {
	Comment  string `json:"comment" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
	ReviewID string `json:"reviewId" validate:"required"`
}
