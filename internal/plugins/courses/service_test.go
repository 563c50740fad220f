package courses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/elearning/internal/apperror"
	"github.com/keyxmakerx/elearning/internal/cache"
	"github.com/keyxmakerx/elearning/internal/mail"
	"github.com/keyxmakerx/elearning/internal/plugins/auth"
	"github.com/keyxmakerx/elearning/internal/plugins/media"
	"github.com/keyxmakerx/elearning/internal/plugins/notifications"
)

// --- Mocks ---

type mockRepo struct {
	courses   map[string]*Course
	finds     int
	updateErr error
}

func newMockRepo() *mockRepo { return &mockRepo{courses: make(map[string]*Course)} }

func (m *mockRepo) Create(_ context.Context, c *Course) error {
	raw, _ := json.Marshal(c)
	var cp Course
	_ = json.Unmarshal(raw, &cp)
	m.courses[c.ID] = &cp
	return nil
}

func (m *mockRepo) FindByID(_ context.Context, id string) (*Course, error) {
	m.finds++
	c, ok := m.courses[id]
	if !ok {
		return nil, apperror.NewNotFound("Course not found")
	}
	raw, _ := json.Marshal(c)
	var cp Course
	_ = json.Unmarshal(raw, &cp)
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context) ([]Course, error) {
	out := []Course{}
	for id := range m.courses {
		c, _ := m.FindByID(ctx, id)
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockRepo) Update(ctx context.Context, id string, fn func(c *Course) error) (*Course, error) {
	c, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return c, m.Create(ctx, c)
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return apperror.NewNotFound("Course not found")
	}
	delete(m.courses, id)
	return nil
}

func (m *mockRepo) IncrementPurchased(_ context.Context, id string) error {
	c, ok := m.courses[id]
	if !ok {
		return apperror.NewNotFound("Course not found")
	}
	c.Purchased++
	return nil
}

func (m *mockRepo) CountCreatedBetween(context.Context, time.Time, time.Time) (int, error) {
	return len(m.courses), nil
}

type mockAssets struct {
	uploads int
	deleted []string
}

func (m *mockAssets) Upload(_ context.Context, in media.UploadInput) (media.Asset, error) {
	m.uploads++
	id := fmt.Sprintf("%s/thumb-%d.png", in.Folder, m.uploads)
	return media.Asset{PublicID: id, URL: "http://assets.test/" + id}, nil
}

func (m *mockAssets) Delete(_ context.Context, publicID string) error {
	m.deleted = append(m.deleted, publicID)
	return nil
}

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, title, message string) (*notifications.Notification, error) {
	n.titles = append(n.titles, title)
	return &notifications.Notification{UserID: userID, Title: title, Message: message}, nil
}

type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type mapFinder map[string]*Recipient

func (f mapFinder) FindUserByID(_ context.Context, id string) (*Recipient, error) {
	if r, ok := f[id]; ok {
		return r, nil
	}
	return nil, apperror.NewNotFound("User not found")
}

type testEnv struct {
	svc      *courseService
	repo     *mockRepo
	assets   *mockAssets
	store    *cache.MemoryStore
	notifier *recordingNotifier
	mailer   *recordingMailer
	finder   mapFinder
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:     newMockRepo(),
		assets:   &mockAssets{},
		store:    cache.NewMemoryStore(),
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
		finder:   mapFinder{},
	}
	env.svc = NewCourseService(env.repo, env.assets, env.store, env.notifier, env.mailer, env.finder).(*courseService)
	return env
}

// seedCourse stores a course with two content sections.
func (env *testEnv) seedCourse(t *testing.T) *Course {
	t.Helper()
	c, err := env.svc.Create(context.Background(), CourseRequest{
		Name:        "Go in Practice",
		Description: "Learn Go",
		Price:       decimal.RequireFromString("49.99"),
		Thumbnail:   "data:image/png;base64,AAAA",
		Content: []ContentRequest{
			{Title: "Intro", VideoURL: "https://video.test/1", Suggestion: "watch first"},
			{Title: "Channels", VideoURL: "https://video.test/2"},
		},
	})
	require.NoError(t, err)
	return c
}

func learner(id string, courses ...string) *auth.User {
	return &auth.User{ID: id, Name: "Learner " + id, Role: auth.RoleUser, Courses: courses}
}

func admin() *auth.User {
	return &auth.User{ID: "admin-1", Name: "Admin", Role: auth.RoleAdmin}
}

func assertAppError(t *testing.T, err error, errType, message string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, errType, appErr.Type)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

// --- Tests ---

func TestGet_CachesPublicProjection(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	got, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Content[0].VideoURL)
	assert.Empty(t, got.Content[0].Suggestion)
	assert.Equal(t, "Intro", got.Content[0].Title)

	ttl, ok := env.store.TTL(courseKeyPrefix + c.ID)
	require.True(t, ok)
	assert.InDelta(t, courseCacheTTL.Seconds(), ttl.Seconds(), 5)

	finds := env.repo.finds
	_, err = env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, finds, env.repo.finds, "second read must come from the cache")
}

func TestGet_Missing(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.Get(context.Background(), "nope")
	assertAppError(t, err, apperror.TypeNotFound, "Course not found")
}

func TestMutations_InvalidateBothKeys(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	_, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	_, err = env.svc.ListPublic(ctx)
	require.NoError(t, err)

	buyer := learner("u1", c.ID)
	_, err = env.svc.AddReview(ctx, buyer, c.ID, ReviewRequest{Review: "Great", Rating: 5})
	require.NoError(t, err)

	for _, key := range []string{courseKeyPrefix + c.ID, allCoursesKey} {
		_, found, err := env.store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, "%s should be invalidated", key)
	}

	got, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 1)
}

func TestListPublic_StripsGatedContent(t *testing.T) {
	env := newTestEnv()
	env.seedCourse(t)

	courses, err := env.svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	for _, item := range courses[0].Content {
		assert.Empty(t, item.VideoURL)
		assert.Empty(t, item.Questions)
	}
}

func TestContent_RequiresPurchase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	_, err := env.svc.Content(ctx, learner("u1"), c.ID)
	assertAppError(t, err, apperror.TypeForbidden, "You are not eligible to access this course")

	content, err := env.svc.Content(ctx, learner("u1", c.ID), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://video.test/1", content[0].VideoURL)

	content, err = env.svc.Content(ctx, admin(), c.ID)
	require.NoError(t, err)
	assert.Len(t, content, 2)
}

func TestAddQuestion_TargetsContentByID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)
	second := c.Content[1].ID

	updated, err := env.svc.AddQuestion(ctx, learner("u1", c.ID), QuestionRequest{
		Question:  "Why <script>alert(1)</script>buffered?",
		CourseID:  c.ID,
		ContentID: second,
	})
	require.NoError(t, err)

	assert.Empty(t, updated.Content[0].Questions)
	require.Len(t, updated.Content[1].Questions, 1)
	q := updated.Content[1].Questions[0]
	assert.Equal(t, "Why buffered?", q.Question)
	assert.Equal(t, "u1", q.User.ID)
	assert.Equal(t, []string{"New Question Received"}, env.notifier.titles)
}

func TestAddQuestion_Errors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	_, err := env.svc.AddQuestion(ctx, learner("u1", c.ID), QuestionRequest{Question: "hi", CourseID: c.ID, ContentID: "missing"})
	assertAppError(t, err, apperror.TypeNotFound, "Content not found")

	_, err = env.svc.AddQuestion(ctx, learner("u2"), QuestionRequest{Question: "hi", CourseID: c.ID, ContentID: c.Content[0].ID})
	assertAppError(t, err, apperror.TypeForbidden, "")

	_, err = env.svc.AddQuestion(ctx, learner("u1", c.ID), QuestionRequest{Question: "<b></b>", CourseID: c.ID, ContentID: c.Content[0].ID})
	assertAppError(t, err, apperror.TypeValidation, "Please enter your question")
}

func TestAddAnswer_MailsAskerOrNotifiesAdmins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)
	contentID := c.Content[0].ID
	env.finder["asker"] = &Recipient{ID: "asker", Name: "Asker", Email: "asker@example.com"}

	asker := learner("asker", c.ID)
	updated, err := env.svc.AddQuestion(ctx, asker, QuestionRequest{Question: "How?", CourseID: c.ID, ContentID: contentID})
	require.NoError(t, err)
	questionID := updated.Content[0].Questions[0].ID

	// Someone else answers: the asker gets a mail.
	_, err = env.svc.AddAnswer(ctx, admin(), AnswerRequest{Answer: "Like this", CourseID: c.ID, ContentID: contentID, QuestionID: questionID})
	require.NoError(t, err)
	require.Len(t, env.mailer.sent, 1)
	sent := env.mailer.sent[0]
	assert.Equal(t, "asker@example.com", sent.To)
	assert.Equal(t, mail.TemplateQuestionReply, sent.Template)
	assert.Equal(t, mail.QuestionReplyData{Name: "Asker", Title: "Intro"}, sent.Data)

	// The asker follows up: admins are notified, no mail.
	updated, err = env.svc.AddAnswer(ctx, asker, AnswerRequest{Answer: "Thanks", CourseID: c.ID, ContentID: contentID, QuestionID: questionID})
	require.NoError(t, err)
	assert.Len(t, env.mailer.sent, 1)
	assert.Contains(t, env.notifier.titles, "New Question Reply Received")
	assert.Len(t, updated.Content[0].Questions[0].Replies, 2)

	_, err = env.svc.AddAnswer(ctx, asker, AnswerRequest{Answer: "x", CourseID: c.ID, ContentID: contentID, QuestionID: "missing"})
	assertAppError(t, err, apperror.TypeNotFound, "Question not found")
}

func TestAddReview_OwnershipRatingAndAverage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	_, err := env.svc.AddReview(ctx, learner("u1"), c.ID, ReviewRequest{Review: "ok", Rating: 4})
	assertAppError(t, err, apperror.TypeForbidden, "You are not eligible to access this course")

	for _, rating := range []int{0, 6} {
		_, err = env.svc.AddReview(ctx, learner("u1", c.ID), c.ID, ReviewRequest{Review: "ok", Rating: rating})
		assertAppError(t, err, apperror.TypeValidation, "Rating must be between 1 and 5")
	}

	_, err = env.svc.AddReview(ctx, learner("u1", c.ID), c.ID, ReviewRequest{Review: "good", Rating: 4})
	require.NoError(t, err)
	updated, err := env.svc.AddReview(ctx, learner("u2", c.ID), c.ID, ReviewRequest{Review: "great", Rating: 5})
	require.NoError(t, err)

	assert.Len(t, updated.Reviews, 2)
	assert.InDelta(t, 4.5, updated.Ratings, 0.0001)
	assert.Equal(t, []string{"New Review Received", "New Review Received"}, env.notifier.titles)
}

func TestAddReviewReply(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	reviewed, err := env.svc.AddReview(ctx, learner("u1", c.ID), c.ID, ReviewRequest{Review: "good", Rating: 4})
	require.NoError(t, err)

	updated, err := env.svc.AddReviewReply(ctx, admin(), ReviewReplyRequest{
		Comment: "Thanks!", CourseID: c.ID, ReviewID: reviewed.Reviews[0].ID,
	})
	require.NoError(t, err)
	require.Len(t, updated.Reviews[0].Replies, 1)
	assert.Equal(t, "admin-1", updated.Reviews[0].Replies[0].User.ID)

	_, err = env.svc.AddReviewReply(ctx, admin(), ReviewReplyRequest{Comment: "x", CourseID: c.ID, ReviewID: "missing"})
	assertAppError(t, err, apperror.TypeNotFound, "Review not found")
}

func TestEdit_KeepsQuestionsAndReplacesThumbnail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)
	oldThumb := c.Thumbnail.PublicID

	_, err := env.svc.AddQuestion(ctx, learner("u1", c.ID), QuestionRequest{Question: "Q", CourseID: c.ID, ContentID: c.Content[0].ID})
	require.NoError(t, err)

	updated, err := env.svc.Edit(ctx, c.ID, CourseRequest{
		Name:        "Go in Practice, 2nd ed.",
		Description: "Learn Go",
		Price:       decimal.RequireFromString("59"),
		Thumbnail:   "data:image/png;base64,BBBB",
		Content: []ContentRequest{
			{ID: c.Content[0].ID, Title: "Intro (updated)"},
			{Title: "Generics"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Go in Practice, 2nd ed.", updated.Name)
	require.Len(t, updated.Content, 2)
	assert.Len(t, updated.Content[0].Questions, 1)
	assert.NotEmpty(t, updated.Content[1].ID)
	assert.NotEqual(t, oldThumb, updated.Thumbnail.PublicID)
	assert.Equal(t, []string{oldThumb}, env.assets.deleted)
}

func TestEdit_FailedWriteDiscardsUpload(t *testing.T) {
	env := newTestEnv()
	c := env.seedCourse(t)
	env.repo.updateErr = errors.New("deadlock")

	_, err := env.svc.Edit(context.Background(), c.ID, CourseRequest{
		Name: "x", Description: "y", Thumbnail: "data:image/png;base64,BBBB",
	})
	assertAppError(t, err, apperror.TypeInternal, "")
	assert.Equal(t, []string{"courses/thumb-2.png"}, env.assets.deleted)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.svc.Create(ctx, CourseRequest{Description: "d"})
	assertAppError(t, err, apperror.TypeValidation, "Please enter name")

	_, err = env.svc.Create(ctx, CourseRequest{Name: "n", Description: "d", Price: decimal.NewFromInt(-1)})
	assertAppError(t, err, apperror.TypeValidation, "price must not be negative")
	assert.Zero(t, env.assets.uploads)
}

func TestRecordPurchase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	_, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.RecordPurchase(ctx, c.ID))

	got, err := env.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Purchased)
}

func TestDelete_RemovesThumbnail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.seedCourse(t)

	require.NoError(t, env.svc.Delete(ctx, c.ID))
	assert.Equal(t, []string{c.Thumbnail.PublicID}, env.assets.deleted)

	err := env.svc.Delete(ctx, c.ID)
	assertAppError(t, err, apperror.TypeNotFound, "Course not found")
}

func TestPublic_DoesNotAliasContent(t *testing.T) {
	c := &Course{Content: []Content{{ID: "a", Title: "A", VideoURL: "v"}}}
	p := c.Public()
	p.Content[0].Title = "changed"
	assert.Equal(t, "A", c.Content[0].Title)
	assert.Equal(t, "v", c.Content[0].VideoURL)
}
