package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
)

func TestCreateReview_UpdatesAggregate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	alice := env.user(t, "alice", models.RoleStudent, false)
	bob := env.user(t, "bob", models.RoleStudent, false)
	c := env.course(t, inst, "Intro", "0")

	ratings := map[*authz.Principal]int{alice: 5, bob: 2}
	for who, rating := range ratings {
		_, err := env.manager.Enrollment().Enroll(ctx, who, c.ID)
		require.NoError(t, err)
		review, err := env.manager.Review().Create(ctx, who, c.ID, &CreateReviewRequest{Rating: rating, Comment: "  ok  "})
		require.NoError(t, err)
		assert.Equal(t, "ok", review.Comment)
		assert.Equal(t, who.Name, review.Name)
	}

	course, err := env.manager.Course().Get(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, course.NumReviews)
	assert.InDelta(t, 3.5, course.Rating, 0.001)

	reviews, err := env.manager.Review().ListByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Len(t, env.publisher.EventsOfType(events.ReviewCreated), 2)
}

func TestCreateReview_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	student := env.user(t, "student", models.RoleStudent, false)
	c := env.course(t, inst, "Intro", "0")

	_, err := env.manager.Review().Create(ctx, student, c.ID, &CreateReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrNotEnrolled)
	assert.True(t, IsPermissionError(err))

	_, err = env.manager.Enrollment().Enroll(ctx, student, c.ID)
	require.NoError(t, err)

	_, err = env.manager.Review().Create(ctx, student, c.ID, &CreateReviewRequest{Rating: 6})
	assert.True(t, IsValidationError(err))

	_, err = env.manager.Review().Create(ctx, student, "missing", &CreateReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = env.manager.Review().Create(ctx, student, c.ID, &CreateReviewRequest{Rating: 4})
	require.NoError(t, err)
	_, err = env.manager.Review().Create(ctx, student, c.ID, &CreateReviewRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.True(t, IsConflictError(err))

	course, err := env.manager.Course().Get(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.NumReviews)
	assert.InDelta(t, 4.0, course.Rating, 0.001)
}
