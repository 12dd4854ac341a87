package bookmarks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/logger"
	"github.com/MrSnakeDoc/canon/internal/store/memory"
	"github.com/MrSnakeDoc/canon/internal/validation"
)

func strPtr(s string) *string { return &s }

func newService() (*Service, *memory.Store) {
	store := memory.New()
	svc := NewService(store.Canonical(), validation.New(), logger.Nop())
	svc.newID = func() string { return "generated-id" }
	return svc, store
}

func TestAdd_DefaultsAndOwner(t *testing.T) {
	svc, _ := newService()

	body := `{"user_id": "someone-else", "title": "Go", "url": "https://go.dev", "tags": ["lang", " lang "]}`
	b, created, err := svc.Add(context.Background(), "u1", []byte(body))
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, "u1", b.UserID, "owner comes from the caller")
	assert.Equal(t, domain.SourceTypeManual, b.SourceType)
	assert.Equal(t, "generated-id", b.SourceID)
	assert.Equal(t, []string{"lang"}, b.Tags)
	assert.True(t, b.IsOrganized)
	assert.Equal(t, "https://go.dev", domain.Deref(b.ResolvedURL))
	assert.NotEmpty(t, b.ID)
}

func TestAdd_SameSourceUpdates(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	first := `{"title": "Shared", "url": "https://example.com", "source_type": "share", "source_id": "ig-1", "description": "kept"}`
	second := `{"title": "Shared again", "url": "https://example.com", "source_type": "share", "source_id": "ig-1"}`

	a, created, err := svc.Add(ctx, "u1", []byte(first))
	require.NoError(t, err)
	require.True(t, created)

	b, created, err := svc.Add(ctx, "u1", []byte(second))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Shared again", b.Title)
	assert.Equal(t, "kept", domain.Deref(b.Description))

	rows, err := store.Canonical().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAdd_ValidationErrors(t *testing.T) {
	svc, store := newService()

	_, _, err := svc.Add(context.Background(), "u1", []byte(`{"title": "", "url": "nope", "tags": "x"}`))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "title is required")
	assert.Contains(t, verr.Errors, "url must be a valid URL format")
	assert.Contains(t, verr.Errors, "tags must be an array")

	rows, err := store.Canonical().ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, rows, "nothing is written for an invalid candidate")
}

func TestAdd_NotAnObject(t *testing.T) {
	svc, _ := newService()

	_, _, err := svc.Add(context.Background(), "u1", []byte(`[1,2]`))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyInsights(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	b, _, err := svc.Add(ctx, "u1", []byte(`{"title": "Post", "url": "https://instagram.com/p/1", "source_type": "share", "source_metadata": {"instagram_post": "1"}}`))
	require.NoError(t, err)

	updated, err := svc.ApplyInsights(ctx, "u1", b.ID, &domain.Insights{
		Description: strPtr("A recipe for bread"),
		Tags:        []string{"food", "Food ", "food"},
		SourceMetadata: &domain.SourceMetadata{
			AIEnhanced: domain.Bool(true),
			Extras:     map[string]any{"model": "vision"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Post", updated.Title)
	assert.Equal(t, "A recipe for bread", domain.Deref(updated.Description))
	assert.Equal(t, []string{"food", "Food"}, updated.Tags)
	require.NotNil(t, updated.SourceMetadata)
	require.NotNil(t, updated.SourceMetadata.AIEnhanced)
	assert.True(t, *updated.SourceMetadata.AIEnhanced)
	post, _ := updated.SourceMetadata.Extra("instagram_post")
	assert.Equal(t, "1", post)
	model, _ := updated.SourceMetadata.Extra("model")
	assert.Equal(t, "vision", model)
}

func TestApplyInsights_Rejections(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	b, _, err := svc.Add(ctx, "u1", []byte(`{"title": "Post", "url": "https://example.com"}`))
	require.NoError(t, err)

	t.Run("empty update", func(t *testing.T) {
		_, err := svc.ApplyInsights(ctx, "u1", b.ID, &domain.Insights{})
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("blank title", func(t *testing.T) {
		_, err := svc.ApplyInsights(ctx, "u1", b.ID, &domain.Insights{Title: strPtr("  ")})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Errors, "title is required")
	})

	t.Run("other user", func(t *testing.T) {
		_, err := svc.ApplyInsights(ctx, "u2", b.ID, &domain.Insights{Title: strPtr("Mine now")})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
