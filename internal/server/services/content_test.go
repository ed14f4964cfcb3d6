package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContentFixture(t *testing.T) (*ContentService, *fakeRepoMgr, *fakeStore) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	mgr := newFakeRepoMgr()
	store := newFakeStore()
	return NewContentService(db, mgr, store, logging.Nop()), mgr, store
}

func TestContentCreate(t *testing.T) {
	svc, _, store := newContentFixture(t)

	c, err := svc.Create(context.Background(), "admin@lms.io", ContentInput{
		Title:       " Fractions ",
		Topic:       "Math",
		Description: "Intro",
		Media: []MediaUpload{
			upload(models.MediaImage, "cover.png", "png"),
			upload(models.MediaVideo, "lesson.mp4", "mp4"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, "Fractions", c.Title)
	assert.Equal(t, "admin@lms.io", c.CreatedBy)
	assert.True(t, store.has(c.Image))
	assert.True(t, store.has(c.Video))
	assert.Empty(t, c.Audio)
}

func TestContentCreate_Validation(t *testing.T) {
	svc, _, _ := newContentFixture(t)

	for _, in := range []ContentInput{
		{Topic: "Math"},
		{Title: "T"},
		{Title: "T", Topic: "M", Media: []MediaUpload{upload("pdf", "a.pdf", "x")}},
	} {
		_, err := svc.Create(context.Background(), "a", in)
		assert.ErrorIs(t, err, common.ErrorValidation)
	}
}

func TestContentCreate_CleansUpOnFailure(t *testing.T) {
	t.Run("insert fails", func(t *testing.T) {
		svc, mgr, store := newContentFixture(t)
		mgr.contents.createErr = errors.New("db down")

		_, err := svc.Create(context.Background(), "a", ContentInput{
			Title: "T", Topic: "M",
			Media: []MediaUpload{upload(models.MediaAudio, "a.mp3", "mp3")},
		})
		require.Error(t, err)
		require.Len(t, store.deleted, 1)
		assert.False(t, store.has(store.deleted[0]))
	})

	t.Run("second upload fails", func(t *testing.T) {
		svc, _, store := newContentFixture(t)
		store.failAfter = 1

		_, err := svc.Create(context.Background(), "a", ContentInput{
			Title: "T", Topic: "M",
			Media: []MediaUpload{
				upload(models.MediaImage, "a.png", "png"),
				upload(models.MediaVideo, "b.mp4", "mp4"),
			},
		})
		require.Error(t, err)
		assert.Len(t, store.deleted, 1)
		assert.Empty(t, store.objects)
	})
}

func TestContentUpdate_ReplacesOnlyUploadedMedia(t *testing.T) {
	svc, _, store := newContentFixture(t)
	ctx := context.Background()

	orig, err := svc.Create(ctx, "a", ContentInput{
		Title: "T", Topic: "M",
		Media: []MediaUpload{
			upload(models.MediaImage, "a.png", "png"),
			upload(models.MediaAudio, "a.mp3", "mp3"),
		},
	})
	require.NoError(t, err)
	oldImage, oldAudio := orig.Image, orig.Audio

	updated, err := svc.Update(ctx, orig.ID, ContentInput{
		Title: "T2", Topic: "M2", Description: "D2",
		Media: []MediaUpload{upload(models.MediaImage, "b.png", "png2")},
	})
	require.NoError(t, err)

	assert.Equal(t, "T2", updated.Title)
	assert.NotEqual(t, oldImage, updated.Image)
	assert.Equal(t, oldAudio, updated.Audio)
	assert.False(t, store.has(oldImage), "replaced media is removed")
	assert.True(t, store.has(oldAudio))

	got, err := svc.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestContentUpdate_Errors(t *testing.T) {
	svc, mgr, store := newContentFixture(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 99, ContentInput{Title: "T", Topic: "M"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	c, err := svc.Create(ctx, "a", ContentInput{Title: "T", Topic: "M"})
	require.NoError(t, err)

	mgr.contents.updateErr = errors.New("db down")
	_, err = svc.Update(ctx, c.ID, ContentInput{
		Title: "T", Topic: "M",
		Media: []MediaUpload{upload(models.MediaVideo, "v.mp4", "v")},
	})
	require.Error(t, err)
	assert.Empty(t, store.objects, "new upload is removed when the row is not updated")
}

func TestContentDelete(t *testing.T) {
	svc, _, store := newContentFixture(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, "a", ContentInput{
		Title: "T", Topic: "M",
		Media: []MediaUpload{upload(models.MediaImage, "a.png", "png")},
	})
	require.NoError(t, err)

	store.deleteErr = errors.New("storage down")
	require.NoError(t, svc.Delete(ctx, c.ID), "media removal is best effort")
	assert.Equal(t, []string{c.Image}, store.deleted)

	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), common.ErrorNotFound)
}

func TestContentList(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, "a", ContentInput{Title: title, Topic: "M"})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].Title)

	public, err := svc.ListPublic(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, public, 2)
}

func TestMediaURL(t *testing.T) {
	svc, _, _ := newContentFixture(t)
	ctx := context.Background()

	url, err := svc.MediaURL(ctx, "contents/image/a.png")
	require.NoError(t, err)
	assert.Contains(t, url, "contents/image/a.png")

	for _, bad := range []string{"", "etc/passwd", "contents/../secret"} {
		_, err := svc.MediaURL(ctx, bad)
		assert.ErrorIs(t, err, common.ErrorValidation, bad)
	}
}
