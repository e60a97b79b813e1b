package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/db"
)

func setupHeroSlideServiceTest(t *testing.T) HeroSlideService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return NewHeroSlideService(repository.NewHeroSlideRepository(testDB))
}

func TestHeroSlideService_Validation(t *testing.T) {
	slideService := setupHeroSlideServiceTest(t)

	tests := []struct {
		name  string
		input HeroSlideInput
		field string
	}{
		{
			name:  "Missing title",
			input: HeroSlideInput{Image: "https://cdn.example.com/a.jpg"},
			field: "title",
		},
		{
			name:  "No media",
			input: HeroSlideInput{Title: "Diwali Edit"},
			field: "image",
		},
		{
			name:  "Both media",
			input: HeroSlideInput{Title: "Diwali Edit", Image: "https://cdn.example.com/a.jpg", Video: "https://cdn.example.com/a.mp4"},
			field: "video",
		},
		{
			name:  "Negative order",
			input: HeroSlideInput{Title: "Diwali Edit", Image: "https://cdn.example.com/a.jpg", Order: -1},
			field: "order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := slideService.CreateSlide(tt.input)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestHeroSlideService_ListActiveOrdered(t *testing.T) {
	slideService := setupHeroSlideServiceTest(t)

	inputs := []HeroSlideInput{
		{Title: "Second", Image: "https://cdn.example.com/2.jpg", IsActive: true, Order: 2},
		{Title: "First", Video: "https://cdn.example.com/1.mp4", IsActive: true, Order: 1},
		{Title: "Hidden", Image: "https://cdn.example.com/h.jpg", IsActive: false, Order: 0},
		{Title: "Phone", Image: "https://cdn.example.com/p.jpg", IsActive: true, IsMobile: true, Order: 3},
	}
	for _, in := range inputs {
		_, err := slideService.CreateSlide(in)
		require.NoError(t, err)
	}

	active, err := slideService.ListActive(nil)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "First", active[0].Title)
	assert.Equal(t, model.HeroMediaVideo, active[0].MediaType())
	assert.Equal(t, "Second", active[1].Title)

	mobile := true
	phone, err := slideService.ListActive(&mobile)
	require.NoError(t, err)
	require.Len(t, phone, 1)
	assert.Equal(t, "Phone", phone[0].Title)

	all, err := slideService.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestHeroSlideService_UpdateAndDelete(t *testing.T) {
	slideService := setupHeroSlideServiceTest(t)

	slide, err := slideService.CreateSlide(HeroSlideInput{Title: "Monsoon", Image: "https://cdn.example.com/m.jpg"})
	require.NoError(t, err)

	updated, err := slideService.UpdateSlide(slide.ID, HeroSlideInput{
		Title:      "Monsoon Sale",
		Video:      "https://cdn.example.com/m.mp4",
		ButtonText: "Shop now",
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Monsoon Sale", updated.Title)
	assert.Empty(t, updated.Image)
	assert.Equal(t, model.HeroMediaVideo, updated.MediaType())

	_, err = slideService.UpdateSlide(9999, HeroSlideInput{Title: "x", Image: "https://cdn.example.com/x.jpg"})
	assert.ErrorIs(t, err, ErrHeroSlideNotFound)

	require.NoError(t, slideService.DeleteSlide(slide.ID))
	assert.ErrorIs(t, slideService.DeleteSlide(slide.ID), ErrHeroSlideNotFound)
	_, err = slideService.GetSlide(slide.ID)
	assert.ErrorIs(t, err, ErrHeroSlideNotFound)
}
