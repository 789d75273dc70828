package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanlink/fanlink/app/models"
)

func TestPresentMessage(t *testing.T) {
	t.Parallel()

	paid := models.Message{
		ID:             7,
		ConversationID: 3,
		SenderID:       1,
		ReceiverID:     2,
		Body:           "check this out",
		ImageURL:       "https://cdn.fanlink.app/media/7.jpg",
		Price:          4.99,
		IsPaidContent:  true,
		IsLocked:       true,
	}

	t.Run("locked paid message is a placeholder for the receiver", func(t *testing.T) {
		t.Parallel()
		view := presentMessage(paid, paid.ReceiverID)

		assert.NotContains(t, view, "image_url")
		assert.Equal(t, true, view["locked_placeholder"])
		assert.Equal(t, 4.99, view["price"])
		assert.Equal(t, true, view["is_locked"])
	})

	t.Run("sender always sees the full message", func(t *testing.T) {
		t.Parallel()
		view := presentMessage(paid, paid.SenderID)

		assert.Equal(t, paid.ImageURL, view["image_url"])
		assert.Equal(t, 4.99, view["price"])
		assert.NotContains(t, view, "locked_placeholder")
	})

	t.Run("unlocked paid message shows image to the receiver", func(t *testing.T) {
		t.Parallel()
		unlocked := paid
		unlocked.IsLocked = false
		view := presentMessage(unlocked, unlocked.ReceiverID)

		assert.Equal(t, unlocked.ImageURL, view["image_url"])
		assert.Equal(t, 4.99, view["price"])
		assert.NotContains(t, view, "locked_placeholder")
	})

	t.Run("plain text message has no media fields", func(t *testing.T) {
		t.Parallel()
		text := models.Message{ID: 9, SenderID: 1, ReceiverID: 2, Body: "hi"}
		view := presentMessage(text, 2)

		assert.NotContains(t, view, "image_url")
		assert.NotContains(t, view, "price")
		assert.Equal(t, "hi", view["body"])
	})

	t.Run("free image message shows image without price", func(t *testing.T) {
		t.Parallel()
		free := models.Message{ID: 10, SenderID: 1, ReceiverID: 2, ImageURL: "https://cdn.fanlink.app/media/10.jpg"}
		view := presentMessage(free, 2)

		assert.Equal(t, free.ImageURL, view["image_url"])
		assert.NotContains(t, view, "price")
	})
}
