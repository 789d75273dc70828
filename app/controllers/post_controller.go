package controllers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/jobqueue"
	"github.com/fanlink/fanlink/internal/pkg/metrics/counter"
	"github.com/fanlink/fanlink/internal/pkg/usercontext"
)

type postRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	ImageURL string `json:"image_url" validate:"omitempty,max=255"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// HandleCreatePost creates a post owned by the authenticated user.
func HandleCreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	post := &models.Post{
		UserID:   usercontext.GetUserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	}
	if err := repository.GetGlobalRepositories().Post.Create(post); err != nil {
		return internalError(c, "Failed to create post")
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleGetPost returns a single post and counts the view. Views are
// buffered in redis and flushed to the posts table in batches.
func HandleGetPost(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}

	post, err := repository.GetGlobalRepositories().Post.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Post not found")
		}
		return internalError(c, "Failed to load post")
	}

	if err := counter.AddPostView(post.ID); err != nil {
		log.Printf("view counter failed for post %d: %v", post.ID, err)
	}

	liked, err := repository.GetGlobalRepositories().Post.IsLikedBy(usercontext.GetUserID(c), post.ID)
	if err != nil {
		liked = false
	}
	return c.JSON(fiber.Map{"post": post, "liked": liked})
}

// HandleListPosts returns posts newest first with skip/limit paging.
func HandleListPosts(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	posts, err := repository.GetGlobalRepositories().Post.List(offset, limit)
	if err != nil {
		return internalError(c, "Failed to load posts")
	}
	return c.JSON(fiber.Map{"posts": posts, "skip": offset, "limit": limit})
}

// HandleFeed returns posts from users the viewer follows, newest first.
func HandleFeed(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	posts, err := repository.GetGlobalRepositories().Post.ListForFeed(usercontext.GetUserID(c), offset, limit)
	if err != nil {
		return internalError(c, "Failed to load feed")
	}
	return c.JSON(fiber.Map{"posts": posts, "skip": offset, "limit": limit})
}

// HandleGetUserPosts returns the posts of one author.
func HandleGetUserPosts(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	offset, limit := parsePagination(c)
	posts, err := repository.GetGlobalRepositories().Post.GetByUserID(userID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load posts")
	}
	return c.JSON(fiber.Map{"posts": posts, "skip": offset, "limit": limit})
}

// HandleUpdatePost edits a post; only the author may.
func HandleUpdatePost(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	post, err := repos.Post.GetByID(id)
	if err != nil {
		return notFound(c, "Post not found")
	}
	if post.UserID != usercontext.GetUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Not your post"})
	}

	post.Content = req.Content
	post.ImageURL = req.ImageURL
	if err := repos.Post.Update(post); err != nil {
		return internalError(c, "Failed to update post")
	}
	return c.JSON(post)
}

// HandleDeletePost deletes a post; only the author may.
func HandleDeletePost(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	repos := repository.GetGlobalRepositories()
	post, err := repos.Post.GetByID(id)
	if err != nil {
		return notFound(c, "Post not found")
	}
	if post.UserID != usercontext.GetUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Not your post"})
	}
	if err := repos.Post.Delete(post.ID); err != nil {
		return internalError(c, "Failed to delete post")
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// HandleToggleLike flips the viewer's like on a post. Repeating the call
// undoes it, so a double-tap never errors.
func HandleToggleLike(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	userID := usercontext.GetUserID(c)

	repos := repository.GetGlobalRepositories()
	post, err := repos.Post.GetByID(postID)
	if err != nil {
		return notFound(c, "Post not found")
	}

	liked, err := repos.Post.ToggleLike(userID, postID)
	if err != nil {
		return internalError(c, "Failed to toggle like")
	}

	if liked {
		enqueueNotification(post.UserID, userID, models.NotificationTypeLike,
			fmt.Sprintf("%s liked your post", usercontext.GetUsername(c)), post.ID)
	}

	updated, err := repos.Post.GetByID(postID)
	if err != nil {
		return internalError(c, "Failed to load post")
	}
	return c.JSON(fiber.Map{"liked": liked, "like_count": updated.LikeCount})
}

// HandleCreateComment adds a comment to a post.
func HandleCreateComment(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	post, err := repos.Post.GetByID(postID)
	if err != nil {
		return notFound(c, "Post not found")
	}

	comment := &models.Comment{
		UserID:  usercontext.GetUserID(c),
		PostID:  postID,
		Content: req.Content,
	}
	if err := repos.Post.CreateComment(comment); err != nil {
		return internalError(c, "Failed to create comment")
	}

	enqueueNotification(post.UserID, comment.UserID, models.NotificationTypeComment,
		fmt.Sprintf("%s commented on your post", usercontext.GetUsername(c)), post.ID)

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// HandleGetComments lists a post's comments oldest first.
func HandleGetComments(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	offset, limit := parsePagination(c)
	comments, err := repository.GetGlobalRepositories().Post.GetComments(postID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load comments")
	}
	return c.JSON(fiber.Map{"comments": comments, "skip": offset, "limit": limit})
}

// HandleUpdateComment edits a comment; only its author may.
func HandleUpdateComment(c *fiber.Ctx) error {
	commentID, err := parseIDParam(c, "comment_id")
	if err != nil {
		return jsonError(c, err)
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	comment, err := repos.Post.GetCommentByID(commentID)
	if err != nil {
		return notFound(c, "Comment not found")
	}
	if comment.UserID != usercontext.GetUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Not your comment"})
	}

	comment.Content = req.Content
	if err := repos.Post.UpdateComment(comment); err != nil {
		return internalError(c, "Failed to update comment")
	}
	return c.JSON(comment)
}

// HandleDeleteComment removes a comment; the comment author or the post
// author may.
func HandleDeleteComment(c *fiber.Ctx) error {
	commentID, err := parseIDParam(c, "comment_id")
	if err != nil {
		return jsonError(c, err)
	}

	repos := repository.GetGlobalRepositories()
	comment, err := repos.Post.GetCommentByID(commentID)
	if err != nil {
		return notFound(c, "Comment not found")
	}
	userID := usercontext.GetUserID(c)
	if comment.UserID != userID {
		post, err := repos.Post.GetByID(comment.PostID)
		if err != nil || post.UserID != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Not your comment"})
		}
	}

	if err := repos.Post.DeleteComment(commentID); err != nil {
		return internalError(c, "Failed to delete comment")
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// enqueueNotification queues a fan-out job; failures only log.
func enqueueNotification(recipientID, actorID uint, typ, message string, refID uint) {
	if err := jobqueue.EnqueueNotification(jobqueue.NotificationJobPayload{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        typ,
		Message:     message,
		ReferenceID: refID,
	}); err != nil {
		log.Printf("notification enqueue failed (%s for user %d): %v", typ, recipientID, err)
	}
}
