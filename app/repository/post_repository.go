package repository

import (
	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// postRepository implements the PostRepository interface
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create creates a new post in the database
func (r *postRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetByID retrieves a post by its ID with the author preloaded
func (r *postRepository) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("User").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetByUserID retrieves a user's posts, newest first
func (r *postRepository) GetByUserID(userID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("User").Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// List retrieves a paginated list of all posts, newest first
func (r *postRepository) List(offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Preload("User").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// ListForFeed retrieves posts by authors the viewer follows, newest first
func (r *postRepository) ListForFeed(viewerID uint, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	sub := r.db.Model(&models.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)
	err := r.db.Preload("User").Where("user_id IN (?)", sub).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// Update updates an existing post in the database
func (r *postRepository) Update(post *models.Post) error {
	return r.db.Save(post).Error
}

// Delete soft deletes a post by its ID
func (r *postRepository) Delete(id uint) error {
	return r.db.Delete(&models.Post{}, id).Error
}

// Count returns the total number of posts
func (r *postRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Count(&count).Error
	return count, err
}

// CountByUserID counts the posts of a single user
func (r *postRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// AddViewCounts applies batched view counter increments from the cache
func (r *postRepository) AddViewCounts(counts map[uint]int64) error {
	for postID, n := range counts {
		if n <= 0 {
			continue
		}
		err := r.db.Model(&models.Post{}).Where("id = ?", postID).
			Update("view_count", gorm.Expr("view_count + ?", n)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ToggleLike flips the like state for a user/post pair and keeps the
// denormalized counter in step. Returns true when the post ends up liked.
func (r *postRepository) ToggleLike(userID, postID uint) (bool, error) {
	var liked bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		liked, err = models.ToggleLike(tx, userID, postID)
		if err != nil {
			return err
		}
		delta := -1
		if liked {
			delta = 1
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Update("like_count", gorm.Expr("GREATEST(like_count + ?, 0)", delta)).Error
	})
	return liked, err
}

// IsLikedBy reports whether the user currently likes the post
func (r *postRepository) IsLikedBy(userID, postID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

// CreateComment creates a new comment on a post
func (r *postRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentByID retrieves a comment by its ID
func (r *postRepository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("User").First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComments retrieves the comments of a post, oldest first
func (r *postRepository) GetComments(postID uint, offset, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Preload("User").Where("post_id = ?", postID).
		Order("created_at ASC").Offset(offset).Limit(limit).Find(&comments).Error
	return comments, err
}

// UpdateComment updates an existing comment
func (r *postRepository) UpdateComment(comment *models.Comment) error {
	return r.db.Save(comment).Error
}

// DeleteComment soft deletes a comment by its ID
func (r *postRepository) DeleteComment(id uint) error {
	return r.db.Delete(&models.Comment{}, id).Error
}
