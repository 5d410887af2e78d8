package dto

import "github.com/noah-isme/classroom-api/internal/models"

// CreateCommentRequest is the payload for posting a comment.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

// CommentView is a public comment with its author's profile.
type CommentView struct {
	models.Comment
	models.CommentAuthor
}

// PrivateCommentView is a private comment with its author's profile.
type PrivateCommentView struct {
	models.PrivateComment
	models.CommentAuthor
}
