package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaKind classifies what an uploaded object is used for.
type MediaKind string

const (
	MediaProgressPhoto MediaKind = "progress-photo"
	MediaShareImage    MediaKind = "share-image"
)

// MediaObject stores metadata about a user-uploaded image (progress photo or
// a rendered workout share image). The actual bytes live in S3; uploads go
// directly there through presigned URLs.
type MediaObject struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	SessionID   *primitive.ObjectID `bson:"sessionId,omitempty" json:"sessionId,omitempty"` // share images link back to a session
	Kind        MediaKind           `bson:"kind" json:"kind"`
	S3ObjectKey string              `bson:"s3ObjectKey" json:"-"`
	FileName    string              `bson:"fileName" json:"fileName"`
	ContentType string              `bson:"contentType" json:"contentType"`
	Size        int64               `bson:"size" json:"size"`
	UploadedAt  time.Time           `bson:"uploadedAt" json:"uploadedAt"`
}
