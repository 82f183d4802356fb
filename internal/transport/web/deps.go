package web

import (
	"github.com/EgorLis/my-feed/internal/transport/web/v1/comment"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/friendship"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/like"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/newsfeed"
	"github.com/EgorLis/my-feed/internal/transport/web/v1/tweet"
)

// Services — прикладной слой, который обслуживают ручки.
// feed.Service закрывает все, кроме Friends.
type Services struct {
	Posts    tweet.Service
	Feeds    newsfeed.Service
	Friends  friendship.Service
	Likes    like.Service
	Comments comment.Service
}
