package dto

import "time"

type IncomingLikeItem struct {
	Actor    string    `json:"actor"`
	Decision string    `json:"decision"`
	LikedAt  time.Time `json:"liked_at"`
}

type IncomingLikesResponse struct {
	Items []IncomingLikeItem `json:"items"`
}
