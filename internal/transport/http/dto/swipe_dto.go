package dto

import "time"

type SwipeRequest struct {
	Actor    string `json:"actor,omitempty"`
	Target   string `json:"target"`
	Decision string `json:"decision"`
}

type SwipeItem struct {
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Decision  string    `json:"decision"`
	CreatedAt time.Time `json:"created_at"`
}

type SwipeResponse struct {
	Swipe        SwipeItem  `json:"swipe"`
	MatchCreated bool       `json:"match_created"`
	Match        *MatchItem `json:"match,omitempty"`
}
