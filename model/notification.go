package model

import "time"

type NotificationType string

const (
	NotificationScanComplete         NotificationType = "scan_complete"
	NotificationNewPostCommunity     NotificationType = "new_post_community"
	NotificationContributionApproved NotificationType = "contribution_approved"
	NotificationAllergyAlert         NotificationType = "allergy_alert"
	NotificationPostLiked            NotificationType = "post_liked"
	NotificationPostCommented        NotificationType = "post_commented"
)

type Notification struct {
	Id        int64            `json:"id"`
	UserId    string           `json:"-"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TargetId  string           `json:"targetId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"timestamp"`
}

type NotificationSection struct {
	Title string          `json:"title"`
	Data  []*Notification `json:"data"`
}
