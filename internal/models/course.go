package models

import "time"

// Course はコースのデータベース構造体を表します。
// TeacherID は作成したTEACHERユーザーのIDです。
type Course struct {
	ID          int       `json:"id,omitempty"`
	TeacherID   int       `json:"teacher_id"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
