package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	OwnerId   int       `json:"owner_id"`
	SeqId     int       `json:"seq_id"`
	Members   []User    `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id             int       `json:"id"`
	SeqId          int       `json:"seq_id"`
	RoomCode       string    `json:"room_code"`
	Author         string    `json:"author"`
	Content        string    `json:"content"`
	AssistantReply string    `json:"assistant_reply,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
