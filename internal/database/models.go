package database

import (
	"database/sql"
	"time"
)

type Room struct {
	Id        int
	Code      string
	Name      string
	OwnerId   int
	SeqId     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	Id           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id             int
	SeqId          int
	RoomId         int
	Author         string
	Content        string
	AssistantReply sql.NullString
	CreatedAt      time.Time
}

type CreateAccountParams struct {
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Code    string
	Name    string
	OwnerId int
}
